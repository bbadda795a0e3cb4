// Package source produces the flat event snapshot the layout engine works
// on, from the HR API, ICS feeds or the HR database.
package source

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"time"

	"hrcal/internal/config"
	appLog "hrcal/internal/log"
	"hrcal/internal/model"
)

// Source yields the events overlapping a date range.
type Source interface {
	ID() string
	Events(ctx context.Context, rng model.DateRange) ([]model.Event, error)
}

// ErrUnknownType is returned by New for an unsupported source type.
var ErrUnknownType = errors.New("source: unknown source type")

// New builds the source described by sc. Postgres sources connect eagerly,
// so ctx bounds the connection attempt.
func New(ctx context.Context, sc config.SourceConfig, fetcher *Fetcher, loc *time.Location) (Source, error) {
	switch sc.Type {
	case config.SourceAPI:
		return NewAPI(sc, fetcher, nil, loc), nil
	case config.SourceICS:
		return NewICS(sc, fetcher, loc), nil
	case config.SourcePostgres:
		return NewPostgres(ctx, sc, loc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, sc.Type)
	}
}

// Multi merges several sources. A failing source is logged and skipped; an
// error is returned only when every source failed.
type Multi []Source

func (m Multi) ID() string { return "multi" }

func (m Multi) Events(ctx context.Context, rng model.DateRange) ([]model.Event, error) {
	out := make([]model.Event, 0)
	errs := make([]error, 0)
	for _, s := range m {
		events, err := s.Events(ctx, rng)
		if err != nil {
			appLog.Error("source events failed", err, "id", s.ID())
			errs = append(errs, fmt.Errorf("%s: %w", s.ID(), err))
			continue
		}
		out = append(out, events...)
	}
	if len(m) > 0 && len(errs) == len(m) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// syntheticID derives a stable positive event id for sources without
// numeric ids (ICS occurrences).
func syntheticID(parts ...string) int {
	h := fnv.New32a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return int(h.Sum32() & 0x7fffffff)
}

func bearer(token string) http.Header {
	if token == "" {
		return nil
	}
	return http.Header{"Authorization": []string{"Bearer " + token}}
}
