package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrcal/internal/config"
	appLog "hrcal/internal/log"
	"hrcal/internal/model"
)

// periodQuery reads the calendar_events view the HR backend maintains over
// its vacation-usage and schedule tables.
const periodQuery = `SELECT calendar_id, user_id, user_name, calendar_name, calendar_type,
 COALESCE(calendar_desc, ''), domain_type, COALESCE(vacation_type, ''), start_date, end_date
 FROM calendar_events
 WHERE start_date <= $2 AND end_date >= $1
 ORDER BY start_date ASC, calendar_id ASC`

// Postgres reads events straight from the HR database.
type Postgres struct {
	id   string
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewPostgres connects to sc.DSN and verifies the connection.
func NewPostgres(ctx context.Context, sc config.SourceConfig, loc *time.Location) (*Postgres, error) {
	if sc.DSN == "" {
		return nil, errors.New("source: postgres dsn is empty")
	}
	if loc == nil {
		loc = time.Local
	}

	pool, err := pgxpool.New(ctx, sc.DSN)
	if err != nil {
		return nil, fmt.Errorf("source: postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("source: postgres ping: %w", err)
	}

	return &Postgres{id: sc.ID, pool: pool, loc: loc}, nil
}

func (p *Postgres) ID() string { return p.id }

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Events(ctx context.Context, rng model.DateRange) ([]model.Event, error) {
	rows, err := p.pool.Query(ctx, periodQuery, rng.Start, rng.End)
	if err != nil {
		return nil, fmt.Errorf("source: postgres query: %w", err)
	}
	defer rows.Close()

	events, err := scanPeriodRows(rows, p.loc)
	if err != nil {
		return nil, err
	}
	appLog.Info("source postgres events", "id", p.id, "count", len(events))
	return events, nil
}

func scanPeriodRows(rows pgx.Rows, loc *time.Location) ([]model.Event, error) {
	events := make([]model.Event, 0)
	for rows.Next() {
		var (
			r          periodRow
			start, end time.Time
		)
		if err := rows.Scan(&r.CalendarID, &r.UserID, &r.UserName, &r.CalendarName, &r.CalendarType,
			&r.CalendarDesc, &r.DomainType, &r.VacationType, &start, &end); err != nil {
			return nil, fmt.Errorf("source: postgres scan: %w", err)
		}
		events = append(events, r.event(wallClock(start, loc), wallClock(end, loc)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source: postgres rows: %w", err)
	}
	return events, nil
}

// wallClock reinterprets a TIMESTAMP (without time zone) value, which pgx
// hands back as UTC, as wall-clock time in loc.
func wallClock(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
