package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hrcal/internal/capture"
	"hrcal/internal/config"
	"hrcal/internal/holiday"
	appLog "hrcal/internal/log"
	"hrcal/internal/refresh"
	"hrcal/internal/source"
	"hrcal/internal/web"
)

var version = "0.1.0-dev"

// flagConfig holds CLI flag values; they override the config file.
type flagConfig struct {
	configPath string
	envFile    string
	listen     string
	once       bool
	capture    bool
}

func main() {
	flags := parseFlags()
	appLog.Info("hrcal starting", "version", version)

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if err := conf.ApplyEnv(flags.envFile); err != nil {
		appLog.Error("failed to apply environment", err, "env_file", flags.envFile)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.capture {
		conf.Capture.Enabled = true
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"refresh", conf.RefreshCron,
		"sources", len(conf.Sources),
		"holidays", len(conf.Holidays),
		"capture", conf.Capture.Enabled,
		"once", flags.once,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, conf, flags.once); err != nil {
		appLog.Error("hrcal failed", err)
		os.Exit(1)
	}
	appLog.Info("hrcal exiting")
}

func run(ctx context.Context, conf *config.Config, once bool) error {
	loc := conf.Location()
	fetcher := source.NewFetcher(conf.CacheDir, nil)

	var (
		sources []source.Source
		updater web.Updater
	)
	for _, sc := range conf.Sources {
		src, err := source.New(ctx, sc, fetcher, loc)
		if err != nil {
			// One broken source must not take the board down.
			appLog.Error("source disabled", err, "id", sc.ID, "type", sc.Type)
			continue
		}
		if pg, ok := src.(*source.Postgres); ok {
			defer pg.Close()
		}
		if api, ok := src.(*source.API); ok && updater == nil {
			updater = api
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		appLog.Warn("no event sources configured; the calendar will be empty")
	}

	ln, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		return err
	}

	opts := []refresh.Option{}
	if conf.Capture.Enabled {
		opts = append(opts, refresh.WithHook(captureHook(conf, ln.Addr())))
	}
	refresher := refresh.New(source.Multi(sources), conf.RefreshCron, loc, opts...)

	serverOpts := []web.Option{}
	if updater != nil {
		serverOpts = append(serverOpts, web.WithUpdater(updater))
	}
	server := web.NewServer(conf, refresher, holiday.New(conf.Holidays, loc), serverOpts...)

	serveCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Run(serveCtx, ln) }()

	if once {
		err := refresher.RefreshNow(ctx)
		stopServer()
		if srvErr := <-serveErr; srvErr != nil {
			appLog.Error("HTTP server error", srvErr)
		}
		return err
	}

	if err := refresher.Start(ctx); err != nil {
		stopServer()
		<-serveErr
		return err
	}

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	}
	// Give the server its graceful shutdown window.
	select {
	case err := <-serveErr:
		return err
	case <-time.After(10 * time.Second):
		appLog.Warn("HTTP server shutdown timed out")
		return nil
	}
}

// captureHook screenshots the month page served on addr after each refresh.
func captureHook(conf *config.Config, addr net.Addr) refresh.Hook {
	return func(ctx context.Context, _ refresh.Snapshot) {
		opts := capture.Options{
			URL:        "http://" + localAddr(addr) + "/calendar",
			OutputPath: conf.Capture.OutputPath,
			Width:      conf.Capture.Width,
			Height:     conf.Capture.Height,
		}
		if conf.BasicAuth != nil {
			opts.Username = conf.BasicAuth.Username
			opts.Password = conf.BasicAuth.Password
		}
		if err := capture.MonthPNG(ctx, opts); err != nil {
			appLog.Error("capture failed", err, "url", opts.URL)
		}
	}
}

// localAddr rewrites wildcard listen addresses to loopback so the browser
// can reach them.
func localAddr(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.envFile, "env", ".env", "Path to an optional .env file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh (and capture, if enabled) and exit")
	flag.BoolVar(&cfg.capture, "capture", false, "Capture the month page to a PNG after each refresh")

	flag.Parse()

	return cfg
}
