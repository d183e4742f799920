package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"arbscreen/internal/api/rest"
	"arbscreen/internal/arbitrage"
	"arbscreen/internal/cache/redis"
	"arbscreen/internal/config"
	"arbscreen/internal/exchange/common"
	"arbscreen/internal/exchange/replay"
	"arbscreen/internal/infra/health"
	"arbscreen/internal/infra/http/middleware"
	"arbscreen/internal/infra/log"
	"arbscreen/internal/infra/metrics"
	"arbscreen/internal/infra/version"
	"arbscreen/internal/report"
)

func main() {
	once := flag.Bool("once", false, "run a single scan and exit")
	replayPath := flag.String("replay", "", "scan a recorded CSV tape instead of live exchanges")
	flag.Parse()

	cfg, err := config.Load()
	logger := log.NewLogger(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("config rejected")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scanner, err := arbitrage.NewScanner(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("scanner setup failed")
	}

	var (
		sources []common.SnapshotSource
		tape    *replay.Tape
	)
	if *replayPath != "" {
		tape, err = replay.Open(*replayPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *replayPath).Msg("replay tape unreadable")
		}
		sources = tape.Sources()
	} else {
		sources = liveSources(cfg)
	}

	eng := arbitrage.NewEngine(cfg, scanner, sources, logger)
	if cfg.Output.Dir != "" {
		eng.AddSink(report.FileExporter{Dir: cfg.Output.Dir})
	}
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			logger.Fatal().Err(err).Msg("redis unavailable")
		}
		defer func() { _ = rc.Close() }()
		eng.AddSink(redis.NewPublisher(rc, cfg.Redis.Prefix, time.Duration(cfg.Redis.TTLSeconds)*time.Second))
	}

	if *once || tape != nil {
		if err := runBatch(ctx, eng, tape, *once); err != nil {
			logger.Fatal().Err(err).Msg("scan failed")
		}
		return
	}

	registry := metrics.Init(logger)
	state := health.NewState(3 * cfg.Interval())
	eng.WithHealth(state)
	server, err := adminServer(cfg, logger, metrics.Handler(registry), state, eng)
	if err != nil {
		logger.Fatal().Err(err).Msg("admin server setup failed")
	}

	logger.Info().Str("version", version.Version).Strs("exchanges", cfg.Exchanges.Enabled).Str("addr", cfg.Server.Addr).Msg("arbscreen started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx) })
	if cfg.Server.Enabled {
		g.Go(func() error {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("worker error")
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}

// runBatch scans once, or every frame of a replay tape in time order.
func runBatch(ctx context.Context, eng *arbitrage.Engine, tape *replay.Tape, once bool) error {
	if tape == nil || once {
		_, err := eng.RunOnce(ctx)
		return err
	}
	for _, ts := range tape.Times() {
		tape.Seek(ts)
		if _, err := eng.RunOnce(ctx); err != nil {
			return err
		}
	}
	return nil
}

func adminServer(cfg config.Config, logger log.Logger, metricsHandler http.Handler, state *health.State, eng *arbitrage.Engine) (*http.Server, error) {
	adminCIDRs, err := middleware.ParseCIDRs(cfg.Server.AdminAllowCIDRs)
	if err != nil {
		return nil, err
	}
	gate := func(h http.Handler) http.Handler { return middleware.AdminGate(adminCIDRs, h) }

	mux := http.NewServeMux()
	mux.Handle("/metrics", gate(metricsHandler))
	mux.HandleFunc("/healthz", health.Healthz)
	mux.HandleFunc("/readyz", state.Readyz)
	mux.HandleFunc("/version", version.Handler)
	mux.Handle("/", rest.New(eng).Handler())
	if cfg.Server.Pprof {
		mux.Handle("/debug/pprof/", gate(http.HandlerFunc(pprof.Index)))
		mux.Handle("/debug/pprof/cmdline", gate(http.HandlerFunc(pprof.Cmdline)))
		mux.Handle("/debug/pprof/profile", gate(http.HandlerFunc(pprof.Profile)))
		mux.Handle("/debug/pprof/symbol", gate(http.HandlerFunc(pprof.Symbol)))
		mux.Handle("/debug/pprof/trace", gate(http.HandlerFunc(pprof.Trace)))
	}

	return &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           middleware.RequestID(middleware.Logger(logger)(mux)),
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}, nil
}
