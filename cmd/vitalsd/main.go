package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/vitalsd/internal/analytics"
	"codeberg.org/mutker/vitalsd/internal/api"
	"codeberg.org/mutker/vitalsd/internal/config"
	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/logger"
	"codeberg.org/mutker/vitalsd/internal/metrics"
	"codeberg.org/mutker/vitalsd/internal/pid"
	"codeberg.org/mutker/vitalsd/internal/publish"
	"codeberg.org/mutker/vitalsd/internal/scheduler"
	"codeberg.org/mutker/vitalsd/internal/simulation"
	"codeberg.org/mutker/vitalsd/internal/store"
	"golang.org/x/sync/errgroup"
	_ "time/tzdata"
)

const readHeaderTimeout = 10 * time.Second

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load(os.Args[1:])
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LoggerOptions()); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug().Msg("Config loaded")
}

func main() {
	if cfg.Simulation.Enabled {
		if err := pid.Write(cfg.PIDFile); err != nil {
			logger.Fatal().Err(err).Str("pid_file", cfg.PIDFile).Msg("failed to acquire pid file")
		}
		defer func() {
			if err := pid.Remove(cfg.PIDFile); err != nil {
				logger.Error().Err(err).Msg("failed to remove pid file")
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx); err != nil {
		logger.Error().Err(err).Str("error_code", string(errors.CodeOf(err))).Msg("error in main loop")
	}
	logger.Info().Msg("Exiting...")
}

func run(ctx context.Context) error {
	log := logger.Default()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.StoreConfig(), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close store")
		}
	}()

	pub, err := publish.New(ctx, cfg.PublishConfig(), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close publisher")
		}
	}()

	collector := metrics.New(metrics.Config{Enabled: cfg.Metrics.Enabled})

	engine := analytics.NewEngine(st,
		analytics.WithLocation(loc),
		analytics.WithLogger(log),
	)
	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: api.NewServer(api.Options{
			Engine:    engine,
			Readings:  st,
			Users:     st,
			Health:    st,
			Publisher: pub,
			Metrics:   collector,
			Logger:    log,
		}).Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.New().Wrap(errors.ErrInitFailed, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.New().Wrap(errors.ErrShutdownFailed, err)
		}
		return nil
	})

	if cfg.Simulation.Enabled {
		runner := simulation.NewRunner(st, st, st, simulation.RunnerOptions{
			Workers:   cfg.Simulation.Workers,
			Location:  loc,
			Publisher: pub,
			Logger:    log,
		})
		sched, err := scheduler.New(runner, scheduler.Options{
			Entries:    cfg.Schedule(),
			Selector:   simulation.ByRole(cfg.Simulation.Role),
			RunOnStart: cfg.Simulation.RunOnStart,
			Metrics:    collector,
			Logger:     log,
		})
		if err != nil {
			return err
		}
		g.Go(func() error {
			sched.Start(gctx)
			return nil
		})
	} else {
		logger.Info().Msg("Simulation disabled, serving queries only")
	}

	return g.Wait()
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
