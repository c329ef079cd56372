// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/radrebel/fedscout/internal/api"
	"github.com/radrebel/fedscout/internal/cache"
	"github.com/radrebel/fedscout/internal/classify"
	"github.com/radrebel/fedscout/internal/connectivity"
	"github.com/radrebel/fedscout/internal/executor"
	"github.com/radrebel/fedscout/internal/export"
	"github.com/radrebel/fedscout/internal/jobindex"
	"github.com/radrebel/fedscout/internal/mcpserver"
	"github.com/radrebel/fedscout/internal/notifier"
	"github.com/radrebel/fedscout/internal/opstate"
	"github.com/radrebel/fedscout/internal/reload"
	"github.com/radrebel/fedscout/internal/sse"
	"github.com/radrebel/fedscout/internal/store"
	"github.com/radrebel/fedscout/internal/syncer"
	"github.com/radrebel/fedscout/internal/usajobs"
	pkgconfig "github.com/radrebel/fedscout/pkg/config"
)

// brokerSink forwards scheduled notification intents to the SSE broker in
// addition to the real sink, so connected clients see alerts live.
type brokerSink struct {
	inner  notifier.Sink
	broker *sse.Broker
}

func (s brokerSink) Schedule(intent notifier.Intent) error {
	s.broker.PublishAlert(intent)
	return s.inner.Schedule(intent)
}

func (s brokerSink) Cancel(id string) error {
	return s.inner.Cancel(id)
}

// stack bundles the shared service wiring so Run and RunMCP build it the
// same way. Close tears the owned resources down in reverse open order.
type stack struct {
	svc    *api.Service
	cache  *cache.Cache
	store  *store.DB
	index  *jobindex.DB
	notif  *notifier.Notifier
	states *opstate.Store
}

func (s *stack) Close() {
	s.index.Close()
	s.cache.Close()
	s.store.Close()
}

// buildStack wires the shared service stack: databases, executor, syncer,
// notifier, job index and export store. The caller owns Close.
func buildStack(cfg *Config, logger *slog.Logger, client usajobs.Client, sink notifier.Sink, net syncer.Connectivity) (*stack, error) {
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	c, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}

	// The job index shares the cache database file but keeps its own
	// connection; WAL plus busy_timeout makes that safe.
	idx, err := jobindex.Open(cfg.Cache.Path)
	if err != nil {
		c.Close()
		db.Close()
		return nil, fmt.Errorf("open job index: %w", err)
	}

	exports, err := export.NewStore(cfg.Export.Path)
	if err != nil {
		idx.Close()
		c.Close()
		db.Close()
		return nil, fmt.Errorf("open export store: %w", err)
	}

	states := opstate.NewStore(opstate.DefaultRevertDelay)
	exec := executor.New(states, classify.DefaultPolicy(), logger)
	sync := syncer.New(c, exec, net, logger)
	n := notifier.New(db, client, exec, sink, logger)

	svc := api.NewService(api.Deps{
		Sync:     sync,
		Cache:    c,
		Store:    db,
		Client:   client,
		Exec:     exec,
		Notifier: n,
		Index:    idx,
		Exports:  exports,
	}, cfg.Cache.SearchMaxAge, cfg.Cache.DetailMaxAge)

	return &stack{svc: svc, cache: c, store: db, index: idx, notif: n, states: states}, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger. The level lives in a LevelVar so
	// config reloads can adjust it at runtime.
	logLevel := new(slog.LevelVar)
	logLevel.Set(cfg.App.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("cache_path", cfg.Cache.Path),
		slog.String("store_path", cfg.Store.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	client := app.client
	if client == nil {
		client = usajobs.NewHTTPClient(cfg.USAJobs.BaseURL, cfg.USAJobs.APIKey, cfg.USAJobs.UserAgent, cfg.USAJobs.Timeout)
	}

	// Connectivity monitor drives the offline-first decisions.
	monitor := connectivity.NewMonitor(
		connectivity.DialProbe(cfg.Connectivity.ProbeAddr, 5*time.Second),
		cfg.Connectivity.Interval,
		logger,
	)

	sink := app.sink
	if sink == nil {
		sink = &notifier.LogSink{Logger: logger}
	}

	stk, err := buildStack(cfg, logger, client, sink, monitor)
	if err != nil {
		return err
	}
	defer stk.Close()

	// SSE broker summarizes operation state for connected clients.
	broker := sse.NewBroker(stk.states.Summary, 2*time.Second)
	defer broker.Close()

	// Re-wire the notifier sink so alerts also reach SSE clients.
	stk.notif.SetSink(brokerSink{inner: sink, broker: broker})

	sched := notifier.NewScheduler(stk.notif, cfg.Alerts.CheckInterval, logger)

	// Forward slot transitions to SSE clients.
	stk.states.Subscribe(func(slot opstate.Slot, st opstate.State) {
		errKind := ""
		if st.Err != nil {
			errKind = st.Err.Kind.String()
		}
		broker.PublishOperationEvent(slot.String(), st.Phase.String(), errKind)
	})

	// On reconnect, kick an alert check right away.
	monitor.OnChange(func(online bool) {
		broker.PublishConnectivity(online)
		if online {
			sched.Kick()
		}
	})

	apiRouter := api.NewRouter(stk.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Connectivity probing.
	g.Go(func() error {
		return monitor.Run(gCtx)
	})

	// Background alert checks.
	g.Go(func() error {
		return sched.Run(gCtx)
	})

	// Periodic cache and job index sweep.
	g.Go(func() error {
		interval := cfg.Cache.SweepInterval
		if interval <= 0 {
			interval = time.Hour
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				if err := stk.cache.ClearExpired(cfg.Cache.Retention); err != nil {
					logger.Warn("cache sweep failed", slog.String("error", err.Error()))
				}
				if n, err := stk.index.Prune(time.Now().Add(-cfg.Cache.Retention)); err != nil {
					logger.Warn("job index prune failed", slog.String("error", err.Error()))
				} else if n > 0 {
					logger.Debug("job index pruned", slog.Int64("removed", n))
				}
			}
		}
	})

	// Config hot reload for runtime-adjustable settings.
	if app.configPath != "" {
		configPath := app.configPath
		g.Go(func() error {
			return reload.Watch(gCtx, configPath, logger, func() error {
				fresh := NewDefaultConfig()
				if err := pkgconfig.Load(configPath, fresh); err != nil {
					return err
				}
				logLevel.Set(fresh.App.LogLevel)
				sched.SetInterval(fresh.Alerts.CheckInterval)
				return nil
			})
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP stdio server with the same service stack but no
// HTTP surface. Connectivity starts optimistic and is probed once.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// MCP uses stdout for the protocol; log to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	client := app.client
	if client == nil {
		client = usajobs.NewHTTPClient(cfg.USAJobs.BaseURL, cfg.USAJobs.APIKey, cfg.USAJobs.UserAgent, cfg.USAJobs.Timeout)
	}

	monitor := connectivity.NewMonitor(
		connectivity.DialProbe(cfg.Connectivity.ProbeAddr, 5*time.Second),
		cfg.Connectivity.Interval,
		logger,
	)

	sink := app.sink
	if sink == nil {
		sink = &notifier.LogSink{Logger: logger}
	}

	stk, err := buildStack(cfg, logger, client, sink, monitor)
	if err != nil {
		return err
	}
	defer stk.Close()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return monitor.Run(gCtx)
	})
	g.Go(func() error {
		return mcpserver.New(stk.svc).ServeStdio()
	})

	return g.Wait()
}
