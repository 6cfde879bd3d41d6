package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"nigrani/internal/config"
	"nigrani/internal/controllers"
	"nigrani/internal/middleware"
	"nigrani/internal/repository"
	"nigrani/internal/routes"
	"nigrani/internal/services"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the collector and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// server holds every long-lived component of a running instance.
type server struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *repository.SnapshotRepository
	recorder  *services.SampleRecorder
	cache     *services.SnapshotCache
	collector *services.SnapshotCollector
	router    *services.QueryRouter
	sweeper   *services.RetentionSweeper
	scheduler *services.Scheduler
	hub       *services.WebSocketHub
	tokens    *services.TokenService
	engine    *gin.Engine
}

// newServer wires the services around an open store. The scheduler is
// registered but not started.
func newServer(c *config.Config, log *zap.Logger, store *repository.SnapshotRepository, clk clock.WithTicker) (*server, error) {
	loc, err := c.TimeLocation()
	if err != nil {
		return nil, err
	}

	tokens, err := services.NewTokenService(c.Auth.Secret, c.Auth.SecretFile, c.Auth.TokenExpiry, log.Named("auth"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	if clk == nil {
		clk = clock.RealClock{}
	}

	recorder := services.NewSampleRecorder(services.RecorderConfig{
		MaxSamples:    c.Recorder.MaxSamples,
		Window:        c.Recorder.Window,
		PruneInterval: c.Recorder.PruneInterval,
		SlowThreshold: c.Recorder.SlowThreshold,
		ErrorWindow:   c.Recorder.ErrorWindow,
	}, clk)
	cache := services.NewSnapshotCache(c.Cache.Capacity)
	runtimeStats := services.NewRuntimeStats(c.Probe.DiskPath, clk)
	activity := services.NewActivityTracker(clk)

	builder := services.NewSnapshotBuilder(services.BuilderDeps{
		Recorder: recorder,
		Process:  runtimeStats,
		Disk:     runtimeStats,
		Storage:  services.NewStoreHealthProbe(store, c.Probe.Timeout, clk),
		Users:    activity,
		Host:     services.ReadHostInfo(),
	}, loc, c.ActiveUserWindow, clk, log.Named("builder"))

	collector := services.NewSnapshotCollector(builder, cache, store, services.CollectorConfig{
		Interval:        c.Collector.Interval,
		WarmupInterval:  c.Collector.WarmupInterval,
		WarmupThreshold: c.Collector.WarmupThreshold,
		PersistTimeout:  c.Collector.PersistTimeout,
	}, log.Named("collector"))

	router := services.NewQueryRouter(cache, store, loc, c.Query.Timeout, clk, log.Named("router"))

	sweeper := services.NewRetentionSweeper(store, services.RetentionConfig{
		HorizonYears: c.Retention.HorizonYears,
		Interval:     c.Retention.Interval,
		Timeout:      c.Retention.Timeout,
	}, clk, log.Named("retention"))

	hub := services.NewWebSocketHub(log.Named("websocket"))
	collector.OnSnapshot(hub.PublishSnapshot)

	sched := services.NewScheduler(clk, log.Named("scheduler"))
	collector.Register(sched)
	sweeper.Register(sched)

	security := middleware.NewSecurityLogger(log.Named("security"))

	if c.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.AccessLog(log.Named("http")),
		middleware.SecurityHeadersMiddleware(),
		middleware.CORSMiddleware(c.Server.AllowedOrigins),
		middleware.IPWhitelistMiddleware(middleware.NewIPWhitelist(c.Server.AllowedIPs), security),
		middleware.RateLimitMiddleware(middleware.NewRateLimiter(c.Server.RateLimit, c.Server.RateBurst), security),
	)

	chain := []gin.HandlerFunc{middleware.RequestTiming(recorder)}
	if c.Auth.Enabled {
		chain = append(chain, middleware.BearerAuth(tokens, activity, security))
	} else {
		log.Warn("API authentication is disabled")
	}

	metricsController := controllers.NewMetricsController(builder, collector, cache, sweeper, log.Named("api"))
	historyController := controllers.NewHistoryController(router)
	wsController := controllers.NewWebSocketController(hub, tokens, security, c.Server.AllowedOrigins, log.Named("websocket"))

	routes.RegisterMetricsRoutes(engine, metricsController, historyController, chain...)
	routes.RegisterAuthRoutes(engine, middleware.RateLimitMiddleware(middleware.NewConnectRateLimiter(), security), wsController)
	routes.RegisterTelemetryRoutes(engine)

	return &server{
		cfg:       c,
		logger:    log,
		store:     store,
		recorder:  recorder,
		cache:     cache,
		collector: collector,
		router:    router,
		sweeper:   sweeper,
		scheduler: sched,
		hub:       hub,
		tokens:    tokens,
		engine:    engine,
	}, nil
}

// start takes the first snapshot and then starts the schedules, so the
// cache is never empty once serving.
func (s *server) start(ctx context.Context) {
	s.collector.CollectNow(ctx)
	s.scheduler.Start(ctx)
}

// shutdown stops background work and waits for in-flight writes. The
// store is left open for the caller to close.
func (s *server) shutdown() {
	s.scheduler.Stop()
	s.collector.Wait()
	s.hub.Stop()
}

func runServe(ctx context.Context, c *config.Config, log *zap.Logger) error {
	store, err := openStore(c, log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	srv, err := newServer(c, log, store, clock.RealClock{})
	if err != nil {
		return err
	}
	defer srv.shutdown()

	srv.start(ctx)

	httpServer := &http.Server{
		Addr:    c.Server.Addr,
		Handler: srv.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening",
			zap.String("addr", c.Server.Addr),
			zap.Bool("auth", c.Auth.Enabled),
			zap.String("database", c.Database.Path),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
