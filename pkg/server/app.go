package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	domrepo "TradeGate/internal/domain/repository"
	icache "TradeGate/internal/service/cache"
	pkgch "TradeGate/pkg/clickhouse"
	"TradeGate/pkg/config"
	xhttp "TradeGate/pkg/http"
	applogger "TradeGate/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	handler    xhttp.Handler
	httpServer *xhttp.Server
	chClient   *pkgch.Client
	publisher  domrepo.OutcomePublisher
	vcache     *icache.ValidationCache
	cron       *cron.Cron
	l          *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	handler xhttp.Handler,
	chClient *pkgch.Client,
	publisher domrepo.OutcomePublisher,
	vcache *icache.ValidationCache,
	l *applogger.Logger,
) *App {
	return &App{
		cfg:       cfg,
		handler:   handler,
		chClient:  chClient,
		publisher: publisher,
		vcache:    vcache,
		l:         l,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)

	// Scheduled validation cache rotation. The cache also rotates lazily on
	// access; the cron run bounds memory on idle days.
	if a.vcache != nil {
		a.cron = cron.New()
		if _, err := a.cron.AddFunc(a.cfg.Pipeline.CacheRotationSchedule, func() {
			hits, misses := a.vcache.Stats()
			a.vcache.Rotate(time.Now().UTC())
			a.l.Info("validation cache rotated",
				applogger.Uint64("hits", hits),
				applogger.Uint64("misses", misses))
		}); err != nil {
			a.l.Error("cache rotation schedule invalid", applogger.Error(err))
			return err
		}
		a.cron.Start()
		a.l.Info("cache rotation scheduled",
			applogger.String("schedule", a.cfg.Pipeline.CacheRotationSchedule))
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.cron != nil {
		a.cron.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.l.Warn("publisher close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
