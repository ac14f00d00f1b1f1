package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"cofipei/internal/backend"
	"cofipei/internal/cache"
	"cofipei/internal/charts"
	"cofipei/internal/config"
	"cofipei/internal/grpcserver"
	apphttp "cofipei/internal/http"
	"cofipei/internal/log"
	"cofipei/internal/services"
)

// App holds every long-lived component built from a Config.
type App struct {
	cfg     *config.Config
	logger  *log.Logger
	caches  *cache.Manager
	backend *backend.Result
	images  *cache.LRUCache[[]byte]

	Charts *services.ChartService
	HTTP   *apphttp.Server
	GRPC   *grpcserver.Server
}

// NewApp wires the chart service and its optional dependencies. Call Close
// when done.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	deps, err := backend.NewFactory(logger).Create(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize backend: %w", err)
	}

	app := &App{
		cfg:     cfg,
		logger:  logger.WithComponent(log.ComponentApp),
		caches:  cache.NewManager(logger),
		backend: deps,
	}

	opts := services.Options{
		StrictTypes: cfg.StrictTypes,
		Reports:     deps.Reports,
		Events:      deps.Events,
		Logger:      logger,
	}
	if cfg.ChartCacheSize > 0 {
		app.images = cache.NewLRUCache[[]byte](cfg.ChartCacheSize, cfg.ChartCacheTTL)
		app.caches.Register(app.images)
		opts.Images = app.images
	}

	renderer := charts.NewGoChart(charts.Config{
		PanelWidth:  cfg.ChartWidth,
		PanelHeight: cfg.ChartHeight,
		Concurrency: cfg.RenderConcurrency,
		Logger:      logger,
	})
	app.Charts = services.NewChartService(renderer, opts)

	return app, nil
}

// Close releases the backend and stops cache sweeping.
func (a *App) Close() error {
	a.caches.Stop()
	return a.backend.Close()
}

func (a *App) httpOptions() apphttp.Options {
	opts := apphttp.Options{
		Addr:               a.cfg.Addr(),
		ReadTimeout:        a.cfg.ReadTimeout,
		WriteTimeout:       a.cfg.WriteTimeout,
		IdleTimeout:        a.cfg.IdleTimeout,
		MaxBodyBytes:       a.cfg.MaxBodyBytes,
		RateLimitPerMinute: a.cfg.RateLimitPerMinute,
		ReadyChecks:        map[string]apphttp.ReadyCheck{},
		Logger:             a.logger,
	}
	if a.images != nil {
		opts.ImageCache = a.images
	}
	if reports := a.backend.Reports; reports != nil {
		opts.Reports = reports
		opts.ReadyChecks["report_log"] = reports.Ping
	}
	if events := a.backend.Events; events != nil {
		opts.ReadyChecks["event_publisher"] = events.Ping
	}
	return opts
}

// Serve runs the HTTP server, and the gRPC health server when configured,
// until ctx is cancelled or a server fails. Shutdown is bounded by the
// configured shutdown timeout.
func (a *App) Serve(ctx context.Context) error {
	a.HTTP = apphttp.NewServer(a.Charts, a.httpOptions())
	if a.cfg.GRPCHealthAddr != "" {
		a.GRPC = grpcserver.New(a.cfg.GRPCHealthAddr, a.logger)
	}

	if a.images != nil {
		a.caches.StartCleanup(ctx, a.cfg.ChartCacheTTL)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting HTTP server", "addr", a.HTTP.Addr)
		if err := a.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.GRPC != nil {
		g.Go(func() error {
			a.GRPC.SetServing(true)
			if err := a.GRPC.Start(); err != nil {
				return fmt.Errorf("grpc health server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		if a.GRPC != nil {
			a.GRPC.SetServing(false)
		}
		err := a.HTTP.Shutdown(shutdownCtx)
		if a.GRPC != nil {
			a.GRPC.Stop()
		}
		a.logger.Info("Chart service stopped", "metrics", a.Charts.Metrics().String())
		return err
	})

	return g.Wait()
}
