package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"beacon/internal/bus"
	"beacon/internal/client"
	"beacon/internal/config"
	"beacon/internal/constants"
	"beacon/internal/logger"
	"beacon/internal/resolver"
	"beacon/pkg/circuitbreaker"
	"beacon/pkg/health"
	"beacon/pkg/metrics"
)

type App struct {
	cfg    *config.Config
	logger logger.Logger
	redis  *redis.Client
	client *client.Client
	server *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetComponent("beacon-agent")
	}
	return &App{
		cfg:    cfg,
		logger: log,
	}
}

func (a *App) Initialize(ctx context.Context) error {
	metrics.RegisterClientMetrics()

	if a.cfg.Bus.Type == constants.BusTypeRedis {
		if err := a.initRedis(ctx); err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
	}

	b, err := bus.New(a.cfg.Bus, a.redis, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize bus: %w", err)
	}

	res := a.initResolver()
	a.client = client.New(a.cfg, b, res, a.logger)

	if err := a.initHTTPServer(); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	return nil
}

func (a *App) initRedis(ctx context.Context) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", a.cfg.Bus.Redis.Host, a.cfg.Bus.Redis.Port),
		Password: a.cfg.Bus.Redis.Password,
		DB:       a.cfg.Bus.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, constants.DefaultHTTPTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	a.redis = rdb
	return nil
}

func (a *App) initResolver() *resolver.Resolver {
	fetcher := resolver.NewHTTPFetcher(
		a.cfg.Resolver.SlugMapURL,
		&http.Client{Timeout: a.cfg.Resolver.Timeout},
	)

	opts := []resolver.Option{
		resolver.WithMinRefreshInterval(a.cfg.Resolver.MinRefreshInterval),
	}
	if a.cfg.CircuitBreaker.Enabled {
		opts = append(opts, resolver.WithBreaker(circuitbreaker.NewWrapper(a.breakerConfig())))
		a.logger.InfowCtx(context.Background(), "Circuit breaker enabled for slug map fetch")
	}

	return resolver.New(fetcher, a.logger, opts...)
}

func (a *App) breakerConfig() circuitbreaker.Config {
	cbCfg := circuitbreaker.DefaultConfig("slug-map")
	if a.cfg.CircuitBreaker.MaxRequests > 0 {
		cbCfg.MaxRequests = a.cfg.CircuitBreaker.MaxRequests
	}
	if a.cfg.CircuitBreaker.Interval > 0 {
		cbCfg.Interval = a.cfg.CircuitBreaker.Interval
	}
	if a.cfg.CircuitBreaker.Timeout > 0 {
		cbCfg.Timeout = a.cfg.CircuitBreaker.Timeout
	}
	if a.cfg.CircuitBreaker.FailureRatio > 0 && a.cfg.CircuitBreaker.MinRequests > 0 {
		ratio := a.cfg.CircuitBreaker.FailureRatio
		minRequests := a.cfg.CircuitBreaker.MinRequests
		cbCfg.ReadyToTrip = func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= ratio
		}
	}
	return cbCfg
}

func (a *App) initHTTPServer() error {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	if a.redis != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redis))
	}
	healthRegistry.Register(health.NewProbeChecker("stream", func(ctx context.Context) error {
		if !a.client.Connected() {
			return fmt.Errorf("delivery channel is not connected")
		}
		return nil
	}))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthRegistry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(h)
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler: mux,
	}

	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			a.logger.InfowCtx(ctx, "HTTP server starting", "port", a.cfg.Server.Port)
			if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			return a.server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		return a.client.Run(gCtx)
	})

	// Drain the UI signal feed; in a headless agent the toast side effect
	// is a structured log line.
	g.Go(func() error {
		for {
			select {
			case sig := <-a.client.Signals():
				a.logger.InfowCtx(gCtx, "New notification",
					"notification_id", sig.ID,
					"unread", a.client.Unread(),
				)
			case <-gCtx.Done():
				return gCtx.Err()
			}
		}
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfowCtx(ctx, "Shutting down notification agent")

	var errs []error

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}
