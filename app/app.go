package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"flashsell-engine/cache"
	"flashsell-engine/config"
	"flashsell-engine/database"
	"flashsell-engine/database/analytics"
	"flashsell-engine/database/hotproducts"
	"flashsell-engine/logging"
	"flashsell-engine/market"
	"flashsell-engine/metrics"
	"flashsell-engine/notifications"
	"flashsell-engine/products"
	"flashsell-engine/ranking"
)

// Store backends selectable with STORE_BACKEND
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// App represents the main application
type App struct {
	config *config.Config

	db     *database.Database // gorm, analyses and rankings; nil for the memory backend
	source *database.DB       // lib/pq, product statistics
	redis  *cache.RedisClient

	marketEngine *market.Engine
	marketCache  *market.Cache
	history      *ranking.History
	rankEngine   *ranking.Engine
	sweeper      *CoverageSweeper

	metricsServer *http.Server
	workers       sync.WaitGroup
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	return &App{
		config: cfg,
		db:     nil, // Will be initialized in Start()
		redis:  nil, // Will be initialized in Start()
	}
}

// MarketCache serves on-demand market analyses
func (a *App) MarketCache() *market.Cache { return a.marketCache }

// Ranking serves category rankings and homepage recommendations
func (a *App) Ranking() *ranking.Engine { return a.rankEngine }

// History serves retained hot product history
func (a *App) History() *ranking.History { return a.history }

// Sweeper runs the daily category sweep
func (a *App) Sweeper() *CoverageSweeper { return a.sweeper }

// Start wires every component, runs the background workers and blocks until
// SIGINT or SIGTERM.
func (a *App) Start() error {
	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.init(); err != nil {
		a.closeConnections()
		return err
	}

	if a.config.Scheduler.Enabled {
		a.workers.Add(1)
		go func() {
			defer a.workers.Done()
			a.sweeper.Start(ctx)
		}()
	} else {
		logging.Info().Msg("hot product sweep scheduler disabled")
	}

	a.startMetricsServer()

	logging.Info().Str("backend", a.config.StoreBackend).Msg("flashsell engine running")

	return a.gracefulShutdown(cancel)
}

// init connects the backing services and builds the engines
func (a *App) init() error {
	// 1. Product statistics source
	dbCfg := database.Config{
		Host:     a.config.DatabaseHost,
		Port:     a.config.DatabasePort,
		User:     a.config.DatabaseUser,
		Password: a.config.DatabasePassword,
		DBName:   a.config.DatabaseName,
	}

	conn, err := database.NewConnection(dbCfg)
	if err != nil {
		return fmt.Errorf("product source connection failed: %w", err)
	}
	a.source = conn

	src := products.NewResilientSource(products.NewSQLSource(conn), products.ResilientConfig{
		QueryTimeout:     a.config.Source.QueryTimeout,
		FailureThreshold: a.config.Source.BreakerFailures,
		OpenTimeout:      a.config.Source.BreakerOpenFor,
		RatePerSecond:    a.config.Source.RateLimitPerSec,
		Burst:            a.config.Source.RateLimitBurst,
	})

	// 2. Analysis and ranking stores
	var (
		analysisStore market.Store
		historyStore  ranking.HistoryStore
	)
	switch a.config.StoreBackend {
	case BackendPostgres:
		db, err := database.Connect(dbCfg)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		a.db = db
		if err := db.InitSchema(); err != nil {
			return fmt.Errorf("schema initialization failed: %w", err)
		}
		analysisStore = analytics.NewRepository(db.DB())
		historyStore = hotproducts.NewRepository(db.DB())
	case BackendMemory:
		logging.Warn().Msg("using in-memory stores, analyses and rankings are lost on restart")
		analysisStore = market.NewMemoryStore()
		historyStore = ranking.NewMemoryStore()
	default:
		return database.NewValidationErrorWithValue("STORE_BACKEND", "must be postgres or memory", a.config.StoreBackend)
	}

	// 3. Redis look-aside caches (optional)
	if a.config.RedisEnabled {
		a.redis = cache.NewRedisClient(a.config.RedisHost, a.config.RedisPort, a.config.RedisPassword)
		if a.redis == nil {
			logging.Warn().Msg("redis connection failed, caching disabled")
		}
	}

	// Every "today" follows the scheduler's calendar
	loc := a.config.Location()
	clock := zonedClock(time.Now, loc)

	// 4. Market analysis
	a.marketEngine = market.NewEngine(src, analysisStore).WithClock(clock)
	marketOpts := []market.CacheOption{
		market.WithMinProductCount(a.config.Market.MinProductCount),
		market.WithServeStale(a.config.Market.ServeStale),
	}
	if a.redis != nil {
		marketOpts = append(marketOpts, market.WithLookaside(cache.NewAnalysisCache(a.redis).WithClock(clock)))
	}
	a.marketCache = market.NewCache(a.marketEngine, marketOpts...)

	// 5. Hot product ranking
	a.history = ranking.NewHistory(historyStore).WithClock(clock)
	a.rankEngine = ranking.NewEngine(src, a.history, a.config.Scheduler.TopN)

	a.sweeper = NewCoverageSweeper(a.rankEngine, a.history, a.config.Scheduler, loc).
		WithClock(clock).
		WithAlerter(notifications.NewWebhookNotifier(a.config.Alert))
	if a.redis != nil {
		hot := cache.NewHotProductCache(a.redis)
		a.rankEngine.WithCache(hot)
		a.sweeper.WithPublisher(hot)
	}

	return nil
}

// zonedClock reads now in loc, so day boundaries fall at loc's midnight
func zonedClock(now func() time.Time, loc *time.Location) func() time.Time {
	return func() time.Time { return now().In(loc) }
}

func (a *App) startMetricsServer() {
	if a.config.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	a.metricsServer = &http.Server{
		Addr:              a.config.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logging.Info().Str("addr", a.config.MetricsAddr).Msg("metrics server listening")
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// gracefulShutdown handles graceful shutdown with timeout
func (a *App) gracefulShutdown(cancel context.CancelFunc) error {
	// Setup signal handling
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	// Wait for interrupt signal
	sig := <-interrupt
	logging.Info().Str("signal", sig.String()).Msg("shutdown signal received, initiating graceful shutdown")

	// Cancel context to stop all goroutines
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown tasks with timeout
	shutdownComplete := make(chan struct{})
	go func() {
		if a.sweeper != nil {
			a.sweeper.Stop()
		}
		// An in-flight sweep observes the cancelled context and returns
		a.workers.Wait()

		if a.metricsServer != nil {
			if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
				logging.Error().Err(err).Msg("error stopping metrics server")
			}
		}

		a.closeConnections()
		close(shutdownComplete)
	}()

	// Wait for shutdown to complete or timeout
	select {
	case <-shutdownComplete:
		logging.Info().Msg("graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		logging.Warn().Msg("shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}

func (a *App) closeConnections() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing database")
		} else {
			logging.Info().Msg("database connection closed")
		}
	}

	if a.source != nil {
		if err := a.source.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing product source")
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing redis")
		} else {
			logging.Info().Msg("redis connection closed")
		}
	}
}
