// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"weibo-harvest/internal/api"
	"weibo-harvest/internal/clock/system"
	"weibo-harvest/internal/config"
	"weibo-harvest/internal/fetch"
	"weibo-harvest/internal/images"
	"weibo-harvest/internal/logging"
	"weibo-harvest/internal/normalize"
	"weibo-harvest/internal/pipeline"
	mongostore "weibo-harvest/internal/store/mongo"
)

// App holds the shared, long-lived services for the harvester. It is
// initialized once at startup and passed to the commands that need it.
type App struct {
	cfg         config.Config
	logger      *zap.Logger
	browser     *fetch.Browser
	store       *mongostore.Store
	coordinator *pipeline.Coordinator
	deadLetters *pipeline.DeadLetterSink
	opsServer   *http.Server
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Coordinator returns the pipeline coordinator.
func (a *App) Coordinator() *pipeline.Coordinator {
	return a.coordinator
}

// New creates and initializes an App from configuration. It fails fast
// when a critical service cannot be initialized; a missing browser
// session state is degraded-but-running, not fatal.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.Info("initializing harvester services")

	state, err := fetch.LoadStorageState(cfg.Browser.StorageStatePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load session state: %w", err)
		}
		logger.Warn("session state file missing, fetching unauthenticated",
			zap.String("path", cfg.Browser.StorageStatePath),
		)
		state = nil
	}

	browser, err := fetch.New(fetch.Config{
		UserAgent:         cfg.Browser.UserAgent,
		Locale:            cfg.Browser.Locale,
		TimezoneID:        cfg.Browser.Timezone,
		Referer:           cfg.Browser.Referer,
		NavigationTimeout: cfg.Browser.NavTimeout(),
		SettleDelay:       cfg.Browser.SettleDelay(),
		ScrollBottomDelay: cfg.Browser.ScrollBottomDelay(),
		ScrollTopDelay:    cfg.Browser.ScrollTopDelay(),
		LoginURLPatterns:  cfg.Browser.LoginURLPatterns,
	}, state, logger)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	store, err := mongostore.New(ctx, mongostore.Config{
		URI:        cfg.Mongo.URI,
		Database:   cfg.Mongo.Database,
		Collection: cfg.Mongo.Collection,
	}, logger)
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("connect document store: %w", err)
	}

	stopwords := normalize.DefaultStopwords
	if cfg.Source.StopwordsPath != "" {
		stopwords, err = normalize.LoadStopwords(cfg.Source.StopwordsPath)
		if err != nil {
			closePartial(ctx, browser, store)
			return nil, fmt.Errorf("load stopwords: %w", err)
		}
	}
	tokenizer, err := normalize.NewTokenizer(stopwords)
	if err != nil {
		closePartial(ctx, browser, store)
		return nil, fmt.Errorf("init tokenizer: %w", err)
	}

	clk := system.New()
	stage := normalize.NewStage(tokenizer, normalize.NewDateParser(clk, logger), logger)

	// Image mirroring is optional; a nil fetcher leaves records with
	// source URLs only.
	var imageStore pipeline.ImageFetcher
	if cfg.Images.Enabled {
		s, err := images.New(images.Config{Dir: cfg.Images.Dir}, logger)
		if err != nil {
			closePartial(ctx, browser, store)
			return nil, fmt.Errorf("init image store: %w", err)
		}
		imageStore = s
	}

	deadLetters, err := pipeline.NewDeadLetterSink(cfg.Pipeline.DeadLetterPath, logger)
	if err != nil {
		closePartial(ctx, browser, store)
		return nil, fmt.Errorf("open dead-letter sink: %w", err)
	}

	throttle := pipeline.NewThrottle(pipeline.ThrottleConfig{
		MinDelay:          cfg.Throttle.MinDelay(),
		StartDelay:        cfg.Throttle.StartDelay(),
		MaxDelay:          cfg.Throttle.MaxDelay(),
		TargetConcurrency: cfg.Throttle.TargetConcurrency,
	}, logger)

	coordinator := pipeline.New(
		browser,
		store,
		stage,
		clk,
		throttle,
		deadLetters,
		imageStore,
		pipeline.Config{MaxInFlight: cfg.Pipeline.MaxInFlight},
		logger,
	)

	a := &App{
		cfg:         cfg,
		logger:      logger,
		browser:     browser,
		store:       store,
		coordinator: coordinator,
		deadLetters: deadLetters,
	}
	a.startOpsServer()

	logger.Info("harvester services initialized")
	return a, nil
}

type browserCloser interface {
	Close()
}

type storeCloser interface {
	Close(ctx context.Context) error
}

// closePartial unwinds the services already started when a later
// initialization step fails, so an aborted New leaks neither the Chrome
// process nor the Mongo connection pool.
func closePartial(ctx context.Context, b browserCloser, s storeCloser) {
	b.Close()
	if s != nil {
		_ = s.Close(ctx)
	}
}

// startOpsServer serves health probes and Prometheus metrics in the
// background for the lifetime of the App.
func (a *App) startOpsServer() {
	srv := api.NewServer(a.logger, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return a.store.Ping(ctx) == nil
	})
	a.opsServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("ops server listening", zap.Int("port", a.cfg.Server.Port))
		if err := a.opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("ops server failed", zap.Error(err))
		}
	}()
}

// Close gracefully shuts down all services in the App container. It is
// called by a Cobra hook after the command finishes execution.
func (a *App) Close() {
	a.logger.Info("shutting down harvester services")
	if a.opsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.opsServer.Shutdown(ctx); err != nil {
			a.logger.Warn("ops server shutdown", zap.Error(err))
		}
	}
	a.browser.Close()
	if err := a.deadLetters.Close(); err != nil {
		a.logger.Warn("closing dead-letter sink", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.Close(ctx); err != nil {
		a.logger.Warn("closing document store", zap.Error(err))
	}
	_ = a.logger.Sync()
}
