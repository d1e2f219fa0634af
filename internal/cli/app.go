package cli

import (
	"context"
	"fmt"
	"time"

	"consigli/internal/advisor"
	"consigli/internal/analysis"
	"consigli/internal/backend"
	"consigli/internal/cache"
	"consigli/internal/classifier"
	"consigli/internal/config"
	"consigli/internal/log"
	"consigli/internal/ports"
	"consigli/internal/services"
)

const cacheSweepInterval = 10 * time.Minute

// App is the fully wired set of services a command runs against.
type App struct {
	Backend  *backend.Backend
	Expenses *services.ExpenseService
	Analyzer *analysis.Analyzer
	Advisor  *advisor.Engine

	caches  *cache.Manager
	cleanup backend.CleanupFunc
}

// Options tweak wiring for tests and one-shot commands.
type Options struct {
	// Factory overrides the backend factory.
	Factory backend.Factory
	// Classifier overrides the HTTP classifier built from config.
	Classifier ports.Classifier
	// Now overrides the clock.
	Now func() time.Time
}

// NewApp builds the backend and every service on top of it. Call Close when
// done.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = log.Discard()
	}
	rules := advisor.DefaultRules()
	trend, category, err := cfg.Thresholds()
	if err != nil {
		return nil, err
	}
	rules.TrendThreshold, rules.CategoryThreshold = trend, category

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	factory := opts.Factory
	if factory == nil {
		factory = backend.NewFactory(logger)
	}
	res, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	app := &App{
		Backend: res.Backend,
		caches:  cache.NewManager(logger),
		cleanup: res.Cleanup,
	}

	cls := opts.Classifier
	if cls == nil {
		cls = classifier.NewClient(cfg.ClassifierURL, cfg.ClassifierTimeout)
	}
	if cfg.ClassifierCacheSize > 0 {
		lru := cache.NewLRUCache[string](cfg.ClassifierCacheSize, cfg.ClassifierCacheTTL)
		app.caches.Register(lru)
		app.caches.StartCleanup(cacheSweepInterval)
		cls = classifier.NewCached(cls, lru)
	}

	app.Expenses = services.NewExpenseService(res.Backend.Expenses, cls, res.Backend.Publisher, opts.Now, logger)
	app.Analyzer = analysis.NewAnalyzer(res.Backend.Expenses, opts.Now)
	app.Advisor = advisor.NewEngine(app.Analyzer, res.Backend.Advice, res.Backend.Publisher, rules, logger)

	logger.DebugContext(ctx, "Application wired",
		"backend", backendCfg.Type,
		"events", res.Backend.Publisher != nil,
		"classifier_cache", cfg.ClassifierCacheSize)
	return app, nil
}

// Close stops background cache sweeps and releases the backend.
func (a *App) Close() error {
	a.caches.Stop()
	if a.cleanup == nil {
		return nil
	}
	if err := a.cleanup(); err != nil {
		return fmt.Errorf("backend cleanup: %w", err)
	}
	return nil
}
