// Package app wires the engine together from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newthinker/cryptosignal/internal/alert"
	"github.com/newthinker/cryptosignal/internal/analysis"
	"github.com/newthinker/cryptosignal/internal/api"
	"github.com/newthinker/cryptosignal/internal/backtest"
	"github.com/newthinker/cryptosignal/internal/cache"
	"github.com/newthinker/cryptosignal/internal/collector"
	"github.com/newthinker/cryptosignal/internal/collector/binance"
	"github.com/newthinker/cryptosignal/internal/collector/okx"
	"github.com/newthinker/cryptosignal/internal/config"
	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/decision"
	"github.com/newthinker/cryptosignal/internal/llm/factory"
	"github.com/newthinker/cryptosignal/internal/metrics"
	"github.com/newthinker/cryptosignal/internal/monitor"
	"github.com/newthinker/cryptosignal/internal/notifier"
	"github.com/newthinker/cryptosignal/internal/notifier/telegram"
	"github.com/newthinker/cryptosignal/internal/notifier/webhook"
	"github.com/newthinker/cryptosignal/internal/pipeline"
	"github.com/newthinker/cryptosignal/internal/predict"
	"github.com/newthinker/cryptosignal/internal/risk"
	"github.com/newthinker/cryptosignal/internal/router"
	"github.com/newthinker/cryptosignal/internal/scoring"
	"github.com/newthinker/cryptosignal/internal/storage/archive"
	"github.com/newthinker/cryptosignal/internal/storage/report"
	"github.com/newthinker/cryptosignal/internal/stream"
)

// reportHistory bounds the in-memory report history served by the API.
const reportHistory = 1000

// App is the main application orchestrator
type App struct {
	settings  *config.Settings
	logger    *zap.Logger
	metrics   *metrics.Registry
	statePath string

	provider   collector.Provider
	cache      cache.Cache
	pipeline   *pipeline.Pipeline
	monitor    *monitor.Monitor
	reports    *report.MemoryStore
	notifiers  *notifier.Registry
	router     *router.Router
	kafka      *stream.KafkaSink
	backtester *backtest.Backtester

	stateMu sync.Mutex
}

// Option configures an App.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	provider  collector.Provider
	statePath string
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithProvider replaces the configured market data providers.
func WithProvider(p collector.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithStatePath overrides monitor.state_file.
func WithStatePath(path string) Option {
	return func(o *options) { o.statePath = path }
}

// New builds every component described by s. Optional sinks and notifiers
// are only constructed when their settings enable them.
func New(ctx context.Context, s *config.Settings, opts ...Option) (*App, error) {
	if s == nil {
		s = config.Defaults()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.statePath == "" {
		o.statePath = config.ExpandHome(s.Monitor.StateFile)
	}

	a := &App{
		settings:  s,
		logger:    o.logger,
		statePath: o.statePath,
		metrics:   metrics.NewRegistry(),
		notifiers: notifier.NewRegistry(),
	}

	if err := a.buildProvider(ctx, o.provider); err != nil {
		return nil, err
	}
	if err := a.buildPipeline(); err != nil {
		_ = a.closeCache()
		return nil, err
	}
	if err := a.buildMonitor(); err != nil {
		_ = a.closeCache()
		return nil, err
	}
	if err := a.buildSinks(); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.backtester = a.BacktesterWithWindow(backtest.DefaultWindow)
	return a, nil
}

func (a *App) buildProvider(ctx context.Context, override collector.Provider) error {
	var p collector.Provider = override
	if p == nil {
		reg := collector.NewRegistry()
		reg.Register(okx.New())
		reg.Register(binance.New())
		chain, err := reg.Chain(a.settings.Providers, a.logger.Named("collector"))
		if err != nil {
			return err
		}
		p = chain
	}

	cc := a.settings.Cache
	switch cc.Type {
	case "memory":
		a.cache = cache.NewMemory()
	case "redis":
		r, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cc.Redis.Addr,
			Password: cc.Redis.Password,
			DB:       cc.Redis.DB,
			Prefix:   cc.Redis.Prefix,
		})
		if err != nil {
			return err
		}
		a.cache = r
	}
	if a.cache != nil && cc.TTL > 0 {
		p = collector.NewCached(p, a.cache, cc.TTL, a.logger.Named("cache"))
	}
	a.provider = p
	return nil
}

func (a *App) buildPipeline() error {
	profile, err := scoring.ProfileByName(a.settings.Analysis.Profile)
	if err != nil {
		return err
	}
	fusion, err := decision.ConfigByName(a.settings.Analysis.Fusion)
	if err != nil {
		return err
	}
	predictor, err := a.buildPredictor()
	if err != nil {
		return err
	}

	engine := analysis.NewDefaultEngine(predictor, a.logger.Named("analysis"))
	phase := analysis.NewMarketPhase()
	phase.Thresholds = a.settings.Analysis.Phase
	engine.Register(phase)

	a.pipeline = pipeline.New(a.provider, scoring.New(profile), engine, decision.NewFuser(fusion),
		pipeline.WithAccount(pipeline.Account{
			Balance:     a.settings.Account.Balance,
			RiskPercent: a.settings.Account.RiskPercent,
		}),
		pipeline.WithPlanner(risk.NewPlanner(risk.DefaultConfig())),
		pipeline.WithLogger(a.logger.Named("pipeline")),
	)
	return nil
}

func (a *App) buildPredictor() (predict.Predictor, error) {
	pc := a.settings.Predictor
	switch pc.Type {
	case "momentum":
		return predict.NewMomentum(), nil
	case "llm":
		provider, err := factory.New(pc.LLM)
		if err != nil {
			return nil, err
		}
		return predict.NewLLM(provider, pc.Bars, a.logger.Named("predict")), nil
	default:
		return nil, nil
	}
}

func (a *App) buildMonitor() error {
	mc := a.settings.Monitor
	m, err := monitor.New(a.pipeline, monitor.Config{
		Interval:       mc.Interval,
		MaxConcurrency: mc.MaxConcurrency,
		Limit:          a.settings.Analysis.Limit,
		ResultBuffer:   mc.ResultBuffer,
	},
		monitor.WithLogger(a.logger.Named("monitor")),
		monitor.WithMetrics(a.metrics),
	)
	if err != nil {
		return err
	}
	a.monitor = m
	return nil
}

// buildSinks registers the sinks in delivery order: the report store first
// so the API sees a batch before notifications about it go out.
func (a *App) buildSinks() error {
	sc := a.settings.Sinks

	a.reports = report.NewMemoryStore(reportHistory)
	a.monitor.AddSink(a.reports)

	switch sc.Archive.Type {
	case "localfs":
		store, err := archive.NewLocalFS(config.ExpandHome(sc.Archive.Path))
		if err != nil {
			return core.WrapError(core.ErrConfigInvalid, err)
		}
		a.monitor.AddSink(archive.NewSink(store, a.logger.Named("archive")))
	case "s3":
		store, err := archive.NewS3(archive.S3Config{
			Bucket:    sc.Archive.S3.Bucket,
			Endpoint:  sc.Archive.S3.Endpoint,
			Region:    sc.Archive.S3.Region,
			AccessKey: sc.Archive.S3.AccessKey,
			SecretKey: sc.Archive.S3.SecretKey,
			Prefix:    sc.Archive.S3.Prefix,
		})
		if err != nil {
			return err
		}
		a.monitor.AddSink(archive.NewSink(store, a.logger.Named("archive")))
	}

	if len(sc.Kafka.Brokers) > 0 {
		k, err := stream.NewKafkaSink(stream.Config{Brokers: sc.Kafka.Brokers, Topic: sc.Kafka.Topic}, a.logger.Named("kafka"))
		if err != nil {
			return err
		}
		a.kafka = k
		a.monitor.AddSink(k)
	}

	health, err := a.buildNotifiers(sc.Notify)
	if err != nil {
		return err
	}
	a.router = router.New(routerConfig(sc.Notify), a.notifiers, a.logger.Named("router"),
		router.WithMetrics(a.metrics))
	a.monitor.AddSink(a.router)

	if len(sc.Health.Rules) > 0 {
		health = append([]alert.Notifier{alert.NewLogNotifier(a.logger.Named("health"))}, health...)
		eval, err := alert.NewEvaluator(sc.Health.Rules, health, a.logger.Named("health"))
		if err != nil {
			return err
		}
		eval.SetCooldown(sc.Health.Cooldown)
		a.monitor.AddSink(eval)
	}

	if sc.Console {
		a.monitor.AddSink(monitor.NewConsoleSink(os.Stdout))
	}
	return nil
}

// buildNotifiers registers the decision notifiers and returns them again as
// health alert targets.
func (a *App) buildNotifiers(nc config.NotifyConfig) ([]alert.Notifier, error) {
	var health []alert.Notifier
	if nc.Webhook.URL != "" {
		w, err := webhook.New(nc.Webhook.URL, nc.Webhook.Headers, nc.Webhook.Timeout)
		if err != nil {
			return nil, err
		}
		if err := a.notifiers.Register(w); err != nil {
			return nil, err
		}
		health = append(health, w)
	}
	if nc.Telegram.BotToken != "" {
		t, err := telegram.New(nc.Telegram.BotToken, nc.Telegram.ChatID)
		if err != nil {
			return nil, err
		}
		if err := a.notifiers.Register(t); err != nil {
			return nil, err
		}
		health = append(health, t)
	}
	return health, nil
}

func routerConfig(nc config.NotifyConfig) router.Config {
	cfg := router.DefaultConfig()
	cfg.MinConfidence = nc.MinConfidence
	cfg.CooldownDuration = nc.Cooldown
	if len(nc.Actions) > 0 {
		cfg.EnabledActions = make([]core.Action, len(nc.Actions))
		for i, act := range nc.Actions {
			cfg.EnabledActions[i] = core.Action(strings.ToUpper(act))
		}
	}
	return cfg
}

// Pipeline returns the analysis pipeline.
func (a *App) Pipeline() *pipeline.Pipeline { return a.pipeline }

// Monitor returns the live monitor.
func (a *App) Monitor() *monitor.Monitor { return a.monitor }

// Reports returns the report store fed by the monitor.
func (a *App) Reports() *report.MemoryStore { return a.reports }

// Backtester returns the backtester bound to the configured providers.
func (a *App) Backtester() *backtest.Backtester { return a.backtester }

// BacktesterWithWindow returns a backtester replaying windows of n bars.
func (a *App) BacktesterWithWindow(n int) *backtest.Backtester {
	return backtest.New(a.pipeline,
		backtest.WithWindow(n),
		backtest.WithProvider(a.provider),
		backtest.WithLogger(a.logger.Named("backtest")),
		backtest.WithMetrics(a.metrics),
	)
}

// Notifiers returns the notifier registry.
func (a *App) Notifiers() *notifier.Registry { return a.notifiers }

// Settings returns the settings the app was built from.
func (a *App) Settings() *config.Settings { return a.settings }

// RestoreState loads the persisted watchlist and refresh interval into the
// monitor. A corrupt state file is logged and the defaults are used.
func (a *App) RestoreState() error {
	st, err := config.LoadState(a.statePath)
	if err != nil {
		a.logger.Warn("state unusable, using defaults", zap.String("path", a.statePath), zap.Error(err))
	}
	if err := a.monitor.SetInterval(st.RefreshInterval); err != nil {
		return err
	}
	for _, item := range st.Symbols {
		if _, _, err := a.monitor.Add(item.Symbol, item.Interval); err != nil {
			a.logger.Warn("skipping saved symbol", zap.String("symbol", item.Symbol), zap.Error(err))
		}
	}
	return nil
}

// SaveState persists the current watchlist and refresh interval.
func (a *App) SaveState() error {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()

	items := a.monitor.Watchlist()
	st := config.State{
		Symbols:         make([]config.WatchItem, len(items)),
		RefreshInterval: a.monitor.Interval(),
	}
	for i, item := range items {
		st.Symbols[i] = config.WatchItem{Symbol: item.Symbol, Interval: item.Interval}
	}
	return config.SaveState(a.statePath, st)
}

// Watchlist returns the tracked pairs.
func (a *App) Watchlist() []monitor.Item { return a.monitor.Watchlist() }

// Add tracks a pair and persists the change.
func (a *App) Add(symbol, interval string) (monitor.Item, bool, error) {
	item, added, err := a.monitor.Add(symbol, interval)
	if err != nil || !added {
		return item, added, err
	}
	if err := a.SaveState(); err != nil {
		a.logger.Error("failed to save state", zap.Error(err))
	}
	return item, added, nil
}

// Remove stops tracking a pair and persists the change. Cached latest
// reports and notification cooldowns for the pair are dropped too.
func (a *App) Remove(symbol, interval string) bool {
	if !a.monitor.Remove(symbol, interval) {
		return false
	}
	symbol = collector.NormalizeSymbol(symbol, collector.DefaultQuote)
	a.reports.Forget(symbol, interval)
	a.router.ClearCooldown(symbol)
	if err := a.SaveState(); err != nil {
		a.logger.Error("failed to save state", zap.Error(err))
	}
	return true
}

// Server builds the HTTP API over the app's services.
func (a *App) Server() (*api.Server, error) {
	return api.NewServer(api.Config{
		Addr:   a.settings.Server.Addr,
		APIKey: a.settings.Server.APIKey,
	}, api.Dependencies{
		Reports:    a.reports,
		Analyzer:   a.pipeline,
		Watchlist:  a,
		Ticker:     refresher{a.monitor},
		Backtester: a.backtester,
		Metrics:    a.metrics,
	}, a.logger.Named("api"))
}

// refresher publishes API-triggered ticks to the sinks.
type refresher struct{ m *monitor.Monitor }

func (r refresher) Tick(ctx context.Context) monitor.Batch { return r.m.Refresh(ctx) }

// Run starts the monitor, the cooldown janitor and, when serve is true, the
// HTTP API. It returns once ctx is cancelled and everything has stopped.
func (a *App) Run(ctx context.Context, serve bool) error {
	g, ctx := errgroup.WithContext(ctx)

	a.router.StartCleanupRoutine(ctx, time.Hour)

	g.Go(func() error {
		if err := a.monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if serve {
		srv, err := a.Server()
		if err != nil {
			return err
		}
		g.Go(func() error {
			a.logger.Info("api listening", zap.String("addr", a.settings.Server.Addr))
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("api server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// Stats summarises the running components.
func (a *App) Stats() map[string]any {
	reports, _ := a.reports.Count(context.Background(), report.ListFilter{})
	return map[string]any{
		"monitor":   a.monitor.Stats(),
		"router":    a.router.Stats(),
		"reports":   reports,
		"notifiers": a.notifiers.Len(),
	}
}

// Close releases the Kafka writer and the cache connection.
func (a *App) Close() error {
	var errs []error
	if a.kafka != nil {
		errs = append(errs, a.kafka.Close())
	}
	errs = append(errs, a.closeCache())
	return errors.Join(errs...)
}

func (a *App) closeCache() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Close()
}
