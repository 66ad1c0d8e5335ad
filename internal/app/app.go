// Package app wires configuration, persistence and the assessment pipeline
// together for the CLI and the MCP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goassess/internal/advise"
	"github.com/hyperifyio/goassess/internal/cache"
	"github.com/hyperifyio/goassess/internal/decompile"
	"github.com/hyperifyio/goassess/internal/export"
	"github.com/hyperifyio/goassess/internal/llm"
	"github.com/hyperifyio/goassess/internal/registry"
	"github.com/hyperifyio/goassess/internal/report"
	"github.com/hyperifyio/goassess/internal/schema"
	"github.com/hyperifyio/goassess/internal/store"
	"github.com/hyperifyio/goassess/internal/validate"
)

// ErrBelowThreshold is returned by CheckThreshold when an assessment does not
// meet the configured minimum score.
var ErrBelowThreshold = errors.New("assessment below threshold")

// App runs assessments against a report type registry, a rule engine and a
// report store.
type App struct {
	cfg        Config
	types      *registry.Registry
	decompiler *decompile.Decompiler
	mapper     *schema.Mapper
	engine     *validate.Engine
	store      store.Store
	reports    *store.Reports
	rules      *store.Rules
	advisor    *advise.Advisor
	logger     zerolog.Logger
	now        func() time.Time
}

// Option customises New.
type Option func(*options)

type options struct {
	logger zerolog.Logger
	store  store.Store
	client llm.Client
	now    func() time.Time
}

// WithLogger sets the logger shared by every stage.
func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.logger = l } }

// WithStore uses s instead of opening the configured backend.
func WithStore(s store.Store) Option { return func(o *options) { o.store = s } }

// WithLLMClient uses c for remediation advice instead of an OpenAI client.
func WithLLMClient(c llm.Client) Option { return func(o *options) { o.client = c } }

// WithClock sets the time source for assessment metadata.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// New validates cfg and builds an App. Persisted rule overrides are applied
// to the engine before New returns.
func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	o := options{logger: log.Logger, now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	types, err := registry.NewDefault()
	if err != nil {
		return nil, fmt.Errorf("load report types: %w", err)
	}
	types.SetLogger(o.logger)
	if cfg.RegistryDir != "" {
		if err := types.LoadDirectory(cfg.RegistryDir); err != nil {
			return nil, fmt.Errorf("load report types from %s: %w", cfg.RegistryDir, err)
		}
	}

	engineOpts := []validate.Option{validate.WithLogger(o.logger)}
	if cfg.StrictRules {
		engineOpts = append(engineOpts, validate.WithStrictEvaluators())
	}
	engine := validate.NewEngine(engineOpts...)
	if cfg.StrictRules {
		if err := engine.CheckEvaluators(); err != nil {
			return nil, err
		}
	}

	st := o.store
	if st == nil {
		st, err = store.Open(cfg.StoreBackend, cfg.StoreDir)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}
	a := &App{
		cfg:        cfg,
		types:      types,
		decompiler: decompile.New(types, decompile.WithLogger(o.logger)),
		mapper:     schema.NewMapper().WithLogger(o.logger),
		engine:     engine,
		store:      st,
		reports:    store.NewReports(st),
		rules:      store.NewRules(st).WithLogger(o.logger),
		logger:     o.logger,
		now:        o.now,
	}
	if err := a.rules.Apply(ctx, engine); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("apply rule overrides: %w", err)
	}
	if cfg.Advise {
		a.advisor = a.newAdvisor(ctx, o.client)
	}
	return a, nil
}

// maxCacheEntries bounds the remediation reply cache.
const maxCacheEntries = 2000

func (a *App) newAdvisor(ctx context.Context, client llm.Client) *advise.Advisor {
	cfg := a.cfg
	if client == nil {
		client = llm.NewOpenAI(cfg.LLMBaseURL, cfg.LLMAPIKey)
	}
	adv := &advise.Advisor{Client: client, Model: cfg.LLMModel, SystemPrompt: cfg.AdviseSystemPrompt, Logger: &a.logger}

	if cfg.CacheDir != "" {
		dir := filepath.Join(cfg.CacheDir, "llm")
		if cfg.CacheClear {
			if err := cache.ClearDir(dir); err != nil {
				a.logger.Warn().Err(err).Str("dir", dir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			if n, err := cache.PurgeByAge(dir, cfg.CacheMaxAge); err != nil {
				a.logger.Warn().Err(err).Msg("cache purge failed")
			} else if n > 0 {
				a.logger.Debug().Int("removed", n).Msg("purged stale cache entries")
			}
		}
		adv.Cache = &cache.LLMCache{Dir: dir, StrictPerms: cfg.CacheStrictPerms, MaxEntries: maxCacheEntries}
	}

	if lister, ok := client.(llm.ModelLister); ok {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if _, err := lister.ListModels(pctx); err != nil {
			a.logger.Warn().Err(err).Msg("LLM endpoint not reachable; advice will fall back to templates")
		}
	}
	return adv
}

// Close releases the store.
func (a *App) Close() error { return a.store.Close() }

// Config returns the configuration the App was built with.
func (a *App) Config() Config { return a.cfg }

// Registry returns the report type registry.
func (a *App) Registry() *registry.Registry { return a.types }

// Engine returns the rule engine.
func (a *App) Engine() *validate.Engine { return a.engine }

// Reports returns the persisted report collection.
func (a *App) Reports() *store.Reports { return a.reports }

// Decompile decompiles raw and persists the report. A configured report type
// is forced instead of detected.
func (a *App) Decompile(ctx context.Context, raw string, format report.Format) (*report.DecompiledReport, error) {
	return a.DecompileAs(ctx, raw, format, a.cfg.ReportType)
}

// DecompileAs is Decompile with typeID forced; "" detects the type.
func (a *App) DecompileAs(ctx context.Context, raw string, format report.Format, typeID string) (*report.DecompiledReport, error) {
	rep, err := a.decompiler.DecompileAs(ctx, raw, format, typeID)
	if err != nil {
		return nil, err
	}
	if err := a.reports.Save(ctx, rep); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	a.logger.Info().Str("report", rep.ID).Str("type", rep.ReportTypeID).Int("sections", len(rep.Sections)).Msg("report decompiled")
	return rep, nil
}

// Assess runs decompile, map, validate and advise over raw.
func (a *App) Assess(ctx context.Context, raw string, format report.Format) (*export.Assessment, error) {
	return a.AssessAs(ctx, raw, format, a.cfg.ReportType)
}

// AssessAs is Assess with typeID forced; "" detects the type.
func (a *App) AssessAs(ctx context.Context, raw string, format report.Format, typeID string) (*export.Assessment, error) {
	rep, err := a.DecompileAs(ctx, raw, format, typeID)
	if err != nil {
		return nil, err
	}
	return a.assess(ctx, rep)
}

// Revalidate assesses a stored report against the current rules.
func (a *App) Revalidate(ctx context.Context, reportID string) (*export.Assessment, error) {
	rep, err := a.reports.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return a.assess(ctx, rep)
}

func (a *App) assess(ctx context.Context, rep *report.DecompiledReport) (*export.Assessment, error) {
	mapping, err := a.mapper.MapReport(rep, a.types)
	if err != nil {
		return nil, fmt.Errorf("map report: %w", err)
	}
	res, err := a.engine.Validate(ctx, mapping)
	if err != nil {
		return nil, fmt.Errorf("validate report: %w", err)
	}
	out := &export.Assessment{
		Meta: export.Meta{
			Tool:        ToolName,
			Version:     BuildVersion,
			Source:      a.cfg.InputPath,
			GeneratedAt: a.now().UTC(),
		},
		Report:  rep,
		Mapping: mapping,
		Result:  res,
	}
	if rt, ok := a.types.Get(rep.ReportTypeID); ok {
		out.ReportTypeName = rt.Name
	}
	if a.advisor != nil {
		adv, err := a.advisor.Advise(ctx, res, mapping)
		if err != nil {
			return nil, fmt.Errorf("advise: %w", err)
		}
		out.Advice = &adv
		out.Meta.Model = a.advisor.Model
		out.Meta.LLMCache = a.advisor.Cache != nil
	}
	a.logger.Info().
		Str("report", rep.ID).
		Float64("overall", res.Scores.Overall).
		Int("findings", len(res.Findings)).
		Dur("elapsed", res.ProcessingTime).
		Msg("report assessed")
	return out, nil
}

// SetRuleEnabled toggles a rule on the engine and persists the override.
func (a *App) SetRuleEnabled(ctx context.Context, id string, enabled bool) error {
	if err := a.engine.SetEnabled(id, enabled); err != nil {
		return err
	}
	return a.rules.SetEnabled(ctx, id, enabled)
}

// CheckThreshold returns ErrBelowThreshold when res did not complete or its
// overall score is under failUnder.
func CheckThreshold(res *validate.Result, failUnder float64) error {
	if res == nil {
		return fmt.Errorf("%w: no result", ErrBelowThreshold)
	}
	if res.Status != validate.StatusCompleted {
		return fmt.Errorf("%w: validation %s", ErrBelowThreshold, res.Status)
	}
	if failUnder > 0 && res.Scores.Overall < failUnder {
		return fmt.Errorf("%w: overall %.1f < %.1f", ErrBelowThreshold, res.Scores.Overall, failUnder)
	}
	return nil
}
