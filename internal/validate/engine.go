package validate

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goassess/internal/schema"
)

// Status of a validation run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Finding is emitted once per failed rule.
type Finding struct {
	ID             string   `json:"id"`
	RuleID         string   `json:"rule_id"`
	RuleName       string   `json:"rule_name"`
	Type           RuleType `json:"type"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Remediation    string   `json:"remediation,omitempty"`
	Location       string   `json:"location,omitempty"`
	Confidence     float64  `json:"confidence"`
	AutoFixable    bool     `json:"auto_fixable"`
	RequiresReview bool     `json:"requires_review"`
}

// ComplianceViolation accompanies a failed compliance rule.
type ComplianceViolation struct {
	ID          string   `json:"id"`
	FindingID   string   `json:"finding_id"`
	Standard    string   `json:"standard"`
	Requirement string   `json:"requirement"`
	Severity    Severity `json:"severity"`
	Status      string   `json:"status"`
}

// QualityIssue accompanies a failed quality rule.
type QualityIssue struct {
	ID          string   `json:"id"`
	FindingID   string   `json:"finding_id"`
	Category    string   `json:"category"`
	Severity    Severity `json:"severity"`
	ScoreImpact float64  `json:"score_impact"`
}

// Execution counts rule outcomes. Executed is Passed plus Failed.
type Execution struct {
	Executed int `json:"executed"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

// Result is the outcome of one Validate call. It is not modified after
// Validate returns.
type Result struct {
	ID             string                `json:"id"`
	MappingID      string                `json:"mapping_id"`
	ReportID       string                `json:"report_id"`
	ReportTypeID   string                `json:"report_type_id,omitempty"`
	Findings       []Finding             `json:"findings"`
	Violations     []ComplianceViolation `json:"compliance_violations"`
	QualityIssues  []QualityIssue        `json:"quality_issues"`
	Scores         Scores                `json:"scores"`
	Execution      Execution             `json:"execution"`
	ProcessingTime time.Duration         `json:"processing_time"`
	Status         Status                `json:"status"`
	CreatedAt      time.Time             `json:"created_at"`
}

// Engine owns a rule registry and the evaluators behind it. It is safe for
// concurrent use.
type Engine struct {
	mu         sync.RWMutex
	order      []string
	rules      map[string]Rule
	evaluators map[string]Evaluator

	strict   bool
	defaults bool
	logger   zerolog.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithClock replaces the time source and id generator.
func WithClock(now func() time.Time, newID func() string) Option {
	return func(e *Engine) {
		e.now = now
		e.newID = newID
	}
}

// WithStrictEvaluators makes AddRule reject rules that have no evaluator.
// Without it such rules pass and a warning is logged.
func WithStrictEvaluators() Option { return func(e *Engine) { e.strict = true } }

// WithoutDefaultRules starts the engine with an empty rule set. Default
// evaluators are still registered.
func WithoutDefaultRules() Option { return func(e *Engine) { e.defaults = false } }

// NewEngine returns an engine holding DefaultRules and DefaultEvaluators.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		rules:      map[string]Rule{},
		evaluators: DefaultEvaluators(),
		defaults:   true,
		logger:     log.Logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, o := range opts {
		o(e)
	}
	if e.defaults {
		for _, r := range DefaultRules() {
			if err := e.AddRule(r); err != nil {
				panic(err)
			}
		}
	}
	return e
}

// AddRule registers r after the existing rules.
func (e *Engine) AddRule(r Rule) error {
	if err := r.check(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rules[r.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRule, r.ID)
	}
	if _, ok := e.evaluators[r.ID]; !ok && e.strict {
		return &ConfigError{RuleIDs: []string{r.ID}}
	}
	r.AppliesTo = append([]string(nil), r.AppliesTo...)
	e.rules[r.ID] = r
	e.order = append(e.order, r.ID)
	return nil
}

// UpdateRule replaces a registered rule, keeping its position.
func (e *Engine) UpdateRule(r Rule) error {
	if err := r.check(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rules[r.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRule, r.ID)
	}
	r.AppliesTo = append([]string(nil), r.AppliesTo...)
	e.rules[r.ID] = r
	return nil
}

// SetEnabled toggles a rule.
func (e *Engine) SetEnabled(id string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.rules[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRule, id)
	}
	r.Enabled = enabled
	e.rules[id] = r
	return nil
}

// Rule returns the rule registered under id.
func (e *Engine) Rule(id string) (Rule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.rules[id]
	return r, ok
}

// Rules returns the registered rules in registration order.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Rule, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.rules[id])
	}
	return out
}

// RegisterEvaluator sets the evaluator for a rule id, replacing any
// previous one. The rule need not be registered yet.
func (e *Engine) RegisterEvaluator(id string, fn Evaluator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evaluators[id] = fn
}

// CheckEvaluators returns a *ConfigError naming every registered rule that
// has no evaluator.
func (e *Engine) CheckEvaluators() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var missing []string
	for _, id := range e.order {
		if _, ok := e.evaluators[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &ConfigError{RuleIDs: missing}
}

type boundRule struct {
	rule Rule
	eval Evaluator
}

// Validate runs every applicable rule against m in registration order.
// An invalid mapping returns *InputError and no result. A rule whose
// evaluator errors or panics is counted as skipped and the run continues.
func (e *Engine) Validate(ctx context.Context, m *schema.MappingResult) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.Check(); err != nil {
		return nil, &InputError{Err: err}
	}
	start := e.now()

	e.mu.RLock()
	var applicable []boundRule
	for _, id := range e.order {
		r := e.rules[id]
		if r.Applies(m.ReportTypeID) {
			applicable = append(applicable, boundRule{rule: r, eval: e.evaluators[id]})
		}
	}
	e.mu.RUnlock()

	res := &Result{
		ID:            e.newID(),
		MappingID:     m.ID,
		ReportID:      m.ReportID,
		ReportTypeID:  m.ReportTypeID,
		Findings:      []Finding{},
		Violations:    []ComplianceViolation{},
		QualityIssues: []QualityIssue{},
		Status:        StatusInProgress,
		CreatedAt:     start,
	}

	for _, br := range applicable {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := br.rule
		if br.eval == nil {
			e.logger.Warn().Str("rule", r.ID).Msg("no evaluator registered; rule passes")
			res.Execution.Passed++
			continue
		}
		out, err := evaluate(br.eval, m)
		if err != nil {
			e.logger.Warn().Err(err).Str("rule", r.ID).Msg("rule skipped")
			res.Execution.Skipped++
			continue
		}
		if out.Passed {
			res.Execution.Passed++
			continue
		}
		res.Execution.Failed++
		e.record(res, r, out)
	}
	res.Execution.Executed = res.Execution.Passed + res.Execution.Failed

	res.Scores = score(res, applicable, m.CompletenessScore)
	res.Status = StatusCompleted
	res.ProcessingTime = e.now().Sub(start)

	e.logger.Debug().
		Str("report", res.ReportID).
		Int("executed", res.Execution.Executed).
		Int("failed", res.Execution.Failed).
		Int("skipped", res.Execution.Skipped).
		Float64("overall", res.Scores.Overall).
		Msg("validated mapping")
	return res, nil
}

func evaluate(fn Evaluator, m *schema.MappingResult) (out Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("evaluator panic: %v", p)
		}
	}()
	return fn(m)
}

func (e *Engine) record(res *Result, r Rule, out Outcome) {
	confidence := out.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = 1
	}
	f := Finding{
		ID:             e.newID(),
		RuleID:         r.ID,
		RuleName:       r.Name,
		Type:           r.Type,
		Severity:       r.Severity,
		Description:    r.render(r.MessageTemplate, out.Detail),
		Remediation:    r.render(r.RemediationTemplate, out.Detail),
		Location:       out.Location,
		Confidence:     confidence,
		AutoFixable:    r.AutoFixable,
		RequiresReview: r.RequiresReview,
	}
	res.Findings = append(res.Findings, f)

	switch r.Type {
	case TypeCompliance:
		standard := out.Standard
		if standard == "" {
			standard = r.Name
		}
		res.Violations = append(res.Violations, ComplianceViolation{
			ID:          e.newID(),
			FindingID:   f.ID,
			Standard:    standard,
			Requirement: r.Description,
			Severity:    r.Severity,
			Status:      "open",
		})
	case TypeQuality:
		res.QualityIssues = append(res.QualityIssues, QualityIssue{
			ID:          e.newID(),
			FindingID:   f.ID,
			Category:    r.Name,
			Severity:    r.Severity,
			ScoreImpact: qualityPenalty,
		})
	}
}
