package validate

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/goassess/internal/schema"
)

func testEngine(opts ...Option) *Engine {
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	base := []Option{
		WithLogger(zerolog.Nop()),
		WithClock(func() time.Time { return fixed }, func() string { n++; return "id-" + strconv.Itoa(n) }),
	}
	return NewEngine(append(base, opts...)...)
}

func ptr(v float64) *float64 { return &v }

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func sampleMapping() *schema.MappingResult {
	return &schema.MappingResult{
		ID:           "map-1",
		ReportID:     "rep-1",
		ReportTypeID: "test-type",
		MappedFields: []schema.MappedField{
			{DefinitionID: "intro", Name: "Introduction", Required: true, StartLine: 1, Confidence: 0.9},
			{DefinitionID: "method", Name: "Methodology", Required: true, StartLine: 3, Confidence: 0.8},
		},
		MissingRequiredSections: []schema.MissingSection{{ID: "results", Name: "Results"}},
		ExtraSections:           []string{"Random Notes"},
		UnknownTerminology:      []string{"hedgerow"},
		SchemaGaps:              []schema.SchemaGap{{Kind: schema.GapMissingStandard, Target: "BS 5837:2012"}},
		CompletenessScore:       ptr(200.0 / 3),
	}
}

func TestSingleRequiredSectionsRule(t *testing.T) {
	e := testEngine(WithoutDefaultRules())
	if err := e.AddRule(DefaultRules()[0]); err != nil {
		t.Fatalf("AddRule: %v", err)
	}
	res, err := e.Validate(context.Background(), sampleMapping())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(res.Findings) != 1 || len(res.Violations) != 1 || len(res.QualityIssues) != 0 {
		t.Fatalf("want 1 finding and 1 violation, got %+v", res)
	}
	if res.Findings[0].Description != "Missing required sections: Results" {
		t.Fatalf("description=%q", res.Findings[0].Description)
	}
	if res.Violations[0].FindingID != res.Findings[0].ID {
		t.Fatalf("violation should reference its finding")
	}
	if res.Scores.Compliance != 70 {
		t.Fatalf("compliance=%v want 70", res.Scores.Compliance)
	}
	if res.Execution != (Execution{Executed: 1, Failed: 1}) {
		t.Fatalf("execution=%+v", res.Execution)
	}
	if res.Status != StatusCompleted {
		t.Fatalf("status=%s", res.Status)
	}
}

func TestDefaultRules(t *testing.T) {
	res, err := testEngine().Validate(context.Background(), sampleMapping())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Execution != (Execution{Executed: 9, Passed: 6, Failed: 3}) {
		t.Fatalf("execution=%+v", res.Execution)
	}
	wantRules := []string{RuleRequiredSections, RuleStandardsReferenced, RuleCompletenessThreshold}
	for i, f := range res.Findings {
		if f.RuleID != wantRules[i] {
			t.Fatalf("finding %d rule=%s want %s", i, f.RuleID, wantRules[i])
		}
	}
	if len(res.Violations) != 2 || res.Violations[1].Standard != "BS 5837:2012" {
		t.Fatalf("violations=%+v", res.Violations)
	}
	s := res.Scores
	if s.Compliance != 60 || s.Quality != 85 || s.Consistency != 90 {
		t.Fatalf("scores=%+v", s)
	}
	if s.Completeness == nil || !near(*s.Completeness, 200.0/3) {
		t.Fatalf("completeness=%v", s.Completeness)
	}
	if !near(s.Overall, 21+25.5+40.0/3+13.5) {
		t.Fatalf("overall=%v", s.Overall)
	}
	if len(s.ByType) != 7 {
		t.Fatalf("by type=%v", s.ByType)
	}
	for typ, v := range s.ByType {
		if !near(v, 600.0/9) {
			t.Fatalf("%s=%v want the engine-wide pass ratio", typ, v)
		}
	}
	if s.BySeverity[SeverityCritical] != 1 || s.BySeverity[SeverityHigh] != 2 || s.BySeverity[SeverityLow] != 0 {
		t.Fatalf("by severity=%v", s.BySeverity)
	}
}

func TestUntypedMapping(t *testing.T) {
	m := &schema.MappingResult{ID: "m", ReportID: "r"}
	res, err := testEngine().Validate(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Findings) != 0 || res.Scores.Completeness != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	want := (0.35*80 + 0.30*85 + 0.15*90) / 0.80
	if !near(res.Scores.Overall, want) {
		t.Fatalf("overall=%v want %v", res.Scores.Overall, want)
	}

	e := testEngine()
	r, _ := e.Rule(RuleRequiredSections)
	r.AppliesTo = []string{"test-type"}
	if err := e.UpdateRule(r); err != nil {
		t.Fatal(err)
	}
	res, err = e.Validate(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Execution.Executed != 8 {
		t.Fatalf("type-scoped rule must not apply to untyped mapping: %+v", res.Execution)
	}
}

func TestOverallBounds(t *testing.T) {
	for _, c := range []*float64{nil, ptr(0), ptr(100)} {
		for _, v := range []float64{0, 100} {
			o := Overall(v, v, c, v)
			if o < 0 || o > 100 {
				t.Fatalf("overall %v out of range", o)
			}
		}
	}
	if !near(Overall(100, 100, ptr(100), 100), 100) {
		t.Fatalf("all-100 should give 100")
	}
}

func TestPenaltiesFloorAtZero(t *testing.T) {
	e := testEngine(WithoutDefaultRules())
	for i := 0; i < 10; i++ {
		id := "c" + strconv.Itoa(i)
		if err := e.AddRule(Rule{ID: id, Name: id, Type: TypeCompliance, Severity: SeverityHigh, AppliesTo: []string{Wildcard}, Weight: 5, Enabled: true}); err != nil {
			t.Fatal(err)
		}
		e.RegisterEvaluator(id, func(*schema.MappingResult) (Outcome, error) { return Outcome{}, nil })
	}
	res, err := e.Validate(context.Background(), sampleMapping())
	if err != nil {
		t.Fatal(err)
	}
	if res.Scores.Compliance != 0 || len(res.Violations) != 10 {
		t.Fatalf("compliance=%v violations=%d", res.Scores.Compliance, len(res.Violations))
	}
}

func TestFailingEvaluatorIsSkipped(t *testing.T) {
	e := testEngine()
	e.RegisterEvaluator(RuleRequiredSections, func(*schema.MappingResult) (Outcome, error) {
		return Outcome{}, errors.New("boom")
	})
	e.RegisterEvaluator(RuleStandardsReferenced, func(*schema.MappingResult) (Outcome, error) {
		panic("bad evaluator")
	})
	res, err := e.Validate(context.Background(), sampleMapping())
	if err != nil {
		t.Fatalf("rule failures must not abort the run: %v", err)
	}
	if res.Execution.Skipped != 2 || res.Execution.Executed != 7 {
		t.Fatalf("execution=%+v", res.Execution)
	}
	if len(res.Violations) != 0 || res.Scores.Compliance != 80 {
		t.Fatalf("skipped compliance rules add no violations: %+v", res.Scores)
	}
}

func TestUnknownEvaluatorFailsOpen(t *testing.T) {
	e := testEngine(WithoutDefaultRules())
	r := Rule{ID: "custom", Name: "Custom", Type: TypeQuality, Severity: SeverityLow, AppliesTo: []string{Wildcard}, Weight: 1, Enabled: true}
	if err := e.AddRule(r); err != nil {
		t.Fatal(err)
	}
	res, err := e.Validate(context.Background(), sampleMapping())
	if err != nil {
		t.Fatal(err)
	}
	if res.Execution.Passed != 1 || len(res.Findings) != 0 {
		t.Fatalf("rule without evaluator should pass: %+v", res.Execution)
	}
	var cfg *ConfigError
	if err := e.CheckEvaluators(); !errors.As(err, &cfg) || cfg.RuleIDs[0] != "custom" || !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("CheckEvaluators=%v", err)
	}

	strict := testEngine(WithoutDefaultRules(), WithStrictEvaluators())
	if err := strict.AddRule(r); !errors.As(err, &cfg) {
		t.Fatalf("strict engine should reject rule without evaluator, got %v", err)
	}
	if err := testEngine(WithStrictEvaluators()).CheckEvaluators(); err != nil {
		t.Fatalf("default rules all have evaluators: %v", err)
	}
}

func TestQualityIssue(t *testing.T) {
	e := testEngine(WithoutDefaultRules())
	for _, r := range DefaultRules() {
		if r.ID == RuleMinimumMapped {
			if err := e.AddRule(r); err != nil {
				t.Fatal(err)
			}
		}
	}
	m := sampleMapping()
	m.MappedFields = nil
	res, err := e.Validate(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.QualityIssues) != 1 || res.Scores.Quality != 80 || res.Scores.Compliance != 100 {
		t.Fatalf("unexpected: %+v %+v", res.QualityIssues, res.Scores)
	}
}

func TestSectionOrder(t *testing.T) {
	m := sampleMapping()
	m.MappedFields[1].StartLine = 0
	out, err := sectionOrder(m)
	if err != nil || out.Passed || out.Location != "line 0" {
		t.Fatalf("out-of-order sections should fail: %+v %v", out, err)
	}
	m.MappedFields = append(m.MappedFields, schema.MappedField{Name: "Appendix", StartLine: -5})
	m.MappedFields[1].StartLine = 9
	if out, _ := sectionOrder(m); !out.Passed {
		t.Fatalf("optional fields are not ordered: %+v", out)
	}
}

func TestConsistencyPenalty(t *testing.T) {
	m := sampleMapping()
	m.ExtraSections = []string{"a", "b", "c", "d", "e"}
	res, err := testEngine().Validate(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Scores.Consistency != 75 {
		t.Fatalf("consistency=%v", res.Scores.Consistency)
	}
}

func TestInvalidInput(t *testing.T) {
	e := testEngine()
	var in *InputError
	if _, err := e.Validate(context.Background(), nil); !errors.As(err, &in) {
		t.Fatalf("nil mapping: %v", err)
	}
	bad := sampleMapping()
	bad.CompletenessScore = ptr(150)
	if res, err := e.Validate(context.Background(), bad); !errors.As(err, &in) || res != nil {
		t.Fatalf("invalid mapping: %v %v", res, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Validate(ctx, sampleMapping()); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled: %v", err)
	}
}

func TestRuleManagement(t *testing.T) {
	e := testEngine()
	if err := e.AddRule(DefaultRules()[0]); !errors.Is(err, ErrDuplicateRule) {
		t.Fatalf("duplicate: %v", err)
	}
	if err := e.SetEnabled("nope", false); !errors.Is(err, ErrUnknownRule) {
		t.Fatalf("unknown: %v", err)
	}
	if err := e.UpdateRule(Rule{ID: "nope", Type: TypeQuality, Severity: SeverityLow, Weight: 1, AppliesTo: []string{Wildcard}}); !errors.Is(err, ErrUnknownRule) {
		t.Fatalf("update unknown: %v", err)
	}
	for _, bad := range []Rule{
		{},
		{ID: "w", Type: TypeQuality, Severity: SeverityLow, Weight: 11, AppliesTo: []string{Wildcard}},
		{ID: "t", Type: "odd", Severity: SeverityLow, Weight: 1, AppliesTo: []string{Wildcard}},
		{ID: "s", Type: TypeQuality, Severity: "odd", Weight: 1, AppliesTo: []string{Wildcard}},
		{ID: "a", Type: TypeQuality, Severity: SeverityLow, Weight: 1},
	} {
		if err := e.AddRule(bad); !errors.Is(err, ErrInvalidRule) {
			t.Fatalf("%+v: %v", bad, err)
		}
	}
	if err := e.SetEnabled(RuleRequiredSections, false); err != nil {
		t.Fatal(err)
	}
	res, err := e.Validate(context.Background(), sampleMapping())
	if err != nil {
		t.Fatal(err)
	}
	if res.Execution.Executed != 8 || len(res.Violations) != 1 {
		t.Fatalf("disabled rule still ran: %+v", res.Execution)
	}
	rules := e.Rules()
	if len(rules) != 9 || rules[0].ID != RuleRequiredSections || rules[0].Enabled {
		t.Fatalf("rules=%+v", rules[0])
	}
}
