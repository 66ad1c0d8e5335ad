package advise

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/goassess/internal/cache"
	"github.com/hyperifyio/goassess/internal/schema"
	"github.com/hyperifyio/goassess/internal/validate"
)

type stubClient struct {
	content string
	err     error
	calls   int
}

func (s *stubClient) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.calls++
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: s.content}}}}, nil
}

func sample() (*validate.Result, *schema.MappingResult) {
	res := &validate.Result{
		ReportTypeID: "bat-survey-report",
		Findings: []validate.Finding{
			{ID: "f1", RuleID: validate.RuleRequiredSections, RuleName: "Required Sections Present", Severity: validate.SeverityCritical, Description: "Missing required sections: Results", Remediation: "Add the missing sections: Results"},
			{ID: "f2", RuleID: validate.RuleSectionOrder, RuleName: "Section Order", Severity: validate.SeverityLow, Description: "Sections out of order"},
		},
		Scores: validate.Scores{Overall: 71.5, BySeverity: map[validate.Severity]int{validate.SeverityCritical: 1, validate.SeverityLow: 1}},
	}
	mapping := &schema.MappingResult{MissingRequiredSections: []schema.MissingSection{{ID: "results", Name: "Results", AIGuidance: "Tabulate emergence counts."}}}
	return res, mapping
}

func nopAdvisor(c *stubClient) *Advisor {
	l := zerolog.Nop()
	a := &Advisor{Model: "m", Logger: &l}
	if c != nil {
		a.Client = c
	}
	return a
}

func TestFallbackUsesTemplatesAndGuidance(t *testing.T) {
	res, mapping := sample()
	adv, err := nopAdvisor(nil).Advise(context.Background(), res, mapping)
	if err != nil {
		t.Fatal(err)
	}
	if len(adv.Notes) != 2 {
		t.Fatalf("want one note per finding, got %+v", adv.Notes)
	}
	if !strings.Contains(adv.Notes[0].Advice, "Tabulate emergence counts.") || adv.Notes[0].Source != SourceTemplate {
		t.Fatalf("guidance missing: %+v", adv.Notes[0])
	}
	if adv.Notes[1].Advice != "Sections out of order" {
		t.Fatalf("description should stand in for an empty remediation: %q", adv.Notes[1].Advice)
	}
	if adv.Summary != "2 findings, 1 critical or high; overall score 71.5." {
		t.Fatalf("summary=%q", adv.Summary)
	}
}

func TestModelNotesMergedWithFallback(t *testing.T) {
	res, mapping := sample()
	c := &stubClient{content: "```json\n{\"notes\":[{\"ref\":\"section-order\",\"advice\":\"Move Results after Methodology.\"},{\"ref\":\"zz\",\"advice\":\"x\"}],\"summary\":\"Two issues.\"}\n```"}
	cacheDir := t.TempDir()
	a := nopAdvisor(c)
	a.Cache = &cache.LLMCache{Dir: cacheDir}
	adv, err := a.Advise(context.Background(), res, mapping)
	if err != nil {
		t.Fatal(err)
	}
	if len(adv.Notes) != 2 || adv.Notes[0].Source != SourceTemplate || adv.Notes[1].Source != SourceModel {
		t.Fatalf("unexpected notes: %+v", adv.Notes)
	}
	if adv.Notes[1].FindingID != "f2" || adv.Notes[1].RuleID != validate.RuleSectionOrder || adv.Summary != "Two issues." {
		t.Fatalf("unexpected advice: %+v", adv)
	}

	// The second call is served from cache.
	if _, err := a.Advise(context.Background(), res, mapping); err != nil {
		t.Fatal(err)
	}
	if c.calls != 1 {
		t.Fatalf("expected cached response, model called %d times", c.calls)
	}
}

func TestCacheHitsAcrossRuns(t *testing.T) {
	_, mapping := sample()
	mapping.ID, mapping.ReportID, mapping.ReportTypeID = "map-1", "rep-1", "bat-survey-report"
	engine := validate.NewEngine(validate.WithLogger(zerolog.Nop()))
	c := &stubClient{content: `{"notes":[{"ref":"required-sections-present","advice":"Add a Results section."}],"summary":"One gap."}`}
	a := nopAdvisor(c)
	a.Cache = &cache.LLMCache{Dir: t.TempDir()}

	var ids []string
	for run := 0; run < 2; run++ {
		res, err := engine.Validate(context.Background(), mapping)
		if err != nil {
			t.Fatal(err)
		}
		adv, err := a.Advise(context.Background(), res, mapping)
		if err != nil {
			t.Fatal(err)
		}
		current := make(map[string]bool, len(res.Findings))
		for _, f := range res.Findings {
			current[f.ID] = true
		}
		var found bool
		for _, n := range adv.Notes {
			if n.RuleID != validate.RuleRequiredSections {
				continue
			}
			found = n.Source == SourceModel && n.Advice == "Add a Results section."
			if !current[n.FindingID] {
				t.Fatalf("run %d: note not mapped to a current finding: %+v", run, n)
			}
			ids = append(ids, n.FindingID)
		}
		if !found {
			t.Fatalf("run %d: model note missing: %+v", run, adv.Notes)
		}
	}
	if c.calls != 1 {
		t.Fatalf("two identical assessments should call the model once, got %d", c.calls)
	}
	if len(ids) != 2 || ids[0] == ids[1] {
		t.Fatalf("cached notes should map onto each run's finding ids: %v", ids)
	}
}

func TestFindingRefs(t *testing.T) {
	got := findingRefs([]validate.Finding{{RuleID: "a"}, {RuleID: "b"}, {RuleID: "a"}, {RuleID: "a"}})
	want := []string{"a", "b", "a#2", "a#3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("refs=%v want %v", got, want)
		}
	}
}

func TestModelFailureFallsBack(t *testing.T) {
	res, mapping := sample()
	for _, c := range []*stubClient{{err: errors.New("down")}, {content: "not json"}, {content: `{"notes":[]}`}} {
		adv, err := nopAdvisor(c).Advise(context.Background(), res, mapping)
		if err != nil {
			t.Fatal(err)
		}
		for _, n := range adv.Notes {
			if n.Source != SourceTemplate {
				t.Fatalf("expected template notes, got %+v", n)
			}
		}
	}
}

func TestNoFindingsSkipsModel(t *testing.T) {
	c := &stubClient{content: "{}"}
	adv, err := nopAdvisor(c).Advise(context.Background(), &validate.Result{Scores: validate.Scores{Overall: 90}}, nil)
	if err != nil || c.calls != 0 || len(adv.Notes) != 0 {
		t.Fatalf("unexpected: %+v %v calls=%d", adv, err, c.calls)
	}
	if _, err := nopAdvisor(nil).Advise(context.Background(), nil, nil); err == nil {
		t.Fatalf("nil result should error")
	}
}

func TestUserMessageTrimmedToBudget(t *testing.T) {
	res, mapping := sample()
	refs := findingRefs(res.Findings)
	full, dropped := buildUserMessage(res, refs, mapping, 10_000)
	if dropped != 0 || !strings.Contains(full, "ref=section-order") || strings.Contains(full, "f2") || !strings.Contains(full, "Tabulate emergence counts.") {
		t.Fatalf("unexpected full message (dropped=%d):\n%s", dropped, full)
	}

	msg, dropped := buildUserMessage(res, refs, mapping, 0)
	if dropped != 2 || strings.Contains(msg, "ref=required-sections-present") {
		t.Fatalf("findings should be dropped at zero budget (dropped=%d):\n%s", dropped, msg)
	}
	if !strings.Contains(msg, "(2 more findings omitted)") || !strings.Contains(msg, "Missing sections") {
		t.Fatalf("omission note and guidance expected:\n%s", msg)
	}
}
