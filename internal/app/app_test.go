package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/goassess/internal/export"
	"github.com/hyperifyio/goassess/internal/report"
	"github.com/hyperifyio/goassess/internal/store"
	"github.com/hyperifyio/goassess/internal/validate"
)

const arbReport = "# Introduction\nThis is the intro.\n\n# Methodology\nWe used BS5837:2012."

func newTestApp(t *testing.T, cfg Config, opts ...Option) *App {
	t.Helper()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	base := []Option{WithLogger(zerolog.Nop()), WithClock(func() time.Time { return fixed })}
	a, err := New(context.Background(), cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestAssessPersistsAndScores(t *testing.T) {
	mem := store.NewMemory()
	a := newTestApp(t, DefaultConfig(), WithStore(mem))
	ctx := context.Background()

	got, err := a.Assess(ctx, arbReport, report.FormatMarkdown)
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if got.Report.ReportTypeID != "arboricultural-impact-assessment" || got.ReportTypeName != "Arboricultural Impact Assessment" {
		t.Fatalf("type: %q %q", got.Report.ReportTypeID, got.ReportTypeName)
	}
	if got.Result.Status != validate.StatusCompleted || len(got.Result.Findings) == 0 {
		t.Fatalf("unexpected result: %+v", got.Result)
	}
	if got.Advice != nil {
		t.Fatalf("advice must be off by default")
	}
	if got.Meta.Tool != ToolName || !got.Meta.GeneratedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("meta: %+v", got.Meta)
	}

	list, err := a.Reports().List(ctx)
	if err != nil || len(list) != 1 || list[0].ID != got.Report.ID {
		t.Fatalf("stored reports: %v %+v", err, list)
	}
	again, err := a.Revalidate(ctx, got.Report.ID)
	if err != nil {
		t.Fatalf("Revalidate: %v", err)
	}
	if again.Result.Scores.Overall != got.Result.Scores.Overall {
		t.Fatalf("revalidated score %v != %v", again.Result.Scores.Overall, got.Result.Scores.Overall)
	}
	if _, err := a.Revalidate(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestAssessForcedTypeAndBadFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReportType = "bat-survey-report"
	a := newTestApp(t, cfg, WithStore(store.NewMemory()))
	got, err := a.Assess(context.Background(), arbReport, report.FormatMarkdown)
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if got.Report.ReportTypeID != "bat-survey-report" {
		t.Fatalf("type=%q", got.Report.ReportTypeID)
	}
	if _, err := a.Assess(context.Background(), arbReport, report.Format("docx")); err == nil {
		t.Fatalf("unknown format should be rejected")
	}
}

func TestAssessForcedTypeByAlias(t *testing.T) {
	a := newTestApp(t, DefaultConfig(), WithStore(store.NewMemory()))
	got, err := a.AssessAs(context.Background(), arbReport, report.FormatMarkdown, "aia")
	if err != nil {
		t.Fatalf("AssessAs: %v", err)
	}
	if got.Report.ReportTypeID != "arboricultural-impact-assessment" || !got.Report.ReportTypeForced || len(got.Report.Warnings) != 0 {
		t.Fatalf("alias not resolved: type=%q forced=%t warnings=%v", got.Report.ReportTypeID, got.Report.ReportTypeForced, got.Report.Warnings)
	}
	if got.ReportTypeName != "Arboricultural Impact Assessment" || got.Result.Scores.Completeness == nil {
		t.Fatalf("alias-forced report should map as typed: %q %+v", got.ReportTypeName, got.Result.Scores)
	}
}

func TestRuleOverridesSurviveRestart(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	a := newTestApp(t, DefaultConfig(), WithStore(mem))
	if err := a.SetRuleEnabled(ctx, validate.RuleSectionOrder, false); err != nil {
		t.Fatalf("SetRuleEnabled: %v", err)
	}
	if err := a.SetRuleEnabled(ctx, "no-such-rule", false); err == nil {
		t.Fatalf("unknown rule should error")
	}

	b := newTestApp(t, DefaultConfig(), WithStore(mem))
	r, ok := b.Engine().Rule(validate.RuleSectionOrder)
	if !ok || r.Enabled {
		t.Fatalf("override not reapplied: %+v", r)
	}
}

func TestRegistryDirAddsTypes(t *testing.T) {
	dir := t.TempDir()
	def := "id: hedge-report\nname: Hedge Report\nrequiredSections:\n  - id: intro\n    name: Introduction\n"
	if err := os.WriteFile(filepath.Join(dir, "hedge.yaml"), []byte(def), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.RegistryDir = dir
	a := newTestApp(t, cfg, WithStore(store.NewMemory()))
	if _, ok := a.Registry().Get("hedge-report"); !ok {
		t.Fatalf("type from registry dir not loaded")
	}
}

type stubClient struct {
	calls int
	err   error
}

func (s *stubClient) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.calls++
	return openai.ChatCompletionResponse{}, s.err
}

func TestAssessWithAdvisorFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Advise = true
	cfg.LLMAPIKey = "test"
	cfg.CacheDir = t.TempDir()
	stub := &stubClient{err: errors.New("offline")}
	a := newTestApp(t, cfg, WithStore(store.NewMemory()), WithLLMClient(stub))

	got, err := a.Assess(context.Background(), arbReport, report.FormatMarkdown)
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if stub.calls != 1 {
		t.Fatalf("model calls=%d", stub.calls)
	}
	if got.Advice == nil || len(got.Advice.Notes) != len(got.Result.Findings) {
		t.Fatalf("advice: %+v", got.Advice)
	}
	if got.Meta.Model != DefaultLLMModel || !got.Meta.LLMCache {
		t.Fatalf("meta: %+v", got.Meta)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(context.Background(), Config{StoreBackend: "postgres"}, WithLogger(zerolog.Nop()))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("want ErrInvalidConfig, got %v", err)
	}
}

func TestCheckThreshold(t *testing.T) {
	res := &validate.Result{Status: validate.StatusCompleted}
	res.Scores.Overall = 64.5
	if err := CheckThreshold(res, 0); err != nil {
		t.Fatalf("disabled threshold: %v", err)
	}
	if err := CheckThreshold(res, 60); err != nil {
		t.Fatalf("above threshold: %v", err)
	}
	if err := CheckThreshold(res, 70); !errors.Is(err, ErrBelowThreshold) {
		t.Fatalf("want ErrBelowThreshold, got %v", err)
	}
	res.Status = validate.StatusFailed
	if err := CheckThreshold(res, 0); !errors.Is(err, ErrBelowThreshold) {
		t.Fatalf("failed status must not pass: %v", err)
	}
	if err := CheckThreshold(nil, 0); !errors.Is(err, ErrBelowThreshold) {
		t.Fatalf("nil result must not pass: %v", err)
	}
}

func TestReadInputAndWriteOutputs(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "report.html")
	page := "<html><head><title>Site Report</title></head><body><h1>Introduction</h1><p>Trees were surveyed to BS 5837.</p></body></html>"
	if err := os.WriteFile(in, []byte(page), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.InputPath = in
	input, err := ReadInput(cfg, strings.NewReader(""))
	if err != nil {
		t.Fatalf("ReadInput: %v", err)
	}
	if input.Format != report.FormatMarkdown || !strings.Contains(input.Text, "# Introduction") {
		t.Fatalf("html input: %+v", input)
	}

	cfg.InputPath = "-"
	cfg.Format = string(report.FormatText)
	input, err = ReadInput(cfg, strings.NewReader("pasted body"))
	if err != nil || input.Format != report.FormatText || input.Text != "pasted body" {
		t.Fatalf("stdin input: %v %+v", err, input)
	}

	a := newTestApp(t, DefaultConfig(), WithStore(store.NewMemory()))
	got, err := a.Assess(context.Background(), arbReport, report.FormatMarkdown)
	if err != nil {
		t.Fatal(err)
	}
	out := Config{
		OutputPath:      filepath.Join(dir, "out", "report.md"),
		OutputJSONPath:  filepath.Join(dir, "out", "report.json"),
		OutputSARIFPath: filepath.Join(dir, "out", "report.sarif"),
	}
	if err := WriteOutputs(out, got, nil); err != nil {
		t.Fatalf("WriteOutputs: %v", err)
	}
	for _, p := range []string{out.OutputPath, out.OutputJSONPath, out.OutputSARIFPath} {
		if fi, err := os.Stat(p); err != nil || fi.Size() == 0 {
			t.Fatalf("%s not written: %v", p, err)
		}
	}
	var buf strings.Builder
	if err := WriteOutputs(Config{OutputPath: "-"}, got, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "## Scores") {
		t.Fatalf("stdout markdown missing scores:\n%s", buf.String())
	}
}

func TestWatchable(t *testing.T) {
	cases := map[string]bool{
		"/r/site.md":            true,
		"/r/site.HTML":          true,
		"/r/notes.txt":          true,
		"/r/site.assessment.md": false,
		"/r/.site.md.swp":       false,
		"/r/site.json":          false,
	}
	for p, want := range cases {
		if got := Watchable(p); got != want {
			t.Fatalf("Watchable(%q)=%v want %v", p, got, want)
		}
	}
}

func TestWatchDirAssessesNewFiles(t *testing.T) {
	dir := t.TempDir()
	a := newTestApp(t, DefaultConfig(), WithStore(store.NewMemory()))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	type seen struct {
		path string
		res  *export.Assessment
		err  error
	}
	done := make(chan seen, 8)
	errc := make(chan error, 1)
	go func() {
		errc <- a.WatchDir(ctx, dir, 50*time.Millisecond, func(path string, res *export.Assessment, err error) {
			done <- seen{path, res, err}
		})
	}()

	target := filepath.Join(dir, "site.md")
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			if err := os.WriteFile(target, []byte(arbReport), 0o600); err != nil {
				t.Fatal(err)
			}
		case s := <-done:
			if s.path != target || s.err != nil || s.res == nil || s.res.Meta.Source != target {
				t.Fatalf("unexpected watch result: %+v", s)
			}
			cancel()
			if err := <-errc; err != nil {
				t.Fatalf("WatchDir: %v", err)
			}
			return
		case err := <-errc:
			t.Fatalf("WatchDir returned early: %v", err)
		case <-ctx.Done():
			t.Fatalf("no assessment before timeout")
		}
	}
}
