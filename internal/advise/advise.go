// Package advise turns validation findings into remediation notes. A chat
// model is used when configured; otherwise notes come from the rules'
// remediation templates and the section guidance of the report type.
package advise

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/goassess/internal/budget"
	"github.com/hyperifyio/goassess/internal/cache"
	"github.com/hyperifyio/goassess/internal/llm"
	"github.com/hyperifyio/goassess/internal/schema"
	"github.com/hyperifyio/goassess/internal/validate"
)

// reservedOutputTokens is kept free for the model's reply.
const reservedOutputTokens = 1024

// Note sources.
const (
	SourceModel    = "llm"
	SourceTemplate = "template"
)

// Note is the remediation advice for one finding.
type Note struct {
	FindingID string `json:"finding_id"`
	RuleID    string `json:"rule_id"`
	Advice    string `json:"advice"`
	Source    string `json:"source"`
}

// Advice is the advisor output for one validation result.
type Advice struct {
	Notes   []Note `json:"notes"`
	Summary string `json:"summary"`
}

// Advisor produces remediation notes.
type Advisor struct {
	Client llm.Client
	Cache  *cache.LLMCache
	Model  string
	// SystemPrompt, when non-empty, overrides the default system message.
	SystemPrompt string
	Logger       *zerolog.Logger
}

func (a *Advisor) logger() *zerolog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return &log.Logger
}

// Advise returns one note per finding. Model failures fall back to the
// deterministic notes and are not returned as errors.
func (a *Advisor) Advise(ctx context.Context, res *validate.Result, mapping *schema.MappingResult) (Advice, error) {
	if res == nil {
		return Advice{}, fmt.Errorf("advise: result is nil")
	}
	fallback := fallbackAdvice(res, mapping)
	if len(res.Findings) == 0 || a.Client == nil || strings.TrimSpace(a.Model) == "" {
		return fallback, nil
	}

	sys := buildSystemMessage()
	if strings.TrimSpace(a.SystemPrompt) != "" {
		sys = a.SystemPrompt
	}
	refs := findingRefs(res.Findings)
	user, dropped := buildUserMessage(res, refs, mapping, budget.Remaining(a.Model, reservedOutputTokens, budget.EstimateTokens(sys)))
	if dropped > 0 {
		a.logger().Debug().Int("dropped", dropped).Str("model", a.Model).Msg("findings trimmed to fit the model context")
	}
	creq := cache.Request{Model: a.Model, System: sys, User: user}
	if a.Cache != nil {
		if raw, ok, _ := a.Cache.Lookup(ctx, creq); ok {
			if adv, ok := parseAdvice(raw, res, refs); ok {
				return merge(adv, fallback), nil
			}
		}
	}

	req := openai.ChatCompletionRequest{
		Model: a.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: sys},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.0,
		N:           1,
	}
	resp, err := a.Client.CreateChatCompletion(ctx, req)
	if err != nil || len(resp.Choices) == 0 {
		a.logger().Warn().Err(err).Msg("remediation model unavailable; using templates")
		return fallback, nil
	}
	raw := []byte(stripFences(resp.Choices[0].Message.Content))
	adv, ok := parseAdvice(raw, res, refs)
	if !ok {
		a.logger().Warn().Msg("remediation model returned unusable JSON; using templates")
		return fallback, nil
	}
	if a.Cache != nil {
		if err := a.Cache.Store(ctx, creq, raw); err != nil {
			a.logger().Debug().Err(err).Msg("remediation reply not cached")
		}
	}
	return merge(adv, fallback), nil
}

func buildSystemMessage() string {
	return "You are a report compliance reviewer. Respond with strict JSON only: {\"notes\":[{\"ref\":string,\"advice\":string}],\"summary\":string}, where ref is the finding's ref. Write one short, concrete remediation note per finding, addressed to the report author. Do not invent findings."
}

// findingRefs names each finding by its rule id, with a "#n" suffix from
// the second finding of a rule on. Finding ids change on every run; refs
// do not, which keeps prompts and cache keys stable.
func findingRefs(findings []validate.Finding) []string {
	seen := make(map[string]int, len(findings))
	out := make([]string, len(findings))
	for i, f := range findings {
		seen[f.RuleID]++
		out[i] = f.RuleID
		if n := seen[f.RuleID]; n > 1 {
			out[i] = fmt.Sprintf("%s#%d", f.RuleID, n)
		}
	}
	return out
}

// buildUserMessage lists findings and missing-section guidance, dropping
// trailing findings that do not fit in limit tokens.
func buildUserMessage(res *validate.Result, refs []string, mapping *schema.MappingResult, limit int) (string, int) {
	var head strings.Builder
	if res.ReportTypeID != "" {
		fmt.Fprintf(&head, "Report type: %s\n", res.ReportTypeID)
	}
	fmt.Fprintf(&head, "Overall score: %.1f\n\nFindings:\n", res.Scores.Overall)

	var tail strings.Builder
	if mapping != nil && len(mapping.MissingRequiredSections) > 0 {
		tail.WriteString("\nMissing sections and authoring guidance:\n")
		for _, m := range mapping.MissingRequiredSections {
			fmt.Fprintf(&tail, "- %s: %s\n", m.Name, m.AIGuidance)
		}
	}

	lines := make([]string, 0, len(res.Findings))
	for i, f := range res.Findings {
		line := fmt.Sprintf("- ref=%s severity=%s rule=%q: %s", refs[i], f.Severity, f.RuleName, f.Description)
		if f.Remediation != "" {
			line += fmt.Sprintf(" (suggested: %s)", f.Remediation)
		}
		lines = append(lines, line)
	}
	kept := budget.FitLines(lines, limit-budget.EstimateTokens(head.String())-budget.EstimateTokens(tail.String()))

	var sb strings.Builder
	sb.WriteString(head.String())
	for _, l := range kept {
		sb.WriteString(l + "\n")
	}
	if dropped := len(lines) - len(kept); dropped > 0 {
		fmt.Fprintf(&sb, "(%d more findings omitted)\n", dropped)
	}
	sb.WriteString(tail.String())
	return sb.String(), len(lines) - len(kept)
}

// stripFences removes a Markdown code fence around a JSON reply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// modelReply is the JSON shape the model is asked for.
type modelReply struct {
	Notes []struct {
		Ref    string `json:"ref"`
		Advice string `json:"advice"`
	} `json:"notes"`
	Summary string `json:"summary"`
}

// parseAdvice maps the model's notes back onto the current findings by
// ref, dropping notes for unknown refs.
func parseAdvice(raw []byte, res *validate.Result, refs []string) (Advice, bool) {
	var r modelReply
	if err := json.Unmarshal(raw, &r); err != nil {
		return Advice{}, false
	}
	byRef := make(map[string]validate.Finding, len(refs))
	for i, ref := range refs {
		byRef[ref] = res.Findings[i]
	}
	adv := Advice{Summary: strings.TrimSpace(r.Summary)}
	for _, n := range r.Notes {
		f, ok := byRef[strings.TrimSpace(n.Ref)]
		text := strings.TrimSpace(n.Advice)
		if !ok || text == "" {
			continue
		}
		adv.Notes = append(adv.Notes, Note{FindingID: f.ID, RuleID: f.RuleID, Advice: text, Source: SourceModel})
	}
	return adv, len(adv.Notes) > 0
}

// merge orders notes by finding and fills findings the model skipped from
// the fallback.
func merge(model, fallback Advice) Advice {
	byID := make(map[string]Note, len(model.Notes))
	for _, n := range model.Notes {
		byID[n.FindingID] = n
	}
	out := Advice{Summary: model.Summary, Notes: make([]Note, 0, len(fallback.Notes))}
	for _, n := range fallback.Notes {
		if m, ok := byID[n.FindingID]; ok {
			n = m
		}
		out.Notes = append(out.Notes, n)
	}
	if out.Summary == "" {
		out.Summary = fallback.Summary
	}
	return out
}

func fallbackAdvice(res *validate.Result, mapping *schema.MappingResult) Advice {
	notes := make([]Note, 0, len(res.Findings))
	for _, f := range res.Findings {
		advice := f.Remediation
		if advice == "" {
			advice = f.Description
		}
		if f.RuleID == validate.RuleRequiredSections && mapping != nil {
			for _, m := range mapping.MissingRequiredSections {
				if m.AIGuidance != "" {
					advice += fmt.Sprintf(" %s: %s", m.Name, m.AIGuidance)
				}
			}
		}
		notes = append(notes, Note{FindingID: f.ID, RuleID: f.RuleID, Advice: strings.TrimSpace(advice), Source: SourceTemplate})
	}
	return Advice{Notes: notes, Summary: summarize(res)}
}

func summarize(res *validate.Result) string {
	if len(res.Findings) == 0 {
		return fmt.Sprintf("No findings; overall score %.1f.", res.Scores.Overall)
	}
	serious := res.Scores.BySeverity[validate.SeverityCritical] + res.Scores.BySeverity[validate.SeverityHigh]
	return fmt.Sprintf("%d findings, %d critical or high; overall score %.1f.", len(res.Findings), serious, res.Scores.Overall)
}
