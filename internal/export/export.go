// Package export renders an assessment as Markdown, JSON, PDF or SARIF.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperifyio/goassess/internal/advise"
	"github.com/hyperifyio/goassess/internal/report"
	"github.com/hyperifyio/goassess/internal/schema"
	"github.com/hyperifyio/goassess/internal/validate"
)

// Meta records how an assessment was produced.
type Meta struct {
	Tool        string    `json:"tool"`
	Version     string    `json:"version"`
	Source      string    `json:"source,omitempty"`
	Model       string    `json:"model,omitempty"`
	LLMCache    bool      `json:"llm_cache"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Assessment bundles every stage's output for one input.
type Assessment struct {
	Meta           Meta                     `json:"meta"`
	ReportTypeName string                   `json:"report_type_name,omitempty"`
	Report         *report.DecompiledReport `json:"report"`
	Mapping        *schema.MappingResult    `json:"mapping"`
	Result         *validate.Result         `json:"result"`
	Advice         *advise.Advice           `json:"advice,omitempty"`
}

// Title is the report title, falling back to the report id.
func (a *Assessment) Title() string {
	if a.Report != nil && a.Report.Metadata.Title != "" {
		return a.Report.Metadata.Title
	}
	if a.Report != nil {
		return a.Report.ID
	}
	return "untitled"
}

// WriteJSON writes the whole assessment as indented JSON.
func WriteJSON(w io.Writer, a *Assessment) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}

func (a *Assessment) adviceFor(findingID string) string {
	if a.Advice == nil {
		return ""
	}
	for _, n := range a.Advice.Notes {
		if n.FindingID == findingID {
			return n.Advice
		}
	}
	return ""
}

// Markdown renders a human-readable assessment.
func Markdown(a *Assessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Assessment: %s\n\n", a.Title())

	rep, res, m := a.Report, a.Result, a.Mapping
	if rep != nil {
		fmt.Fprintf(&b, "- Report: %s\n", rep.ID)
		fmt.Fprintf(&b, "- Report type: %s\n", a.typeLabel())
		fmt.Fprintf(&b, "- Format: %s\n", rep.Format)
		fmt.Fprintf(&b, "- Decompilation confidence: %.2f\n", rep.ConfidenceScore)
	}
	if res != nil {
		fmt.Fprintf(&b, "- Overall score: %.1f\n", res.Scores.Overall)
	}

	if res != nil {
		s := res.Scores
		b.WriteString("\n## Scores\n\n| Category | Score |\n|---|---|\n")
		fmt.Fprintf(&b, "| Compliance | %.1f |\n", s.Compliance)
		fmt.Fprintf(&b, "| Quality | %.1f |\n", s.Quality)
		if s.Completeness != nil {
			fmt.Fprintf(&b, "| Completeness | %.1f |\n", *s.Completeness)
		} else {
			b.WriteString("| Completeness | n/a |\n")
		}
		fmt.Fprintf(&b, "| Consistency | %.1f |\n", s.Consistency)
		fmt.Fprintf(&b, "| Overall | %.1f |\n", s.Overall)

		b.WriteString("\n## Findings\n\n")
		if len(res.Findings) == 0 {
			b.WriteString("No findings.\n")
		}
		for i, f := range res.Findings {
			fmt.Fprintf(&b, "### %d. [%s] %s\n\n%s\n", i+1, f.Severity, f.RuleName, f.Description)
			if f.Location != "" {
				fmt.Fprintf(&b, "\nLocation: %s\n", f.Location)
			}
			if adv := a.adviceFor(f.ID); adv != "" {
				fmt.Fprintf(&b, "\nRemediation: %s\n", adv)
			} else if f.Remediation != "" {
				fmt.Fprintf(&b, "\nRemediation: %s\n", f.Remediation)
			}
			b.WriteString("\n")
		}
		if len(res.Violations) > 0 {
			b.WriteString("## Compliance violations\n\n")
			for _, v := range res.Violations {
				fmt.Fprintf(&b, "- %s: %s (%s, %s)\n", v.Standard, v.Requirement, v.Severity, v.Status)
			}
			b.WriteString("\n")
		}
		if a.Advice != nil && a.Advice.Summary != "" {
			fmt.Fprintf(&b, "## Summary\n\n%s\n\n", a.Advice.Summary)
		}
	}

	if m != nil && m.Typed() {
		b.WriteString("## Schema mapping\n\n")
		if len(m.MappedFields) > 0 {
			b.WriteString("| Expected section | Found | Confidence |\n|---|---|---|\n")
			for _, f := range m.MappedFields {
				fmt.Fprintf(&b, "| %s | %s | %.2f |\n", f.Name, f.SectionTitle, f.Confidence)
			}
			b.WriteString("\n")
		}
		list := func(title string, items []string) {
			if len(items) == 0 {
				return
			}
			fmt.Fprintf(&b, "%s:\n\n", title)
			for _, it := range items {
				fmt.Fprintf(&b, "- %s\n", it)
			}
			b.WriteString("\n")
		}
		missing := make([]string, 0, len(m.MissingRequiredSections))
		for _, s := range m.MissingRequiredSections {
			missing = append(missing, s.Name)
		}
		list("Missing required sections", missing)
		list("Unexpected sections", m.ExtraSections)
		list("Unrecognised terminology", m.UnknownTerminology)
	}

	if rep != nil {
		b.WriteString("## Detectors\n\n| Detector | Items | Confidence |\n|---|---|---|\n")
		for _, k := range report.AllDetectors {
			d, ok := rep.Detectors[k]
			if !ok {
				continue
			}
			conf := fmt.Sprintf("%.2f", d.Confidence)
			if d.Failed {
				conf = "failed"
			}
			fmt.Fprintf(&b, "| %s | %d | %s |\n", k, d.Count, conf)
		}
		if len(rep.Warnings) > 0 {
			b.WriteString("\n## Warnings\n\n")
			for _, w := range rep.Warnings {
				fmt.Fprintf(&b, "- %s\n", w)
			}
		}
	}
	return appendFooter(b.String(), a)
}

func (a *Assessment) typeLabel() string {
	if a.Report == nil || !a.Report.Typed() {
		return "undetected"
	}
	label := a.Report.ReportTypeID
	if a.ReportTypeName != "" {
		label = fmt.Sprintf("%s (%s)", a.ReportTypeName, a.Report.ReportTypeID)
	}
	if a.Report.ReportTypeForced {
		return fmt.Sprintf("%s, forced, score %d", label, a.Report.ReportTypeScore)
	}
	return fmt.Sprintf("%s, score %d", label, a.Report.ReportTypeScore)
}

// appendFooter records the tool, model and rule counters for auditing.
func appendFooter(markdown string, a *Assessment) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(markdown, "\n"))
	b.WriteString("\n\n---\n")
	fmt.Fprintf(&b, "Generated by %s %s", a.Meta.Tool, a.Meta.Version)
	if !a.Meta.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, " at %s", a.Meta.GeneratedAt.UTC().Format(time.RFC3339))
	}
	if a.Meta.Model != "" {
		fmt.Fprintf(&b, "; model=%s; llm_cache=%t", a.Meta.Model, a.Meta.LLMCache)
	}
	if a.Result != nil {
		e := a.Result.Execution
		fmt.Fprintf(&b, "; rules executed=%d passed=%d failed=%d skipped=%d", e.Executed, e.Passed, e.Failed, e.Skipped)
	}
	b.WriteString("\n")
	return b.String()
}
