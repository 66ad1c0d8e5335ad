package export

import (
	"io"
	"regexp"
	"strconv"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/hyperifyio/goassess/internal/validate"
)

const informationURI = "https://github.com/hyperifyio/goassess"

var lineRe = regexp.MustCompile(`line (\d+)`)

// SARIF converts validation findings into a SARIF 2.1.0 log with one run.
// Every registered rule that fired becomes a reporting descriptor.
func SARIF(a *Assessment) (*sarif.Report, error) {
	rep, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, err
	}
	run := sarif.NewRunWithInformationURI(a.Meta.Tool, informationURI)
	if a.Meta.Version != "" {
		v := a.Meta.Version
		run.Tool.Driver.SemanticVersion = &v
	}
	uri := a.Meta.Source
	if uri == "" && a.Report != nil {
		uri = a.Report.ID
	}
	if a.Result != nil {
		for _, f := range a.Result.Findings {
			level := sarifLevel(f.Severity)
			rule := run.AddRule(f.RuleID).
				WithDescription(f.RuleName).
				WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: level})

			region := sarif.NewRegion().WithStartLine(1)
			if m := lineRe.FindStringSubmatch(f.Location); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
					region = sarif.NewRegion().WithStartLine(n)
				}
			}
			location := sarif.NewLocation().WithPhysicalLocation(
				sarif.NewPhysicalLocation().
					WithArtifactLocation(sarif.NewArtifactLocation().WithUri(uri)).
					WithRegion(region),
			)
			result := sarif.NewRuleResult(rule.ID).
				WithMessage(sarif.NewTextMessage(f.Description)).
				WithLevel(level).
				WithLocations([]*sarif.Location{location})
			run.AddResult(result)
		}
	}
	rep.AddRun(run)
	return rep, nil
}

// WriteSARIF writes the SARIF log as indented JSON.
func WriteSARIF(w io.Writer, a *Assessment) error {
	rep, err := SARIF(a)
	if err != nil {
		return err
	}
	return rep.PrettyWrite(w)
}

func sarifLevel(s validate.Severity) string {
	switch s {
	case validate.SeverityCritical, validate.SeverityHigh:
		return "error"
	case validate.SeverityMedium:
		return "warning"
	case validate.SeverityLow, validate.SeverityInfo:
		return "note"
	default:
		return "none"
	}
}
