package detect

import (
	"regexp"
	"strings"

	"github.com/hyperifyio/goassess/internal/report"
)

// CompliancePattern maps a reference pattern to the standard it names.
// When Standard is empty the matched text, upper-cased and with spaces
// and the year suffix removed, is used.
type CompliancePattern struct {
	Re       *regexp.Regexp
	Standard string
	Type     report.MarkerType
}

// DefaultCompliancePatterns covers British and ISO standard codes and the
// UK instruments that ecological and arboricultural reports cite.
var DefaultCompliancePatterns = []CompliancePattern{
	{Re: regexp.MustCompile(`(?i)\bBS\s?\d{4,5}(?::\d{4})?\b`), Type: report.MarkerBritishStandard},
	{Re: regexp.MustCompile(`(?i)\bISO\s?\d{4,5}(?::\d{4})?\b`), Type: report.MarkerISOStandard},
	{Re: regexp.MustCompile(`(?i)\bWildlife and Countryside Act(?:\s+1981)?`), Standard: "Wildlife and Countryside Act 1981", Type: report.MarkerLegislation},
	{Re: regexp.MustCompile(`(?i)\bConservation of Habitats and Species Regulations(?:\s+\d{4})?`), Standard: "Conservation of Habitats and Species Regulations", Type: report.MarkerLegislation},
	{Re: regexp.MustCompile(`(?i)\bNatural Environment and Rural Communities Act(?:\s+2006)?|\bNERC Act\b`), Standard: "NERC Act 2006", Type: report.MarkerLegislation},
	{Re: regexp.MustCompile(`(?i)\bTown and Country Planning Act(?:\s+\d{4})?`), Standard: "Town and Country Planning Act", Type: report.MarkerLegislation},
	{Re: regexp.MustCompile(`(?i)\bNational Planning Policy Framework\b|\bNPPF\b`), Standard: "NPPF", Type: report.MarkerPolicy},
	{Re: regexp.MustCompile(`(?i)\bEnvironment Act(?:\s+2021)?`), Standard: "Environment Act 2021", Type: report.MarkerLegislation},
	{Re: regexp.MustCompile(`(?i)\bProtection of Badgers Act(?:\s+1992)?`), Standard: "Protection of Badgers Act 1992", Type: report.MarkerLegislation},
	{Re: regexp.MustCompile(`(?i)\bCIEEM\b(?:\s+guidelines)?`), Standard: "CIEEM", Type: report.MarkerGuidance},
}

// ComplianceDetector records references to standards and regulations.
type ComplianceDetector struct {
	Patterns []CompliancePattern
}

func (ComplianceDetector) Kind() report.DetectorKind { return report.DetectCompliance }

func (d ComplianceDetector) Detect(in Input) (Result, error) {
	var res Result
	for _, p := range d.Patterns {
		for _, loc := range p.Re.FindAllStringIndex(in.Text, -1) {
			text := in.Text[loc[0]:loc[1]]
			standard := p.Standard
			if standard == "" {
				standard = codeStandard(text)
			}
			res.Markers = append(res.Markers, report.ComplianceMarker{
				Standard:   standard,
				Text:       text,
				Type:       p.Type,
				Context:    contextWindow(in.Text, loc[0], loc[1], contextRadius),
				Line:       lineAt(in.Text, loc[0]),
				Confidence: 0.8,
			})
		}
	}
	res.Confidence = detectorConfidence(len(res.Markers) > 0, 0.7, 0.3)
	return res, nil
}

// codeStandard turns "BS 5837:2012" into "BS5837".
func codeStandard(text string) string {
	s := strings.ToUpper(strings.ReplaceAll(text, " ", ""))
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	return s
}
