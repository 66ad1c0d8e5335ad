package detect

import (
	"regexp"
	"strings"

	"github.com/hyperifyio/goassess/internal/report"
)

const contextRadius = 50

// DefaultVocabulary is the ecological and arboricultural term list matched
// by the terminology detector.
var DefaultVocabulary = []string{
	"methodology",
	"bs5837",
	"arboricultural impact assessment",
	"arboricultural method statement",
	"tree survey",
	"tree constraints plan",
	"tree protection plan",
	"root protection area",
	"canopy spread",
	"crown lift",
	"construction exclusion zone",
	"veteran tree",
	"ancient woodland",
	"hedgerow",
	"tree preservation order",
	"conservation area",
	"planning permission",
	"planning condition",
	"preliminary ecological appraisal",
	"ecological impact assessment",
	"phase 1 habitat survey",
	"habitat",
	"protected species",
	"bat roost",
	"preliminary roost assessment",
	"emergence survey",
	"great crested newt",
	"badger sett",
	"breeding birds",
	"reptile",
	"otter",
	"biodiversity net gain",
	"mitigation",
	"enhancement",
	"licence",
	"british standard",
	"guidance",
	"diameter at breast height",
	"dbh",
	"hectare",
}

// TerminologyDetector counts whole-word, case-insensitive occurrences of a
// fixed vocabulary.
type TerminologyDetector struct {
	Vocabulary []string
}

func (TerminologyDetector) Kind() report.DetectorKind { return report.DetectTerminology }

func (d TerminologyDetector) Detect(in Input) (Result, error) {
	var res Result
	for _, term := range d.Vocabulary {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
		if err != nil {
			return Result{}, err
		}
		locs := re.FindAllStringIndex(in.Text, -1)
		if len(locs) == 0 {
			continue
		}
		res.Terms = append(res.Terms, report.TermEntry{
			Term:       term,
			Context:    contextWindow(in.Text, locs[0][0], locs[0][1], contextRadius),
			Frequency:  len(locs),
			Category:   CategorizeTerm(term),
			Confidence: 0.8,
		})
	}
	res.Confidence = detectorConfidence(len(res.Terms) > 0, 0.7, 0.3)
	return res, nil
}

var termCategories = []struct {
	category report.TermCategory
	keys     []string
}{
	{report.TermTechnical, []string{"method", "survey", "assessment", "analysis", "protocol", "arboric", "root", "canopy"}},
	{report.TermLegal, []string{"act", "regulation", "legislation", "law", "legal", "liability", "order", "planning"}},
	{report.TermCompliance, []string{"bs", "standard", "compliance", "guidance", "iso"}},
	{report.TermSpecies, []string{"bat", "newt", "badger", "bird", "species", "habitat", "reptile", "otter"}},
	{report.TermMeasurement, []string{"metre", "meter", "hectare", "diameter", "height", "dbh", "mm", "cm"}},
}

// CategorizeTerm assigns the first category whose keywords the term
// contains, checked in priority order.
func CategorizeTerm(term string) report.TermCategory {
	t := strings.ToLower(term)
	for _, c := range termCategories {
		for _, k := range c.keys {
			if strings.Contains(t, k) {
				return c.category
			}
		}
	}
	return report.TermGeneral
}
