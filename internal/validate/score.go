package validate

import "math"

// Scores bundles the category scores of a Result. All scores are in
// [0,100]. Completeness is nil when the mapping did not compute it.
type Scores struct {
	Compliance   float64              `json:"compliance"`
	Quality      float64              `json:"quality"`
	Completeness *float64             `json:"completeness,omitempty"`
	Consistency  float64              `json:"consistency"`
	Overall      float64              `json:"overall"`
	ByType       map[RuleType]float64 `json:"by_type"`
	BySeverity   map[Severity]int     `json:"by_severity"`
}

const (
	complianceBase    = 80.0
	compliancePenalty = 10.0
	qualityBase       = 85.0
	qualityPenalty    = 5.0
	consistencyBase   = 90.0
	consistencyStep   = 15.0

	weightCompliance   = 0.35
	weightQuality      = 0.30
	weightCompleteness = 0.20
	weightConsistency  = 0.15
)

func score(res *Result, applicable []boundRule, completeness *float64) Scores {
	s := Scores{
		ByType:     map[RuleType]float64{},
		BySeverity: map[Severity]int{},
	}
	for _, sev := range Severities {
		s.BySeverity[sev] = 0
	}
	consistencyFindings := 0
	for _, f := range res.Findings {
		s.BySeverity[f.Severity]++
		if f.Type == TypeConsistency {
			consistencyFindings++
		}
	}

	// Every type with an applicable rule gets the engine-wide pass ratio.
	ratio := 1.0
	if n := res.Execution.Executed; n > 0 {
		ratio = float64(res.Execution.Passed) / float64(n)
	}
	complianceApplied := false
	for _, br := range applicable {
		s.ByType[br.rule.Type] = ratio * 100
		if br.rule.Type == TypeCompliance {
			complianceApplied = true
		}
	}

	s.Compliance = 100
	if complianceApplied {
		s.Compliance = math.Max(0, complianceBase-compliancePenalty*float64(len(res.Violations)))
	}
	s.Quality = math.Max(0, qualityBase-qualityPenalty*float64(len(res.QualityIssues)))
	s.Consistency = math.Max(0, consistencyBase-consistencyStep*float64(consistencyFindings))
	if completeness != nil {
		c := *completeness
		s.Completeness = &c
	}
	s.Overall = Overall(s.Compliance, s.Quality, s.Completeness, s.Consistency)
	return s
}

// Overall combines category scores with weights 0.35, 0.30, 0.20 and 0.15,
// normalised over the components that were computed.
func Overall(compliance, quality float64, completeness *float64, consistency float64) float64 {
	sum := weightCompliance*compliance + weightQuality*quality + weightConsistency*consistency
	weights := weightCompliance + weightQuality + weightConsistency
	if completeness != nil {
		sum += weightCompleteness * *completeness
		weights += weightCompleteness
	}
	return sum / weights
}
