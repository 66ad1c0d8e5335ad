package validate

import (
	"fmt"
	"strings"

	"github.com/hyperifyio/goassess/internal/schema"
)

// Outcome is what an evaluator reports for one rule.
type Outcome struct {
	Passed bool
	// Detail fills the {detail} placeholder of the rule's templates.
	Detail     string
	Location   string
	Standard   string
	Confidence float64
}

// Evaluator decides one rule against a mapping result.
type Evaluator func(*schema.MappingResult) (Outcome, error)

// Rule thresholds.
const (
	minCompleteness      = 70.0
	maxSchemaGaps        = 3
	maxUnknownTerms      = 5
	minMappingConfidence = 0.6
	maxExtraSections     = 5
)

func pass() (Outcome, error) { return Outcome{Passed: true, Confidence: 1}, nil }

func fail(detail string) (Outcome, error) {
	return Outcome{Detail: detail, Confidence: 1}, nil
}

// DefaultEvaluators returns the evaluators for DefaultRules keyed by rule id.
func DefaultEvaluators() map[string]Evaluator {
	return map[string]Evaluator{
		RuleRequiredSections:      requiredSections,
		RuleStandardsReferenced:   standardsReferenced,
		RuleCompletenessThreshold: completenessThreshold,
		RuleSchemaGapsLimit:       schemaGapsLimit,
		RuleTerminology:           terminologyConsistency,
		RuleMinimumMapped:         minimumMapped,
		RuleMappingConfidence:     mappingConfidence,
		RuleUnmappedSections:      unmappedSections,
		RuleSectionOrder:          sectionOrder,
	}
}

func requiredSections(m *schema.MappingResult) (Outcome, error) {
	if len(m.MissingRequiredSections) == 0 {
		return pass()
	}
	names := make([]string, 0, len(m.MissingRequiredSections))
	for _, s := range m.MissingRequiredSections {
		names = append(names, s.Name)
	}
	return fail(strings.Join(names, ", "))
}

func standardsReferenced(m *schema.MappingResult) (Outcome, error) {
	var missing []string
	for _, g := range m.SchemaGaps {
		if g.Kind == schema.GapMissingStandard {
			missing = append(missing, g.Target)
		}
	}
	if len(missing) == 0 {
		return pass()
	}
	o, err := fail(strings.Join(missing, ", "))
	o.Standard = missing[0]
	return o, err
}

func completenessThreshold(m *schema.MappingResult) (Outcome, error) {
	c := m.CompletenessScore
	if c == nil || *c >= minCompleteness {
		return pass()
	}
	return fail(fmt.Sprintf("%.0f%%", *c))
}

func schemaGapsLimit(m *schema.MappingResult) (Outcome, error) {
	if len(m.SchemaGaps) < maxSchemaGaps {
		return pass()
	}
	return fail(fmt.Sprintf("%d", len(m.SchemaGaps)))
}

func terminologyConsistency(m *schema.MappingResult) (Outcome, error) {
	if len(m.UnknownTerminology) < maxUnknownTerms {
		return pass()
	}
	return fail(strings.Join(m.UnknownTerminology, ", "))
}

func minimumMapped(m *schema.MappingResult) (Outcome, error) {
	if !m.Typed() || len(m.MappedFields) > 0 {
		return pass()
	}
	return fail("")
}

func mappingConfidence(m *schema.MappingResult) (Outcome, error) {
	if len(m.MappedFields) == 0 {
		return pass()
	}
	sum := 0.0
	for _, f := range m.MappedFields {
		sum += f.Confidence
	}
	mean := sum / float64(len(m.MappedFields))
	if mean >= minMappingConfidence {
		return pass()
	}
	o, err := fail(fmt.Sprintf("%.2f", mean))
	o.Confidence = mean
	return o, err
}

func unmappedSections(m *schema.MappingResult) (Outcome, error) {
	if len(m.ExtraSections) < maxExtraSections {
		return pass()
	}
	return fail(strings.Join(m.ExtraSections, ", "))
}

// sectionOrder relies on the mapper listing required fields in declaration
// order.
func sectionOrder(m *schema.MappingResult) (Outcome, error) {
	var prev *schema.MappedField
	for i := range m.MappedFields {
		f := &m.MappedFields[i]
		if !f.Required {
			continue
		}
		if prev != nil && f.StartLine < prev.StartLine {
			o, err := fail(fmt.Sprintf("%q appears before %q", f.Name, prev.Name))
			o.Location = fmt.Sprintf("line %d", f.StartLine)
			return o, err
		}
		prev = f
	}
	return pass()
}
