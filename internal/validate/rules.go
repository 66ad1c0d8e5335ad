// Package validate evaluates a schema mapping against a registry of weighted,
// typed rules and scores the result for compliance, quality, completeness
// and consistency.
package validate

import (
	"fmt"
	"strings"
)

// RuleType groups rules for scoring.
type RuleType string

const (
	TypeCompliance       RuleType = "compliance"
	TypeQuality          RuleType = "quality"
	TypeCompleteness     RuleType = "completeness"
	TypeConsistency      RuleType = "consistency"
	TypeTerminology      RuleType = "terminology"
	TypeFormatting       RuleType = "formatting"
	TypeDataQuality      RuleType = "data_quality"
	TypeLogicalCoherence RuleType = "logical_coherence"
)

var ruleTypes = []RuleType{
	TypeCompliance, TypeQuality, TypeCompleteness, TypeConsistency,
	TypeTerminology, TypeFormatting, TypeDataQuality, TypeLogicalCoherence,
}

func (t RuleType) valid() bool {
	for _, v := range ruleTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Severity ranks a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Severities lists severities from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

func (s Severity) valid() bool {
	for _, v := range Severities {
		if v == s {
			return true
		}
	}
	return false
}

// Wildcard in Rule.AppliesTo matches every report type, including untyped
// reports.
const Wildcard = "*"

// Rule is a declarative check. Its behaviour comes from the evaluator
// registered under the same ID.
type Rule struct {
	ID                  string   `json:"id" yaml:"id"`
	Name                string   `json:"name" yaml:"name"`
	Description         string   `json:"description" yaml:"description"`
	Type                RuleType `json:"type" yaml:"type"`
	Severity            Severity `json:"severity" yaml:"severity"`
	AppliesTo           []string `json:"applies_to" yaml:"appliesTo"`
	MessageTemplate     string   `json:"message_template" yaml:"messageTemplate"`
	RemediationTemplate string   `json:"remediation_template,omitempty" yaml:"remediationTemplate,omitempty"`
	Weight              int      `json:"weight" yaml:"weight"`
	AutoFixable         bool     `json:"auto_fixable" yaml:"autoFixable"`
	RequiresReview      bool     `json:"requires_review" yaml:"requiresReview"`
	Enabled             bool     `json:"enabled" yaml:"enabled"`
}

// Applies reports whether the rule should run for reportTypeID.
func (r Rule) Applies(reportTypeID string) bool {
	if !r.Enabled {
		return false
	}
	for _, a := range r.AppliesTo {
		if a == Wildcard || (reportTypeID != "" && a == reportTypeID) {
			return true
		}
	}
	return false
}

func (r Rule) check() error {
	switch {
	case strings.TrimSpace(r.ID) == "":
		return fmt.Errorf("%w: id is required", ErrInvalidRule)
	case r.Weight < 1 || r.Weight > 10:
		return fmt.Errorf("%w: %s weight %d outside 1..10", ErrInvalidRule, r.ID, r.Weight)
	case !r.Type.valid():
		return fmt.Errorf("%w: %s has unknown type %q", ErrInvalidRule, r.ID, r.Type)
	case !r.Severity.valid():
		return fmt.Errorf("%w: %s has unknown severity %q", ErrInvalidRule, r.ID, r.Severity)
	case len(r.AppliesTo) == 0:
		return fmt.Errorf("%w: %s applies to nothing", ErrInvalidRule, r.ID)
	}
	return nil
}

// render fills {rule} and {detail} placeholders.
func (r Rule) render(tpl, detail string) string {
	s := strings.ReplaceAll(tpl, "{rule}", r.Name)
	return strings.ReplaceAll(s, "{detail}", detail)
}

// Default rule identifiers.
const (
	RuleRequiredSections      = "required-sections-present"
	RuleStandardsReferenced   = "compliance-standards-referenced"
	RuleCompletenessThreshold = "completeness-threshold"
	RuleSchemaGapsLimit       = "schema-gaps-limit"
	RuleTerminology           = "terminology-consistency"
	RuleMinimumMapped         = "minimum-mapped-sections"
	RuleMappingConfidence     = "mapping-confidence"
	RuleUnmappedSections      = "unmapped-sections-limit"
	RuleSectionOrder          = "section-order"
)

// DefaultRules returns the rules every engine starts with, in registration
// order.
func DefaultRules() []Rule {
	all := []string{Wildcard}
	return []Rule{
		{
			ID:                  RuleRequiredSections,
			Name:                "Required Sections Present",
			Description:         "Every section the report type requires is present.",
			Type:                TypeCompliance,
			Severity:            SeverityCritical,
			AppliesTo:           all,
			Weight:              10,
			MessageTemplate:     "Missing required sections: {detail}",
			RemediationTemplate: "Add the missing sections: {detail}",
			RequiresReview:      true,
			Enabled:             true,
		},
		{
			ID:                  RuleStandardsReferenced,
			Name:                "Compliance Standards Referenced",
			Description:         "Every standard the report type cites is referenced in the text.",
			Type:                TypeCompliance,
			Severity:            SeverityHigh,
			AppliesTo:           all,
			Weight:              8,
			MessageTemplate:     "Required standards not referenced: {detail}",
			RemediationTemplate: "Reference {detail} where the work relies on it.",
			RequiresReview:      true,
			Enabled:             true,
		},
		{
			ID:                  RuleCompletenessThreshold,
			Name:                "Completeness Threshold",
			Description:         "At least 70% of required sections are present.",
			Type:                TypeCompleteness,
			Severity:            SeverityHigh,
			AppliesTo:           all,
			Weight:              8,
			MessageTemplate:     "Completeness {detail} is below 70%",
			RemediationTemplate: "Complete the missing required sections.",
			Enabled:             true,
		},
		{
			ID:                  RuleSchemaGapsLimit,
			Name:                "Schema Gaps Limit",
			Description:         "Fewer than three structural gaps against the report type.",
			Type:                TypeCompleteness,
			Severity:            SeverityMedium,
			AppliesTo:           all,
			Weight:              6,
			MessageTemplate:     "{detail} schema gaps found",
			RemediationTemplate: "Resolve the listed schema gaps.",
			Enabled:             true,
		},
		{
			ID:                  RuleTerminology,
			Name:                "Terminology Consistency",
			Description:         "Fewer than five terms outside the report type's vocabulary.",
			Type:                TypeTerminology,
			Severity:            SeverityMedium,
			AppliesTo:           all,
			Weight:              5,
			MessageTemplate:     "Terms outside the expected vocabulary: {detail}",
			RemediationTemplate: "Check that {detail} are used as intended for this report type.",
			AutoFixable:         true,
			Enabled:             true,
		},
		{
			ID:                  RuleMinimumMapped,
			Name:                "Minimum Mapped Sections",
			Description:         "At least one section maps onto the report type.",
			Type:                TypeQuality,
			Severity:            SeverityMedium,
			AppliesTo:           all,
			Weight:              6,
			MessageTemplate:     "No sections could be mapped to the report type",
			RemediationTemplate: "Use the section headings the report type expects.",
			Enabled:             true,
		},
		{
			ID:                  RuleMappingConfidence,
			Name:                "Mapping Confidence",
			Description:         "Mapped sections match their definitions with mean confidence of at least 0.6.",
			Type:                TypeDataQuality,
			Severity:            SeverityLow,
			AppliesTo:           all,
			Weight:              4,
			MessageTemplate:     "Mean mapping confidence {detail} is below 0.60",
			RemediationTemplate: "Rename headings to match the expected section names.",
			AutoFixable:         true,
			Enabled:             true,
		},
		{
			ID:                  RuleUnmappedSections,
			Name:                "Unmapped Sections Limit",
			Description:         "Fewer than five headings fall outside the report type.",
			Type:                TypeConsistency,
			Severity:            SeverityLow,
			AppliesTo:           all,
			Weight:              3,
			MessageTemplate:     "Headings not expected for this report type: {detail}",
			RemediationTemplate: "Fold unexpected headings into expected sections or an appendix.",
			Enabled:             true,
		},
		{
			ID:                  RuleSectionOrder,
			Name:                "Section Order",
			Description:         "Required sections appear in the order the report type declares.",
			Type:                TypeLogicalCoherence,
			Severity:            SeverityLow,
			AppliesTo:           all,
			Weight:              4,
			MessageTemplate:     "Sections out of order: {detail}",
			RemediationTemplate: "Reorder sections to follow the report type.",
			AutoFixable:         true,
			Enabled:             true,
		},
	}
}
