// Package registry holds the report-type definitions that drive type
// detection, schema mapping and rule applicability. Types are declared in
// YAML; a default set is embedded and further files may be loaded from a
// directory and hot-reloaded.
package registry

import (
	"errors"
	"strings"
)

// TemplateKind describes the expected shape of a section's content.
type TemplateKind string

const (
	TemplateHeading   TemplateKind = "heading"
	TemplateParagraph TemplateKind = "paragraph"
	TemplateList      TemplateKind = "list"
	TemplateTable     TemplateKind = "table"
)

// ContentTemplate is an optional hint for how a section is laid out.
type ContentTemplate struct {
	Kind TemplateKind `yaml:"kind" json:"kind"`
	Text string       `yaml:"text,omitempty" json:"text,omitempty"`
}

// SectionDefinition declares one section a report type expects.
type SectionDefinition struct {
	ID              string           `yaml:"id" json:"id"`
	Name            string           `yaml:"name" json:"name"`
	Description     string           `yaml:"description,omitempty" json:"description,omitempty"`
	Template        *ContentTemplate `yaml:"template,omitempty" json:"template,omitempty"`
	ValidationRules []string         `yaml:"validationRules,omitempty" json:"validation_rules,omitempty"`
	AIGuidance      string           `yaml:"aiGuidance,omitempty" json:"ai_guidance,omitempty"`
}

// ComplianceRule names a standard a report type must reference.
type ComplianceRule struct {
	ID          string `yaml:"id" json:"id"`
	Standard    string `yaml:"standard" json:"standard"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// ReportType is one class of report with its expected sections.
type ReportType struct {
	ID                  string              `yaml:"id" json:"id"`
	Name                string              `yaml:"name" json:"name"`
	Description         string              `yaml:"description,omitempty" json:"description,omitempty"`
	Aliases             []string            `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	RequiredSections    []SectionDefinition `yaml:"requiredSections" json:"required_sections"`
	OptionalSections    []SectionDefinition `yaml:"optionalSections,omitempty" json:"optional_sections,omitempty"`
	ConditionalSections []SectionDefinition `yaml:"conditionalSections,omitempty" json:"conditional_sections,omitempty"`
	ComplianceRules     []ComplianceRule    `yaml:"complianceRules,omitempty" json:"compliance_rules,omitempty"`
	Terminology         []string            `yaml:"terminology,omitempty" json:"terminology,omitempty"`
}

// AllSections returns required, optional and conditional definitions in
// declaration order.
func (t ReportType) AllSections() []SectionDefinition {
	out := make([]SectionDefinition, 0, len(t.RequiredSections)+len(t.OptionalSections)+len(t.ConditionalSections))
	out = append(out, t.RequiredSections...)
	out = append(out, t.OptionalSections...)
	out = append(out, t.ConditionalSections...)
	return out
}

// Validate checks the fields the rest of the pipeline relies on.
func (t ReportType) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("report type: id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("report type " + t.ID + ": name is required")
	}
	seen := map[string]bool{}
	for _, s := range t.AllSections() {
		if strings.TrimSpace(s.ID) == "" || strings.TrimSpace(s.Name) == "" {
			return errors.New("report type " + t.ID + ": every section needs an id and a name")
		}
		if seen[s.ID] {
			return errors.New("report type " + t.ID + ": duplicate section id " + s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

// StandardsOverlap reports whether two standard references name the same
// instrument, ignoring case and spaces, by containment either way.
func StandardsOverlap(a, b string) bool {
	x := squash(a)
	y := squash(b)
	if x == "" || y == "" {
		return false
	}
	return strings.Contains(x, y) || strings.Contains(y, x)
}

func squash(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}
