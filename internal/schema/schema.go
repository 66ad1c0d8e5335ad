// Package schema maps the sections of a decompiled report onto the section
// definitions of its report type and records what is missing, extra or
// unrecognised.
package schema

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goassess/internal/registry"
	"github.com/hyperifyio/goassess/internal/report"
)

// MatchThreshold is the lowest match score that maps a section.
const MatchThreshold = 0.5

// weakMapping marks a mapped field as a schema gap.
const weakMapping = 0.7

// MappedField is a definition with the section that best matched it.
type MappedField struct {
	DefinitionID string  `json:"definition_id"`
	Name         string  `json:"name"`
	Required     bool    `json:"required"`
	SectionID    string  `json:"section_id"`
	SectionTitle string  `json:"section_title"`
	StartLine    int     `json:"start_line"`
	Confidence   float64 `json:"confidence"`
}

// GapKind classifies a schema gap.
type GapKind string

const (
	GapMissingStandard GapKind = "missing_standard"
	GapWeakMapping     GapKind = "weak_mapping"
	GapTemplate        GapKind = "template_mismatch"
)

// SchemaGap is a structural shortfall that is not a missing section.
type SchemaGap struct {
	Kind        GapKind `json:"kind"`
	Target      string  `json:"target"`
	Description string  `json:"description"`
}

// MissingSection names a required definition no section matched.
type MissingSection struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	AIGuidance string `json:"ai_guidance,omitempty"`
}

// MappingResult is the schema mapper's output and the validation input.
type MappingResult struct {
	ID                      string           `json:"id"`
	ReportID                string           `json:"report_id"`
	ReportTypeID            string           `json:"report_type_id,omitempty"`
	MappedFields            []MappedField    `json:"mapped_fields"`
	MissingRequiredSections []MissingSection `json:"missing_required_sections"`
	ExtraSections           []string         `json:"extra_sections"`
	UnknownTerminology      []string         `json:"unknown_terminology"`
	SchemaGaps              []SchemaGap      `json:"schema_gaps"`
	ComplianceReferences    []string         `json:"compliance_references"`
	RequiredStandards       []string         `json:"required_standards"`
	// CompletenessScore is nil for untyped reports.
	CompletenessScore *float64  `json:"completeness_score,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Typed reports whether the mapping was made against a report type.
func (m *MappingResult) Typed() bool { return m != nil && m.ReportTypeID != "" }

// Check reports structural problems that make the mapping unusable.
func (m *MappingResult) Check() error {
	if m == nil {
		return errors.New("mapping result is nil")
	}
	if m.ReportID == "" {
		return errors.New("mapping result has no report id")
	}
	if c := m.CompletenessScore; c != nil && (*c < 0 || *c > 100) {
		return fmt.Errorf("completeness score %.2f outside 0..100", *c)
	}
	for _, f := range m.MappedFields {
		if f.Confidence < 0 || f.Confidence > 1 {
			return fmt.Errorf("mapped field %s confidence %.2f outside 0..1", f.DefinitionID, f.Confidence)
		}
	}
	return nil
}

// Mapper builds MappingResults.
type Mapper struct {
	logger zerolog.Logger
	now    func() time.Time
	newID  func() string
}

// NewMapper returns a Mapper logging to the global logger.
func NewMapper() *Mapper {
	return &Mapper{logger: log.Logger, now: time.Now, newID: uuid.NewString}
}

// WithLogger returns a copy of m using l.
func (m *Mapper) WithLogger(l zerolog.Logger) *Mapper {
	c := *m
	c.logger = l
	return &c
}

// WithClock returns a copy of m using now and newID.
func (m *Mapper) WithClock(now func() time.Time, newID func() string) *Mapper {
	c := *m
	c.now = now
	c.newID = newID
	return &c
}

// MapReport resolves the report's detected type in src and maps against it.
// Untyped reports, or types missing from src, produce an untyped mapping.
func (m *Mapper) MapReport(rep *report.DecompiledReport, src registry.Source) (*MappingResult, error) {
	if rep == nil {
		return nil, errors.New("schema: report is nil")
	}
	if src != nil && rep.ReportTypeID != "" {
		if rt, ok := src.Get(rep.ReportTypeID); ok {
			return m.Map(rep, &rt)
		}
		m.logger.Warn().Str("type", rep.ReportTypeID).Msg("report type not in registry; mapping untyped")
	}
	return m.Map(rep, nil)
}

// Map matches rep against rt. A nil rt yields an untyped result whose
// completeness score is absent.
func (m *Mapper) Map(rep *report.DecompiledReport, rt *registry.ReportType) (*MappingResult, error) {
	if rep == nil {
		return nil, errors.New("schema: report is nil")
	}
	res := &MappingResult{
		ID:                      m.newID(),
		ReportID:                rep.ID,
		MappedFields:            []MappedField{},
		MissingRequiredSections: []MissingSection{},
		ExtraSections:           []string{},
		UnknownTerminology:      []string{},
		SchemaGaps:              []SchemaGap{},
		ComplianceReferences:    referencedStandards(rep.ComplianceMarkers),
		RequiredStandards:       []string{},
		CreatedAt:               m.now(),
	}
	if rt == nil {
		return res, nil
	}
	res.ReportTypeID = rt.ID

	required := map[string]bool{}
	for _, def := range rt.RequiredSections {
		required[def.ID] = true
	}
	for _, def := range rt.AllSections() {
		best, score := bestSection(rep.Sections, def)
		if score < MatchThreshold {
			if required[def.ID] {
				res.MissingRequiredSections = append(res.MissingRequiredSections, MissingSection{ID: def.ID, Name: def.Name, AIGuidance: def.AIGuidance})
			}
			continue
		}
		sec := rep.Sections[best]
		res.MappedFields = append(res.MappedFields, MappedField{
			DefinitionID: def.ID,
			Name:         def.Name,
			Required:     required[def.ID],
			SectionID:    sec.ID,
			SectionTitle: sec.Title,
			StartLine:    sec.StartLine,
			Confidence:   score,
		})
		if score < weakMapping {
			res.SchemaGaps = append(res.SchemaGaps, SchemaGap{
				Kind:        GapWeakMapping,
				Target:      def.ID,
				Description: fmt.Sprintf("%q only loosely matches section %q (%.2f)", def.Name, sec.Title, score),
			})
		}
		if gap, ok := templateGap(def, sec); ok {
			res.SchemaGaps = append(res.SchemaGaps, gap)
		}
	}

	defs := rt.AllSections()
	for _, sec := range rep.Sections {
		if !sec.Kind.IsHeading() {
			continue
		}
		matched := false
		for _, def := range defs {
			if Match(sec, def) >= MatchThreshold {
				matched = true
				break
			}
		}
		if !matched {
			res.ExtraSections = append(res.ExtraSections, sec.Title)
		}
	}

	res.UnknownTerminology = unknownTerms(rep.Terminology, rt.Terminology)

	for _, rule := range rt.ComplianceRules {
		res.RequiredStandards = append(res.RequiredStandards, rule.Standard)
		if !referenced(rule.Standard, rep.ComplianceMarkers) {
			res.SchemaGaps = append(res.SchemaGaps, SchemaGap{
				Kind:        GapMissingStandard,
				Target:      rule.Standard,
				Description: fmt.Sprintf("no reference to %s", rule.Standard),
			})
		}
	}

	completeness := 100.0
	if n := len(rt.RequiredSections); n > 0 {
		completeness = float64(n-len(res.MissingRequiredSections)) / float64(n) * 100
	}
	res.CompletenessScore = &completeness

	m.logger.Debug().
		Str("report", rep.ID).
		Str("type", rt.ID).
		Int("mapped", len(res.MappedFields)).
		Int("missing", len(res.MissingRequiredSections)).
		Float64("completeness", completeness).
		Msg("mapped report")
	return res, nil
}

// bestSection returns the index and score of the highest scoring section;
// earlier sections win ties.
func bestSection(secs report.Sections, def registry.SectionDefinition) (int, float64) {
	best, score := -1, 0.0
	for i, sec := range secs {
		if s := Match(sec, def); s > score {
			best, score = i, s
		}
	}
	return best, score
}

func templateGap(def registry.SectionDefinition, sec report.DetectedSection) (SchemaGap, bool) {
	if def.Template == nil {
		return SchemaGap{}, false
	}
	switch def.Template.Kind {
	case registry.TemplateTable:
		if sec.Kind != report.KindTable && !sec.Meta.HasTables {
			return SchemaGap{Kind: GapTemplate, Target: def.ID, Description: fmt.Sprintf("%q is expected to contain a table", def.Name)}, true
		}
	case registry.TemplateList:
		if sec.Kind != report.KindList && !sec.Meta.HasBullets {
			return SchemaGap{Kind: GapTemplate, Target: def.ID, Description: fmt.Sprintf("%q is expected to contain a list", def.Name)}, true
		}
	}
	return SchemaGap{}, false
}

func referencedStandards(markers []report.ComplianceMarker) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, mk := range markers {
		if seen[mk.Standard] {
			continue
		}
		seen[mk.Standard] = true
		out = append(out, mk.Standard)
	}
	return out
}

func referenced(standard string, markers []report.ComplianceMarker) bool {
	for _, mk := range markers {
		if registry.StandardsOverlap(mk.Standard, standard) || registry.StandardsOverlap(mk.Text, standard) {
			return true
		}
	}
	return false
}
