// Package report holds the document model produced by decompilation: typed
// sections, extracted metadata, terminology, compliance markers and the
// per-detector summary that feeds the overall confidence score.
package report

import (
	"strings"
	"time"
)

// SectionKind classifies a span of source text.
type SectionKind string

const (
	KindHeading     SectionKind = "heading"
	KindSubheading  SectionKind = "subheading"
	KindContent     SectionKind = "content-section"
	KindList        SectionKind = "list"
	KindTable       SectionKind = "table"
	KindAppendix    SectionKind = "appendix"
	KindMethodology SectionKind = "methodology"
	KindDisclaimer  SectionKind = "disclaimer"
	KindLegal       SectionKind = "legal"
	KindUnknown     SectionKind = "unknown"
)

// IsHeading reports whether the kind participates in the section hierarchy.
func (k SectionKind) IsHeading() bool {
	return k == KindHeading || k == KindSubheading
}

// DetectorKind names one of the eight detectors. The order of AllDetectors
// is the execution order.
type DetectorKind string

const (
	DetectHeading     DetectorKind = "heading"
	DetectSection     DetectorKind = "section"
	DetectList        DetectorKind = "list"
	DetectTable       DetectorKind = "table"
	DetectMetadata    DetectorKind = "metadata"
	DetectTerminology DetectorKind = "terminology"
	DetectCompliance  DetectorKind = "compliance"
	DetectAppendix    DetectorKind = "appendix"
)

// AllDetectors lists detector kinds in execution order.
var AllDetectors = []DetectorKind{
	DetectHeading,
	DetectSection,
	DetectList,
	DetectTable,
	DetectMetadata,
	DetectTerminology,
	DetectCompliance,
	DetectAppendix,
}

// Format is the declared shape of the raw input.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatPDFText  Format = "pdf_text"
	FormatPasted   Format = "pasted"
)

// Valid reports whether f is one of the accepted input formats.
func (f Format) Valid() bool {
	switch f {
	case FormatText, FormatMarkdown, FormatPDFText, FormatPasted:
		return true
	}
	return false
}

// SectionMeta carries per-section statistics.
type SectionMeta struct {
	WordCount  int     `json:"word_count"`
	LineCount  int     `json:"line_count"`
	HasNumbers bool    `json:"has_numbers"`
	HasBullets bool    `json:"has_bullets"`
	HasTables  bool    `json:"has_tables"`
	Confidence float64 `json:"confidence"`
}

// DetectedSection is a classified span of the normalized text. Sections from
// different detectors may cover the same lines; SourceDetector records which
// detector produced each one.
type DetectedSection struct {
	ID             string       `json:"id"`
	Kind           SectionKind  `json:"kind"`
	SourceDetector DetectorKind `json:"source_detector"`
	Level          int          `json:"level"`
	Title          string       `json:"title"`
	Content        string       `json:"content"`
	StartLine      int          `json:"start_line"`
	EndLine        int          `json:"end_line"`
	ParentID       string       `json:"parent_id,omitempty"`
	ChildIDs       []string     `json:"child_ids,omitempty"`
	Meta           SectionMeta  `json:"meta"`
}

// Sections is an ordered multiset of detected sections.
type Sections []DetectedSection

// FromDetector returns the sections produced by one detector, in order.
func (s Sections) FromDetector(k DetectorKind) Sections {
	var out Sections
	for _, sec := range s {
		if sec.SourceDetector == k {
			out = append(out, sec)
		}
	}
	return out
}

// OfKind returns sections whose kind is any of kinds.
func (s Sections) OfKind(kinds ...SectionKind) Sections {
	var out Sections
	for _, sec := range s {
		for _, k := range kinds {
			if sec.Kind == k {
				out = append(out, sec)
				break
			}
		}
	}
	return out
}

// ByID returns the section with the given id.
func (s Sections) ByID(id string) (DetectedSection, bool) {
	for _, sec := range s {
		if sec.ID == id {
			return sec, true
		}
	}
	return DetectedSection{}, false
}

// Metadata is the document-level information scraped from the header lines.
type Metadata struct {
	Title      string   `json:"title,omitempty"`
	Author     string   `json:"author,omitempty"`
	Date       string   `json:"date,omitempty"`
	Client     string   `json:"client,omitempty"`
	Site       string   `json:"site,omitempty"`
	ReportType string   `json:"report_type,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
}

// TermCategory groups terminology entries.
type TermCategory string

const (
	TermTechnical   TermCategory = "technical"
	TermLegal       TermCategory = "legal"
	TermCompliance  TermCategory = "compliance"
	TermSpecies     TermCategory = "species"
	TermMeasurement TermCategory = "measurement"
	TermGeneral     TermCategory = "general"
)

// TermEntry is one vocabulary term found in the text.
type TermEntry struct {
	Term       string       `json:"term"`
	Context    string       `json:"context"`
	Frequency  int          `json:"frequency"`
	Category   TermCategory `json:"category"`
	Confidence float64      `json:"confidence"`
}

// MarkerType classifies a compliance reference.
type MarkerType string

const (
	MarkerBritishStandard MarkerType = "british_standard"
	MarkerISOStandard     MarkerType = "iso_standard"
	MarkerLegislation     MarkerType = "legislation"
	MarkerPolicy          MarkerType = "policy"
	MarkerGuidance        MarkerType = "guidance"
)

// ComplianceMarker is a reference to a standard or regulatory instrument.
type ComplianceMarker struct {
	Standard   string     `json:"standard"`
	Text       string     `json:"text"`
	Type       MarkerType `json:"type"`
	Context    string     `json:"context,omitempty"`
	Line       int        `json:"line"`
	Confidence float64    `json:"confidence"`
}

// StructureMap summarizes the section list.
type StructureMap struct {
	HierarchyDepth       int     `json:"hierarchy_depth"`
	SectionCount         int     `json:"section_count"`
	AverageSectionLength float64 `json:"average_section_length"`
	HasAppendices        bool    `json:"has_appendices"`
	HasMethodology       bool    `json:"has_methodology"`
	HasLegal             bool    `json:"has_legal"`
}

// DetectorSummary records what one detector contributed.
type DetectorSummary struct {
	Count      int     `json:"count"`
	Confidence float64 `json:"confidence"`
	Failed     bool    `json:"failed,omitempty"`
}

// DecompiledReport is the aggregate produced by one decompilation run.
type DecompiledReport struct {
	ID                string                           `json:"id"`
	ContentHash       string                           `json:"content_hash"`
	Format            Format                           `json:"format"`
	RawText           string                           `json:"raw_text"`
	NormalizedText    string                           `json:"normalized_text"`
	ReportTypeID      string                           `json:"report_type_id,omitempty"`
	ReportTypeScore   int                              `json:"report_type_score,omitempty"`
	ReportTypeForced  bool                             `json:"report_type_forced,omitempty"`
	Sections          Sections                         `json:"sections"`
	Metadata          Metadata                         `json:"metadata"`
	Terminology       []TermEntry                      `json:"terminology"`
	ComplianceMarkers []ComplianceMarker               `json:"compliance_markers"`
	Structure         StructureMap                     `json:"structure"`
	Detectors         map[DetectorKind]DetectorSummary `json:"detectors"`
	ConfidenceScore   float64                          `json:"confidence_score"`
	Warnings          []string                         `json:"warnings,omitempty"`
	Errors            []string                         `json:"errors,omitempty"`
	CreatedAt         time.Time                        `json:"created_at"`
	ProcessedAt       time.Time                        `json:"processed_at"`
	ProcessingTime    time.Duration                    `json:"processing_time"`
}

// Typed reports whether report-type detection accepted a candidate.
func (r *DecompiledReport) Typed() bool {
	return r != nil && r.ReportTypeID != ""
}

// LevelFromTitle derives a heading level from a numeric prefix such as
// "2.3.1 Scope" (depth 3). Titles without one default to 1.
func LevelFromTitle(title string) int {
	fields := strings.Fields(title)
	if len(fields) == 0 {
		return 1
	}
	prefix := strings.TrimSuffix(fields[0], ".")
	depth := 0
	for _, part := range strings.Split(prefix, ".") {
		if part == "" || !isDigits(part) {
			return 1
		}
		depth++
	}
	if depth == 0 {
		return 1
	}
	if depth > 6 {
		return 6
	}
	return depth
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
