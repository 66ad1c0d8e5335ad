// Package detect implements the independent heuristic detectors that turn
// normalized report text into typed sections, metadata, terminology and
// compliance markers. Detectors share no state; each reads the same input
// and returns its own Result.
package detect

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperifyio/goassess/internal/report"
)

// Input is the normalized text and its lines. Lines are 1-based in every
// emitted section.
type Input struct {
	Text  string
	Lines []string
}

// NewInput splits text into lines.
func NewInput(text string) Input {
	if text == "" {
		return Input{}
	}
	return Input{Text: text, Lines: strings.Split(text, "\n")}
}

// Result is the output of one detector.
type Result struct {
	Sections   report.Sections
	Metadata   *report.Metadata
	Terms      []report.TermEntry
	Markers    []report.ComplianceMarker
	Confidence float64
}

// Count returns how many items the detector produced.
func (r Result) Count() int {
	n := len(r.Sections) + len(r.Terms) + len(r.Markers)
	if m := r.Metadata; m != nil {
		for _, v := range []string{m.Title, m.Author, m.Date, m.Client, m.Site, m.ReportType} {
			if v != "" {
				n++
			}
		}
	}
	return n
}

// Detector scans the input once for one structural feature.
type Detector interface {
	Kind() report.DetectorKind
	Detect(in Input) (Result, error)
}

// Default returns the eight detectors in execution order.
func Default() []Detector {
	return []Detector{
		HeadingDetector{},
		SectionDetector{},
		ListDetector{},
		TableDetector{},
		MetadataDetector{},
		TerminologyDetector{Vocabulary: DefaultVocabulary},
		ComplianceDetector{Patterns: DefaultCompliancePatterns},
		AppendixDetector{},
	}
}

func sectionID(kind report.DetectorKind, n int) string {
	return fmt.Sprintf("%s-%d", kind, n)
}

// detectorConfidence returns hit when any item was found, else miss.
func detectorConfidence(found bool, hit, miss float64) float64 {
	if found {
		return hit
	}
	return miss
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// contextWindow returns up to radius bytes either side of [start,end),
// widened to rune boundaries and with newlines folded to spaces.
func contextWindow(text string, start, end, radius int) string {
	lo := start - radius
	if lo < 0 {
		lo = 0
	}
	hi := end + radius
	if hi > len(text) {
		hi = len(text)
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	return strings.TrimSpace(strings.ReplaceAll(text[lo:hi], "\n", " "))
}

// lineAt returns the 1-based line number containing byte offset off.
func lineAt(text string, off int) int {
	if off > len(text) {
		off = len(text)
	}
	return strings.Count(text[:off], "\n") + 1
}

func sectionMeta(content string, confidence float64) report.SectionMeta {
	lines := 0
	bullets := false
	tables := false
	for _, l := range strings.Split(content, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines++
		if IsListItem(l) {
			bullets = true
		}
		if IsTableRow(l) {
			tables = true
		}
	}
	return report.SectionMeta{
		WordCount:  len(strings.Fields(content)),
		LineCount:  lines,
		HasNumbers: strings.IndexFunc(content, unicode.IsDigit) >= 0,
		HasBullets: bullets,
		HasTables:  tables,
		Confidence: confidence,
	}
}
