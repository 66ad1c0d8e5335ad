package decompile

import (
	"strings"

	"github.com/hyperifyio/goassess/internal/registry"
	"github.com/hyperifyio/goassess/internal/report"
)

// Report-type scoring weights.
const (
	nameHit    = 10
	idHit      = 15
	markerHit  = 5
	sectionHit = 2
)

// DetectReportType scores every candidate in order and returns the id of
// the strictly highest scorer, or "" when no candidate reaches
// MinTypeScore. Earlier candidates win ties.
func DetectReportType(text string, sections report.Sections, markers []report.ComplianceMarker, candidates []registry.ReportType) (string, int) {
	lower := strings.ToLower(text)
	bestID, best := "", -1
	for _, t := range candidates {
		score := ScoreReportType(lower, sections, markers, t)
		if score > best {
			bestID, best = t.ID, score
		}
	}
	if best < MinTypeScore {
		return "", 0
	}
	return bestID, best
}

// ScoreReportType scores one candidate against lower-cased text.
func ScoreReportType(lower string, sections report.Sections, markers []report.ComplianceMarker, t registry.ReportType) int {
	score := 0
	if n := strings.ToLower(strings.TrimSpace(t.Name)); n != "" && strings.Contains(lower, n) {
		score += nameHit
	}
	if id := strings.ToLower(strings.TrimSpace(t.ID)); id != "" && strings.Contains(lower, id) {
		score += idHit
	}
	for _, m := range markers {
		for _, rule := range t.ComplianceRules {
			if registry.StandardsOverlap(m.Standard, rule.Standard) {
				score += markerHit
				break
			}
		}
	}
	names := t.AllSections()
	for _, s := range sections {
		title := strings.ToLower(strings.TrimSpace(s.Title))
		if title == "" {
			continue
		}
		for _, def := range names {
			name := strings.ToLower(strings.TrimSpace(def.Name))
			if name == "" {
				continue
			}
			if strings.Contains(title, name) || strings.Contains(name, title) {
				score += sectionHit
				break
			}
		}
	}
	return score
}

// BuildHierarchy links heading sections into a tree by level and attaches
// every other section to the closest heading at or above its start line.
// It edits ParentID and ChildIDs in place.
func BuildHierarchy(secs report.Sections) {
	var headings []int
	var stack []int
	for i := range secs {
		if !secs[i].Kind.IsHeading() {
			continue
		}
		if secs[i].Level <= 0 {
			secs[i].Level = report.LevelFromTitle(secs[i].Title)
		}
		for len(stack) > 0 && secs[stack[len(stack)-1]].Level >= secs[i].Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			link(secs, stack[len(stack)-1], i)
		}
		stack = append(stack, i)
		headings = append(headings, i)
	}
	for i := range secs {
		if secs[i].Kind.IsHeading() {
			continue
		}
		parent := -1
		for _, h := range headings {
			if secs[h].StartLine <= secs[i].StartLine && (parent < 0 || secs[h].StartLine >= secs[parent].StartLine) {
				parent = h
			}
		}
		if parent >= 0 {
			link(secs, parent, i)
		}
	}
}

func link(secs report.Sections, parent, child int) {
	secs[child].ParentID = secs[parent].ID
	secs[parent].ChildIDs = append(secs[parent].ChildIDs, secs[child].ID)
}

// BuildStructureMap summarizes depth, count, mean word count and the
// presence of appendix, methodology and legal sections by title.
func BuildStructureMap(secs report.Sections) report.StructureMap {
	var m report.StructureMap
	m.SectionCount = len(secs)
	words := 0
	for _, s := range secs {
		if s.Level > m.HierarchyDepth {
			m.HierarchyDepth = s.Level
		}
		words += s.Meta.WordCount
		t := strings.ToLower(s.Title)
		if strings.Contains(t, "appendix") || strings.Contains(t, "annex") {
			m.HasAppendices = true
		}
		if strings.Contains(t, "method") {
			m.HasMethodology = true
		}
		if strings.Contains(t, "legal") || strings.Contains(t, "disclaimer") || strings.Contains(t, "terms") {
			m.HasLegal = true
		}
	}
	if len(secs) > 0 {
		m.AverageSectionLength = float64(words) / float64(len(secs))
	}
	return m
}
