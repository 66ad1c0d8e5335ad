package schema

import (
	"math"
	"regexp"
	"strings"

	"github.com/hyperifyio/goassess/internal/registry"
	"github.com/hyperifyio/goassess/internal/report"
)

const (
	exactTitleScore  = 0.8
	substringScore   = 0.6
	keywordScore     = 0.2
	maxKeywordHits   = 3
	headingBonus     = 0.1
	minKeywordLength = 4
)

var wordRe = regexp.MustCompile(`[a-z0-9]+`)

// Match scores how well sec fits def in [0,1]: an exact title match or a
// substring match either way, shared description keywords, and a bonus
// when a heading template meets a heading section.
func Match(sec report.DetectedSection, def registry.SectionDefinition) float64 {
	title := strings.ToLower(strings.TrimSpace(sec.Title))
	name := strings.ToLower(strings.TrimSpace(def.Name))
	score := 0.0
	switch {
	case title == "" || name == "":
	case title == name:
		score += exactTitleScore
	case strings.Contains(title, name) || strings.Contains(name, title):
		score += substringScore
	}

	if def.Description != "" {
		have := map[string]bool{}
		for _, w := range wordRe.FindAllString(strings.ToLower(sec.Title+" "+sec.Content), -1) {
			have[w] = true
		}
		hits := 0
		seen := map[string]bool{}
		for _, w := range wordRe.FindAllString(strings.ToLower(def.Description), -1) {
			if len(w) < minKeywordLength || seen[w] {
				continue
			}
			seen[w] = true
			if have[w] {
				hits++
				if hits == maxKeywordHits {
					break
				}
			}
		}
		score += float64(hits) * keywordScore
	}

	if def.Template != nil && def.Template.Kind == registry.TemplateHeading && sec.Kind.IsHeading() {
		score += headingBonus
	}
	return math.Min(1, round(score))
}

// round trims float noise from sums of tenths.
func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// unknownTerms lists detected terms outside the declared vocabulary. With
// no declared vocabulary nothing is unknown.
func unknownTerms(found []report.TermEntry, declared []string) []string {
	out := []string{}
	if len(declared) == 0 {
		return out
	}
	known := make(map[string]bool, len(declared))
	for _, d := range declared {
		known[strings.ToLower(strings.TrimSpace(d))] = true
	}
	for _, t := range found {
		if !known[strings.ToLower(t.Term)] {
			out = append(out, t.Term)
		}
	}
	return out
}
