package detect

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hyperifyio/goassess/internal/report"
)

const (
	metadataScanLines = 20
	maxKeywords       = 10
)

var (
	metaLabelRe  = regexp.MustCompile(`(?i)^\s*(author|prepared by|date|client|prepared for|site|location|address|report type)\s*:\s*(.+?)\s*$`)
	nonWordRe    = regexp.MustCompile(`[^\w\s]`)
	keywordStops = map[string]struct{}{
		"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {},
		"all": {}, "can": {}, "was": {}, "one": {}, "our": {}, "has": {}, "have": {},
		"with": {}, "this": {}, "that": {}, "from": {}, "they": {}, "were": {},
		"been": {}, "will": {}, "which": {}, "their": {}, "there": {}, "would": {},
		"into": {}, "than": {}, "these": {}, "those": {}, "such": {}, "also": {},
		"within": {}, "where": {}, "should": {}, "other": {}, "about": {},
	}
)

// MetadataDetector reads labelled header fields from the first lines and
// ranks content keywords. It emits no sections.
type MetadataDetector struct{}

func (MetadataDetector) Kind() report.DetectorKind { return report.DetectMetadata }

func (MetadataDetector) Detect(in Input) (Result, error) {
	md := &report.Metadata{}
	if len(in.Lines) > 0 {
		first := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(in.Lines[0]), "#"))
		if n := utf8.RuneCountInString(first); n >= 10 && n <= 200 {
			md.Title = first
		}
	}
	for i, line := range in.Lines {
		if i >= metadataScanLines {
			break
		}
		m := metaLabelRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value := m[2]
		switch strings.ToLower(m[1]) {
		case "author", "prepared by":
			setOnce(&md.Author, value)
		case "date":
			setOnce(&md.Date, value)
		case "client", "prepared for":
			setOnce(&md.Client, value)
		case "site", "location", "address":
			setOnce(&md.Site, value)
		case "report type":
			setOnce(&md.ReportType, value)
		}
	}
	md.Keywords = Keywords(in.Text, maxKeywords)
	return Result{Metadata: md, Confidence: 0.6}, nil
}

func setOnce(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// Keywords returns the n most frequent words longer than three characters,
// ignoring stop words. Ties keep first-seen order.
func Keywords(text string, n int) []string {
	words := strings.Fields(nonWordRe.ReplaceAllString(strings.ToLower(text), ""))
	counts := map[string]int{}
	var order []string
	for _, w := range words {
		if len(w) <= 3 {
			continue
		}
		if _, stop := keywordStops[w]; stop {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}
