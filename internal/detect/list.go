package detect

import (
	"regexp"
	"strings"

	"github.com/hyperifyio/goassess/internal/report"
)

// bullets (-, *, •) and ordinals: 1. 1) (1) (a) a)
var listItemRe = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)]|\(\d+\)|\([a-zA-Z]\)|[a-zA-Z]\))\s+(.+)$`)

// IsListItem reports whether line starts with a bullet or ordinal marker.
func IsListItem(line string) bool {
	return listItemRe.MatchString(line)
}

// ListDetector emits one list section per item line.
type ListDetector struct{}

func (ListDetector) Kind() report.DetectorKind { return report.DetectList }

func (ListDetector) Detect(in Input) (Result, error) {
	var res Result
	for i, line := range in.Lines {
		m := listItemRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		item := strings.TrimSpace(m[1])
		res.Sections = append(res.Sections, report.DetectedSection{
			ID:             sectionID(report.DetectList, len(res.Sections)),
			Kind:           report.KindList,
			SourceDetector: report.DetectList,
			Title:          truncateRunes(item, sectionTitleRunes),
			Content:        item,
			StartLine:      i + 1,
			EndLine:        i + 1,
			Meta:           withBullets(sectionMeta(item, 0.9)),
		})
	}
	res.Confidence = detectorConfidence(len(res.Sections) > 0, 0.8, 0.5)
	return res, nil
}

func withBullets(m report.SectionMeta) report.SectionMeta {
	m.HasBullets = true
	return m
}
