package detect

import (
	"strings"

	"github.com/hyperifyio/goassess/internal/report"
)

var appendixKeywords = []string{"appendix", "annex", "attachment", "schedule"}

// AppendixDetector flags lines that name an appendix, annex, attachment
// or schedule.
type AppendixDetector struct{}

func (AppendixDetector) Kind() report.DetectorKind { return report.DetectAppendix }

func (AppendixDetector) Detect(in Input) (Result, error) {
	var res Result
	for i, line := range in.Lines {
		lower := strings.ToLower(line)
		hit := false
		for _, k := range appendixKeywords {
			if strings.Contains(lower, k) {
				hit = true
				break
			}
		}
		if !hit {
			continue
		}
		title := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		res.Sections = append(res.Sections, report.DetectedSection{
			ID:             sectionID(report.DetectAppendix, len(res.Sections)),
			Kind:           report.KindAppendix,
			SourceDetector: report.DetectAppendix,
			Title:          truncateRunes(title, sectionTitleRunes),
			Content:        strings.TrimSpace(line),
			StartLine:      i + 1,
			EndLine:        i + 1,
			Meta:           sectionMeta(title, 0.9),
		})
	}
	res.Confidence = detectorConfidence(len(res.Sections) > 0, 0.8, 0.5)
	return res, nil
}
