package detect

import (
	"strings"

	"github.com/hyperifyio/goassess/internal/report"
)

const sectionTitleRunes = 50

// SectionDetector groups each contiguous run of non-heading lines into one
// content section. Blank lines neither open nor close a section.
type SectionDetector struct{}

func (SectionDetector) Kind() report.DetectorKind { return report.DetectSection }

func (SectionDetector) Detect(in Input) (Result, error) {
	var res Result
	var (
		open     bool
		start    int
		end      int
		body     []string
		kind     report.SectionKind = report.KindContent
		lastHead string
	)
	flush := func() {
		if !open {
			return
		}
		content := strings.Join(body, "\n")
		res.Sections = append(res.Sections, report.DetectedSection{
			ID:             sectionID(report.DetectSection, len(res.Sections)),
			Kind:           kind,
			SourceDetector: report.DetectSection,
			Title:          truncateRunes(strings.TrimSpace(body[0]), sectionTitleRunes),
			Content:        content,
			StartLine:      start,
			EndLine:        end,
			Meta:           sectionMeta(content, 0.7),
		})
		open = false
		body = nil
	}
	for i, line := range in.Lines {
		if _, title, ok := ParseHeading(line); ok {
			flush()
			lastHead = title
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !open {
			open = true
			start = i + 1
			kind = kindUnderHeading(lastHead)
		}
		end = i + 1
		body = append(body, line)
	}
	flush()
	res.Confidence = detectorConfidence(len(res.Sections) > 0, 0.7, 0.3)
	return res, nil
}

// kindUnderHeading refines a content section by the heading above it.
func kindUnderHeading(heading string) report.SectionKind {
	h := strings.ToLower(heading)
	switch {
	case strings.Contains(h, "method"):
		return report.KindMethodology
	case strings.Contains(h, "disclaimer"):
		return report.KindDisclaimer
	case strings.Contains(h, "legal"), strings.Contains(h, "terms and conditions"):
		return report.KindLegal
	}
	return report.KindContent
}
