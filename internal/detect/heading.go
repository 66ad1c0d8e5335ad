package detect

import (
	"regexp"
	"strings"

	"github.com/hyperifyio/goassess/internal/report"
)

var (
	markdownHeadingRe = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*$`)
	allCapsHeadingRe  = regexp.MustCompile(`^[A-Z][A-Z\s]{10,}$`)
	romanHeadingRe    = regexp.MustCompile(`^[IVXLCDM]+\.\s+(.+)$`)
	numericHeadingRe  = regexp.MustCompile(`^\d+\.\d+\.?\s+(.+)$`)
)

// ParseHeading classifies a single line. Markdown hashes set the level
// directly; an all-caps line is level 1; a Roman-numeral prefix is level 2;
// a two-level numeric prefix such as "1.1 " is level 3. The returned title
// has the prefix stripped.
func ParseHeading(line string) (level int, title string, ok bool) {
	s := strings.TrimSpace(line)
	if s == "" {
		return 0, "", false
	}
	if m := markdownHeadingRe.FindStringSubmatch(s); m != nil {
		return len(m[1]), strings.TrimSpace(m[2]), true
	}
	if len(s) >= 11 && allCapsHeadingRe.MatchString(s) {
		return 1, s, true
	}
	if m := romanHeadingRe.FindStringSubmatch(s); m != nil {
		return 2, strings.TrimSpace(m[1]), true
	}
	if m := numericHeadingRe.FindStringSubmatch(s); m != nil {
		return 3, strings.TrimSpace(m[1]), true
	}
	return 0, "", false
}

// IsHeading reports whether line would be emitted by the heading detector.
func IsHeading(line string) bool {
	_, _, ok := ParseHeading(line)
	return ok
}

// HeadingDetector finds heading lines.
type HeadingDetector struct{}

func (HeadingDetector) Kind() report.DetectorKind { return report.DetectHeading }

func (HeadingDetector) Detect(in Input) (Result, error) {
	var res Result
	for i, line := range in.Lines {
		level, title, ok := ParseHeading(line)
		if !ok {
			continue
		}
		kind := report.KindHeading
		if level > 1 {
			kind = report.KindSubheading
		}
		res.Sections = append(res.Sections, report.DetectedSection{
			ID:             sectionID(report.DetectHeading, len(res.Sections)),
			Kind:           kind,
			SourceDetector: report.DetectHeading,
			Level:          level,
			Title:          title,
			Content:        strings.TrimSpace(line),
			StartLine:      i + 1,
			EndLine:        i + 1,
			Meta:           sectionMeta(title, 0.9),
		})
	}
	res.Confidence = detectorConfidence(len(res.Sections) > 0, 0.8, 0.3)
	return res, nil
}
