package detect

import (
	"regexp"
	"strings"

	"github.com/hyperifyio/goassess/internal/report"
)

var columnGapRe = regexp.MustCompile(`\s{2,}`)

// IsTableRow reports whether a line looks tabular: more than two
// pipe-delimited fields, more than two tab-delimited fields, or at least
// three non-empty columns separated by two or more spaces.
func IsTableRow(line string) bool {
	if strings.Contains(line, "|") && len(strings.Split(line, "|")) > 2 {
		return true
	}
	if strings.Contains(line, "\t") && len(strings.Split(line, "\t")) > 2 {
		return true
	}
	s := strings.TrimSpace(line)
	if s == "" {
		return false
	}
	cols := 0
	for _, c := range columnGapRe.Split(s, -1) {
		if strings.TrimSpace(c) != "" {
			cols++
		}
	}
	return cols >= 3
}

// TableDetector emits one table section per tabular line.
type TableDetector struct{}

func (TableDetector) Kind() report.DetectorKind { return report.DetectTable }

func (TableDetector) Detect(in Input) (Result, error) {
	var res Result
	for i, line := range in.Lines {
		if !IsTableRow(line) {
			continue
		}
		row := strings.TrimSpace(line)
		m := sectionMeta(row, 0.7)
		m.HasTables = true
		res.Sections = append(res.Sections, report.DetectedSection{
			ID:             sectionID(report.DetectTable, len(res.Sections)),
			Kind:           report.KindTable,
			SourceDetector: report.DetectTable,
			Title:          truncateRunes(row, sectionTitleRunes),
			Content:        row,
			StartLine:      i + 1,
			EndLine:        i + 1,
			Meta:           m,
		})
	}
	res.Confidence = detectorConfidence(len(res.Sections) > 0, 0.6, 0.4)
	return res, nil
}
