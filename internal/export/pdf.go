package export

import (
	"bufio"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// WritePDF lays out the Markdown rendering of an assessment as a simple A4
// PDF: headings in bold, table rows as plain lines, everything else as
// wrapped paragraphs.
func WritePDF(markdown string, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	scanner := bufio.NewScanner(strings.NewReader(markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		s := strings.TrimSpace(scanner.Text())
		switch {
		case s == "":
			pdf.Ln(4)
		case strings.HasPrefix(s, "#"):
			i := 0
			for i < len(s) && s[i] == '#' {
				i++
			}
			text := strings.TrimSpace(s[i:])
			if text == "" {
				continue
			}
			size := 15.0
			if i == 2 {
				size = 13
			} else if i > 2 {
				size = 11.5
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.MultiCell(0, 7, tr(text), "", "L", false)
			pdf.SetFont("Helvetica", "", 11)
		case strings.HasPrefix(s, "|"):
			if strings.Trim(s, "|-: ") == "" {
				continue
			}
			cells := strings.Split(strings.Trim(s, "|"), "|")
			for i := range cells {
				cells[i] = strings.TrimSpace(cells[i])
			}
			pdf.SetFont("Courier", "", 9.5)
			pdf.MultiCell(0, 5, tr(strings.Join(cells, "  |  ")), "", "L", false)
			pdf.SetFont("Helvetica", "", 11)
		case s == "---":
			pdf.Ln(2)
			y := pdf.GetY()
			pdf.Line(10, y, 200, y)
			pdf.Ln(2)
		default:
			if strings.HasPrefix(s, "- ") {
				s = "\u2022 " + strings.TrimPrefix(s, "- ")
			}
			pdf.MultiCell(0, 5, tr(s), "", "L", false)
		}
	}
	if err := scanner.Err(); err != nil {
		pdf.Close()
		return err
	}
	return pdf.OutputFileAndClose(outPath)
}
