package extract

import (
	"strings"
	"testing"

	"github.com/hyperifyio/goassess/internal/report"
)

func TestFromHTML_PrefersMainOverBody(t *testing.T) {
	page := `<!doctype html>
	<html>
	  <head><title>Tree Survey</title></head>
	  <body>
	    <nav>Nav should be ignored</nav>
	    <main>
	      <h1>Introduction</h1>
	      <p>This is the main content paragraph.</p>
	    </main>
	    <footer>Footer text</footer>
	  </body>
	</html>`
	doc := FromHTML([]byte(page))
	if doc.Title != "Tree Survey" {
		t.Fatalf("expected title, got %q", doc.Title)
	}
	if !strings.Contains(doc.Text, "# Introduction") {
		t.Fatalf("heading should become a Markdown heading:\n%s", doc.Text)
	}
	if !strings.Contains(doc.Text, "This is the main content paragraph.") {
		t.Fatalf("expected main paragraph:\n%s", doc.Text)
	}
	if strings.Contains(doc.Text, "Nav should be ignored") || strings.Contains(doc.Text, "Footer text") {
		t.Fatalf("boilerplate leaked:\n%s", doc.Text)
	}
}

func TestFromHTML_ListsAndTables(t *testing.T) {
	page := `<html><body>
	<h2>Findings</h2>
	<ul><li>Oak T1</li><li>Ash T2</li></ul>
	<ol><li>Retain</li><li>Fell</li></ol>
	<table><tr><th>Tree</th><th>Species</th><th>Category</th></tr><tr><td>T1</td><td>Oak</td><td>A</td></tr></table>
	<div class="cookie-banner">Accept cookies</div>
	</body></html>`
	text := FromHTML([]byte(page)).Text
	for _, want := range []string{"## Findings", "- Oak T1", "- Ash T2", "1. Retain", "2. Fell", "| Tree | Species | Category |", "| T1 | Oak | A |"} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Accept cookies") {
		t.Fatalf("cookie banner leaked:\n%s", text)
	}
}

func TestLoadFormats(t *testing.T) {
	cases := []struct {
		name string
		want report.Format
	}{
		{"", report.FormatPasted},
		{"-", report.FormatPasted},
		{"survey.md", report.FormatMarkdown},
		{"survey.MARKDOWN", report.FormatMarkdown},
		{"scan.pdf.txt", report.FormatPDFText},
		{"notes.txt", report.FormatText},
		{"page.html", report.FormatMarkdown},
	}
	for _, tc := range cases {
		in, err := Load(tc.name, []byte("<p>Body text</p>"))
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if in.Format != tc.want {
			t.Fatalf("%s: format=%s want %s", tc.name, in.Format, tc.want)
		}
	}
}

func TestLoadHTMLAddsTitle(t *testing.T) {
	in, err := Load("r.html", []byte(`<html><head><title>Bat Survey Report</title></head><body><p>Text</p></body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(in.Text, "# Bat Survey Report\n\nText") {
		t.Fatalf("unexpected text: %q", in.Text)
	}
}

func TestLoadRejectsInvalidUTF8(t *testing.T) {
	if _, err := Load("x.txt", []byte{0xff, 0xfe}); err == nil {
		t.Fatalf("expected error")
	}
}
