package report

import "testing"

func TestLevelFromTitle(t *testing.T) {
	cases := []struct {
		title string
		want  int
	}{
		{"Introduction", 1},
		{"1 Introduction", 1},
		{"1. Introduction", 1},
		{"2.3 Scope", 2},
		{"2.3.1 Detail", 3},
		{"1.2.3.4.5.6.7 Deep", 6},
		{"v1.2 Release", 1},
		{"", 1},
	}
	for _, tc := range cases {
		if got := LevelFromTitle(tc.title); got != tc.want {
			t.Fatalf("LevelFromTitle(%q)=%d want %d", tc.title, got, tc.want)
		}
	}
}

func TestSectionsFilters(t *testing.T) {
	secs := Sections{
		{ID: "heading-0", Kind: KindHeading, SourceDetector: DetectHeading},
		{ID: "section-0", Kind: KindContent, SourceDetector: DetectSection},
		{ID: "appendix-0", Kind: KindAppendix, SourceDetector: DetectAppendix},
		{ID: "heading-1", Kind: KindSubheading, SourceDetector: DetectHeading},
	}
	if got := len(secs.FromDetector(DetectHeading)); got != 2 {
		t.Fatalf("FromDetector heading=%d want 2", got)
	}
	if got := len(secs.OfKind(KindContent, KindAppendix)); got != 2 {
		t.Fatalf("OfKind=%d want 2", got)
	}
	if _, ok := secs.ByID("section-0"); !ok {
		t.Fatalf("ByID should find section-0")
	}
	if _, ok := secs.ByID("missing"); ok {
		t.Fatalf("ByID should not find missing id")
	}
}

func TestFormatValid(t *testing.T) {
	for _, f := range []Format{FormatText, FormatMarkdown, FormatPDFText, FormatPasted} {
		if !f.Valid() {
			t.Fatalf("%q should be valid", f)
		}
	}
	if Format("docx").Valid() {
		t.Fatalf("docx must not be valid")
	}
}
