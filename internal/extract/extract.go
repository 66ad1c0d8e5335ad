// Package extract turns input files into report text. HTML is reduced to
// Markdown-shaped text so headings, lists and tables survive for the
// detectors.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/hyperifyio/goassess/internal/report"
)

// Document is the readable content of an HTML page.
type Document struct {
	Title string
	Text  string
}

// Input is report text ready for decompilation.
type Input struct {
	Text   string
	Format report.Format
}

// Load picks the report format from the file name and converts HTML.
// An empty name or "-" marks pasted input.
func Load(name string, data []byte) (Input, error) {
	if !utf8.Valid(data) {
		return Input{}, fmt.Errorf("extract: %s is not valid UTF-8", displayName(name))
	}
	lower := strings.ToLower(name)
	switch {
	case name == "" || name == "-":
		return Input{Text: string(data), Format: report.FormatPasted}, nil
	case strings.HasSuffix(lower, ".pdf.txt"):
		return Input{Text: string(data), Format: report.FormatPDFText}, nil
	}
	switch filepath.Ext(lower) {
	case ".html", ".htm":
		doc := FromHTML(data)
		text := doc.Text
		if doc.Title != "" && !strings.HasPrefix(text, "# ") {
			text = "# " + doc.Title + "\n\n" + text
		}
		return Input{Text: text, Format: report.FormatMarkdown}, nil
	case ".md", ".markdown":
		return Input{Text: string(data), Format: report.FormatMarkdown}, nil
	default:
		return Input{Text: string(data), Format: report.FormatText}, nil
	}
}

func displayName(name string) string {
	if name == "" || name == "-" {
		return "input"
	}
	return name
}

// FromHTML extracts readable text from HTML, preferring <main> or <article>
// and falling back to <body>. Navigation, scripts and cookie banners are
// dropped.
func FromHTML(input []byte) Document {
	node, err := html.Parse(bytes.NewReader(input))
	if err != nil || node == nil {
		return Document{}
	}
	title := strings.TrimSpace(findTitle(node))
	content := findFirst(node, "main")
	if content == nil {
		content = findFirst(node, "article")
	}
	if content == nil {
		content = findFirst(node, "body")
	}
	var w writer
	if content != nil {
		w.walk(content)
	}
	return Document{Title: title, Text: normalizeWhitespace(w.b.String())}
}

func findTitle(n *html.Node) string {
	head := findFirst(n, "head")
	if head == nil {
		return ""
	}
	t := findFirst(head, "title")
	if t == nil || t.FirstChild == nil {
		return ""
	}
	return t.FirstChild.Data
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findFirst(c, tag); res != nil {
			return res
		}
	}
	return nil
}

type writer struct {
	b     strings.Builder
	lists []int // item counters; -1 for unordered lists
	inPre bool
}

func (w *writer) walk(n *html.Node) {
	if n.Type == html.TextNode {
		data := n.Data
		if !w.inPre {
			data = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(data)
		}
		w.b.WriteString(data)
		return
	}
	if n.Type != html.ElementNode {
		w.children(n)
		return
	}
	if isBoilerplateContainer(n) {
		return
	}
	switch name := strings.ToLower(n.Data); name {
	case "script", "style", "noscript", "nav", "footer", "aside", "iframe", "head":
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(name[1] - '0')
		w.b.WriteString("\n\n" + strings.Repeat("#", level) + " ")
		w.children(n)
		w.b.WriteString("\n\n")
	case "p", "div", "section":
		w.b.WriteString("\n")
		w.children(n)
		w.b.WriteString("\n")
	case "br":
		w.b.WriteString("\n")
	case "ul", "ol":
		start := -1
		if name == "ol" {
			start = 0
		}
		w.lists = append(w.lists, start)
		w.b.WriteString("\n")
		w.children(n)
		w.lists = w.lists[:len(w.lists)-1]
		w.b.WriteString("\n")
	case "li":
		w.b.WriteString("\n" + w.bullet())
		w.children(n)
		w.b.WriteString("\n")
	case "tr":
		w.b.WriteString("\n|")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
				w.b.WriteString(" " + strings.TrimSpace(textOf(c)) + " |")
			}
		}
		w.b.WriteString("\n")
	case "pre":
		w.inPre = true
		w.b.WriteString("\n")
		w.children(n)
		w.b.WriteString("\n")
		w.inPre = false
	default:
		w.children(n)
	}
}

func (w *writer) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *writer) bullet() string {
	if len(w.lists) == 0 {
		return "- "
	}
	i := len(w.lists) - 1
	if w.lists[i] < 0 {
		return "- "
	}
	w.lists[i]++
	return strconv.Itoa(w.lists[i]) + ". "
}

func textOf(n *html.Node) string {
	var w writer
	w.children(n)
	return collapseSpaces(w.b.String())
}

// isBoilerplateContainer reports elements that look like cookie or consent
// banners.
func isBoilerplateContainer(n *html.Node) bool {
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		if key != "id" && key != "class" && !strings.HasPrefix(key, "data-") && key != "aria-label" && key != "role" {
			continue
		}
		val := strings.ToLower(attr.Val)
		for _, marker := range []string{"cookie", "consent", "gdpr"} {
			if strings.Contains(val, marker) {
				return true
			}
		}
	}
	return false
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(out) == 0 || out[len(out)-1] == "" {
				continue
			}
			out = append(out, "")
			continue
		}
		out = append(out, collapseSpaces(trimmed))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}
