// Package normalize canonicalizes raw report text before detection.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const tabWidth = 4

// Text unifies line endings, expands tabs, strips trailing whitespace on
// every line, collapses runs of three or more blank lines to two and trims
// the result. Unicode is composed to NFC so visually identical input hashes
// identically.
func Text(raw string) string {
	s := norm.NFC.String(raw)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \f\v")
		if line == "" {
			blank++
			if blank > 2 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Lines splits normalized text into lines. Empty text yields no lines.
func Lines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
