package budget

import "testing"

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
	}
	for _, c := range cases {
		if got := EstimateTokens(c.in); got != c.want {
			t.Fatalf("EstimateTokens(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestModelContextTokens(t *testing.T) {
	cases := map[string]int{
		"":                 8192,
		"GPT-4o":           128_000,
		"my-model-200k":    200_000,
		"local-mini":       128_000,
		"gpt-oss-20b":      4_096,
		"unknown-backend":  8192,
		"mixtral-8x7b-32k": 32_768,
	}
	for model, want := range cases {
		if got := ModelContextTokens(model); got != want {
			t.Fatalf("ModelContextTokens(%q) = %d, want %d", model, got, want)
		}
	}
}

func TestRemainingAndHeadroom(t *testing.T) {
	if Headroom("gpt-oss-20b") != 512 {
		t.Fatalf("small contexts use the 512 floor")
	}
	if h := Headroom("gpt-4o"); h < 6400 || h > 6401 {
		t.Fatalf("headroom=%d want 5%% of 128k", h)
	}
	if got := Remaining("gpt-oss-20b", 1000, 500); got != 4096-512-1000-500 {
		t.Fatalf("Remaining=%d", got)
	}
	if Remaining("gpt-oss-20b", 10_000, 0) != 0 {
		t.Fatalf("Remaining must not go negative")
	}
}

func TestFitLines(t *testing.T) {
	lines := []string{"abcdefg", "abcdefg", "abcdefg"}
	if got := FitLines(lines, 4); len(got) != 2 {
		t.Fatalf("FitLines kept %d lines, want 2", len(got))
	}
	if got := FitLines(lines, 100); len(got) != 3 {
		t.Fatalf("everything fits, got %d", len(got))
	}
	if got := FitLines(lines, 0); len(got) != 0 {
		t.Fatalf("zero budget keeps nothing, got %d", len(got))
	}
}
