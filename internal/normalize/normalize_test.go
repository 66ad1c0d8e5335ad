package normalize

import "testing"

func TestText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"tabs", "a\tb", "a    b"},
		{"trailing", "a   \nb\t", "a\nb"},
		{"blank runs", "a\n\n\n\n\nb", "a\n\n\nb"},
		{"trim", "\n\n  a  \n\n", "a"},
		{"nfc", "cafe\u0301", "caf\u00e9"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Text(tc.in); got != tc.want {
				t.Fatalf("Text(%q)=%q want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestTextIdempotent(t *testing.T) {
	in := "# Title\r\n\r\n\r\n\r\nBody\t text  \n"
	once := Text(in)
	if twice := Text(once); twice != once {
		t.Fatalf("not idempotent: %q vs %q", once, twice)
	}
}

func TestLines(t *testing.T) {
	if Lines("") != nil {
		t.Fatalf("empty text should give nil lines")
	}
	if got := Lines("a\nb"); len(got) != 2 {
		t.Fatalf("want 2 lines, got %d", len(got))
	}
}
