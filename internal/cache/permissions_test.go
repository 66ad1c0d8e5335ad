package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLLMCache_StrictPerms(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "llm")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	c := &LLMCache{Dir: dir, StrictPerms: true}
	r := Request{Model: "model", User: "prompt"}
	if err := c.Store(context.Background(), r, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("store: %v", err)
	}
	p := c.pathFor(r.Key())
	for _, d := range []string{dir, filepath.Dir(p)} {
		info, err := os.Stat(d)
		if err != nil {
			t.Fatalf("stat dir: %v", err)
		}
		if got := info.Mode() & 0o777; got != 0o700 {
			t.Fatalf("%s mode = %o, want 0700", d, got)
		}
	}
	finfo, err := os.Stat(p)
	if err != nil {
		t.Fatalf("stat file: %v", err)
	}
	if got := finfo.Mode() & 0o777; got != 0o600 {
		t.Fatalf("file mode = %o, want 0600", got)
	}
}
