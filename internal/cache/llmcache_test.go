package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func req(user string) Request {
	return Request{Model: "m", System: "review", User: user}
}

func TestLLMCache_StoreLookup(t *testing.T) {
	ctx := context.Background()
	c := &LLMCache{Dir: t.TempDir()}
	reply := []byte(`{"notes":[],"summary":"ok"}`)
	if err := c.Store(ctx, req("findings"), reply); err != nil {
		t.Fatalf("store: %v", err)
	}
	got, ok, err := c.Lookup(ctx, req("findings"))
	if err != nil || !ok {
		t.Fatalf("lookup: %v ok=%v", err, ok)
	}
	if string(got) != string(reply) {
		t.Fatalf("reply mismatch: %s", got)
	}
	if _, ok, _ := c.Lookup(ctx, req("other")); ok {
		t.Fatalf("unexpected hit")
	}
	if _, err := os.Stat(c.pathFor(req("findings").Key())); err != nil {
		t.Fatalf("entry should be sharded by key prefix: %v", err)
	}
}

func TestLLMCache_RejectsNonJSONReply(t *testing.T) {
	c := &LLMCache{Dir: t.TempDir()}
	if err := c.Store(context.Background(), req("x"), []byte("not json")); !errors.Is(err, ErrInvalidReply) {
		t.Fatalf("want ErrInvalidReply, got %v", err)
	}
}

func TestLLMCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c := &LLMCache{Dir: t.TempDir()}
	r := req("x")
	if err := c.Store(ctx, r, []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.pathFor(r.Key()), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Lookup(ctx, r); ok || err != nil {
		t.Fatalf("corrupt entry: ok=%v err=%v", ok, err)
	}
}

func TestRequestKey(t *testing.T) {
	base := Request{Model: "a", System: "s", User: "u"}
	for _, other := range []Request{
		{Model: "b", System: "s", User: "u"},
		{Model: "a", System: "t", User: "u"},
		{Model: "a", System: "s", User: "v"},
		// Field boundaries are part of the key.
		{Model: "a", System: "su", User: ""},
	} {
		if base.Key() == other.Key() {
			t.Fatalf("%+v and %+v share a key", base, other)
		}
	}
	if base.Key() != (Request{Model: "a", System: "s", User: "u"}).Key() {
		t.Fatalf("key must be deterministic")
	}
}

func TestLLMCache_Unconfigured(t *testing.T) {
	var c *LLMCache
	if _, _, err := c.Lookup(context.Background(), req("k")); err == nil {
		t.Fatalf("expected error for nil cache")
	}
	if err := (&LLMCache{}).Store(context.Background(), req("k"), []byte("{}")); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}

func TestEnforceLimits_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := &LLMCache{Dir: t.TempDir()}
	reqs := []Request{req("p1"), req("p2"), req("p3")}
	base := time.Now().Add(-time.Hour)
	for i, r := range reqs {
		if err := c.Store(ctx, r, []byte(fmt.Sprintf("%d", i))); err != nil {
			t.Fatalf("store %d: %v", i, err)
		}
		mod := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(c.pathFor(r.Key()), mod, mod); err != nil {
			t.Fatal(err)
		}
	}
	// A hit makes the oldest entry the most recently used.
	if _, ok, _ := c.Lookup(ctx, reqs[0]); !ok {
		t.Fatal("expected hit")
	}
	removed, err := EnforceLimits(c.Dir, 0, 2)
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok, _ := c.Lookup(ctx, reqs[1]); ok {
		t.Fatal("expected least recently used entry evicted")
	}
}

func TestLLMCache_MaxEntries(t *testing.T) {
	ctx := context.Background()
	c := &LLMCache{Dir: t.TempDir(), MaxEntries: 2}
	past := time.Now().Add(-time.Hour)
	for i, r := range []Request{req("a"), req("b"), req("c")} {
		if err := c.Store(ctx, r, []byte(`{}`)); err != nil {
			t.Fatal(err)
		}
		mod := past.Add(time.Duration(i) * time.Minute)
		_ = os.Chtimes(c.pathFor(r.Key()), mod, mod)
	}
	all, err := entries(c.Dir)
	if err != nil || len(all) != 2 {
		t.Fatalf("want 2 entries after eviction, got %d (%v)", len(all), err)
	}
	if _, ok, _ := c.Lookup(ctx, req("a")); ok {
		t.Fatalf("oldest entry should be evicted")
	}
}

func TestPurgeByAge(t *testing.T) {
	ctx := context.Background()
	c := &LLMCache{Dir: t.TempDir()}
	old, fresh := req("old"), req("fresh")
	for _, r := range []Request{old, fresh} {
		if err := c.Store(ctx, r, []byte("{}")); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(c.pathFor(old.Key()), past, past); err != nil {
		t.Fatal(err)
	}
	n, err := PurgeByAge(c.Dir, 24*time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("purge: n=%d err=%v", n, err)
	}
	if _, ok, _ := c.Lookup(ctx, fresh); !ok {
		t.Fatalf("fresh entry should survive")
	}
}

func TestClearDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "llm")
	c := &LLMCache{Dir: dir}
	if err := c.Store(context.Background(), req("k"), []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if err := ClearDir(dir); err != nil {
		t.Fatal(err)
	}
	left, _ := os.ReadDir(dir)
	if len(left) != 0 {
		t.Fatalf("expected empty dir, got %d entries", len(left))
	}
	if err := ClearDir(" "); err == nil {
		t.Fatalf("blank dir must be rejected")
	}
}
