// Package cache stores model replies on disk so repeated remediation
// requests for the same findings do not call the model again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrInvalidReply is returned by Store for a reply that is not JSON.
var ErrInvalidReply = errors.New("cache: reply is not valid JSON")

// Request identifies one remediation request. It must be built only from
// data that is stable across runs over the same report, never from
// per-run finding ids.
type Request struct {
	Model  string
	System string
	User   string
}

// Key is the hex SHA-256 of the request.
func (r Request) Key() string {
	h := sha256.New()
	for _, part := range []string{r.Model, r.System, r.User} {
		fmt.Fprintf(h, "%d:%s\n", len(part), part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Entry is the on-disk form of a cached reply.
type Entry struct {
	Model   string          `json:"model"`
	Created time.Time       `json:"created"`
	Reply   json.RawMessage `json:"reply"`
}

// LLMCache stores model replies under Dir, sharded by the first two hex
// digits of the request key.
type LLMCache struct {
	Dir string
	// StrictPerms enforces 0700 on cache directories and 0600 on entries.
	StrictPerms bool
	// MaxEntries, when positive, evicts least recently used entries after
	// each Store.
	MaxEntries int
}

func (c *LLMCache) dirMode() os.FileMode {
	if c.StrictPerms {
		return 0o700
	}
	return 0o755
}

func (c *LLMCache) ensureDir(dir string) error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	if err := os.MkdirAll(dir, c.dirMode()); err != nil {
		return err
	}
	// MkdirAll leaves an existing directory's mode alone.
	if c.StrictPerms {
		for _, d := range []string{c.Dir, dir} {
			if info, err := os.Stat(d); err == nil && info.Mode()&0o777 != 0o700 {
				_ = os.Chmod(d, 0o700)
			}
		}
	}
	return nil
}

func (c *LLMCache) pathFor(key string) string {
	return filepath.Join(c.Dir, key[:2], key+".json")
}

// Lookup returns the cached reply for req. A hit refreshes the entry's
// mtime so EnforceLimits evicts least recently used entries first. Corrupt
// entries and entries recorded for another model count as misses.
func (c *LLMCache) Lookup(_ context.Context, req Request) (json.RawMessage, bool, error) {
	if c == nil || c.Dir == "" {
		return nil, false, errors.New("cache dir not configured")
	}
	p := c.pathFor(req.Key())
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false, nil
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil || e.Model != req.Model || len(e.Reply) == 0 {
		return nil, false, nil
	}
	now := time.Now()
	_ = os.Chtimes(p, now, now)
	return e.Reply, true, nil
}

// Store records reply for req, writing through a temporary file.
func (c *LLMCache) Store(_ context.Context, req Request, reply []byte) error {
	if !json.Valid(reply) {
		return ErrInvalidReply
	}
	key := req.Key()
	p := c.pathFor(key)
	if err := c.ensureDir(filepath.Dir(p)); err != nil {
		return err
	}
	b, err := json.Marshal(Entry{Model: req.Model, Created: time.Now().UTC(), Reply: reply})
	if err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if c.StrictPerms {
		mode = 0o600
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, mode); err != nil {
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		return err
	}
	if c.MaxEntries > 0 {
		if _, err := EnforceLimits(c.Dir, 0, c.MaxEntries); err != nil {
			return fmt.Errorf("enforce cache limits: %w", err)
		}
	}
	return nil
}
