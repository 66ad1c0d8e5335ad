package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var _ Store = (*FileStore)(nil)

// FileStore writes each record to <Dir>/<collection>/<key>.json.
type FileStore struct {
	Dir string
	// StrictPerms, when true, creates directories 0700 and files 0600.
	StrictPerms bool
}

func (s *FileStore) dirFor(collection string) (string, error) {
	if s == nil || strings.TrimSpace(s.Dir) == "" {
		return "", errors.New("store dir not configured")
	}
	return filepath.Join(s.Dir, collection), nil
}

func (s *FileStore) ensureDir(dir string) error {
	perm := os.FileMode(0o755)
	if s.StrictPerms {
		perm = 0o700
	}
	return os.MkdirAll(dir, perm)
}

func (s *FileStore) Save(ctx context.Context, collection, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKey(collection, key); err != nil {
		return err
	}
	dir, err := s.dirFor(collection)
	if err != nil {
		return err
	}
	if err := s.ensureDir(dir); err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if s.StrictPerms {
		mode = 0o600
	}
	p := filepath.Join(dir, key+".json")
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return os.Rename(tmp, p)
}

func (s *FileStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkKey(collection, key); err != nil {
		return nil, err
	}
	dir, err := s.dirFor(collection)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(dir, key+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *FileStore) All(ctx context.Context, collection string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.dirFor(collection)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			// Removed between ReadDir and ReadFile.
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Record{Key: strings.TrimSuffix(name, ".json"), Data: b, UpdatedAt: info.ModTime().UTC()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *FileStore) Delete(ctx context.Context, collection, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKey(collection, key); err != nil {
		return err
	}
	dir, err := s.dirFor(collection)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, key+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *FileStore) Close() error { return nil }
