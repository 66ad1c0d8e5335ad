package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hyperifyio/goassess/internal/export"
	"github.com/hyperifyio/goassess/internal/extract"
)

// AssessmentSuffix marks files written by watch mode; they are never
// assessed themselves.
const AssessmentSuffix = ".assessment.md"

var watchedExts = map[string]bool{".md": true, ".markdown": true, ".txt": true, ".html": true, ".htm": true}

// Watchable reports whether watch mode assesses path.
func Watchable(path string) bool {
	lower := strings.ToLower(filepath.Base(path))
	if strings.HasPrefix(lower, ".") || strings.HasSuffix(lower, AssessmentSuffix) {
		return false
	}
	return watchedExts[filepath.Ext(lower)]
}

// WatchHandler receives each assessment made in watch mode.
type WatchHandler func(path string, a *export.Assessment, err error)

// AssessFile reads path, sniffs its format and assesses it.
func (a *App) AssessFile(ctx context.Context, path string) (*export.Assessment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	in, err := extract.Load(path, data)
	if err != nil {
		return nil, err
	}
	res, err := a.Assess(ctx, in.Text, in.Format)
	if err != nil {
		return nil, err
	}
	res.Meta.Source = path
	return res, nil
}

// WatchDir assesses report files created or written in dir until ctx is
// cancelled. Bursts of writes to one file within settle are assessed once.
// When the App was configured with a registry directory, report types are
// reloaded as they change too.
func (a *App) WatchDir(ctx context.Context, dir string, settle time.Duration, fn WatchHandler) error {
	if settle <= 0 {
		settle = 200 * time.Millisecond
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching directory %s: %w", dir, err)
	}
	if a.cfg.RegistryDir != "" {
		if err := a.types.Watch(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("report type watch unavailable")
		}
	}
	a.logger.Info().Str("dir", dir).Msg("watching for reports")

	pending := map[string]time.Time{}
	tick := time.NewTicker(settle / 2)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !Watchable(ev.Name) || !(ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) {
				continue
			}
			pending[ev.Name] = time.Now()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn().Err(err).Msg("report watcher error")
		case now := <-tick.C:
			for path, seen := range pending {
				if now.Sub(seen) < settle {
					continue
				}
				delete(pending, path)
				res, err := a.AssessFile(ctx, path)
				if err != nil {
					a.logger.Warn().Err(err).Str("file", path).Msg("assessment failed")
				}
				fn(path, res, err)
			}
		}
	}
}
