// Package watch reports changes to Markdown sources below a set of roots.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/docdustry/internal/storage"
)

// DefaultDebounce is the quiet period after the last event before a batch is delivered.
const DefaultDebounce = 200 * time.Millisecond

// Change is one observed source event. Kind is one of "created", "updated",
// "deleted".
type Change struct {
	Kind string
	Root string
	Path string // slash separated, relative to Root
}

// ChangeCallback receives the changes accumulated during one debounce window.
type ChangeCallback func(changes []Change)

// Watch starts an fsnotify watcher on every root and processes source change
// events until ctx is cancelled. Events are batched: cb runs once the roots
// have been quiet for debounce.
//
// New directories created at runtime are automatically added to the watch
// list and the sources already inside them are reported as created. Hidden
// files and directories are ignored.
func Watch(ctx context.Context, roots []string, debounce time.Duration, logger *slog.Logger, cb ChangeCallback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	absRoots := make([]string, 0, len(roots))
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return err
		}
		if err := addDirsRecursive(w, abs); err != nil {
			return err
		}
		absRoots = append(absRoots, abs)
		logger.Info("watcher: started", slog.String("root", abs))
	}

	var (
		pending  []Change
		timer    *time.Timer
		deadline <-chan time.Time
	)
	record := func(kind, abs string) {
		root, rel, ok := locate(absRoots, abs)
		if !ok {
			return
		}
		pending = append(pending, Change{Kind: kind, Root: root, Path: rel})
		if timer == nil {
			timer = time.NewTimer(debounce)
			deadline = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-deadline:
			batch := pending
			pending = nil
			timer = nil
			deadline = nil
			if len(batch) > 0 && cb != nil {
				cb(batch)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name
			if isHidden(absPath) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					_ = filepath.WalkDir(absPath, func(p string, d fs.DirEntry, err error) error {
						if err == nil && !d.IsDir() && isSource(p) {
							record("created", p)
						}
						return nil
					})
					continue
				}
			}

			if !isSource(absPath) {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				record("created", absPath)
			case ev.Op&fsnotify.Write != 0:
				record("updated", absPath)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old path only; the new path arrives
				// as a separate Create when it stays under a watched dir.
				record("deleted", absPath)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// locate finds the root containing abs and the slash-separated path below it.
func locate(roots []string, abs string) (string, string, bool) {
	for _, root := range roots {
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		return root, filepath.ToSlash(rel), true
	}
	return "", "", false
}

func isSource(p string) bool {
	return filepath.Ext(p) == storage.SourceExt
}

func isHidden(p string) bool {
	return strings.HasPrefix(filepath.Base(p), ".")
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
