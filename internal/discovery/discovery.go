// Package discovery enumerates the Markdown documents of one or more source roots.
package discovery

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/docdustry/internal/apperr"
	"github.com/starford/docdustry/internal/models"
	"github.com/starford/docdustry/internal/storage"
)

// Corpus is the result of discovery: documents in traversal order and the
// provider each one is read through.
type Corpus struct {
	Docs      []*models.Document
	providers map[string]storage.Provider
}

// ReadSource returns the raw text of doc from the root it was discovered in.
func (c *Corpus) ReadSource(doc *models.Document) ([]byte, error) {
	p, ok := c.providers[doc.SourceRootBase]
	if !ok {
		return nil, fmt.Errorf("discovery: root %s: %w", doc.SourceRootBase, apperr.ErrNotFound)
	}
	return p.Read(doc.SourcePathRelative)
}

// Roots returns the absolute directories that were walked successfully, in order.
func (c *Corpus) Roots() []string {
	var out []string
	seen := make(map[string]bool)
	for _, d := range c.Docs {
		if !seen[d.SourceRootBase] {
			seen[d.SourceRootBase] = true
			out = append(out, d.SourceRootBase)
		}
	}
	return out
}

// Discover walks every root in order. A root that cannot be opened or listed
// is logged and skipped; a relative path already contributed by an earlier
// root is skipped with a warning. An error is returned only when no root
// could be walked at all.
func Discover(roots []string, logger *slog.Logger) (*Corpus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Corpus{providers: make(map[string]storage.Provider)}
	seen := make(map[string]string)
	var errs []error

	for _, root := range roots {
		fs, err := storage.NewFS(root, storage.WithLogger(logger))
		if err != nil {
			logger.Warn("discovery: skip root", slog.String("root", root), slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}
		items, err := fs.List("")
		if err != nil {
			logger.Warn("discovery: list root", slog.String("root", root), slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}
		c.providers[fs.Root()] = fs
		for _, it := range items {
			if prev, dup := seen[it.Path]; dup {
				logger.Warn("discovery: duplicate path",
					slog.String("path", it.Path),
					slog.String("root", fs.Root()),
					slog.String("kept", prev))
				continue
			}
			seen[it.Path] = fs.Root()
			c.Docs = append(c.Docs, models.NewDocument(fs.Root(), it.Path))
		}
	}

	if len(c.providers) == 0 && len(roots) > 0 {
		return nil, fmt.Errorf("discovery: no usable root: %w", errors.Join(errs...))
	}
	logger.Debug("discovery: done", slog.Int("documents", len(c.Docs)), slog.Int("roots", len(c.providers)))
	return c, nil
}
