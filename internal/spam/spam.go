// Package spam generates synthetic Markdown corpora for load testing.
package spam

import (
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/starford/docdustry/internal/storage"
)

const body = `
Some text here

Multiple paragraphs even

> Also a quote

` + "```" + `
and code
` + "```" + `

Ending here.
`

// Options controls the generated corpus shape.
type Options struct {
	Dirs  int
	Files int
	// Includes makes every file after the first in a directory transclude its
	// predecessor, giving the resolver chains of length Files.
	Includes bool
}

// ID returns the id assigned to generated file f of directory d when
// Includes is set.
func ID(d, f int) string {
	return fmt.Sprintf("spam-%d-%d", d, f)
}

// Generate writes opts.Dirs directories of opts.Files documents each below
// output and returns the number of files written.
func Generate(output string, opts Options, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(output, 0o755); err != nil {
		return 0, fmt.Errorf("spam: create output: %w", err)
	}
	fs, err := storage.NewFS(output)
	if err != nil {
		return 0, fmt.Errorf("spam: %w", err)
	}

	n := 0
	for d := 0; d < opts.Dirs; d++ {
		for f := 0; f < opts.Files; f++ {
			content := fmt.Sprintf("# Random Markdown %d %d\n", d, f)
			if opts.Includes {
				content += fmt.Sprintf("\n```docdustry-docmeta\nid: %s\ntag: spam\n```\n", ID(d, f))
				if f > 0 {
					content += fmt.Sprintf("\n![](did:%s)\n", ID(d, f-1))
				}
			}
			content += body
			rel := path.Join(fmt.Sprintf("dir%d", d), fmt.Sprintf("file%d.md", f))
			if err := fs.Write(rel, []byte(content)); err != nil {
				return n, fmt.Errorf("spam: %w", err)
			}
			n++
		}
	}
	logger.Info("spam: generated", slog.String("output", fs.Root()), slog.Int("files", n))
	return n, nil
}
