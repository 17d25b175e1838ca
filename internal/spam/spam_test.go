package spam

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/docdustry/internal/discovery"
	"github.com/starford/docdustry/internal/models"
	"github.com/starford/docdustry/internal/resolver"
)

func TestGenerate(t *testing.T) {
	out := filepath.Join(t.TempDir(), "corpus")
	n, err := Generate(out, Options{Dirs: 2, Files: 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	b, err := os.ReadFile(filepath.Join(out, "dir1", "file2.md"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "# Random Markdown 1 2\n")
	assert.Contains(t, string(b), "> Also a quote")
}

func TestGenerate_IncludesResolve(t *testing.T) {
	out := t.TempDir()
	_, err := Generate(out, Options{Dirs: 2, Files: 4, Includes: true}, nil)
	require.NoError(t, err)

	corpus, err := discovery.Discover([]string{out}, nil)
	require.NoError(t, err)
	docs, report, err := resolver.New(corpus, nil).Resolve(context.Background(), corpus.Docs)
	require.NoError(t, err)

	assert.Len(t, docs, 8)
	assert.Empty(t, report.Abandoned)
	for _, d := range docs {
		assert.Equal(t, models.StateResolved, d.State, d.SourcePathRelative)
	}
	last := ID(0, 3)
	for _, d := range docs {
		if d.ID == last {
			assert.Contains(t, d.HTML, `href="did:`+ID(0, 0)+`"`)
		}
	}
}
