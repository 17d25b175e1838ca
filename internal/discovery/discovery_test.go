package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/docdustry/internal/testutil"
)

func paths(c *Corpus) []string {
	var out []string
	for _, d := range c.Docs {
		out = append(out, d.SourcePathRelative)
	}
	return out
}

func TestDiscover_TraversalOrder(t *testing.T) {
	root := testutil.WriteCorpus(t, map[string]string{
		"b.md":         "# B",
		"a.md":         "# A",
		"sub/c.md":     "# C",
		"notes.txt":    "skip",
		".hidden/d.md": "skip",
	})

	c, err := Discover([]string{root}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md", "sub/c.md"}, paths(c))

	abs, _ := filepath.Abs(root)
	for _, d := range c.Docs {
		assert.Equal(t, abs, d.SourceRootBase)
	}
}

func TestDiscover_DuplicateAcrossRoots(t *testing.T) {
	first := testutil.WriteCorpus(t, map[string]string{"a.md": "first"})
	second := testutil.WriteCorpus(t, map[string]string{"a.md": "second", "b.md": "b"})

	c, err := Discover([]string{first, second}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"a.md", "b.md"}, paths(c))

	raw, err := c.ReadSource(c.Docs[0])
	require.NoError(t, err)
	assert.Equal(t, "first", string(raw))
	assert.Len(t, c.Roots(), 2)
}

func TestDiscover_BadRootSkipped(t *testing.T) {
	good := testutil.WriteCorpus(t, map[string]string{"a.md": "# A"})
	missing := filepath.Join(t.TempDir(), "missing")

	c, err := Discover([]string{missing, good}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, paths(c))
}

func TestDiscover_NoUsableRoot(t *testing.T) {
	_, err := Discover([]string{filepath.Join(t.TempDir(), "missing")}, nil)
	assert.Error(t, err)
}

func TestCorpus_ReadSourceUnreadable(t *testing.T) {
	root := testutil.WriteCorpus(t, map[string]string{"a.md": "# A"})
	c, err := Discover([]string{root}, nil)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "a.md")))
	_, err = c.ReadSource(c.Docs[0])
	assert.Error(t, err)
}
