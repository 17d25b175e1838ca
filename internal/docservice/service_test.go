package docservice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/docdustry/internal/apperr"
	"github.com/starford/docdustry/internal/metrics"
	"github.com/starford/docdustry/internal/site"
	"github.com/starford/docdustry/internal/testutil"
)

// countingRecorder records build outcomes and ignores everything else.
type countingRecorder struct {
	metrics.NoopRecorder
	outcomes []metrics.Outcome
}

func (c *countingRecorder) IncBuildOutcome(o metrics.Outcome) { c.outcomes = append(c.outcomes, o) }

func TestBuild_WritesSiteAndIndex(t *testing.T) {
	root := testutil.WriteCorpus(t, map[string]string{
		"a.md": "# A\n\n```docdustry-docmeta\nid: a\n```\n\n![](did:b)\n",
		"b.md": "# B\n\n```docdustry-docmeta\nid: b\n```\n\nsee [a](did:a)\n",
	})
	out := filepath.Join(t.TempDir(), "out")
	w, err := site.NewWriter(out)
	require.NoError(t, err)
	db := testutil.TestDB(t)
	rec := &countingRecorder{}

	svc := NewService(Options{Sources: []string{root}}, w, db, rec, nil)
	summary, err := svc.Build(context.Background())
	require.NoError(t, err)

	assert.Len(t, summary.Roots, 1)
	assert.Equal(t, 2, summary.Discovered)
	assert.Equal(t, 2, summary.Resolved)
	assert.Empty(t, summary.Abandoned)
	assert.Equal(t, []metrics.Outcome{metrics.OutcomeSuccess}, rec.outcomes)
	assert.FileExists(t, filepath.Join(out, "index.html"))

	last, err := db.LatestBuild()
	require.NoError(t, err)
	assert.Equal(t, 2, last.Resolved)

	row, err := db.GetDocument("b")
	require.NoError(t, err)
	assert.Contains(t, row.Raw, "see [a](did:a)")

	detail, err := svc.GetDocument(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, detail.Backlinks)
	assert.Contains(t, detail.HTML, `href="did:b"`)
}

func TestBuild_AbandonedIsWarning(t *testing.T) {
	root := testutil.WriteCorpus(t, map[string]string{
		"a.md": "```docdustry-docmeta\nid: a\n```\n\n![](did:a)\n",
	})
	rec := &countingRecorder{}
	svc := NewService(Options{Sources: []string{root}}, nil, nil, rec, nil)

	summary, err := svc.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, summary.Abandoned)
	assert.Equal(t, []metrics.Outcome{metrics.OutcomeWarning}, rec.outcomes)
}

func TestBuild_FailureKeepsPreviousCorpus(t *testing.T) {
	root := testutil.WriteCorpus(t, map[string]string{"a.md": "# A\n"})
	rec := &countingRecorder{}
	svc := NewService(Options{Sources: []string{root}}, nil, nil, rec, nil)

	_, err := svc.Build(context.Background())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.md"), []byte("x[^1]\n\n[^1]: y\n"), 0o644))

	_, err = svc.Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUnsupported))
	assert.Equal(t, metrics.OutcomeFailed, rec.outcomes[1])

	items, err := svc.ListDocuments(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestListDocuments_TagFilter(t *testing.T) {
	root := testutil.WriteCorpus(t, map[string]string{
		"a.md": "# A\n\n```docdustry-docmeta\ntag: x\n```\n",
		"b.md": "# B\n",
	})
	svc := NewService(Options{Sources: []string{root}}, nil, nil, nil, nil)
	_, err := svc.Build(context.Background())
	require.NoError(t, err)

	all, err := svc.ListDocuments(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	tagged, err := svc.ListDocuments(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, "A", tagged[0].Title)
	assert.Equal(t, []string{"x"}, tagged[0].Tags)
}

func TestGetDocument_NotFound(t *testing.T) {
	svc := NewService(Options{}, nil, nil, nil, nil)

	_, err := svc.GetDocument(context.Background(), "nope")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestSearch_WithoutIndex(t *testing.T) {
	svc := NewService(Options{}, nil, nil, nil, nil)

	_, err := svc.Search(context.Background(), "x", 0)
	assert.True(t, errors.Is(err, apperr.ErrUnsupported))
}

func TestBacklinks_InMemory(t *testing.T) {
	root := testutil.WriteCorpus(t, map[string]string{
		"a.md": "```docdustry-docmeta\nid: a\n```\n\n[x](did:c) [y](did:c)\n",
		"b.md": "```docdustry-docmeta\nid: b\n```\n\n[z](did:c)\n",
		"c.md": "```docdustry-docmeta\nid: c\n```\n",
	})
	svc := NewService(Options{Sources: []string{root}}, nil, nil, nil, nil)
	_, err := svc.Build(context.Background())
	require.NoError(t, err)

	bl, err := svc.Backlinks(context.Background(), "c")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, bl)
}
