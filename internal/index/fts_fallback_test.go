//go:build !sqlite_fts5

package index

import (
	"strings"
	"testing"
)

func TestFallbackSearch_SnippetMarksHit(t *testing.T) {
	db := testDB(t)
	raw := strings.Repeat("lead ", 40) + "Needle in the text" + strings.Repeat(" tail", 40)
	if err := db.UpsertDocument(row("n", "N", raw), nil); err != nil {
		t.Fatal(err)
	}

	results, err := db.Search("needle", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	s := results[0].Snippet
	if !strings.Contains(s, "<b>Needle</b>") {
		t.Errorf("snippet = %q, want marked hit", s)
	}
	if !strings.HasPrefix(s, "...") || !strings.HasSuffix(s, "...") {
		t.Errorf("snippet = %q, want ellipses on both sides", s)
	}
}

func TestFallbackSearch_LikeWildcardsLiteral(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(row("p", "P", "one hundred percent"), nil)
	_ = db.UpsertDocument(row("q", "Q", "exactly 100% done"), nil)

	results, err := db.Search("100%", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].DID != "q" {
		t.Errorf("results = %+v, want only q", results)
	}
}

func TestFallbackSearch_Blank(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(row("a", "A", "x"), nil)

	results, err := db.Search("   ", 10)
	if err != nil || len(results) != 0 {
		t.Errorf("blank query = %+v, %v", results, err)
	}
}

func TestSnippet_NoHitReturnsHead(t *testing.T) {
	got := snippet(strings.Repeat("a", 300), "zzz", 10)
	if got != strings.Repeat("a", 20)+"..." {
		t.Errorf("snippet = %q", got)
	}
}
