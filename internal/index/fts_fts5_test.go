//go:build sqlite_fts5

package index

import (
	"testing"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents_fts`).Scan(&count); err != nil {
		t.Fatalf("documents_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertDocument(row("fts", "FTS Doc", "docdustry provides powerful full-text search.", "search"), nil); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}

	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].DID != "fts" {
		t.Errorf("did = %q", results[0].DID)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(row("gone", "Gone", "vanishing content"), nil)
	_ = db.DeleteDocument("gone")

	results, _ := db.Search("vanishing", 10)
	for _, r := range results {
		if r.DID == "gone" {
			t.Error("deleted document still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(row("evo", "Old", "original text"), nil)
	_ = db.UpsertDocument(row("evo", "New", "replacement text"), nil)

	results, _ := db.Search("original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("replacement", 10)
	if len(results) != 1 || results[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}

func TestFTS5_QuerySyntaxIsLiteral(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(row("q", "Quote", `he said "hello" NEAR the door`), nil)

	for _, q := range []string{`"hello`, `title:hello`, `NEAR(`, `door AND`} {
		if _, err := db.Search(q, 10); err != nil {
			t.Errorf("Search(%q): %v", q, err)
		}
	}
	results, _ := db.Search("hello door", 10)
	if len(results) != 1 {
		t.Errorf("multi-term results = %d, want 1", len(results))
	}
}
