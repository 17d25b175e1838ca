package index

import (
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/docdustry/internal/apperr"
)

func TestLatestBuild_Empty(t *testing.T) {
	db := testDB(t)
	if _, err := db.LatestBuild(); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRecordBuild_RoundTrip(t *testing.T) {
	db := testDB(t)
	finished := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := db.RecordBuild(BuildRow{FinishedAt: finished.Add(-time.Hour), Discovered: 1}); err != nil {
		t.Fatalf("RecordBuild: %v", err)
	}
	id, err := db.RecordBuild(BuildRow{
		FinishedAt: finished,
		Discovered: 4,
		Resolved:   2,
		Abandoned:  []string{"a"},
		Skipped:    []string{"gone.md"},
		Dangling:   1,
		Passes:     3,
		Duration:   1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("RecordBuild: %v", err)
	}

	b, err := db.LatestBuild()
	if err != nil {
		t.Fatalf("LatestBuild: %v", err)
	}
	if b.ID != id || b.Discovered != 4 || b.Passes != 3 || b.Dangling != 1 {
		t.Errorf("latest = %+v", b)
	}
	if len(b.Abandoned) != 1 || b.Abandoned[0] != "a" || len(b.Skipped) != 1 {
		t.Errorf("abandoned = %v, skipped = %v", b.Abandoned, b.Skipped)
	}
	if b.Duration != 1500*time.Millisecond {
		t.Errorf("duration = %v", b.Duration)
	}
	if !b.FinishedAt.Equal(finished) {
		t.Errorf("finished_at = %v, want %v", b.FinishedAt, finished)
	}
}

func TestPruneBuilds(t *testing.T) {
	db := testDB(t)
	for i := 1; i <= 5; i++ {
		if _, err := db.RecordBuild(BuildRow{FinishedAt: time.Now(), Discovered: i}); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.PruneBuilds(2); err != nil {
		t.Fatalf("PruneBuilds: %v", err)
	}
	var n int
	_ = db.conn.QueryRow(`SELECT count(*) FROM builds`).Scan(&n)
	if n != 2 {
		t.Errorf("builds = %d, want 2", n)
	}
	b, _ := db.LatestBuild()
	if b.Discovered != 5 {
		t.Errorf("latest discovered = %d, want 5", b.Discovered)
	}
}

func TestOpen_RebuildsOtherSchemaVersion(t *testing.T) {
	f, err := os.CreateTemp("", "docdustry-schema-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	old, err := sql.Open("sqlite3", f.Name())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := old.Exec(`CREATE TABLE documents (did TEXT PRIMARY KEY, body TEXT); PRAGMA user_version = 1;`); err != nil {
		t.Fatal(err)
	}
	old.Close()

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.UpsertDocument(row("a", "A", "raw"), nil); err != nil {
		t.Fatalf("UpsertDocument after migration: %v", err)
	}
	var version int
	_ = db.conn.QueryRow(`PRAGMA user_version`).Scan(&version)
	if version != schemaVersion {
		t.Errorf("user_version = %d, want %d", version, schemaVersion)
	}
}
