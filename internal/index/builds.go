package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/docdustry/internal/apperr"
)

// BuildRow is one recorded build outcome.
type BuildRow struct {
	ID         int64
	FinishedAt time.Time
	Discovered int
	Resolved   int
	Abandoned  []string
	Skipped    []string
	Dangling   int
	Passes     int
	Duration   time.Duration
}

// RecordBuild appends a build outcome and returns its id.
func (db *DB) RecordBuild(b BuildRow) (int64, error) {
	abandoned, _ := json.Marshal(nonNil(b.Abandoned))
	skipped, _ := json.Marshal(nonNil(b.Skipped))
	res, err := db.conn.Exec(`
		INSERT INTO builds (finished_at, discovered, resolved, abandoned, skipped, dangling, passes, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, b.FinishedAt.UTC(), b.Discovered, b.Resolved, string(abandoned), string(skipped), b.Dangling, b.Passes, b.Duration.Milliseconds())
	if err != nil {
		return 0, fmt.Errorf("index: record build: %w", err)
	}
	return res.LastInsertId()
}

// LatestBuild returns the most recently recorded build.
func (db *DB) LatestBuild() (*BuildRow, error) {
	var (
		b                  BuildRow
		abandoned, skipped string
		ms                 int64
	)
	err := db.conn.QueryRow(`
		SELECT id, finished_at, discovered, resolved, abandoned, skipped, dangling, passes, duration_ms
		FROM builds ORDER BY id DESC LIMIT 1
	`).Scan(&b.ID, &b.FinishedAt, &b.Discovered, &b.Resolved, &abandoned, &skipped, &b.Dangling, &b.Passes, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: latest build: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: latest build: %w", err)
	}
	_ = json.Unmarshal([]byte(abandoned), &b.Abandoned)
	_ = json.Unmarshal([]byte(skipped), &b.Skipped)
	b.Duration = time.Duration(ms) * time.Millisecond
	return &b, nil
}

// PruneBuilds keeps the newest keep builds and deletes the rest.
func (db *DB) PruneBuilds(keep int) error {
	_, err := db.conn.Exec(`
		DELETE FROM builds WHERE id NOT IN (SELECT id FROM builds ORDER BY id DESC LIMIT ?)
	`, keep)
	if err != nil {
		return fmt.Errorf("index: prune builds: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
