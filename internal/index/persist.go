package index

import (
	"log/slog"
	"time"

	"github.com/starford/docdustry/internal/checksum"
	"github.com/starford/docdustry/internal/models"
)

// Persist brings the database in line with a resolved corpus:
//   - new/changed documents (by checksum of path and raw source) are upserted
//   - documents no longer in the corpus are deleted
//
// Documents should still carry their RawSource. When two documents share an
// id the first one wins.
func Persist(db *DB, docs []*models.Document, logger *slog.Logger) error {
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	current := make(map[string]struct{}, len(docs))
	written := 0
	for _, d := range docs {
		if _, dup := current[d.ID]; dup {
			continue
		}
		current[d.ID] = struct{}{}

		cs := checksum.Sum([]byte(d.SourcePathRelative + "\x00" + d.RawSource))
		if checksums[d.ID] == cs {
			continue
		}
		if d.RawSource == "" {
			logger.Warn("persist: document without source", slog.String("did", d.ID), slog.String("path", d.SourcePathRelative))
		}
		row := DocumentRow{
			DID:       d.ID,
			Path:      d.SourcePathRelative,
			Title:     d.Title,
			Status:    d.Status,
			Checksum:  cs,
			Tags:      d.Tags,
			Raw:       d.RawSource,
			URL:       d.URL,
			UpdatedAt: now,
		}
		if err := db.UpsertDocument(row, d.Links); err != nil {
			logger.Warn("persist: upsert failed", slog.String("did", d.ID), slog.String("error", err.Error()))
			continue
		}
		written++
		logger.Debug("persist: stored", slog.String("did", d.ID))
	}

	// Remove stale entries.
	removed := 0
	for did := range checksums {
		if _, ok := current[did]; ok {
			continue
		}
		if err := db.DeleteDocument(did); err != nil {
			logger.Warn("persist: delete failed", slog.String("did", did), slog.String("error", err.Error()))
			continue
		}
		removed++
		logger.Debug("persist: removed stale", slog.String("did", did))
	}

	logger.Info("persist: done", slog.Int("written", written), slog.Int("removed", removed), slog.Int("documents", len(current)))
	return nil
}
