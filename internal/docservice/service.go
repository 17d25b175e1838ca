// Package docservice builds the site and answers queries about the latest corpus.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/docdustry/internal/apperr"
	"github.com/starford/docdustry/internal/discovery"
	"github.com/starford/docdustry/internal/index"
	"github.com/starford/docdustry/internal/metrics"
	"github.com/starford/docdustry/internal/models"
	"github.com/starford/docdustry/internal/render"
	"github.com/starford/docdustry/internal/resolver"
	"github.com/starford/docdustry/internal/site"
)

// DocumentDetail is the full representation of a built document.
type DocumentDetail struct {
	DID             string   `json:"did"`
	Title           string   `json:"title"`
	Status          string   `json:"status"`
	Tags            []string `json:"tags"`
	Links           []string `json:"links"`
	URL             string   `json:"url"`
	Path            string   `json:"path"`
	State           string   `json:"state"`
	PendingIncludes []string `json:"pending_includes,omitempty"`
	HTML            string   `json:"html"`
	Backlinks       []string `json:"backlinks"`
}

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	DID    string   `json:"did"`
	Title  string   `json:"title"`
	Status string   `json:"status"`
	Tags   []string `json:"tags"`
	URL    string   `json:"url"`
	State  string   `json:"state"`
}

// BuildSummary describes the outcome of the latest build.
type BuildSummary struct {
	Roots      []string  `json:"roots"`
	Discovered int       `json:"discovered"`
	Resolved   int       `json:"resolved"`
	Abandoned  []string  `json:"abandoned"`
	Skipped    []string  `json:"skipped"`
	Dangling   int       `json:"dangling"`
	Passes     int       `json:"passes"`
	Duration   string    `json:"duration"`
	FinishedAt time.Time `json:"finished_at"`
}

// Options configures a Service.
type Options struct {
	Sources     []string
	Workers     int
	MaxAttempts int
	KeepSource  bool
}

// Service coordinates discovery, resolution, the site writer and the index.
// Writer and DB are optional.
type Service struct {
	opts     Options
	writer   *site.Writer
	db       *index.DB
	recorder metrics.Recorder
	logger   *slog.Logger

	buildMu sync.Mutex

	mu      sync.RWMutex
	docs    []*models.Document
	byID    map[string]*models.Document
	summary *BuildSummary
}

// NewService creates a new document service.
func NewService(opts Options, writer *site.Writer, db *index.DB, recorder metrics.Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	// Persisted documents carry their source.
	if db != nil {
		opts.KeepSource = true
	}
	return &Service{
		opts:     opts,
		writer:   writer,
		db:       db,
		recorder: recorder,
		logger:   logger,
		byID:     make(map[string]*models.Document),
	}
}

// Build runs a full build: discovery, resolution, then the site and the
// index when configured. Builds are serialized. On success the queried corpus
// is replaced.
func (s *Service) Build(ctx context.Context) (*BuildSummary, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	start := time.Now()
	summary, err := s.build(ctx)
	elapsed := time.Since(start)
	s.recorder.ObserveBuildDuration(elapsed)
	switch {
	case err != nil:
		s.recorder.IncBuildOutcome(metrics.OutcomeFailed)
		return nil, err
	case len(summary.Abandoned) > 0 || len(summary.Skipped) > 0:
		s.recorder.IncBuildOutcome(metrics.OutcomeWarning)
	default:
		s.recorder.IncBuildOutcome(metrics.OutcomeSuccess)
	}
	summary.Duration = elapsed.String()
	s.recordBuild(summary, elapsed)
	s.logger.Info("build: done",
		slog.Int("discovered", summary.Discovered),
		slog.Int("resolved", summary.Resolved),
		slog.Int("abandoned", len(summary.Abandoned)),
		slog.Int("skipped", len(summary.Skipped)),
		slog.Int("passes", summary.Passes),
		slog.String("duration", summary.Duration))
	return summary, nil
}

// keepBuilds bounds the build history kept in the index.
const keepBuilds = 100

func (s *Service) recordBuild(summary *BuildSummary, elapsed time.Duration) {
	if s.db == nil {
		return
	}
	_, err := s.db.RecordBuild(index.BuildRow{
		FinishedAt: summary.FinishedAt,
		Discovered: summary.Discovered,
		Resolved:   summary.Resolved,
		Abandoned:  summary.Abandoned,
		Skipped:    summary.Skipped,
		Dangling:   summary.Dangling,
		Passes:     summary.Passes,
		Duration:   elapsed,
	})
	if err == nil {
		err = s.db.PruneBuilds(keepBuilds)
	}
	if err != nil {
		s.logger.Warn("build: record history", slog.String("error", err.Error()))
	}
}

func (s *Service) build(ctx context.Context) (*BuildSummary, error) {
	stage := time.Now()
	corpus, err := discovery.Discover(s.opts.Sources, s.logger)
	if err != nil {
		return nil, err
	}
	s.recorder.ObserveStageDuration("discover", time.Since(stage))

	r := resolver.New(corpus, s.logger,
		resolver.WithWorkers(s.opts.Workers),
		resolver.WithMaxAttempts(s.opts.MaxAttempts),
		resolver.WithKeepSource(s.opts.KeepSource),
		resolver.WithRecorder(s.recorder),
	)
	docs, report, err := r.Resolve(ctx, corpus.Docs)
	if err != nil {
		return nil, err
	}

	var outErr error
	if s.writer != nil {
		stage = time.Now()
		if err := s.writer.WriteSite(docs); err != nil {
			outErr = fmt.Errorf("build: write site: %w", err)
		}
		s.recorder.ObserveStageDuration("write", time.Since(stage))
	}
	if s.db != nil {
		stage = time.Now()
		if err := index.Persist(s.db, docs, s.logger); err != nil {
			outErr = errors.Join(outErr, fmt.Errorf("build: persist: %w", err))
		}
		s.recorder.ObserveStageDuration("persist", time.Since(stage))
	}
	if outErr != nil {
		return nil, outErr
	}

	summary := &BuildSummary{
		Roots:      nonNilSlice(corpus.Roots()),
		Discovered: report.Discovered,
		Resolved:   len(report.Resolved),
		Abandoned:  nonNilSlice(report.Abandoned),
		Skipped:    nonNilSlice(report.Skipped),
		Dangling:   report.Dangling,
		Passes:     report.Passes,
		FinishedAt: time.Now().UTC(),
	}

	byID := make(map[string]*models.Document, len(docs))
	for _, d := range docs {
		if _, dup := byID[d.ID]; !dup {
			byID[d.ID] = d
		}
	}
	s.mu.Lock()
	s.docs = docs
	s.byID = byID
	s.summary = summary
	s.mu.Unlock()
	return summary, nil
}

// Summary returns the outcome of the latest successful build, or nil.
func (s *Service) Summary() *BuildSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// Sources returns the configured source roots.
func (s *Service) Sources() []string {
	return s.opts.Sources
}

// GetDocument returns the built document with the given id.
func (s *Service) GetDocument(ctx context.Context, did string) (*DocumentDetail, error) {
	s.mu.RLock()
	d, ok := s.byID[did]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("docservice: document %s: %w", did, apperr.ErrNotFound)
	}
	bl, err := s.Backlinks(ctx, did)
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{
		DID:             d.ID,
		Title:           d.Title,
		Status:          d.Status,
		Tags:            nonNilSlice(d.Tags),
		Links:           nonNilSlice(d.Links),
		URL:             d.URL,
		Path:            d.SourcePathRelative,
		State:           d.State.String(),
		PendingIncludes: d.PendingIncludes,
		HTML:            d.HTML,
		Backlinks:       nonNilSlice(bl),
	}, nil
}

// ListDocuments returns the built documents in corpus order, optionally
// restricted to those carrying tag.
func (s *Service) ListDocuments(_ context.Context, tag string) ([]DocumentListItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]DocumentListItem, 0, len(s.docs))
	for _, d := range s.docs {
		if tag != "" && !d.Meta().HasTag(tag) {
			continue
		}
		items = append(items, DocumentListItem{
			DID:    d.ID,
			Title:  d.Title,
			Status: d.Status,
			Tags:   nonNilSlice(d.Tags),
			URL:    d.URL,
			State:  d.State.String(),
		})
	}
	return items, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if s.db == nil {
		return nil, fmt.Errorf("docservice: search without index: %w", apperr.ErrUnsupported)
	}
	return s.db.Search(query, limit)
}

// Backlinks returns the ids of documents linking to did. The index answers
// when configured; otherwise the in-memory corpus is scanned.
func (s *Service) Backlinks(_ context.Context, did string) ([]string, error) {
	target := render.TransclusionScheme + did
	if s.db != nil {
		return s.db.Backlinks(target)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, d := range s.docs {
		for _, l := range d.Links {
			if l == target {
				out = append(out, d.ID)
				break
			}
		}
	}
	return out, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
