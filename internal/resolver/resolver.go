// Package resolver drives documents from discovery to their final HTML,
// satisfying transclusions with a bounded work queue.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/docdustry/internal/apperr"
	"github.com/starford/docdustry/internal/metrics"
	"github.com/starford/docdustry/internal/models"
	"github.com/starford/docdustry/internal/render"
)

// SourceReader reads the raw text of a discovered document.
type SourceReader interface {
	ReadSource(doc *models.Document) ([]byte, error)
}

// Report summarizes one resolution run.
type Report struct {
	Discovered int
	Skipped    []string // source paths that could not be read
	Resolved   []string // ids
	Abandoned  []string // ids
	Dangling   int      // transclusions naming an id absent from the corpus
	Passes     int
}

// Resolver runs the translation passes over a corpus.
type Resolver struct {
	reader      SourceReader
	translator  *render.Translator
	logger      *slog.Logger
	recorder    metrics.Recorder
	workers     int
	maxAttempts int
	keepSource  bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithWorkers bounds the parallelism of the first pass. Values below 1 use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(r *Resolver) { r.workers = n }
}

// WithMaxAttempts caps how often a document is re-queued. Values below 1 use
// the corpus size plus one.
func WithMaxAttempts(n int) Option {
	return func(r *Resolver) { r.maxAttempts = n }
}

// WithKeepSource retains RawSource on finished documents.
func WithKeepSource(keep bool) Option {
	return func(r *Resolver) { r.keepSource = keep }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Resolver) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// New creates a Resolver reading sources through reader.
func New(reader SourceReader, logger *slog.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		reader:     reader,
		translator: render.NewTranslator(logger),
		logger:     logger,
		recorder:   metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers < 1 {
		r.workers = runtime.GOMAXPROCS(0)
	}
	return r
}

// Resolve translates docs until every transclusion is satisfied or proven
// unsatisfiable. It returns the documents that survived the first pass, in
// input order, each in state Resolved or Abandoned. The only fatal error is an
// unsupported construct (or context cancellation).
func (r *Resolver) Resolve(ctx context.Context, docs []*models.Document) ([]*models.Document, *Report, error) {
	report := &Report{Discovered: len(docs)}

	start := time.Now()
	live, needsSnapshot, err := r.firstPass(ctx, docs, report)
	if err != nil {
		return nil, nil, err
	}
	r.recorder.ObserveStageDuration("first_pass", time.Since(start))
	report.Passes = 1

	byID := make(map[string]*models.Document, len(live))
	for _, d := range live {
		if prev, dup := byID[d.ID]; dup {
			r.logger.Warn("resolver: duplicate document id",
				slog.String("id", d.ID),
				slog.String("path", d.SourcePathRelative),
				slog.String("kept", prev.SourcePathRelative),
				slog.String("error", apperr.ErrDuplicate.Error()))
			continue
		}
		byID[d.ID] = d
	}
	snapshot := models.Snapshot(live)

	var queue []*models.Document
	for _, d := range live {
		if len(d.PendingIncludes) > 0 || needsSnapshot[d] {
			d.State = models.StatePending
			d.HTML = ""
			queue = append(queue, d)
			continue
		}
		r.finish(d, models.StateResolved)
	}

	maxAttempts := r.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = len(live) + 1
	}

	start = time.Now()
	var abandoned []*models.Document
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		report.Passes++
		progress := false
		var next []*models.Document
		for _, d := range queue {
			subs, dangling, ready := substitutions(d, byID, false)
			if ready {
				if err := r.retranslate(d, subs, snapshot); err != nil {
					return nil, nil, err
				}
				report.Dangling += dangling
				r.finish(d, models.StateResolved)
				progress = true
				continue
			}
			d.Attempts++
			if d.Attempts >= maxAttempts {
				abandoned = append(abandoned, d)
				continue
			}
			next = append(next, d)
		}
		queue = next
		if !progress && len(queue) > 0 {
			r.logger.Debug("resolver: no progress in sweep", slog.Int("pending", len(queue)))
			abandoned = append(abandoned, queue...)
			queue = nil
		}
	}

	// Abandoned documents get whatever targets are ready; the rest render as
	// error markers.
	for _, d := range abandoned {
		subs, dangling, _ := substitutions(d, byID, true)
		var unresolved []string
		for _, id := range d.PendingIncludes {
			if _, ok := subs[id]; !ok {
				unresolved = append(unresolved, id)
			}
		}
		if err := r.retranslate(d, subs, snapshot); err != nil {
			return nil, nil, err
		}
		report.Dangling += dangling
		d.PendingIncludes = unresolved
		r.logger.Warn("resolver: abandoned document",
			slog.String("id", d.ID),
			slog.String("path", d.SourcePathRelative),
			slog.Int("attempts", d.Attempts),
			slog.Any("unresolved", unresolved))
		r.finish(d, models.StateAbandoned)
	}
	r.recorder.ObserveStageDuration("resolve", time.Since(start))

	for _, d := range live {
		switch d.State {
		case models.StateResolved:
			report.Resolved = append(report.Resolved, d.ID)
		case models.StateAbandoned:
			report.Abandoned = append(report.Abandoned, d.ID)
		}
	}
	r.recorder.ObserveResolvePasses(report.Passes)
	r.recorder.IncDanglingIncludes(report.Dangling)
	r.recorder.SetDocuments(models.StateResolved.String(), len(report.Resolved))
	r.recorder.SetDocuments(models.StateAbandoned.String(), len(report.Abandoned))
	r.recorder.SetDocuments("skipped", len(report.Skipped))
	return live, report, nil
}

// firstPass reads and translates every document without substitutions or
// snapshot. Unreadable documents are dropped.
func (r *Resolver) firstPass(ctx context.Context, docs []*models.Document, report *Report) ([]*models.Document, map[*models.Document]bool, error) {
	results := make([]*render.Result, len(docs))
	raws := make([]string, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, d := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := r.reader.ReadSource(d)
			if err != nil {
				r.logger.Warn("resolver: skip unreadable document",
					slog.String("path", d.SourcePathRelative),
					slog.String("root", d.SourceRootBase),
					slog.String("error", err.Error()))
				return nil
			}
			res, err := r.translator.Translate(render.Source{Raw: string(raw), SourcePathRelative: d.SourcePathRelative}, render.Options{})
			if err != nil {
				return err
			}
			raws[i] = string(raw)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("resolver: first pass: %w", err)
	}

	live := make([]*models.Document, 0, len(docs))
	needsSnapshot := make(map[*models.Document]bool)
	for i, d := range docs {
		if results[i] == nil {
			report.Skipped = append(report.Skipped, d.SourcePathRelative)
			continue
		}
		d.RawSource = raws[i]
		apply(d, results[i])
		d.State = models.StateFirstPassDone
		if results[i].NeedsSnapshot {
			needsSnapshot[d] = true
		}
		live = append(live, d)
	}
	return live, needsSnapshot, nil
}

func (r *Resolver) retranslate(d *models.Document, subs render.Substitutions, snapshot []models.DocumentMeta) error {
	res, err := r.translator.Translate(render.Source{Raw: d.RawSource, SourcePathRelative: d.SourcePathRelative}, render.Options{
		Includes: subs,
		Snapshot: snapshot,
	})
	if err != nil {
		return fmt.Errorf("resolver: %w", err)
	}
	pending := d.PendingIncludes
	apply(d, res)
	d.PendingIncludes = pending
	return nil
}

func (r *Resolver) finish(d *models.Document, state models.State) {
	d.State = state
	if state == models.StateResolved {
		d.PendingIncludes = nil
	}
	if !r.keepSource {
		d.RawSource = ""
	}
}

// substitutions builds the map for d's pending ids. Ids absent from the corpus
// are left out and counted as dangling. Unless partial is set, any target that
// is not Resolved yet makes d not ready.
func substitutions(d *models.Document, byID map[string]*models.Document, partial bool) (render.Substitutions, int, bool) {
	subs := make(render.Substitutions, len(d.PendingIncludes))
	dangling := 0
	for _, id := range d.PendingIncludes {
		t, ok := byID[id]
		if !ok {
			dangling++
			continue
		}
		if t.State != models.StateResolved {
			if partial {
				continue
			}
			return nil, 0, false
		}
		subs[id] = t.HTML
	}
	return subs, dangling, true
}

func apply(d *models.Document, res *render.Result) {
	d.ID = res.ID
	d.Title = res.Title
	d.Status = res.Status
	d.Tags = res.Tags
	d.Links = res.Links
	d.URL = res.URL
	d.PendingIncludes = res.PendingIncludes
	d.HTML = res.HTML
}
