// Package site writes the rendered corpus as a static HTML site.
package site

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path"

	"github.com/starford/docdustry/internal/models"
	"github.com/starford/docdustry/internal/storage"
)

// StaticDir is the output subdirectory holding shared assets.
const StaticDir = "docdustry_static"

//go:embed assets
var assets embed.FS

var (
	pageTmpl  = template.Must(template.ParseFS(assets, "assets/page.html"))
	indexTmpl = template.Must(template.ParseFS(assets, "assets/index.html"))
)

// themeable lists the assets a theme directory may replace.
var themeable = []string{"default.css", "default.js"}

// Writer writes pages and assets below one output directory.
type Writer struct {
	out       storage.Provider
	theme     storage.Provider
	frontpage string
	logger    *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithFrontpage makes index.html redirect to the document with the given id.
func WithFrontpage(id string) Option {
	return func(w *Writer) { w.frontpage = id }
}

// WithTheme reads default.css and default.js from the directory p when present.
func WithTheme(p storage.Provider) Option {
	return func(w *Writer) { w.theme = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWriter creates the output directory if needed and returns a Writer for it.
func NewWriter(output string, opts ...Option) (*Writer, error) {
	if err := os.MkdirAll(output, 0o755); err != nil {
		return nil, fmt.Errorf("site: create output: %w", err)
	}
	out, err := storage.NewFS(output)
	if err != nil {
		return nil, fmt.Errorf("site: %w", err)
	}
	w := &Writer{out: out, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Root returns the absolute output directory.
func (w *Writer) Root() string {
	return w.out.Root()
}

type pageData struct {
	Title  string
	Locals models.Record
	Body   template.HTML
}

// WriteDocument writes the page of one finished document.
func (w *Writer) WriteDocument(doc *models.Document) error {
	var buf bytes.Buffer
	err := pageTmpl.Execute(&buf, pageData{
		Title:  doc.Title,
		Locals: doc.Record(),
		Body:   template.HTML(doc.HTML),
	})
	if err != nil {
		return fmt.Errorf("site: render page %s: %w", doc.SourcePathRelative, err)
	}
	if err := w.out.Write(doc.OutputPath(), buf.Bytes()); err != nil {
		return fmt.Errorf("site: write page %s: %w", doc.SourcePathRelative, err)
	}
	return nil
}

// WriteStatic writes index.html and the shared assets.
func (w *Writer) WriteStatic(docs []*models.Document) error {
	var redirect string
	if w.frontpage != "" {
		for _, d := range docs {
			if d.ID == w.frontpage {
				redirect = d.OutputPath()
				break
			}
		}
		if redirect == "" {
			w.logger.Warn("site: frontpage not found", slog.String("id", w.frontpage))
		}
	}
	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, struct{ Redirect string }{redirect}); err != nil {
		return fmt.Errorf("site: render index: %w", err)
	}
	if err := w.out.Write("index.html", buf.Bytes()); err != nil {
		return fmt.Errorf("site: write index: %w", err)
	}

	for _, name := range themeable {
		data, err := w.asset(name)
		if err != nil {
			return err
		}
		if err := w.out.Write(path.Join(StaticDir, name), data); err != nil {
			return fmt.Errorf("site: write %s: %w", name, err)
		}
	}
	return nil
}

func (w *Writer) asset(name string) ([]byte, error) {
	if w.theme != nil {
		data, err := w.theme.Read(name)
		if err == nil {
			return data, nil
		}
		w.logger.Debug("site: theme asset missing, using default", slog.String("name", name))
	}
	data, err := assets.ReadFile("assets/" + name)
	if err != nil {
		return nil, fmt.Errorf("site: embedded %s: %w", name, err)
	}
	return data, nil
}

// WriteGlobals writes the client-side index of every document record.
func (w *Writer) WriteGlobals(docs []*models.Document) error {
	var buf bytes.Buffer
	buf.WriteString("const DOCDUSTRY_GLOBALS = {docs:[\n")
	for _, rec := range models.Records(docs) {
		b, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("site: encode record %s: %w", rec.DID, err)
		}
		buf.Write(b)
		buf.WriteString(",\n")
	}
	buf.WriteString("],};\n")
	if err := w.out.Write(path.Join(StaticDir, "globals.js"), buf.Bytes()); err != nil {
		return fmt.Errorf("site: write globals: %w", err)
	}
	return nil
}

// WriteSite writes every page, the static assets and the globals. A page that
// fails to write is logged and skipped; the joined page errors are returned
// after everything else has been written.
func (w *Writer) WriteSite(docs []*models.Document) error {
	var pageErrs []error
	for _, d := range docs {
		if err := w.WriteDocument(d); err != nil {
			w.logger.Error("site: page", slog.String("path", d.SourcePathRelative), slog.String("error", err.Error()))
			pageErrs = append(pageErrs, err)
		}
	}
	if err := w.WriteStatic(docs); err != nil {
		return err
	}
	if err := w.WriteGlobals(docs); err != nil {
		return err
	}
	w.logger.Info("site: written", slog.String("output", w.Root()), slog.Int("pages", len(docs)-len(pageErrs)))
	return errors.Join(pageErrs...)
}
