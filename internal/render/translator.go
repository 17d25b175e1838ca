// Package render translates one Markdown document into an HTML fragment,
// handling the docdustry directives and did: transclusion.
package render

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	gmparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/starford/docdustry/internal/address"
	"github.com/starford/docdustry/internal/apperr"
	"github.com/starford/docdustry/internal/checksum"
	"github.com/starford/docdustry/internal/models"
	"github.com/starford/docdustry/internal/parser"
)

// UnknownTitle is the title of a document without a level-1 heading.
const UnknownTitle = "<unknown>"

// TransclusionScheme marks link and image targets that reference a document id.
const TransclusionScheme = "did:"

// Substitutions maps document ids to their final rendered HTML.
type Substitutions map[string]string

// Source is the input of one translation.
type Source struct {
	Raw                string
	SourcePathRelative string
}

// Options carries the corpus state a translation may consult.
type Options struct {
	// Includes is nil on the first pass: transclusions are then recorded as
	// pending instead of rendered. A non-nil map renders every transclusion,
	// with an error marker for ids it lacks.
	Includes Substitutions
	// Snapshot is nil until the corpus metadata has been collected.
	Snapshot []models.DocumentMeta
}

// Result holds everything one translation derives from a document.
type Result struct {
	ID              string
	Title           string
	Status          string
	Tags            []string
	Links           []string
	PendingIncludes []string
	URL             string
	HTML            string
	// NeedsSnapshot is set when a listing directive was rendered without a snapshot.
	NeedsSnapshot bool
}

// Translator converts Markdown sources to HTML fragments. It keeps no state
// between calls and is safe for concurrent use.
type Translator struct {
	logger *slog.Logger
}

// NewTranslator returns a Translator logging to logger.
func NewTranslator(logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{logger: logger}
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
			extension.Footnote,
		),
		goldmark.WithParserOptions(gmparser.WithAttribute()),
	)
}

// Translate renders src. It fails only on constructs that are not supported,
// in which case the error wraps apperr.ErrUnsupported.
func (t *Translator) Translate(src Source, opts Options) (*Result, error) {
	source := []byte(src.Raw)
	tr := &translation{
		src:    source,
		rel:    src.SourcePathRelative,
		opts:   opts,
		res:    &Result{},
		tags:   make(map[string]struct{}),
		logger: t.logger,
	}
	if parser.HasFrontmatter(source) {
		return nil, tr.unsupported("metadata block")
	}

	root := newMarkdown().Parser().Parse(text.NewReader(source))
	if err := ast.Walk(root, tr.walk); err != nil {
		return nil, err
	}

	res := tr.res
	if res.ID == "" {
		res.ID = checksum.DocumentID(src.SourcePathRelative, res.Title)
	}
	if res.Title == "" {
		res.Title = UnknownTitle
	}
	res.URL = address.URL(src.SourcePathRelative)
	res.HTML = tr.buf.String()
	return res, nil
}

// IsInternal reports whether a link target refers into the corpus rather than
// to an external site or a fragment of the same page.
func IsInternal(dest string) bool {
	return !(strings.HasPrefix(dest, "http://") ||
		strings.HasPrefix(dest, "https://") ||
		strings.HasPrefix(dest, "#"))
}

type translation struct {
	src    []byte
	rel    string
	opts   Options
	buf    bytes.Buffer
	res    *Result
	tags   map[string]struct{}
	logger *slog.Logger
}

func (tr *translation) unsupported(construct string) error {
	return fmt.Errorf("render: %s: %s: %w", tr.rel, construct, apperr.ErrUnsupported)
}

// walk handles every node kind the parser can produce. Constructs docdustry
// refuses are explicit cases; an unknown kind is an error as well.
func (tr *translation) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n := node.(type) {
	case *ast.Document:

	// Blocks.
	case *ast.Heading:
		tr.heading(n, entering)
	case *ast.Paragraph:
		if !inclusionOnly(n) {
			tr.tag(entering, "<p>", "</p>\n")
		}
	case *ast.TextBlock:
		if !entering && n.NextSibling() != nil && n.FirstChild() != nil {
			tr.buf.WriteByte('\n')
		}
	case *ast.ThematicBreak:
		if entering {
			tr.buf.WriteString("<hr/>\n")
		}
	case *ast.Blockquote:
		tr.tag(entering, "<blockquote>\n", "</blockquote>\n")
	case *ast.CodeBlock:
		if entering {
			tr.codeBlock("", linesOf(n, tr.src))
		}
		return ast.WalkSkipChildren, nil
	case *ast.FencedCodeBlock:
		if entering {
			tr.fencedCodeBlock(n)
		}
		return ast.WalkSkipChildren, nil
	case *ast.HTMLBlock:
		if entering {
			tr.buf.WriteString(linesOf(n, tr.src))
			if n.HasClosure() {
				tr.buf.Write(n.ClosureLine.Value(tr.src))
			}
		}
		return ast.WalkSkipChildren, nil
	case *ast.List:
		tr.list(n, entering)
	case *ast.ListItem:
		tr.tag(entering, "<li>", "</li>\n")
	case *east.Table:
		tr.tag(entering, "<table>\n", "</tbody>\n</table>\n")
	case *east.TableHeader:
		tr.tag(entering, "<thead>\n<tr>\n", "</tr>\n</thead>\n<tbody>\n")
	case *east.TableRow:
		tr.tag(entering, "<tr>\n", "</tr>\n")
	case *east.TableCell:
		tr.tableCell(n, entering)

	// Inlines.
	case *ast.Text:
		if entering {
			tr.text(n)
		}
	case *ast.String:
		if entering {
			if n.IsCode() || n.IsRaw() {
				tr.buf.Write(n.Value)
			} else {
				tr.escaped(n.Value)
			}
		}
	case *ast.CodeSpan:
		if entering {
			tr.codeSpan(n)
		}
		return ast.WalkSkipChildren, nil
	case *ast.Emphasis:
		if n.Level == 2 {
			tr.tag(entering, "<strong>", "</strong>")
		} else {
			tr.tag(entering, "<em>", "</em>")
		}
	case *east.Strikethrough:
		tr.tag(entering, "<del>", "</del>")
	case *ast.Link:
		tr.link(n, entering)
	case *ast.AutoLink:
		if entering {
			tr.autoLink(n)
		}
		return ast.WalkSkipChildren, nil
	case *ast.Image:
		if entering {
			tr.image(n)
		}
		return ast.WalkSkipChildren, nil
	case *ast.RawHTML:
		if entering {
			for i := 0; i < n.Segments.Len(); i++ {
				seg := n.Segments.At(i)
				tr.buf.Write(seg.Value(tr.src))
			}
		}
		return ast.WalkSkipChildren, nil

	// Refused.
	case *east.FootnoteLink:
		return ast.WalkStop, tr.unsupported("footnote reference")
	case *east.Footnote, *east.FootnoteList, *east.FootnoteBacklink:
		return ast.WalkStop, tr.unsupported("footnote definition")
	case *east.TaskCheckBox:
		return ast.WalkStop, tr.unsupported("task list marker")

	default:
		return ast.WalkStop, fmt.Errorf("render: %s: unknown node kind %s", tr.rel, node.Kind())
	}
	return ast.WalkContinue, nil
}

func (tr *translation) tag(entering bool, open, close string) {
	if entering {
		tr.buf.WriteString(open)
	} else {
		tr.buf.WriteString(close)
	}
}

func (tr *translation) heading(n *ast.Heading, entering bool) {
	if !entering {
		fmt.Fprintf(&tr.buf, "</h%d>\n", n.Level)
		return
	}
	fmt.Fprintf(&tr.buf, "<h%d", n.Level)
	if id, ok := n.AttributeString("id"); ok {
		tr.attr("id", attrBytes(id))
	}
	tr.buf.WriteByte('>')
	if n.Level == 1 && tr.res.Title == "" {
		tr.res.Title = leadingText(n, tr.src)
	}
}

func (tr *translation) list(n *ast.List, entering bool) {
	if !n.IsOrdered() {
		tr.tag(entering, "<ul>\n", "</ul>\n")
		return
	}
	if !entering {
		tr.buf.WriteString("</ol>\n")
		return
	}
	tr.buf.WriteString("<ol")
	if n.Start != 1 {
		fmt.Fprintf(&tr.buf, ` start="%d"`, n.Start)
	}
	tr.buf.WriteString(">\n")
}

func (tr *translation) tableCell(n *east.TableCell, entering bool) {
	name := "td"
	if _, ok := n.Parent().(*east.TableHeader); ok {
		name = "th"
	}
	if !entering {
		fmt.Fprintf(&tr.buf, "</%s>\n", name)
		return
	}
	tr.buf.WriteString("<" + name)
	if n.Alignment != east.AlignNone {
		tr.attr("align", []byte(n.Alignment.String()))
	}
	tr.buf.WriteByte('>')
}

func (tr *translation) addTag(tag string) {
	if _, dup := tr.tags[tag]; dup {
		return
	}
	tr.tags[tag] = struct{}{}
	tr.res.Tags = append(tr.res.Tags, tag)
}
