package render

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/util"

	"github.com/starford/docdustry/internal/models"
	"github.com/starford/docdustry/internal/parser"
)

func linesOf(n ast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}

func (tr *translation) fencedCodeBlock(n *ast.FencedCodeBlock) {
	lang := string(n.Language(tr.src))
	body := linesOf(n, tr.src)
	switch lang {
	case parser.MetaDirective:
		tr.metaBlock(body)
	case parser.ListingDirective:
		tr.listingBlock(body)
	default:
		tr.codeBlock(lang, body)
	}
}

func (tr *translation) codeBlock(lang, body string) {
	if lang == "" {
		lang = "unknown"
	}
	tr.buf.WriteString(`<pre class="language-`)
	tr.escaped([]byte(lang))
	tr.buf.WriteString(`"><code>`)
	tr.escaped([]byte(body))
	tr.buf.WriteString("</code></pre>\n")
}

// metaBlock applies a metadata directive and keeps its body visible in a
// collapsed block. A later directive overrides id and status; tags accumulate.
func (tr *translation) metaBlock(body string) {
	m := parser.ParseMeta(body)
	if m.ID != "" {
		tr.res.ID = m.ID
	}
	if m.Status != "" {
		tr.res.Status = m.Status
	}
	for _, tag := range m.Tags {
		tr.addTag(tag)
	}
	fmt.Fprintf(&tr.buf, `<details class="metainfo"><summary>doc meta info</summary><pre class="%s"><code>`, parser.MetaDirective)
	tr.escaped([]byte(body))
	tr.buf.WriteString("</code></pre></details>\n")
}

// listingBlock renders the snapshot entries surviving the directive's filters.
// Without a snapshot the list is empty and the result asks for another pass.
func (tr *translation) listingBlock(body string) {
	if tr.opts.Snapshot == nil {
		tr.res.NeedsSnapshot = true
	}
	entries := FilterSnapshot(tr.opts.Snapshot, parser.ParseListing(body))
	tr.buf.WriteString("<ul class=\"doclist\">\n")
	for _, e := range entries {
		fmt.Fprintf(&tr.buf, "<li><a href=\"%s%s\">%s</a></li>\n",
			TransclusionScheme, util.EscapeHTML([]byte(e.ID)), util.EscapeHTML([]byte(e.Title)))
	}
	tr.buf.WriteString("</ul>\n")
}

// FilterSnapshot keeps the entries passing every filter, in snapshot order.
// Filters compose as a conjunction.
func FilterSnapshot(snapshot []models.DocumentMeta, filters []parser.Filter) []models.DocumentMeta {
	var out []models.DocumentMeta
	for _, m := range snapshot {
		keep := true
		for _, f := range filters {
			if !f.Keep(m.HasTag) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, m)
		}
	}
	return out
}
