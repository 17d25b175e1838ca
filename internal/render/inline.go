package render

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/util"
)

func (tr *translation) escaped(v []byte) {
	tr.buf.Write(util.EscapeHTML(v))
}

func (tr *translation) attr(name string, value []byte) {
	tr.buf.WriteString(" " + name + `="`)
	tr.escaped(value)
	tr.buf.WriteByte('"')
}

func (tr *translation) text(n *ast.Text) {
	tr.escaped(textValue(n, tr.src))
	switch {
	case n.HardLineBreak():
		tr.buf.WriteString("<br/>\n")
	case n.SoftLineBreak():
		tr.buf.WriteByte('\n')
	}
}

func (tr *translation) codeSpan(n *ast.CodeSpan) {
	tr.buf.WriteString("<code>")
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		var v []byte
		switch c := c.(type) {
		case *ast.Text:
			v = c.Segment.Value(tr.src)
		case *ast.String:
			v = c.Value
		}
		if bytes.HasSuffix(v, []byte("\n")) {
			v = append(v[:len(v)-1:len(v)-1], ' ')
		}
		tr.escaped(v)
	}
	tr.buf.WriteString("</code>")
}

// link records corpus-internal targets, did: ones included, as outgoing links.
func (tr *translation) link(n *ast.Link, entering bool) {
	if !entering {
		tr.buf.WriteString("</a>")
		return
	}
	dest := string(n.Destination)
	if dest != "" && IsInternal(dest) {
		tr.res.Links = append(tr.res.Links, dest)
	}
	tr.buf.WriteString("<a")
	tr.attr("href", util.URLEscape(n.Destination, true))
	if len(n.Title) > 0 {
		tr.attr("title", n.Title)
	}
	tr.buf.WriteByte('>')
}

// autoLink writes <url> style links; they always point outside the corpus.
func (tr *translation) autoLink(n *ast.AutoLink) {
	url := n.URL(tr.src)
	if n.AutoLinkType == ast.AutoLinkEmail && !bytes.HasPrefix(bytes.ToLower(url), []byte("mailto:")) {
		url = append([]byte("mailto:"), url...)
	}
	tr.buf.WriteString("<a")
	tr.attr("href", util.URLEscape(url, false))
	tr.buf.WriteByte('>')
	tr.escaped(n.Label(tr.src))
	tr.buf.WriteString("</a>")
}

func (tr *translation) image(n *ast.Image) {
	dest := string(n.Destination)
	if id, ok := strings.CutPrefix(dest, TransclusionScheme); ok {
		tr.include(id)
		return
	}
	tr.buf.WriteString("<img")
	tr.attr("src", util.URLEscape(n.Destination, true))
	if id, ok := n.AttributeString("id"); ok {
		tr.attr("id", attrBytes(id))
	}
	if len(n.Title) > 0 {
		tr.attr("title", n.Title)
	}
	tr.attr("alt", plainText(n, tr.src))
	tr.buf.WriteString("/>")
}

// include splices the rendered HTML of document id. Without a substitution
// map the id is only recorded; with one, a missing id yields an error marker.
func (tr *translation) include(id string) {
	if tr.opts.Includes == nil {
		tr.res.PendingIncludes = append(tr.res.PendingIncludes, id)
		return
	}
	escID := util.EscapeHTML([]byte(id))
	html, ok := tr.opts.Includes[id]
	if !ok {
		tr.logger.Warn("render: unresolved inclusion",
			slog.String("path", tr.rel), slog.String("id", id))
		fmt.Fprintf(&tr.buf, "<p class=\"error\">Inclusion fail: %s%s</p>\n", TransclusionScheme, escID)
		return
	}
	fmt.Fprintf(&tr.buf, "<article class=\"inclusion\"><a class=\"inclusion\" href=\"%s%s\">inclusion</a>\n%s</article>\n",
		TransclusionScheme, escID, html)
}

// inclusionOnly reports whether a paragraph holds nothing but one did: image,
// which is emitted without the paragraph wrapper.
func inclusionOnly(p *ast.Paragraph) bool {
	if p.ChildCount() != 1 {
		return false
	}
	img, ok := p.FirstChild().(*ast.Image)
	return ok && bytes.HasPrefix(img.Destination, []byte(TransclusionScheme))
}

func textValue(n *ast.Text, src []byte) []byte {
	v := n.Segment.Value(src)
	if n.IsRaw() {
		return v
	}
	v = util.UnescapePunctuations(v)
	v = util.ResolveNumericReferences(v)
	return util.ResolveEntityNames(v)
}

// leadingText joins the text nodes that open a heading.
func leadingText(n ast.Node, src []byte) string {
	var b []byte
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		t, ok := c.(*ast.Text)
		if !ok {
			break
		}
		b = append(b, textValue(t, src)...)
	}
	return strings.TrimSpace(string(b))
}

func plainText(n ast.Node, src []byte) []byte {
	var b []byte
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			b = append(b, textValue(c, src)...)
		case *ast.String:
			b = append(b, c.Value...)
		default:
			b = append(b, plainText(c, src)...)
		}
	}
	return b
}

func attrBytes(v any) []byte {
	switch v := v.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	}
	return []byte(fmt.Sprint(v))
}
