package mcpserver

// DirectiveReference describes the Markdown extensions docdustry understands.
// LLM consumers should follow it when writing documents for the corpus.
const DirectiveReference = `# docdustry Directive Reference

Documents are plain CommonMark files ending in ` + "`" + `.md` + "`" + `. Tables and
strikethrough are supported. Footnotes, task lists and YAML front matter are NOT
supported and make the build fail.

## Title

The text of the first level-one heading is the document title.
A document without one is titled ` + "`" + `<unknown>` + "`" + `.

## Metadata

` + "```" + `markdown
` + "```" + `docdustry-docmeta
id: getting-started
status: draft
tag: guide
tag: onboarding
` + "```" + `
` + "```" + `

- One ` + "`" + `key: value` + "`" + ` pair per line. Unknown keys are ignored.
- ` + "`" + `id` + "`" + ` is the stable document id. Without it an id is derived from the file path.
- ` + "`" + `tag` + "`" + ` may repeat.

## Links

Link to another document with ` + "`" + `[text](did:getting-started)` + "`" + `. The link is
rewritten to the target page in the browser. Links starting with ` + "`" + `http://` + "`" + `,
` + "`" + `https://` + "`" + ` or ` + "`" + `#` + "`" + ` are external.

## Transclusion

` + "`" + `![](did:getting-started)` + "`" + ` embeds the rendered content of another document.
Inclusions nest. A cycle is reported and the affected document is published with
an error marker in place of the inclusion. A missing target renders as
` + "`" + `Inclusion fail: did:ID` + "`" + `.

## Listings

` + "```" + `markdown
` + "```" + `docdustry-doclist
only-if-tagged: guide
skip-if-tagged: draft
` + "```" + `
` + "```" + `

Renders a list of links to every document, in corpus order, filtered by the given
rules in order. An empty block lists the whole corpus.
`
