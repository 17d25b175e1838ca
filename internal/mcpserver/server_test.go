package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/docdustry/internal/index"
	"github.com/starford/docdustry/internal/testutil"
)

func testServer(t *testing.T) (*Server, *index.DB) {
	t.Helper()
	db := testutil.TestDB(t)
	return New(db, "test"), db
}

func seed(t *testing.T, db *index.DB, did, title, raw string, tags, links []string) {
	t.Helper()
	err := db.UpsertDocument(index.DocumentRow{
		DID:       did,
		Path:      did + ".md",
		Title:     title,
		Checksum:  did,
		Tags:      tags,
		Raw:       raw,
		UpdatedAt: time.Now().UTC(),
	}, links)
	if err != nil {
		t.Fatal(err)
	}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_documents":
		result, err = srv.searchDocuments(ctx, req)
	case "read_document":
		result, err = srv.readDocument(ctx, req)
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "get_build_report":
		result, err = srv.getBuildReport(ctx, req)
	case "get_directives":
		result, err = srv.getDirectives(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestReadDocument(t *testing.T) {
	srv, db := testServer(t)
	seed(t, db, "a", "A", "# A\nHello", nil, nil)

	r := callTool(t, srv, "read_document", map[string]interface{}{"did": "a"})
	if text := resultText(r); text != "# A\nHello" {
		t.Errorf("read result = %q", text)
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_document", map[string]interface{}{"did": "nope"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestReadDocumentRequiresID(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_document", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without did")
	}
}

func TestListDocuments(t *testing.T) {
	srv, db := testServer(t)
	seed(t, db, "a", "A", "a", []string{"guide"}, nil)
	seed(t, db, "b", "B", "b", nil, nil)

	var all []listEntry
	_ = json.Unmarshal([]byte(resultText(callTool(t, srv, "list_documents", map[string]interface{}{}))), &all)
	if len(all) != 2 {
		t.Fatalf("list = %d entries, want 2", len(all))
	}

	var tagged []listEntry
	_ = json.Unmarshal([]byte(resultText(callTool(t, srv, "list_documents", map[string]interface{}{"tag": "guide"}))), &tagged)
	if len(tagged) != 1 || tagged[0].DID != "a" {
		t.Errorf("tagged = %+v, want only a", tagged)
	}
}

func TestSearchDocuments(t *testing.T) {
	srv, db := testServer(t)
	seed(t, db, "a", "A", "uniquetoken here", nil, nil)
	seed(t, db, "b", "B", "nothing", nil, nil)

	text := resultText(callTool(t, srv, "search_documents", map[string]interface{}{"query": "uniquetoken"}))
	if !strings.Contains(text, `"DID": "a"`) || strings.Contains(text, `"DID": "b"`) {
		t.Errorf("search = %s", text)
	}
}

func TestGetBacklinks(t *testing.T) {
	srv, db := testServer(t)
	seed(t, db, "a", "A", "[b](did:b)", nil, []string{"did:b"})
	seed(t, db, "b", "B", "b", nil, nil)

	for _, did := range []string{"b", "did:b"} {
		r := callTool(t, srv, "get_backlinks", map[string]interface{}{"did": did})
		if text := resultText(r); text != "a" {
			t.Errorf("backlinks(%s) = %q, want a", did, text)
		}
	}

	r := callTool(t, srv, "get_backlinks", map[string]interface{}{"did": "a"})
	if text := resultText(r); text != "no backlinks found" {
		t.Errorf("backlinks(a) = %q", text)
	}
}

func TestDirectives(t *testing.T) {
	srv, _ := testServer(t)

	text := resultText(callTool(t, srv, "get_directives", map[string]interface{}{}))
	for _, want := range []string{"docdustry-docmeta", "docdustry-doclist", "did:"} {
		if !strings.Contains(text, want) {
			t.Errorf("directives missing %q", want)
		}
	}

	res, err := srv.readDirectivesResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if tc, ok := res[0].(mcp.TextResourceContents); !ok || tc.URI != directivesURI {
		t.Errorf("resource = %+v", res)
	}
}

func TestGetBuildReport(t *testing.T) {
	srv, db := testServer(t)

	if r := callTool(t, srv, "get_build_report", map[string]interface{}{}); !r.IsError {
		t.Error("expected error before any build")
	}

	_, err := db.RecordBuild(index.BuildRow{
		FinishedAt: time.Now(),
		Discovered: 3,
		Resolved:   2,
		Abandoned:  []string{"loop"},
		Passes:     4,
	})
	if err != nil {
		t.Fatal(err)
	}
	var rep buildReport
	_ = json.Unmarshal([]byte(resultText(callTool(t, srv, "get_build_report", map[string]interface{}{}))), &rep)
	if rep.Discovered != 3 || rep.Passes != 4 || len(rep.Abandoned) != 1 || rep.Abandoned[0] != "loop" {
		t.Errorf("report = %+v", rep)
	}
}
