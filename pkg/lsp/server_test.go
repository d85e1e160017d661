package lsp

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
	"src.tabl.sh/pkg/testutil"
	. "src.tabl.sh/pkg/tt"
)

func pos(line, char int) lsp.Position { return lsp.Position{Line: line, Character: char} }

func rng(l1, c1, l2, c2 int) lsp.Range { return lsp.Range{Start: pos(l1, c1), End: pos(l2, c2)} }

func TestDiagnostics(t *testing.T) {
	Test(t, diagnostics,
		Args("").Rets([]lsp.Diagnostic{}),
		Args("table t 1 2\n# comment\nlet col 2 = sum(col 1)\n").Rets([]lsp.Diagnostic{}),
		Args("table t 1 1\nnope 1").Rets([]lsp.Diagnostic{{
			Range:    rng(1, 0, 1, 6),
			Severity: lsp.Error,
			Source:   "tabl",
			Message:  `unknown command "nope"; try help`,
		}}),
		Args("table t 1 1\r\nnope\r\n").Rets([]lsp.Diagnostic{{
			Range:    rng(1, 0, 1, 4),
			Severity: lsp.Error,
			Source:   "tabl",
			Message:  `unknown command "nope"; try help`,
		}}),
	)
}

func TestDiagnostics_FormulaError(t *testing.T) {
	diags := diagnostics("table t 1 1\nlet col 1 = 1 + )")
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	r := diags[0].Range
	// The range is within the formula, not the whole line.
	if r.Start.Line != 1 || r.Start.Character < len("let col 1 = ") {
		t.Errorf("got range %v, want one within the formula", r)
	}
}

func TestWordAt(t *testing.T) {
	Test(t, wordAt,
		Args("sum(col 1)", 0).Rets(0, 3),
		Args("sum(col 1)", 2).Rets(0, 3),
		Args("sum(col 1)", 3).Rets(0, 3),
		Args("sum(col 1)", 4).Rets(4, 7),
		Args("1 + 2", 2).Rets(2, 2),
		Args("", 0).Rets(0, 0),
	)
}

func TestIsFirstWord(t *testing.T) {
	Test(t, isFirstWord,
		Args("tab", 0).Rets(true),
		Args("  tab", 2).Rets(true),
		Args("let col 1 = sum", 12).Rets(false),
		Args("table t 1 1\nle", 12).Rets(true),
	)
}

func TestPositionIdx(t *testing.T) {
	const s = "a\nbc\nd😀e"
	Test(t, lspPositionToIdx,
		Args(s, pos(0, 0)).Rets(0),
		Args(s, pos(1, 1)).Rets(3),
		Args(s, pos(2, 0)).Rets(5),
		// The emoji takes two UTF-16 units.
		Args(s, pos(2, 3)).Rets(10),
	)
	Test(t, lspPositionFromIdx,
		Args(s, 0).Rets(pos(0, 0)),
		Args(s, 3).Rets(pos(1, 1)),
		Args(s, 5).Rets(pos(2, 0)),
		Args(s, 10).Rets(pos(2, 3)),
	)
}

const uri = lsp.DocumentURI("file:///tmp/test.tabl")

func TestServer_DiagnosticsOnOpenAndChange(t *testing.T) {
	client, diags := startServer(t)
	ctx := context.Background()

	notify(t, client, "textDocument/didOpen", lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: uri, Text: "nope"}})
	got := receive(t, diags)
	if got.URI != uri || len(got.Diagnostics) != 1 {
		t.Errorf("got %v, want one diagnostic for %s", got, uri)
	}

	notify(t, client, "textDocument/didChange", lsp.DidChangeTextDocumentParams{
		TextDocument:   lsp.VersionedTextDocumentIdentifier{TextDocumentIdentifier: lsp.TextDocumentIdentifier{URI: uri}},
		ContentChanges: []lsp.TextDocumentContentChangeEvent{{Text: "help"}},
	})
	got = receive(t, diags)
	if len(got.Diagnostics) != 0 {
		t.Errorf("got diagnostics %v, want none", got.Diagnostics)
	}

	var result any
	err := client.Call(ctx, "textDocument/definition", lsp.TextDocumentPositionParams{}, &result)
	if err == nil || !strings.Contains(err.Error(), "method not found") {
		t.Errorf("got error %v, want method not found", err)
	}
}

func TestServer_Initialize(t *testing.T) {
	client, _ := startServer(t)
	var result lsp.InitializeResult
	err := client.Call(context.Background(), "initialize", lsp.InitializeParams{}, &result)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Capabilities.HoverProvider || result.Capabilities.CompletionProvider == nil {
		t.Errorf("got capabilities %+v, want hover and completion", result.Capabilities)
	}
}

func TestServer_Completion(t *testing.T) {
	client, diags := startServer(t)
	open(t, client, diags, "tab\nlet col 2 = su")

	labels := complete(t, client, pos(0, 3))
	if !contains(labels, "table") || !contains(labels, "tables") || contains(labels, "let") {
		t.Errorf("got command completions %v", labels)
	}
	labels = complete(t, client, pos(1, 14))
	if !contains(labels, "sum") || contains(labels, "table") || contains(labels, "max") {
		t.Errorf("got operator completions %v", labels)
	}
}

func TestServer_Hover(t *testing.T) {
	client, diags := startServer(t)
	open(t, client, diags, "let col 2 = sum(col 1)")

	hover := func(p lsp.Position) string {
		var raw json.RawMessage
		err := client.Call(context.Background(), "textDocument/hover", lsp.TextDocumentPositionParams{
			TextDocument: lsp.TextDocumentIdentifier{URI: uri}, Position: p}, &raw)
		if err != nil {
			t.Fatal(err)
		}
		return string(raw)
	}
	if got := hover(pos(0, 13)); !strings.Contains(got, "sum(") {
		t.Errorf("hover on sum got %s", got)
	}
	if got := hover(pos(0, 1)); !strings.Contains(got, "let ADDR = FORMULA") {
		t.Errorf("hover on let got %s", got)
	}
}

func startServer(t *testing.T) (*jsonrpc2.Conn, <-chan lsp.PublishDiagnosticsParams) {
	t.Helper()
	serverEnd, clientEnd := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(serverEnd, jsonrpc2.VSCodeObjectCodec{}), handler(newServer()))
	diags := make(chan lsp.PublishDiagnosticsParams, 16)
	client := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(clientEnd, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(func(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
			if req.Method == "textDocument/publishDiagnostics" && req.Params != nil {
				var params lsp.PublishDiagnosticsParams
				if err := json.Unmarshal(*req.Params, &params); err == nil {
					diags <- params
				}
			}
			return nil, nil
		}))
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, diags
}

func notify(t *testing.T, c *jsonrpc2.Conn, method string, params any) {
	t.Helper()
	if err := c.Notify(context.Background(), method, params); err != nil {
		t.Fatal(err)
	}
}

func receive(t *testing.T, diags <-chan lsp.PublishDiagnosticsParams) lsp.PublishDiagnosticsParams {
	t.Helper()
	select {
	case d := <-diags:
		return d
	case <-time.After(testutil.Scaled(2 * time.Second)):
		t.Fatal("timed out waiting for diagnostics")
		panic("unreachable")
	}
}

func open(t *testing.T, c *jsonrpc2.Conn, diags <-chan lsp.PublishDiagnosticsParams, text string) {
	t.Helper()
	notify(t, c, "textDocument/didOpen", lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: uri, Text: text}})
	receive(t, diags)
}

func complete(t *testing.T, c *jsonrpc2.Conn, p lsp.Position) []string {
	t.Helper()
	var items []lsp.CompletionItem
	err := c.Call(context.Background(), "textDocument/completion", lsp.CompletionParams{
		TextDocumentPositionParams: lsp.TextDocumentPositionParams{
			TextDocument: lsp.TextDocumentIdentifier{URI: uri}, Position: p}}, &items)
	if err != nil {
		t.Fatal(err)
	}
	labels := make([]string, len(items))
	for i, item := range items {
		labels[i] = item.Label
	}
	return labels
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
