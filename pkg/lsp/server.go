package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
	"src.tabl.sh/pkg/diag"
	"src.tabl.sh/pkg/ops"
	"src.tabl.sh/pkg/parse"
	"src.tabl.sh/pkg/shell"
	"src.tabl.sh/pkg/strutil"
)

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
)

type server struct {
	reg     *ops.Registry
	content map[lsp.DocumentURI]string
}

func newServer() *server {
	return &server{ops.NewRegistry(), make(map[lsp.DocumentURI]string)}
}

func handler(s *server) jsonrpc2.Handler {
	return routingHandler(map[string]method{
		"initialize":              s.initialize,
		"textDocument/didOpen":    s.didOpen,
		"textDocument/didChange":  s.didChange,
		"textDocument/didClose":   s.didClose,
		"textDocument/hover":      s.hover,
		"textDocument/completion": s.completion,

		"initialized": noop,
		"shutdown":    noop,
		// Sent by some clients even when not advertised.
		"workspace/didChangeWatchedFiles": noop,
	})
}

type method func(context.Context, jsonrpc2.JSONRPC2, json.RawMessage) (any, error)

func noop(_ context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	return nil, nil
}

func routingHandler(methods map[string]method) jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		fn, ok := methods[req.Method]
		if !ok {
			return nil, errMethodNotFound
		}
		var params json.RawMessage
		if req.Params != nil {
			params = *req.Params
		}
		return fn(ctx, conn, params)
	})
}

// Handler implementations. These are all called synchronously.

func (s *server) initialize(_ context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	return &lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
				Options: &lsp.TextDocumentSyncOptions{
					OpenClose: true,
					Change:    lsp.TDSKFull,
				},
			},
			HoverProvider:      true,
			CompletionProvider: &lsp.CompletionOptions{},
		},
	}, nil
}

func (s *server) didOpen(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidOpenTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}

	uri, content := params.TextDocument.URI, params.TextDocument.Text
	s.content[uri] = content
	go publishDiagnostics(ctx, conn, uri, content)
	return nil, nil
}

func (s *server) didChange(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidChangeTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil || len(params.ContentChanges) == 0 {
		return nil, errInvalidParams
	}

	// Only full-text changes are advertised in initialize.
	uri, content := params.TextDocument.URI, params.ContentChanges[0].Text
	s.content[uri] = content
	go publishDiagnostics(ctx, conn, uri, content)
	return nil, nil
}

func (s *server) didClose(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidCloseTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	delete(s.content, params.TextDocument.URI)
	return nil, nil
}

func (s *server) hover(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.TextDocumentPositionParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}

	content := s.content[params.TextDocument.URI]
	from, to := wordAt(content, lspPositionToIdx(content, params.Position))
	word := content[from:to]
	if word == "" {
		return lsp.Hover{}, nil
	}
	var text string
	if isFirstWord(content, from) {
		if usage, summary, ok := shell.CommandUsage(word); ok {
			text = usage + "\n\n" + summary
		}
	} else if op, ok := s.reg.Lookup(word); ok {
		text = ops.FormatSignatures(op)
	}
	if text == "" {
		return lsp.Hover{}, nil
	}
	r := lspRangeFromRange(content, diag.Ranging{From: from, To: to})
	return lsp.Hover{Contents: []lsp.MarkedString{lsp.RawMarkedString(text)}, Range: &r}, nil
}

func (s *server) completion(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.CompletionParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}

	content := s.content[params.TextDocument.URI]
	dot := lspPositionToIdx(content, params.Position)
	from, _ := wordAt(content, dot)
	prefix := strings.ToLower(content[from:dot])
	lspRange := lspRangeFromRange(content, diag.Ranging{From: from, To: dot})

	items := []lsp.CompletionItem{}
	add := func(label string, kind lsp.CompletionItemKind, detail string) {
		if !strings.HasPrefix(strings.ToLower(label), prefix) {
			return
		}
		items = append(items, lsp.CompletionItem{
			Label:  label,
			Kind:   kind,
			Detail: detail,
			TextEdit: &lsp.TextEdit{
				Range:   lspRange,
				NewText: label,
			},
		})
	}
	if isFirstWord(content, from) {
		for _, name := range shell.CommandNames() {
			usage, _, _ := shell.CommandUsage(name)
			add(name, lsp.CIKKeyword, usage)
		}
		return items, nil
	}
	for _, label := range s.reg.Labels() {
		op, _ := s.reg.Lookup(label)
		if ops.IsSymbol(label) {
			// Symbols are not words and cannot be completed.
			continue
		}
		kind := lsp.CIKFunction
		if op.Infix || op.Prefix {
			kind = lsp.CIKOperator
		}
		add(label, kind, ops.FormatSignatures(op))
	}
	return items, nil
}

func publishDiagnostics(ctx context.Context, conn jsonrpc2.JSONRPC2, uri lsp.DocumentURI, content string) {
	conn.Notify(ctx, "textDocument/publishDiagnostics",
		lsp.PublishDiagnosticsParams{URI: uri, Diagnostics: diagnostics(content)})
}

// diagnostics checks every line of a script. Errors in formulas are pinned to
// the offending part of the formula; other errors cover the whole line.
func diagnostics(content string) []lsp.Diagnostic {
	diags := []lsp.Diagnostic{}
	lineStart := 0
	for _, line := range strings.Split(content, "\n") {
		if err := shell.Check(strings.TrimSuffix(line, "\r")); err != nil {
			rg := diag.Ranging{From: lineStart, To: lineStart + len(strings.TrimSuffix(line, "\r"))}
			msg, code := err.Error(), ""
			var perr *parse.Error
			if errors.As(err, &perr) {
				offset, _, _ := shell.Formula(line)
				rg = diag.Ranging{
					From: lineStart + offset + perr.Context.From,
					To:   lineStart + offset + perr.Context.To,
				}
				msg, code = perr.Message, strutil.CamelToDashed(perr.Code.String())
			}
			diags = append(diags, lsp.Diagnostic{
				Range:    lspRangeFromRange(content, rg),
				Severity: lsp.Error,
				Code:     code,
				Source:   "tabl",
				Message:  msg,
			})
		}
		lineStart += len(line) + 1
	}
	return diags
}

// wordAt returns the boundaries of the word touching the byte index idx.
func wordAt(s string, idx int) (from, to int) {
	from, to = idx, idx
	for from > 0 && isWordByte(s[from-1]) {
		from--
	}
	for to < len(s) && isWordByte(s[to]) {
		to++
	}
	return from, to
}

func isWordByte(c byte) bool {
	return c == '_' || '0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

// isFirstWord reports whether only blanks precede idx on its line.
func isFirstWord(s string, idx int) bool {
	lineStart := strings.LastIndexAny(s[:idx], "\r\n") + 1
	return strings.TrimLeft(s[lineStart:idx], " \t") == ""
}

func lspRangeFromRange(s string, r diag.Ranger) lsp.Range {
	rg := r.Range()
	return lsp.Range{
		Start: lspPositionFromIdx(s, rg.From),
		End:   lspPositionFromIdx(s, rg.To),
	}
}

func lspPositionToIdx(s string, pos lsp.Position) int {
	var idx int
	walkString(s, func(i int, p lsp.Position) bool {
		idx = i
		return p.Line < pos.Line || (p.Line == pos.Line && p.Character < pos.Character)
	})
	return idx
}

func lspPositionFromIdx(s string, idx int) lsp.Position {
	var pos lsp.Position
	walkString(s, func(i int, p lsp.Position) bool {
		pos = p
		return i < idx
	})
	return pos
}

// Generates (index, lspPosition) pairs in s, stopping if f returns false.
func walkString(s string, f func(i int, p lsp.Position) bool) {
	var p lsp.Position
	lastCR := false

	for i, r := range s {
		if !f(i, p) {
			return
		}
		switch {
		case r == '\r':
			p.Line++
			p.Character = 0
		case r == '\n':
			if lastCR {
				// Ignore \n if it's part of a \r\n sequence
			} else {
				p.Line++
				p.Character = 0
			}
		case r <= 0xFFFF:
			// Encoded in UTF-16 with one unit
			p.Character++
		default:
			// Encoded in UTF-16 with two units
			p.Character += 2
		}
		lastCR = r == '\r'
	}
	f(len(s), p)
}
