package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/xrl/fetcher"
)

var testMCPImpl = &mcp.Implementation{Name: "xrl-test", Version: "0.1.0"}

func mcpSession(t *testing.T) *mcp.ClientSession {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := New(DefaultConfig(), fetcher.New(fetcher.WithLogger(logger)), &fakeRenderer{}, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := mcp.NewServer(testMCPImpl, nil)
	svc.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

func TestMCP_Sites(t *testing.T) {
	session := mcpSession(t)

	text := mcpCallTool(t, session, "xrl_sites", map[string]any{})

	var resp map[string][]siteLink
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp["custom_sites"]) != 3 {
		t.Errorf("custom_sites = %d entries, want 3", len(resp["custom_sites"]))
	}
	found := false
	for _, link := range resp["example_sites"] {
		if link.Name == "blog" {
			found = true
		}
	}
	if !found {
		t.Errorf("example_sites = %v, want blog entry", resp["example_sites"])
	}
}

func TestMCP_View(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `<html><head><title>Tooling</title></head><body>
			<div class="XRL-main"><p>tool main</p></div>
			<div class="XRL-below">tool below</div>
		</body></html>`)
	}))
	defer upstream.Close()

	session := mcpSession(t)

	text := mcpCallTool(t, session, "xrl_view", map[string]any{"url": upstream.URL})

	var resp struct {
		Title string   `json:"title"`
		Main  []string `json:"xrl_main"`
		Below []string `json:"xrl_below"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Title != "XRL View - Tooling" {
		t.Errorf("title = %q", resp.Title)
	}
	if len(resp.Main) != 1 {
		t.Fatalf("main fragments = %d, want 1", len(resp.Main))
	}
}

func TestMCP_ViewMissingURL(t *testing.T) {
	session := mcpSession(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "xrl_view",
		Arguments: map[string]any{},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing url")
	}
}
