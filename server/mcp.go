package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/xrl/classify"
	"github.com/hazyhaar/xrl/fetcher"
)

// RegisterMCP registers the xrl tools on an MCP server.
func (s *Server) RegisterMCP(srv *mcp.Server) {
	s.registerViewTool(srv)
	s.registerRenderTool(srv)
	s.registerSitesTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// registerTool adapts a decode/endpoint pair to the MCP handler shape.
// Tool failures are reported as tool errors, not protocol errors.
func registerTool(srv *mcp.Server, tool *mcp.Tool, decode func(*mcp.CallToolRequest) (any, error), endpoint func(context.Context, any) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		decoded, err := decode(req)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("invalid arguments: %w", err))
			return &res, nil
		}

		resp, err := endpoint(ctx, decoded)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

// --- view ---

type viewReq struct {
	URL string `json:"url"`
}

func decodeViewReq(req *mcp.CallToolRequest) (any, error) {
	var r viewReq
	if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
		return nil, err
	}
	if r.URL == "" {
		return nil, errors.New("url is required")
	}
	return &r, nil
}

func (s *Server) registerViewTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "xrl_view",
		Description: "Fetch a webpage and partition it into XRL zones (head, left, main, right, below). Returns the zone fragments and auxiliary head/footer/style/script lists as JSON.",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Target page URL"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*viewReq)
		res, err := s.fetch.Fetch(ctx, fetcher.NormalizeTarget(r.URL))
		if err != nil {
			return nil, err
		}
		return classify.Classify(bytes.NewReader(res.Body), res.FinalURL)
	}

	registerTool(srv, tool, decodeViewReq, endpoint)
}

// --- render ---

func (s *Server) registerRenderTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "xrl_render",
		Description: "Render per-zone screenshots of a webpage's XRL layout. Returns a manifest of captured image URLs with dimensions.",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Target page URL"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*viewReq)
		res, err := s.fetch.Fetch(ctx, fetcher.NormalizeTarget(r.URL))
		if err != nil {
			return nil, err
		}
		base := s.localBase()
		viewURL := base + "/xrl?url=" + url.QueryEscape(res.FinalURL)
		return s.renderer.Render(ctx, viewURL, base)
	}

	registerTool(srv, tool, decodeViewReq, endpoint)
}

// --- sites ---

func (s *Server) registerSitesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "xrl_sites",
		Description: "List the embedded example sites and registered custom sites.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		base := s.localBase()
		examples := []siteLink{}
		for _, name := range exampleSiteNames() {
			examples = append(examples, siteLink{Name: name, URL: base + "/" + name})
		}
		custom := []siteLink{}
		for _, id := range s.sites.IDs() {
			target, _ := s.sites.Get(id)
			custom = append(custom, siteLink{
				Name: fmt.Sprintf("custom-%d", id),
				URL:  target,
			})
		}
		return map[string][]siteLink{
			"example_sites": examples,
			"custom_sites":  custom,
		}, nil
	}

	registerTool(srv, tool, func(*mcp.CallToolRequest) (any, error) { return nil, nil }, endpoint)
}

// localBase is the loopback origin used when a tool call has no HTTP
// request to derive the public base from.
func (s *Server) localBase() string {
	return "http://localhost:" + s.cfg.Port
}
