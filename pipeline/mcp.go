package pipeline

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/finflow/finflow/kit"
)

// RegisterMCP registers the fact-sheet tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerLoadTool(srv)
	p.registerQueryTool(srv)
	p.registerCompareTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- load_factsheet ---

type loadReq struct {
	URL string `json:"url"`
}

func (p *Pipeline) registerLoadTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "load_factsheet",
		Description: "Ingest an ETF fact sheet (PDF/HTML/text, URL or local path) and return its key metrics.",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Fact-sheet URL or local path"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*loadReq)
		return p.Metrics(ctx, SourceRef{Source: r.URL})
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r loadReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		if r.URL == "" {
			return nil, errors.New("url is required")
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- query_factsheet ---

type queryReq struct {
	URL      string `json:"url"`
	Question string `json:"question"`
}

func (p *Pipeline) registerQueryTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "query_factsheet",
		Description: "Answer a natural-language question about an ETF fact sheet with cited passages.",
		InputSchema: inputSchema(map[string]any{
			"url":      map[string]any{"type": "string", "description": "Fact-sheet URL or local path"},
			"question": map[string]any{"type": "string", "description": "Question to answer"},
		}, []string{"url", "question"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*queryReq)
		st, err := p.QuerySingle(ctx, SourceRef{Source: r.URL}, r.Question)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"answer_md": st.AnswerMD,
			"retrieved": len(st.Retrieved),
		}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r queryReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		if r.URL == "" || r.Question == "" {
			return nil, errors.New("url and question are required")
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- compare_factsheets ---

type compareReq struct {
	URLA string `json:"url_a"`
	URLB string `json:"url_b"`
}

func (p *Pipeline) registerCompareTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "compare_factsheets",
		Description: "Compare two ETF fact sheets: metrics of both plus a side-by-side summary.",
		InputSchema: inputSchema(map[string]any{
			"url_a": map[string]any{"type": "string", "description": "First fact-sheet URL or local path"},
			"url_b": map[string]any{"type": "string", "description": "Second fact-sheet URL or local path"},
		}, []string{"url_a", "url_b"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*compareReq)
		return p.Compare(ctx, SourceRef{Source: r.URLA}, SourceRef{Source: r.URLB})
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r compareReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		if r.URLA == "" || r.URLB == "" {
			return nil, errors.New("url_a and url_b are required")
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
