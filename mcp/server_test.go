package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rzn-labs/datasourcer/connector"
	"github.com/rzn-labs/datasourcer/registry"
	"github.com/rzn-labs/datasourcer/types"
)

type stubConnector struct {
	connector.Base
}

func (s *stubConnector) ListTools(ctx context.Context, cursor string) (types.ListToolsResult, error) {
	_, _ = ctx, cursor
	return types.ListToolsResult{Tools: []types.Tool{
		{Name: "echo", Description: "Echo the text back."},
	}}, nil
}

func (s *stubConnector) CallTool(ctx context.Context, name string, arguments map[string]any) (types.CallToolResult, error) {
	_ = ctx
	if name != "echo" {
		return types.CallToolResult{}, connector.ToolNotFound(name)
	}
	text, _ := arguments["text"].(string)
	return types.CallToolResult{
		Content:           []types.ContentPart{types.TextContent(text)},
		StructuredContent: map[string]any{"text": text},
	}, nil
}

var stubRegistered bool

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	if !stubRegistered {
		stubRegistered = true
		registry.MustRegister("mcp-stub", "serve test stub", func() connector.Connector {
			return &stubConnector{Base: connector.NewBase("mcp-stub", "serve test stub", "mcp-stub")}
		})
	}
	reg, err := registry.New(registry.Options{Enabled: []string{"mcp-stub"}})
	if err != nil {
		t.Fatalf("registry.New failed: %v", err)
	}
	return reg
}

func serve(t *testing.T, input string) []Response {
	t.Helper()
	server := NewServer(testRegistry(t))
	var out bytes.Buffer
	if err := server.Serve(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}

	var responses []Response
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp Response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("bad response line %q: %v", line, err)
		}
		responses = append(responses, resp)
	}
	return responses
}

func TestServeInitializeAndList(t *testing.T) {
	responses := serve(t,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`+"\n"+
			`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`+"\n")

	if len(responses) != 2 {
		t.Fatalf("got %d responses, want 2", len(responses))
	}

	init, ok := responses[0].Result.(map[string]any)
	if !ok {
		t.Fatalf("initialize result = %T", responses[0].Result)
	}
	if init["protocolVersion"] != connector.ProtocolVersion {
		t.Fatalf("protocol version = %v", init["protocolVersion"])
	}

	listed, ok := responses[1].Result.(map[string]any)
	if !ok {
		t.Fatalf("tools/list result = %T", responses[1].Result)
	}
	tools := listed["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("got %d tools", len(tools))
	}
	if tools[0].(map[string]any)["name"] != "mcp-stub.echo" {
		t.Fatalf("tool name = %v", tools[0].(map[string]any)["name"])
	}
}

func TestServeToolCall(t *testing.T) {
	responses := serve(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"mcp-stub.echo","arguments":{"text":"hi"}}}`+"\n")

	if len(responses) != 1 {
		t.Fatalf("got %d responses", len(responses))
	}
	result := responses[0].Result.(map[string]any)
	structured := result["structuredContent"].(map[string]any)
	if structured["text"] != "hi" {
		t.Fatalf("structured = %v", structured)
	}
}

func TestServeToolErrorStaysInBand(t *testing.T) {
	responses := serve(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"mcp-stub.missing","arguments":{}}}`+"\n")

	if responses[0].Error != nil {
		t.Fatalf("tool failures must stay in the result, got error %+v", responses[0].Error)
	}
	result := responses[0].Result.(map[string]any)
	if result["isError"] != true {
		t.Fatalf("isError = %v", result["isError"])
	}
	meta := result["_meta"].(map[string]any)
	if meta["code"] != string(connector.KindToolNotFound) {
		t.Fatalf("meta code = %v", meta["code"])
	}
}

func TestServeMethodNotFound(t *testing.T) {
	responses := serve(t, `{"jsonrpc":"2.0","id":1,"method":"bogus/method"}`+"\n")

	if responses[0].Error == nil {
		t.Fatal("expected a method-not-found error")
	}
	if responses[0].Error.Code != -32601 {
		t.Fatalf("error code = %d, want -32601", responses[0].Error.Code)
	}
}

func TestServeParseError(t *testing.T) {
	responses := serve(t, "this is not json\n"+`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n")

	if len(responses) != 2 {
		t.Fatalf("got %d responses, want 2", len(responses))
	}
	if responses[0].Error == nil || responses[0].Error.Code != -32700 {
		t.Fatalf("first response = %+v, want parse error", responses[0])
	}
	if responses[1].Error != nil {
		t.Fatalf("server should keep serving after a parse error, got %+v", responses[1].Error)
	}
}

func TestServeNotificationsGetNoResponse(t *testing.T) {
	responses := serve(t,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`+"\n"+
			`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n")

	if len(responses) != 1 {
		t.Fatalf("notifications must not be answered, got %d responses", len(responses))
	}
}

func TestServeShutdown(t *testing.T) {
	responses := serve(t,
		`{"jsonrpc":"2.0","id":1,"method":"shutdown"}`+"\n"+
			`{"jsonrpc":"2.0","id":2,"method":"ping"}`+"\n")

	if len(responses) != 1 {
		t.Fatalf("shutdown should stop the loop, got %d responses", len(responses))
	}
}
