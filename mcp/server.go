// Package mcp serves the connector registry over JSON-RPC 2.0 with
// NDJSON framing, one message per line on stdio.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/rzn-labs/datasourcer/connector"
	"github.com/rzn-labs/datasourcer/registry"
	"github.com/rzn-labs/datasourcer/types"
	"github.com/rzn-labs/datasourcer/usage"
)

const serverVersion = "0.1.0"

type Server struct {
	registry *registry.Registry
	logger   *slog.Logger
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewServer(reg *registry.Registry, opts ...Option) *Server {
	s := &Server{registry: reg, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve processes requests from r and writes responses to w until EOF,
// a shutdown request, or context cancellation. Every tool call of the
// session shares one ambient run id.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	runID := usage.NewRunID()
	ctx = usage.WithRunID(ctx, runID)
	s.logger.Info("mcp session started", "run_id", runID)

	br := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		req, err := readNDJSON(br)
		if err != nil {
			var fe *frameError
			if errors.As(err, &fe) {
				_ = writeNDJSON(w, &Response{Error: &Error{
					Code:    -32700,
					Message: fe.Error(),
					Data:    map[string]any{"code": string(connector.KindParseError)},
				}})
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if req.Method == "shutdown" {
			s.reply(w, req, map[string]any{})
			return nil
		}
		if len(req.ID) == 0 {
			// Notification, nothing to answer.
			continue
		}

		result, herr := s.handle(ctx, req)
		if herr != nil {
			s.replyError(w, req, herr)
			continue
		}
		s.reply(w, req, result)
	}
}

func (s *Server) handle(ctx context.Context, req *Request) (any, error) {
	switch req.Method {
	case "initialize":
		return s.initialize(ctx), nil
	case "ping":
		return map[string]any{}, nil
	case "tools/list":
		tools, err := s.registry.ListAllTools(ctx)
		if err != nil {
			return nil, err
		}
		return types.ListToolsResult{Tools: tools}, nil
	case "tools/call":
		return s.callTool(ctx, req.Params)
	case "resources/list":
		return s.listResources(ctx)
	case "resources/read":
		return s.readResource(ctx, req.Params)
	case "prompts/list":
		return s.listPrompts(ctx)
	case "prompts/get":
		return s.getPrompt(ctx, req.Params)
	default:
		return nil, connector.MethodNotFound(req.Method)
	}
}

func (s *Server) initialize(ctx context.Context) types.InitializeResult {
	caps := types.Capabilities{Tools: true}
	for _, info := range s.registry.ListProviders() {
		c, ok := s.registry.GetProvider(info.Name)
		if !ok {
			continue
		}
		pc := c.Capabilities()
		caps.Resources = caps.Resources || pc.Resources
		caps.Prompts = caps.Prompts || pc.Prompts
	}
	_ = ctx
	return types.InitializeResult{
		ProtocolVersion: connector.ProtocolVersion,
		Capabilities:    caps,
		ServerInfo:      types.Implementation{Name: "rzn-datasourcer", Version: serverVersion},
	}
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Meta      map[string]any `json:"_meta"`
}

func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (any, error) {
	var params callToolParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, connector.InvalidParams("tool name is required")
	}
	args := params.Arguments
	if len(params.Meta) > 0 {
		if args == nil {
			args = map[string]any{}
		}
		args["_meta"] = params.Meta
	}
	result, err := s.registry.CallTool(ctx, params.Name, args)
	if err != nil {
		// Tool failures stay in-band per the tool-calling protocol.
		s.logger.Warn("tool call failed", "tool", params.Name, "code", connector.CodeOf(err))
		return types.CallToolResult{
			Content: []types.ContentPart{types.TextContent(err.Error())},
			IsError: true,
			Meta:    map[string]any{"code": connector.CodeOf(err)},
		}, nil
	}
	return result, nil
}

func (s *Server) listResources(ctx context.Context) (any, error) {
	out := types.ListResourcesResult{Resources: []types.Resource{}}
	for _, info := range s.registry.ListProviders() {
		c, ok := s.registry.GetProvider(info.Name)
		if !ok || !c.Capabilities().Resources {
			continue
		}
		listed, err := c.ListResources(ctx, "")
		if err != nil {
			s.logger.Warn("failed to list resources", "connector", info.Name, "error", err)
			continue
		}
		out.Resources = append(out.Resources, listed.Resources...)
	}
	return out, nil
}

func (s *Server) readResource(ctx context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		URI string `json:"uri"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	if params.URI == "" {
		return nil, connector.InvalidParams("resource uri is required")
	}
	for _, info := range s.registry.ListProviders() {
		c, ok := s.registry.GetProvider(info.Name)
		if !ok || !c.Capabilities().Resources {
			continue
		}
		result, err := c.ReadResource(ctx, params.URI)
		if err == nil {
			return result, nil
		}
		if connector.KindOf(err) != connector.KindNotFound {
			return nil, err
		}
	}
	return nil, connector.NotFound("resource %q not found", params.URI)
}

func (s *Server) listPrompts(ctx context.Context) (any, error) {
	out := types.ListPromptsResult{Prompts: []types.Prompt{}}
	for _, info := range s.registry.ListProviders() {
		c, ok := s.registry.GetProvider(info.Name)
		if !ok || !c.Capabilities().Prompts {
			continue
		}
		listed, err := c.ListPrompts(ctx, "")
		if err != nil {
			s.logger.Warn("failed to list prompts", "connector", info.Name, "error", err)
			continue
		}
		for _, p := range listed.Prompts {
			p.Name = info.Name + "." + p.Name
			out.Prompts = append(out.Prompts, p)
		}
	}
	return out, nil
}

func (s *Server) getPrompt(ctx context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		Name      string            `json:"name"`
		Arguments map[string]string `json:"arguments"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	providerName, promptName, ok := registry.SplitToolName(params.Name)
	if !ok {
		return nil, connector.InvalidParams("prompt name %q is not of the form connector.prompt", params.Name)
	}
	c, found := s.registry.GetProvider(providerName)
	if !found {
		return nil, connector.NotFound("unknown connector %q", providerName)
	}
	return c.GetPrompt(ctx, promptName, params.Arguments)
}

func (s *Server) reply(w io.Writer, req *Request, result any) {
	if err := writeNDJSON(w, &Response{ID: req.ID, Result: result}); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func (s *Server) replyError(w io.Writer, req *Request, err error) {
	kind := connector.KindOf(err)
	resp := &Response{ID: req.ID, Error: &Error{
		Code:    kind.JSONRPCCode(),
		Message: err.Error(),
		Data:    map[string]any{"code": string(kind)},
	}}
	if werr := writeNDJSON(w, resp); werr != nil {
		s.logger.Error("failed to write error response", "error", werr)
	}
}

func decodeParams[T any](raw json.RawMessage, dst *T) error {
	if len(raw) == 0 {
		return connector.InvalidParams("missing params")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return connector.InvalidParams("invalid params: %v", err)
	}
	return nil
}
