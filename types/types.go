// Package types holds the wire-level values shared by connectors, the
// registry, and the transport. The shapes follow the Model Context
// Protocol tool-calling surface.
package types

// ContentPart is one element of a tool result's human-readable content.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// TextContent builds a plain-text content part.
func TextContent(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// Tool describes one named operation on a connector. InputSchema is a
// JSON Schema object (type=object with properties).
type Tool struct {
	Name         string         `json:"name"`
	Title        string         `json:"title,omitempty"`
	Description  string         `json:"description,omitempty"`
	InputSchema  map[string]any `json:"inputSchema"`
	OutputSchema map[string]any `json:"outputSchema,omitempty"`
}

// CallToolResult is the uniform result of a tool invocation. Callers
// prefer StructuredContent when present; Content is the readable
// fallback.
type CallToolResult struct {
	Content           []ContentPart  `json:"content"`
	StructuredContent any            `json:"structuredContent,omitempty"`
	IsError           bool           `json:"isError,omitempty"`
	Meta              map[string]any `json:"_meta,omitempty"`
}

type ListToolsResult struct {
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// Capabilities advertises which surfaces a connector exposes.
type Capabilities struct {
	Tools     bool `json:"tools"`
	Resources bool `json:"resources"`
	Prompts   bool `json:"prompts"`
}

type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    Capabilities   `json:"capabilities"`
	ServerInfo      Implementation `json:"serverInfo"`
	Instructions    string         `json:"instructions,omitempty"`
}

type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

type ListResourcesResult struct {
	Resources  []Resource `json:"resources"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
}

type ReadResourceResult struct {
	Contents []ResourceContents `json:"contents"`
}

type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

type ListPromptsResult struct {
	Prompts    []Prompt `json:"prompts"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

type PromptMessage struct {
	Role    string      `json:"role"`
	Content ContentPart `json:"content"`
}

type GetPromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// AuthDetails carries per-connector secret material. Opaque to the
// runtime except through the connector's config schema.
type AuthDetails map[string]string

// Clone returns a copy so callers cannot mutate stored credentials.
func (a AuthDetails) Clone() AuthDetails {
	if a == nil {
		return nil
	}
	out := make(AuthDetails, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// FieldType enumerates the input kinds a setup wizard can render.
type FieldType string

const (
	FieldText    FieldType = "text"
	FieldSecret  FieldType = "secret"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldSelect  FieldType = "select"
)

// Field describes one credential or configuration input.
type Field struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty"`
	Options     []string  `json:"options,omitempty"`
}

// ConfigSchema is the ordered field list a connector accepts through
// SetAuthDetails. RequiresAuth is connector-reported, never inferred
// from the field list.
type ConfigSchema struct {
	Fields       []Field `json:"fields"`
	RequiresAuth bool    `json:"requiresAuth"`
}
