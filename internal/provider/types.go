// Package provider talks to an OpenAI-compatible chat completion API.
//
// DESIGN: Three pieces, each usable alone:
//   - StructuredRequestBuilder: transcript + optional JSON schema -> request.
//     A schema becomes one forced function tool named structured_response.
//   - Client: one synchronous POST, no retries, no streaming.
//   - Normalize: provider body -> caller value (parsed tool arguments,
//     parsed content, or the raw text as a JSON string).
package provider

import (
	"encoding/json"

	"github.com/munilab/ai-gateway/internal/prompt"
)

// StructuredToolName is the function the provider is forced to call when a
// schema is requested.
const StructuredToolName = "structured_response"

// ChatRequest is the chat completions request body.
type ChatRequest struct {
	Model      string           `json:"model"`
	Messages   []prompt.Message `json:"messages"`
	Tools      []Tool           `json:"tools,omitempty"`
	ToolChoice *ToolChoice      `json:"tool_choice,omitempty"`
}

// Tool declares a callable function.
type Tool struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef is a tool's function signature. Parameters is the caller's
// schema, passed through untouched.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolChoice forces a specific function.
type ToolChoice struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

// Structured reports whether a request asked for schema-shaped output.
func (r ChatRequest) Structured() bool { return len(r.Tools) > 0 }
