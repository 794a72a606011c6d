package provider

import (
	"bytes"
	"encoding/json"

	"github.com/munilab/ai-gateway/internal/prompt"
)

// StructuredRequestBuilder turns a transcript and an opaque schema into a
// provider request.
type StructuredRequestBuilder struct {
	Model string
}

// HasSchema reports whether schema carries a value. Absent, empty and JSON
// null all mean "no schema".
func HasSchema(schema json.RawMessage) bool {
	trimmed := bytes.TrimSpace(schema)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Build creates the request. With a schema, the provider must answer by
// calling StructuredToolName with arguments matching it.
func (b StructuredRequestBuilder) Build(messages []prompt.Message, schema json.RawMessage) ChatRequest {
	req := ChatRequest{Model: b.Model, Messages: messages}
	if !HasSchema(schema) {
		return req
	}

	req.Tools = []Tool{{
		Type: "function",
		Function: FunctionDef{
			Name:        StructuredToolName,
			Description: "Return the response as structured data matching the schema.",
			Parameters:  schema,
		},
	}}
	choice := &ToolChoice{Type: "function"}
	choice.Function.Name = StructuredToolName
	req.ToolChoice = choice
	return req
}
