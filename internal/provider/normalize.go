package provider

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Source tells where the normalized value came from.
type Source string

const (
	SourceToolCall Source = "tool_call"
	SourceContent  Source = "content"
)

// Result is a normalized provider reply.
type Result struct {
	// Value is valid JSON: the parsed payload, or the raw text encoded as a
	// JSON string.
	Value json.RawMessage
	// IsObject is true when Value is a JSON object.
	IsObject bool
	Source   Source
	// Fallback is true when structured output failed to parse and the raw
	// text was passed through instead.
	Fallback    bool
	TotalTokens int
}

// Normalize extracts the caller-facing value from a chat completion body.
// structured tells whether the caller supplied a schema.
func Normalize(body []byte, structured bool) (Result, error) {
	msg := gjson.GetBytes(body, "choices.0.message")
	if !msg.Exists() {
		return Result{}, fmt.Errorf("%w: no choices", ErrInvalidResponse)
	}
	res := Result{TotalTokens: int(gjson.GetBytes(body, "usage.total_tokens").Int())}

	if args := msg.Get("tool_calls.0.function.arguments"); args.Exists() {
		res.Source = SourceToolCall
		return parseOrRaw(res, args.String())
	}

	res.Source = SourceContent
	content := msg.Get("content").String()
	if structured {
		return parseOrRaw(res, content)
	}
	return rawString(res, content)
}

func parseOrRaw(res Result, text string) (Result, error) {
	if gjson.Valid(text) {
		parsed := gjson.Parse(text)
		res.Value = json.RawMessage(parsed.Raw)
		res.IsObject = parsed.IsObject()
		return res, nil
	}
	log.Warn().Str("source", string(res.Source)).Int("len", len(text)).Msg("structured output is not valid JSON, passing raw text")
	res.Fallback = true
	return rawString(res, text)
}

func rawString(res Result, text string) (Result, error) {
	b, err := json.Marshal(text)
	if err != nil {
		return Result{}, fmt.Errorf("encoding text: %w", err)
	}
	res.Value = b
	res.IsObject = false
	return res, nil
}

// WithMetadata sets key on object results. Non-object values are returned
// unchanged.
func (r Result) WithMetadata(key string, meta any) (json.RawMessage, error) {
	if !r.IsObject {
		return r.Value, nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", key, err)
	}
	out, err := sjson.SetRawBytes(r.Value, key, raw)
	if err != nil {
		return nil, fmt.Errorf("setting %s: %w", key, err)
	}
	return out, nil
}
