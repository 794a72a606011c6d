// Package prompt builds the chat transcript sent to the provider.
//
// DESIGN: The transcript always opens with exactly one system message. The
// caller's system_prompt (or the default platform prompt) is followed by a
// fixed domain-context suffix. Prior turns are replayed when given; a bare
// prompt becomes the single user turn otherwise. A transcript with only the
// system message is legal and forwarded as-is.
package prompt

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Roles accepted in a transcript.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultSystemPrompt is used when the caller sends none.
const DefaultSystemPrompt = "You are an assistant for a municipal innovation management platform. " +
	"You help city staff, startups and citizens draft, translate, score and recommend content " +
	"for innovation programs, pilots and strategic plans."

// DomainContext is appended to every system message.
const DomainContext = "Context: answers are used inside a public-sector innovation platform. " +
	"Be factual, neutral and concise. Do not invent laws, budgets or officials. " +
	"When asked for structured output, return only data matching the requested structure."

// Message is one provider-bound chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Section is one block of a structured assistant reply.
type Section struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// Structured is the rich form of an assistant reply kept by the front end.
type Structured struct {
	Sections []Section `json:"sections"`
}

// Text is turn content as sent by the caller. Only JSON strings are kept;
// any other value (content parts, numbers, objects) decodes as empty, so the
// turn is skipped instead of failing the whole request.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

// ConversationMessage is a prior turn as sent by the caller.
type ConversationMessage struct {
	Role       string      `json:"role"`
	Content    Text        `json:"content"`
	Structured *Structured `json:"structured,omitempty"`
}

// Input is everything the assembler reads from a request.
type Input struct {
	SystemPrompt string
	Prompt       string
	Messages     []ConversationMessage
}

// SystemMessage returns the single system turn for systemPrompt.
func SystemMessage(systemPrompt string) Message {
	base := strings.TrimSpace(systemPrompt)
	if base == "" {
		base = DefaultSystemPrompt
	}
	return Message{Role: RoleSystem, Content: base + "\n\n" + DomainContext}
}

// Assemble builds the transcript.
func Assemble(in Input) []Message {
	out := []Message{SystemMessage(in.SystemPrompt)}

	if len(in.Messages) > 0 {
		for _, m := range in.Messages {
			if m.Role != RoleUser && m.Role != RoleAssistant {
				continue
			}
			content := string(m.Content)
			if m.Role == RoleAssistant {
				if flat := flatten(m.Structured); flat != "" {
					content = flat
				}
			}
			if strings.TrimSpace(content) == "" {
				continue
			}
			out = append(out, Message{Role: m.Role, Content: content})
		}
		return out
	}

	if strings.TrimSpace(in.Prompt) != "" {
		out = append(out, Message{Role: RoleUser, Content: in.Prompt})
	}
	return out
}

// flatten joins non-empty section contents with newlines.
func flatten(s *Structured) string {
	if s == nil {
		return ""
	}
	parts := make([]string, 0, len(s.Sections))
	for _, sec := range s.Sections {
		if strings.TrimSpace(sec.Content) == "" {
			continue
		}
		parts = append(parts, sec.Content)
	}
	return strings.Join(parts, "\n")
}
