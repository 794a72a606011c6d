// Package gateway types - request and response bodies for the AI endpoint.
package gateway

import (
	"encoding/json"

	"github.com/munilab/ai-gateway/internal/prompt"
	"github.com/munilab/ai-gateway/internal/quota"
)

// EndpointName identifies the AI invocation endpoint in usage records.
const EndpointName = "invoke-llm"

// Headers read or written by the gateway.
const (
	HeaderRequestID          = "X-Request-ID"
	HeaderSessionID          = "X-Session-ID"
	HeaderRateLimitTier      = "X-RateLimit-Tier"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitUsed      = "X-RateLimit-Used"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
)

// InvokeRequest is the body accepted by the AI endpoint. Every field is
// optional.
type InvokeRequest struct {
	Prompt             string                       `json:"prompt"`
	Messages           []prompt.ConversationMessage `json:"messages"`
	ResponseJSONSchema json.RawMessage              `json:"response_json_schema"`
	SystemPrompt       string                       `json:"system_prompt"`
	SessionID          string                       `json:"session_id"`
}

// RateLimitInfo is the quota snapshot attached to replies. DailyLimit is
// -1 for unlimited tiers.
type RateLimitInfo struct {
	Tier       string `json:"tier"`
	DailyLimit int    `json:"dailyLimit"`
	Used       int    `json:"used"`
	Remaining  int    `json:"remaining"`
}

// rateLimitInfo converts an admission decision.
func rateLimitInfo(d quota.Decision) RateLimitInfo {
	return RateLimitInfo{
		Tier:       string(d.Tier),
		DailyLimit: d.DailyLimit,
		Used:       d.Used,
		Remaining:  d.Remaining,
	}
}

// ErrorResponse is the body of every failed call.
type ErrorResponse struct {
	Error         string         `json:"error"`
	RateLimitInfo *RateLimitInfo `json:"rate_limit_info,omitempty"`
}
