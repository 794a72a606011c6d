// HTTP request handling for the AI endpoint.
//
// DESIGN: handleInvoke runs one call end to end:
//   - parse body:    every field optional, malformed JSON is an InternalError
//   - identify:      identity.Resolver, then tier.Resolver
//   - admit:         quota.Controller.TryAdmit, denied calls stop here (429)
//   - record usage:  best effort, a failed write never fails the call
//   - notify:        one-time threshold warning, enqueued not awaited
//   - forward:       build, complete, normalize
//   - reply:         object results get rate_limit_info merged in
//
// Every outcome, including failures, lands in one telemetry RequestEvent.
package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/munilab/ai-gateway/internal/config"
	"github.com/munilab/ai-gateway/internal/identity"
	"github.com/munilab/ai-gateway/internal/monitoring"
	"github.com/munilab/ai-gateway/internal/prompt"
	"github.com/munilab/ai-gateway/internal/provider"
	"github.com/munilab/ai-gateway/internal/quota"
	"github.com/munilab/ai-gateway/internal/tier"
	"github.com/munilab/ai-gateway/internal/usage"
)

// rateLimitInfoKey is where the quota snapshot is merged into object results.
const rateLimitInfoKey = "rate_limit_info"

// handleInvoke is the entry point for all AI calls.
func (g *Gateway) handleInvoke(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	requestID := getRequestID(r)
	w.Header().Set(HeaderRequestID, requestID)

	ev := &monitoring.RequestEvent{
		RequestID: requestID,
		Timestamp: start.UTC(),
		Endpoint:  EndpointName,
		ClientIP:  clientIP(r),
	}
	defer func() {
		ev.TotalLatencyMs = time.Since(start).Milliseconds()
		g.tracker.RecordRequest(ev)
	}()

	req, err := readInvokeRequest(w, r)
	if err != nil {
		g.fail(w, ev, NewError(KindInternalError, err), nil)
		return
	}

	// Identity and tier never fail; the worst case is an anonymous session.
	caller := g.identity.Resolve(ctx, r.Header.Get("Authorization"), req.SessionID)
	t := g.tiers.Resolve(ctx, tier.Subject{UserID: caller.UserID, Email: caller.Email})
	ev.IdentityKind = string(caller.Kind())
	ev.Tier = string(t)
	if caller.Kind() == identity.KindSession {
		w.Header().Set(HeaderSessionID, caller.SessionToken)
	}

	decision, err := g.quota.TryAdmit(ctx, caller.Key(), t, EndpointName)
	if err != nil {
		g.fail(w, ev, Classify(err), nil)
		return
	}
	g.metrics.RecordAdmission(decision.Allowed)
	setRateLimitHeaders(w, decision)
	ev.DailyLimit = decision.DailyLimit
	ev.Used = decision.Used

	info := rateLimitInfo(decision)
	if !decision.Allowed {
		g.fail(w, ev, NewError(KindQuotaExceeded, nil), &info)
		return
	}

	messages := prompt.Assemble(prompt.Input{
		SystemPrompt: req.SystemPrompt,
		Prompt:       req.Prompt,
		Messages:     req.Messages,
	})
	estimated := g.tokens.Count(transcriptText(messages))
	ev.MessageCount = len(messages)
	ev.EstimatedTokens = estimated

	if err := g.usage.Record(ctx, usage.Record{
		IdentityKey: caller.Key(),
		UserID:      caller.UserID,
		Email:       caller.Email,
		SessionID:   caller.SessionToken,
		Tier:        string(t),
		Endpoint:    EndpointName,
		TokensUsed:  estimated,
	}); err != nil {
		g.metrics.RecordUsageWriteFailure()
	}

	g.notifier.Check(caller.Email, caller.UserID, decision)

	if g.provider == nil {
		g.fail(w, ev, NewError(KindProviderNotConfigured, provider.ErrNotConfigured), &info)
		return
	}

	chatReq := g.provider.Builder().Build(messages, req.ResponseJSONSchema)
	ev.Structured = chatReq.Structured()
	ev.Model = chatReq.Model

	forwardStart := time.Now()
	body, err := g.provider.Complete(ctx, chatReq)
	ev.ForwardLatencyMs = time.Since(forwardStart).Milliseconds()
	if err != nil {
		g.fail(w, ev, Classify(err), &info)
		return
	}

	result, err := provider.Normalize(body, chatReq.Structured())
	if err != nil {
		g.fail(w, ev, Classify(err), &info)
		return
	}
	out, err := result.WithMetadata(rateLimitInfoKey, info)
	if err != nil {
		g.fail(w, ev, NewError(KindInternalError, err), &info)
		return
	}

	g.metrics.RecordTokens(estimated, result.TotalTokens)
	g.metrics.RecordRequest(true)
	ev.TotalTokens = result.TotalTokens
	ev.StatusCode = http.StatusOK
	ev.Outcome = monitoring.OutcomeSuccess

	log.Debug().
		Str("request_id", requestID).
		Str("tier", string(t)).
		Str("source", string(result.Source)).
		Bool("fallback", result.Fallback).
		Int("used", decision.Used).
		Msg("invoke completed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// readInvokeRequest decodes the body. An empty body is an empty request.
func readInvokeRequest(w http.ResponseWriter, r *http.Request) (InvokeRequest, error) {
	var req InvokeRequest
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize))
	if err != nil {
		return req, fmt.Errorf("reading request body: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("decoding request body: %w", err)
	}
	return req, nil
}

// transcriptText concatenates message contents for token estimation.
func transcriptText(messages []prompt.Message) string {
	var sb strings.Builder
	for i, m := range messages {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(m.Content)
	}
	return sb.String()
}

// setRateLimitHeaders mirrors the quota snapshot in response headers, so
// callers of plain-text results can still read it.
func setRateLimitHeaders(w http.ResponseWriter, d quota.Decision) {
	h := w.Header()
	h.Set(HeaderRateLimitTier, string(d.Tier))
	h.Set(HeaderRateLimitLimit, strconv.Itoa(d.DailyLimit))
	h.Set(HeaderRateLimitUsed, strconv.Itoa(d.Used))
	h.Set(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))
}

// fail writes a classified error and records it. info is nil before
// admission has produced a snapshot.
func (g *Gateway) fail(w http.ResponseWriter, ev *monitoring.RequestEvent, e *Error, info *RateLimitInfo) {
	switch e.Kind {
	case KindQuotaExceeded:
		ev.Outcome = monitoring.OutcomeQuotaExceeded
	case KindUpstreamRateLimit:
		g.metrics.RecordUpstreamRateLimit()
		ev.Outcome = monitoring.OutcomeUpstreamError
	case KindUpstreamBillingRequired:
		g.metrics.RecordUpstreamBilling()
		ev.Outcome = monitoring.OutcomeUpstreamError
	case KindUpstreamGatewayError:
		g.metrics.RecordUpstreamFailure()
		ev.Outcome = monitoring.OutcomeUpstreamError
	default:
		g.metrics.RecordInternalError()
		ev.Outcome = monitoring.OutcomeInternalError
	}
	g.metrics.RecordRequest(false)

	ev.StatusCode = e.Status()
	ev.ErrorKind = string(e.Kind)
	ev.UpstreamStatus = e.UpstreamStatus

	if e.Err != nil {
		log.Error().
			Err(e.Err).
			Str("request_id", ev.RequestID).
			Str("kind", string(e.Kind)).
			Int("upstream_status", e.UpstreamStatus).
			Msg("invoke failed")
	} else {
		log.Info().
			Str("request_id", ev.RequestID).
			Str("kind", string(e.Kind)).
			Str("tier", ev.Tier).
			Msg("invoke rejected")
	}

	writeJSON(w, e.Status(), ErrorResponse{Error: e.Message(), RateLimitInfo: info})
}
