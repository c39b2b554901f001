package httpclient

import (
	"strconv"
	"time"
)

const (
	DefaultMaxPayloadLogBytes = 1024

	msgRequest  = "REST client request"
	msgResponse = "REST client response"
	msgRetry    = "REST client retry scheduled"
	msgFailed   = "REST client call failed"
)

// safeLog runs fn and swallows any panic from the logging sink. Logging must
// never change the outcome of a call.
func safeLog(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

func (p *Provider) logRequest(req *Request, attempt int, requestID string) {
	safeLog(func() {
		p.logger.Info().
			Str("direction", "outbound").
			Str("domain", string(req.Domain)).
			Str("method", req.Method).
			Str("url", req.URL).
			Str("request_id", requestID).
			Int("attempt", attempt).
			Int("header_count", len(req.Header)).
			Int("body_size", len(req.Body)).
			Msg(msgRequest)

		if p.config.LogPayloads {
			preview, truncated := p.payloadPreview(req.Body)
			p.logger.Debug().
				Str("direction", "outbound").
				Str("request_id", requestID).
				Interface("headers", req.Header).
				Str("body_preview", preview).
				Str("body_truncated", strconv.FormatBool(truncated)).
				Msg(msgRequest + " payload")
		}
	})
}

func (p *Provider) logResponse(req *Request, resp *Response, requestID string) {
	safeLog(func() {
		p.logger.Info().
			Str("direction", "inbound").
			Str("domain", string(req.Domain)).
			Str("method", req.Method).
			Str("url", req.URL).
			Str("request_id", requestID).
			Int("status", resp.StatusCode).
			Dur("elapsed", resp.Stats.ElapsedTime).
			Int("attempt", resp.Stats.Attempt).
			Int("body_size", len(resp.Body)).
			Msg(msgResponse)

		if p.config.LogPayloads {
			preview, truncated := p.payloadPreview(resp.Body)
			p.logger.Debug().
				Str("direction", "inbound").
				Str("request_id", requestID).
				Interface("headers", resp.Header).
				Str("body_preview", preview).
				Str("body_truncated", strconv.FormatBool(truncated)).
				Msg(msgResponse + " payload")
		}
	})
}

func (p *Provider) logRetry(req *Request, nerr *NetworkError, attempt int, delay time.Duration, requestID string) {
	safeLog(func() {
		p.logger.Warn().
			Err(nerr).
			Str("domain", string(req.Domain)).
			Str("method", req.Method).
			Str("url", req.URL).
			Str("request_id", requestID).
			Str("error_kind", string(nerr.Kind)).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg(msgRetry)
	})
}

func (p *Provider) logFailure(domain ServiceDomain, nerr *NetworkError, attempts int, requestID string) {
	safeLog(func() {
		p.logger.Error().
			Err(nerr).
			Str("domain", string(domain)).
			Str("request_id", requestID).
			Str("error_kind", string(nerr.Kind)).
			Int("attempts", attempts).
			Msg(msgFailed)
	})
}

func (p *Provider) payloadPreview(body []byte) (string, bool) {
	limit := p.config.MaxPayloadLogBytes
	if limit <= 0 {
		limit = DefaultMaxPayloadLogBytes
	}
	if len(body) > limit {
		return string(body[:limit]), true
	}
	return string(body), false
}
