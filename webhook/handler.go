package webhook

import (
	"io"
	"net/http"

	"github.com/goliatone/go-ses-events/core"
	"github.com/goliatone/go-ses-events/dispatch"
	"github.com/goliatone/go-ses-events/events"
	"github.com/goliatone/go-ses-events/verify"
)

// maxBodySize bounds the request body read. SNS tops out at 256KB; anything
// larger is not a legitimate notification.
const maxBodySize = 1 << 20

// Handler is the notification endpoint. It accepts POSTed envelopes, verifies
// their signature and hands them to the dispatcher. Responses are deliberately
// blunt: a failed request learns the status code and nothing else.
//
// Unverifiable messages are rejected with 400 rather than acknowledged, so
// delivery retries remain visible on the sender side while signatures are
// misconfigured.
type Handler struct {
	dispatcher *dispatch.Dispatcher
	certs      *verify.CertificateCache

	verifySignatures bool
	trustedDomains   []string

	logger core.Logger
}

type HandlerOption func(*Handler)

func WithLogger(logger core.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithVerification toggles signature checking. Disabling is for local
// development only.
func WithVerification(enabled bool) HandlerOption {
	return func(h *Handler) { h.verifySignatures = enabled }
}

func WithTrustedDomains(domains []string) HandlerOption {
	return func(h *Handler) {
		if len(domains) > 0 {
			h.trustedDomains = append([]string(nil), domains...)
		}
	}
}

func WithCertificateCache(certs *verify.CertificateCache) HandlerOption {
	return func(h *Handler) {
		if certs != nil {
			h.certs = certs
		}
	}
}

func NewHandler(dispatcher *dispatch.Dispatcher, opts ...HandlerOption) *Handler {
	handler := &Handler{
		dispatcher:       dispatcher,
		certs:            verify.NewCertificateCache(),
		verifySignatures: true,
		trustedDomains:   append([]string(nil), core.DefaultTrustedCertDomains...),
		logger:           core.ResolveLogger("webhook", nil, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(handler)
		}
	}
	return handler
}

// FromConfig builds a handler using the service configuration. A nil config
// yields the constructor defaults.
func FromConfig(cfg *core.Config, dispatcher *dispatch.Dispatcher, opts ...HandlerOption) *Handler {
	if cfg == nil {
		return NewHandler(dispatcher, opts...)
	}
	base := []HandlerOption{
		WithVerification(cfg.VerifySignatures),
		WithTrustedDomains(cfg.TrustedCertDomains),
	}
	return NewHandler(dispatcher, append(base, opts...)...)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.logger.Error("reading notification body failed", "error", err.Error())
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	envelope, err := events.ParseEnvelope(body)
	if err != nil {
		h.logger.Info("rejecting malformed notification envelope",
			"remote_addr", r.RemoteAddr)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if h.verifySignatures {
		verifier := verify.NewVerifier(envelope, h.certs,
			verify.WithLogger(h.logger),
			verify.WithTrustedDomains(h.trustedDomains),
		)
		if !verifier.IsVerified(r.Context()) {
			h.logger.Info("rejecting notification with invalid signature",
				"message_id", envelope.MessageID, "topic_arn", envelope.TopicArn)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
	}

	if err := h.dispatcher.Dispatch(r.Context(), envelope); err != nil {
		mapped := core.MapServiceError(err)
		if mapped.Code >= http.StatusInternalServerError {
			h.logger.Error("notification dispatch failed",
				"message_id", envelope.MessageID, "error", err.Error())
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		h.logger.Info("rejecting undispatchable notification",
			"message_id", envelope.MessageID, "status", mapped.Code)
		http.Error(w, "bad request", mapped.Code)
		return
	}

	w.WriteHeader(http.StatusOK)
}
