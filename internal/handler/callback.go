package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/okudo-collective/daraja-gateway/internal/webhook"
)

// maxCallbackBody caps what we read from Daraja; real callbacks are a few
// hundred bytes.
const maxCallbackBody = 1 << 20

// Sink is the caller's persistence boundary. Implementations own what
// happens to an event; this package only verifies, parses and acks.
type Sink interface {
	HandleEvent(ctx context.Context, event webhook.Event) error
}

// ack is the body Daraja requires on every callback response. Anything
// else makes the gateway re-deliver.
type ack struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

var accepted = ack{ResultCode: 0, ResultDesc: "Accepted"}

type CallbackHandler struct {
	sink        Sink
	logger      *slog.Logger
	skipIPCheck bool
	trustProxy  bool
}

// NewCallbackHandler builds the inbound webhook surface. skipIPCheck
// disables the Safaricom allowlist and must stay off in production.
// trustProxy makes the allowlist read the client address from the
// X-Forwarded-For hop appended by a reverse proxy; leave it off when the
// service terminates connections itself, since the header is
// attacker-controlled on a direct connection.
func NewCallbackHandler(sink Sink, logger *slog.Logger, skipIPCheck, trustProxy bool) *CallbackHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CallbackHandler{
		sink:        sink,
		logger:      logger,
		skipIPCheck: skipIPCheck,
		trustProxy:  trustProxy,
	}
}

func (h *CallbackHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/stk", h.HandleCallback)
	mux.HandleFunc("POST /webhooks/result", h.HandleCallback)
	mux.HandleFunc("POST /webhooks/c2b/confirmation", h.HandleCallback)
	mux.HandleFunc("POST /webhooks/c2b/validation", h.HandleValidation)
}

// HandleCallback ingests any Daraja callback: verify origin, parse, hand
// the event to the sink, ack. The ack is written regardless of what the
// sink does; a non-200 only makes Daraja retry a payload we already have.
func (h *CallbackHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.skipIPCheck && !webhook.VerifySourceIP(h.clientIP(r)) {
		h.logger.Warn("callback from unlisted IP rejected", "remote_addr", r.RemoteAddr)
		w.WriteHeader(http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		h.logger.Error("could not read callback body", "error", err)
		writeAck(w)
		return
	}

	event := webhook.Parse(body)
	if event.Kind == webhook.EventUnrecognized {
		h.logger.Warn("unrecognized callback payload", "path", r.URL.Path)
	} else if err := h.sink.HandleEvent(r.Context(), event); err != nil {
		h.logger.Error("sink rejected event",
			"kind", event.Kind,
			"correlation_id", event.CorrelationID(),
			"error", err,
		)
	}

	writeAck(w)
}

// HandleValidation answers Daraja's C2B validation probe. Validation is
// advisory; this deployment accepts everything and lets the confirmation
// flow decide.
func (h *CallbackHandler) HandleValidation(w http.ResponseWriter, r *http.Request) {
	if !h.skipIPCheck && !webhook.VerifySourceIP(h.clientIP(r)) {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	io.Copy(io.Discard, io.LimitReader(r.Body, maxCallbackBody))
	writeAck(w)
}

func writeAck(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(accepted)
}

// clientIP resolves the address the allowlist judges. The connection's
// RemoteAddr is authoritative unless a trusted proxy fronts the service,
// in which case only the last X-Forwarded-For hop counts: proxies append
// the peer they accepted from, while earlier hops arrive unverified from
// the client.
func (h *CallbackHandler) clientIP(r *http.Request) string {
	if h.trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			hops := strings.Split(fwd, ",")
			return strings.TrimSpace(hops[len(hops)-1])
		}
	}
	return r.RemoteAddr
}
