package http

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/ledtorch/deejiar/internal/billing"
)

// WebhookHandler receives billing events from the subscription provider.
type WebhookHandler struct {
	billing *billing.Service
	token   string
	logger  *slog.Logger
}

// NewWebhookHandler creates a handler guarded by the shared webhook token.
func NewWebhookHandler(billingSvc *billing.Service, token string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{billing: billingSvc, token: token, logger: logger}
}

type webhookPayload struct {
	Type  string `json:"type"`
	Event struct {
		Type           string `json:"type"`
		AppUserID      string `json:"app_user_id"`
		ProductID      string `json:"product_id"`
		PeriodType     string `json:"period_type"`
		ExpirationAtMs int64  `json:"expiration_at_ms"`
	} `json:"event"`
}

// HandleRevenueCat processes one webhook delivery.
func (h *WebhookHandler) HandleRevenueCat(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// The sender attaches many fields beyond the ones used here, so this
	// decode tolerates unknown fields unlike the strict API payloads.
	limited := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	defer func() { _ = limited.Close() }()

	var payload webhookPayload
	if err := json.NewDecoder(limited).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	// Some sender versions put the type at the top level, others nest it.
	eventType := payload.Event.Type
	if eventType == "" {
		eventType = payload.Type
	}

	outcome, err := h.billing.Apply(r.Context(), billing.Event{
		Type:           billing.EventType(eventType),
		AppUserID:      payload.Event.AppUserID,
		ProductID:      payload.Event.ProductID,
		PeriodType:     payload.Event.PeriodType,
		ExpirationAtMs: payload.Event.ExpirationAtMs,
	})
	if err != nil {
		h.logger.Error("webhook processing failed", "type", eventType, "error", err)
		writeError(w, http.StatusInternalServerError, "webhook processing failed")
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

func (h *WebhookHandler) authorized(r *http.Request) bool {
	if h.token == "" {
		return false
	}
	supplied := r.Header.Get("Authorization")
	if supplied == "" {
		return false
	}
	if token := bearerToken(r); token != "" {
		supplied = token
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(h.token)) == 1
}
