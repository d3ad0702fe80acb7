package channels

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// WebhookHandler handles the generic inbound webhook channel, used by
// messaging bridges that POST plain JSON messages.
type WebhookHandler struct {
	gateway *Gateway
	token   string
}

// NewWebhookHandler creates a new webhook handler. An empty token disables
// authentication.
func NewWebhookHandler(gateway *Gateway, token string) *WebhookHandler {
	return &WebhookHandler{gateway: gateway, token: token}
}

// webhookMessage is the inbound payload of the generic channel.
type webhookMessage struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	UserName       string `json:"user_name"`
	Text           string `json:"text"`
	Timestamp      string `json:"timestamp"`
}

// HandleMessage handles an inbound webhook message (HTTP POST).
func (h *WebhookHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	if h.token != "" && !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload webhookMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if payload.ConversationID == "" {
		http.Error(w, "conversation_id is required", http.StatusBadRequest)
		return
	}

	msg := IncomingMessage{
		Channel:        ChannelWebhook,
		ConversationID: payload.ConversationID,
		UserID:         payload.UserID,
		UserName:       payload.UserName,
		Text:           payload.Text,
		Timestamp:      payload.Timestamp,
	}

	resp, err := h.gateway.Process(r.Context(), msg)
	if err != nil {
		http.Error(w, "processing error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *WebhookHandler) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.token)) == 1
}
