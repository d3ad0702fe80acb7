package channels

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the channel webhook endpoints on the given router.
func RegisterRoutes(r chi.Router, slackHandler *SlackHandler, webhookHandler *WebhookHandler) {
	r.Post("/api/channels/slack/events", slackHandler.HandleEvent)
	r.Post("/api/channels/webhook", webhookHandler.HandleMessage)
}
