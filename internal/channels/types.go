package channels

// Channel identifies the messaging channel a message arrived on.
type Channel string

const (
	ChannelSlack   Channel = "slack"
	ChannelWebhook Channel = "webhook"
)

// IncomingMessage represents a message received from any channel.
type IncomingMessage struct {
	Channel        Channel
	ConversationID string
	UserID         string
	UserName       string
	Text           string
	ThreadID       string // for threaded replies
	Timestamp      string
}

// OutgoingMessage represents a response to send back.
type OutgoingMessage struct {
	ConversationID string         `json:"conversation_id"`
	Text           string         `json:"text"`
	ThreadID       string         `json:"thread_id,omitempty"`
	SessionID      string         `json:"session_id,omitempty"`
	FlowState      string         `json:"flow_state,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
}
