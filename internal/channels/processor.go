package channels

import (
	"context"
	"fmt"

	"github.com/agrodesk/agrodesk/internal/engine"
)

// TurnProcessor runs one help-desk turn. *engine.Orchestrator satisfies it.
type TurnProcessor interface {
	Process(ctx context.Context, message, sessionID string) *engine.Result
}

// Processor connects incoming channel messages to the decision engine.
// Each channel conversation maps to one stable engine session, so
// clarification follow-ups land in the same context.
type Processor struct {
	engine TurnProcessor
}

// NewProcessor creates a new message processor.
func NewProcessor(eng TurnProcessor) *Processor {
	return &Processor{engine: eng}
}

// HandleMessage runs one turn and formats the result for the channel.
func (p *Processor) HandleMessage(ctx context.Context, msg IncomingMessage) (*OutgoingMessage, error) {
	out := &OutgoingMessage{
		ConversationID: msg.ConversationID,
		ThreadID:       msg.ThreadID,
	}

	if msg.Text == "" {
		out.Text = "I received an empty message. Can you tell me what is happening?"
		return out, nil
	}
	if p.engine == nil {
		return nil, fmt.Errorf("decision engine not configured")
	}

	res := p.engine.Process(ctx, msg.Text, sessionIDFor(msg))

	out.Text = res.Message
	out.SessionID = res.SessionID
	out.FlowState = string(res.FlowState)
	if res.WorkOrder != nil {
		out.Extra = map[string]any{"work_order": res.WorkOrder}
	}
	return out, nil
}

// sessionIDFor derives the stable engine session id for a channel
// conversation.
func sessionIDFor(msg IncomingMessage) string {
	return fmt.Sprintf("chan-%s-%s", msg.Channel, msg.ConversationID)
}
