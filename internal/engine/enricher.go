package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/agrodesk/agrodesk/internal/session"
)

// ContextEnricher merges session history and extracted entities into an
// operational context record. Pure data aggregation; no reasoning calls.
type ContextEnricher struct {
	sessions session.Store
	logger   *zap.Logger
}

// NewContextEnricher creates an enricher reading from the given session store.
func NewContextEnricher(sessions session.Store, logger *zap.Logger) *ContextEnricher {
	return &ContextEnricher{sessions: sessions, logger: logger}
}

// Enrich derives the per-turn operational context. A missing session is
// tolerated; only a hard store failure is an error.
func (e *ContextEnricher) Enrich(ctx context.Context, cls Classification, sessionID string) (EnrichedContext, error) {
	enriched := EnrichedContext{Classification: cls}

	if sessionID != "" && e.sessions != nil {
		sess, err := e.sessions.Get(ctx, sessionID)
		switch {
		case errors.Is(err, session.ErrNotFound):
			// No session yet; fields stay empty.
		case err != nil:
			return enriched, err
		default:
			enriched.SessionMetadata = sess.Metadata
			for _, msg := range sess.Messages {
				enriched.History = append(enriched.History, HistoryMessage{
					Role: msg.Role,
					Text: msg.Text,
				})
			}
		}
	}

	// Plot takes precedence over a generic location mention.
	if cls.Entities.Plot != "" {
		enriched.Location = cls.Entities.Plot
	} else if cls.Entities.Location != "" {
		enriched.Location = cls.Entities.Location
	}

	if cls.Entities.Machine != "" {
		enriched.Machine = &MachineInfo{
			ID:       cls.Entities.Machine,
			Symptoms: cls.Entities.Symptoms,
		}
	}

	e.logger.Debug("context enriched",
		zap.String("location", enriched.Location),
		zap.Bool("machine", enriched.Machine != nil),
		zap.Int("history", len(enriched.History)))

	return enriched, nil
}
