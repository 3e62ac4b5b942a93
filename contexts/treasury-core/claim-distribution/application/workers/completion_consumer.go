package workers

import (
	"context"
	"log/slog"

	application "midas/contexts/treasury-core/claim-distribution/application"
	"midas/internal/shared/events"
)

// CompletionConsumer is the in-process subscriber for finalized batches.
// It records each delivery in the worker log; external consumers (the
// notifier, the content site) attach to the same topic.
type CompletionConsumer struct {
	Logger *slog.Logger
}

func (c CompletionConsumer) Handle(_ context.Context, event events.Envelope) error {
	application.ResolveLogger(c.Logger).Info("distribution completion received",
		"event", "distribution_completion_received",
		"module", "treasury-core/claim-distribution",
		"layer", "worker",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"entity_id", event.EntityID,
		"correlation_id", event.CorrelationID,
	)
	return nil
}
