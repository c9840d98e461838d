package event

import (
	"context"

	"github.com/supplytrace/backend/internal/domain/shared"
)

// OutboxRecorder writes recorded events to the outbox.
// Bound to a transactional repository, entries commit or roll back with the aggregate changes.
type OutboxRecorder struct {
	serializer *EventSerializer
	repo       shared.OutboxRepository
}

// NewOutboxRecorder creates a recorder that saves through repo
func NewOutboxRecorder(serializer *EventSerializer, repo shared.OutboxRepository) *OutboxRecorder {
	return &OutboxRecorder{serializer: serializer, repo: repo}
}

// Record serializes events and saves them as pending outbox entries
func (r *OutboxRecorder) Record(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := r.serializer.Serialize(event)
		if err != nil {
			return err
		}
		entries = append(entries, shared.NewOutboxEntry(event, payload))
	}
	return r.repo.Save(ctx, entries...)
}

var _ shared.EventRecorder = (*OutboxRecorder)(nil)
