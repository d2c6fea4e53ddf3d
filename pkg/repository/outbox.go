package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/patientiq/dashboard-api/internal/model"
)

// OutboxRepository is the slice of the outbox store the processor needs.
type OutboxRepository interface {
	GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
}
