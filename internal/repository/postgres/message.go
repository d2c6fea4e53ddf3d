package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/repository"
)

type messageRepository struct {
	BaseRepository
}

func NewMessageRepository(db *sqlx.DB) repository.MessageRepository {
	return &messageRepository{NewBaseRepository(db)}
}

const messageColumns = `id, message_type, from_id, from_name, to_id, to_name, subject, content, priority, read, timestamp`

func (r *messageRepository) ListPrivate(ctx context.Context, doctorID string, limit int) ([]*model.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE message_type = $1 AND (to_id = $2 OR from_id = $2)
		ORDER BY timestamp DESC
		LIMIT $3
	`
	var msgs []*model.Message
	if err := r.db.SelectContext(ctx, &msgs, query, model.MessageTypePrivate, doctorID, limit); err != nil {
		return nil, fmt.Errorf("failed to list private messages: %w", err)
	}
	return msgs, nil
}

func (r *messageRepository) ListPublic(ctx context.Context, limit int) ([]*model.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE message_type = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`
	var msgs []*model.Message
	if err := r.db.SelectContext(ctx, &msgs, query, model.MessageTypePublic, limit); err != nil {
		return nil, fmt.Errorf("failed to list public messages: %w", err)
	}
	return msgs, nil
}

func (r *messageRepository) Save(ctx context.Context, msg *model.Message) error {
	query := `
		INSERT INTO messages (
			id, message_type, from_id, from_name, to_id, to_name, subject, content, priority, read, timestamp
		) VALUES (
			:id, :message_type, :from_id, :from_name, :to_id, :to_name, :subject, :content, :priority, :read, :timestamp
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, msg); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

func (r *messageRepository) MarkRead(ctx context.Context, id string, messageType model.MessageType) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET read = TRUE WHERE id = $1 AND message_type = $2`, id, messageType)
	if err != nil {
		return false, fmt.Errorf("failed to mark message read: %w", err)
	}
	return affected(res)
}

func (r *messageRepository) ListStaff(ctx context.Context) ([]*model.StaffMember, error) {
	var staff []*model.StaffMember
	if err := r.db.SelectContext(ctx, &staff, `SELECT id, name, role, department, email FROM staff ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	return staff, nil
}

func (r *messageRepository) SaveRoute(ctx context.Context, route *model.MessageRoute) error {
	query := `
		INSERT INTO message_routes (id, original_message, routed_to, priority, analysis, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		route.ID,
		route.OriginalMessage,
		route.RoutedTo,
		route.Priority,
		route.Analysis,
		route.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save message route: %w", err)
	}
	return nil
}
