package message

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/patientiq/dashboard-api/internal/config"
	"github.com/patientiq/dashboard-api/internal/llm"
	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/repository"
	apperrors "github.com/patientiq/dashboard-api/pkg/errors"
)

const (
	DefaultLimit    = 50
	defaultPriority = "normal"
)

// now is replaced in tests.
var now = time.Now

type Service struct {
	repo   repository.MessageRepository
	llm    llm.Client
	sender config.MessagesConfig
}

func NewService(repo repository.MessageRepository, client llm.Client, cfg config.MessagesConfig) *Service {
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = DefaultLimit
	}
	return &Service{repo: repo, llm: client, sender: cfg}
}

func (s *Service) limit(n int) int {
	if n <= 0 {
		return s.sender.ListLimit
	}
	return n
}

// ListPrivate returns messages sent to or from the doctor, newest first.
func (s *Service) ListPrivate(ctx context.Context, doctorID string, limit int) (*model.MessageList, error) {
	msgs, err := s.repo.ListPrivate(ctx, doctorID, s.limit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list private messages: %w", err)
	}
	if msgs == nil {
		msgs = []*model.Message{}
	}
	return &model.MessageList{DoctorID: doctorID, Messages: msgs, Count: len(msgs)}, nil
}

func (s *Service) ListPublic(ctx context.Context, limit int) (*model.MessageList, error) {
	msgs, err := s.repo.ListPublic(ctx, s.limit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list public messages: %w", err)
	}
	if msgs == nil {
		msgs = []*model.Message{}
	}
	return &model.MessageList{Messages: msgs, Count: len(msgs)}, nil
}

// SendPrivate stores a private message from the configured dashboard user.
func (s *Service) SendPrivate(ctx context.Context, req *model.SendMessageRequest) (*model.MessageSent, error) {
	toID := strings.TrimSpace(req.ToID)
	toName := strings.TrimSpace(req.ToName)
	subject := strings.TrimSpace(req.Subject)
	content := strings.TrimSpace(req.Content)
	if toID == "" || toName == "" || subject == "" || content == "" {
		return nil, apperrors.NewBadRequest("Missing required fields: to_id, to_name, subject, content", nil)
	}

	ts := now()
	msg := &model.Message{
		ID:          fmt.Sprintf("msg_private_%d", ts.Unix()),
		MessageType: model.MessageTypePrivate,
		FromID:      s.sender.SenderID,
		FromName:    s.sender.SenderName,
		ToID:        toID,
		ToName:      toName,
		Subject:     subject,
		Content:     content,
		Priority:    priorityOrDefault(req.Priority),
		Timestamp:   ts,
	}
	if err := s.repo.Save(ctx, msg); err != nil {
		return nil, apperrors.NewInternal("Failed to send private message", err)
	}
	log.Info().Str("message_id", msg.ID).Str("to_id", toID).Msg("private message sent")
	return &model.MessageSent{Message: "Private message sent", ID: msg.ID}, nil
}

// SendPublic posts a message to the staff-wide board.
func (s *Service) SendPublic(ctx context.Context, req *model.SendMessageRequest) (*model.MessageSent, error) {
	subject := strings.TrimSpace(req.Subject)
	content := strings.TrimSpace(req.Content)
	if subject == "" || content == "" {
		return nil, apperrors.NewBadRequest("Missing required fields: subject, content", nil)
	}

	ts := now()
	msg := &model.Message{
		ID:          fmt.Sprintf("msg_public_%d", ts.Unix()),
		MessageType: model.MessageTypePublic,
		FromID:      s.sender.SenderID,
		FromName:    s.sender.SenderName,
		ToName:      s.sender.PublicRecipient,
		Subject:     subject,
		Content:     content,
		Priority:    priorityOrDefault(req.Priority),
		Timestamp:   ts,
	}
	if err := s.repo.Save(ctx, msg); err != nil {
		return nil, apperrors.NewInternal("Failed to send public message", err)
	}
	log.Info().Str("message_id", msg.ID).Msg("public message sent")
	return &model.MessageSent{Message: "Public message sent", ID: msg.ID}, nil
}

// MarkRead flags a message of the given board as read.
func (s *Service) MarkRead(ctx context.Context, messageType model.MessageType, id string) (*model.MessageRead, error) {
	if messageType != model.MessageTypePrivate && messageType != model.MessageTypePublic {
		return nil, apperrors.NewBadRequest("Message type must be private or public", nil)
	}
	ok, err := s.repo.MarkRead(ctx, id, messageType)
	if err != nil {
		return nil, apperrors.NewInternal("Failed to mark message as read", err)
	}
	if !ok {
		return nil, apperrors.NewNotFound("Message not found", nil)
	}
	return &model.MessageRead{Message: "Message marked as read", MessageID: id}, nil
}

func priorityOrDefault(p string) string {
	if p = strings.TrimSpace(p); p != "" {
		return p
	}
	return defaultPriority
}
