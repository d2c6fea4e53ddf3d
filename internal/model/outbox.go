package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusProcessed  OutboxStatus = "processed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// EventWearableAlert is published for every critical or high alert.
const EventWearableAlert = "wearable.alert"

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Channel      string          `db:"channel" json:"channel"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// AlertEvent is the broker payload for a raised wearable alert.
type AlertEvent struct {
	Type        string        `json:"type"`
	AlertID     string        `json:"alert_id"`
	PatientID   string        `json:"patient_id"`
	PatientName string        `json:"patient_name"`
	Priority    AlertPriority `json:"severity"`
	Metric      string        `json:"metric"`
	Message     string        `json:"message"`
	RaisedAt    time.Time     `json:"timestamp"`
}
