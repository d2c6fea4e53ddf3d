package model

import "time"

type MessageType string

const (
	MessageTypePrivate MessageType = "private"
	MessageTypePublic  MessageType = "public"
)

// Message is a staff message on the private or public board.
type Message struct {
	ID          string      `db:"id" json:"id"`
	MessageType MessageType `db:"message_type" json:"message_type"`
	FromID      string      `db:"from_id" json:"from_id"`
	FromName    string      `db:"from_name" json:"from_name"`
	ToID        string      `db:"to_id" json:"to_id"`
	ToName      string      `db:"to_name" json:"to_name"`
	Subject     string      `db:"subject" json:"subject"`
	Content     string      `db:"content" json:"content"`
	Priority    string      `db:"priority" json:"priority"`
	Read        bool        `db:"read" json:"read"`
	Timestamp   time.Time   `db:"timestamp" json:"timestamp"`
}

// SendMessageRequest is the body of the send endpoints.
type SendMessageRequest struct {
	ToID     string `json:"to_id"`
	ToName   string `json:"to_name"`
	Subject  string `json:"subject"`
	Content  string `json:"content"`
	Priority string `json:"priority"`
	FromID   string `json:"from_id"`
	FromName string `json:"from_name"`
}

// StaffMember is an entry of the routing directory.
type StaffMember struct {
	ID         string `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	Role       string `db:"role" json:"role"`
	Department string `db:"department" json:"department"`
	Email      string `db:"email" json:"email"`
}

// RouteTarget is one recipient chosen by the router.
type RouteTarget struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Reason string `json:"reason"`
}

// MessageRoute is the stored routing decision for an announcement.
type MessageRoute struct {
	ID              string       `db:"id" json:"id"`
	OriginalMessage string       `db:"original_message" json:"original_message"`
	RoutedTo        RouteTargets `db:"routed_to" json:"routed_to"`
	Priority        string       `db:"priority" json:"priority"`
	Analysis        string       `db:"analysis" json:"analysis"`
	Timestamp       time.Time    `db:"timestamp" json:"timestamp"`
}

// RouteMessageRequest is the body of the routing endpoint.
type RouteMessageRequest struct {
	Message string `json:"message"`
}

// MessageList is a page of board messages. DoctorID is set for private boards.
type MessageList struct {
	DoctorID string     `json:"doctor_id,omitempty"`
	Messages []*Message `json:"messages"`
	Count    int        `json:"count"`
}

// MessageSent acknowledges a sent message.
type MessageSent struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// MessageRead acknowledges a read receipt.
type MessageRead struct {
	Message   string `json:"message"`
	MessageID string `json:"message_id"`
}
