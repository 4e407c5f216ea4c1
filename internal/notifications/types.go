package notifications

import "time"

// Severity indicates the importance of a notification.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// NotificationType categorises the change that triggered the notification.
type NotificationType string

const (
	TypeDocumentCreated NotificationType = "document_created"
	TypeDocumentEdited  NotificationType = "document_edited"
	TypeDegradedEdit    NotificationType = "degraded_edit"
	TypeDocumentDeleted NotificationType = "document_deleted"
)

// Notification is a single change notification record.
type Notification struct {
	ID           string           `json:"id"`
	Type         NotificationType `json:"type"`
	Severity     Severity         `json:"severity"`
	DocumentID   string           `json:"document_id"`
	DocumentName string           `json:"document_name,omitempty"`
	Title        string           `json:"title"`
	Message      string           `json:"message"`
	Version      int              `json:"version,omitempty"`
	Delivered    bool             `json:"delivered"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Subscription registers a webhook. An empty DocumentID receives
// notifications for every document.
type Subscription struct {
	ID             string    `json:"id"`
	URL            string    `json:"url"`
	DocumentID     string    `json:"document_id,omitempty"`
	SeverityFilter Severity  `json:"severity_filter"`
	CreatedAt      time.Time `json:"created_at"`
}
