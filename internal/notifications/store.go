// Package notifications records document change notifications and delivers
// them to webhook subscribers.
package notifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/docpilot/internal/db"
)

// ErrNotFound is returned for an unknown notification or subscription.
var ErrNotFound = errors.New("not found")

// ListFilter controls which notifications are returned by List.
type ListFilter struct {
	Type       NotificationType
	Severity   Severity
	DocumentID string
	Delivered  *bool
	Since      time.Time
	Until      time.Time
	Limit      int
	Offset     int
}

// Store provides CRUD operations for notifications and subscriptions.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a new notification. If n.ID is empty a UUID is generated.
func (s *Store) Create(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, type, severity, document_id, document_name, title, message, version, delivered, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, string(n.Type), string(n.Severity), n.DocumentID, n.DocumentName,
		n.Title, n.Message, n.Version, boolInt(n.Delivered), n.CreatedAt.UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

const notificationColumns = `SELECT id, type, severity, document_id, document_name, title, message, version, delivered, created_at FROM notifications`

// GetByID retrieves a single notification.
func (s *Store) GetByID(ctx context.Context, id string) (*Notification, error) {
	row := s.db.QueryRowContext(ctx, notificationColumns+" WHERE id = ?", id)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return n, err
}

// List returns notifications matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Notification, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Severity != "" {
		clauses = append(clauses, "severity = ?")
		args = append(args, string(filter.Severity))
	}
	if filter.DocumentID != "" {
		clauses = append(clauses, "document_id = ?")
		args = append(args, filter.DocumentID)
	}
	if filter.Delivered != nil {
		clauses = append(clauses, "delivered = ?")
		args = append(args, boolInt(*filter.Delivered))
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.DateTime))
	}
	if !filter.Until.IsZero() {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, filter.Until.UTC().Format(time.DateTime))
	}

	query := notificationColumns
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	result := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}

// MarkDelivered sets delivered=1 for the given notification.
func (s *Store) MarkDelivered(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE notifications SET delivered = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking notification delivered: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetPending returns all undelivered notifications.
func (s *Store) GetPending(ctx context.Context) ([]Notification, error) {
	delivered := false
	return s.List(ctx, ListFilter{Delivered: &delivered})
}

// Subscribe stores a webhook subscription.
func (s *Store) Subscribe(ctx context.Context, sub *Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.SeverityFilter == "" {
		sub.SeverityFilter = SeverityInfo
	}
	sub.CreatedAt = time.Now().UTC().Truncate(time.Second)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO webhook_subscriptions (id, url, document_id, severity_filter, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		sub.ID, sub.URL, sub.DocumentID, string(sub.SeverityFilter), sub.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("inserting subscription: %w", err)
	}
	return nil
}

// Unsubscribe removes a webhook subscription.
func (s *Store) Unsubscribe(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM webhook_subscriptions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("subscription %s: %w", id, ErrNotFound)
	}
	return nil
}

// Subscriptions returns the subscriptions that receive notifications for
// documentID: those bound to it and those bound to no document. An empty
// documentID returns every subscription.
func (s *Store) Subscriptions(ctx context.Context, documentID string) ([]Subscription, error) {
	query := "SELECT id, url, document_id, severity_filter, created_at FROM webhook_subscriptions"
	var args []any
	if documentID != "" {
		query += " WHERE document_id = '' OR document_id = ?"
		args = append(args, documentID)
	}
	query += " ORDER BY created_at, rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []Subscription{}
	for rows.Next() {
		var (
			sub     Subscription
			sev, ts string
		)
		if err := rows.Scan(&sub.ID, &sub.URL, &sub.DocumentID, &sev, &ts); err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		sub.SeverityFilter = Severity(sev)
		sub.CreatedAt = parseTime(ts)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanNotification(sc scanner) (*Notification, error) {
	var (
		n               Notification
		ntype, severity string
		delivered       int
		ts              string
	)

	err := sc.Scan(&n.ID, &ntype, &severity, &n.DocumentID, &n.DocumentName,
		&n.Title, &n.Message, &n.Version, &delivered, &ts)
	if err != nil {
		return nil, err
	}

	n.Type = NotificationType(ntype)
	n.Severity = Severity(severity)
	n.Delivered = delivered != 0
	n.CreatedAt = parseTime(ts)
	return &n, nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.DateTime, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
