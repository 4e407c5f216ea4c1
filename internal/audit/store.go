package audit

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

// ErrNotFound is returned by GetByID for an unknown entry.
var ErrNotFound = errors.New("audit entry not found")

// Store provides CRUD operations for audit entries.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Log inserts a new audit entry. If entry.ID is empty a UUID is generated,
// and a zero Timestamp means now.
func (s *Store) Log(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.ActorType == "" {
		entry.ActorType = ActorSystem
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (
			id, timestamp, actor_type, actor_id, action, document_id,
			find_text, replace_text, count, degraded, summary, detail, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Timestamp.UTC().Format(time.DateTime),
		string(entry.ActorType),
		entry.ActorID,
		string(entry.Action),
		entry.DocumentID,
		entry.Find,
		entry.Replace,
		entry.Count,
		entry.Degraded,
		entry.Summary,
		entry.Detail,
		entry.Version,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, timestamp, actor_type, actor_id, action, document_id,
	find_text, replace_text, count, degraded, summary, detail, version
	FROM audit_entries`

// GetByID retrieves a single audit entry.
func (s *Store) GetByID(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	e, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting audit entry %s: %w", id, err)
	}
	return e, nil
}

// QueryFilter controls which audit entries are returned by Query.
type QueryFilter struct {
	ActorID    string
	DocumentID string
	Action     Action
	// DegradedOnly keeps entries where formatting was discarded.
	DegradedOnly bool
	Since        *time.Time
	Until        *time.Time
	Limit        int
	Offset       int
}

// Query returns audit entries matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.ActorID != "" {
		clauses = append(clauses, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.DocumentID != "" {
		clauses = append(clauses, "document_id = ?")
		args = append(args, filter.DocumentID)
	}
	if filter.Action != "" {
		clauses = append(clauses, "action = ?")
		args = append(args, string(filter.Action))
	}
	if filter.DegradedOnly {
		clauses = append(clauses, "degraded = 1")
	}
	if filter.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(time.DateTime))
	}
	if filter.Until != nil {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, filter.Until.UTC().Format(time.DateTime))
	}

	query := selectColumns
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC, rowid DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	} else if filter.Offset > 0 {
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// DeleteBefore removes all audit entries older than the given time.
// Returns the number of deleted rows.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM audit_entries WHERE timestamp < ?",
		before.UTC().Format(time.DateTime),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old audit entries: %w", err)
	}
	return res.RowsAffected()
}

// CountByAction returns the number of entries per action.
func (s *Store) CountByAction(ctx context.Context) (map[Action]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT action, COUNT(*) FROM audit_entries GROUP BY action")
	if err != nil {
		return nil, fmt.Errorf("counting audit entries: %w", err)
	}
	defer rows.Close()

	counts := make(map[Action]int)
	for rows.Next() {
		var (
			action string
			n      int
		)
		if err := rows.Scan(&action, &n); err != nil {
			return nil, err
		}
		counts[Action(action)] = n
	}
	return counts, rows.Err()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Entry, error) {
	var (
		e                 Entry
		actorType, action string
		ts                string
	)

	err := sc.Scan(
		&e.ID, &ts, &actorType, &e.ActorID, &action, &e.DocumentID,
		&e.Find, &e.Replace, &e.Count, &e.Degraded, &e.Summary, &e.Detail, &e.Version,
	)
	if err != nil {
		return nil, err
	}

	e.ActorType = ActorType(actorType)
	e.Action = Action(action)
	e.Timestamp = parseTime(ts)
	return &e, nil
}

// parseTime accepts both the stored text form and the driver's RFC 3339 rendering.
func parseTime(s string) time.Time {
	for _, layout := range []string{time.DateTime, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
