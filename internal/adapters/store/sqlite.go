package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ticketlens/ticketlens/internal/core"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
	tenant TEXT NOT NULL,
	id INTEGER NOT NULL,
	subject TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	conversation TEXT,
	status TEXT NOT NULL DEFAULT '',
	priority TEXT NOT NULL DEFAULT '',
	satisfaction INTEGER,
	assigned_to TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	PRIMARY KEY (tenant, id)
);

CREATE INDEX IF NOT EXISTS idx_records_tenant_status ON records(tenant, status);

INSERT OR IGNORE INTO schema_migrations (version, applied_at) VALUES (1, datetime('now'));
`

// SQLiteStore persists ticket records per tenant in a SQLite database.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// applies the schema. WAL mode is enabled for concurrent readers.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("applying schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &SQLiteStore{dbPath: dbPath, db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InsertRecords commits records for a tenant in one transaction. A record
// whose id is already committed makes the whole batch fail; callers are
// expected to filter through the dedup guard first.
func (s *SQLiteStore) InsertRecords(ctx context.Context, tenant string, records []core.Record) ([]core.Record, error) {
	if len(records) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (
			tenant, id, subject, description, conversation,
			status, priority, satisfaction, assigned_to, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	committed := make([]core.Record, 0, len(records))
	for _, r := range records {
		r.Tenant = tenant
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}

		var conversation any
		if len(r.Conversation) > 0 {
			buf, err := json.Marshal(r.Conversation)
			if err != nil {
				return nil, fmt.Errorf("marshaling conversation for record %d: %w", r.ID, err)
			}
			conversation = string(buf)
		}

		var satisfaction any
		if r.Satisfaction != nil {
			satisfaction = *r.Satisfaction
		}

		if _, err := stmt.ExecContext(ctx,
			tenant, r.ID, r.Subject, r.Description, conversation,
			r.Status, r.Priority, satisfaction, r.AssignedTo,
			r.CreatedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return nil, fmt.Errorf("inserting record %d: %w", r.ID, err)
		}
		committed = append(committed, r)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing records: %w", err)
	}
	return committed, nil
}

// QueryExistingIDs returns the subset of candidateIDs already committed
// for the tenant.
func (s *SQLiteStore) QueryExistingIDs(ctx context.Context, tenant string, candidateIDs []int) ([]int, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(candidateIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(candidateIDs)+1)
	args = append(args, tenant)
	for _, id := range candidateIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM records WHERE tenant = ? AND id IN ("+placeholders+") ORDER BY id",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying existing ids: %w", err)
	}
	defer rows.Close()

	var existing []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		existing = append(existing, id)
	}
	return existing, rows.Err()
}

// HighestID returns the highest committed record id for the tenant. The
// second return is false when the tenant has no records.
func (s *SQLiteStore) HighestID(ctx context.Context, tenant string) (int, bool, error) {
	var highest sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(id) FROM records WHERE tenant = ?", tenant,
	).Scan(&highest)
	if err != nil {
		return 0, false, fmt.Errorf("querying highest id: %w", err)
	}
	if !highest.Valid {
		return 0, false, nil
	}
	return int(highest.Int64), true, nil
}

// ListRecords returns all committed records for the tenant ordered by id.
func (s *SQLiteStore) ListRecords(ctx context.Context, tenant string) ([]core.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject, description, conversation,
			status, priority, satisfaction, assigned_to, created_at
		FROM records WHERE tenant = ? ORDER BY id
	`, tenant)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var records []core.Record
	for rows.Next() {
		var (
			r            core.Record
			conversation sql.NullString
			satisfaction sql.NullInt64
			createdAt    string
		)
		if err := rows.Scan(
			&r.ID, &r.Subject, &r.Description, &conversation,
			&r.Status, &r.Priority, &satisfaction, &r.AssignedTo, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.Tenant = tenant

		if conversation.Valid && conversation.String != "" {
			if err := json.Unmarshal([]byte(conversation.String), &r.Conversation); err != nil {
				return nil, fmt.Errorf("unmarshaling conversation for record %d: %w", r.ID, err)
			}
		}
		if satisfaction.Valid {
			v := int(satisfaction.Int64)
			r.Satisfaction = &v
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			r.CreatedAt = t
		}

		records = append(records, r)
	}
	return records, rows.Err()
}
