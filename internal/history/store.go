// Package history persists generated QR records, style templates and batch
// run state in PostgreSQL. It is a keyed CRUD layer with no coupling to the
// batch pipeline beyond accepting already-produced payload, style and
// thumbnail strings.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
)

// Store provides access to the history database
type Store struct {
	db    *sql.DB
	owned bool
}

// Open connects to PostgreSQL and ensures the schema exists
func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	store := &Store{db: db, owned: true}
	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an existing database connection and ensures the schema
// exists. The connection is not closed by Close.
func NewStore(db *sql.DB) (*Store, error) {
	store := &Store{db: db}
	if err := store.ensureSchema(); err != nil {
		return nil, err
	}
	return store, nil
}

// Close closes the underlying connection when the store owns it
func (s *Store) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

func (s *Store) ensureSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS qr_history (
			id BIGSERIAL PRIMARY KEY,
			content TEXT NOT NULL,
			qr_type TEXT NOT NULL,
			label TEXT,
			style_json TEXT NOT NULL DEFAULT '{}',
			thumbnail TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_qr_history_created_at ON qr_history(created_at DESC);

		CREATE TABLE IF NOT EXISTS qr_templates (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			style_json TEXT NOT NULL,
			preview TEXT,
			is_default BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS batch_runs (
			run_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			zip_path TEXT,
			error TEXT,
			verdict_count INTEGER DEFAULT 0,
			pass_count INTEGER DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			finished_at TIMESTAMPTZ
		);

		CREATE TABLE IF NOT EXISTS batch_dedupe (
			csv_hash TEXT PRIMARY KEY,
			first_seen_at TIMESTAMPTZ DEFAULT NOW(),
			last_seen_at TIMESTAMPTZ DEFAULT NOW(),
			seen_count INTEGER DEFAULT 1
		)
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to ensure history schema: %w", err)
	}
	log.Printf("✓ history schema ready")
	return nil
}

// Item is one stored history record
type Item struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	QRType    string    `json:"qr_type"`
	Label     string    `json:"label,omitempty"`
	StyleJSON string    `json:"style_json"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewItem carries the fields for saving a history record
type NewItem struct {
	Content   string `json:"content"`
	QRType    string `json:"qr_type"`
	Label     string `json:"label,omitempty"`
	StyleJSON string `json:"style_json"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// SaveItem inserts a new history record and returns its ID
func (s *Store) SaveItem(ctx context.Context, item NewItem) (int64, error) {
	if item.StyleJSON == "" {
		item.StyleJSON = "{}"
	}
	query := `
		INSERT INTO qr_history (content, qr_type, label, style_json, thumbnail)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''))
		RETURNING id
	`
	var id int64
	err := s.db.QueryRowContext(ctx, query,
		item.Content, item.QRType, item.Label, item.StyleJSON, item.Thumbnail).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save history item: %w", err)
	}
	return id, nil
}

// ListItems returns history records newest first, optionally filtered by a
// search term over content and label.
func (s *Store) ListItems(ctx context.Context, limit, offset int64, search string) ([]Item, error) {
	var rows *sql.Rows
	var err error
	if search != "" {
		query := `
			SELECT id, content, qr_type, COALESCE(label, ''), style_json, COALESCE(thumbnail, ''), created_at, updated_at
			FROM qr_history
			WHERE content ILIKE $1 OR label ILIKE $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3
		`
		rows, err = s.db.QueryContext(ctx, query, "%"+search+"%", limit, offset)
	} else {
		query := `
			SELECT id, content, qr_type, COALESCE(label, ''), style_json, COALESCE(thumbnail, ''), created_at, updated_at
			FROM qr_history
			ORDER BY created_at DESC
			LIMIT $1 OFFSET $2
		`
		rows, err = s.db.QueryContext(ctx, query, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Content, &it.QRType, &it.Label, &it.StyleJSON,
			&it.Thumbnail, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// DeleteItem removes one history record, reporting whether it existed
func (s *Store) DeleteItem(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM qr_history WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete history item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ClearItems removes all history records and returns the removed count
func (s *Store) ClearItems(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM qr_history`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	return res.RowsAffected()
}

// CountItems returns the number of stored history records
func (s *Store) CountItems(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM qr_history`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return count, nil
}
