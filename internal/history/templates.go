package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Template is a saved style preset
type Template struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	StyleJSON string    `json:"style_json"`
	Preview   string    `json:"preview,omitempty"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveTemplate inserts a new template and returns its ID
func (s *Store) SaveTemplate(ctx context.Context, name, styleJSON, preview string) (int64, error) {
	query := `
		INSERT INTO qr_templates (name, style_json, preview)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id
	`
	var id int64
	if err := s.db.QueryRowContext(ctx, query, name, styleJSON, preview).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to save template: %w", err)
	}
	return id, nil
}

// ListTemplates returns all templates, default first then newest first
func (s *Store) ListTemplates(ctx context.Context) ([]Template, error) {
	query := `
		SELECT id, name, style_json, COALESCE(preview, ''), is_default, created_at
		FROM qr_templates
		ORDER BY is_default DESC, created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Name, &t.StyleJSON, &t.Preview, &t.IsDefault, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// GetTemplate returns one template by ID
func (s *Store) GetTemplate(ctx context.Context, id int64) (*Template, error) {
	query := `
		SELECT id, name, style_json, COALESCE(preview, ''), is_default, created_at
		FROM qr_templates
		WHERE id = $1
	`
	var t Template
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.StyleJSON, &t.Preview, &t.IsDefault, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &t, nil
}

// UpdateTemplate replaces a template's name, style and preview
func (s *Store) UpdateTemplate(ctx context.Context, id int64, name, styleJSON, preview string) error {
	query := `
		UPDATE qr_templates
		SET name = $2, style_json = $3, preview = NULLIF($4, '')
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, id, name, styleJSON, preview)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTemplate removes one template, reporting whether it existed
func (s *Store) DeleteTemplate(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM qr_templates WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete template: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// SetDefaultTemplate marks one template as the default. At most one template
// is default at a time.
func (s *Store) SetDefaultTemplate(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE qr_templates SET is_default = FALSE WHERE is_default`); err != nil {
		return fmt.Errorf("failed to clear default template: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE qr_templates SET is_default = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to set default template: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
