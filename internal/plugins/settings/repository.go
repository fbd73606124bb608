package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SettingRepository defines data access for system_settings.
type SettingRepository interface {
	// Get returns a setting row, or nil if the key does not exist.
	Get(ctx context.Context, key string) (*Setting, error)

	// GetAll returns every setting row.
	GetAll(ctx context.Context) ([]Setting, error)

	// Upsert inserts or replaces a setting value.
	Upsert(ctx context.Context, key, value string, at time.Time) error
}

type settingRepository struct {
	db *sql.DB
}

// NewSettingRepository creates a setting repository backed by the given DB pool.
func NewSettingRepository(db *sql.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) Get(ctx context.Context, key string) (*Setting, error) {
	query := `SELECT setting_key, setting_value, description, updated_at
	          FROM system_settings WHERE setting_key = ?`

	s := &Setting{}
	var description sql.NullString
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&s.Key, &s.Value, &description, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying setting: %w", err)
	}
	s.Description = description.String
	return s, nil
}

func (r *settingRepository) GetAll(ctx context.Context) ([]Setting, error) {
	query := `SELECT setting_key, setting_value, description, updated_at
	          FROM system_settings ORDER BY setting_key`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var s Setting
		var description sql.NullString
		if err := rows.Scan(&s.Key, &s.Value, &description, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning setting row: %w", err)
		}
		s.Description = description.String
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *settingRepository) Upsert(ctx context.Context, key, value string, at time.Time) error {
	query := `INSERT INTO system_settings (setting_key, setting_value, updated_at)
	          VALUES (?, ?, ?)
	          ON DUPLICATE KEY UPDATE setting_value = VALUES(setting_value),
	                                  updated_at = VALUES(updated_at)`

	if _, err := r.db.ExecContext(ctx, query, key, value, at); err != nil {
		return fmt.Errorf("upserting setting: %w", err)
	}
	return nil
}
