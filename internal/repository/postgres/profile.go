package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/ignite/graphmail/internal/service/profile"
)

// ProfileRepo implements profile.Repository against PostgreSQL. Settings are
// stored one row per key in sender_profile_settings.
type ProfileRepo struct{ db *sql.DB }

// NewProfileRepo creates a Postgres-backed profile repository.
func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

var _ profile.Repository = (*ProfileRepo)(nil)

func (r *ProfileRepo) Settings(ctx context.Context, name string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.key, s.value
		FROM sender_profiles p
		LEFT JOIN sender_profile_settings s ON s.profile_name = p.name
		WHERE p.name = $1
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query profile settings: %w", err)
	}
	defer rows.Close()

	var found bool
	settings := make(map[string]string)
	for rows.Next() {
		found = true
		var key, value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan profile setting: %w", err)
		}
		if key.Valid {
			settings[key.String] = value.String
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile settings: %w", err)
	}
	if !found {
		return nil, profile.ErrNotFound
	}
	return settings, nil
}

func (r *ProfileRepo) SaveSettings(ctx context.Context, name string, settings map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sender_profiles (name, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET updated_at = NOW()
	`, name); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	if err := upsertSettings(ctx, tx, name, settings); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *ProfileRepo) CreateIfAbsent(ctx context.Context, name string, settings map[string]string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO sender_profiles (name, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (name) DO NOTHING
	`, name)
	if err != nil {
		return false, fmt.Errorf("insert profile: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, nil
	}
	if err := upsertSettings(ctx, tx, name, settings); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func (r *ProfileRepo) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM sender_profiles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan profile name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// upsertSettings writes keys in sorted order so concurrent writers take row
// locks in the same sequence.
func upsertSettings(ctx context.Context, tx *sql.Tx, name string, settings map[string]string) error {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sender_profile_settings (profile_name, key, value, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (profile_name, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		`, name, k, settings[k]); err != nil {
			return fmt.Errorf("upsert setting %s: %w", k, err)
		}
	}
	return nil
}
