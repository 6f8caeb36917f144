package margin

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresRepository stores margin policy settings in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const settingColumns = `key, value::text, category, description, is_active, updated_by, updated_at`

// Get fetches one setting by key.
func (r *PostgresRepository) Get(ctx context.Context, key string) (Setting, bool, error) {
	row := r.db.QueryRow(ctx, `SELECT `+settingColumns+` FROM settings WHERE key = $1`, key)
	setting, err := scanSetting(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Setting{}, false, nil
		}
		return Setting{}, false, err
	}
	return setting, true, nil
}

// GetAll lists every profit-margin setting.
func (r *PostgresRepository) GetAll(ctx context.Context) ([]Setting, error) {
	rows, err := r.db.Query(ctx, `SELECT `+settingColumns+` FROM settings WHERE category = 'profit_margin' ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		setting, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		settings = append(settings, setting)
	}
	return settings, rows.Err()
}

// UpsertAll writes the batch inside one database transaction so a failure
// midway leaves no partial update behind.
func (r *PostgresRepository) UpsertAll(ctx context.Context, settings []Setting) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	for _, setting := range settings {
		if _, err := tx.Exec(ctx, `INSERT INTO settings (key, value, category, description, is_active, updated_by, updated_at)
            VALUES ($1, $2::numeric, $3, $4, $5, $6, $7)
            ON CONFLICT (key) DO UPDATE SET
                value = EXCLUDED.value,
                description = EXCLUDED.description,
                is_active = EXCLUDED.is_active,
                updated_by = EXCLUDED.updated_by,
                updated_at = EXCLUDED.updated_at`,
			setting.Key, setting.Value.String(), setting.Category, setting.Description,
			setting.IsActive, setting.UpdatedBy, setting.UpdatedAt.UTC()); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSetting(row rowScanner) (Setting, error) {
	var setting Setting
	var value string
	if err := row.Scan(&setting.Key, &value, &setting.Category, &setting.Description,
		&setting.IsActive, &setting.UpdatedBy, &setting.UpdatedAt); err != nil {
		return Setting{}, err
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return Setting{}, err
	}
	setting.Value = parsed
	setting.UpdatedAt = setting.UpdatedAt.UTC()
	return setting, nil
}
