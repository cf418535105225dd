package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// PostgresKV stores values in the credential_kv table, one row per
// (namespace, key). The table is created by persistence.RunMigrations.
type PostgresKV struct {
	db        *sql.DB
	namespace string
}

func NewPostgresKV(db *sql.DB, namespace string) *PostgresKV {
	return &PostgresKV{db: db, namespace: namespace}
}

func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const query = `SELECT value FROM credential_kv WHERE namespace = $1 AND key = $2`

	var value []byte
	err := p.db.QueryRowContext(ctx, query, p.namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (p *PostgresKV) Set(ctx context.Context, key string, value []byte) error {
	const query = `
        INSERT INTO credential_kv (namespace, key, value, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	_, err := p.db.ExecContext(ctx, query, p.namespace, key, value)
	return err
}

// Delete removes all keys with a single statement.
func (p *PostgresKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]any, 0, len(keys)+1)
	args = append(args, p.namespace)
	placeholders := make([]string, len(keys))
	for i, k := range keys {
		args = append(args, k)
		placeholders[i] = fmt.Sprintf("$%d", i+2)
	}
	query := `DELETE FROM credential_kv WHERE namespace = $1 AND key IN (` + strings.Join(placeholders, ", ") + `)`

	_, err := p.db.ExecContext(ctx, query, args...)
	return err
}

func (p *PostgresKV) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
