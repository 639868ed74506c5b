package store

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const kvTable = "kv_entries"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type PostgresKV struct {
	db *pgxpool.Pool
}

func NewPostgresKV(db *pgxpool.Pool) *PostgresKV {
	return &PostgresKV{db: db}
}

func (s *PostgresKV) Get(ctx context.Context, key string) (string, error) {
	query, args, err := psql.
		Select("value").
		From(kvTable).
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build kv select: %w", err)
	}

	var value string
	if err := s.db.QueryRow(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (s *PostgresKV) Set(ctx context.Context, key, value string) error {
	query, args, err := psql.
		Insert(kvTable).
		Columns("key", "value", "updated_at").
		Values(key, value, sq.Expr("NOW()")).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()").
		ToSql()
	if err != nil {
		return fmt.Errorf("build kv upsert: %w", err)
	}

	_, err = s.db.Exec(ctx, query, args...)
	return err
}

func (s *PostgresKV) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
