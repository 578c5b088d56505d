package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type builder interface {
	ToSql() (string, []any, error)
}

// DBClient wraps the sqlx handle together with a dollar-placeholder statement
// builder. All stores share one client.
type DBClient struct {
	*sqlx.DB
	builder sq.StatementBuilderType
}

func NewDBClient(dsn string) (*DBClient, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &DBClient{
		DB:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

func (db *DBClient) Builder() sq.StatementBuilderType {
	return db.builder
}

func (db *DBClient) DoQuery(ctx context.Context, dest any, b builder) error {
	sqlString, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sql: %w", err)
	}
	return sqlx.SelectContext(ctx, db, dest, sqlString, args...)
}

func (db *DBClient) GetOne(ctx context.Context, dest any, b builder) error {
	sqlString, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sql: %w", err)
	}
	return sqlx.GetContext(ctx, db, dest, sqlString, args...)
}

func (db *DBClient) ExecBuilder(ctx context.Context, b builder) (sql.Result, error) {
	sqlString, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sql: %w", err)
	}
	return db.ExecContext(ctx, sqlString, args...)
}
