// Package database implements the Postgres persistence layer. Each table
// store is a thin raw-SQL wrapper satisfying the interface of the logic
// package that consumes it.
package database

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Database struct {
	dsn  string
	Pool *pgxpool.Pool
}

func NewDatabase(dsn string) *Database {
	return &Database{dsn: dsn}
}

// Connect opens the pgx connection pool and verifies the database is
// reachable.
func (db *Database) Connect(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, db.dsn)
	if err != nil {
		return fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	db.Pool = pool
	return nil
}

func (db *Database) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// rollbackOrCommit finishes a transaction based on the error the caller is
// about to return, replacing it with the commit error if committing fails.
func rollbackOrCommit(ctx context.Context, tx pgx.Tx, err *error) {
	if *err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			log.Printf("transaction rollback failed: %v (original error: %v)", rbErr, *err)
		}
		return
	}
	if cmErr := tx.Commit(ctx); cmErr != nil {
		*err = fmt.Errorf("commit failed: %w", cmErr)
	}
}
