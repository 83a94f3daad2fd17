package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Initialize creates all tables that do not exist yet. Schema evolutions on
// top of this baseline are handled by the migrations package.
func (db *Database) Initialize(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Reset drops and recreates the database, for dev and test setups only. The
// management DSN must point at a maintenance database on the same server.
func Reset(ctx context.Context, managementDSN, dsn, name string) error {
	managementPool, err := pgxpool.New(ctx, managementDSN)
	if err != nil {
		return fmt.Errorf("connect to management database: %w", err)
	}
	defer managementPool.Close()

	if _, err := managementPool.Exec(ctx, "DROP DATABASE IF EXISTS "+name); err != nil {
		return fmt.Errorf("drop database %s: %w", name, err)
	}
	if _, err := managementPool.Exec(ctx, "CREATE DATABASE "+name); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}

	db := NewDatabase(dsn)
	if err := db.Connect(ctx); err != nil {
		return err
	}
	defer db.Close()
	return db.Initialize(ctx)
}
