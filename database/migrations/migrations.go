// Package migrations contains the ordered, idempotent schema evolutions
// applied on top of the baseline schema. Every migration checks its own
// precondition and reports whether it actually ran, so re-running the whole
// set is always safe.
package migrations

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration is a single schema evolution step. Indexes are globally unique
// ordinals; migrations are applied in ascending index order, once each.
// Run reports true if it applied the migration and false if the migration
// was already applied or does not apply to this database.
type Migration struct {
	Index int
	Name  string
	Run   func(ctx context.Context, tx pgx.Tx) (bool, error)
}

// All returns every known migration in ascending index order.
func All() []Migration {
	all := []Migration{
		usersUpdateNotNullConstraints,
		backgroundTasksAddExpirationDate,
		dropDefaultPublicPermissions,
		componentsAddAddressCheck,
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Index < all[j].Index
	})
	return all
}

// Apply runs all migrations newer than the recorded migration index, each in
// its own transaction.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	current, err := currentIndex(ctx, pool)
	if err != nil {
		return err
	}
	for _, migration := range All() {
		if migration.Index <= current {
			continue
		}
		if err := applyOne(ctx, pool, migration); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(ctx context.Context, pool *pgxpool.Pool, migration Migration) (err error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx for migration %d: %w", migration.Index, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Printf("migration %d rollback failed: %v", migration.Index, rbErr)
			}
		}
	}()

	applied, err := migration.Run(ctx, tx)
	if err != nil {
		return fmt.Errorf("migration %d (%s): %w", migration.Index, migration.Name, err)
	}
	if _, err = tx.Exec(ctx, `UPDATE migration_index SET migration_index = $1`, migration.Index); err != nil {
		return fmt.Errorf("record migration index %d: %w", migration.Index, err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration %d: %w", migration.Index, err)
	}
	if applied {
		log.Printf("applied migration %d (%s)", migration.Index, migration.Name)
	} else {
		log.Printf("skipped migration %d (%s)", migration.Index, migration.Name)
	}
	return nil
}

func currentIndex(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var index int
	err := pool.QueryRow(ctx, `SELECT migration_index FROM migration_index`).Scan(&index)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, err := pool.Exec(ctx, `INSERT INTO migration_index (migration_index) VALUES (-1)`); err != nil {
			return 0, fmt.Errorf("initialize migration index: %w", err)
		}
		return -1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read migration index: %w", err)
	}
	return index, nil
}

// tableExists checks information_schema for a table.
func tableExists(ctx context.Context, tx pgx.Tx, name string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_name = $1
		)`, name).Scan(&exists)
	return exists, err
}

// columnExists checks information_schema for a table column.
func columnExists(ctx context.Context, tx pgx.Tx, table, column string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.columns
			WHERE table_name = $1 AND column_name = $2
		)`, table, column).Scan(&exists)
	return exists, err
}

// constraintExists checks pg_catalog for a named constraint.
func constraintExists(ctx context.Context, tx pgx.Tx, name string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM pg_catalog.pg_constraint
			WHERE conname = $1
		)`, name).Scan(&exists)
	return exists, err
}
