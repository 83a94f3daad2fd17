package migrations

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Task results used to be kept forever. Add the expiration_date column so
// finished tasks can be garbage collected.
var backgroundTasksAddExpirationDate = Migration{
	Index: 2,
	Name:  "background_tasks_add_expiration_date",
	Run: func(ctx context.Context, tx pgx.Tx) (bool, error) {
		exists, err := columnExists(ctx, tx, "background_tasks", "expiration_date")
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
		_, err = tx.Exec(ctx, `
			ALTER TABLE background_tasks
			ADD COLUMN expiration_date TIMESTAMP`)
		if err != nil {
			return false, err
		}
		return true, nil
	},
}
