package migrations

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Component addresses must be HTTP(S) URLs. Reject anything else at the
// database level as well.
var componentsAddAddressCheck = Migration{
	Index: 4,
	Name:  "components_add_address_check",
	Run: func(ctx context.Context, tx pgx.Tx) (bool, error) {
		exists, err := constraintExists(ctx, tx, "components_address_check")
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
		_, err = tx.Exec(ctx, `
			ALTER TABLE components
			ADD CONSTRAINT components_address_check CHECK (
				address IS NULL OR address LIKE 'http%'
			)`)
		if err != nil {
			return false, err
		}
		return true, nil
	},
}
