package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// CanMutate checks the caller's project membership role. Only elevated roles
// may trigger mutations; an unknown member is simply not permitted, not an
// error.
func (db *DB) CanMutate(ctx context.Context, projectID, actor string) (bool, error) {
	var role string
	err := db.Pool.QueryRow(ctx, `
		SELECT role FROM project_members WHERE project_id = $1 AND user_id = $2
	`, projectID, actor).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch role {
	case "lead", "coordinator", "admin":
		return true, nil
	}
	return false, nil
}
