package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"impactboard/internal/domain"
)

// WriteRepository implementation. Each method is a single atomic write,
// independently safe to retry.

func (db *DB) UpdateObjectiveStatus(ctx context.Context, objectiveID, status string, warnings []string) error {
	w, err := json.Marshal(warnings)
	if err != nil {
		return err
	}
	_, err = db.Pool.Exec(ctx, `
		UPDATE objectives SET status = $2, warnings = $3, status_updated_at = now() WHERE id = $1
	`, objectiveID, status, w)
	return err
}

// InsertComplianceCheck stores a snapshot and its issue rows in one
// transaction; the freshly inserted row becomes the current snapshot by
// virtue of its ran_at timestamp (last write wins, see compliance service).
func (db *DB) InsertComplianceCheck(ctx context.Context, check domain.ComplianceCheck) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `
		INSERT INTO compliance_checks (id, project_id, ran_at, ran_by, status, issue_count)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, check.ID, check.ProjectID, check.RanAt, check.RanBy, check.Status, check.IssueCount); err != nil {
		return err
	}
	for i, is := range check.Issues {
		if _, err = tx.Exec(ctx, `
			INSERT INTO compliance_issues
				(id, check_id, position, issue_id, rule_id, rule_code, severity,
				 description, status, affected_entity_type, affected_entity_id, remediation)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, uuid.NewString(), check.ID, i, is.ID, is.RuleRef, is.RuleCode, is.Severity,
			is.Description, is.Status, is.AffectedEntityType, is.AffectedEntityRef, is.Remediation); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) UpdateIssueStatus(ctx context.Context, projectID, issueID, status string) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE compliance_issues SET status = $3
		WHERE issue_id = $2 AND check_id = (
			SELECT id FROM compliance_checks WHERE project_id = $1 ORDER BY ran_at DESC LIMIT 1
		)
	`, projectID, issueID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (db *DB) InsertOverride(ctx context.Context, ov domain.FlagOverride) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO flag_overrides
			(id, project_id, flag_code, entity_type, entity_id, status, rationale, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, ov.ID, ov.ProjectID, ov.FlagCode, ov.EntityType, ov.EntityRef, ov.Status, ov.Rationale, ov.CreatedBy, ov.CreatedAt)
	return err
}

func (db *DB) SaveSettings(ctx context.Context, projectID string, raw map[string]any) error {
	payload, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO project_settings (project_id, settings, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (project_id) DO UPDATE SET settings = EXCLUDED.settings, updated_at = now()
	`, projectID, payload)
	return err
}

func (db *DB) InsertAuditEvent(ctx context.Context, ev domain.AuditEvent) error {
	id := ev.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO audit_log
			(id, project_id, actor, action, entity_type, entity_id, before_state, after_state, rationale, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, id, ev.ProjectID, ev.Actor, ev.Action, ev.EntityType, ev.EntityRef, ev.Before, ev.After, ev.Rationale, ev.OccurredAt)
	return err
}

// Record lets the database double as the engine's audit sink.
func (db *DB) Record(ctx context.Context, ev domain.AuditEvent) error {
	return db.InsertAuditEvent(ctx, ev)
}
