package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"impactboard/internal/domain"
)

// ReadRepository implementation. Every query orders by id (or recency where
// the port says so) to keep collection order stable for ranking determinism.

func (db *DB) Activities(ctx context.Context, projectID string) ([]domain.Activity, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, project_id, title, domain, status, channel_id,
		       effort_hours, budget_estimate, reach, survey_responses,
		       qualitative_outcomes, public_facing, performed_at, created_at
		FROM activities WHERE project_id = $1 ORDER BY id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Title, &a.Domain, &a.Status, &a.ChannelRef,
			&a.EffortHours, &a.BudgetEstimate, &a.Reach, &a.SurveyResponses,
			&a.QualitativeOutcomes, &a.PublicFacing, &a.PerformedAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (db *DB) Channels(ctx context.Context, projectID string) ([]domain.Channel, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, name, type FROM channels WHERE project_id = $1 ORDER BY id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Channel
	for rows.Next() {
		var c domain.Channel
		if err := rows.Scan(&c.ID, &c.Name, &c.Type); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (db *DB) Indicators(ctx context.Context, projectID string) ([]domain.Indicator, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, project_id, objective_id, name, unit, domain, baseline, target, locked
		FROM indicators WHERE project_id = $1 ORDER BY id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Indicator
	for rows.Next() {
		var ind domain.Indicator
		if err := rows.Scan(&ind.ID, &ind.ProjectID, &ind.ObjectiveRef, &ind.Name, &ind.Unit,
			&ind.Domain, &ind.Baseline, &ind.Target, &ind.Locked); err != nil {
			return nil, err
		}
		out = append(out, ind)
	}
	return out, rows.Err()
}

func (db *DB) IndicatorValues(ctx context.Context, projectID string) ([]domain.IndicatorValue, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT v.id, v.indicator_id, v.period, v.value, v.recorded_at
		FROM indicator_values v
		JOIN indicators i ON i.id = v.indicator_id
		WHERE i.project_id = $1 ORDER BY v.id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.IndicatorValue
	for rows.Next() {
		var v domain.IndicatorValue
		if err := rows.Scan(&v.ID, &v.IndicatorRef, &v.Period, &v.Value, &v.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (db *DB) EvidenceItems(ctx context.Context, projectID string) ([]domain.EvidenceItem, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, project_id, type, date, source, context
		FROM evidence_items WHERE project_id = $1 ORDER BY id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.EvidenceItem
	for rows.Next() {
		var e domain.EvidenceItem
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Type, &e.Date, &e.Source, &e.Context); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (db *DB) EvidenceLinks(ctx context.Context, projectID string) ([]domain.EvidenceLink, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT l.id, l.evidence_id, l.entity_type, l.entity_id
		FROM evidence_links l
		JOIN evidence_items e ON e.id = l.evidence_id
		WHERE e.project_id = $1 ORDER BY l.id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.EvidenceLink
	for rows.Next() {
		var l domain.EvidenceLink
		if err := rows.Scan(&l.ID, &l.EvidenceRef, &l.EntityType, &l.EntityRef); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (db *DB) Objectives(ctx context.Context, projectID string) ([]domain.Objective, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, project_id, title, domain, priority, kpis_linked_count,
		       activities_linked_count, status, warnings, source
		FROM objectives WHERE project_id = $1 ORDER BY id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Objective
	for rows.Next() {
		var o domain.Objective
		var warnings []byte
		if err := rows.Scan(&o.ID, &o.ProjectID, &o.Title, &o.Domain, &o.Priority,
			&o.KPIsLinkedCount, &o.ActivitiesLinkedCount, &o.Status, &warnings, &o.Source); err != nil {
			return nil, err
		}
		// A malformed cached warning set just means the next health pass
		// rewrites it.
		_ = json.Unmarshal(warnings, &o.Warnings)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (db *DB) UptakeOpportunities(ctx context.Context, projectID string) ([]domain.UptakeOpportunity, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, project_id, channel_id, activity_id, stage, created_at, stage_changed_at
		FROM uptake_opportunities WHERE project_id = $1 ORDER BY id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.UptakeOpportunity
	for rows.Next() {
		var u domain.UptakeOpportunity
		if err := rows.Scan(&u.ID, &u.ProjectID, &u.ChannelRef, &u.ActivityRef, &u.Stage,
			&u.CreatedAt, &u.StageChangedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (db *DB) Agreements(ctx context.Context, projectID string) ([]domain.Agreement, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, project_id, channel_id, activity_id, partner, signed_at
		FROM agreements WHERE project_id = $1 ORDER BY id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Agreement
	for rows.Next() {
		var a domain.Agreement
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.ChannelRef, &a.ActivityRef, &a.Partner, &a.SignedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (db *DB) StakeholderGroups(ctx context.Context, projectID string) ([]domain.StakeholderGroup, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, project_id, name, times_targeted, responses
		FROM stakeholder_groups WHERE project_id = $1 ORDER BY id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.StakeholderGroup
	for rows.Next() {
		var g domain.StakeholderGroup
		if err := rows.Scan(&g.ID, &g.ProjectID, &g.Name, &g.TimesTargeted, &g.Responses); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (db *DB) ComplianceRules(ctx context.Context, programmeProfile string) ([]domain.ComplianceRule, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, code, severity, description, applies_to, programme_profile
		FROM compliance_rules
		WHERE programme_profile = $1 OR programme_profile = 'all'
		ORDER BY code
	`, programmeProfile)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ComplianceRule
	for rows.Next() {
		var r domain.ComplianceRule
		if err := rows.Scan(&r.ID, &r.Code, &r.Severity, &r.Description, &r.AppliesTo, &r.ProgrammeProfile); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) ProgrammeProfile(ctx context.Context, projectID string) (string, error) {
	var profile string
	err := db.Pool.QueryRow(ctx, `SELECT programme_profile FROM projects WHERE id = $1`, projectID).Scan(&profile)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	return profile, err
}

func (db *DB) RawSettings(ctx context.Context, projectID string) (map[string]any, error) {
	var raw []byte
	err := db.Pool.QueryRow(ctx, `SELECT settings FROM project_settings WHERE project_id = $1`, projectID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		// Malformed stored settings degrade to defaults via the resolver.
		return map[string]any{}, nil
	}
	return out, nil
}

func (db *DB) CurrentOverrides(ctx context.Context, projectID string) ([]domain.FlagOverride, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT DISTINCT ON (flag_code, entity_type, entity_id)
		       id, project_id, flag_code, entity_type, entity_id, status, rationale, created_by, created_at
		FROM flag_overrides
		WHERE project_id = $1
		ORDER BY flag_code, entity_type, entity_id, created_at DESC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.FlagOverride
	for rows.Next() {
		var ov domain.FlagOverride
		if err := rows.Scan(&ov.ID, &ov.ProjectID, &ov.FlagCode, &ov.EntityType, &ov.EntityRef,
			&ov.Status, &ov.Rationale, &ov.CreatedBy, &ov.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ov)
	}
	return out, rows.Err()
}

func (db *DB) LatestChecks(ctx context.Context, projectID string, n int) ([]domain.ComplianceCheck, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, project_id, ran_at, ran_by, status, issue_count
		FROM compliance_checks
		WHERE project_id = $1
		ORDER BY ran_at DESC
		LIMIT $2
	`, projectID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ComplianceCheck
	for rows.Next() {
		var c domain.ComplianceCheck
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.RanAt, &c.RanBy, &c.Status, &c.IssueCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		issues, err := db.checkIssues(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Issues = issues
	}
	return out, nil
}

func (db *DB) checkIssues(ctx context.Context, checkID string) ([]domain.ComplianceIssue, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT issue_id, rule_id, rule_code, severity, description, status,
		       affected_entity_type, affected_entity_id, remediation
		FROM compliance_issues
		WHERE check_id = $1
		ORDER BY position
	`, checkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ComplianceIssue
	for rows.Next() {
		var is domain.ComplianceIssue
		if err := rows.Scan(&is.ID, &is.RuleRef, &is.RuleCode, &is.Severity, &is.Description,
			&is.Status, &is.AffectedEntityType, &is.AffectedEntityRef, &is.Remediation); err != nil {
			return nil, err
		}
		out = append(out, is)
	}
	return out, rows.Err()
}
