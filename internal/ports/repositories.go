package ports

import (
	"context"

	"impactboard/internal/domain"
)

// ReadRepository exposes the project working set. Collections come back in
// stable insertion order; the engine never writes through this interface.
type ReadRepository interface {
	Activities(ctx context.Context, projectID string) ([]domain.Activity, error)
	Channels(ctx context.Context, projectID string) ([]domain.Channel, error)
	Indicators(ctx context.Context, projectID string) ([]domain.Indicator, error)
	IndicatorValues(ctx context.Context, projectID string) ([]domain.IndicatorValue, error)
	EvidenceItems(ctx context.Context, projectID string) ([]domain.EvidenceItem, error)
	EvidenceLinks(ctx context.Context, projectID string) ([]domain.EvidenceLink, error)
	Objectives(ctx context.Context, projectID string) ([]domain.Objective, error)
	UptakeOpportunities(ctx context.Context, projectID string) ([]domain.UptakeOpportunity, error)
	Agreements(ctx context.Context, projectID string) ([]domain.Agreement, error)
	StakeholderGroups(ctx context.Context, projectID string) ([]domain.StakeholderGroup, error)

	// ComplianceRules returns rules applicable to a programme profile
	// (profile match or "all").
	ComplianceRules(ctx context.Context, programmeProfile string) ([]domain.ComplianceRule, error)
	ProgrammeProfile(ctx context.Context, projectID string) (string, error)

	// RawSettings is the untrusted per-project settings bundle; absent keys
	// and malformed values are the resolver's problem, not the caller's.
	RawSettings(ctx context.Context, projectID string) (map[string]any, error)

	// CurrentOverrides returns the most recent override per
	// (flag_code, entity_type, entity_id) key.
	CurrentOverrides(ctx context.Context, projectID string) ([]domain.FlagOverride, error)

	// LatestChecks returns up to n snapshots, newest first.
	LatestChecks(ctx context.Context, projectID string, n int) ([]domain.ComplianceCheck, error)
}

// WriteRepository covers the engine's persistence calls. Each call is a
// single atomic insert/upsert, independently safe to retry.
type WriteRepository interface {
	UpdateObjectiveStatus(ctx context.Context, objectiveID, status string, warnings []string) error
	InsertComplianceCheck(ctx context.Context, check domain.ComplianceCheck) error
	// UpdateIssueStatus mutates an issue's status in the project's current
	// snapshot; snapshot content itself stays immutable.
	UpdateIssueStatus(ctx context.Context, projectID, issueID, status string) error
	InsertOverride(ctx context.Context, ov domain.FlagOverride) error
	SaveSettings(ctx context.Context, projectID string, raw map[string]any) error
	InsertAuditEvent(ctx context.Context, ev domain.AuditEvent) error
}
