package ports

import (
	"context"

	"impactboard/internal/domain"
)

// Analytics computes derived views on demand from a point-in-time read.
type Analytics interface {
	ChannelScores(ctx context.Context, projectID, domainFilter string) (domain.ChannelAnalytics, error)
	ObjectiveHealth(ctx context.Context, projectID string) ([]domain.ObjectiveHealth, error)
	Flags(ctx context.Context, projectID string) ([]domain.Flag, error)
}

// Compliance runs checks and serves snapshot history.
type Compliance interface {
	RunCheck(ctx context.Context, projectID, actor string) (domain.ComplianceCheck, domain.CheckDiff, error)
	Latest(ctx context.Context, projectID string) (check domain.ComplianceCheck, diff domain.CheckDiff, stale bool, found bool, err error)
	UpdateIssueStatus(ctx context.Context, projectID, issueID, status, actor, rationale string) error
}

// Overrides records and queries human decisions against flag/issue identities.
type Overrides interface {
	Record(ctx context.Context, ov domain.FlagOverride, actor string) (domain.FlagOverride, error)
	Current(ctx context.Context, projectID string) ([]domain.FlagOverride, error)
}

// AuditSink receives attributable state-change events. Implementations are
// best-effort: callers log failures and move on, they never fail the primary
// operation over a lost audit entry.
type AuditSink interface {
	Record(ctx context.Context, ev domain.AuditEvent) error
}

// PermissionChecker is the external authorization collaborator consulted
// before any mutating operation. Only lead/coordinator/admin roles may write.
type PermissionChecker interface {
	CanMutate(ctx context.Context, projectID, actor string) (bool, error)
}
