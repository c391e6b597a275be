package overrides

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"impactboard/internal/domain"
	"impactboard/internal/ports"
)

// Service records human decisions against generated flags and compliance
// issues. History is append-only; every write is mirrored into the audit
// trail best-effort.
type Service struct {
	reads  ports.ReadRepository
	writes ports.WriteRepository
	perms  ports.PermissionChecker
	audit  ports.AuditSink
	log    *logrus.Logger
	now    func() time.Time
	newID  func() string
}

func New(reads ports.ReadRepository, writes ports.WriteRepository, perms ports.PermissionChecker, audit ports.AuditSink, log *logrus.Logger) *Service {
	return &Service{
		reads:  reads,
		writes: writes,
		perms:  perms,
		audit:  audit,
		log:    log,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

var _ ports.Overrides = (*Service)(nil)

// Record persists a new override row for the flag identity. The rationale is
// mandatory; a caller without write capability gets a permission error, never
// a silent no-op.
func (s *Service) Record(ctx context.Context, ov domain.FlagOverride, actor string) (domain.FlagOverride, error) {
	if ov.Rationale == "" {
		return domain.FlagOverride{}, domain.ErrValidation
	}
	switch ov.Status {
	case domain.OverrideOpen, domain.OverrideAcknowledged, domain.OverrideNotApplicable,
		domain.OverrideFalsePositive, domain.OverrideResolved:
	default:
		return domain.FlagOverride{}, domain.ErrValidation
	}
	if ov.FlagCode == "" || ov.EntityType == "" || ov.EntityRef == "" {
		return domain.FlagOverride{}, domain.ErrValidation
	}
	ok, err := s.perms.CanMutate(ctx, ov.ProjectID, actor)
	if err != nil {
		return domain.FlagOverride{}, err
	}
	if !ok {
		return domain.FlagOverride{}, domain.ErrPermissionDenied
	}

	before := ""
	current, err := s.reads.CurrentOverrides(ctx, ov.ProjectID)
	if err != nil {
		// Best-effort: the before-state only feeds the audit trail.
		s.log.WithField("project_id", ov.ProjectID).Warnf("override history read failed: %v", err)
	}
	for _, c := range current {
		if c.FlagCode == ov.FlagCode && c.EntityType == ov.EntityType && c.EntityRef == ov.EntityRef {
			before = c.Status
			break
		}
	}

	ov.ID = s.newID()
	ov.CreatedBy = actor
	ov.CreatedAt = s.now()
	if err := s.writes.InsertOverride(ctx, ov); err != nil {
		return domain.FlagOverride{}, err
	}

	ev := domain.AuditEvent{
		ProjectID:  ov.ProjectID,
		Actor:      actor,
		Action:     "flag_override",
		EntityType: ov.EntityType,
		EntityRef:  ov.EntityRef,
		Before:     before,
		After:      ov.Status,
		Rationale:  ov.Rationale,
		OccurredAt: ov.CreatedAt,
	}
	if err := s.audit.Record(ctx, ev); err != nil {
		s.log.WithFields(logrus.Fields{"project_id": ov.ProjectID, "flag_code": ov.FlagCode}).
			Warnf("audit write failed: %v", err)
	}
	return ov, nil
}

// Current returns the most recent override per flag identity.
func (s *Service) Current(ctx context.Context, projectID string) ([]domain.FlagOverride, error) {
	return s.reads.CurrentOverrides(ctx, projectID)
}
