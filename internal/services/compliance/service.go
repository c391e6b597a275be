package compliance

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"impactboard/internal/domain"
	"impactboard/internal/ports"
	"impactboard/internal/services/analytics"
	settingssvc "impactboard/internal/services/settings"
)

// Severity weights for the run status threshold: passed with zero issues,
// warning while the weighted issue score stays at or under the configured
// threshold, failed beyond it.
var severityWeights = map[string]int{
	"high":   3,
	"medium": 2,
	"low":    1,
}

// Service runs compliance checks, persists versioned snapshots and computes
// run-over-run deltas. Concurrent runs for one project are not serialized;
// the last insert establishes the new current snapshot, which is an accepted
// limitation for a human-triggered, low-frequency action.
type Service struct {
	reads    ports.ReadRepository
	writes   ports.WriteRepository
	perms    ports.PermissionChecker
	audit    ports.AuditSink
	settings *settingssvc.Service
	log      *logrus.Logger
	now      func() time.Time
	newID    func() string
}

func New(reads ports.ReadRepository, writes ports.WriteRepository, perms ports.PermissionChecker, audit ports.AuditSink, settings *settingssvc.Service, log *logrus.Logger) *Service {
	return &Service{
		reads:    reads,
		writes:   writes,
		perms:    perms,
		audit:    audit,
		settings: settings,
		log:      log,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

var _ ports.Compliance = (*Service)(nil)

// RunCheck evaluates every applicable rule against current project data,
// persists the resulting snapshot and returns it with the delta against the
// prior snapshot.
func (s *Service) RunCheck(ctx context.Context, projectID, actor string) (domain.ComplianceCheck, domain.CheckDiff, error) {
	ok, err := s.perms.CanMutate(ctx, projectID, actor)
	if err != nil {
		return domain.ComplianceCheck{}, domain.CheckDiff{}, err
	}
	if !ok {
		return domain.ComplianceCheck{}, domain.CheckDiff{}, domain.ErrPermissionDenied
	}

	cfg, err := s.settings.Resolved(ctx, projectID)
	if err != nil {
		return domain.ComplianceCheck{}, domain.CheckDiff{}, err
	}
	ws, err := analytics.Load(ctx, s.reads, projectID)
	if err != nil {
		return domain.ComplianceCheck{}, domain.CheckDiff{}, err
	}
	profile, err := s.reads.ProgrammeProfile(ctx, projectID)
	if err != nil {
		return domain.ComplianceCheck{}, domain.CheckDiff{}, err
	}
	rules, err := s.reads.ComplianceRules(ctx, profile)
	if err != nil {
		return domain.ComplianceCheck{}, domain.CheckDiff{}, err
	}

	now := s.now()
	var issues []domain.ComplianceIssue
	for _, rule := range rules {
		eval, ok := evaluators[rule.Code]
		if !ok {
			// Catalog drift should not abort diagnostics.
			s.log.WithField("rule_code", rule.Code).Warn("no evaluator registered for rule, skipping")
			continue
		}
		issues = append(issues, eval(ws, cfg, now, rule)...)
	}

	check := domain.ComplianceCheck{
		ID:         s.newID(),
		ProjectID:  projectID,
		RanAt:      now,
		RanBy:      actor,
		Status:     runStatus(issues, cfg),
		IssueCount: len(issues),
		Issues:     issues,
	}

	prev, err := s.reads.LatestChecks(ctx, projectID, 1)
	if err != nil {
		return domain.ComplianceCheck{}, domain.CheckDiff{}, err
	}
	if err := s.writes.InsertComplianceCheck(ctx, check); err != nil {
		return domain.ComplianceCheck{}, domain.CheckDiff{}, err
	}

	var prevCheck *domain.ComplianceCheck
	if len(prev) > 0 {
		prevCheck = &prev[0]
	}
	diff := Diff(prevCheck, check)

	s.record(ctx, domain.AuditEvent{
		ProjectID:  projectID,
		Actor:      actor,
		Action:     "compliance_check_run",
		EntityType: "compliance_check",
		EntityRef:  check.ID,
		After:      check.Status,
		OccurredAt: now,
	})
	return check, diff, nil
}

func runStatus(issues []domain.ComplianceIssue, cfg domain.Settings) string {
	if len(issues) == 0 {
		return "passed"
	}
	weighted := 0
	for _, is := range issues {
		w, ok := severityWeights[is.Severity]
		if !ok {
			w = 1
		}
		weighted += w
	}
	if weighted <= cfg.ComplianceWarningThreshold {
		return "warning"
	}
	return "failed"
}

// Diff computes the delta between consecutive snapshots as a pure set
// operation. With no previous snapshot every current issue is new. Outputs
// are sorted by issue id.
func Diff(prev *domain.ComplianceCheck, cur domain.ComplianceCheck) domain.CheckDiff {
	curSev := make(map[string]string, len(cur.Issues))
	for _, is := range cur.Issues {
		curSev[is.ID] = is.Severity
	}

	d := domain.CheckDiff{
		NewIssues:       []string{},
		ResolvedIssues:  []string{},
		SeverityChanges: []domain.SeverityChange{},
	}
	if prev == nil {
		for id := range curSev {
			d.NewIssues = append(d.NewIssues, id)
		}
		sort.Strings(d.NewIssues)
		return d
	}

	prevSev := make(map[string]string, len(prev.Issues))
	for _, is := range prev.Issues {
		prevSev[is.ID] = is.Severity
	}

	for id, sev := range curSev {
		old, existed := prevSev[id]
		if !existed {
			d.NewIssues = append(d.NewIssues, id)
		} else if old != sev {
			d.SeverityChanges = append(d.SeverityChanges, domain.SeverityChange{IssueID: id, Previous: old, Current: sev})
		}
	}
	for id := range prevSev {
		if _, still := curSev[id]; !still {
			d.ResolvedIssues = append(d.ResolvedIssues, id)
		}
	}
	sort.Strings(d.NewIssues)
	sort.Strings(d.ResolvedIssues)
	sort.Slice(d.SeverityChanges, func(i, j int) bool { return d.SeverityChanges[i].IssueID < d.SeverityChanges[j].IssueID })
	return d
}

// Latest returns the current snapshot, its diff against the predecessor and
// whether the check has gone stale (strictly older than the configured
// threshold).
func (s *Service) Latest(ctx context.Context, projectID string) (domain.ComplianceCheck, domain.CheckDiff, bool, bool, error) {
	cfg, err := s.settings.Resolved(ctx, projectID)
	if err != nil {
		return domain.ComplianceCheck{}, domain.CheckDiff{}, false, false, err
	}
	checks, err := s.reads.LatestChecks(ctx, projectID, 2)
	if err != nil {
		return domain.ComplianceCheck{}, domain.CheckDiff{}, false, false, err
	}
	if len(checks) == 0 {
		return domain.ComplianceCheck{}, domain.CheckDiff{}, false, false, nil
	}
	cur := checks[0]
	var prev *domain.ComplianceCheck
	if len(checks) > 1 {
		prev = &checks[1]
	}
	stale := s.now().Sub(cur.RanAt) > time.Duration(cfg.StaleCheckDays)*24*time.Hour
	return cur, Diff(prev, cur), stale, true, nil
}

// UpdateIssueStatus moves an issue through its workflow. Transitions are
// free-form but must be attributable: actor and a non-empty rationale are
// required, and the change is mirrored into the audit trail.
func (s *Service) UpdateIssueStatus(ctx context.Context, projectID, issueID, status, actor, rationale string) error {
	switch status {
	case domain.IssueOpen, domain.IssueAcknowledged, domain.IssueInProgress,
		domain.IssueResolved, domain.IssueNotApplicable, domain.IssueFalsePositive:
	default:
		return domain.ErrValidation
	}
	if rationale == "" {
		return domain.ErrValidation
	}
	ok, err := s.perms.CanMutate(ctx, projectID, actor)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrPermissionDenied
	}
	if err := s.writes.UpdateIssueStatus(ctx, projectID, issueID, status); err != nil {
		return err
	}
	s.record(ctx, domain.AuditEvent{
		ProjectID:  projectID,
		Actor:      actor,
		Action:     "issue_status_change",
		EntityType: "compliance_issue",
		EntityRef:  issueID,
		After:      status,
		Rationale:  rationale,
		OccurredAt: s.now(),
	})
	return nil
}

// record writes to the audit sink best-effort: a lost audit entry is logged,
// never escalated to the caller.
func (s *Service) record(ctx context.Context, ev domain.AuditEvent) {
	if err := s.audit.Record(ctx, ev); err != nil {
		s.log.WithFields(logrus.Fields{"project_id": ev.ProjectID, "action": ev.Action}).
			Warnf("audit write failed: %v", err)
	}
}
