package overrides

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impactboard/internal/domain"
)

type fakeRepo struct {
	current    []domain.FlagOverride
	currentErr error
}

func (f *fakeRepo) Activities(context.Context, string) ([]domain.Activity, error)       { return nil, nil }
func (f *fakeRepo) Channels(context.Context, string) ([]domain.Channel, error)          { return nil, nil }
func (f *fakeRepo) Indicators(context.Context, string) ([]domain.Indicator, error)      { return nil, nil }
func (f *fakeRepo) IndicatorValues(context.Context, string) ([]domain.IndicatorValue, error) {
	return nil, nil
}
func (f *fakeRepo) EvidenceItems(context.Context, string) ([]domain.EvidenceItem, error) {
	return nil, nil
}
func (f *fakeRepo) EvidenceLinks(context.Context, string) ([]domain.EvidenceLink, error) {
	return nil, nil
}
func (f *fakeRepo) Objectives(context.Context, string) ([]domain.Objective, error) { return nil, nil }
func (f *fakeRepo) UptakeOpportunities(context.Context, string) ([]domain.UptakeOpportunity, error) {
	return nil, nil
}
func (f *fakeRepo) Agreements(context.Context, string) ([]domain.Agreement, error) { return nil, nil }
func (f *fakeRepo) StakeholderGroups(context.Context, string) ([]domain.StakeholderGroup, error) {
	return nil, nil
}
func (f *fakeRepo) ComplianceRules(context.Context, string) ([]domain.ComplianceRule, error) {
	return nil, nil
}
func (f *fakeRepo) ProgrammeProfile(context.Context, string) (string, error) { return "all", nil }
func (f *fakeRepo) RawSettings(context.Context, string) (map[string]any, error) {
	return map[string]any{}, nil
}
func (f *fakeRepo) CurrentOverrides(context.Context, string) ([]domain.FlagOverride, error) {
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	return f.current, nil
}
func (f *fakeRepo) LatestChecks(context.Context, string, int) ([]domain.ComplianceCheck, error) {
	return nil, nil
}

type fakeWriter struct {
	overrides []domain.FlagOverride
	err       error
}

func (f *fakeWriter) UpdateObjectiveStatus(context.Context, string, string, []string) error {
	return nil
}
func (f *fakeWriter) InsertComplianceCheck(context.Context, domain.ComplianceCheck) error {
	return nil
}
func (f *fakeWriter) UpdateIssueStatus(context.Context, string, string, string) error { return nil }
func (f *fakeWriter) InsertOverride(_ context.Context, ov domain.FlagOverride) error {
	if f.err != nil {
		return f.err
	}
	f.overrides = append(f.overrides, ov)
	return nil
}
func (f *fakeWriter) SaveSettings(context.Context, string, map[string]any) error { return nil }
func (f *fakeWriter) InsertAuditEvent(context.Context, domain.AuditEvent) error  { return nil }

type fakePerms struct{ allow bool }

func (f *fakePerms) CanMutate(context.Context, string, string) (bool, error) { return f.allow, nil }

type fakeAudit struct {
	events []domain.AuditEvent
	err    error
}

func (f *fakeAudit) Record(_ context.Context, ev domain.AuditEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func newTestService(repo *fakeRepo, writer *fakeWriter, perms *fakePerms, audit *fakeAudit) *Service {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	svc := New(repo, writer, perms, audit, log)
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
	svc.newID = func() string { return "ov-test" }
	return svc
}

func validOverride() domain.FlagOverride {
	return domain.FlagOverride{
		ProjectID:  "p1",
		FlagCode:   "inefficient_channel",
		EntityType: "channel",
		EntityRef:  "ch1",
		Status:     domain.OverrideAcknowledged,
		Rationale:  "channel kept for contractual visibility duties",
	}
}

func TestRecord_RequiresRationale(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &fakeWriter{}, &fakePerms{allow: true}, &fakeAudit{})
	ov := validOverride()
	ov.Rationale = ""
	_, err := svc.Record(context.Background(), ov, "alice")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestRecord_RejectsUnknownStatus(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &fakeWriter{}, &fakePerms{allow: true}, &fakeAudit{})
	ov := validOverride()
	ov.Status = "maybe"
	_, err := svc.Record(context.Background(), ov, "alice")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestRecord_PermissionDeniedIsDistinct(t *testing.T) {
	writer := &fakeWriter{}
	svc := newTestService(&fakeRepo{}, writer, &fakePerms{allow: false}, &fakeAudit{})
	_, err := svc.Record(context.Background(), validOverride(), "mallory")
	assert.True(t, errors.Is(err, domain.ErrPermissionDenied))
	assert.False(t, errors.Is(err, domain.ErrNotFound))
	assert.False(t, errors.Is(err, domain.ErrValidation))
	assert.Empty(t, writer.overrides, "a denied write must not be a silent no-op that persists")
}

func TestRecord_PersistsAndAudits(t *testing.T) {
	repo := &fakeRepo{
		current: []domain.FlagOverride{{
			FlagCode: "inefficient_channel", EntityType: "channel", EntityRef: "ch1",
			Status: domain.OverrideOpen, CreatedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		}},
	}
	writer := &fakeWriter{}
	audit := &fakeAudit{}
	svc := newTestService(repo, writer, &fakePerms{allow: true}, audit)

	saved, err := svc.Record(context.Background(), validOverride(), "alice")
	require.NoError(t, err)

	assert.Equal(t, "ov-test", saved.ID)
	assert.Equal(t, "alice", saved.CreatedBy)
	assert.False(t, saved.CreatedAt.IsZero())
	require.Len(t, writer.overrides, 1)

	require.Len(t, audit.events, 1)
	ev := audit.events[0]
	assert.Equal(t, "flag_override", ev.Action)
	assert.Equal(t, domain.OverrideOpen, ev.Before, "audit carries the before/after diff")
	assert.Equal(t, domain.OverrideAcknowledged, ev.After)
	assert.Equal(t, saved.Rationale, ev.Rationale)
}

func TestRecord_HistoryReadFailureDoesNotFailWrite(t *testing.T) {
	repo := &fakeRepo{currentErr: errors.New("db down")}
	writer := &fakeWriter{}
	audit := &fakeAudit{}
	svc := newTestService(repo, writer, &fakePerms{allow: true}, audit)

	saved, err := svc.Record(context.Background(), validOverride(), "alice")
	require.NoError(t, err)
	assert.Len(t, writer.overrides, 1)

	// The audit entry still lands, with an unknown before-state.
	require.Len(t, audit.events, 1)
	assert.Empty(t, audit.events[0].Before)
	assert.Equal(t, saved.Status, audit.events[0].After)
}

func TestRecord_AuditFailureDoesNotFailWrite(t *testing.T) {
	writer := &fakeWriter{}
	svc := newTestService(&fakeRepo{}, writer, &fakePerms{allow: true}, &fakeAudit{err: errors.New("sink down")})
	_, err := svc.Record(context.Background(), validOverride(), "alice")
	assert.NoError(t, err)
	assert.Len(t, writer.overrides, 1)
}

func TestCurrent_PassesThrough(t *testing.T) {
	repo := &fakeRepo{current: []domain.FlagOverride{{ID: "ov1"}}}
	svc := newTestService(repo, &fakeWriter{}, &fakePerms{allow: true}, &fakeAudit{})
	current, err := svc.Current(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, current, 1)
}
