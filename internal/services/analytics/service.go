package analytics

import (
	"context"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"impactboard/internal/domain"
	"impactboard/internal/ports"
	settingssvc "impactboard/internal/services/settings"
)

// Service is the decision-support engine's read side: each call resolves
// settings once, loads the working set, and computes from those explicit
// inputs.
type Service struct {
	reads    ports.ReadRepository
	writes   ports.WriteRepository
	settings *settingssvc.Service
	log      *logrus.Logger
	now      func() time.Time
}

func New(reads ports.ReadRepository, writes ports.WriteRepository, settings *settingssvc.Service, log *logrus.Logger) *Service {
	return &Service{reads: reads, writes: writes, settings: settings, log: log, now: time.Now}
}

var _ ports.Analytics = (*Service)(nil)

func (s *Service) ChannelScores(ctx context.Context, projectID, domainFilter string) (domain.ChannelAnalytics, error) {
	cfg, err := s.settings.Resolved(ctx, projectID)
	if err != nil {
		return domain.ChannelAnalytics{}, err
	}
	ws, err := Load(ctx, s.reads, projectID)
	if err != nil {
		return domain.ChannelAnalytics{}, err
	}
	out := domain.ChannelAnalytics{
		Channels: RankChannels(AggregateChannels(ws, cfg, domainFilter)),
	}
	if lag, ok := MedianUptakeLag(ws); ok {
		out.MedianUptakeLagDays = &lag
	}
	return out, nil
}

// ObjectiveHealth recomputes every objective's status and refreshes the
// persisted cache. A failed cache write degrades the cache, not the view, so
// it is logged and the computed result still returned.
func (s *Service) ObjectiveHealth(ctx context.Context, projectID string) ([]domain.ObjectiveHealth, error) {
	cfg, err := s.settings.Resolved(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ws, err := Load(ctx, s.reads, projectID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]domain.ObjectiveHealth, 0, len(ws.Objectives))
	for _, o := range ws.Objectives {
		h := ClassifyObjective(o, ws, cfg, now)
		out = append(out, h)
		// Warnings can change while the status stays put, so both are
		// compared against the cache.
		if h.Status == o.Status && slices.Equal(h.Warnings, o.Warnings) {
			continue
		}
		if err := s.writes.UpdateObjectiveStatus(ctx, o.ID, h.Status, h.Warnings); err != nil {
			s.log.WithFields(logrus.Fields{"project_id": projectID, "objective_id": o.ID}).
				Warnf("objective status cache write failed: %v", err)
		}
	}
	return out, nil
}

func (s *Service) Flags(ctx context.Context, projectID string) ([]domain.Flag, error) {
	cfg, err := s.settings.Resolved(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ws, err := Load(ctx, s.reads, projectID)
	if err != nil {
		return nil, err
	}
	aggs := AggregateChannels(ws, cfg, "")
	flags := GenerateFlags(ws, aggs, RankChannels(aggs), cfg, s.now())
	overrides, err := s.reads.CurrentOverrides(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return AttachOverrides(flags, overrides), nil
}
