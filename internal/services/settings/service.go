package settings

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"impactboard/internal/domain"
	"impactboard/internal/ports"
	"impactboard/internal/workers/debounce"
)

// Service serves resolved settings and coalesces UI edits through a debounce
// before persisting (last write wins, versionless).
type Service struct {
	reads  ports.ReadRepository
	writes ports.WriteRepository
	perms  ports.PermissionChecker
	writer *debounce.Writer
}

func New(reads ports.ReadRepository, writes ports.WriteRepository, perms ports.PermissionChecker, interval time.Duration, log *logrus.Logger) *Service {
	s := &Service{reads: reads, writes: writes, perms: perms}
	s.writer = debounce.New(interval, func(ctx context.Context, projectID string, payload any) error {
		raw, _ := payload.(map[string]any)
		return writes.SaveSettings(ctx, projectID, raw)
	}, log)
	return s
}

// Run starts the debounced write loop; call once from main.
func (s *Service) Run(ctx context.Context) { s.writer.Run(ctx) }

// Resolved returns the fully-populated bundle for a project. A project with
// no stored settings gets pure defaults.
func (s *Service) Resolved(ctx context.Context, projectID string) (domain.Settings, error) {
	raw, err := s.reads.RawSettings(ctx, projectID)
	if err != nil {
		return domain.Settings{}, err
	}
	return Resolve(raw), nil
}

// Save queues a settings bundle for persistence after the quiet period.
func (s *Service) Save(ctx context.Context, projectID, actor string, raw map[string]any) error {
	ok, err := s.perms.CanMutate(ctx, projectID, actor)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrPermissionDenied
	}
	s.writer.Submit(projectID, raw)
	return nil
}
