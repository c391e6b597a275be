package analytics

import (
	"context"

	"impactboard/internal/domain"
	"impactboard/internal/ports"
)

// Load reads a project's full working set in one pass. Collections keep the
// repository's stable ordering.
func Load(ctx context.Context, r ports.ReadRepository, projectID string) (domain.WorkingSet, error) {
	ws := domain.WorkingSet{ProjectID: projectID}
	var err error
	if ws.Activities, err = r.Activities(ctx, projectID); err != nil {
		return ws, err
	}
	if ws.Channels, err = r.Channels(ctx, projectID); err != nil {
		return ws, err
	}
	if ws.Indicators, err = r.Indicators(ctx, projectID); err != nil {
		return ws, err
	}
	if ws.IndicatorValues, err = r.IndicatorValues(ctx, projectID); err != nil {
		return ws, err
	}
	if ws.EvidenceItems, err = r.EvidenceItems(ctx, projectID); err != nil {
		return ws, err
	}
	if ws.EvidenceLinks, err = r.EvidenceLinks(ctx, projectID); err != nil {
		return ws, err
	}
	if ws.Objectives, err = r.Objectives(ctx, projectID); err != nil {
		return ws, err
	}
	if ws.Uptake, err = r.UptakeOpportunities(ctx, projectID); err != nil {
		return ws, err
	}
	if ws.Agreements, err = r.Agreements(ctx, projectID); err != nil {
		return ws, err
	}
	if ws.Stakeholders, err = r.StakeholderGroups(ctx, projectID); err != nil {
		return ws, err
	}
	return ws, nil
}
