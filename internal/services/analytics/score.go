package analytics

import (
	"fmt"
	"sort"
	"time"

	"impactboard/internal/domain"
)

// RankChannels turns aggregates into the effectiveness ranking: score =
// meaningful engagement / cost proxy, descending, ties broken by channel id.
// Channels with a zero cost proxy get a nil score (no data, not zero) and
// rank after every scored channel, again ordered by id.
func RankChannels(aggs []ChannelAggregate) []domain.ChannelScore {
	scores := make([]domain.ChannelScore, 0, len(aggs))
	for _, agg := range aggs {
		cs := domain.ChannelScore{
			ChannelID:            agg.Channel.ID,
			ChannelName:          agg.Channel.Name,
			ChannelType:          agg.Channel.Type,
			CostProxy:            agg.CostProxy,
			Engagement:           agg.Engagement,
			EvidenceCompleteness: agg.EvidenceCompleteness,
		}
		if agg.ActivityCount > 0 {
			adjusted := agg.RawReach * agg.EvidenceCompleteness / 100
			cs.AdjustedReach = &adjusted
		}
		if agg.CostProxy > 0 {
			v := agg.Engagement / agg.CostProxy
			cs.Score = &v
		}
		scores = append(scores, cs)
	}
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		switch {
		case a.Score != nil && b.Score == nil:
			return true
		case a.Score == nil && b.Score != nil:
			return false
		case a.Score != nil && b.Score != nil && *a.Score != *b.Score:
			return *a.Score > *b.Score
		}
		return a.ChannelID < b.ChannelID
	})
	return scores
}

// BottomTier reports whether a ranking position falls in the bottom three,
// mirroring the UI's positional highlighting convention.
func BottomTier(index, total int) bool {
	return index >= total-3
}

// TopTier reports whether a ranking position falls in the top three.
func TopTier(index int) bool {
	return index < 3
}

// ClassifyObjective derives an objective's health status by evaluating the
// conditions below in fixed priority order; the first failing condition
// determines the status, but every failing condition still contributes its
// warning. Order is a documented contract, not an accident:
//
//	1. no KPIs linked          → needs_kpis
//	2. no activities linked    → needs_activities
//	3. no indicator values yet → no_data
//	4. latest value too old    → at_risk
//	5. otherwise               → on_track
func ClassifyObjective(o domain.Objective, ws domain.WorkingSet, s domain.Settings, now time.Time) domain.ObjectiveHealth {
	h := domain.ObjectiveHealth{ObjectiveID: o.ID, Title: o.Title, Status: domain.StatusOnTrack}

	setFirst := func(status string) {
		if h.Status == domain.StatusOnTrack {
			h.Status = status
		}
	}

	if o.KPIsLinkedCount == 0 {
		setFirst(domain.StatusNeedsKPIs)
		h.Warnings = append(h.Warnings, "No KPIs linked to this objective")
	}
	if o.ActivitiesLinkedCount == 0 {
		setFirst(domain.StatusNeedsActivities)
		h.Warnings = append(h.Warnings, "No activities linked to this objective")
	}

	var latest *time.Time
	for _, v := range ws.IndicatorValues {
		t := v.RecordedAt
		if latest == nil || t.After(*latest) {
			latest = &t
		}
	}
	if latest == nil {
		setFirst(domain.StatusNoData)
		h.Warnings = append(h.Warnings, "No indicator values recorded for this project")
	} else if now.Sub(*latest) > time.Duration(s.ObjectiveAtRiskDays)*24*time.Hour {
		setFirst(domain.StatusAtRisk)
		h.Warnings = append(h.Warnings, fmt.Sprintf("Latest indicator value is older than %d days", s.ObjectiveAtRiskDays))
	}
	return h
}
