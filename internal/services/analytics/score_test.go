package analytics

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impactboard/internal/domain"
	"impactboard/internal/services/settings"
)

func TestRankChannels_DescendingWithIDTiebreak(t *testing.T) {
	aggs := []ChannelAggregate{
		{Channel: domain.Channel{ID: "ch3"}, ActivityCount: 1, CostProxy: 100, Engagement: 10}, // 0.1
		{Channel: domain.Channel{ID: "ch2"}, ActivityCount: 1, CostProxy: 100, Engagement: 50}, // 0.5
		{Channel: domain.Channel{ID: "ch1"}, ActivityCount: 1, CostProxy: 200, Engagement: 20}, // 0.1, ties ch3
	}
	ranked := RankChannels(aggs)
	require.Len(t, ranked, 3)
	assert.Equal(t, "ch2", ranked[0].ChannelID)
	assert.Equal(t, "ch1", ranked[1].ChannelID)
	assert.Equal(t, "ch3", ranked[2].ChannelID)

	// Sorted descending by score.
	scores := make([]float64, 0, len(ranked))
	for _, cs := range ranked {
		require.NotNil(t, cs.Score)
		scores = append(scores, *cs.Score)
	}
	assert.True(t, sort.IsSorted(sort.Reverse(sort.Float64Slice(scores))))
}

func TestRankChannels_ZeroCostProxyScoresNil(t *testing.T) {
	aggs := []ChannelAggregate{
		{Channel: domain.Channel{ID: "chB"}, ActivityCount: 0, CostProxy: 0, Engagement: 5},
		{Channel: domain.Channel{ID: "chA"}, ActivityCount: 1, CostProxy: 100, Engagement: 1},
	}
	ranked := RankChannels(aggs)
	require.Len(t, ranked, 2)
	// No data ranks after scored channels, never as an implicit zero.
	assert.Equal(t, "chA", ranked[0].ChannelID)
	assert.Equal(t, "chB", ranked[1].ChannelID)
	assert.Nil(t, ranked[1].Score)
}

func TestTierConventions(t *testing.T) {
	assert.True(t, TopTier(0))
	assert.True(t, TopTier(2))
	assert.False(t, TopTier(3))
	assert.True(t, BottomTier(7, 10))
	assert.False(t, BottomTier(6, 10))
}

func TestClassifyObjective_PrecedenceLaw(t *testing.T) {
	cfg := settings.Defaults()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	// kpis_linked_count == 0 forces needs_kpis regardless of anything else.
	ws := domain.WorkingSet{
		IndicatorValues: []domain.IndicatorValue{{ID: "v1", RecordedAt: now.AddDate(0, 0, -1)}},
	}
	o := domain.Objective{ID: "o1", KPIsLinkedCount: 0, ActivitiesLinkedCount: 5}
	h := ClassifyObjective(o, ws, cfg, now)
	assert.Equal(t, domain.StatusNeedsKPIs, h.Status)
	assert.Contains(t, h.Warnings, "No KPIs linked to this objective")
}

func TestClassifyObjective_NeedsActivities(t *testing.T) {
	cfg := settings.Defaults()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	ws := domain.WorkingSet{
		IndicatorValues: []domain.IndicatorValue{{ID: "v1", RecordedAt: now.AddDate(0, 0, -1)}},
	}
	o := domain.Objective{ID: "o1", KPIsLinkedCount: 2, ActivitiesLinkedCount: 0}
	h := ClassifyObjective(o, ws, cfg, now)
	assert.Equal(t, domain.StatusNeedsActivities, h.Status)
	assert.Contains(t, h.Warnings, "No activities linked to this objective")
}

func TestClassifyObjective_AllWarningsCollected(t *testing.T) {
	cfg := settings.Defaults()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	o := domain.Objective{ID: "o1", KPIsLinkedCount: 0, ActivitiesLinkedCount: 0}
	h := ClassifyObjective(o, domain.WorkingSet{}, cfg, now)
	// First match decides the status, but every failing check warns.
	assert.Equal(t, domain.StatusNeedsKPIs, h.Status)
	assert.Len(t, h.Warnings, 3)
}

func TestClassifyObjective_NoDataAndAtRisk(t *testing.T) {
	cfg := settings.Defaults()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	o := domain.Objective{ID: "o1", KPIsLinkedCount: 1, ActivitiesLinkedCount: 1}

	t.Run("no values recorded", func(t *testing.T) {
		h := ClassifyObjective(o, domain.WorkingSet{}, cfg, now)
		assert.Equal(t, domain.StatusNoData, h.Status)
	})
	t.Run("stale values", func(t *testing.T) {
		ws := domain.WorkingSet{
			IndicatorValues: []domain.IndicatorValue{{ID: "v1", RecordedAt: now.AddDate(0, 0, -31)}},
		}
		h := ClassifyObjective(o, ws, cfg, now)
		assert.Equal(t, domain.StatusAtRisk, h.Status)
	})
	t.Run("fresh values", func(t *testing.T) {
		ws := domain.WorkingSet{
			IndicatorValues: []domain.IndicatorValue{{ID: "v1", RecordedAt: now.AddDate(0, 0, -2)}},
		}
		h := ClassifyObjective(o, ws, cfg, now)
		assert.Equal(t, domain.StatusOnTrack, h.Status)
		assert.Empty(t, h.Warnings)
	})
}
