package analytics

import (
	"sort"
	"time"

	"impactboard/internal/domain"
)

// ChannelAggregate folds a channel's raw entities into the quantities the
// scorers consume.
type ChannelAggregate struct {
	Channel              domain.Channel
	ActivityCount        int
	EffortHours          float64
	CostProxy            float64
	Engagement           float64
	RawReach             float64
	EvidenceCompleteness float64 // mean over linked evidence, 0 when none linked
	EvidenceLinkCount    int
}

// CostProxy is the monetary stand-in for one activity: the budget estimate
// when present and nonzero, otherwise effort hours at the default rate.
func CostProxy(a domain.Activity, s domain.Settings) float64 {
	if a.BudgetEstimate != nil && *a.BudgetEstimate != 0 {
		return *a.BudgetEstimate
	}
	return a.EffortHours * s.HourlyRateDefault
}

// evidenceTypeDomains maps evidence types to the CDE domain they naturally
// support, for the type-match completeness bonus.
var evidenceTypeDomains = map[string]string{
	"press_release":  domain.DomainCommunication,
	"media_coverage": domain.DomainCommunication,
	"social_report":  domain.DomainCommunication,
	"publication":    domain.DomainDissemination,
	"presentation":   domain.DomainDissemination,
	"dataset":        domain.DomainDissemination,
	"license":        domain.DomainExploitation,
	"agreement_doc":  domain.DomainExploitation,
	"uptake_report":  domain.DomainExploitation,
}

// EvidenceLinkScore scores one evidence link in [0,100], additive: 40 for the
// evidence existing at all, 30 when the evidence type matches the linked
// entity's domain, 30 when both a date and a source/context field are set.
func EvidenceLinkScore(item domain.EvidenceItem, entityDomain string) float64 {
	score := 40.0
	if evidenceTypeDomains[item.Type] == entityDomain && entityDomain != "" {
		score += 30
	}
	hasSource := (item.Source != nil && *item.Source != "") || (item.Context != nil && *item.Context != "")
	if item.Date != nil && hasSource {
		score += 30
	}
	if score > 100 {
		score = 100
	}
	return score
}

// ActivityEvidenceCompleteness is the mean link score over an activity's
// evidence, exactly 0 when nothing is linked.
func ActivityEvidenceCompleteness(ws domain.WorkingSet, activityID, activityDomain string) float64 {
	items := make(map[string]domain.EvidenceItem, len(ws.EvidenceItems))
	for _, it := range ws.EvidenceItems {
		items[it.ID] = it
	}
	var sum float64
	var n int
	for _, l := range ws.EvidenceLinks {
		if l.EntityType != "activity" || l.EntityRef != activityID {
			continue
		}
		item, ok := items[l.EvidenceRef]
		if !ok {
			continue
		}
		sum += EvidenceLinkScore(item, activityDomain)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// AggregateChannels folds the working set into per-channel aggregates,
// optionally restricted to activities of one CDE domain. Output order follows
// ws.Channels.
func AggregateChannels(ws domain.WorkingSet, s domain.Settings, domainFilter string) []ChannelAggregate {
	items := make(map[string]domain.EvidenceItem, len(ws.EvidenceItems))
	for _, it := range ws.EvidenceItems {
		items[it.ID] = it
	}

	aggs := make([]ChannelAggregate, 0, len(ws.Channels))
	for _, ch := range ws.Channels {
		agg := ChannelAggregate{Channel: ch}
		activityDomain := make(map[string]string)
		for _, a := range ws.Activities {
			if a.ChannelRef == nil || *a.ChannelRef != ch.ID {
				continue
			}
			if domainFilter != "" && a.Domain != domainFilter {
				continue
			}
			activityDomain[a.ID] = a.Domain
			agg.ActivityCount++
			agg.EffortHours += a.EffortHours
			agg.CostProxy += CostProxy(a, s)
			agg.RawReach += a.Reach
			agg.Engagement += s.EngagementWeights.Survey*float64(a.SurveyResponses) +
				s.EngagementWeights.Qualitative*float64(a.QualitativeOutcomes)
		}
		for _, u := range ws.Uptake {
			if u.ChannelRef != nil && *u.ChannelRef == ch.ID {
				agg.Engagement += s.EngagementWeights.Uptake
			}
		}
		for _, ag := range ws.Agreements {
			if ag.ChannelRef != nil && *ag.ChannelRef == ch.ID {
				agg.Engagement += s.EngagementWeights.Agreement
			}
		}
		var evidenceSum float64
		for _, l := range ws.EvidenceLinks {
			if l.EntityType != "activity" {
				continue
			}
			dom, ok := activityDomain[l.EntityRef]
			if !ok {
				continue
			}
			item, ok := items[l.EvidenceRef]
			if !ok {
				continue
			}
			evidenceSum += EvidenceLinkScore(item, dom)
			agg.EvidenceLinkCount++
		}
		if agg.EvidenceLinkCount > 0 {
			agg.EvidenceCompleteness = evidenceSum / float64(agg.EvidenceLinkCount)
		}
		aggs = append(aggs, agg)
	}
	return aggs
}

// UptakeLagDays computes, per dissemination activity, the days between its
// first dissemination date and the earliest uptake signal (opportunity or
// agreement). Activities with no signal yet are absent from the result, never
// reported as zero.
func UptakeLagDays(ws domain.WorkingSet) map[string]float64 {
	lags := make(map[string]float64)
	for _, a := range ws.Activities {
		if a.Domain != domain.DomainDissemination || a.PerformedAt == nil {
			continue
		}
		var first *time.Time
		for _, u := range ws.Uptake {
			if u.ActivityRef != nil && *u.ActivityRef == a.ID {
				t := u.CreatedAt
				if first == nil || t.Before(*first) {
					first = &t
				}
			}
		}
		for _, ag := range ws.Agreements {
			if ag.ActivityRef != nil && *ag.ActivityRef == a.ID {
				t := ag.SignedAt
				if first == nil || t.Before(*first) {
					first = &t
				}
			}
		}
		if first == nil {
			continue
		}
		lags[a.ID] = first.Sub(*a.PerformedAt).Hours() / 24
	}
	return lags
}

// MedianUptakeLag aggregates lag values with the median to resist outliers.
// ok is false when no activity has an uptake signal yet.
func MedianUptakeLag(ws domain.WorkingSet) (float64, bool) {
	lags := UptakeLagDays(ws)
	if len(lags) == 0 {
		return 0, false
	}
	vals := make([]float64, 0, len(lags))
	for _, v := range lags {
		vals = append(vals, v)
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid], true
	}
	return (vals[mid-1] + vals[mid]) / 2, true
}
