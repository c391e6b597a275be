package analytics

import (
	"fmt"
	"time"

	"impactboard/internal/domain"
)

// Flag codes, one per detector.
const (
	FlagOverTargeting    = "stakeholder_over_targeting"
	FlagLowResponse      = "stakeholder_low_response"
	FlagInefficientChan  = "inefficient_channel"
	FlagUptakeStalled    = "uptake_stalled"
	FlagEvidenceBelowMin = "evidence_below_threshold"
)

// GenerateFlags runs the fixed detector battery over the working set. Each
// detector emits at most one flag per matching entity. Overrides are attached
// separately; generation never suppresses.
func GenerateFlags(ws domain.WorkingSet, aggs []ChannelAggregate, ranked []domain.ChannelScore, s domain.Settings, now time.Time) []domain.Flag {
	var flags []domain.Flag
	flags = append(flags, detectOverTargeting(ws, s)...)
	flags = append(flags, detectLowResponse(ws, s)...)
	flags = append(flags, detectInefficientChannels(ws, aggs, ranked, s)...)
	flags = append(flags, detectStalledUptake(ws, s, now)...)
	flags = append(flags, detectEvidenceGaps(ws, s)...)
	return flags
}

func detectOverTargeting(ws domain.WorkingSet, s domain.Settings) []domain.Flag {
	var out []domain.Flag
	for _, g := range ws.Stakeholders {
		if g.TimesTargeted < s.StakeholderOverTargetThreshold {
			continue
		}
		out = append(out, domain.Flag{
			FlagCode:        FlagOverTargeting,
			EntityType:      "stakeholder_group",
			EntityRef:       g.ID,
			Severity:        domain.FlagWarn,
			Title:           fmt.Sprintf("%s may be over-targeted", g.Name),
			Explanation:     fmt.Sprintf("This group has been targeted %d times, at or above the threshold of %d.", g.TimesTargeted, s.StakeholderOverTargetThreshold),
			SuggestedAction: "Space out communications to this group or broaden the audience.",
			DeepLinkURL:     fmt.Sprintf("/projects/%s/stakeholders/%s", ws.ProjectID, g.ID),
		})
	}
	return out
}

func detectLowResponse(ws domain.WorkingSet, s domain.Settings) []domain.Flag {
	var out []domain.Flag
	for _, g := range ws.Stakeholders {
		// No targeting yet means no ratio, not a zero ratio.
		if g.TimesTargeted == 0 {
			continue
		}
		ratio := float64(g.Responses) / float64(g.TimesTargeted)
		if ratio >= s.StakeholderLowResponseRatioThreshold {
			continue
		}
		out = append(out, domain.Flag{
			FlagCode:        FlagLowResponse,
			EntityType:      "stakeholder_group",
			EntityRef:       g.ID,
			Severity:        domain.FlagWarn,
			Title:           fmt.Sprintf("%s rarely responds", g.Name),
			Explanation:     fmt.Sprintf("Response ratio %.2f is below the threshold of %.2f.", ratio, s.StakeholderLowResponseRatioThreshold),
			SuggestedAction: "Reconsider the format or channel used to reach this group.",
			DeepLinkURL:     fmt.Sprintf("/projects/%s/stakeholders/%s", ws.ProjectID, g.ID),
		})
	}
	return out
}

func detectInefficientChannels(ws domain.WorkingSet, aggs []ChannelAggregate, ranked []domain.ChannelScore, s domain.Settings) []domain.Flag {
	position := make(map[string]int, len(ranked))
	for i, cs := range ranked {
		position[cs.ChannelID] = i
	}
	var out []domain.Flag
	for _, agg := range aggs {
		if agg.EffortHours < s.InefficientChannelEffortThreshold {
			continue
		}
		idx, ok := position[agg.Channel.ID]
		if !ok || !BottomTier(idx, len(ranked)) {
			continue
		}
		out = append(out, domain.Flag{
			FlagCode:        FlagInefficientChan,
			EntityType:      "channel",
			EntityRef:       agg.Channel.ID,
			Severity:        domain.FlagHigh,
			Title:           fmt.Sprintf("%s absorbs effort without results", agg.Channel.Name),
			Explanation:     fmt.Sprintf("%.0f hours invested, yet the channel ranks in the bottom tier for effectiveness.", agg.EffortHours),
			SuggestedAction: "Shift effort to a better-performing channel or rework the content strategy.",
			DeepLinkURL:     fmt.Sprintf("/projects/%s/channels/%s", ws.ProjectID, agg.Channel.ID),
		})
	}
	return out
}

func detectStalledUptake(ws domain.WorkingSet, s domain.Settings, now time.Time) []domain.Flag {
	maxAge := time.Duration(s.UptakeStalledDays) * 24 * time.Hour
	var out []domain.Flag
	for _, u := range ws.Uptake {
		if u.StageChangedAt != nil || u.Stage != "identified" {
			continue
		}
		if now.Sub(u.CreatedAt) <= maxAge {
			continue
		}
		out = append(out, domain.Flag{
			FlagCode:        FlagUptakeStalled,
			EntityType:      "uptake_opportunity",
			EntityRef:       u.ID,
			Severity:        domain.FlagWarn,
			Title:           "Uptake opportunity has stalled",
			Explanation:     fmt.Sprintf("No exploitation-stage progression within %d days of creation.", s.UptakeStalledDays),
			SuggestedAction: "Follow up with the interested party or close the opportunity.",
			DeepLinkURL:     fmt.Sprintf("/projects/%s/uptake/%s", ws.ProjectID, u.ID),
		})
	}
	return out
}

func detectEvidenceGaps(ws domain.WorkingSet, s domain.Settings) []domain.Flag {
	var out []domain.Flag
	for _, a := range ws.Activities {
		if !a.PublicFacing {
			continue
		}
		completeness := ActivityEvidenceCompleteness(ws, a.ID, a.Domain)
		if completeness >= s.EvidenceCompletenessThreshold {
			continue
		}
		out = append(out, domain.Flag{
			FlagCode:        FlagEvidenceBelowMin,
			EntityType:      "activity",
			EntityRef:       a.ID,
			Severity:        domain.FlagInfo,
			Title:           fmt.Sprintf("Weak evidence for %q", a.Title),
			Explanation:     fmt.Sprintf("Evidence completeness %.0f is below the threshold of %.0f for a public-facing activity.", completeness, s.EvidenceCompletenessThreshold),
			SuggestedAction: "Attach dated, sourced evidence matching the activity's domain.",
			DeepLinkURL:     fmt.Sprintf("/projects/%s/activities/%s", ws.ProjectID, a.ID),
		})
	}
	return out
}

// AttachOverrides left-joins current override records onto flags by
// (flag_code, entity_type, entity_id). Overridden flags stay in the list;
// hiding acknowledged items is the consumer's call.
func AttachOverrides(flags []domain.Flag, overrides []domain.FlagOverride) []domain.Flag {
	byKey := make(map[string]domain.FlagOverride, len(overrides))
	for _, ov := range overrides {
		key := ov.FlagCode + "|" + ov.EntityType + "|" + ov.EntityRef
		cur, ok := byKey[key]
		if !ok || ov.CreatedAt.After(cur.CreatedAt) {
			byKey[key] = ov
		}
	}
	for i := range flags {
		if ov, ok := byKey[flags[i].FlagCode+"|"+flags[i].EntityType+"|"+flags[i].EntityRef]; ok {
			o := ov
			flags[i].Override = &o
		}
	}
	return flags
}
