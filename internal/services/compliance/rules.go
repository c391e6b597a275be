package compliance

import (
	"fmt"
	"time"

	"impactboard/internal/domain"
	"impactboard/internal/services/analytics"
)

// Rule codes known to the engine. Rule rows carry severity, scope and
// programme profile; the data-driven pass/fail logic lives here, keyed by
// code, so every run on unchanged state reproduces the same issues.
const (
	RuleObjectivesNeedKPIs     = "OBJ-KPI"
	RuleObjectivesNeedActivity = "OBJ-ACT"
	RulePublicActivityEvidence = "ACT-EVID"
	RuleIndicatorFreshness     = "IND-FRESH"
	RuleDisseminationChannel   = "ACT-CHAN"
	RuleUptakeProgression      = "UPT-STALL"
)

type evaluator func(ws domain.WorkingSet, cfg domain.Settings, now time.Time, rule domain.ComplianceRule) []domain.ComplianceIssue

var evaluators = map[string]evaluator{
	RuleObjectivesNeedKPIs:     evalObjectivesNeedKPIs,
	RuleObjectivesNeedActivity: evalObjectivesNeedActivities,
	RulePublicActivityEvidence: evalPublicActivityEvidence,
	RuleIndicatorFreshness:     evalIndicatorFreshness,
	RuleDisseminationChannel:   evalDisseminationChannel,
	RuleUptakeProgression:      evalUptakeProgression,
}

// issueID is deterministic so repeat runs on unchanged state reproduce the
// same identifiers and the snapshot diff stays meaningful.
func issueID(code, entityRef string) string {
	return code + ":" + entityRef
}

func newIssue(rule domain.ComplianceRule, entityType, entityRef, description, remediation string) domain.ComplianceIssue {
	return domain.ComplianceIssue{
		ID:                 issueID(rule.Code, entityRef),
		RuleRef:            rule.ID,
		RuleCode:           rule.Code,
		Severity:           rule.Severity,
		Description:        description,
		Status:             domain.IssueOpen,
		AffectedEntityType: entityType,
		AffectedEntityRef:  entityRef,
		Remediation:        remediation,
	}
}

func evalObjectivesNeedKPIs(ws domain.WorkingSet, _ domain.Settings, _ time.Time, rule domain.ComplianceRule) []domain.ComplianceIssue {
	var out []domain.ComplianceIssue
	for _, o := range ws.Objectives {
		if o.KPIsLinkedCount == 0 {
			out = append(out, newIssue(rule, "objective", o.ID,
				fmt.Sprintf("Objective %q has no KPIs linked", o.Title),
				"Link at least one indicator to the objective"))
		}
	}
	return out
}

func evalObjectivesNeedActivities(ws domain.WorkingSet, _ domain.Settings, _ time.Time, rule domain.ComplianceRule) []domain.ComplianceIssue {
	var out []domain.ComplianceIssue
	for _, o := range ws.Objectives {
		if o.ActivitiesLinkedCount == 0 {
			out = append(out, newIssue(rule, "objective", o.ID,
				fmt.Sprintf("Objective %q has no activities linked", o.Title),
				"Plan an activity that contributes to the objective"))
		}
	}
	return out
}

func evalPublicActivityEvidence(ws domain.WorkingSet, cfg domain.Settings, _ time.Time, rule domain.ComplianceRule) []domain.ComplianceIssue {
	var out []domain.ComplianceIssue
	for _, a := range ws.Activities {
		if !a.PublicFacing || a.Status != "done" {
			continue
		}
		if analytics.ActivityEvidenceCompleteness(ws, a.ID, a.Domain) < cfg.EvidenceCompletenessThreshold {
			out = append(out, newIssue(rule, "activity", a.ID,
				fmt.Sprintf("Public activity %q lacks sufficient evidence", a.Title),
				"Attach dated, sourced evidence to the activity"))
		}
	}
	return out
}

func evalIndicatorFreshness(ws domain.WorkingSet, cfg domain.Settings, now time.Time, rule domain.ComplianceRule) []domain.ComplianceIssue {
	maxAge := time.Duration(cfg.IndicatorFreshnessDays) * 24 * time.Hour
	var out []domain.ComplianceIssue
	for _, ind := range ws.Indicators {
		if !ind.Locked {
			continue
		}
		var latest *time.Time
		for _, v := range ws.IndicatorValues {
			if v.IndicatorRef != ind.ID {
				continue
			}
			t := v.RecordedAt
			if latest == nil || t.After(*latest) {
				latest = &t
			}
		}
		if latest == nil || now.Sub(*latest) > maxAge {
			out = append(out, newIssue(rule, "indicator", ind.ID,
				fmt.Sprintf("Locked indicator %q has no value in the last %d days", ind.Name, cfg.IndicatorFreshnessDays),
				"Record a current value for the indicator"))
		}
	}
	return out
}

func evalDisseminationChannel(ws domain.WorkingSet, _ domain.Settings, _ time.Time, rule domain.ComplianceRule) []domain.ComplianceIssue {
	var out []domain.ComplianceIssue
	for _, a := range ws.Activities {
		if a.Domain == domain.DomainDissemination && a.ChannelRef == nil {
			out = append(out, newIssue(rule, "activity", a.ID,
				fmt.Sprintf("Dissemination activity %q has no channel assigned", a.Title),
				"Assign the channel the activity runs on"))
		}
	}
	return out
}

func evalUptakeProgression(ws domain.WorkingSet, cfg domain.Settings, now time.Time, rule domain.ComplianceRule) []domain.ComplianceIssue {
	maxAge := time.Duration(cfg.UptakeStalledDays) * 24 * time.Hour
	var out []domain.ComplianceIssue
	for _, u := range ws.Uptake {
		if u.StageChangedAt == nil && u.Stage == "identified" && now.Sub(u.CreatedAt) > maxAge {
			out = append(out, newIssue(rule, "uptake_opportunity", u.ID,
				"Uptake opportunity shows no exploitation-stage progression",
				"Follow up on the opportunity or close it"))
		}
	}
	return out
}
