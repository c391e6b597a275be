package settings

import "impactboard/internal/domain"

// Documented defaults. Any field of the raw bundle that is missing or fails
// its range check silently falls back to these; the resolver never errors.
const (
	DefaultHourlyRate              = 50.0
	DefaultEvidenceThreshold       = 60.0
	DefaultOverTargetThreshold     = 5
	DefaultLowResponseRatio        = 0.1
	DefaultInefficientEffortHours  = 40.0
	DefaultUptakeStalledDays       = 60
	DefaultIndicatorFreshnessDays  = 90
	DefaultObjectiveAtRiskDays     = 30
	DefaultStaleCheckDays          = 30
	DefaultComplianceWarnThreshold = 4
	DefaultWeightSurvey            = 1.0
	DefaultWeightQualitative       = 2.0
	DefaultWeightUptake            = 2.0
	DefaultWeightAgreement         = 3.0
)

// Defaults returns a fully-populated settings bundle.
func Defaults() domain.Settings {
	return domain.Settings{
		HourlyRateDefault:                    DefaultHourlyRate,
		EvidenceCompletenessThreshold:        DefaultEvidenceThreshold,
		StakeholderOverTargetThreshold:       DefaultOverTargetThreshold,
		StakeholderLowResponseRatioThreshold: DefaultLowResponseRatio,
		InefficientChannelEffortThreshold:    DefaultInefficientEffortHours,
		UptakeStalledDays:                    DefaultUptakeStalledDays,
		IndicatorFreshnessDays:               DefaultIndicatorFreshnessDays,
		ObjectiveAtRiskDays:                  DefaultObjectiveAtRiskDays,
		StaleCheckDays:                       DefaultStaleCheckDays,
		ComplianceWarningThreshold:           DefaultComplianceWarnThreshold,
		EngagementWeights: domain.EngagementWeights{
			Survey:      DefaultWeightSurvey,
			Qualitative: DefaultWeightQualitative,
			Uptake:      DefaultWeightUptake,
			Agreement:   DefaultWeightAgreement,
		},
	}
}

// Resolve validates an arbitrary (possibly partial, possibly malformed)
// settings bundle field by field. Each field is independently range-checked;
// a failing field keeps its default rather than failing the whole resolve.
// The weights sub-object merges key by key over defaults.
func Resolve(raw map[string]any) domain.Settings {
	s := Defaults()
	if raw == nil {
		return s
	}

	if v, ok := number(raw, "hourly_rate_default"); ok && v > 0 {
		s.HourlyRateDefault = v
	}
	if v, ok := number(raw, "evidence_completeness_threshold"); ok && v >= 0 && v <= 100 {
		s.EvidenceCompletenessThreshold = v
	}
	if v, ok := integer(raw, "stakeholder_over_target_threshold"); ok && v > 0 {
		s.StakeholderOverTargetThreshold = v
	}
	if v, ok := number(raw, "stakeholder_low_response_ratio_threshold"); ok && v >= 0 && v <= 1 {
		s.StakeholderLowResponseRatioThreshold = v
	}
	if v, ok := number(raw, "inefficient_channel_effort_threshold"); ok && v > 0 {
		s.InefficientChannelEffortThreshold = v
	}
	if v, ok := integer(raw, "uptake_stalled_days"); ok && v > 0 {
		s.UptakeStalledDays = v
	}
	if v, ok := integer(raw, "indicator_freshness_days"); ok && v > 0 {
		s.IndicatorFreshnessDays = v
	}
	if v, ok := integer(raw, "objective_at_risk_days"); ok && v > 0 {
		s.ObjectiveAtRiskDays = v
	}
	if v, ok := integer(raw, "stale_check_days"); ok && v > 0 {
		s.StaleCheckDays = v
	}
	if v, ok := integer(raw, "compliance_warning_threshold"); ok && v > 0 {
		s.ComplianceWarningThreshold = v
	}

	if sub, ok := raw["engagement_weights"].(map[string]any); ok {
		if v, ok := number(sub, "survey"); ok && v >= 0 {
			s.EngagementWeights.Survey = v
		}
		if v, ok := number(sub, "qualitative"); ok && v >= 0 {
			s.EngagementWeights.Qualitative = v
		}
		if v, ok := number(sub, "uptake"); ok && v >= 0 {
			s.EngagementWeights.Uptake = v
		}
		if v, ok := number(sub, "agreement"); ok && v >= 0 {
			s.EngagementWeights.Agreement = v
		}
	}
	return s
}

// number pulls a numeric value out of decoded JSON, tolerating the int types
// a hand-built map carries in tests.
func number(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func integer(m map[string]any, key string) (int, bool) {
	v, ok := number(m, key)
	if !ok || v != float64(int(v)) {
		return 0, false
	}
	return int(v), true
}
