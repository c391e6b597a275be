package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_Empty(t *testing.T) {
	assert.Equal(t, Defaults(), Resolve(nil))
	assert.Equal(t, Defaults(), Resolve(map[string]any{}))
}

func TestResolve_OutOfRangeFallsBackToDefault(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"negative evidence threshold", map[string]any{"evidence_completeness_threshold": -5}},
		{"evidence threshold above range", map[string]any{"evidence_completeness_threshold": 101.0}},
		{"zero hourly rate", map[string]any{"hourly_rate_default": 0}},
		{"negative hourly rate", map[string]any{"hourly_rate_default": -10.0}},
		{"response ratio above one", map[string]any{"stakeholder_low_response_ratio_threshold": 1.5}},
		{"non-numeric value", map[string]any{"stale_check_days": "thirty"}},
		{"fractional day count", map[string]any{"stale_check_days": 12.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Defaults(), Resolve(tt.raw))
		})
	}
}

func TestResolve_DocumentedEvidenceDefault(t *testing.T) {
	resolved := Resolve(map[string]any{"evidence_completeness_threshold": -5})
	assert.Equal(t, 60.0, resolved.EvidenceCompletenessThreshold)
}

func TestResolve_ValidFieldsApply(t *testing.T) {
	resolved := Resolve(map[string]any{
		"hourly_rate_default":             75.0,
		"evidence_completeness_threshold": 80.0,
		"stale_check_days":                14,
	})
	assert.Equal(t, 75.0, resolved.HourlyRateDefault)
	assert.Equal(t, 80.0, resolved.EvidenceCompletenessThreshold)
	assert.Equal(t, 14, resolved.StaleCheckDays)
	// Untouched fields keep defaults.
	assert.Equal(t, DefaultLowResponseRatio, resolved.StakeholderLowResponseRatioThreshold)
}

func TestResolve_WeightsMergeKeyByKey(t *testing.T) {
	resolved := Resolve(map[string]any{
		"engagement_weights": map[string]any{
			"survey":    4.0,
			"agreement": -1.0, // invalid, keeps default
		},
	})
	assert.Equal(t, 4.0, resolved.EngagementWeights.Survey)
	assert.Equal(t, DefaultWeightAgreement, resolved.EngagementWeights.Agreement)
	assert.Equal(t, DefaultWeightQualitative, resolved.EngagementWeights.Qualitative)
	assert.Equal(t, DefaultWeightUptake, resolved.EngagementWeights.Uptake)
}

func TestResolve_MalformedWeightsIgnored(t *testing.T) {
	resolved := Resolve(map[string]any{"engagement_weights": "not a map"})
	assert.Equal(t, Defaults().EngagementWeights, resolved.EngagementWeights)
}
