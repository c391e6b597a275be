package domain

import "time"

// Core domain models. Raw entities are read from the shared relational store
// and treated as immutable inputs for the duration of one computation; only
// the objective status cache and the compliance snapshot history are written
// back.

// CDE activity domains.
const (
	DomainCommunication = "communication"
	DomainDissemination = "dissemination"
	DomainExploitation  = "exploitation"
)

type Activity struct {
	ID                  string
	ProjectID           string
	Title               string
	Domain              string // communication|dissemination|exploitation
	Status              string // planned|ongoing|done|cancelled
	ChannelRef          *string
	EffortHours         float64
	BudgetEstimate      *float64
	Reach               float64
	SurveyResponses     int
	QualitativeOutcomes int
	PublicFacing        bool
	PerformedAt         *time.Time
	CreatedAt           time.Time
}

type Channel struct {
	ID   string
	Name string
	Type string // website|social|event|journal|newsletter|...
}

type Indicator struct {
	ID           string
	ProjectID    string
	ObjectiveRef *string
	Name         string
	Unit         string
	Domain       string
	Baseline     *float64
	Target       *float64
	Locked       bool
}

type IndicatorValue struct {
	ID           string
	IndicatorRef string
	Period       string // e.g. "2026-Q1"
	Value        float64
	RecordedAt   time.Time
}

type EvidenceItem struct {
	ID        string
	ProjectID string
	Type      string // press_release|publication|dataset|license|...
	Date      *time.Time
	Source    *string
	Context   *string
}

// EvidenceLink associates an evidence item with an indicator or activity.
// Completeness is scored per link, not per item: the type-match bonus depends
// on the linked entity's domain.
type EvidenceLink struct {
	ID          string
	EvidenceRef string
	EntityType  string // indicator|activity
	EntityRef   string
}

type Objective struct {
	ID                    string
	ProjectID             string
	Title                 string
	Domain                string
	Priority              string // high|medium|low
	KPIsLinkedCount       int
	ActivitiesLinkedCount int
	Status                string   // derived, cached; recomputed by the engine
	Warnings              []string // derived, cached alongside Status
	Source                string   // manual|library|strategy
}

type UptakeOpportunity struct {
	ID             string
	ProjectID      string
	ChannelRef     *string
	ActivityRef    *string
	Stage          string // identified|engaged|negotiating|adopted
	CreatedAt      time.Time
	StageChangedAt *time.Time
}

type Agreement struct {
	ID          string
	ProjectID   string
	ChannelRef  *string
	ActivityRef *string
	Partner     string
	SignedAt    time.Time
}

type StakeholderGroup struct {
	ID            string
	ProjectID     string
	Name          string
	TimesTargeted int
	Responses     int
}

type ComplianceRule struct {
	ID               string
	Code             string
	Severity         string // high|medium|low
	Description      string
	AppliesTo        string // objectives|activities|indicators|uptake|all
	ProgrammeProfile string // horizon-europe|erasmus-plus|all
}

// Issue statuses. open→acknowledged→in_progress→resolved is the usual path;
// not_applicable and false_positive are reachable from any state through the
// override path.
const (
	IssueOpen          = "open"
	IssueAcknowledged  = "acknowledged"
	IssueInProgress    = "in_progress"
	IssueResolved      = "resolved"
	IssueNotApplicable = "not_applicable"
	IssueFalsePositive = "false_positive"
)

// ComplianceIssue is one failing rule occurrence. Its ID is deterministic
// (rule code + affected entity) so repeat runs on unchanged state reproduce
// the same identifiers. Content is immutable once the parent check is
// persisted; only Status changes post-hoc.
type ComplianceIssue struct {
	ID                 string `json:"id"`
	RuleRef            string `json:"rule_ref"`
	RuleCode           string `json:"rule_code"`
	Severity           string `json:"severity"`
	Description        string `json:"description"`
	Status             string `json:"status"`
	AffectedEntityType string `json:"affected_entity_type"`
	AffectedEntityRef  string `json:"affected_entity_id"`
	Remediation        string `json:"remediation"`
}

// ComplianceCheck is the immutable snapshot of one check run.
type ComplianceCheck struct {
	ID         string            `json:"id"`
	ProjectID  string            `json:"project_id"`
	RanAt      time.Time         `json:"ran_at"`
	RanBy      string            `json:"ran_by"`
	Status     string            `json:"status"` // passed|warning|failed
	IssueCount int               `json:"issue_count"`
	Issues     []ComplianceIssue `json:"issues"`
}

type SeverityChange struct {
	IssueID  string `json:"issue_id"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// CheckDiff is the delta between two consecutive snapshots. All slices are
// sorted by issue id.
type CheckDiff struct {
	NewIssues       []string         `json:"new_issues"`
	ResolvedIssues  []string         `json:"resolved_issues"`
	SeverityChanges []SeverityChange `json:"severity_changes"`
}

// Objective health statuses in precedence order.
const (
	StatusNeedsKPIs       = "needs_kpis"
	StatusNeedsActivities = "needs_activities"
	StatusNoData          = "no_data"
	StatusAtRisk          = "at_risk"
	StatusOnTrack         = "on_track"
)

type ObjectiveHealth struct {
	ObjectiveID string   `json:"objective_id"`
	Title       string   `json:"title"`
	Status      string   `json:"status"`
	Warnings    []string `json:"warnings"`
}

// ChannelScore is one row of the effectiveness ranking. Score is nil when the
// cost proxy total is zero (no data, not zero signal). Top/bottom highlighting
// is positional: index < 3 is top tier, index >= len-3 is bottom tier.
type ChannelScore struct {
	ChannelID            string   `json:"channel_id"`
	ChannelName          string   `json:"channel_name"`
	ChannelType          string   `json:"channel_type"`
	CostProxy            float64  `json:"cost_proxy"`
	Engagement           float64  `json:"engagement"`
	EvidenceCompleteness float64  `json:"evidence_completeness"`
	AdjustedReach        *float64 `json:"adjusted_reach"`
	Score                *float64 `json:"score"`
}

// ChannelAnalytics is the dashboard's channel view: the effectiveness ranking
// plus the project-level median uptake lag. The lag is nil until at least one
// dissemination activity has an uptake signal.
type ChannelAnalytics struct {
	Channels            []ChannelScore `json:"channels"`
	MedianUptakeLagDays *float64       `json:"median_uptake_lag_days"`
}

// Flag severities.
const (
	FlagHigh = "high"
	FlagWarn = "warn"
	FlagInfo = "info"
)

// Flag is one recommendation emitted by a detector. An attached override
// never suppresses the flag from results; hiding acknowledged items is a
// consumer concern.
type Flag struct {
	FlagCode        string        `json:"flag_code"`
	EntityType      string        `json:"entity_type"`
	EntityRef       string        `json:"entity_id"`
	Severity        string        `json:"severity"`
	Title           string        `json:"title"`
	Explanation     string        `json:"explanation"`
	SuggestedAction string        `json:"suggested_action"`
	DeepLinkURL     string        `json:"deep_link_url"`
	Override        *FlagOverride `json:"override,omitempty"`
}

// Override statuses.
const (
	OverrideOpen          = "open"
	OverrideAcknowledged  = "acknowledged"
	OverrideNotApplicable = "not_applicable"
	OverrideFalsePositive = "false_positive"
	OverrideResolved      = "resolved"
)

// FlagOverride is a human decision recorded against a flag or issue identity.
// History is append-only; "current" is the most recent row by CreatedAt.
type FlagOverride struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	FlagCode   string    `json:"flag_code"`
	EntityType string    `json:"entity_type"`
	EntityRef  string    `json:"entity_id"`
	Status     string    `json:"status"`
	Rationale  string    `json:"rationale"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditEvent is emitted from domain logic to capture attributable state
// changes. Kept transport-agnostic so sinks can fan out.
type AuditEvent struct {
	ID         string
	ProjectID  string
	Actor      string
	Action     string
	EntityType string
	EntityRef  string
	Before     string
	After      string
	Rationale  string
	OccurredAt time.Time
}

// Settings is the per-project configuration bundle, fully populated by the
// resolver. Persisted with last-write-wins overwrite semantics.
type Settings struct {
	HourlyRateDefault                    float64           `json:"hourly_rate_default"`
	EvidenceCompletenessThreshold        float64           `json:"evidence_completeness_threshold"` // [0,100]
	StakeholderOverTargetThreshold       int               `json:"stakeholder_over_target_threshold"`
	StakeholderLowResponseRatioThreshold float64           `json:"stakeholder_low_response_ratio_threshold"` // [0,1]
	InefficientChannelEffortThreshold    float64           `json:"inefficient_channel_effort_threshold"`     // hours
	UptakeStalledDays                    int               `json:"uptake_stalled_days"`
	IndicatorFreshnessDays               int               `json:"indicator_freshness_days"`
	ObjectiveAtRiskDays                  int               `json:"objective_at_risk_days"`
	StaleCheckDays                       int               `json:"stale_check_days"`
	ComplianceWarningThreshold           int               `json:"compliance_warning_threshold"` // severity-weighted issue score
	EngagementWeights                    EngagementWeights `json:"engagement_weights"`
}

// EngagementWeights weight the meaningful-engagement composite.
type EngagementWeights struct {
	Survey      float64 `json:"survey"`
	Qualitative float64 `json:"qualitative"`
	Uptake      float64 `json:"uptake"`
	Agreement   float64 `json:"agreement"`
}

// WorkingSet is the point-in-time read of one project's raw entities. Every
// derived score is a pure function of (WorkingSet, Settings); nothing mutable
// is carried between computations.
type WorkingSet struct {
	ProjectID       string
	Activities      []Activity
	Channels        []Channel
	Indicators      []Indicator
	IndicatorValues []IndicatorValue
	EvidenceItems   []EvidenceItem
	EvidenceLinks   []EvidenceLink
	Objectives      []Objective
	Uptake          []UptakeOpportunity
	Agreements      []Agreement
	Stakeholders    []StakeholderGroup
}

var ErrNotFound = errString("not found")
var ErrPermissionDenied = errString("permission denied")
var ErrValidation = errString("validation failed")

type errString string

func (e errString) Error() string { return string(e) }
