package capability

import "time"

// ExecutionPlan is an abstract, orchestrator-agnostic plan derived from a
// RecommendationCard. The core hands it to an external executor and retains
// it only in an execution-history map keyed by plan id.
type ExecutionPlan struct {
	ID                string         `json:"id"`
	RecommendationID  string         `json:"recommendation_id"`
	UserID            string         `json:"user_id"`
	Steps             []PlanStep     `json:"steps"`
	Triggers          []PlanTrigger  `json:"triggers,omitempty"`
	Schedules         []PlanSchedule `json:"schedules,omitempty"`
	Fallbacks         []PlanStep     `json:"fallbacks,omitempty"`
	EstimatedDuration time.Duration  `json:"estimated_duration"`
	CreatedAt         time.Time      `json:"created_at"`
}

// PlanStep is one ordered action in an execution plan.
type PlanStep struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"` // "device_control", "service_call"
	TargetID   string        `json:"target_id"`
	Action     string        `json:"action"`
	Parameters Params        `json:"parameters,omitempty"`
	DependsOn  []string      `json:"depends_on,omitempty"`
	Timeout    time.Duration `json:"timeout"`
	RetryCount int           `json:"retry_count"`
	Privacy    PrivacyLevel  `json:"privacy"`
	Safety     SafetyLevel   `json:"safety"`
}

// PlanTrigger describes an event that starts the plan.
type PlanTrigger struct {
	Type      string `json:"type"` // "motion", "condition"
	SourceID  string `json:"source_id"`
	Condition Params `json:"condition,omitempty"`
}

// PlanSchedule describes a time-based start for the plan.
type PlanSchedule struct {
	Type string `json:"type"` // "daily", "cron"
	At   string `json:"at"`   // "HH:MM" or cron expression
}

// FeedbackRecord is one immutable user action against one recommendation.
// Appended to per-user history and removed only by retention cleanup.
type FeedbackRecord struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	RecommendationID string           `json:"recommendation_id"`
	Type             FeedbackType     `json:"type"`
	Data             Params           `json:"data,omitempty"`
	Context          *ContextSnapshot `json:"context,omitempty"`
	Success          *bool            `json:"success,omitempty"` // execute only
	CreatedAt        time.Time        `json:"created_at"`
}
