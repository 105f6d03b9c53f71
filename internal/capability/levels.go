package capability

// EffortLevel grades how much user setup a suggestion needs.
type EffortLevel string

const (
	EffortNone   EffortLevel = "none"
	EffortLow    EffortLevel = "low"
	EffortMedium EffortLevel = "medium"
	EffortHigh   EffortLevel = "high"
)

// PrivacyLevel grades the sensitivity of the data a suggestion touches.
type PrivacyLevel string

const (
	PrivacyPublic    PrivacyLevel = "public"
	PrivacyPersonal  PrivacyLevel = "personal"
	PrivacyPrivate   PrivacyLevel = "private"
	PrivacySensitive PrivacyLevel = "sensitive"
)

// SafetyLevel grades the physical risk of executing a suggestion.
type SafetyLevel string

const (
	SafetySafe       SafetyLevel = "safe"
	SafetyCaution    SafetyLevel = "caution"
	SafetyDangerous  SafetyLevel = "dangerous"
	SafetyRestricted SafetyLevel = "restricted"
)

// FeedbackType classifies one user action against a recommendation.
type FeedbackType string

const (
	FeedbackAccept  FeedbackType = "accept"
	FeedbackReject  FeedbackType = "reject"
	FeedbackSnooze  FeedbackType = "snooze"
	FeedbackEdit    FeedbackType = "edit"
	FeedbackExecute FeedbackType = "execute"
)

// IsValid reports whether f is a known feedback type.
func (f FeedbackType) IsValid() bool {
	switch f {
	case FeedbackAccept, FeedbackReject, FeedbackSnooze, FeedbackEdit, FeedbackExecute:
		return true
	}
	return false
}
