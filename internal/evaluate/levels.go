package evaluate

import "github.com/hearthline/hearth-core/internal/capability"

// privacyWeights scores how much personal data each capability type
// exposes. Video dominates, then audio and access logs, then presence
// sensing.
var privacyWeights = map[capability.Type]int{
	capability.TypeVideo:         3,
	capability.TypeAudio:         2,
	capability.TypeAccessControl: 2,
	capability.TypeSensing:       1,
	capability.TypePresence:      1,
	capability.TypeLocation:      1,
}

// safetyWeights scores the physical risk of actuating each capability
// type. Locks outrank alarms, which outrank generic actuators.
var safetyWeights = map[capability.Type]int{
	capability.TypeAccessControl: 3,
	capability.TypeSecurity:      2,
	capability.TypeActuation:     1,
	capability.TypeClimate:       1,
}

// deriveEffort grades setup effort from the number of things the user
// would have to place, pair, or configure.
func deriveEffort(cand *capability.CombinationCandidate) capability.EffortLevel {
	switch n := cand.Size(); {
	case n <= 1:
		return capability.EffortNone
	case n <= 2:
		return capability.EffortLow
	case n <= 4:
		return capability.EffortMedium
	default:
		return capability.EffortHigh
	}
}

// derivePrivacy grades data sensitivity from the weighted presence of
// privacy-relevant capability types.
func derivePrivacy(cand *capability.CombinationCandidate) capability.PrivacyLevel {
	var score int
	for _, t := range cand.CapabilityTypes() {
		score += privacyWeights[t]
	}
	switch {
	case score >= 4:
		return capability.PrivacySensitive
	case score >= 3:
		return capability.PrivacyPrivate
	case score >= 1:
		return capability.PrivacyPersonal
	default:
		return capability.PrivacyPublic
	}
}

// deriveSafety grades physical risk from the weighted presence of
// actuating capability types.
func deriveSafety(cand *capability.CombinationCandidate) capability.SafetyLevel {
	var score int
	for _, t := range cand.CapabilityTypes() {
		score += safetyWeights[t]
	}
	switch {
	case score >= 5:
		return capability.SafetyRestricted
	case score >= 3:
		return capability.SafetyDangerous
	case score >= 1:
		return capability.SafetyCaution
	default:
		return capability.SafetySafe
	}
}
