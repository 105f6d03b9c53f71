package capability

import "time"

// Type classifies a single normalized function a device or service exposes.
type Type string

// Device capability types.
const (
	TypeLighting      Type = "lighting"
	TypeSensing       Type = "sensing"
	TypeActuation     Type = "actuation"
	TypeAudio         Type = "audio"
	TypeVideo         Type = "video"
	TypeSecurity      Type = "security"
	TypeClimate       Type = "climate"
	TypeEnergy        Type = "energy"
	TypeAccessControl Type = "access_control"
	TypeNetwork       Type = "network"
)

// Service capability types.
const (
	TypeWeather      Type = "weather"
	TypeCalendar     Type = "calendar"
	TypePresence     Type = "presence"
	TypeTime         Type = "time"
	TypeLocation     Type = "location"
	TypeTraffic      Type = "traffic"
	TypeNotification Type = "notification"
)

// DeviceTypes returns all capability types a physical device can expose.
func DeviceTypes() []Type {
	return []Type{
		TypeLighting, TypeSensing, TypeActuation, TypeAudio, TypeVideo,
		TypeSecurity, TypeClimate, TypeEnergy, TypeAccessControl, TypeNetwork,
	}
}

// ServiceTypes returns all capability types a non-device service can expose.
func ServiceTypes() []Type {
	return []Type{
		TypeWeather, TypeCalendar, TypePresence, TypeTime,
		TypeLocation, TypeTraffic, TypeNotification,
	}
}

// IsValid reports whether t is a known capability type.
func (t Type) IsValid() bool {
	switch t {
	case TypeLighting, TypeSensing, TypeActuation, TypeAudio, TypeVideo,
		TypeSecurity, TypeClimate, TypeEnergy, TypeAccessControl, TypeNetwork,
		TypeWeather, TypeCalendar, TypePresence, TypeTime, TypeLocation,
		TypeTraffic, TypeNotification:
		return true
	}
	return false
}

// IsSafetyRelated reports whether t contributes to home safety. Combinations
// carrying a safety-related capability are exempt from quiet-hours pruning.
func (t Type) IsSafetyRelated() bool {
	return t == TypeSecurity || t == TypeAccessControl || t == TypeSensing
}

// Params is a schema-less key/value map for free-form capability data.
// Well-known keys are read by specific components; unknown keys pass
// through opaquely and are never rejected.
type Params map[string]any

// DeviceCapability is one exposed capability of one physical device.
//
// Produced fresh by ingestion on every request and never persisted.
// The evaluator attaches scores to the containing candidate but treats
// identity fields here as read-only.
type DeviceCapability struct {
	Type          Type           `json:"type"`
	DeviceID      string         `json:"device_id"`
	Name          string         `json:"name"`
	Brand         string         `json:"brand,omitempty"`
	Model         string         `json:"model,omitempty"`
	Room          string         `json:"room,omitempty"`
	Parameters    Params         `json:"parameters,omitempty"`
	Constraints   Params         `json:"constraints,omitempty"`
	EnergyProfile *EnergyProfile `json:"energy_profile,omitempty"`
	Reachable     bool           `json:"reachable"`
	LastSeen      time.Time      `json:"last_seen"`
}

// EnergyProfile describes a device's power characteristics.
type EnergyProfile struct {
	StandbyWatts float64 `json:"standby_watts"`
	ActiveWatts  float64 `json:"active_watts"`
}

// ServiceCapability is the service analogue of DeviceCapability.
// Services have availability instead of reachability and no room.
type ServiceCapability struct {
	Type       Type      `json:"type"`
	ServiceID  string    `json:"service_id"`
	Name       string    `json:"name"`
	Parameters Params    `json:"parameters,omitempty"`
	Available  bool      `json:"available"`
	LastSeen   time.Time `json:"last_seen"`
}

// ContextSnapshot is a single point-in-time read of environmental context.
// Created once per suggestion request and immutable thereafter.
type ContextSnapshot struct {
	Timestamp      time.Time `json:"timestamp"`
	TimeOfDay      string    `json:"time_of_day"` // "morning", "afternoon", "evening", "night"
	IsWeekend      bool      `json:"is_weekend"`
	IsQuietHours   bool      `json:"is_quiet_hours"`
	UserPresent    bool      `json:"user_present"`
	Location       string    `json:"location,omitempty"`
	CalendarState  string    `json:"calendar_state,omitempty"` // "free", "busy", "meeting"
	Weather        string    `json:"weather,omitempty"`
	RecentActivity []string  `json:"recent_activity,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
}

// CombinationCandidate is a bundle of device and service capabilities
// considered together as one potential suggestion.
//
// Created by the powerset generator, scored in place by the evaluator,
// consumed by the packager. Never persisted.
type CombinationCandidate struct {
	ID       string              `json:"id"`
	Devices  []DeviceCapability  `json:"devices"`
	Services []ServiceCapability `json:"services"`

	// Signature is the canonical order-independent fingerprint used for
	// deduplication and clustering. See ComputeSignature.
	Signature string `json:"signature"`

	// Scores attached by the evaluator.
	EstimatedValue      float64      `json:"estimated_value"`
	FeasibilityScore    float64      `json:"feasibility_score"`
	ContextFit          float64      `json:"context_fit"`
	NoveltyScore        float64      `json:"novelty_score"`
	Effort              EffortLevel  `json:"effort"`
	Privacy             PrivacyLevel `json:"privacy"`
	Safety              SafetyLevel  `json:"safety"`
	MissingCapabilities []string     `json:"missing_capabilities,omitempty"`

	// MatchedOutcomes holds the ids of outcome templates this candidate
	// satisfies. Informational only.
	MatchedOutcomes []string `json:"matched_outcomes,omitempty"`
}

// Size returns the total number of capabilities in the candidate.
func (c *CombinationCandidate) Size() int {
	return len(c.Devices) + len(c.Services)
}

// CapabilityTypes returns the distinct capability types present, devices first.
func (c *CombinationCandidate) CapabilityTypes() []Type {
	seen := make(map[Type]bool, c.Size())
	types := make([]Type, 0, c.Size())
	for _, d := range c.Devices {
		if !seen[d.Type] {
			seen[d.Type] = true
			types = append(types, d.Type)
		}
	}
	for _, s := range c.Services {
		if !seen[s.Type] {
			seen[s.Type] = true
			types = append(types, s.Type)
		}
	}
	return types
}

// HasType reports whether any device or service in the candidate carries t.
func (c *CombinationCandidate) HasType(t Type) bool {
	for _, d := range c.Devices {
		if d.Type == t {
			return true
		}
	}
	for _, s := range c.Services {
		if s.Type == t {
			return true
		}
	}
	return false
}

// Rooms returns the distinct non-empty room names across the candidate's
// devices, in first-seen order.
func (c *CombinationCandidate) Rooms() []string {
	seen := make(map[string]bool, len(c.Devices))
	rooms := make([]string, 0, len(c.Devices))
	for _, d := range c.Devices {
		if d.Room != "" && !seen[d.Room] {
			seen[d.Room] = true
			rooms = append(rooms, d.Room)
		}
	}
	return rooms
}

// RecommendationCard is the user-facing packaged suggestion.
type RecommendationCard struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Rationale   []string `json:"rationale"` // at most 3 entries
	Category    string   `json:"category"`
	Confidence  float64  `json:"confidence"` // [0,1]

	Effort  EffortLevel  `json:"effort"`
	Privacy PrivacyLevel `json:"privacy"`
	Safety  SafetyLevel  `json:"safety"`

	// Tunables maps capability types to slider definitions the UI can render.
	Tunables map[string]TunableControl `json:"tunables,omitempty"`

	// Storyboard is an ordered trigger/action/result preview, at most 3 steps.
	Storyboard []StoryboardStep `json:"storyboard,omitempty"`

	// Source is the combination candidate this card was built from.
	Source *CombinationCandidate `json:"source,omitempty"`
}

// TunableControl defines one user-adjustable slider on a card.
type TunableControl struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Step  float64 `json:"step"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// StoryboardStep is one step of a card's trigger→action→result preview.
type StoryboardStep struct {
	Kind        string `json:"kind"` // "trigger", "action", "result"
	Description string `json:"description"`
}

// WhatIfItem describes value the user could unlock by adding a capability
// they currently lack.
type WhatIfItem struct {
	CapabilityType   Type         `json:"capability_type"`
	Description      string       `json:"description"`
	ExampleOutcomes  []string     `json:"example_outcomes"`
	EstimatedBenefit string       `json:"estimated_benefit"`
	SetupEffort      EffortLevel  `json:"setup_effort"`
	Privacy          PrivacyLevel `json:"privacy"`
	Safety           SafetyLevel  `json:"safety"`
}
