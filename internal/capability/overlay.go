package capability

import "time"

// UserOverlay is durable per-user learning state. It biases future scoring
// and is the only mutable shared structure in the pipeline.
//
// Invariant: all affinities stay clamped to [0,1]. Pattern-entry strengths
// decay toward 0 over time and entries below the strength floor are pruned.
type UserOverlay struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Preference biases, each in [0,1]. 0.5 is neutral.
	EnergyVsComfort        float64 `json:"energy_vs_comfort"`
	SafetyVsConvenience    float64 `json:"safety_vs_convenience"`
	PrivacyVsFunctionality float64 `json:"privacy_vs_functionality"`

	// Affinities in [0,1], keyed by device id / room name.
	DeviceAffinities map[string]float64 `json:"device_affinities,omitempty"`
	RoomAffinities   map[string]float64 `json:"room_affinities,omitempty"`

	// TimeOfDayProfiles maps time-of-day names ("morning", ...) to the
	// capability types the user favours in that window.
	TimeOfDayProfiles map[string][]Type `json:"time_of_day_profiles,omitempty"`

	AcceptedPatterns []PatternEntry `json:"accepted_patterns,omitempty"`
	RejectedPatterns []PatternEntry `json:"rejected_patterns,omitempty"`

	// Quiet-hours bounds in "HH:MM" local time.
	QuietHoursStart string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd   string `json:"quiet_hours_end,omitempty"`

	// Behaviour modes: "normal", "do_not_disturb", "away".
	MeetingMode string `json:"meeting_mode,omitempty"`
	SleepMode   string `json:"sleep_mode,omitempty"`
}

// PatternEntry records one learned accepted or rejected pattern.
type PatternEntry struct {
	PatternKey string    `json:"pattern_key"` // capability signature
	Timestamp  time.Time `json:"timestamp"`
	Context    Params    `json:"context,omitempty"` // snapshot excerpt
	Strength   float64   `json:"strength"`
	Reason     string    `json:"reason,omitempty"`
}

// NewUserOverlay creates an overlay with neutral biases for a user.
func NewUserOverlay(userID string) *UserOverlay {
	now := time.Now().UTC()
	return &UserOverlay{
		UserID:                 userID,
		CreatedAt:              now,
		UpdatedAt:              now,
		EnergyVsComfort:        0.5,
		SafetyVsConvenience:    0.5,
		PrivacyVsFunctionality: 0.5,
		DeviceAffinities:       make(map[string]float64),
		RoomAffinities:         make(map[string]float64),
		TimeOfDayProfiles:      make(map[string][]Type),
	}
}

// DeviceAffinity returns the stored affinity for deviceID, or the neutral
// 0.5 baseline if the device has never received feedback.
func (o *UserOverlay) DeviceAffinity(deviceID string) float64 {
	if v, ok := o.DeviceAffinities[deviceID]; ok {
		return v
	}
	return 0.5
}

// RoomAffinity returns the stored affinity for room, or the neutral
// 0.5 baseline.
func (o *UserOverlay) RoomAffinity(room string) float64 {
	if v, ok := o.RoomAffinities[room]; ok {
		return v
	}
	return 0.5
}

// AdjustDeviceAffinity moves a device affinity by delta from its current
// value (0.5 baseline if unset), clamping to [0,1].
func (o *UserOverlay) AdjustDeviceAffinity(deviceID string, delta float64) {
	if o.DeviceAffinities == nil {
		o.DeviceAffinities = make(map[string]float64)
	}
	o.DeviceAffinities[deviceID] = ClampUnit(o.DeviceAffinity(deviceID) + delta)
}

// AdjustRoomAffinity moves a room affinity by delta, clamping to [0,1].
func (o *UserOverlay) AdjustRoomAffinity(room string, delta float64) {
	if o.RoomAffinities == nil {
		o.RoomAffinities = make(map[string]float64)
	}
	o.RoomAffinities[room] = ClampUnit(o.RoomAffinity(room) + delta)
}

// ClampUnit clamps v to [0,1].
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// DeepCopy creates a complete independent copy of the overlay.
// All map and slice fields are cloned so modifications to the copy
// do not affect the original. This is essential for cache isolation.
func (o *UserOverlay) DeepCopy() *UserOverlay {
	if o == nil {
		return nil
	}

	cpy := *o // Shallow copy of value fields

	if o.DeviceAffinities != nil {
		cpy.DeviceAffinities = make(map[string]float64, len(o.DeviceAffinities))
		for k, v := range o.DeviceAffinities {
			cpy.DeviceAffinities[k] = v
		}
	}
	if o.RoomAffinities != nil {
		cpy.RoomAffinities = make(map[string]float64, len(o.RoomAffinities))
		for k, v := range o.RoomAffinities {
			cpy.RoomAffinities[k] = v
		}
	}
	if o.TimeOfDayProfiles != nil {
		cpy.TimeOfDayProfiles = make(map[string][]Type, len(o.TimeOfDayProfiles))
		for k, v := range o.TimeOfDayProfiles {
			types := make([]Type, len(v))
			copy(types, v)
			cpy.TimeOfDayProfiles[k] = types
		}
	}
	cpy.AcceptedPatterns = deepCopyPatterns(o.AcceptedPatterns)
	cpy.RejectedPatterns = deepCopyPatterns(o.RejectedPatterns)

	return &cpy
}

func deepCopyPatterns(entries []PatternEntry) []PatternEntry {
	if entries == nil {
		return nil
	}
	cpy := make([]PatternEntry, len(entries))
	for i, e := range entries {
		cpy[i] = e
		cpy[i].Context = deepCopyParams(e.Context)
	}
	return cpy
}

// deepCopyParams creates a deep copy of a Params map.
// Nested maps and slices are recursively copied.
func deepCopyParams(m Params) Params {
	if m == nil {
		return nil
	}
	cpy := make(Params, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyParams(val)
	case Params:
		return deepCopyParams(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Primitives are safe to copy by value
		return v
	}
}
