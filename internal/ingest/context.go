package ingest

import (
	"time"

	"github.com/hearthline/hearth-core/internal/capability"
)

// Quiet hours default to 22:00–07:00 local time when no hint overrides them.
const (
	defaultQuietStartHour = 22
	defaultQuietEndHour   = 7
)

// buildContextSnapshot derives a ContextSnapshot from the clock and the
// caller's free-form hints. Well-known hint keys:
//
//	is_quiet_hours  bool   override the clock-derived quiet-hours flag
//	user_present    bool   defaults to true
//	location        string
//	calendar_state  string "free", "busy", "meeting"
//	weather         string
//	recent_activity []string (or []any of strings)
//
// Unknown keys pass through untouched; they are simply not read here.
func buildContextSnapshot(now time.Time, sessionID string, hints capability.Params) capability.ContextSnapshot {
	snap := capability.ContextSnapshot{
		Timestamp:    now,
		TimeOfDay:    timeOfDay(now.Hour()),
		IsWeekend:    now.Weekday() == time.Saturday || now.Weekday() == time.Sunday,
		IsQuietHours: now.Hour() >= defaultQuietStartHour || now.Hour() < defaultQuietEndHour,
		UserPresent:  true,
		SessionID:    sessionID,
	}

	if v, ok := hints["is_quiet_hours"].(bool); ok {
		snap.IsQuietHours = v
	}
	if v, ok := hints["user_present"].(bool); ok {
		snap.UserPresent = v
	}
	if v, ok := hints["location"].(string); ok {
		snap.Location = v
	}
	if v, ok := hints["calendar_state"].(string); ok {
		snap.CalendarState = v
	}
	if v, ok := hints["weather"].(string); ok {
		snap.Weather = v
	}
	snap.RecentActivity = stringSlice(hints["recent_activity"])

	return snap
}

// timeOfDay buckets an hour into a named window.
func timeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 22:
		return "evening"
	default:
		return "night"
	}
}

// stringSlice coerces a hint value into []string, accepting both []string
// and the []any that json decoding produces.
func stringSlice(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}
