package orchestration

import (
	"fmt"
	"time"

	"github.com/hearthline/hearth-core/internal/capability"
)

// Duration heuristic: a base cost per step plus a surcharge by step kind.
const (
	perStepDuration      = 15 * time.Second
	deviceStepSurcharge  = 10 * time.Second
	serviceStepSurcharge = 5 * time.Second

	defaultStepTimeout = 30 * time.Second
	defaultStepRetries = 1
)

// deviceActions maps each device capability type to the action one plan
// step performs against it.
var deviceActions = map[capability.Type]struct {
	action     string
	parameters capability.Params
}{
	capability.TypeLighting: {"set_lighting", capability.Params{
		"brightness": 80, "color_temp": "warm", "duration_s": 120,
	}},
	capability.TypeSensing:       {"arm_sensor", capability.Params{"sensitivity": 5}},
	capability.TypeAudio:         {"play_audio", capability.Params{"volume": 40}},
	capability.TypeVideo:         {"start_recording", capability.Params{"duration_s": 60}},
	capability.TypeSecurity:      {"arm_alarm", capability.Params{"mode": "home"}},
	capability.TypeClimate:       {"set_climate", capability.Params{"target_temp": 21.0}},
	capability.TypeEnergy:        {"report_usage", nil},
	capability.TypeActuation:     {"switch_on", nil},
	capability.TypeAccessControl: {"lock", nil},
	capability.TypeNetwork:       {"check_connectivity", nil},
}

// serviceActions maps service capability types to their call action.
var serviceActions = map[capability.Type]string{
	capability.TypeWeather:      "fetch_forecast",
	capability.TypeCalendar:     "fetch_events",
	capability.TypePresence:     "query_presence",
	capability.TypeTime:         "query_time",
	capability.TypeLocation:     "query_location",
	capability.TypeTraffic:      "fetch_traffic",
	capability.TypeNotification: "send_notification",
}

// Builder derives abstract execution plans from recommendation cards.
type Builder struct {
	now func() time.Time
}

// NewBuilder creates a plan builder.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// SetClock overrides the time source. Intended for tests.
func (b *Builder) SetClock(now func() time.Time) {
	b.now = now
}

// BuildPlan turns a recommendation card into an executable plan and
// validates it. Cards without a source candidate cannot be planned.
func (b *Builder) BuildPlan(card *capability.RecommendationCard, userID string) (*capability.ExecutionPlan, error) {
	if card == nil || card.Source == nil {
		return nil, fmt.Errorf("%w: card has no source combination", ErrPlanNotBuildable)
	}
	source := card.Source

	plan := &capability.ExecutionPlan{
		ID:               capability.NewID("plan"),
		RecommendationID: card.ID,
		UserID:           userID,
		CreatedAt:        b.now().UTC(),
	}

	for _, d := range source.Devices {
		tmpl, ok := deviceActions[d.Type]
		if !ok {
			continue
		}
		step := capability.PlanStep{
			ID:         capability.NewID("step"),
			Type:       "device_control",
			TargetID:   d.DeviceID,
			Action:     tmpl.action,
			Parameters: mergeTunables(tmpl.parameters, card.Tunables),
			Timeout:    defaultStepTimeout,
			RetryCount: defaultStepRetries,
			Privacy:    card.Privacy,
			Safety:     card.Safety,
		}
		plan.Steps = append(plan.Steps, step)

		switch d.Type {
		case capability.TypeSensing:
			plan.Triggers = append(plan.Triggers, capability.PlanTrigger{
				Type:     "motion",
				SourceID: d.DeviceID,
			})
		case capability.TypeLighting:
			// Lights revert on their own if the automation misfires.
			plan.Fallbacks = append(plan.Fallbacks, capability.PlanStep{
				ID:       capability.NewID("step"),
				Type:     "device_control",
				TargetID: d.DeviceID,
				Action:   "restore_previous",
				Timeout:  defaultStepTimeout,
				Privacy:  card.Privacy,
				Safety:   card.Safety,
			})
		}
	}

	for _, s := range source.Services {
		action, ok := serviceActions[s.Type]
		if !ok {
			continue
		}
		plan.Steps = append(plan.Steps, capability.PlanStep{
			ID:         capability.NewID("step"),
			Type:       "service_call",
			TargetID:   s.ServiceID,
			Action:     action,
			Timeout:    defaultStepTimeout,
			RetryCount: defaultStepRetries,
			Privacy:    card.Privacy,
			Safety:     card.Safety,
		})

		switch s.Type {
		case capability.TypeWeather:
			plan.Triggers = append(plan.Triggers, capability.PlanTrigger{
				Type:      "condition",
				SourceID:  s.ServiceID,
				Condition: capability.Params{"field": "forecast", "changed": true},
			})
		case capability.TypeCalendar:
			plan.Triggers = append(plan.Triggers, capability.PlanTrigger{
				Type:      "condition",
				SourceID:  s.ServiceID,
				Condition: capability.Params{"field": "event", "state": "starting"},
			})
		case capability.TypeTime:
			plan.Schedules = append(plan.Schedules, capability.PlanSchedule{
				Type: "daily",
				At:   "07:00",
			})
		}
	}

	plan.EstimatedDuration = estimateDuration(plan.Steps)

	if reasons := Validate(plan); len(reasons) > 0 {
		return nil, &ValidationError{PlanID: plan.ID, Reasons: reasons}
	}
	return plan, nil
}

// mergeTunables overlays card tunable values onto a step's default
// parameters so user edits flow through to execution.
func mergeTunables(defaults capability.Params, tunables map[string]capability.TunableControl) capability.Params {
	if defaults == nil && len(tunables) == 0 {
		return nil
	}
	merged := capability.Params{}
	for k, v := range defaults {
		merged[k] = v
	}
	for name, ctl := range tunables {
		if _, ok := merged[name]; ok {
			merged[name] = ctl.Value
		}
	}
	return merged
}

// estimateDuration applies the per-step heuristic.
func estimateDuration(steps []capability.PlanStep) time.Duration {
	d := time.Duration(len(steps)) * perStepDuration
	for _, step := range steps {
		switch step.Type {
		case "device_control":
			d += deviceStepSurcharge
		case "service_call":
			d += serviceStepSurcharge
		}
	}
	return d
}
