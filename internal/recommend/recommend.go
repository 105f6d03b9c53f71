package recommend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hearthline/hearth-core/internal/capability"
)

// maxInputCandidates bounds how many feasible candidates are considered
// for packaging; the input arrives sorted by value descending, so
// truncation keeps the best.
const maxInputCandidates = 10

const (
	clusterRecurrenceBonus = 0.1
	highFeasibilityBonus   = 0.1
	highFeasibilityFloor   = 0.9
	highEffortPenalty      = 0.1
)

// Logger defines the logging interface used by the Packager.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Package is the packager's output: user-facing cards sorted by
// confidence plus what-if hints for capabilities the home lacks.
type Package struct {
	Cards  []capability.RecommendationCard `json:"cards"`
	WhatIf []capability.WhatIfItem         `json:"what_if,omitempty"`
}

// Packager turns scored combination candidates into recommendation cards.
type Packager struct {
	logger Logger
}

// NewPackager creates a packager.
func NewPackager() *Packager {
	return &Packager{logger: noopLogger{}}
}

// SetLogger sets the logger for the packager.
func (p *Packager) SetLogger(logger Logger) {
	p.logger = logger
}

// Build packages the top candidates into cards and derives what-if items
// from the missing-capability hints.
func (p *Packager) Build(candidates []*capability.CombinationCandidate, missing []string) *Package {
	if len(candidates) > maxInputCandidates {
		candidates = candidates[:maxInputCandidates]
	}

	clusters := clusterBySignature(candidates)

	pkg := &Package{}
	for _, cluster := range clusters {
		pkg.Cards = append(pkg.Cards, p.buildCard(cluster))
	}

	sort.SliceStable(pkg.Cards, func(i, j int) bool {
		if pkg.Cards[i].Confidence != pkg.Cards[j].Confidence {
			return pkg.Cards[i].Confidence > pkg.Cards[j].Confidence
		}
		return pkg.Cards[i].Title < pkg.Cards[j].Title
	})

	pkg.WhatIf = buildWhatIf(missing)
	return pkg
}

// cluster groups candidates sharing an exact signature. The first member
// is the representative; it arrived first in value order.
type cluster struct {
	representative *capability.CombinationCandidate
	size           int
}

func clusterBySignature(candidates []*capability.CombinationCandidate) []*cluster {
	index := make(map[string]*cluster)
	var ordered []*cluster
	for _, cand := range candidates {
		if c, ok := index[cand.Signature]; ok {
			c.size++
			continue
		}
		c := &cluster{representative: cand, size: 1}
		index[cand.Signature] = c
		ordered = append(ordered, c)
	}
	return ordered
}

func (p *Packager) buildCard(c *cluster) capability.RecommendationCard {
	cand := c.representative
	top := topCapabilityType(cand)

	card := capability.RecommendationCard{
		ID:          capability.NewID("rec"),
		Title:       buildTitle(cand, top),
		Description: buildDescription(cand, top),
		Rationale:   buildRationale(cand),
		Category:    string(top),
		Confidence:  confidence(c),
		Effort:      cand.Effort,
		Privacy:     cand.Privacy,
		Safety:      cand.Safety,
		Tunables:    buildTunables(cand),
		Storyboard:  buildStoryboard(cand),
		Source:      cand,
	}
	return card
}

// confidence blends the candidate's value with cluster and feasibility
// signals, clamped to [0,1].
func confidence(c *cluster) float64 {
	cand := c.representative
	conf := cand.EstimatedValue
	if c.size > 1 {
		conf += clusterRecurrenceBonus
	}
	if cand.FeasibilityScore > highFeasibilityFloor {
		conf += highFeasibilityBonus
	}
	if cand.Effort == capability.EffortHigh {
		conf -= highEffortPenalty
	}
	return capability.ClampUnit(conf)
}

// buildRationale explains, in at most three short lines, why the card is
// worth showing.
func buildRationale(cand *capability.CombinationCandidate) []string {
	var lines []string
	if cand.FeasibilityScore > highFeasibilityFloor {
		lines = append(lines, "All required devices are reachable right now")
	}
	if cand.ContextFit >= 0.5 {
		lines = append(lines, "Fits your current routine and time of day")
	}
	if len(cand.MatchedOutcomes) > 0 {
		lines = append(lines, "Matches a proven home automation pattern")
	}
	if cand.NoveltyScore >= 0.3 && len(lines) < 3 {
		lines = append(lines, "Combines capabilities you have not paired before")
	}
	if len(lines) > 3 {
		lines = lines[:3]
	}
	return lines
}

// topCapabilityType picks the card's leading capability by fixed priority.
func topCapabilityType(cand *capability.CombinationCandidate) capability.Type {
	priority := []capability.Type{
		capability.TypeSecurity,
		capability.TypeAccessControl,
		capability.TypeVideo,
		capability.TypeSensing,
		capability.TypeLighting,
		capability.TypeClimate,
		capability.TypeEnergy,
		capability.TypeActuation,
		capability.TypeAudio,
		capability.TypeWeather,
		capability.TypeCalendar,
		capability.TypePresence,
	}
	for _, t := range priority {
		if cand.HasType(t) {
			return t
		}
	}
	types := cand.CapabilityTypes()
	if len(types) > 0 {
		return types[0]
	}
	return capability.TypeActuation
}

var titleByType = map[capability.Type]string{
	capability.TypeSecurity:      "Home Security Boost",
	capability.TypeAccessControl: "Smarter Entry",
	capability.TypeVideo:         "Keep an Eye on Things",
	capability.TypeSensing:       "Aware Home",
	capability.TypeLighting:      "Smarter Lighting",
	capability.TypeClimate:       "Comfort on Autopilot",
	capability.TypeEnergy:        "Trim Your Energy Use",
	capability.TypeActuation:     "Hands-Free Control",
	capability.TypeAudio:         "Sound Where You Are",
	capability.TypeWeather:       "Weather-Aware Home",
	capability.TypeCalendar:      "Schedule-Aware Home",
	capability.TypePresence:      "Presence-Aware Home",
}

func buildTitle(cand *capability.CombinationCandidate, top capability.Type) string {
	title, ok := titleByType[top]
	if !ok {
		title = "Home Automation Idea"
	}
	rooms := cand.Rooms()
	if len(rooms) == 1 {
		title += " in the " + titleCase(rooms[0])
	}
	return title
}

func buildDescription(cand *capability.CombinationCandidate, top capability.Type) string {
	switch {
	case cand.HasType(capability.TypeLighting) && cand.HasType(capability.TypeSensing):
		return "Turn on motion-activated lighting so lights come on only when someone is there."
	case cand.HasType(capability.TypeSecurity) && cand.HasType(capability.TypeVideo):
		return "Link your camera and alarm so recording starts whenever the alarm trips."
	case cand.HasType(capability.TypeAccessControl) && cand.HasType(capability.TypeSensing):
		return "Get notified and light the way when the door opens."
	case cand.HasType(capability.TypeClimate) && cand.HasType(capability.TypeSensing):
		return "Let the thermostat follow the rooms you actually use."
	case cand.HasType(capability.TypeEnergy):
		return "Spot and cut standby power draw automatically."
	case top == capability.TypeWeather:
		return "Adjust your home ahead of the weather instead of after it."
	default:
		return fmt.Sprintf("Put your %s devices to work together automatically.", top)
	}
}

var tunablesByType = map[capability.Type]map[string]capability.TunableControl{
	capability.TypeLighting: {
		"brightness": {Label: "Brightness", Min: 0, Max: 100, Step: 5, Value: 80, Unit: "%"},
		"duration":   {Label: "Stay-on time", Min: 30, Max: 600, Step: 30, Value: 120, Unit: "s"},
	},
	capability.TypeSensing: {
		"sensitivity": {Label: "Motion sensitivity", Min: 1, Max: 10, Step: 1, Value: 5, Unit: ""},
	},
	capability.TypeAudio: {
		"volume": {Label: "Volume", Min: 0, Max: 100, Step: 5, Value: 40, Unit: "%"},
	},
	capability.TypeClimate: {
		"target_temp": {Label: "Target temperature", Min: 14, Max: 28, Step: 0.5, Value: 21, Unit: "°C"},
	},
}

func buildTunables(cand *capability.CombinationCandidate) map[string]capability.TunableControl {
	out := make(map[string]capability.TunableControl)
	for _, t := range cand.CapabilityTypes() {
		for name, ctl := range tunablesByType[t] {
			out[name] = ctl
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// buildStoryboard sketches the experience in at most three steps:
// trigger, action, result.
func buildStoryboard(cand *capability.CombinationCandidate) []capability.StoryboardStep {
	var steps []capability.StoryboardStep

	switch {
	case cand.HasType(capability.TypeSensing):
		steps = append(steps, capability.StoryboardStep{
			Kind: "trigger", Description: "Motion is detected",
		})
	case cand.HasType(capability.TypeWeather):
		steps = append(steps, capability.StoryboardStep{
			Kind: "trigger", Description: "The forecast changes",
		})
	case cand.HasType(capability.TypeCalendar):
		steps = append(steps, capability.StoryboardStep{
			Kind: "trigger", Description: "A calendar event starts",
		})
	}

	actionByType := []struct {
		t    capability.Type
		desc string
	}{
		{capability.TypeLighting, "The lights adjust themselves"},
		{capability.TypeSecurity, "The alarm arms and alerts you"},
		{capability.TypeVideo, "The camera starts recording"},
		{capability.TypeAccessControl, "The door secures itself"},
		{capability.TypeClimate, "The temperature adapts"},
		{capability.TypeAudio, "Your audio follows you"},
		{capability.TypeActuation, "The right devices switch on"},
	}
	for _, a := range actionByType {
		if cand.HasType(a.t) {
			steps = append(steps, capability.StoryboardStep{Kind: "action", Description: a.desc})
			break
		}
	}

	result := "Automated home experience"
	if rooms := cand.Rooms(); len(rooms) == 1 {
		result = "A " + strings.ToLower(rooms[0]) + " that responds on its own"
	}
	steps = append(steps, capability.StoryboardStep{Kind: "result", Description: result})

	if len(steps) > 3 {
		steps = steps[:3]
	}
	return steps
}

// whatIfByType describes what adding a missing capability would unlock.
var whatIfByType = map[capability.Type]capability.WhatIfItem{
	capability.TypeSensing: {
		Description:      "Adding a motion sensor would unlock presence-based automation.",
		ExampleOutcomes:  []string{"Motion-activated lighting", "Occupancy-aware heating"},
		EstimatedBenefit: "high",
		SetupEffort:      capability.EffortLow,
		Privacy:          capability.PrivacyPersonal,
		Safety:           capability.SafetySafe,
	},
	capability.TypeLighting: {
		Description:      "Adding a smart light would unlock automatic scenes.",
		ExampleOutcomes:  []string{"Motion-activated lighting", "Sunset ambience"},
		EstimatedBenefit: "high",
		SetupEffort:      capability.EffortLow,
		Privacy:          capability.PrivacyPublic,
		Safety:           capability.SafetySafe,
	},
	capability.TypeVideo: {
		Description:      "Adding a camera would unlock visual alerts and recording.",
		ExampleOutcomes:  []string{"Doorbell snapshots", "Alarm-triggered recording"},
		EstimatedBenefit: "medium",
		SetupEffort:      capability.EffortMedium,
		Privacy:          capability.PrivacySensitive,
		Safety:           capability.SafetySafe,
	},
	capability.TypeSecurity: {
		Description:      "Adding an alarm would unlock whole-home protection modes.",
		ExampleOutcomes:  []string{"Away-mode arming", "Intrusion alerts"},
		EstimatedBenefit: "high",
		SetupEffort:      capability.EffortMedium,
		Privacy:          capability.PrivacyPersonal,
		Safety:           capability.SafetyCaution,
	},
	capability.TypeAccessControl: {
		Description:      "Adding a smart lock would unlock arrival routines.",
		ExampleOutcomes:  []string{"Safe-arrival notifications", "Guest access windows"},
		EstimatedBenefit: "medium",
		SetupEffort:      capability.EffortMedium,
		Privacy:          capability.PrivacyPrivate,
		Safety:           capability.SafetyDangerous,
	},
	capability.TypeClimate: {
		Description:      "Adding a thermostat would unlock comfort schedules.",
		ExampleOutcomes:  []string{"Wake-up warmth", "Away-mode setback"},
		EstimatedBenefit: "medium",
		SetupEffort:      capability.EffortMedium,
		Privacy:          capability.PrivacyPublic,
		Safety:           capability.SafetyCaution,
	},
	capability.TypeEnergy: {
		Description:      "Adding an energy meter would unlock usage insights.",
		ExampleOutcomes:  []string{"Standby-drain alerts", "Off-peak scheduling"},
		EstimatedBenefit: "medium",
		SetupEffort:      capability.EffortLow,
		Privacy:          capability.PrivacyPersonal,
		Safety:           capability.SafetySafe,
	},
	capability.TypeAudio: {
		Description:      "Adding a speaker would unlock spoken notifications.",
		ExampleOutcomes:  []string{"Doorbell announcements", "Morning briefing"},
		EstimatedBenefit: "low",
		SetupEffort:      capability.EffortLow,
		Privacy:          capability.PrivacyPersonal,
		Safety:           capability.SafetySafe,
	},
	capability.TypeActuation: {
		Description:      "Adding a smart plug would unlock appliance control.",
		ExampleOutcomes:  []string{"Auto-off appliances", "Scheduled devices"},
		EstimatedBenefit: "low",
		SetupEffort:      capability.EffortLow,
		Privacy:          capability.PrivacyPublic,
		Safety:           capability.SafetySafe,
	},
}

// buildWhatIf dedupes missing-capability hints by capability type and
// maps each to its unlock suggestion. Entries that are not capability
// types (device or service ids) are ignored.
func buildWhatIf(missing []string) []capability.WhatIfItem {
	seen := make(map[capability.Type]bool)
	var items []capability.WhatIfItem
	for _, m := range missing {
		t := capability.Type(m)
		if !t.IsValid() || seen[t] {
			continue
		}
		seen[t] = true
		item, ok := whatIfByType[t]
		if !ok {
			item = capability.WhatIfItem{
				Description:      fmt.Sprintf("Adding a %s capability would unlock more combinations.", t),
				EstimatedBenefit: "low",
				SetupEffort:      capability.EffortLow,
				Privacy:          capability.PrivacyPublic,
				Safety:           capability.SafetySafe,
			}
		}
		item.CapabilityType = t
		items = append(items, item)
	}
	return items
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
