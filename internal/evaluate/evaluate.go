package evaluate

import (
	"sort"

	"github.com/hearthline/hearth-core/internal/capability"
)

// Value component weights. Risk is deducted directly, unweighted.
const (
	weightContextFit = 0.30
	weightUtility    = 0.25
	weightPreference = 0.20
	weightNovelty    = 0.15

	maxRiskDeduction = 0.3

	// Per-device/room affinity influence is bounded in both the
	// preference-fit component and the final overlay pass.
	maxAffinityDelta = 0.1
)

// Feasibility multipliers. A candidate is dropped once its score hits 0.
const (
	multSafetyViolation     = 0.0
	multContextualViolation = 0.5
	multUnreachableDevice   = 0.8
	multUnavailableService  = 0.9
	multRoomConflict        = 0.7
)

// baseUtility holds the fixed per-capability-type utility weights.
var baseUtility = map[capability.Type]float64{
	capability.TypeSecurity:      0.6,
	capability.TypeAccessControl: 0.5,
	capability.TypeVideo:         0.45,
	capability.TypeSensing:       0.4,
	capability.TypeLighting:      0.4,
	capability.TypeClimate:       0.35,
	capability.TypeEnergy:        0.3,
	capability.TypeActuation:     0.3,
	capability.TypeAudio:         0.25,
	capability.TypeWeather:       0.25,
	capability.TypeCalendar:      0.2,
	capability.TypeNotification:  0.2,
	capability.TypePresence:      0.2,
	capability.TypeTime:          0.15,
	capability.TypeLocation:      0.15,
	capability.TypeTraffic:       0.15,
	capability.TypeNetwork:       0.1,
}

// Logger defines the logging interface used by the Evaluator.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Result is the evaluator's output: the feasible, scored, descending-sorted
// candidates plus the union of missing-capability hints gathered along the
// way (consumed later by what-if analysis).
type Result struct {
	Feasible            []*capability.CombinationCandidate
	MissingCapabilities []string
}

// Evaluator attaches feasibility and value scores to candidates.
//
// Scoring is deterministic: the same candidates, context, and overlay
// always produce the same scores.
type Evaluator struct {
	templates []capability.OutcomeTemplate
	logger    Logger
}

// NewEvaluator creates an evaluator with the built-in outcome catalog.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		templates: capability.OutcomeCatalog(),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the evaluator.
func (e *Evaluator) SetLogger(logger Logger) {
	e.logger = logger
}

// Evaluate scores each candidate in place and returns the feasible subset
// sorted by estimated value descending.
//
// A panic while scoring one candidate drops that candidate and continues
// with the rest; it is never surfaced to the caller.
func (e *Evaluator) Evaluate(candidates []*capability.CombinationCandidate, snap capability.ContextSnapshot, overlay *capability.UserOverlay) *Result {
	result := &Result{}
	missingSeen := make(map[string]bool)

	for _, cand := range candidates {
		feasible := e.evaluateOne(cand, snap, overlay)

		for _, m := range cand.MissingCapabilities {
			if !missingSeen[m] {
				missingSeen[m] = true
				result.MissingCapabilities = append(result.MissingCapabilities, m)
			}
		}

		if feasible {
			result.Feasible = append(result.Feasible, cand)
		}
	}

	sort.SliceStable(result.Feasible, func(i, j int) bool {
		if result.Feasible[i].EstimatedValue != result.Feasible[j].EstimatedValue {
			return result.Feasible[i].EstimatedValue > result.Feasible[j].EstimatedValue
		}
		return result.Feasible[i].Signature < result.Feasible[j].Signature
	})

	return result
}

// evaluateOne scores a single candidate, recovering from panics so one bad
// candidate cannot abort the batch.
func (e *Evaluator) evaluateOne(cand *capability.CombinationCandidate, snap capability.ContextSnapshot, overlay *capability.UserOverlay) (feasible bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("candidate evaluation panicked, dropping candidate",
				"candidate_id", cand.ID,
				"panic", r,
			)
			feasible = false
		}
	}()

	cand.FeasibilityScore = e.scoreFeasibility(cand, snap)
	if cand.FeasibilityScore <= 0 {
		return false
	}

	e.scoreValue(cand, snap, overlay)
	cand.Effort = deriveEffort(cand)
	cand.Privacy = derivePrivacy(cand)
	cand.Safety = deriveSafety(cand)
	cand.MatchedOutcomes = e.matchOutcomes(cand)

	return true
}

// scoreFeasibility applies the multiplicative feasibility rules and
// records missing-capability hints on the candidate.
func (e *Evaluator) scoreFeasibility(cand *capability.CombinationCandidate, snap capability.ContextSnapshot) float64 {
	score := 1.0

	// Hard safety rule: auto-unlock capabilities are never suggested.
	for _, d := range cand.Devices {
		if d.Type == capability.TypeAccessControl {
			if auto, ok := d.Parameters["auto_unlock"].(bool); ok && auto {
				return score * multSafetyViolation
			}
		}
	}

	// Contextual rule: non-safety audio during quiet hours is penalised
	// (candidates from generation are already pruned; this covers
	// externally sourced ones).
	if snap.IsQuietHours && cand.HasType(capability.TypeAudio) {
		safety := false
		for _, t := range cand.CapabilityTypes() {
			if t.IsSafetyRelated() {
				safety = true
				break
			}
		}
		if !safety {
			score *= multContextualViolation
		}
	}

	roomTypes := make(map[string]bool, len(cand.Devices))
	conflict := false
	for _, d := range cand.Devices {
		if !d.Reachable {
			score *= multUnreachableDevice
			cand.MissingCapabilities = append(cand.MissingCapabilities, d.DeviceID, string(d.Type))
		}
		if d.Room != "" {
			key := string(d.Type) + "|" + d.Room
			if roomTypes[key] {
				conflict = true
			}
			roomTypes[key] = true
		}
	}
	if conflict {
		score *= multRoomConflict
	}

	for _, s := range cand.Services {
		if !s.Available {
			score *= multUnavailableService
			cand.MissingCapabilities = append(cand.MissingCapabilities, s.ServiceID, string(s.Type))
		}
	}

	return score
}

// scoreValue computes the weighted value sum and the final overlay pass.
func (e *Evaluator) scoreValue(cand *capability.CombinationCandidate, snap capability.ContextSnapshot, overlay *capability.UserOverlay) {
	cand.ContextFit = contextFit(cand, snap)
	cand.NoveltyScore = novelty(cand)

	value := cand.ContextFit*weightContextFit +
		utility(cand)*weightUtility +
		preferenceFit(cand, snap, overlay)*weightPreference +
		cand.NoveltyScore*weightNovelty -
		risk(cand)

	// Final overlay pass. The affinity deltas below were already applied
	// inside preference-fit; applying them again here double-counts them.
	// That behaviour is intentional and load-bearing for score
	// compatibility, so it stays.
	if overlay != nil {
		for _, d := range cand.Devices {
			value += boundedAffinityDelta(overlay.DeviceAffinity(d.DeviceID))
		}
		for _, room := range cand.Rooms() {
			value += boundedAffinityDelta(overlay.RoomAffinity(room))
		}
	}

	if value < 0 {
		value = 0
	}
	cand.EstimatedValue = value
}

// contextFit rewards combinations matching the current context, capped to
// [0,1].
func contextFit(cand *capability.CombinationCandidate, snap capability.ContextSnapshot) float64 {
	fit := 0.3

	if snap.IsQuietHours {
		// Quiet-appropriate combinations: nothing loud, nothing bright.
		if !cand.HasType(capability.TypeAudio) && !cand.HasType(capability.TypeVideo) {
			fit += 0.2
		}
	} else if cand.HasType(capability.TypeLighting) || cand.HasType(capability.TypeAudio) {
		// Active hours favour ambient comfort.
		fit += 0.2
	}

	if snap.IsWeekend {
		if cand.HasType(capability.TypeAudio) || cand.HasType(capability.TypeClimate) || cand.HasType(capability.TypeLighting) {
			fit += 0.2
		}
	}

	if snap.Weather != "" && cand.HasType(capability.TypeWeather) {
		fit += 0.3
	}

	if (snap.CalendarState == "busy" || snap.CalendarState == "meeting") &&
		(cand.HasType(capability.TypeCalendar) || cand.HasType(capability.TypeNotification)) {
		fit += 0.2
	}

	return capability.ClampUnit(fit)
}

// utility sums the fixed per-type base weights plus flat safety/energy
// bonuses.
func utility(cand *capability.CombinationCandidate) float64 {
	var u float64
	hasSafety := false
	hasEnergy := false

	for _, t := range cand.CapabilityTypes() {
		u += baseUtility[t]
		if t == capability.TypeSecurity || t == capability.TypeAccessControl {
			hasSafety = true
		}
		if t == capability.TypeEnergy {
			hasEnergy = true
		}
	}

	if hasSafety {
		u += 0.2
	}
	if hasEnergy {
		u += 0.1
	}

	return u
}

// preferenceFit starts from the neutral 0.5 baseline and nudges by the
// overlay's affinities and time-of-day profile. Neutral when no overlay
// exists yet.
func preferenceFit(cand *capability.CombinationCandidate, snap capability.ContextSnapshot, overlay *capability.UserOverlay) float64 {
	if overlay == nil {
		return 0.5
	}

	fit := 0.5
	for _, d := range cand.Devices {
		fit += boundedAffinityDelta(overlay.DeviceAffinity(d.DeviceID))
	}
	for _, room := range cand.Rooms() {
		fit += boundedAffinityDelta(overlay.RoomAffinity(room))
	}

	if profile, ok := overlay.TimeOfDayProfiles[snap.TimeOfDay]; ok {
		for _, t := range cand.CapabilityTypes() {
			if containsType(profile, t) {
				fit += 0.1
				break
			}
		}
	}

	return capability.ClampUnit(fit)
}

// boundedAffinityDelta converts an affinity in [0,1] to a signed delta
// around the 0.5 neutral point, bounded to ±maxAffinityDelta.
func boundedAffinityDelta(affinity float64) float64 {
	delta := affinity - 0.5
	if delta > maxAffinityDelta {
		return maxAffinityDelta
	}
	if delta < -maxAffinityDelta {
		return -maxAffinityDelta
	}
	return delta
}

// novelty rewards capability diversity and device/service mixing.
func novelty(cand *capability.CombinationCandidate) float64 {
	n := 0.1 * float64(len(cand.CapabilityTypes()))
	if len(cand.Devices) > 0 && len(cand.Services) > 0 {
		n += 0.2
	}
	return capability.ClampUnit(n)
}

// risk computes the direct value deduction, capped at maxRiskDeduction.
func risk(cand *capability.CombinationCandidate) float64 {
	var r float64
	if cand.HasType(capability.TypeVideo) {
		r += 0.1
	}
	if cand.HasType(capability.TypeSensing) {
		r += 0.05
	}
	if cand.HasType(capability.TypeAccessControl) {
		r += 0.05
	}
	if cand.Size() > 4 {
		r += 0.1
	}
	if r > maxRiskDeduction {
		r = maxRiskDeduction
	}
	return r
}

// matchOutcomes returns the ids of outcome templates the candidate
// satisfies. Informational metadata, never used to filter.
func (e *Evaluator) matchOutcomes(cand *capability.CombinationCandidate) []string {
	types := cand.CapabilityTypes()
	var matched []string
	for i := range e.templates {
		if e.templates[i].Matches(types) {
			matched = append(matched, e.templates[i].ID)
		}
	}
	return matched
}

func containsType(types []capability.Type, t capability.Type) bool {
	for _, ct := range types {
		if ct == t {
			return true
		}
	}
	return false
}
