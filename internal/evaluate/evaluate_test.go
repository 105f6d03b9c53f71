package evaluate

import (
	"math"
	"testing"
	"time"

	"github.com/hearthline/hearth-core/internal/capability"
)

func dev(t capability.Type, id, room string, reachable bool) capability.DeviceCapability {
	return capability.DeviceCapability{Type: t, DeviceID: id, Name: id, Room: room, Reachable: reachable}
}

func svc(t capability.Type, id string, available bool) capability.ServiceCapability {
	return capability.ServiceCapability{Type: t, ServiceID: id, Name: id, Available: available}
}

func candidate(devices []capability.DeviceCapability, services []capability.ServiceCapability) *capability.CombinationCandidate {
	return &capability.CombinationCandidate{
		ID:        capability.NewID("cand"),
		Devices:   devices,
		Services:  services,
		Signature: capability.ComputeSignature(devices, services),
	}
}

func dayContext() capability.ContextSnapshot {
	return capability.ContextSnapshot{
		Timestamp:    time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC),
		TimeOfDay:    "afternoon",
		IsQuietHours: false,
		UserPresent:  true,
	}
}

func nightContext() capability.ContextSnapshot {
	snap := dayContext()
	snap.TimeOfDay = "night"
	snap.IsQuietHours = true
	return snap
}

// === Feasibility ===

func TestEvaluate_KitchenScenarioFullyFeasible(t *testing.T) {
	// Reachable lighting plus reachable sensing in the same room violates
	// nothing, so feasibility stays at 1.0 and value is positive.
	cand := candidate([]capability.DeviceCapability{
		dev(capability.TypeLighting, "light-1", "kitchen", true),
		dev(capability.TypeSensing, "motion-1", "kitchen", true),
	}, nil)

	result := NewEvaluator().Evaluate([]*capability.CombinationCandidate{cand}, dayContext(), nil)

	if len(result.Feasible) != 1 {
		t.Fatalf("expected 1 feasible candidate, got %d", len(result.Feasible))
	}
	if cand.FeasibilityScore != 1.0 {
		t.Errorf("expected feasibility 1.0, got %v", cand.FeasibilityScore)
	}
	if cand.EstimatedValue <= 0 {
		t.Errorf("expected positive estimated value, got %v", cand.EstimatedValue)
	}
	if len(cand.MatchedOutcomes) == 0 {
		t.Error("expected lighting+sensing to match the motion-lighting outcome")
	}
}

func TestEvaluate_AutoUnlockRejected(t *testing.T) {
	lock := dev(capability.TypeAccessControl, "lock-1", "hallway", true)
	lock.Parameters = capability.Params{"auto_unlock": true}
	cand := candidate([]capability.DeviceCapability{lock}, nil)

	result := NewEvaluator().Evaluate([]*capability.CombinationCandidate{cand}, dayContext(), nil)

	if len(result.Feasible) != 0 {
		t.Fatal("auto-unlock candidate must be infeasible")
	}
	if cand.FeasibilityScore != 0 {
		t.Errorf("expected feasibility 0, got %v", cand.FeasibilityScore)
	}
}

func TestEvaluate_FeasibilityMultipliers(t *testing.T) {
	tests := []struct {
		name     string
		cand     *capability.CombinationCandidate
		snap     capability.ContextSnapshot
		expected float64
	}{
		{
			name: "unreachable device",
			cand: candidate([]capability.DeviceCapability{
				dev(capability.TypeLighting, "light-1", "kitchen", false),
			}, nil),
			snap:     dayContext(),
			expected: 0.8,
		},
		{
			name: "unavailable service",
			cand: candidate(
				[]capability.DeviceCapability{dev(capability.TypeLighting, "light-1", "kitchen", true)},
				[]capability.ServiceCapability{svc(capability.TypeWeather, "weather-1", false)},
			),
			snap:     dayContext(),
			expected: 0.9,
		},
		{
			name: "room conflict",
			cand: candidate([]capability.DeviceCapability{
				dev(capability.TypeLighting, "light-1", "kitchen", true),
				dev(capability.TypeLighting, "light-2", "kitchen", true),
			}, nil),
			snap:     dayContext(),
			expected: 0.7,
		},
		{
			name: "quiet-hours audio",
			cand: candidate([]capability.DeviceCapability{
				dev(capability.TypeAudio, "speaker-1", "bedroom", true),
			}, nil),
			snap:     nightContext(),
			expected: 0.5,
		},
		{
			name: "quiet-hours audio with safety exemption",
			cand: candidate([]capability.DeviceCapability{
				dev(capability.TypeAudio, "speaker-1", "bedroom", true),
				dev(capability.TypeSecurity, "siren-1", "hallway", true),
			}, nil),
			snap:     nightContext(),
			expected: 1.0,
		},
		{
			name: "compounding penalties",
			cand: candidate(
				[]capability.DeviceCapability{
					dev(capability.TypeLighting, "light-1", "kitchen", false),
					dev(capability.TypeLighting, "light-2", "kitchen", true),
				},
				[]capability.ServiceCapability{svc(capability.TypeWeather, "weather-1", false)},
			),
			snap:     dayContext(),
			expected: 0.8 * 0.9 * 0.7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			NewEvaluator().Evaluate([]*capability.CombinationCandidate{tt.cand}, tt.snap, nil)
			if math.Abs(tt.cand.FeasibilityScore-tt.expected) > 1e-9 {
				t.Errorf("expected feasibility %v, got %v", tt.expected, tt.cand.FeasibilityScore)
			}
		})
	}
}

func TestEvaluate_FeasibilityMonotonicity(t *testing.T) {
	// A degraded variant of the same combination never scores higher.
	healthy := candidate([]capability.DeviceCapability{
		dev(capability.TypeLighting, "light-1", "kitchen", true),
		dev(capability.TypeSensing, "motion-1", "kitchen", true),
	}, nil)
	degraded := candidate([]capability.DeviceCapability{
		dev(capability.TypeLighting, "light-1", "kitchen", true),
		dev(capability.TypeSensing, "motion-1", "kitchen", false),
	}, nil)

	NewEvaluator().Evaluate([]*capability.CombinationCandidate{healthy, degraded}, dayContext(), nil)

	if degraded.FeasibilityScore >= healthy.FeasibilityScore {
		t.Errorf("degraded feasibility %v should be below healthy %v",
			degraded.FeasibilityScore, healthy.FeasibilityScore)
	}
}

func TestEvaluate_MissingCapabilitiesUnion(t *testing.T) {
	a := candidate([]capability.DeviceCapability{
		dev(capability.TypeLighting, "light-1", "kitchen", false),
	}, nil)
	b := candidate([]capability.DeviceCapability{
		dev(capability.TypeLighting, "light-1", "kitchen", false),
		dev(capability.TypeSensing, "motion-1", "kitchen", true),
	}, nil)

	result := NewEvaluator().Evaluate([]*capability.CombinationCandidate{a, b}, dayContext(), nil)

	seen := make(map[string]int)
	for _, m := range result.MissingCapabilities {
		seen[m]++
	}
	if seen["light-1"] != 1 {
		t.Errorf("expected light-1 deduplicated to one entry, got %d", seen["light-1"])
	}
	if seen["lighting"] != 1 {
		t.Errorf("expected lighting type hint once, got %d", seen["lighting"])
	}
}

// === Value scoring ===

func TestEvaluate_NeutralPreferenceWithoutOverlay(t *testing.T) {
	cand := candidate([]capability.DeviceCapability{
		dev(capability.TypeLighting, "light-1", "kitchen", true),
	}, nil)

	if got := preferenceFit(cand, dayContext(), nil); got != 0.5 {
		t.Errorf("expected neutral 0.5 preference fit without overlay, got %v", got)
	}
}

func TestEvaluate_OverlayRaisesValue(t *testing.T) {
	base := candidate([]capability.DeviceCapability{
		dev(capability.TypeLighting, "light-1", "kitchen", true),
	}, nil)
	boosted := candidate([]capability.DeviceCapability{
		dev(capability.TypeLighting, "light-1", "kitchen", true),
	}, nil)

	overlay := capability.NewUserOverlay("user-1")
	overlay.DeviceAffinities["light-1"] = 0.9
	overlay.RoomAffinities["kitchen"] = 0.8

	ev := NewEvaluator()
	ev.Evaluate([]*capability.CombinationCandidate{base}, dayContext(), nil)
	ev.Evaluate([]*capability.CombinationCandidate{boosted}, dayContext(), overlay)

	if boosted.EstimatedValue <= base.EstimatedValue {
		t.Errorf("affinity boost should raise value: %v vs %v",
			boosted.EstimatedValue, base.EstimatedValue)
	}

	// Each affinity delta is bounded to ±0.1 and applied twice: once
	// inside preference fit, once in the final pass. The total lift must
	// stay within that bounded window.
	lift := boosted.EstimatedValue - base.EstimatedValue
	maxLift := (0.1+0.1)*weightPreference + (0.1 + 0.1)
	if lift > maxLift+1e-9 {
		t.Errorf("lift %v exceeds bounded maximum %v", lift, maxLift)
	}
}

func TestEvaluate_NegativeAffinityLowersValue(t *testing.T) {
	base := candidate([]capability.DeviceCapability{
		dev(capability.TypeAudio, "speaker-1", "den", true),
	}, nil)
	disliked := candidate([]capability.DeviceCapability{
		dev(capability.TypeAudio, "speaker-1", "den", true),
	}, nil)

	overlay := capability.NewUserOverlay("user-1")
	overlay.DeviceAffinities["speaker-1"] = 0.1

	ev := NewEvaluator()
	ev.Evaluate([]*capability.CombinationCandidate{base}, dayContext(), nil)
	ev.Evaluate([]*capability.CombinationCandidate{disliked}, dayContext(), overlay)

	if disliked.EstimatedValue >= base.EstimatedValue {
		t.Errorf("negative affinity should lower value: %v vs %v",
			disliked.EstimatedValue, base.EstimatedValue)
	}
}

func TestEvaluate_RiskCapped(t *testing.T) {
	cand := candidate([]capability.DeviceCapability{
		dev(capability.TypeVideo, "cam-1", "porch", true),
		dev(capability.TypeSensing, "motion-1", "porch", true),
		dev(capability.TypeAccessControl, "lock-1", "hallway", true),
		dev(capability.TypeLighting, "light-1", "hallway", true),
		dev(capability.TypeSecurity, "siren-1", "hallway", true),
	}, nil)

	if got := risk(cand); got != maxRiskDeduction {
		t.Errorf("expected risk capped at %v, got %v", maxRiskDeduction, got)
	}
}

func TestEvaluate_ValueNeverNegative(t *testing.T) {
	// High risk, low everything else. Value clamps at zero rather than
	// going negative.
	cand := candidate([]capability.DeviceCapability{
		dev(capability.TypeVideo, "cam-1", "porch", true),
	}, nil)

	overlay := capability.NewUserOverlay("user-1")
	overlay.DeviceAffinities["cam-1"] = 0.0

	NewEvaluator().Evaluate([]*capability.CombinationCandidate{cand}, nightContext(), overlay)

	if cand.EstimatedValue < 0 {
		t.Errorf("value must not be negative, got %v", cand.EstimatedValue)
	}
}

func TestEvaluate_SortedByValueDescending(t *testing.T) {
	rich := candidate([]capability.DeviceCapability{
		dev(capability.TypeSecurity, "siren-1", "hallway", true),
		dev(capability.TypeLighting, "light-1", "kitchen", true),
	}, nil)
	poor := candidate([]capability.DeviceCapability{
		dev(capability.TypeNetwork, "router-1", "closet", true),
	}, nil)

	result := NewEvaluator().Evaluate([]*capability.CombinationCandidate{poor, rich}, dayContext(), nil)

	if len(result.Feasible) != 2 {
		t.Fatalf("expected 2 feasible, got %d", len(result.Feasible))
	}
	if result.Feasible[0].EstimatedValue < result.Feasible[1].EstimatedValue {
		t.Error("feasible candidates not sorted by value descending")
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	build := func() []*capability.CombinationCandidate {
		return []*capability.CombinationCandidate{
			candidate([]capability.DeviceCapability{
				dev(capability.TypeLighting, "light-1", "kitchen", true),
				dev(capability.TypeSensing, "motion-1", "kitchen", true),
			}, []capability.ServiceCapability{
				svc(capability.TypeWeather, "weather-1", true),
			}),
			candidate([]capability.DeviceCapability{
				dev(capability.TypeSecurity, "siren-1", "hallway", true),
			}, nil),
		}
	}

	overlay := capability.NewUserOverlay("user-1")
	overlay.DeviceAffinities["light-1"] = 0.7

	first := NewEvaluator().Evaluate(build(), dayContext(), overlay)
	second := NewEvaluator().Evaluate(build(), dayContext(), overlay)

	if len(first.Feasible) != len(second.Feasible) {
		t.Fatalf("feasible counts differ: %d vs %d", len(first.Feasible), len(second.Feasible))
	}
	for i := range first.Feasible {
		if first.Feasible[i].EstimatedValue != second.Feasible[i].EstimatedValue {
			t.Errorf("value differs at %d: %v vs %v", i,
				first.Feasible[i].EstimatedValue, second.Feasible[i].EstimatedValue)
		}
		if first.Feasible[i].FeasibilityScore != second.Feasible[i].FeasibilityScore {
			t.Errorf("feasibility differs at %d", i)
		}
	}
}

// === Derived grades ===

func TestDeriveLevels(t *testing.T) {
	tests := []struct {
		name    string
		devices []capability.DeviceCapability
		effort  capability.EffortLevel
		privacy capability.PrivacyLevel
		safety  capability.SafetyLevel
	}{
		{
			name: "single light",
			devices: []capability.DeviceCapability{
				dev(capability.TypeLighting, "light-1", "kitchen", true),
			},
			effort:  capability.EffortNone,
			privacy: capability.PrivacyPublic,
			safety:  capability.SafetySafe,
		},
		{
			name: "light plus motion",
			devices: []capability.DeviceCapability{
				dev(capability.TypeLighting, "light-1", "kitchen", true),
				dev(capability.TypeSensing, "motion-1", "kitchen", true),
			},
			effort:  capability.EffortLow,
			privacy: capability.PrivacyPersonal,
			safety:  capability.SafetySafe,
		},
		{
			name: "camera and lock",
			devices: []capability.DeviceCapability{
				dev(capability.TypeVideo, "cam-1", "porch", true),
				dev(capability.TypeAccessControl, "lock-1", "hallway", true),
			},
			effort:  capability.EffortLow,
			privacy: capability.PrivacySensitive,
			safety:  capability.SafetyDangerous,
		},
		{
			name: "lock and alarm",
			devices: []capability.DeviceCapability{
				dev(capability.TypeAccessControl, "lock-1", "hallway", true),
				dev(capability.TypeSecurity, "siren-1", "hallway", true),
			},
			effort:  capability.EffortLow,
			privacy: capability.PrivacyPersonal,
			safety:  capability.SafetyRestricted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand := candidate(tt.devices, nil)
			if got := deriveEffort(cand); got != tt.effort {
				t.Errorf("effort: expected %s, got %s", tt.effort, got)
			}
			if got := derivePrivacy(cand); got != tt.privacy {
				t.Errorf("privacy: expected %s, got %s", tt.privacy, got)
			}
			if got := deriveSafety(cand); got != tt.safety {
				t.Errorf("safety: expected %s, got %s", tt.safety, got)
			}
		})
	}
}
