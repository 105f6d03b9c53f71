package powerset

import (
	"context"
	"testing"
	"time"

	"github.com/hearthline/hearth-core/internal/capability"
	"github.com/hearthline/hearth-core/internal/ingest"
)

// buildGraph assembles a minimal capability graph from typed capabilities.
func buildGraph(devices []capability.DeviceCapability, services []capability.ServiceCapability) *ingest.Graph {
	graph := &ingest.Graph{
		Devices:  make(map[string][]capability.DeviceCapability),
		Services: make(map[string]capability.ServiceCapability),
		ByRoom:   make(map[string][]string),
		ByType:   make(map[capability.Type][]string),
	}
	for _, d := range devices {
		graph.Devices[d.DeviceID] = append(graph.Devices[d.DeviceID], d)
		if d.Room != "" {
			graph.ByRoom[d.Room] = append(graph.ByRoom[d.Room], d.DeviceID)
		}
		graph.ByType[d.Type] = append(graph.ByType[d.Type], d.DeviceID)
	}
	for _, s := range services {
		graph.Services[s.ServiceID] = s
		graph.ByType[s.Type] = append(graph.ByType[s.Type], s.ServiceID)
	}
	return graph
}

func dev(t capability.Type, id, room string, reachable bool) capability.DeviceCapability {
	return capability.DeviceCapability{Type: t, DeviceID: id, Name: id, Room: room, Reachable: reachable}
}

func svc(t capability.Type, id string, available bool) capability.ServiceCapability {
	return capability.ServiceCapability{Type: t, ServiceID: id, Name: id, Available: available}
}

func dayContext() capability.ContextSnapshot {
	return capability.ContextSnapshot{
		Timestamp:    time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC),
		TimeOfDay:    "afternoon",
		IsQuietHours: false,
		UserPresent:  true,
	}
}

func signatures(candidates []*capability.CombinationCandidate) map[string]bool {
	sigs := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		sigs[c.Signature] = true
	}
	return sigs
}

func TestGenerate_KitchenScenario(t *testing.T) {
	// One reachable lighting device and one reachable sensing device in
	// the kitchen must yield, among others, the 2-element combination.
	graph := buildGraph([]capability.DeviceCapability{
		dev(capability.TypeLighting, "light-1", "kitchen", true),
		dev(capability.TypeSensing, "motion-1", "kitchen", true),
	}, nil)

	gen := NewGenerator(DefaultConfig())
	candidates := gen.Generate(context.Background(), graph, dayContext(), 2*time.Second)

	if len(candidates) == 0 {
		t.Fatal("Generate() returned no candidates")
	}

	wantSig := capability.ComputeSignature([]capability.DeviceCapability{
		dev(capability.TypeLighting, "light-1", "kitchen", true),
		dev(capability.TypeSensing, "motion-1", "kitchen", true),
	}, nil)

	if !signatures(candidates)[wantSig] {
		t.Error("lighting+sensing kitchen combination missing from candidates")
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	graph := buildGraph([]capability.DeviceCapability{
		dev(capability.TypeLighting, "light-1", "kitchen", true),
		dev(capability.TypeSensing, "motion-1", "kitchen", true),
		dev(capability.TypeClimate, "thermo-1", "bedroom", true),
	}, []capability.ServiceCapability{
		svc(capability.TypeWeather, "weather-1", true),
	})

	gen := NewGenerator(DefaultConfig())
	first := gen.Generate(context.Background(), graph, dayContext(), 2*time.Second)
	second := gen.Generate(context.Background(), graph, dayContext(), 2*time.Second)

	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Signature != second[i].Signature {
			t.Fatalf("candidate %d signature differs between runs", i)
		}
		if first[i].EstimatedValue != second[i].EstimatedValue {
			t.Fatalf("candidate %d value differs between runs", i)
		}
	}
}

func TestGenerate_PrunesUnreachableDevice(t *testing.T) {
	graph := buildGraph([]capability.DeviceCapability{
		dev(capability.TypeLighting, "light-1", "kitchen", true),
		dev(capability.TypeSensing, "motion-1", "kitchen", false), // unreachable
	}, nil)

	gen := NewGenerator(DefaultConfig())
	candidates := gen.Generate(context.Background(), graph, dayContext(), 2*time.Second)

	for _, c := range candidates {
		for _, d := range c.Devices {
			if d.DeviceID == "motion-1" {
				t.Fatal("unreachable device appeared in a candidate")
			}
		}
	}
	// The reachable singleton must survive.
	if len(candidates) != 1 {
		t.Errorf("got %d candidates, want 1 (reachable singleton)", len(candidates))
	}
}

func TestGenerate_PrunesUnavailableService(t *testing.T) {
	graph := buildGraph([]capability.DeviceCapability{
		dev(capability.TypeLighting, "light-1", "kitchen", true),
	}, []capability.ServiceCapability{
		svc(capability.TypeWeather, "weather-1", false), // unavailable
	})

	gen := NewGenerator(DefaultConfig())
	candidates := gen.Generate(context.Background(), graph, dayContext(), 2*time.Second)

	for _, c := range candidates {
		if len(c.Services) != 0 {
			t.Fatal("unavailable service appeared in a candidate")
		}
	}
}

func TestGenerate_PrunesSameTypeSameRoom(t *testing.T) {
	graph := buildGraph([]capability.DeviceCapability{
		dev(capability.TypeLighting, "light-1", "kitchen", true),
		dev(capability.TypeLighting, "light-2", "kitchen", true),
	}, nil)

	gen := NewGenerator(DefaultConfig())
	candidates := gen.Generate(context.Background(), graph, dayContext(), 2*time.Second)

	for _, c := range candidates {
		if len(c.Devices) == 2 {
			t.Fatal("same-type same-room pair should be pruned as a conflict")
		}
	}
	// The two singletons share a signature, so dedup leaves one.
	if len(candidates) != 1 {
		t.Errorf("got %d candidates, want 1 after dedup", len(candidates))
	}
}

func TestGenerate_QuietHoursAudioPruned(t *testing.T) {
	// Audio device with no safety co-capability during quiet hours must
	// not appear in any candidate.
	graph := buildGraph([]capability.DeviceCapability{
		dev(capability.TypeAudio, "speaker-1", "kitchen", true),
		dev(capability.TypeLighting, "light-1", "kitchen", true),
	}, nil)

	quiet := dayContext()
	quiet.IsQuietHours = true

	gen := NewGenerator(DefaultConfig())
	candidates := gen.Generate(context.Background(), graph, quiet, 2*time.Second)

	for _, c := range candidates {
		for _, d := range c.Devices {
			if d.DeviceID == "speaker-1" {
				t.Fatal("audio device appeared in a candidate during quiet hours")
			}
		}
	}
}

func TestGenerate_QuietHoursAudioWithSafetyKept(t *testing.T) {
	graph := buildGraph([]capability.DeviceCapability{
		dev(capability.TypeAudio, "siren-1", "hall", true),
		dev(capability.TypeSecurity, "alarm-1", "hall", true),
	}, nil)

	quiet := dayContext()
	quiet.IsQuietHours = true

	gen := NewGenerator(DefaultConfig())
	candidates := gen.Generate(context.Background(), graph, quiet, 2*time.Second)

	found := false
	for _, c := range candidates {
		if len(c.Devices) == 2 {
			found = true
		}
	}
	if !found {
		t.Error("audio+security pair should survive quiet-hours pruning")
	}
}

func TestGenerate_SignatureDedup(t *testing.T) {
	// Two lighting devices in different rooms plus the same sensing
	// device produce distinct signatures; two interchangeable lighting
	// devices in the same room collapse to one.
	graph := buildGraph([]capability.DeviceCapability{
		dev(capability.TypeLighting, "light-1", "kitchen", true),
		dev(capability.TypeLighting, "light-2", "kitchen", true),
		dev(capability.TypeSensing, "motion-1", "kitchen", true),
	}, nil)

	gen := NewGenerator(DefaultConfig())
	candidates := gen.Generate(context.Background(), graph, dayContext(), 2*time.Second)

	sigs := signatures(candidates)
	if len(sigs) != len(candidates) {
		t.Error("duplicate signatures in output")
	}

	// {light-1, motion-1} and {light-2, motion-1} share a signature.
	pairSig := capability.ComputeSignature([]capability.DeviceCapability{
		dev(capability.TypeLighting, "x", "kitchen", true),
		dev(capability.TypeSensing, "y", "kitchen", true),
	}, nil)
	if !sigs[pairSig] {
		t.Error("expected lighting+sensing pair signature in output")
	}

	count := 0
	for _, c := range candidates {
		if c.Signature == pairSig {
			count++
		}
	}
	if count != 1 {
		t.Errorf("pair signature appears %d times, want 1", count)
	}
}

func TestGenerate_RespectsMaxCombinations(t *testing.T) {
	devices := []capability.DeviceCapability{
		dev(capability.TypeLighting, "l1", "kitchen", true),
		dev(capability.TypeSensing, "s1", "kitchen", true),
		dev(capability.TypeClimate, "c1", "bedroom", true),
		dev(capability.TypeVideo, "v1", "porch", true),
		dev(capability.TypeEnergy, "e1", "garage", true),
	}

	cfg := DefaultConfig()
	cfg.MaxCombinations = 3

	gen := NewGenerator(cfg)
	candidates := gen.Generate(context.Background(), buildGraph(devices, nil), dayContext(), 2*time.Second)

	if len(candidates) > 3 {
		t.Errorf("got %d candidates, want at most 3", len(candidates))
	}
}

func TestGenerate_SortedByPreliminaryValue(t *testing.T) {
	graph := buildGraph([]capability.DeviceCapability{
		dev(capability.TypeLighting, "light-1", "kitchen", true),
		dev(capability.TypeSensing, "motion-1", "kitchen", true),
	}, []capability.ServiceCapability{
		svc(capability.TypeWeather, "weather-1", true),
	})

	gen := NewGenerator(DefaultConfig())
	candidates := gen.Generate(context.Background(), graph, dayContext(), 2*time.Second)

	for i := 1; i < len(candidates); i++ {
		if candidates[i].EstimatedValue > candidates[i-1].EstimatedValue {
			t.Fatal("candidates not sorted by estimated value descending")
		}
	}
}

func TestGenerate_BudgetReturnsCompletedTiers(t *testing.T) {
	devices := make([]capability.DeviceCapability, 8)
	rooms := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	types := []capability.Type{
		capability.TypeLighting, capability.TypeSensing, capability.TypeClimate,
		capability.TypeVideo, capability.TypeEnergy, capability.TypeActuation,
		capability.TypeSecurity, capability.TypeNetwork,
	}
	for i := range devices {
		devices[i] = dev(types[i], rooms[i], rooms[i], true)
	}

	gen := NewGenerator(DefaultConfig())

	// Clock jumps far past the deadline after the first read, so only
	// the first size tier completes.
	calls := 0
	base := time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC)
	gen.SetClock(func() time.Time {
		calls++
		if calls == 1 {
			return base
		}
		return base.Add(time.Hour)
	})

	candidates := gen.Generate(context.Background(), buildGraph(devices, nil), dayContext(), 100*time.Millisecond)

	if len(candidates) == 0 {
		t.Fatal("budget overrun must still return completed tiers")
	}
	for _, c := range candidates {
		if c.Size() != 1 {
			t.Fatalf("only size-1 tier should have completed, got size %d", c.Size())
		}
	}
}

func TestGenerate_EmptyGraph(t *testing.T) {
	graph := buildGraph(nil, nil)

	gen := NewGenerator(DefaultConfig())
	candidates := gen.Generate(context.Background(), graph, dayContext(), time.Second)

	if candidates != nil {
		t.Errorf("Generate() on empty graph = %v, want nil", candidates)
	}
}
