package powerset

import (
	"context"
	"sort"
	"time"

	"github.com/hearthline/hearth-core/internal/capability"
	"github.com/hearthline/hearth-core/internal/ingest"
)

// Config bounds the generator's search.
type Config struct {
	// MinSize and MaxSize bound combination sizes (inclusive).
	MinSize int
	MaxSize int

	// MaxCombinations caps the result after dedup and sorting.
	MaxCombinations int
}

// DefaultConfig returns the standard generation bounds.
func DefaultConfig() Config {
	return Config{
		MinSize:         1,
		MaxSize:         5,
		MaxCombinations: 1000,
	}
}

// Logger defines the logging interface used by the Generator.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// element is one entry in the flattened device+service list combinations
// are drawn from.
type element struct {
	device  *capability.DeviceCapability
	service *capability.ServiceCapability
}

func (e element) capType() capability.Type {
	if e.device != nil {
		return e.device.Type
	}
	return e.service.Type
}

// Generator enumerates combinations of capabilities worth evaluating.
//
// Combinations are generated by increasing size. After each size tier the
// elapsed time is checked against the budget; on overrun the tiers already
// completed are still returned, so a timeout alone never empties the result.
type Generator struct {
	cfg       Config
	templates []capability.OutcomeTemplate
	logger    Logger
	now       func() time.Time
}

// NewGenerator creates a generator with the given bounds and the built-in
// outcome template catalog.
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg:       cfg,
		templates: capability.OutcomeCatalog(),
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger for the generator.
func (g *Generator) SetLogger(logger Logger) {
	g.logger = logger
}

// SetClock overrides the time source. Intended for tests.
func (g *Generator) SetClock(now func() time.Time) {
	g.now = now
}

// Generate enumerates, prunes, deduplicates, and ranks combination
// candidates from the capability graph.
//
// The result is sorted by preliminary estimated value descending (a cheap
// heuristic, not the evaluator's final score) and truncated to the
// configured maximum. Output is deterministic for a given graph and
// context, aside from candidate id generation.
func (g *Generator) Generate(ctx context.Context, graph *ingest.Graph, snap capability.ContextSnapshot, budget time.Duration) []*capability.CombinationCandidate {
	elements := flatten(graph)
	if len(elements) == 0 {
		return nil
	}

	start := g.now()
	deadline := start.Add(budget)

	var all []*capability.CombinationCandidate
	seen := make(map[string]bool)

	maxSize := g.cfg.MaxSize
	if maxSize > len(elements) {
		maxSize = len(elements)
	}

	for size := g.cfg.MinSize; size <= maxSize; size++ {
		// Budget and cancellation are checked between tiers only;
		// a tier in progress runs to completion.
		if size > g.cfg.MinSize {
			if budget > 0 && g.now().After(deadline) {
				g.logger.Debug("generation budget exhausted",
					"completed_sizes", size-1,
					"candidates", len(all),
				)
				break
			}
			if ctx.Err() != nil {
				break
			}
		}

		combos := g.generateTier(elements, size, snap)
		for _, cand := range combos {
			if seen[cand.Signature] {
				continue // first-seen representative wins
			}
			seen[cand.Signature] = true
			all = append(all, cand)
		}
	}

	// Rank by preliminary value, signature as deterministic tie-break.
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].EstimatedValue != all[j].EstimatedValue {
			return all[i].EstimatedValue > all[j].EstimatedValue
		}
		return all[i].Signature < all[j].Signature
	})

	if g.cfg.MaxCombinations > 0 && len(all) > g.cfg.MaxCombinations {
		all = all[:g.cfg.MaxCombinations]
	}

	return all
}

// generateTier produces all surviving combinations of exactly size elements.
func (g *Generator) generateTier(elements []element, size int, snap capability.ContextSnapshot) []*capability.CombinationCandidate {
	var out []*capability.CombinationCandidate

	indices := make([]int, size)
	var recurse func(start, depth int)
	recurse = func(start, depth int) {
		if depth == size {
			if cand := g.buildCandidate(elements, indices, snap); cand != nil {
				out = append(out, cand)
			}
			return
		}
		for i := start; i <= len(elements)-(size-depth); i++ {
			indices[depth] = i
			recurse(i+1, depth+1)
		}
	}
	recurse(0, 0)

	return out
}

// buildCandidate applies early pruning to a combination and, if it
// survives, constructs the candidate with its signature and preliminary
// value. Returns nil for pruned combinations.
func (g *Generator) buildCandidate(elements []element, indices []int, snap capability.ContextSnapshot) *capability.CombinationCandidate {
	if len(indices) == 0 {
		return nil
	}

	roomTypes := make(map[string]bool, len(indices))
	hasAudio := false
	hasSafety := false

	for _, idx := range indices {
		el := elements[idx]

		if el.device != nil {
			if !el.device.Reachable {
				return nil
			}
			if el.device.Room != "" {
				key := string(el.device.Type) + "|" + el.device.Room
				if roomTypes[key] {
					// Two same-type devices sharing a room is a
					// conflict, not a valid signal.
					return nil
				}
				roomTypes[key] = true
			}
		} else if !el.service.Available {
			return nil
		}

		t := el.capType()
		if t == capability.TypeAudio {
			hasAudio = true
		}
		if t.IsSafetyRelated() {
			hasSafety = true
		}
	}

	// Audio during quiet hours is disallowed unless the combination also
	// carries a safety capability (a siren may still need to sound).
	if snap.IsQuietHours && hasAudio && !hasSafety {
		return nil
	}

	devices := make([]capability.DeviceCapability, 0, len(indices))
	services := make([]capability.ServiceCapability, 0, len(indices))
	for _, idx := range indices {
		el := elements[idx]
		if el.device != nil {
			devices = append(devices, *el.device)
		} else {
			services = append(services, *el.service)
		}
	}

	cand := &capability.CombinationCandidate{
		ID:        capability.NewID("cand"),
		Devices:   devices,
		Services:  services,
		Signature: capability.ComputeSignature(devices, services),
	}

	// Soft outcome filter: combinations satisfying a known outcome
	// template pass; unmatched combinations are default-accepted rather
	// than pruned, so novel patterns still reach the evaluator.
	if !g.matchesAnyTemplate(cand) && !defaultAcceptUnmatched {
		return nil
	}

	cand.EstimatedValue = preliminaryValue(cand)
	return cand
}

// defaultAcceptUnmatched controls whether combinations matching no outcome
// template survive the soft filter. Flipping this to false makes template
// matching a hard requirement.
const defaultAcceptUnmatched = true

// matchesAnyTemplate reports whether the candidate's type set satisfies at
// least one outcome template's required set.
func (g *Generator) matchesAnyTemplate(cand *capability.CombinationCandidate) bool {
	types := cand.CapabilityTypes()
	for i := range g.templates {
		if g.templates[i].Matches(types) {
			return true
		}
	}
	return false
}

// preliminaryValue is the cheap ranking heuristic applied before the
// evaluator's full scoring: capability diversity plus a bonus for mixing
// devices with services.
func preliminaryValue(cand *capability.CombinationCandidate) float64 {
	value := 0.1 * float64(len(cand.CapabilityTypes()))
	if len(cand.Devices) > 0 && len(cand.Services) > 0 {
		value += 0.2
	}
	return value
}

// flatten produces the deterministic element list combinations are drawn
// from: device capabilities first (sorted by device id, then type), then
// service capabilities (sorted by service id).
func flatten(graph *ingest.Graph) []element {
	deviceIDs := make([]string, 0, len(graph.Devices))
	for id := range graph.Devices {
		deviceIDs = append(deviceIDs, id)
	}
	sort.Strings(deviceIDs)

	var elements []element
	for _, id := range deviceIDs {
		caps := graph.Devices[id]
		sorted := make([]capability.DeviceCapability, len(caps))
		copy(sorted, caps)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Type < sorted[j].Type })
		for i := range sorted {
			elements = append(elements, element{device: &sorted[i]})
		}
	}

	serviceIDs := make([]string, 0, len(graph.Services))
	for id := range graph.Services {
		serviceIDs = append(serviceIDs, id)
	}
	sort.Strings(serviceIDs)

	for _, id := range serviceIDs {
		sc := graph.Services[id]
		elements = append(elements, element{service: &sc})
	}

	return elements
}
