package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/hearthline/hearth-core/internal/capability"
	"github.com/hearthline/hearth-core/internal/inventory"
)

// Source supplies the raw device and service records ingestion normalizes.
// *inventory.Registry satisfies this interface.
type Source interface {
	ListDevices(ctx context.Context) ([]inventory.RawDevice, error)
	ListServices(ctx context.Context) ([]inventory.RawService, error)
}

// Logger defines the logging interface used by the Ingestor.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Graph is the normalized capability graph for one suggestion request.
// It is request-scoped and never shared across requests.
type Graph struct {
	// Devices maps device id to the typed capabilities that device exposes.
	Devices map[string][]capability.DeviceCapability

	// Services maps service id to its single typed capability.
	Services map[string]capability.ServiceCapability

	// ByRoom indexes device ids by room name.
	ByRoom map[string][]string

	// ByType indexes device and service ids by capability type.
	ByType map[capability.Type][]string
}

// AllDeviceCapabilities flattens the device side of the graph.
func (g *Graph) AllDeviceCapabilities() []capability.DeviceCapability {
	var caps []capability.DeviceCapability
	for _, dcaps := range g.Devices {
		caps = append(caps, dcaps...)
	}
	return caps
}

// AllServiceCapabilities flattens the service side of the graph.
func (g *Graph) AllServiceCapabilities() []capability.ServiceCapability {
	caps := make([]capability.ServiceCapability, 0, len(g.Services))
	for _, sc := range g.Services {
		caps = append(caps, sc)
	}
	return caps
}

// Result is the output of one ingestion pass.
type Result struct {
	Graph            *Graph
	Context          capability.ContextSnapshot
	ServiceReadiness map[string]bool // service id → available
}

// Ingestor converts raw inventory records into the typed capability graph
// and produces a point-in-time context snapshot.
//
// Each Ingest call is one best-effort snapshot: no retries, no partial
// continuation on error.
type Ingestor struct {
	source Source
	logger Logger
	now    func() time.Time
}

// NewIngestor creates an ingestor reading from the given source.
func NewIngestor(source Source) *Ingestor {
	return &Ingestor{
		source: source,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the ingestor.
func (i *Ingestor) SetLogger(logger Logger) {
	i.logger = logger
}

// SetClock overrides the time source. Intended for tests.
func (i *Ingestor) SetClock(now func() time.Time) {
	i.now = now
}

// Ingest builds the capability graph and context snapshot for one request.
//
// Devices with no resolvable capability type are skipped with a warning;
// they cannot participate in combinations. Unreachable devices are kept:
// downstream pruning and feasibility scoring handle reachability.
func (i *Ingestor) Ingest(ctx context.Context, sessionID string, hints capability.Params) (*Result, error) {
	devices, err := i.source.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing devices: %w", ErrIngestionFailed, err)
	}
	services, err := i.source.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing services: %w", ErrIngestionFailed, err)
	}

	graph := &Graph{
		Devices:  make(map[string][]capability.DeviceCapability, len(devices)),
		Services: make(map[string]capability.ServiceCapability, len(services)),
		ByRoom:   make(map[string][]string),
		ByType:   make(map[capability.Type][]string),
	}
	readiness := make(map[string]bool, len(services))

	for _, d := range devices {
		types := mapDeviceTypes(d.Manufacturer, d.Model, d.Name)
		if len(types) == 0 {
			i.logger.Warn("device has no resolvable capabilities, skipping",
				"device_id", d.ID,
				"name", d.Name,
			)
			continue
		}

		caps := make([]capability.DeviceCapability, 0, len(types))
		for _, t := range types {
			caps = append(caps, capability.DeviceCapability{
				Type:      t,
				DeviceID:  d.ID,
				Name:      d.Name,
				Brand:     d.Manufacturer,
				Model:     d.Model,
				Room:      d.Room,
				Reachable: d.Reachable,
				LastSeen:  d.LastSeen,
			})
			graph.ByType[t] = append(graph.ByType[t], d.ID)
		}
		graph.Devices[d.ID] = caps
		if d.Room != "" {
			graph.ByRoom[d.Room] = append(graph.ByRoom[d.Room], d.ID)
		}
	}

	for _, s := range services {
		t, ok := mapServiceType(s.ServiceType)
		if !ok {
			i.logger.Warn("service has unknown type, skipping",
				"service_id", s.ID,
				"service_type", s.ServiceType,
			)
			continue
		}

		graph.Services[s.ID] = capability.ServiceCapability{
			Type:      t,
			ServiceID: s.ID,
			Name:      s.Name,
			Available: s.Available,
			LastSeen:  s.LastSeen,
		}
		graph.ByType[t] = append(graph.ByType[t], s.ID)
		readiness[s.ID] = s.Available
	}

	snap := buildContextSnapshot(i.now(), sessionID, hints)

	i.logger.Debug("ingestion complete",
		"devices", len(graph.Devices),
		"services", len(graph.Services),
		"time_of_day", snap.TimeOfDay,
		"quiet_hours", snap.IsQuietHours,
	)

	return &Result{
		Graph:            graph,
		Context:          snap,
		ServiceReadiness: readiness,
	}, nil
}
