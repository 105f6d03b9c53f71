package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides inventory management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups,
// which ingestion reads on every suggestion request.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by the MQTT announcement handlers and cache-invalidating operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo Repository

	devices  map[string]*RawDevice
	services map[string]*RawService
	cacheMu  sync.RWMutex

	logger Logger
}

// NewRegistry creates a new inventory registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:     repo,
		devices:  make(map[string]*RawDevice),
		services: make(map[string]*RawService),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices and services from the repository.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}
	services, err := r.repo.ListServices(ctx)
	if err != nil {
		return fmt.Errorf("loading services: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.devices = make(map[string]*RawDevice, len(devices))
	for i := range devices {
		d := devices[i]
		r.devices[d.ID] = d.DeepCopy()
	}
	r.services = make(map[string]*RawService, len(services))
	for i := range services {
		s := services[i]
		r.services[s.ID] = s.DeepCopy()
	}

	r.logger.Info("inventory cache refreshed",
		"devices", len(devices),
		"services", len(services),
	)
	return nil
}

// GetDevice retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) GetDevice(ctx context.Context, id string) (*RawDevice, error) {
	r.cacheMu.RLock()
	cached, ok := r.devices[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}

	// Fall back to repository (might be a new device not yet cached)
	device, err := r.repo.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.devices[id] = device.DeepCopy()
	r.cacheMu.Unlock()

	return device, nil
}

// ListDevices retrieves all devices.
// The returned devices are deep copies; callers can safely modify them.
func (r *Registry) ListDevices(ctx context.Context) ([]RawDevice, error) {
	r.cacheMu.RLock()
	if len(r.devices) > 0 {
		devices := make([]RawDevice, 0, len(r.devices))
		for _, d := range r.devices {
			devices = append(devices, *d.DeepCopy())
		}
		r.cacheMu.RUnlock()
		return devices, nil
	}
	r.cacheMu.RUnlock()

	return r.repo.ListDevices(ctx)
}

// GetService retrieves a service by ID.
// Returns ErrServiceNotFound if the service does not exist.
func (r *Registry) GetService(ctx context.Context, id string) (*RawService, error) {
	r.cacheMu.RLock()
	cached, ok := r.services[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}

	service, err := r.repo.GetService(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.services[id] = service.DeepCopy()
	r.cacheMu.Unlock()

	return service, nil
}

// ListServices retrieves all services.
// The returned services are deep copies; callers can safely modify them.
func (r *Registry) ListServices(ctx context.Context) ([]RawService, error) {
	r.cacheMu.RLock()
	if len(r.services) > 0 {
		services := make([]RawService, 0, len(r.services))
		for _, s := range r.services {
			services = append(services, *s.DeepCopy())
		}
		r.cacheMu.RUnlock()
		return services, nil
	}
	r.cacheMu.RUnlock()

	return r.repo.ListServices(ctx)
}

// Counts returns the number of devices and services currently cached.
func (r *Registry) Counts() (devices int, services int) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.devices), len(r.services)
}

// UpsertDevice persists a device and updates the cache.
func (r *Registry) UpsertDevice(ctx context.Context, device *RawDevice) error {
	if err := r.repo.UpsertDevice(ctx, device); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.devices[device.ID] = device.DeepCopy()
	r.cacheMu.Unlock()

	return nil
}

// UpsertService persists a service and updates the cache.
func (r *Registry) UpsertService(ctx context.Context, service *RawService) error {
	if err := r.repo.UpsertService(ctx, service); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.services[service.ID] = service.DeepCopy()
	r.cacheMu.Unlock()

	return nil
}

// RemoveDevice deletes a device from the repository and cache.
func (r *Registry) RemoveDevice(ctx context.Context, id string) error {
	if err := r.repo.DeleteDevice(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.devices, id)
	r.cacheMu.Unlock()

	return nil
}

// RemoveService deletes a service from the repository and cache.
func (r *Registry) RemoveService(ctx context.Context, id string) error {
	if err := r.repo.DeleteService(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.services, id)
	r.cacheMu.Unlock()

	return nil
}

// deviceAnnouncement is the wire format published by discovery agents on
// hearth/discovery/device/{id}. An empty payload retracts the device.
type deviceAnnouncement struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Manufacturer string         `json:"manufacturer,omitempty"`
	Model        string         `json:"model,omitempty"`
	Room         string         `json:"room,omitempty"`
	Reachable    *bool          `json:"reachable,omitempty"`
	Endpoints    []string       `json:"endpoints,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// serviceAnnouncement is the wire format for hearth/discovery/service/{id}.
type serviceAnnouncement struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ServiceType string         `json:"service_type"`
	Available   *bool          `json:"available,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// HandleDeviceAnnounce processes a retained device announcement from MQTT.
// The topic's trailing segment is the device id; an empty payload retracts
// the device from the inventory.
func (r *Registry) HandleDeviceAnnounce(topic string, payload []byte) error {
	id := lastTopicSegment(topic)
	if id == "" {
		return fmt.Errorf("%w: no device id in topic %q", ErrInvalidAnnouncement, topic)
	}

	// Empty retained payload clears the announcement.
	if len(payload) == 0 {
		if err := r.RemoveDevice(context.Background(), id); err != nil {
			r.logger.Warn("device retraction failed", "device_id", id, "error", err)
		}
		return nil
	}

	var ann deviceAnnouncement
	if err := json.Unmarshal(payload, &ann); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAnnouncement, err)
	}
	if ann.Name == "" {
		return fmt.Errorf("%w: device %q has no name", ErrInvalidAnnouncement, id)
	}

	reachable := true
	if ann.Reachable != nil {
		reachable = *ann.Reachable
	}

	device := &RawDevice{
		ID:           id,
		Name:         ann.Name,
		Manufacturer: ann.Manufacturer,
		Model:        ann.Model,
		Room:         ann.Room,
		Reachable:    reachable,
		Endpoints:    ann.Endpoints,
		Metadata:     ann.Metadata,
		LastSeen:     time.Now().UTC(),
	}

	if err := r.UpsertDevice(context.Background(), device); err != nil {
		return fmt.Errorf("storing announced device: %w", err)
	}

	r.logger.Debug("device announced", "device_id", id, "room", ann.Room)
	return nil
}

// HandleServiceAnnounce processes a retained service announcement from MQTT.
func (r *Registry) HandleServiceAnnounce(topic string, payload []byte) error {
	id := lastTopicSegment(topic)
	if id == "" {
		return fmt.Errorf("%w: no service id in topic %q", ErrInvalidAnnouncement, topic)
	}

	if len(payload) == 0 {
		if err := r.RemoveService(context.Background(), id); err != nil {
			r.logger.Warn("service retraction failed", "service_id", id, "error", err)
		}
		return nil
	}

	var ann serviceAnnouncement
	if err := json.Unmarshal(payload, &ann); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAnnouncement, err)
	}
	if ann.Name == "" || ann.ServiceType == "" {
		return fmt.Errorf("%w: service %q missing name or type", ErrInvalidAnnouncement, id)
	}

	available := true
	if ann.Available != nil {
		available = *ann.Available
	}

	service := &RawService{
		ID:          id,
		Name:        ann.Name,
		ServiceType: ann.ServiceType,
		Available:   available,
		Metadata:    ann.Metadata,
		LastSeen:    time.Now().UTC(),
	}

	if err := r.UpsertService(context.Background(), service); err != nil {
		return fmt.Errorf("storing announced service: %w", err)
	}

	r.logger.Debug("service announced", "service_id", id, "type", ann.ServiceType)
	return nil
}

// lastTopicSegment returns the final segment of an MQTT topic.
func lastTopicSegment(topic string) string {
	idx := strings.LastIndexByte(topic, '/')
	if idx < 0 || idx == len(topic)-1 {
		return ""
	}
	return topic[idx+1:]
}
