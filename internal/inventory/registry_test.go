package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

// MockRepository is a test implementation of Repository.
type MockRepository struct {
	mu       sync.Mutex
	devices  map[string]*RawDevice
	services map[string]*RawService

	// Optional error injection.
	failListDevices error
}

// NewMockRepository creates an empty mock repository.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		devices:  make(map[string]*RawDevice),
		services: make(map[string]*RawService),
	}
}

func (m *MockRepository) GetDevice(_ context.Context, id string) (*RawDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return d.DeepCopy(), nil
}

func (m *MockRepository) ListDevices(_ context.Context) ([]RawDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failListDevices != nil {
		return nil, m.failListDevices
	}
	devices := make([]RawDevice, 0, len(m.devices))
	for _, d := range m.devices {
		devices = append(devices, *d.DeepCopy())
	}
	return devices, nil
}

func (m *MockRepository) UpsertDevice(_ context.Context, device *RawDevice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[device.ID] = device.DeepCopy()
	return nil
}

func (m *MockRepository) DeleteDevice(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[id]; !ok {
		return ErrDeviceNotFound
	}
	delete(m.devices, id)
	return nil
}

func (m *MockRepository) GetService(_ context.Context, id string) (*RawService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	return s.DeepCopy(), nil
}

func (m *MockRepository) ListServices(_ context.Context) ([]RawService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	services := make([]RawService, 0, len(m.services))
	for _, s := range m.services {
		services = append(services, *s.DeepCopy())
	}
	return services, nil
}

func (m *MockRepository) UpsertService(_ context.Context, service *RawService) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[service.ID] = service.DeepCopy()
	return nil
}

func (m *MockRepository) DeleteService(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.services[id]; !ok {
		return ErrServiceNotFound
	}
	delete(m.services, id)
	return nil
}

// =============================================================================
// Cache Tests
// =============================================================================

func TestRefreshCache(t *testing.T) {
	repo := NewMockRepository()
	_ = repo.UpsertDevice(context.Background(), testRawDevice("d1", "Light", "kitchen"))
	_ = repo.UpsertService(context.Background(), testRawService("s1", "Weather", "weather"))

	reg := NewRegistry(repo)
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	devices, services := reg.Counts()
	if devices != 1 || services != 1 {
		t.Errorf("Counts() = (%d, %d), want (1, 1)", devices, services)
	}
}

func TestRefreshCache_RepositoryError(t *testing.T) {
	repo := NewMockRepository()
	repo.failListDevices = errors.New("disk gone")

	reg := NewRegistry(repo)
	if err := reg.RefreshCache(context.Background()); err == nil {
		t.Error("RefreshCache() should propagate repository errors")
	}
}

func TestGetDevice_CacheIsolation(t *testing.T) {
	repo := NewMockRepository()
	_ = repo.UpsertDevice(context.Background(), testRawDevice("d1", "Light", "kitchen"))

	reg := NewRegistry(repo)
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	got, err := reg.GetDevice(context.Background(), "d1")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}

	// Mutating the returned copy must not affect the cache.
	got.Room = "garage"
	got.Metadata["firmware"] = "tampered"

	again, err := reg.GetDevice(context.Background(), "d1")
	if err != nil {
		t.Fatalf("GetDevice() second call error = %v", err)
	}
	if again.Room != "kitchen" {
		t.Errorf("cache was mutated through returned copy: Room = %q", again.Room)
	}
	if again.Metadata["firmware"] == "tampered" {
		t.Error("cache metadata was mutated through returned copy")
	}
}

func TestGetDevice_FallsBackToRepository(t *testing.T) {
	repo := NewMockRepository()
	reg := NewRegistry(repo)

	// Device added after cache was (not) populated.
	_ = repo.UpsertDevice(context.Background(), testRawDevice("d1", "Light", "kitchen"))

	got, err := reg.GetDevice(context.Background(), "d1")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.ID != "d1" {
		t.Errorf("GetDevice() ID = %q, want d1", got.ID)
	}
}

// =============================================================================
// Announcement Tests
// =============================================================================

func TestHandleDeviceAnnounce(t *testing.T) {
	reg := NewRegistry(NewMockRepository())

	payload, _ := json.Marshal(map[string]any{
		"name":         "Front Door Camera",
		"manufacturer": "reolink",
		"model":        "rlc-520a",
		"room":         "porch",
		"endpoints":    []string{"rtsp://10.0.0.12/stream"},
	})

	err := reg.HandleDeviceAnnounce("hearth/discovery/device/cam-front", payload)
	if err != nil {
		t.Fatalf("HandleDeviceAnnounce() error = %v", err)
	}

	got, err := reg.GetDevice(context.Background(), "cam-front")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.Name != "Front Door Camera" {
		t.Errorf("Name = %q, want Front Door Camera", got.Name)
	}
	if !got.Reachable {
		t.Error("Reachable should default to true when omitted")
	}
	if got.LastSeen.IsZero() {
		t.Error("LastSeen should be set on announcement")
	}
}

func TestHandleDeviceAnnounce_Retraction(t *testing.T) {
	repo := NewMockRepository()
	reg := NewRegistry(repo)

	payload, _ := json.Marshal(map[string]any{"name": "Lamp"})
	if err := reg.HandleDeviceAnnounce("hearth/discovery/device/lamp-1", payload); err != nil {
		t.Fatalf("HandleDeviceAnnounce() error = %v", err)
	}

	// Empty retained payload retracts.
	if err := reg.HandleDeviceAnnounce("hearth/discovery/device/lamp-1", nil); err != nil {
		t.Fatalf("HandleDeviceAnnounce() retraction error = %v", err)
	}

	_, err := repo.GetDevice(context.Background(), "lamp-1")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("device should be removed after retraction, got err = %v", err)
	}
}

func TestHandleDeviceAnnounce_Invalid(t *testing.T) {
	reg := NewRegistry(NewMockRepository())

	tests := []struct {
		name    string
		topic   string
		payload []byte
	}{
		{"malformed json", "hearth/discovery/device/d1", []byte("{not json")},
		{"missing name", "hearth/discovery/device/d1", []byte(`{"room":"kitchen"}`)},
		{"no id in topic", "hearth/discovery/device/", []byte(`{"name":"x"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.HandleDeviceAnnounce(tt.topic, tt.payload)
			if !errors.Is(err, ErrInvalidAnnouncement) {
				t.Errorf("HandleDeviceAnnounce() error = %v, want ErrInvalidAnnouncement", err)
			}
		})
	}
}

func TestHandleServiceAnnounce(t *testing.T) {
	reg := NewRegistry(NewMockRepository())

	payload, _ := json.Marshal(map[string]any{
		"name":         "Local Weather",
		"service_type": "weather",
		"available":    false,
	})

	err := reg.HandleServiceAnnounce("hearth/discovery/service/weather-local", payload)
	if err != nil {
		t.Fatalf("HandleServiceAnnounce() error = %v", err)
	}

	got, err := reg.GetService(context.Background(), "weather-local")
	if err != nil {
		t.Fatalf("GetService() error = %v", err)
	}
	if got.ServiceType != "weather" {
		t.Errorf("ServiceType = %q, want weather", got.ServiceType)
	}
	if got.Available {
		t.Error("Available = true, want false (explicit in payload)")
	}
}
