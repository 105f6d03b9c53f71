package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hearthline/hearth-core/internal/capability"
	"github.com/hearthline/hearth-core/internal/inventory"
)

// stubSource is a fixed-inventory Source for testing.
type stubSource struct {
	devices  []inventory.RawDevice
	services []inventory.RawService
	err      error
}

func (s *stubSource) ListDevices(context.Context) ([]inventory.RawDevice, error) {
	return s.devices, s.err
}

func (s *stubSource) ListServices(context.Context) ([]inventory.RawService, error) {
	return s.services, s.err
}

func fixedClock() time.Time {
	// Tuesday 14:30: afternoon, not weekend, not quiet hours.
	return time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)
}

func TestIngest_BuildsGraph(t *testing.T) {
	source := &stubSource{
		devices: []inventory.RawDevice{
			{ID: "light-1", Name: "Kitchen Light", Manufacturer: "philips", Model: "hue-white", Room: "kitchen", Reachable: true},
			{ID: "motion-1", Name: "Kitchen Motion Sensor", Room: "kitchen", Reachable: true},
		},
		services: []inventory.RawService{
			{ID: "weather-1", Name: "Local Weather", ServiceType: "weather", Available: true},
		},
	}

	ing := NewIngestor(source)
	ing.SetClock(fixedClock)

	result, err := ing.Ingest(context.Background(), "sess-1", nil)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	// light-1 resolved via manufacturer/model lookup.
	caps, ok := result.Graph.Devices["light-1"]
	if !ok || len(caps) != 1 || caps[0].Type != capability.TypeLighting {
		t.Errorf("light-1 capabilities = %v, want [lighting]", caps)
	}

	// motion-1 resolved via keyword inference ("motion").
	caps, ok = result.Graph.Devices["motion-1"]
	if !ok || len(caps) != 1 || caps[0].Type != capability.TypeSensing {
		t.Errorf("motion-1 capabilities = %v, want [sensing]", caps)
	}

	sc, ok := result.Graph.Services["weather-1"]
	if !ok || sc.Type != capability.TypeWeather {
		t.Errorf("weather-1 capability = %v, want weather", sc)
	}

	if ids := result.Graph.ByRoom["kitchen"]; len(ids) != 2 {
		t.Errorf("ByRoom[kitchen] = %v, want 2 devices", ids)
	}
	if ids := result.Graph.ByType[capability.TypeLighting]; len(ids) != 1 || ids[0] != "light-1" {
		t.Errorf("ByType[lighting] = %v, want [light-1]", ids)
	}

	if !result.ServiceReadiness["weather-1"] {
		t.Error("ServiceReadiness[weather-1] = false, want true")
	}
}

func TestIngest_SkipsUnmappableDevice(t *testing.T) {
	source := &stubSource{
		devices: []inventory.RawDevice{
			{ID: "mystery-1", Name: "Widget", Reachable: true},
		},
	}

	ing := NewIngestor(source)
	ing.SetClock(fixedClock)

	result, err := ing.Ingest(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if len(result.Graph.Devices) != 0 {
		t.Errorf("unmappable device should be skipped, got %v", result.Graph.Devices)
	}
}

func TestIngest_SkipsUnknownServiceType(t *testing.T) {
	source := &stubSource{
		services: []inventory.RawService{
			{ID: "svc-1", Name: "Mystery", ServiceType: "astrology", Available: true},
		},
	}

	ing := NewIngestor(source)
	ing.SetClock(fixedClock)

	result, err := ing.Ingest(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if len(result.Graph.Services) != 0 {
		t.Errorf("unknown service type should be skipped, got %v", result.Graph.Services)
	}
}

func TestIngest_SourceError(t *testing.T) {
	source := &stubSource{err: errors.New("inventory offline")}

	ing := NewIngestor(source)
	_, err := ing.Ingest(context.Background(), "", nil)
	if !errors.Is(err, ErrIngestionFailed) {
		t.Errorf("Ingest() error = %v, want ErrIngestionFailed", err)
	}
}

func TestIngest_UnreachableDeviceKept(t *testing.T) {
	source := &stubSource{
		devices: []inventory.RawDevice{
			{ID: "light-1", Name: "Hall Lamp", Room: "hall", Reachable: false},
		},
	}

	ing := NewIngestor(source)
	ing.SetClock(fixedClock)

	result, err := ing.Ingest(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	caps := result.Graph.Devices["light-1"]
	if len(caps) != 1 {
		t.Fatalf("unreachable device should still be ingested, got %v", caps)
	}
	if caps[0].Reachable {
		t.Error("Reachable = true, want false")
	}
}

func TestBuildContextSnapshot_Defaults(t *testing.T) {
	snap := buildContextSnapshot(fixedClock(), "sess-1", nil)

	if snap.TimeOfDay != "afternoon" {
		t.Errorf("TimeOfDay = %q, want afternoon", snap.TimeOfDay)
	}
	if snap.IsWeekend {
		t.Error("IsWeekend = true for a Tuesday")
	}
	if snap.IsQuietHours {
		t.Error("IsQuietHours = true at 14:30")
	}
	if !snap.UserPresent {
		t.Error("UserPresent should default to true")
	}
	if snap.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", snap.SessionID)
	}
}

func TestBuildContextSnapshot_Hints(t *testing.T) {
	hints := capability.Params{
		"is_quiet_hours":  true,
		"user_present":    false,
		"location":        "home",
		"calendar_state":  "meeting",
		"weather":         "rain",
		"recent_activity": []any{"arrived_home", "opened_door"},
		"unknown_key":     42, // must be ignored, not rejected
	}

	snap := buildContextSnapshot(fixedClock(), "", hints)

	if !snap.IsQuietHours {
		t.Error("IsQuietHours hint not applied")
	}
	if snap.UserPresent {
		t.Error("UserPresent hint not applied")
	}
	if snap.Location != "home" || snap.CalendarState != "meeting" || snap.Weather != "rain" {
		t.Errorf("string hints not applied: %+v", snap)
	}
	if len(snap.RecentActivity) != 2 || snap.RecentActivity[0] != "arrived_home" {
		t.Errorf("RecentActivity = %v, want [arrived_home opened_door]", snap.RecentActivity)
	}
}

func TestTimeOfDay(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{5, "morning"},
		{11, "morning"},
		{12, "afternoon"},
		{16, "afternoon"},
		{17, "evening"},
		{21, "evening"},
		{22, "night"},
		{3, "night"},
	}

	for _, tt := range tests {
		if got := timeOfDay(tt.hour); got != tt.want {
			t.Errorf("timeOfDay(%d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestQuietHoursFromClock(t *testing.T) {
	night := time.Date(2026, 8, 25, 23, 0, 0, 0, time.UTC)
	snap := buildContextSnapshot(night, "", nil)
	if !snap.IsQuietHours {
		t.Error("23:00 should be quiet hours")
	}

	earlyMorning := time.Date(2026, 8, 25, 6, 30, 0, 0, time.UTC)
	snap = buildContextSnapshot(earlyMorning, "", nil)
	if !snap.IsQuietHours {
		t.Error("06:30 should be quiet hours")
	}
}

func TestMapDeviceTypes_LookupBeatsInference(t *testing.T) {
	// Name says "camera" but the lookup table knows this model is a lock.
	types := mapDeviceTypes("yale", "linus-l2", "Front Camera Lock")
	if len(types) != 2 || types[0] != capability.TypeAccessControl {
		t.Errorf("mapDeviceTypes() = %v, want lookup result [access_control security]", types)
	}
}

func TestInferFromName(t *testing.T) {
	tests := []struct {
		name string
		want []capability.Type
	}{
		{"Front Door Camera", []capability.Type{capability.TypeVideo, capability.TypeSecurity}},
		{"Hallway Motion Sensor", []capability.Type{capability.TypeSensing}},
		{"Bedroom Lamp", []capability.Type{capability.TypeLighting}},
		{"Mystery Widget", nil},
	}

	for _, tt := range tests {
		got := inferFromName(tt.name)
		if len(got) != len(tt.want) {
			t.Errorf("inferFromName(%q) = %v, want %v", tt.name, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("inferFromName(%q) = %v, want %v", tt.name, got, tt.want)
				break
			}
		}
	}
}
