package capability

import "testing"

func dev(t Type, id, room string) DeviceCapability {
	return DeviceCapability{Type: t, DeviceID: id, Room: room, Reachable: true}
}

func svc(t Type, id string) ServiceCapability {
	return ServiceCapability{Type: t, ServiceID: id, Available: true}
}

func TestComputeSignature_OrderIndependent(t *testing.T) {
	a := ComputeSignature(
		[]DeviceCapability{dev(TypeLighting, "d1", "kitchen"), dev(TypeSensing, "d2", "kitchen")},
		nil,
	)
	b := ComputeSignature(
		[]DeviceCapability{dev(TypeSensing, "d2", "kitchen"), dev(TypeLighting, "d1", "kitchen")},
		nil,
	)
	if a != b {
		t.Errorf("signature depends on order: %q != %q", a, b)
	}
}

func TestComputeSignature_DeviceInstanceIrrelevant(t *testing.T) {
	a := ComputeSignature([]DeviceCapability{dev(TypeLighting, "d1", "kitchen")}, nil)
	b := ComputeSignature([]DeviceCapability{dev(TypeLighting, "d99", "kitchen")}, nil)
	if a != b {
		t.Errorf("signature should ignore device identity: %q != %q", a, b)
	}
}

func TestComputeSignature_RoomMatters(t *testing.T) {
	a := ComputeSignature([]DeviceCapability{dev(TypeLighting, "d1", "kitchen")}, nil)
	b := ComputeSignature([]DeviceCapability{dev(TypeLighting, "d1", "hallway")}, nil)
	if a == b {
		t.Error("signatures should differ for different rooms")
	}
}

func TestComputeSignature_TypeMatters(t *testing.T) {
	a := ComputeSignature([]DeviceCapability{dev(TypeLighting, "d1", "kitchen")}, nil)
	b := ComputeSignature([]DeviceCapability{dev(TypeSensing, "d1", "kitchen")}, nil)
	if a == b {
		t.Error("signatures should differ for different capability types")
	}
}

func TestComputeSignature_ServicesIncluded(t *testing.T) {
	a := ComputeSignature([]DeviceCapability{dev(TypeLighting, "d1", "kitchen")}, nil)
	b := ComputeSignature(
		[]DeviceCapability{dev(TypeLighting, "d1", "kitchen")},
		[]ServiceCapability{svc(TypeWeather, "s1")},
	)
	if a == b {
		t.Error("signatures should differ when a service is added")
	}
}

func TestComputeSignature_Multiset(t *testing.T) {
	// Two lighting devices in the same room are a different multiset
	// than one.
	a := ComputeSignature([]DeviceCapability{dev(TypeLighting, "d1", "kitchen")}, nil)
	b := ComputeSignature(
		[]DeviceCapability{dev(TypeLighting, "d1", "kitchen"), dev(TypeLighting, "d2", "kitchen")},
		nil,
	)
	if a == b {
		t.Error("signatures should reflect the multiset, not the set")
	}
}

func TestCapabilityTypes_Distinct(t *testing.T) {
	c := CombinationCandidate{
		Devices: []DeviceCapability{
			dev(TypeLighting, "d1", "kitchen"),
			dev(TypeLighting, "d2", "hallway"),
			dev(TypeSensing, "d3", "kitchen"),
		},
		Services: []ServiceCapability{svc(TypeWeather, "s1")},
	}

	types := c.CapabilityTypes()
	if len(types) != 3 {
		t.Fatalf("CapabilityTypes() returned %d types, want 3", len(types))
	}
	if types[0] != TypeLighting || types[1] != TypeSensing || types[2] != TypeWeather {
		t.Errorf("CapabilityTypes() = %v, want [lighting sensing weather]", types)
	}
}

func TestRooms(t *testing.T) {
	c := CombinationCandidate{
		Devices: []DeviceCapability{
			dev(TypeLighting, "d1", "kitchen"),
			dev(TypeSensing, "d2", "kitchen"),
			dev(TypeClimate, "d3", "bedroom"),
			{Type: TypeNetwork, DeviceID: "d4"}, // no room
		},
	}

	rooms := c.Rooms()
	if len(rooms) != 2 {
		t.Fatalf("Rooms() returned %d rooms, want 2", len(rooms))
	}
	if rooms[0] != "kitchen" || rooms[1] != "bedroom" {
		t.Errorf("Rooms() = %v, want [kitchen bedroom]", rooms)
	}
}

func TestIsSafetyRelated(t *testing.T) {
	tests := []struct {
		capType Type
		want    bool
	}{
		{TypeSecurity, true},
		{TypeAccessControl, true},
		{TypeSensing, true},
		{TypeLighting, false},
		{TypeAudio, false},
		{TypeWeather, false},
	}

	for _, tt := range tests {
		if got := tt.capType.IsSafetyRelated(); got != tt.want {
			t.Errorf("%s.IsSafetyRelated() = %v, want %v", tt.capType, got, tt.want)
		}
	}
}

func TestOutcomeTemplateMatches(t *testing.T) {
	tmpl := OutcomeTemplate{
		ID:       "motion-lighting",
		Required: []Type{TypeLighting, TypeSensing},
	}

	tests := []struct {
		name  string
		types []Type
		want  bool
	}{
		{"exact match", []Type{TypeLighting, TypeSensing}, true},
		{"superset", []Type{TypeLighting, TypeSensing, TypeWeather}, true},
		{"missing required", []Type{TypeLighting}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tmpl.Matches(tt.types); got != tt.want {
				t.Errorf("Matches(%v) = %v, want %v", tt.types, got, tt.want)
			}
		})
	}
}

func TestNewID(t *testing.T) {
	id := NewID("cand")
	if len(id) != len("cand-")+8 {
		t.Errorf("NewID() = %q, want prefix plus 8 hex chars", id)
	}
	if id[:5] != "cand-" {
		t.Errorf("NewID() = %q, want cand- prefix", id)
	}

	if NewID("cand") == NewID("cand") {
		t.Error("NewID() returned duplicate ids")
	}
}
