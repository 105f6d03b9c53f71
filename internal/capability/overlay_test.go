package capability

import (
	"testing"
	"time"
)

func TestNewUserOverlay_NeutralBiases(t *testing.T) {
	o := NewUserOverlay("user-1")

	if o.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", o.UserID)
	}
	if o.EnergyVsComfort != 0.5 || o.SafetyVsConvenience != 0.5 || o.PrivacyVsFunctionality != 0.5 {
		t.Error("new overlay biases should all be 0.5")
	}
	if o.DeviceAffinities == nil || o.RoomAffinities == nil {
		t.Error("affinity maps should be initialised")
	}
}

func TestDeviceAffinity_Baseline(t *testing.T) {
	o := NewUserOverlay("user-1")

	if got := o.DeviceAffinity("never-seen"); got != 0.5 {
		t.Errorf("DeviceAffinity(unset) = %v, want 0.5 baseline", got)
	}
}

func TestAdjustDeviceAffinity_BaselineThenDelta(t *testing.T) {
	o := NewUserOverlay("user-1")

	// First adjustment applies on top of the implicit 0.5 baseline.
	o.AdjustDeviceAffinity("d1", 0.1)
	if got := o.DeviceAffinities["d1"]; got != 0.6 {
		t.Errorf("affinity after first +0.1 = %v, want 0.6", got)
	}
}

func TestAdjustDeviceAffinity_Clamping(t *testing.T) {
	o := NewUserOverlay("user-1")

	// 10 accepts then 1 reject: min(1.0, 0.5 + 10*0.1 - 0.1) = 1.0.
	for i := 0; i < 10; i++ {
		o.AdjustDeviceAffinity("d1", 0.1)
	}
	if got := o.DeviceAffinities["d1"]; got != 1.0 {
		t.Errorf("affinity after 10 accepts = %v, want 1.0 (clamped)", got)
	}

	o.AdjustDeviceAffinity("d1", -0.1)
	if got := o.DeviceAffinities["d1"]; got != 0.9 {
		t.Errorf("affinity after reject = %v, want 0.9", got)
	}

	// Drive to the floor.
	for i := 0; i < 20; i++ {
		o.AdjustDeviceAffinity("d1", -0.1)
	}
	if got := o.DeviceAffinities["d1"]; got != 0.0 {
		t.Errorf("affinity after repeated rejects = %v, want 0.0 (clamped)", got)
	}
}

func TestAdjustRoomAffinity(t *testing.T) {
	o := NewUserOverlay("user-1")

	o.AdjustRoomAffinity("kitchen", 0.05)
	if got := o.RoomAffinities["kitchen"]; got != 0.55 {
		t.Errorf("room affinity = %v, want 0.55", got)
	}
}

func TestClampUnit(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{1.7, 1},
	}

	for _, tt := range tests {
		if got := ClampUnit(tt.in); got != tt.want {
			t.Errorf("ClampUnit(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUserOverlayDeepCopy(t *testing.T) {
	o := NewUserOverlay("user-1")
	o.DeviceAffinities["d1"] = 0.7
	o.RoomAffinities["kitchen"] = 0.6
	o.TimeOfDayProfiles["evening"] = []Type{TypeLighting}
	o.AcceptedPatterns = []PatternEntry{{
		PatternKey: "sig-1",
		Timestamp:  time.Now(),
		Strength:   1.0,
		Context:    Params{"time_of_day": "evening"},
	}}

	cpy := o.DeepCopy()

	// Mutate the copy and verify the original is untouched.
	cpy.DeviceAffinities["d1"] = 0.1
	cpy.RoomAffinities["kitchen"] = 0.1
	cpy.TimeOfDayProfiles["evening"][0] = TypeAudio
	cpy.AcceptedPatterns[0].Strength = 0.0
	cpy.AcceptedPatterns[0].Context["time_of_day"] = "night"

	if o.DeviceAffinities["d1"] != 0.7 {
		t.Error("DeepCopy shares DeviceAffinities with original")
	}
	if o.RoomAffinities["kitchen"] != 0.6 {
		t.Error("DeepCopy shares RoomAffinities with original")
	}
	if o.TimeOfDayProfiles["evening"][0] != TypeLighting {
		t.Error("DeepCopy shares TimeOfDayProfiles with original")
	}
	if o.AcceptedPatterns[0].Strength != 1.0 {
		t.Error("DeepCopy shares AcceptedPatterns with original")
	}
	if o.AcceptedPatterns[0].Context["time_of_day"] != "evening" {
		t.Error("DeepCopy shares pattern context with original")
	}
}

func TestUserOverlayDeepCopy_Nil(t *testing.T) {
	var o *UserOverlay
	if o.DeepCopy() != nil {
		t.Error("DeepCopy of nil overlay should be nil")
	}
}
