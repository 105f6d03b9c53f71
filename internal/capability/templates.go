package capability

// OutcomeTemplate is a named pattern of capabilities that together satisfy a
// recognizable user outcome. The catalog is static: loaded once at startup
// and read-only during request processing.
type OutcomeTemplate struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Required    []Type  `json:"required"`
	Optional    []Type  `json:"optional,omitempty"`
	ValueFactor float64 `json:"value_factor"`
}

// Matches reports whether the given capability-type set is a superset of
// the template's required set.
func (t *OutcomeTemplate) Matches(types []Type) bool {
	present := make(map[Type]bool, len(types))
	for _, ct := range types {
		present[ct] = true
	}
	for _, req := range t.Required {
		if !present[req] {
			return false
		}
	}
	return true
}

// OutcomeCatalog returns the built-in outcome template catalog.
func OutcomeCatalog() []OutcomeTemplate {
	return []OutcomeTemplate{
		{
			ID:          "safe-arrival",
			Name:        "Safe Arrival",
			Description: "Light the way home and confirm the house is secure",
			Category:    "security",
			Required:    []Type{TypeLighting, TypeSensing},
			Optional:    []Type{TypeSecurity, TypeAccessControl},
			ValueFactor: 1.2,
		},
		{
			ID:          "motion-lighting",
			Name:        "Motion Lighting",
			Description: "Lights that follow you through the house",
			Category:    "comfort",
			Required:    []Type{TypeLighting, TypeSensing},
			ValueFactor: 1.0,
		},
		{
			ID:          "perimeter-watch",
			Name:        "Perimeter Watch",
			Description: "Camera and sensor coverage of entrances",
			Category:    "security",
			Required:    []Type{TypeVideo, TypeSensing},
			Optional:    []Type{TypeSecurity, TypeNotification},
			ValueFactor: 1.3,
		},
		{
			ID:          "smart-entry",
			Name:        "Smart Entry",
			Description: "Access control tied to presence and alerts",
			Category:    "security",
			Required:    []Type{TypeAccessControl},
			Optional:    []Type{TypePresence, TypeNotification},
			ValueFactor: 1.1,
		},
		{
			ID:          "climate-comfort",
			Name:        "Climate Comfort",
			Description: "Temperature that anticipates the day",
			Category:    "comfort",
			Required:    []Type{TypeClimate},
			Optional:    []Type{TypeWeather, TypeCalendar},
			ValueFactor: 1.0,
		},
		{
			ID:          "energy-saver",
			Name:        "Energy Saver",
			Description: "Cut standby waste when nobody is home",
			Category:    "energy",
			Required:    []Type{TypeEnergy},
			Optional:    []Type{TypePresence, TypeSensing},
			ValueFactor: 1.0,
		},
		{
			ID:          "morning-briefing",
			Name:        "Morning Briefing",
			Description: "Weather and calendar with the first light of day",
			Category:    "convenience",
			Required:    []Type{TypeWeather, TypeCalendar},
			Optional:    []Type{TypeAudio, TypeLighting},
			ValueFactor: 0.9,
		},
		{
			ID:          "ambient-scenes",
			Name:        "Ambient Scenes",
			Description: "Coordinated light and sound for the moment",
			Category:    "comfort",
			Required:    []Type{TypeLighting, TypeAudio},
			ValueFactor: 0.8,
		},
	}
}
