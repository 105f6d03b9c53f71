package ingest

import (
	"strings"

	"github.com/hearthline/hearth-core/internal/capability"
)

// capabilityLookup maps "manufacturer_model" keys (lowercase) to capability
// types. Devices matched here get authoritative typing; everything else
// falls through to keyword inference.
var capabilityLookup = map[string][]capability.Type{
	"philips_hue-white":      {capability.TypeLighting},
	"philips_hue-color":      {capability.TypeLighting},
	"philips_hue-motion":     {capability.TypeSensing},
	"ikea_tradfri-bulb":      {capability.TypeLighting},
	"ikea_tradfri-motion":    {capability.TypeSensing},
	"aqara_motion-p1":        {capability.TypeSensing},
	"aqara_door-window":      {capability.TypeSensing, capability.TypeSecurity},
	"reolink_rlc-520a":       {capability.TypeVideo, capability.TypeSecurity},
	"ring_doorbell-4":        {capability.TypeVideo, capability.TypeSecurity},
	"yale_linus-l2":          {capability.TypeAccessControl, capability.TypeSecurity},
	"nuki_smart-lock-3":      {capability.TypeAccessControl, capability.TypeSecurity},
	"sonos_one":              {capability.TypeAudio},
	"sonos_beam":             {capability.TypeAudio},
	"ecobee_smart-thermostat": {capability.TypeClimate, capability.TypeSensing},
	"nest_learning-v3":       {capability.TypeClimate, capability.TypeSensing},
	"shelly_plug-s":          {capability.TypeActuation, capability.TypeEnergy},
	"shelly_1pm":             {capability.TypeActuation, capability.TypeEnergy},
	"tp-link_archer-ax55":    {capability.TypeNetwork},
	"ubiquiti_u6-lite":       {capability.TypeNetwork},
}

// keywordRules drive best-effort name inference for unmapped devices.
// Order matters: first matching rule wins. This may under- or
// over-classify; capability assignment is advisory, not authoritative.
var keywordRules = []struct {
	keywords []string
	types    []capability.Type
}{
	{[]string{"camera", "doorbell"}, []capability.Type{capability.TypeVideo, capability.TypeSecurity}},
	{[]string{"lock"}, []capability.Type{capability.TypeAccessControl, capability.TypeSecurity}},
	{[]string{"alarm", "siren"}, []capability.Type{capability.TypeSecurity}},
	{[]string{"motion", "sensor", "detector"}, []capability.Type{capability.TypeSensing}},
	{[]string{"light", "lamp", "bulb", "dimmer"}, []capability.Type{capability.TypeLighting}},
	{[]string{"thermostat", "radiator", "hvac", "heating"}, []capability.Type{capability.TypeClimate}},
	{[]string{"speaker", "soundbar", "audio"}, []capability.Type{capability.TypeAudio}},
	{[]string{"plug", "socket", "outlet"}, []capability.Type{capability.TypeActuation, capability.TypeEnergy}},
	{[]string{"meter", "energy"}, []capability.Type{capability.TypeEnergy}},
	{[]string{"switch", "relay", "valve", "blind", "curtain"}, []capability.Type{capability.TypeActuation}},
	{[]string{"router", "access point", "repeater"}, []capability.Type{capability.TypeNetwork}},
}

// serviceTypeLookup maps announced service type strings to capability types.
var serviceTypeLookup = map[string]capability.Type{
	"weather":      capability.TypeWeather,
	"calendar":     capability.TypeCalendar,
	"presence":     capability.TypePresence,
	"time":         capability.TypeTime,
	"location":     capability.TypeLocation,
	"traffic":      capability.TypeTraffic,
	"notification": capability.TypeNotification,
}

// mapDeviceTypes resolves the capability types for a device, preferring the
// manufacturer/model lookup and falling back to keyword inference over the
// display name. Returns nil if nothing matches.
func mapDeviceTypes(manufacturer, model, name string) []capability.Type {
	if manufacturer != "" && model != "" {
		key := strings.ToLower(manufacturer) + "_" + strings.ToLower(model)
		if types, ok := capabilityLookup[key]; ok {
			return types
		}
	}
	return inferFromName(name)
}

// inferFromName guesses capability types from keywords in a display name.
func inferFromName(name string) []capability.Type {
	lower := strings.ToLower(name)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.types
			}
		}
	}
	return nil
}

// mapServiceType resolves a service announcement's type string.
// Unknown strings return false; the service is skipped with a log entry.
func mapServiceType(serviceType string) (capability.Type, bool) {
	t, ok := serviceTypeLookup[strings.ToLower(serviceType)]
	return t, ok
}
