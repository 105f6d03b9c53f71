package inventory

import "time"

// RawDevice is a discovered physical device as announced by a discovery
// agent. It carries no capability typing; ingestion derives capabilities
// from manufacturer/model and name.
type RawDevice struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Manufacturer string         `json:"manufacturer,omitempty"`
	Model        string         `json:"model,omitempty"`
	Room         string         `json:"room,omitempty"`
	Reachable    bool           `json:"reachable"`
	Endpoints    []string       `json:"endpoints,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	LastSeen     time.Time      `json:"last_seen"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// DeepCopy creates an independent copy of the device.
func (d *RawDevice) DeepCopy() *RawDevice {
	if d == nil {
		return nil
	}
	cpy := *d
	if d.Endpoints != nil {
		cpy.Endpoints = make([]string, len(d.Endpoints))
		copy(cpy.Endpoints, d.Endpoints)
	}
	if d.Metadata != nil {
		cpy.Metadata = make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			cpy.Metadata[k] = v
		}
	}
	return &cpy
}

// RawService is a discovered non-device service (weather, calendar, ...).
type RawService struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ServiceType string         `json:"service_type"`
	Available   bool           `json:"available"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	LastSeen    time.Time      `json:"last_seen"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DeepCopy creates an independent copy of the service.
func (s *RawService) DeepCopy() *RawService {
	if s == nil {
		return nil
	}
	cpy := *s
	if s.Metadata != nil {
		cpy.Metadata = make(map[string]any, len(s.Metadata))
		for k, v := range s.Metadata {
			cpy.Metadata[k] = v
		}
	}
	return &cpy
}
