// Package inventory tracks the discovered devices and services available
// to the suggestion pipeline.
//
// Discovery agents announce devices and services on retained MQTT topics
// (hearth/discovery/device/{id}, hearth/discovery/service/{id}). The
// Registry consumes those announcements, persists them through a
// Repository, and serves cached reads to ingestion on every suggestion
// request.
//
// Records here are raw: no capability typing is attached. Ingestion derives
// typed capabilities from manufacturer/model lookups and name inference.
package inventory
