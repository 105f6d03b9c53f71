// Package mqtt provides the broker connectivity layer for Hearth.
//
// It wraps the Eclipse Paho client with connection lifecycle management,
// automatic reconnection with subscription restoration, Last Will and
// Testament announcing core availability, and panic-isolated message
// handlers.
//
// All Hearth topics live under the "hearth/" namespace. The Topics type
// centralises topic construction so the scheme is defined in one place:
//
//   - hearth/discovery/device/{id}   device announcements (retained)
//   - hearth/discovery/service/{id}  service announcements (retained)
//   - hearth/plan/dispatch/{id}      execution plan dispatch
//   - hearth/plan/result/{id}        execution results from the executor
//   - hearth/event/{category}        engine lifecycle events
//   - hearth/system/status           core online/offline status (LWT)
//
// Typical usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.SetLogger(logger)
//
//	topics := mqtt.Topics{}
//	client.Subscribe(topics.AllDeviceAnnounces(), 1, registry.HandleDeviceAnnounce)
//
// The client is safe for concurrent use.
package mqtt
