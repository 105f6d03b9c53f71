package mqtt

import "fmt"

// Topic prefixes for the Hearth MQTT namespace.
//
// Discovery agents publish inbound on hearth/discovery/..., the core
// publishes outbound on hearth/plan/... and hearth/event/....
const (
	// TopicPrefix is the base for all Hearth topics.
	TopicPrefix = "hearth"

	// TopicPrefixDiscovery is the base for discovery agent announcements.
	TopicPrefixDiscovery = "hearth/discovery"

	// TopicPrefixPlan is the base for execution plan dispatch.
	TopicPrefixPlan = "hearth/plan"

	// TopicPrefixEvent is the base for core event broadcasts.
	TopicPrefixEvent = "hearth/event"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "hearth/system"
)

// Topics provides builders for Hearth MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.DeviceAnnounce("cam-front-door")
//	// Returns: "hearth/discovery/device/cam-front-door"
type Topics struct{}

// DeviceAnnounce returns the topic a discovery agent publishes device
// records on.
//
// Example: hearth/discovery/device/cam-front-door
func (Topics) DeviceAnnounce(deviceID string) string {
	return fmt.Sprintf("%s/device/%s", TopicPrefixDiscovery, deviceID)
}

// AllDeviceAnnounces returns the wildcard pattern for all device announcements.
func (Topics) AllDeviceAnnounces() string {
	return TopicPrefixDiscovery + "/device/+"
}

// ServiceAnnounce returns the topic a discovery agent publishes service
// availability on.
//
// Example: hearth/discovery/service/weather-local
func (Topics) ServiceAnnounce(serviceID string) string {
	return fmt.Sprintf("%s/service/%s", TopicPrefixDiscovery, serviceID)
}

// AllServiceAnnounces returns the wildcard pattern for all service announcements.
func (Topics) AllServiceAnnounces() string {
	return TopicPrefixDiscovery + "/service/+"
}

// PlanDispatch returns the topic an execution plan is dispatched on.
// The external orchestration executor subscribes here.
//
// Example: hearth/plan/dispatch/plan-4f2a91c3
func (Topics) PlanDispatch(planID string) string {
	return fmt.Sprintf("%s/dispatch/%s", TopicPrefixPlan, planID)
}

// PlanResult returns the topic the executor reports plan outcomes on.
//
// Example: hearth/plan/result/plan-4f2a91c3
func (Topics) PlanResult(planID string) string {
	return fmt.Sprintf("%s/result/%s", TopicPrefixPlan, planID)
}

// AllPlanResults returns the wildcard pattern for all plan results.
func (Topics) AllPlanResults() string {
	return TopicPrefixPlan + "/result/+"
}

// Event returns the topic for a core event broadcast.
//
// Example: hearth/event/suggestion.completed
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvent, eventType)
}

// AllEvents returns the wildcard pattern for all core event broadcasts.
func (Topics) AllEvents() string {
	return TopicPrefixEvent + "/+"
}

// SystemStatus returns the topic for core online/offline status.
//
// Example: hearth/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllTopics returns the wildcard pattern matching every Hearth topic.
// Useful for debugging and monitoring tools.
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
