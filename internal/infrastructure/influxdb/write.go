package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// The engine's Metrics interface maps onto three measurements:
// suggestion_pipeline for per-stage timing and volume, feedback for
// learning-signal rates, and inventory for fleet size after discovery
// sweeps. All writes are fire-and-forget into the batch buffer.

// WritePipelineMetrics records one pipeline stage's wall-clock time and
// item volume (candidates generated, cards packaged, and so on).
func (c *Client) WritePipelineMetrics(requestID string, stage string, durationMS int64, itemCount int) {
	c.write(write.NewPoint(
		"suggestion_pipeline",
		map[string]string{
			"stage": stage,
		},
		map[string]interface{}{
			"request_id":  requestID,
			"duration_ms": durationMS,
			"item_count":  itemCount,
		},
		time.Now(),
	))
}

// WriteFeedbackMetric records one feedback signal. The type tag is one
// of accept, reject, snooze, edit, execute; success is whether the
// signal applied cleanly.
func (c *Client) WriteFeedbackMetric(feedbackType string, success bool) {
	c.write(write.NewPoint(
		"feedback",
		map[string]string{
			"type": feedbackType,
		},
		map[string]interface{}{
			"count":   1,
			"success": success,
		},
		time.Now(),
	))
}

// WriteInventoryMetric records registry size after a discovery sweep,
// for tracking fleet growth and service availability over time.
func (c *Client) WriteInventoryMetric(deviceCount int, serviceCount int) {
	c.write(write.NewPoint(
		"inventory",
		map[string]string{},
		map[string]interface{}{
			"devices":  deviceCount,
			"services": serviceCount,
		},
		time.Now(),
	))
}

// write queues one point, silently dropping it once the client closes.
func (c *Client) write(point *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(point)
}
