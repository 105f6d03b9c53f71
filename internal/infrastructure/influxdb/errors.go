package influxdb

import "errors"

// Sentinel errors, matchable with errors.Is. Write failures do not
// appear here: writes are batched and asynchronous, so their errors
// arrive through the SetOnError callback instead.
var (
	// ErrDisabled is returned by Connect when telemetry is switched off
	// in the config. Callers treat it as "run without metrics".
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed wraps a failed ping during Connect.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected is returned by HealthCheck after Close.
	ErrNotConnected = errors.New("influxdb: not connected")
)
