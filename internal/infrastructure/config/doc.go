// Package config provides configuration loading for Hearth Core.
//
// Configuration is loaded from a YAML file with environment variable
// overrides. The loading order is: hardcoded defaults, then YAML file
// values, then HEARTH_* environment variables.
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.API.Port)
//
// # Environment Overrides
//
// Sensitive values (JWT secret, MQTT credentials, InfluxDB token) should
// always be supplied via environment variables rather than the YAML file:
//
//	HEARTH_DATABASE_PATH
//	HEARTH_MQTT_HOST / HEARTH_MQTT_USERNAME / HEARTH_MQTT_PASSWORD
//	HEARTH_API_HOST / HEARTH_API_PORT
//	HEARTH_INFLUXDB_TOKEN
//	HEARTH_JWT_SECRET
package config
