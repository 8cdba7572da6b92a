package collector

import (
	"os"
	"strconv"
	"time"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultDeviceID = "vflow_sensor_client"
)

// IntervalFromEnv resolves the publish interval from
// DATA_UPLOAD_INTERVAL (seconds), falling back to the default.
func IntervalFromEnv() time.Duration {
	if v := os.Getenv("DATA_UPLOAD_INTERVAL"); len(v) > 0 {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return DefaultInterval
}

func DeviceIDFromEnv() string {
	if v := os.Getenv("CLOUD_DEVICE_ID"); len(v) > 0 {
		return v
	}
	return DefaultDeviceID
}
