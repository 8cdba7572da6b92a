package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimestampUsesFixedZone(t *testing.T) {
	utc := time.Date(2026, 8, 31, 4, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-31T12:00:00.000+08:00", Timestamp(utc))
}

func TestTimestampMillisecondPrecision(t *testing.T) {
	utc := time.Date(2026, 8, 31, 16, 30, 15, 123456789, time.UTC)
	assert.Equal(t, "2026-09-01T00:30:15.123+08:00", Timestamp(utc))
}
