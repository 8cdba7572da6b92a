package mqtt

import (
	"errors"
	"time"
)

const (
	// connectTimeout bounds the wait for the broker's asynchronous
	// connect acknowledgment.
	connectTimeout = 10 * time.Second
	publishTimeout = 1 * time.Second

	disconnectQuiesce = 250 // milliseconds handed to paho on disconnect
)

var (
	ErrPublishDisabled = errors.New("mqtt publishing is disabled")
	ErrConnectTimeout  = errors.New("mqtt broker connect timeout")
	ErrPublishTimeout  = errors.New("mqtt publish timeout")
)
