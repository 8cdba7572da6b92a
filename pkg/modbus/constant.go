package modbus

import (
	"errors"
	"time"
)

// MaxReadCount bounds the number of 16 bit words requested per holding
// register read.
const MaxReadCount = 64

const (
	defaultSlaveID = 1
	dialTimeout    = 5 * time.Second
)

var (
	ErrConnectDevice   = errors.New("failed to connect modbus device")
	ErrDeviceException = errors.New("modbus device returned an exception")
	ErrBadConn         = errors.New("modbus connection failure")
)
