package register

import "errors"

const (
	DefaultDeviceIP   = "192.168.0.33"
	DefaultDevicePort = 1502
)

var (
	ErrConfigNotFound   = errors.New("register configuration file not found")
	ErrConfigEmpty      = errors.New("register configuration is empty or invalid")
	ErrMissingName      = errors.New("register entry missing mandatory field name")
	ErrMissingAddress   = errors.New("register entry missing mandatory field address")
	ErrDuplicateAddress = errors.New("register address defined more than once")
	ErrMalformedConfig  = errors.New("register configuration is not well-formed")
)
