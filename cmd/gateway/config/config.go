package config

import (
	"vflowgateway/pkg/collector"
)

type Config struct {
	CollectorMgr       *collector.Manager
	RegisterConfigFile string
	CertFile           string
	KeyFile            string
}
