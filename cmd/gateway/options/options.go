package options

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"vflowgateway/cmd/gateway/config"
	"vflowgateway/pkg/collector"
	baseoptions "vflowgateway/pkg/generic/options"
	"vflowgateway/pkg/modbus"
	"vflowgateway/pkg/mqtt"
	"vflowgateway/pkg/register"
)

type Options struct {
	Port           string        `json:"port"`
	Wait           time.Duration `json:"graceful-timeout"`
	RegisterConfig string        `json:"register-config"`
	EnvFile        string        `json:"env-file"`
	Interval       time.Duration `json:"upload-interval"`
	baseoptions.BaseOptions
}

const (
	_defaultPort           = "32210"
	_defaultWait           = 15 * time.Second
	_defaultRegisterConfig = "register_config.yaml"
	_defaultEnvFile        = ".env"
)

func NewDefaultOptions() *Options {
	return &Options{
		Port:           _defaultPort,
		Wait:           _defaultWait,
		RegisterConfig: _defaultRegisterConfig,
		EnvFile:        _defaultEnvFile,
		BaseOptions:    baseoptions.NewDefaultBaseOptions(),
	}
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Port, "port", "P", o.Port, "Port exposed")
	fs.DurationVar(&o.Wait, "graceful-timeout", o.Wait, "The duration for which the server gracefully wait for existing connections to finish - e.g. 15s or 1m")
	fs.StringVar(&o.RegisterConfig, "register-config", o.RegisterConfig, "Path to the register definition file")
	fs.StringVar(&o.EnvFile, "env-file", o.EnvFile, "Path to an env file loaded before reading MQTT and upload settings from the environment")
	fs.DurationVar(&o.Interval, "upload-interval", o.Interval, "Interval between collect cycles. Overrides DATA_UPLOAD_INTERVAL when set")
}

func (o *Options) Config(stopCh <-chan struct{}) (*config.Config, error) {
	if err := godotenv.Load(o.EnvFile); err != nil {
		klog.V(2).InfoS("No env file loaded, using process environment", "file", o.EnvFile)
	}

	catalog, err := register.LoadCatalog(o.RegisterConfig)
	if err != nil {
		klog.ErrorS(err, "Failed to load register config", "file", o.RegisterConfig)
		return nil, err
	}

	uploader := mqtt.NewUploader(mqtt.NewOptionsFromEnv())
	if err := uploader.Connect(); err != nil {
		klog.V(1).InfoS("Failed to connect to MQTT broker, collection continues without publishing", "err", err)
	}

	interval := o.Interval
	if interval <= 0 {
		interval = collector.IntervalFromEnv()
	}

	c := &config.Config{RegisterConfigFile: o.RegisterConfig}
	collectorMgr := collector.NewManager(catalog, modbus.NewReader(catalog.Device()), uploader,
		interval, collector.DeviceIDFromEnv(), stopCh)

	collectorMgr.Init()
	c.CollectorMgr = collectorMgr

	return c, nil
}
