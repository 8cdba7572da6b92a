package mqtt

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"vflowgateway/pkg/utils/uuidutil"
)

// Transport selects how the broker connection is carried. Combined with
// UseTLS this yields the four supported variants: tcp, tcp+tls,
// websocket, websocket+tls.
type Transport string

const (
	TransportTCP       Transport = "tcp"
	TransportWebSocket Transport = "websockets"
)

// Options is the messaging client configuration, sourced from the
// environment (optionally via a .env file loaded at bootstrap).
type Options struct {
	BrokerHost        string
	BrokerPort        int
	Username          string
	Password          string
	ClientID          string
	Keepalive         time.Duration
	BaseTopic         string
	BulkTopic         string
	Transport         Transport
	WSPath            string
	UseTLS            bool
	TLSCACerts        string
	TLSCertFile       string
	TLSKeyFile        string
	TLSInsecure       bool
	QoS               byte
	Enabled           bool
	PublishIndividual bool
}

func NewOptionsFromEnv() *Options {
	o := &Options{
		BrokerHost:        envString("MQTT_BROKER_HOST", "192.168.0.89"),
		BrokerPort:        envInt("MQTT_BROKER_PORT", 1883),
		Username:          os.Getenv("MQTT_USERNAME"),
		Password:          os.Getenv("MQTT_PASSWORD"),
		ClientID:          envString("MQTT_CLIENT_ID", "vflow_client_"+uuidutil.ShortUUID()),
		Keepalive:         60 * time.Second,
		BaseTopic:         envString("MQTT_BASE_TOPIC", "vflow"),
		Transport:         Transport(strings.ToLower(envString("MQTT_TRANSPORT", string(TransportTCP)))),
		WSPath:            envString("MQTT_WS_PATH", "/mqtt"),
		UseTLS:            envBool("MQTT_USE_TLS", false),
		TLSCACerts:        os.Getenv("MQTT_TLS_CA_CERTS"),
		TLSCertFile:       os.Getenv("MQTT_TLS_CERTFILE"),
		TLSKeyFile:        os.Getenv("MQTT_TLS_KEYFILE"),
		TLSInsecure:       envBool("MQTT_TLS_INSECURE", false),
		QoS:               byte(envInt("MQTT_QOS_LEVEL", 1)),
		Enabled:           envBool("MQTT_ENABLED", true),
		PublishIndividual: envBool("MQTT_PUBLISH_INDIVIDUAL", false),
	}
	o.BulkTopic = envString("MQTT_BULK_TOPIC", o.BaseTopic+"/data/bulk")
	return o
}

func (o *Options) StatusTopic() string {
	return o.BaseTopic + "/status"
}

func (o *Options) SensorTopic(name string) string {
	return o.BaseTopic + "/sensors/" + name
}

// BrokerURL folds transport, TLS scheme and the websocket sub-path into
// the paho broker address. The sub-path only applies to websockets and
// must be part of the URL before any TLS configuration happens.
func (o *Options) BrokerURL() string {
	switch o.Transport {
	case TransportWebSocket:
		scheme := "ws"
		if o.UseTLS {
			scheme = "wss"
		}
		return fmt.Sprintf("%s://%s:%d%s", scheme, o.BrokerHost, o.BrokerPort, o.WSPath)
	default:
		scheme := "tcp"
		if o.UseTLS {
			scheme = "ssl"
		}
		return fmt.Sprintf("%s://%s:%d", scheme, o.BrokerHost, o.BrokerPort)
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); len(v) > 0 {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); len(v) > 0 {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.ToLower(os.Getenv(key))
	if len(v) == 0 {
		return fallback
	}
	switch v {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
