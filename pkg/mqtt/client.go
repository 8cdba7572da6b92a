package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/atomic"
	"k8s.io/klog/v2"

	"vflowgateway/pkg/utils/timeutil"
)

func nowTimestamp() string {
	return timeutil.Timestamp(time.Now())
}

// Uploader owns the persistent broker connection and republishes sensor
// snapshots. Connect is idempotent and serialized by a mutex; the
// connected flag is maintained by paho's callback thread and read by the
// pipeline thread.
type Uploader struct {
	opts      *Options
	mu        sync.Mutex
	client    pahomqtt.Client
	connected *atomic.Bool

	newClient func(*pahomqtt.ClientOptions) pahomqtt.Client
}

type sensorMessage struct {
	Timestamp string      `json:"timestamp"`
	Value     interface{} `json:"value"`
	Sensor    string      `json:"sensor"`
	DeviceID  string      `json:"device_id"`
}

type statusMessage struct {
	Timestamp string `json:"timestamp"`
	DeviceID  string `json:"device_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

func NewUploader(opts *Options) *Uploader {
	return &Uploader{
		opts:      opts,
		connected: atomic.NewBool(false),
		newClient: pahomqtt.NewClient,
	}
}

// Connect establishes the broker session. It is a no-op when already
// connected and returns ErrPublishDisabled without any network I/O when
// publishing is administratively disabled. The call blocks for at most
// connectTimeout waiting for the broker's acknowledgment.
func (u *Uploader) Connect() error {
	if !u.opts.Enabled {
		return ErrPublishDisabled
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.connected.Load() {
		return nil
	}
	if u.client == nil {
		co, err := u.clientOptions()
		if err != nil {
			return err
		}
		u.client = u.newClient(co)
	}

	klog.V(1).InfoS("Connecting to MQTT broker", "url", u.opts.BrokerURL(), "clientId", u.opts.ClientID)
	token := u.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		klog.V(1).InfoS("MQTT broker connect timed out", "url", u.opts.BrokerURL())
		return ErrConnectTimeout
	}
	if err := token.Error(); err != nil {
		klog.V(1).InfoS("Failed to connect MQTT broker", "url", u.opts.BrokerURL(), "err", err)
		return err
	}
	u.connected.Store(true)
	return nil
}

func (u *Uploader) clientOptions() (*pahomqtt.ClientOptions, error) {
	co := pahomqtt.NewClientOptions().
		AddBroker(u.opts.BrokerURL()).
		SetClientID(u.opts.ClientID).
		SetKeepAlive(u.opts.Keepalive).
		SetAutoReconnect(false)

	if len(u.opts.Username) > 0 && len(u.opts.Password) > 0 {
		co.SetUsername(u.opts.Username)
		co.SetPassword(u.opts.Password)
	}

	if u.opts.UseTLS {
		tc, err := u.tlsConfig()
		if err != nil {
			return nil, err
		}
		co.SetTLSConfig(tc)
	}

	co.SetOnConnectHandler(func(pahomqtt.Client) {
		u.connected.Store(true)
		klog.V(1).InfoS("Connected to MQTT broker", "host", u.opts.BrokerHost, "port", u.opts.BrokerPort)
	})
	co.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		u.connected.Store(false)
		klog.V(1).InfoS("Lost connection to MQTT broker", "err", err)
	})
	return co, nil
}

func (u *Uploader) tlsConfig() (*tls.Config, error) {
	tc := &tls.Config{}
	if len(u.opts.TLSCACerts) > 0 {
		pem, err := os.ReadFile(u.opts.TLSCACerts)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificates: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no usable CA certificates in %s", u.opts.TLSCACerts)
		}
		tc.RootCAs = pool
	} else if u.opts.Transport == TransportTCP {
		klog.V(1).InfoS("TLS enabled without CA certificates, relying on the system trust store")
	}
	if len(u.opts.TLSCertFile) > 0 && len(u.opts.TLSKeyFile) > 0 {
		pair, err := tls.LoadX509KeyPair(u.opts.TLSCertFile, u.opts.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client keypair: %w", err)
		}
		tc.Certificates = []tls.Certificate{pair}
	}
	if u.opts.TLSInsecure {
		klog.InfoS("WARNING: TLS hostname verification is disabled for the MQTT connection")
		tc.InsecureSkipVerify = true
	}
	return tc, nil
}

// PublishBulk republishes a snapshot to the bulk topic and, when
// enabled, every non-nil field to its per-register topic. The snapshot's
// timestamp and device_id fields are folded back in explicitly.
func (u *Uploader) PublishBulk(snapshot map[string]interface{}) error {
	if !u.opts.Enabled {
		klog.V(3).InfoS("MQTT publishing disabled, dropping snapshot")
		return nil
	}
	if err := u.Connect(); err != nil {
		return err
	}

	payload := make(map[string]interface{}, len(snapshot))
	for name, value := range snapshot {
		if name == "timestamp" || name == "device_id" || value == nil {
			continue
		}
		payload[name] = value
	}
	if ts, ok := snapshot["timestamp"]; ok {
		payload["timestamp"] = ts
	}
	if id, ok := snapshot["device_id"]; ok {
		payload["device_id"] = id
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := u.publish(u.opts.BulkTopic, data); err != nil {
		klog.V(1).InfoS("Failed to publish bulk snapshot", "topic", u.opts.BulkTopic, "err", err)
		return err
	}
	klog.V(4).InfoS("Published bulk snapshot", "topic", u.opts.BulkTopic, "bytes", len(data))

	if u.opts.PublishIndividual {
		return u.publishIndividual(snapshot)
	}
	return nil
}

// publishIndividual publishes each non-nil register to its own topic.
// Success requires every individual publish to succeed.
func (u *Uploader) publishIndividual(snapshot map[string]interface{}) error {
	timestamp, _ := snapshot["timestamp"].(string)
	var failed []string
	for name, value := range snapshot {
		if name == "timestamp" || name == "device_id" || value == nil {
			continue
		}
		data, err := json.Marshal(&sensorMessage{
			Timestamp: timestamp,
			Value:     value,
			Sensor:    name,
			DeviceID:  u.opts.ClientID,
		})
		if err != nil {
			failed = append(failed, name)
			continue
		}
		if err := u.publish(u.opts.SensorTopic(name), data); err != nil {
			klog.V(1).InfoS("Failed to publish sensor value", "sensor", name, "err", err)
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to publish %d of the individual sensor values", len(failed))
	}
	return nil
}

// PublishStatus publishes a small status beacon to the status topic.
func (u *Uploader) PublishStatus(status, message string) error {
	if !u.opts.Enabled {
		return nil
	}
	if err := u.Connect(); err != nil {
		return err
	}
	data, err := json.Marshal(&statusMessage{
		Timestamp: nowTimestamp(),
		DeviceID:  u.opts.ClientID,
		Status:    status,
		Message:   message,
	})
	if err != nil {
		return err
	}
	return u.publish(u.opts.StatusTopic(), data)
}

func (u *Uploader) publish(topic string, payload []byte) error {
	token := u.client.Publish(topic, u.opts.QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}

// Disconnect stops the network loop and closes the connection. Calling
// it while disconnected is a no-op.
func (u *Uploader) Disconnect() {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.client == nil || !u.connected.Load() {
		return
	}
	u.client.Disconnect(disconnectQuiesce)
	u.connected.Store(false)
	klog.V(1).InfoS("Disconnected from MQTT broker")
}

func (u *Uploader) IsConnected() bool {
	return u.connected.Load()
}
