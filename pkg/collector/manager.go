package collector

import (
	"context"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"vflowgateway/pkg/register"
	"vflowgateway/pkg/utils/timeutil"
)

type Reader interface {
	Read(catalog *register.Catalog) map[string]interface{}
}

type Uploader interface {
	Connect() error
	PublishBulk(snapshot map[string]interface{}) error
	PublishStatus(status, message string) error
	Disconnect()
}

// Manager drives the read, scale, publish pipeline on a fixed interval.
// A non-blocking lock bounds the pipeline to one run at a time: a tick
// that fires while a run is still in flight is skipped, not queued.
type Manager struct {
	catalog  *register.Catalog
	reader   Reader
	uploader Uploader
	interval time.Duration
	deviceID string
	mu       sync.Mutex
	stopCh   <-chan struct{}
	now      func() time.Time
}

func NewManager(catalog *register.Catalog, reader Reader, uploader Uploader,
	interval time.Duration, deviceID string, stop <-chan struct{}) *Manager {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if len(deviceID) == 0 {
		deviceID = DefaultDeviceID
	}
	return &Manager{
		catalog:  catalog,
		reader:   reader,
		uploader: uploader,
		interval: interval,
		deviceID: deviceID,
		stopCh:   stop,
		now:      time.Now,
	}
}

func (m *Manager) Init() {
	if err := m.uploader.PublishStatus("online", "gateway started"); err != nil {
		klog.V(2).InfoS("Failed to publish online status", "err", err)
	}
	go m.run()
	klog.V(1).InfoS("Collect pipeline scheduled", "interval", m.interval, "deviceId", m.deviceID)
}

func (m *Manager) run() {
	tick := time.Tick(m.interval)
	for {
		select {
		case _, ok := <-m.stopCh:
			if !ok {
				return
			}
		case <-tick:
			go m.collect()
		}
	}
}

// collect executes one guarded pipeline pass. Panics are contained here
// so a failing cycle never takes the scheduler down.
func (m *Manager) collect() {
	if !m.mu.TryLock() {
		klog.V(1).InfoS("Skipped collect cycle, previous cycle still running")
		return
	}
	defer m.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			klog.ErrorS(nil, "Recovered from collect cycle panic", "panic", r)
		}
	}()
	m.collectOnce()
}

func (m *Manager) collectOnce() {
	values := m.reader.Read(m.catalog)
	if len(values) == 0 {
		klog.V(2).InfoS("No device data available this cycle")
		return
	}
	snapshot := m.BuildSnapshot(values, m.now())
	if err := m.uploader.PublishBulk(snapshot); err != nil {
		klog.V(1).InfoS("Failed to publish snapshot", "err", err)
	}
}

// BuildSnapshot applies the declared scale factors and stamps timestamp
// and device identity. A value whose scale cannot be applied numerically
// is kept raw rather than dropped.
func (m *Manager) BuildSnapshot(values map[string]interface{}, now time.Time) map[string]interface{} {
	snapshot := make(map[string]interface{}, len(values)+2)
	for name, raw := range values {
		if raw == nil {
			snapshot[name] = nil
			continue
		}
		def, known := m.catalog.LookupByName(name)
		if !known || def.Scale == nil {
			snapshot[name] = raw
			continue
		}
		f, ok := toFloat(raw)
		if !ok {
			klog.V(2).InfoS("Failed to apply scale, keeping raw value", "register", name, "value", raw)
			snapshot[name] = raw
			continue
		}
		snapshot[name] = f * *def.Scale
	}
	snapshot["timestamp"] = timeutil.Timestamp(now)
	snapshot["device_id"] = m.deviceID
	return snapshot
}

// LiveData triggers one on-demand read cycle, independent of the
// scheduled pipeline.
func (m *Manager) LiveData() map[string]interface{} {
	return m.reader.Read(m.catalog)
}

func (m *Manager) Metadata() *register.Metadata {
	return m.catalog.Metadata()
}

// Shutdown waits for an in-flight cycle to finish, then publishes the
// offline beacon and drops the broker connection. Taking the pipeline
// lock here guarantees no cycle reconnects after the disconnect.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.uploader.PublishStatus("offline", "gateway stopping"); err != nil {
		klog.V(2).InfoS("Failed to publish offline status", "err", err)
	}
	m.uploader.Disconnect()
	klog.V(1).InfoS("Collect pipeline stopped")
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
