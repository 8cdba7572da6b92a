package collector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vflowgateway/pkg/register"
)

type stubReader struct {
	mtx     sync.Mutex
	values  map[string]interface{}
	calls   int
	started chan struct{}
	release chan struct{}
}

func (r *stubReader) Read(*register.Catalog) map[string]interface{} {
	r.mtx.Lock()
	r.calls++
	r.mtx.Unlock()
	if r.started != nil {
		r.started <- struct{}{}
		<-r.release
	}
	return r.values
}

func (r *stubReader) callCount() int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.calls
}

type stubUploader struct {
	mtx        sync.Mutex
	snapshots  []map[string]interface{}
	statuses   []string
	publishErr error
}

func (u *stubUploader) Connect() error { return nil }

func (u *stubUploader) PublishBulk(snapshot map[string]interface{}) error {
	u.mtx.Lock()
	defer u.mtx.Unlock()
	u.snapshots = append(u.snapshots, snapshot)
	return u.publishErr
}

func (u *stubUploader) PublishStatus(status, message string) error {
	u.mtx.Lock()
	defer u.mtx.Unlock()
	u.statuses = append(u.statuses, status)
	return nil
}

func (u *stubUploader) Disconnect() {}

func (u *stubUploader) snapshotCount() int {
	u.mtx.Lock()
	defer u.mtx.Unlock()
	return len(u.snapshots)
}

func (u *stubUploader) statusList() []string {
	u.mtx.Lock()
	defer u.mtx.Unlock()
	return append([]string(nil), u.statuses...)
}

func scale(v float64) *float64 { return &v }

func testCatalog(t *testing.T) *register.Catalog {
	t.Helper()
	catalog, err := register.NewCatalog([]*register.RegisterDefinition{
		{Name: "A", Address: 10, DataType: "int16"},
		{Name: "B", Address: 12, DataType: "uint16", Scale: scale(0.1)},
	}, register.DeviceConfig{IP: "127.0.0.1", Port: 1502})
	require.NoError(t, err)
	return catalog
}

func TestBuildSnapshotScaling(t *testing.T) {
	m := NewManager(testCatalog(t), &stubReader{}, &stubUploader{}, DefaultInterval, "dev-1", nil)
	now := time.Date(2026, 8, 31, 4, 0, 0, 0, time.UTC)

	snapshot := m.BuildSnapshot(map[string]interface{}{"A": -1, "B": 50}, now)

	assert.Equal(t, -1, snapshot["A"])
	assert.Equal(t, 5.0, snapshot["B"])
	assert.Equal(t, "dev-1", snapshot["device_id"])
	// 04:00 UTC rendered in the fixed UTC+8 deployment zone
	assert.Equal(t, "2026-08-31T12:00:00.000+08:00", snapshot["timestamp"])
}

func TestBuildSnapshotNilPassthrough(t *testing.T) {
	m := NewManager(testCatalog(t), &stubReader{}, &stubUploader{}, DefaultInterval, "dev-1", nil)

	snapshot := m.BuildSnapshot(map[string]interface{}{"A": nil, "B": nil}, time.Now())

	v, present := snapshot["A"]
	require.True(t, present)
	assert.Nil(t, v)
	assert.Nil(t, snapshot["B"])
}

func TestBuildSnapshotScaleCoercionFailureKeepsRaw(t *testing.T) {
	m := NewManager(testCatalog(t), &stubReader{}, &stubUploader{}, DefaultInterval, "dev-1", nil)

	snapshot := m.BuildSnapshot(map[string]interface{}{"B": "not-a-number"}, time.Now())

	assert.Equal(t, "not-a-number", snapshot["B"])
}

func TestBuildSnapshotUnknownRegisterPassthrough(t *testing.T) {
	m := NewManager(testCatalog(t), &stubReader{}, &stubUploader{}, DefaultInterval, "dev-1", nil)

	snapshot := m.BuildSnapshot(map[string]interface{}{"ghost": 7}, time.Now())

	assert.Equal(t, 7, snapshot["ghost"])
}

func TestCollectOncePublishes(t *testing.T) {
	reader := &stubReader{values: map[string]interface{}{"A": -1, "B": 50}}
	uploader := &stubUploader{}
	m := NewManager(testCatalog(t), reader, uploader, DefaultInterval, "dev-1", nil)

	m.collectOnce()

	require.Equal(t, 1, uploader.snapshotCount())
	assert.Equal(t, 5.0, uploader.snapshots[0]["B"])
}

func TestCollectOnceEmptyReadSkipsPublish(t *testing.T) {
	reader := &stubReader{values: map[string]interface{}{}}
	uploader := &stubUploader{}
	m := NewManager(testCatalog(t), reader, uploader, DefaultInterval, "dev-1", nil)

	m.collectOnce()

	assert.Equal(t, 0, uploader.snapshotCount())
}

func TestCollectSkipsWhileCycleInFlight(t *testing.T) {
	reader := &stubReader{
		values:  map[string]interface{}{"A": 1},
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	uploader := &stubUploader{}
	m := NewManager(testCatalog(t), reader, uploader, DefaultInterval, "dev-1", nil)

	go m.collect()
	<-reader.started

	// a second tick while the first run holds the lock must be skipped
	m.collect()
	assert.Equal(t, 1, reader.callCount())

	close(reader.release)
	require.Eventually(t, func() bool { return uploader.snapshotCount() == 1 }, time.Second, 10*time.Millisecond)

	// with the lock free again the next tick runs
	reader.started = nil
	m.collect()
	assert.Equal(t, 2, reader.callCount())
}

func TestCollectRecoversFromPanic(t *testing.T) {
	m := NewManager(testCatalog(t), &panicReader{}, &stubUploader{}, DefaultInterval, "dev-1", nil)

	assert.NotPanics(t, func() { m.collect() })
	// the lock must have been released
	assert.True(t, m.mu.TryLock())
	m.mu.Unlock()
}

type panicReader struct{}

func (r *panicReader) Read(*register.Catalog) map[string]interface{} {
	panic("device driver fault")
}

func TestShutdownPublishesOfflineStatus(t *testing.T) {
	uploader := &stubUploader{}
	m := NewManager(testCatalog(t), &stubReader{}, uploader, DefaultInterval, "dev-1", nil)

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, []string{"offline"}, uploader.statuses)
}

func TestShutdownWaitsForInFlightCycle(t *testing.T) {
	reader := &stubReader{
		values:  map[string]interface{}{"A": 1},
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	uploader := &stubUploader{}
	m := NewManager(testCatalog(t), reader, uploader, DefaultInterval, "dev-1", nil)

	go m.collect()
	<-reader.started

	done := make(chan struct{})
	go func() {
		_ = m.Shutdown(context.Background())
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("shutdown finished while a cycle was still in flight")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Empty(t, uploader.statusList())

	close(reader.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not finish after the cycle completed")
	}

	// the in-flight snapshot landed before the offline beacon
	assert.Equal(t, 1, uploader.snapshotCount())
	assert.Equal(t, []string{"offline"}, uploader.statusList())
}
