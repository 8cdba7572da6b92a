package collector

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vflowgateway/pkg/register"
)

func testRouter(t *testing.T, configPath string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	m := NewManager(testCatalog(t), &stubReader{values: map[string]interface{}{"A": -1, "B": 50}},
		&stubUploader{}, DefaultInterval, "dev-1", nil)
	InstallHandler(router.Group("/api/v1"), m, configPath)
	return router
}

func writeDeviceConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "register_config.yaml")
	content := "registers:\n  - name: A\n    address: 10\nmodbus:\n  ip: 192.168.0.33\n  port: 1502\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGetRegisterDefinitions(t *testing.T) {
	router := testRouter(t, writeDeviceConfig(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/registers/definitions", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"registers"`)
	assert.Contains(t, w.Body.String(), `"name":"A"`)
}

func TestGetLiveData(t *testing.T) {
	router := testRouter(t, writeDeviceConfig(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/live-data", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"A":-1,"B":50}`, w.Body.String())
}

func TestSetModbusConfig(t *testing.T) {
	path := writeDeviceConfig(t)
	router := testRouter(t, path)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/modbus-config",
		strings.NewReader(`{"ip":"10.0.0.5","port":502}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "restart is required")

	catalog, err := register.LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, register.DeviceConfig{IP: "10.0.0.5", Port: 502}, catalog.Device())
}

func TestSetModbusConfigEmptyBody(t *testing.T) {
	router := testRouter(t, writeDeviceConfig(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/v1/modbus-config", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":10002`)
}

func TestSetModbusConfigMalformedJSON(t *testing.T) {
	router := testRouter(t, writeDeviceConfig(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/modbus-config", strings.NewReader("{not json"))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":10001`)
}

func TestSetModbusConfigMissingField(t *testing.T) {
	router := testRouter(t, writeDeviceConfig(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/modbus-config", strings.NewReader(`{"port":502}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":10003`)
}
