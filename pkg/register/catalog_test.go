package register

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `registers:
  - name: flow_rate
    address: 28
    dataType: int16
    scale: 0.1
    group: hydraulics
    ui:
      view:
        - dashboard
        - detail
  - name: pressure
    address: 30
    dataType: uint16
    group: hydraulics
    ui:
      view: dashboard
  - name: temperature
    address: 45
modbus:
  ip: 10.1.2.3
  port: 1502
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "register_config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCatalog(t *testing.T) {
	catalog, err := LoadCatalog(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, uint16(28), catalog.MinAddress())
	assert.Equal(t, uint16(45), catalog.MaxAddress())
	assert.Equal(t, 18, catalog.SpanCount())
	assert.Equal(t, DeviceConfig{IP: "10.1.2.3", Port: 1502}, catalog.Device())

	def, ok := catalog.LookupByName("flow_rate")
	require.True(t, ok)
	assert.Equal(t, uint16(28), def.Address)
	assert.True(t, def.DataType.Signed())
	require.NotNil(t, def.Scale)
	assert.Equal(t, 0.1, *def.Scale)

	def, ok = catalog.LookupByAddress(30)
	require.True(t, ok)
	assert.Equal(t, "pressure", def.Name)
	assert.False(t, def.DataType.Signed())

	_, ok = catalog.LookupByAddress(29)
	assert.False(t, ok)
	_, ok = catalog.LookupByName("unknown")
	assert.False(t, ok)
}

func TestLoadCatalogViewShapes(t *testing.T) {
	catalog, err := LoadCatalog(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	meta := catalog.Metadata()
	require.Len(t, meta.Views["dashboard"], 2)
	require.Len(t, meta.Views["detail"], 1)
	assert.Equal(t, "flow_rate", meta.Views["detail"][0].Name)
	require.Len(t, meta.Groups["hydraulics"], 2)
	assert.Len(t, meta.Registers, 3)
}

func TestSpanCoversEveryDefinedAddress(t *testing.T) {
	catalog, err := LoadCatalog(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	for _, def := range catalog.Definitions() {
		assert.GreaterOrEqual(t, def.Address, catalog.MinAddress())
		assert.LessOrEqual(t, def.Address, catalog.MaxAddress())
	}
	assert.Equal(t, int(catalog.MaxAddress())-int(catalog.MinAddress())+1, catalog.SpanCount())
}

func TestEmptyRegisterList(t *testing.T) {
	catalog, err := LoadCatalog(writeConfig(t, "modbus:\n  ip: 1.2.3.4\n  port: 502\n"))
	require.NoError(t, err)

	assert.Equal(t, uint16(0), catalog.MinAddress())
	assert.Equal(t, uint16(0), catalog.MaxAddress())
	assert.Equal(t, 0, catalog.SpanCount())
}

func TestLoadCatalogFailures(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)

	_, err = LoadCatalog(writeConfig(t, ""))
	assert.ErrorIs(t, err, ErrConfigEmpty)

	_, err = LoadCatalog(writeConfig(t, "registers:\n  - address: 10\n"))
	assert.ErrorIs(t, err, ErrMissingName)

	_, err = LoadCatalog(writeConfig(t, "registers:\n  - name: a\n"))
	assert.ErrorIs(t, err, ErrMissingAddress)

	_, err = LoadCatalog(writeConfig(t, "registers:\n  - name: a\n    address: 10\n  - name: b\n    address: 10\n"))
	assert.ErrorIs(t, err, ErrDuplicateAddress)
}

func TestDeviceConfigDefaults(t *testing.T) {
	catalog, err := LoadCatalog(writeConfig(t, "registers:\n  - name: a\n    address: 10\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultDeviceIP, catalog.Device().IP)
	assert.Equal(t, DefaultDevicePort, catalog.Device().Port)
}
