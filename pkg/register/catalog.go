package register

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

// Catalog indexes the ordered register list by name, address, group and
// display view, and carries the contiguous address span the device reader
// must cover. It is built once at startup and never mutated afterwards;
// external edits to the configuration file require a restart.
type Catalog struct {
	definitions []*RegisterDefinition
	byName      map[string]*RegisterDefinition
	byAddress   map[uint16]*RegisterDefinition
	byGroup     map[string][]*RegisterDefinition
	byView      map[string][]*RegisterDefinition
	minAddress  uint16
	maxAddress  uint16
	device      DeviceConfig
}

type rawRegister struct {
	Name     *string     `yaml:"name"`
	Address  *int        `yaml:"address"`
	DataType DataType    `yaml:"dataType"`
	Scale    *float64    `yaml:"scale"`
	Group    string      `yaml:"group"`
	UI       *UISettings `yaml:"ui"`
}

type fileSchema struct {
	Registers []rawRegister `yaml:"registers"`
	Modbus    *DeviceConfig `yaml:"modbus"`
}

// LoadCatalog reads the configuration file and builds the catalog. Any
// failure here is fatal to the process: the gateway must not start with
// an unusable register list.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrConfigEmpty, path)
	}

	var schema fileSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedConfig, err)
	}
	if len(schema.Registers) == 0 && schema.Modbus == nil {
		return nil, fmt.Errorf("%w: %s", ErrConfigEmpty, path)
	}

	definitions := make([]*RegisterDefinition, 0, len(schema.Registers))
	for i, raw := range schema.Registers {
		if raw.Name == nil || len(*raw.Name) == 0 {
			return nil, fmt.Errorf("%w: entry %d", ErrMissingName, i)
		}
		if raw.Address == nil {
			return nil, fmt.Errorf("%w: register %q", ErrMissingAddress, *raw.Name)
		}
		if *raw.Address < 0 || *raw.Address > 0xFFFF {
			return nil, fmt.Errorf("%w: register %q address %d out of range", ErrMalformedConfig, *raw.Name, *raw.Address)
		}
		definitions = append(definitions, &RegisterDefinition{
			Name:     *raw.Name,
			Address:  uint16(*raw.Address),
			DataType: raw.DataType,
			Scale:    raw.Scale,
			Group:    raw.Group,
			UI:       raw.UI,
		})
	}

	device := DeviceConfig{IP: DefaultDeviceIP, Port: DefaultDevicePort}
	if schema.Modbus != nil {
		if len(schema.Modbus.IP) > 0 {
			device.IP = schema.Modbus.IP
		}
		if schema.Modbus.Port > 0 {
			device.Port = schema.Modbus.Port
		}
	}

	catalog, err := NewCatalog(definitions, device)
	if err != nil {
		return nil, err
	}
	klog.V(1).InfoS("Loaded register catalog", "file", path,
		"registers", len(definitions), "minAddress", catalog.MinAddress(), "maxAddress", catalog.MaxAddress())
	return catalog, nil
}

// NewCatalog builds the lookup structures from an already parsed register
// list. Addresses must be unique across the list.
func NewCatalog(definitions []*RegisterDefinition, device DeviceConfig) (*Catalog, error) {
	c := &Catalog{
		definitions: definitions,
		byName:      make(map[string]*RegisterDefinition, len(definitions)),
		byAddress:   make(map[uint16]*RegisterDefinition, len(definitions)),
		byGroup:     make(map[string][]*RegisterDefinition),
		byView:      make(map[string][]*RegisterDefinition),
		device:      device,
	}

	for i, def := range definitions {
		if _, exist := c.byAddress[def.Address]; exist {
			return nil, fmt.Errorf("%w: address %d", ErrDuplicateAddress, def.Address)
		}
		c.byName[def.Name] = def
		c.byAddress[def.Address] = def
		if len(def.Group) > 0 {
			c.byGroup[def.Group] = append(c.byGroup[def.Group], def)
		}
		for _, view := range def.Views() {
			c.byView[view] = append(c.byView[view], def)
		}

		if i == 0 || def.Address < c.minAddress {
			c.minAddress = def.Address
		}
		if def.Address > c.maxAddress {
			c.maxAddress = def.Address
		}
	}
	return c, nil
}

func (c *Catalog) Definitions() []*RegisterDefinition {
	return c.definitions
}

func (c *Catalog) LookupByName(name string) (*RegisterDefinition, bool) {
	def, ok := c.byName[name]
	return def, ok
}

func (c *Catalog) LookupByAddress(address uint16) (*RegisterDefinition, bool) {
	def, ok := c.byAddress[address]
	return def, ok
}

func (c *Catalog) MinAddress() uint16 {
	return c.minAddress
}

func (c *Catalog) MaxAddress() uint16 {
	return c.maxAddress
}

// SpanCount is the size of the contiguous address span covering every
// defined register, gaps included. Zero for an empty catalog.
func (c *Catalog) SpanCount() int {
	if len(c.definitions) == 0 {
		return 0
	}
	return int(c.maxAddress) - int(c.minAddress) + 1
}

func (c *Catalog) Device() DeviceConfig {
	return c.device
}

func (c *Catalog) Metadata() *Metadata {
	return &Metadata{
		Registers: c.definitions,
		Groups:    c.byGroup,
		Views:     c.byView,
	}
}
