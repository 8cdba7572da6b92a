package register

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DataType tags how a raw 16 bit word is reinterpreted after a read.
// Anything outside the signed set is passed through unchanged, including
// the float marker: 32 bit and floating point quantities spanning two
// words are not reconstructed, the first word is published as-is.
type DataType string

var signedDataTypes = map[string]struct{}{
	"int16":        {},
	"sint16":       {},
	"signed":       {},
	"short":        {},
	"signed_short": {},
	"signed int16": {},
}

func (dt DataType) Signed() bool {
	_, ok := signedDataTypes[strings.ToLower(string(dt))]
	return ok
}

// ViewList accepts either a single string or a list of strings, the two
// shapes the configuration schema allows for ui.view.
type ViewList []string

func (v *ViewList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*v = ViewList{s}
		return nil
	case yaml.SequenceNode:
		var ss []string
		if err := node.Decode(&ss); err != nil {
			return err
		}
		*v = ss
		return nil
	default:
		return fmt.Errorf("%w: ui.view must be a string or a list of strings", ErrMalformedConfig)
	}
}

type UISettings struct {
	View ViewList `json:"view,omitempty" yaml:"view,omitempty"`
}

// RegisterDefinition is one entry of the declarative register list. It is
// immutable once the catalog has been built.
type RegisterDefinition struct {
	Name     string      `json:"name" yaml:"name"`
	Address  uint16      `json:"address" yaml:"address"`
	DataType DataType    `json:"dataType,omitempty" yaml:"dataType,omitempty"`
	Scale    *float64    `json:"scale,omitempty" yaml:"scale,omitempty"`
	Group    string      `json:"group,omitempty" yaml:"group,omitempty"`
	UI       *UISettings `json:"ui,omitempty" yaml:"ui,omitempty"`
}

func (rd *RegisterDefinition) Views() []string {
	if rd.UI == nil {
		return nil
	}
	return rd.UI.View
}

// DeviceConfig is the field device endpoint, sourced from the modbus
// section of the same configuration file as the register list.
type DeviceConfig struct {
	IP   string `json:"ip" yaml:"ip"`
	Port int    `json:"port" yaml:"port"`
}

// Metadata is the read-only shape handed to the presentation layer.
type Metadata struct {
	Registers []*RegisterDefinition            `json:"registers"`
	Groups    map[string][]*RegisterDefinition `json:"groups"`
	Views     map[string][]*RegisterDefinition `json:"views"`
}
