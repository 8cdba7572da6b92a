package register

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

// UpdateDeviceConfig rewrites the modbus section of the configuration
// file in place, leaving every other byte of the file untouched. The
// node parser is used only to locate and decode the section; the new
// section text is spliced into the original file at the line level, so
// formatting and comments outside the section survive verbatim. The
// running catalog is not reloaded; the caller must surface that a
// restart is required for the new endpoint to take effect.
func UpdateDeviceConfig(path string, ip string, port int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedConfig, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("%w: top level mapping expected", ErrMalformedConfig)
	}
	root := doc.Content[0]

	keyNode, device := mappingEntry(root, "modbus")
	if device == nil {
		device = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	setScalar(device, "ip", ip, "!!str")
	setScalar(device, "port", strconv.Itoa(port), "!!int")

	section, err := renderSection("modbus", device)
	if err != nil {
		return err
	}

	var text string
	if keyNode == nil {
		text = string(data)
		if len(text) > 0 && !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		text += strings.Join(section, "\n") + "\n"
	} else {
		lines := strings.Split(string(data), "\n")
		start := keyNode.Line - 1
		end := sectionEnd(lines, start+1)
		spliced := make([]string, 0, len(lines)+len(section))
		spliced = append(spliced, lines[:start]...)
		spliced = append(spliced, section...)
		spliced = append(spliced, lines[end:]...)
		text = strings.Join(spliced, "\n")
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, []byte(text), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	klog.V(1).InfoS("Updated device endpoint in configuration file", "file", path, "ip", ip, "port", port)
	return nil
}

// renderSection encodes one top-level mapping entry as text lines. The
// key node is built fresh so head comments attributed to the original
// key are not duplicated into the output.
func renderSection(key string, value *yaml.Node) ([]string, error) {
	section := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			value,
		},
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(section); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n"), nil
}

// sectionEnd walks forward from the line after a top-level key until
// the next top-level token. Trailing blank lines are left with the
// following section.
func sectionEnd(lines []string, start int) int {
	end := start
	for end < len(lines) {
		line := lines[end]
		if len(strings.TrimSpace(line)) == 0 || line[0] == ' ' || line[0] == '\t' {
			end++
			continue
		}
		break
	}
	for end > start && len(strings.TrimSpace(lines[end-1])) == 0 {
		end--
	}
	return end
}

func mappingEntry(mapping *yaml.Node, key string) (*yaml.Node, *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i], mapping.Content[i+1]
		}
	}
	return nil, nil
}

func setScalar(mapping *yaml.Node, key, value, tag string) {
	if _, node := mappingEntry(mapping, key); node != nil {
		node.SetString(value)
		node.Tag = tag
		node.Style = 0
		return
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value})
}
