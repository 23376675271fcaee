// Package config loads the ordered list of (protocol name, properties)
// pairs used to assemble a Stack, grounded on the teacher's
// pkg/mcast/definition configuration types generalized to the spec's
// External Interfaces: a YAML document (the structured substitute for
// the original's XML), or a flat `NAME(k=v;k=v):NAME(...)` string,
// resolved from a file, a URL, or a bundled classpath-style resource.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// LayerSpec is one entry in a stack descriptor: the protocol's
// registered name and its configuration properties.
type LayerSpec struct {
	Name       string            `yaml:"name"`
	Properties map[string]string `yaml:"properties"`
}

// StackDescriptor is the ordered list of layers to assemble, bottom
// (transport) first, in the order the source lists them.
type StackDescriptor struct {
	Layers []LayerSpec `yaml:"layers"`
}

var varPattern = regexp.MustCompile(`\$\{([^:}]+)(?::([^}]*))?\}`)

// substitute replaces every ${name:default} occurrence in s with the
// environment variable "name", falling back to "default" (or the
// empty string if no default is given) when unset.
func substitute(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := varPattern.FindStringSubmatch(match)
		name, def := groups[1], groups[2]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return def
	})
}

// ParseYAML parses a YAML stack descriptor, applying ${name:default}
// substitution to every property value.
func ParseYAML(data []byte) (*StackDescriptor, error) {
	var d StackDescriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	for i, layer := range d.Layers {
		for k, v := range layer.Properties {
			d.Layers[i].Properties[k] = substitute(v)
		}
	}
	return &d, nil
}

// ParseFlatString parses the `NAME(k=v;k=v):NAME(...)` form called
// out in the spec's External Interfaces.
func ParseFlatString(s string) (*StackDescriptor, error) {
	var d StackDescriptor
	for _, segment := range splitTopLevel(s, ':') {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		layer, err := parseFlatSegment(segment)
		if err != nil {
			return nil, err
		}
		d.Layers = append(d.Layers, layer)
	}
	return &d, nil
}

func parseFlatSegment(segment string) (LayerSpec, error) {
	open := strings.IndexByte(segment, '(')
	if open == -1 {
		return LayerSpec{Name: segment, Properties: map[string]string{}}, nil
	}
	if !strings.HasSuffix(segment, ")") {
		return LayerSpec{}, fmt.Errorf("config: malformed layer segment %q", segment)
	}
	name := strings.TrimSpace(segment[:open])
	body := segment[open+1 : len(segment)-1]

	props := map[string]string{}
	for _, pair := range splitTopLevel(body, ';') {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return LayerSpec{}, fmt.Errorf("config: malformed property %q in layer %q", pair, name)
		}
		props[strings.TrimSpace(kv[0])] = substitute(strings.TrimSpace(kv[1]))
	}
	return LayerSpec{Name: name, Properties: props}, nil
}

// splitTopLevel splits on sep, ignoring occurrences inside parentheses.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		default:
			if s[i] == sep && depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}
