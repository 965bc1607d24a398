package config

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrKeyNotFound indicates a dotted path does not resolve to a key in the
// document.
var ErrKeyNotFound = errors.New("key not found")

// Document is the lossless form of a configuration file: the parsed YAML
// node tree. Re-encoding it preserves keys outside the schema, key order,
// and comments, so parse -> serialize -> parse is an identity.
type Document struct {
	root yaml.Node
}

// ParseDocument parses YAML data into a Document. An empty input yields a
// document with an empty top-level mapping.
func ParseDocument(data []byte) (*Document, error) {
	d := &Document{}
	if err := yaml.Unmarshal(data, &d.root); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if d.root.Kind == 0 {
		d.root = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	}

	if d.mapping().Kind != yaml.MappingNode {
		return nil, errors.New("top-level YAML value must be a mapping")
	}
	return d, nil
}

// Encode serializes the document back to YAML.
func (d *Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&d.root); err != nil {
		return nil, fmt.Errorf("encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close encoder: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode unmarshals the document into v. Keys absent from the document leave
// the corresponding fields of v untouched, so decoding over a default Config
// merges file values onto defaults.
func (d *Document) Decode(v any) error {
	return d.root.Decode(v)
}

// Get resolves a dotted path such as "access.restricted_extensions" and
// returns the decoded value. It sees every key in the document, not just the
// schema's.
func (d *Document) Get(path string) (any, error) {
	node, err := d.lookup(path)
	if err != nil {
		return nil, err
	}

	var out any
	if err := node.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

// Set assigns a value at a dotted path, creating intermediate mappings as
// needed. The value string is typed by YAML rules, so "true" becomes a bool
// and "0.5" a float. Keys not present in the schema are legal; the document
// carries them verbatim.
func (d *Document) Set(path, value string) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}

	var parsed yaml.Node
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return fmt.Errorf("parse value: %w", err)
	}
	valueNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: ""}
	if len(parsed.Content) > 0 {
		valueNode = parsed.Content[0]
	}

	node := d.mapping()
	for i, part := range parts[:len(parts)-1] {
		child := childByKey(node, part)
		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			appendPair(node, part, child)
		}
		if child.Kind != yaml.MappingNode {
			return fmt.Errorf("%s is not a mapping", strings.Join(parts[:i+1], "."))
		}
		node = child
	}

	leaf := parts[len(parts)-1]
	if existing := childByKey(node, leaf); existing != nil {
		*existing = *valueNode
		return nil
	}
	appendPair(node, leaf, valueNode)
	return nil
}

// Keys returns the top-level key names in document order.
func (d *Document) Keys() []string {
	m := d.mapping()
	keys := make([]string, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		keys = append(keys, m.Content[i].Value)
	}
	return keys
}

// mapping returns the top-level mapping node.
func (d *Document) mapping() *yaml.Node {
	if d.root.Kind == yaml.DocumentNode && len(d.root.Content) > 0 {
		return d.root.Content[0]
	}
	return &d.root
}

func (d *Document) lookup(path string) (*yaml.Node, error) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	node := d.mapping()
	for i, part := range parts {
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%s is not a mapping", strings.Join(parts[:i], "."))
		}
		child := childByKey(node, part)
		if child == nil {
			return nil, fmt.Errorf("%s: %w", strings.Join(parts[:i+1], "."), ErrKeyNotFound)
		}
		node = child
	}
	return node, nil
}

func splitPath(path string) ([]string, error) {
	parts := strings.Split(path, ".")
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("invalid key path %q", path)
		}
	}
	return parts, nil
}

// childByKey finds the value node for a key in a mapping node.
func childByKey(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func appendPair(mapping *yaml.Node, key string, value *yaml.Node) {
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}
