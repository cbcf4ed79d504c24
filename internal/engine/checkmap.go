package engine

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// CheckMap is a check-name → CheckResult mapping that preserves insertion
// order (the configured check order) across JSON and YAML round trips.
// Standard maps would lose the order on unmarshal.
type CheckMap struct {
	names   []string
	results map[string]*CheckResult
}

// NewCheckMap creates an empty ordered check map.
func NewCheckMap() *CheckMap {
	return &CheckMap{results: make(map[string]*CheckResult)}
}

// Set stores a result under its check name, appending to the order on first
// insertion.
func (m *CheckMap) Set(name string, result *CheckResult) {
	if _, exists := m.results[name]; !exists {
		m.names = append(m.names, name)
	}
	m.results[name] = result
}

// Get returns the result for a check name.
func (m *CheckMap) Get(name string) (*CheckResult, bool) {
	r, ok := m.results[name]
	return r, ok
}

// Names returns check names in insertion order.
func (m *CheckMap) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Len returns the number of checks.
func (m *CheckMap) Len() int { return len(m.names) }

// MarshalJSON emits a JSON object with keys in insertion order.
func (m *CheckMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(m.results[name])
		if err != nil {
			return nil, fmt.Errorf("marshal check %q: %w", name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, recording key order as it appears.
func (m *CheckMap) UnmarshalJSON(data []byte) error {
	m.names = nil
	m.results = make(map[string]*CheckResult)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("checks: expected JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("checks: expected string key, got %v", keyTok)
		}
		var result CheckResult
		if err := dec.Decode(&result); err != nil {
			return fmt.Errorf("unmarshal check %q: %w", name, err)
		}
		m.Set(name, &result)
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalYAML emits a YAML mapping with keys in insertion order.
func (m *CheckMap) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range m.names {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: name}
		valNode := &yaml.Node{}
		if err := valNode.Encode(m.results[name]); err != nil {
			return nil, fmt.Errorf("marshal check %q: %w", name, err)
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

// UnmarshalYAML reads a YAML mapping, recording key order as it appears.
func (m *CheckMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("checks: expected mapping, got %v", value.Kind)
	}
	m.names = nil
	m.results = make(map[string]*CheckResult)

	for i := 0; i+1 < len(value.Content); i += 2 {
		name := value.Content[i].Value
		var result CheckResult
		if err := value.Content[i+1].Decode(&result); err != nil {
			return fmt.Errorf("unmarshal check %q: %w", name, err)
		}
		m.Set(name, &result)
	}
	return nil
}

// UnmarshalYAML decodes a lowercase status name.
func (s *Status) UnmarshalYAML(value *yaml.Node) error {
	return s.decode(value.Value)
}

// UnmarshalYAML decodes a snake_case outcome kind name.
func (k *OutcomeKind) UnmarshalYAML(value *yaml.Node) error {
	for kind, n := range outcomeNames {
		if n == value.Value {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown outcome kind %q", value.Value)
}
