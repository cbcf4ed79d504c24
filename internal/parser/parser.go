// Package parser turns raw IOS command output into structured metric fields.
// Parsers are registered per command; commands without a registered parser
// keep their raw output, which is not an error.
package parser

import (
	"strings"
)

// Func extracts structured fields from one command's raw output.
type Func func(raw string) (map[string]any, error)

// Registry maps command identity to a parsing function. Lookup is by the
// normalized command text, resolved once at configuration-load time rather
// than by probing output shapes at run time.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register binds a parser to a command. Later registrations replace earlier
// ones.
func (r *Registry) Register(command string, fn Func) {
	r.funcs[normalize(command)] = fn
}

// Parse implements the engine's Parsers contract. registered is false when
// no parser is bound to the command.
func (r *Registry) Parse(command, raw string) (fields map[string]any, registered bool, err error) {
	fn, ok := r.funcs[normalize(command)]
	if !ok {
		return nil, false, nil
	}
	fields, err = fn(raw)
	return fields, true, err
}

// Default returns a registry preloaded with the built-in IOS parsers.
func Default() *Registry {
	r := NewRegistry()
	r.Register("show processes cpu", ParseProcessesCPU)
	r.Register("show processes memory", ParseProcessesMemory)
	r.Register("show env temperature status", ParseEnvTemperature)
	r.Register("show env temperature", ParseEnvTemperature)
	r.Register("show env fan", ParseEnvFan)
	r.Register("show env power all", ParseEnvPower)
	r.Register("show env power", ParseEnvPower)
	r.Register("show switch", ParseSwitchStack)
	r.Register("show version", ParseVersion)
	return r
}

// normalize canonicalizes command text for lookup: case and surplus
// whitespace do not change command identity.
func normalize(command string) string {
	return strings.Join(strings.Fields(strings.ToLower(command)), " ")
}
