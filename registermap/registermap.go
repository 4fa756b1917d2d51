// Package registermap describes which physical quantity lives at which
// Modbus register of the meter: address, read function code, encoding and
// byte order. The map is loaded once at startup and is immutable afterwards.
package registermap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/emusa/energymon/modbusaccess"
)

// ErrUnknownRegister is returned by Lookup for a name the map does not
// contain. Hitting it at runtime is a programming error, not a device fault.
var ErrUnknownRegister = errors.New("unknown register")

// MapError reports a malformed register map. It is a fatal startup
// condition: polling must not begin with a bad map.
type MapError struct {
	Entry  string
	Reason string
}

func (e *MapError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("register map: %s", e.Reason)
	}
	return fmt.Sprintf("register map entry %q: %s", e.Entry, e.Reason)
}

// Descriptor places one quantity in the device's register space.
type Descriptor struct {
	Name         string                 `json:"name"`
	FunctionCode uint8                  `json:"functionCode"` // 3 = holding, 4 = input
	Address      uint16                 `json:"address"`
	DataKind     modbusaccess.DataKind  `json:"dataKind"`
	ByteOrder    modbusaccess.ByteOrder `json:"byteOrder"`
}

// Map is an ordered, name-indexed set of register descriptors.
type Map struct {
	ordered []Descriptor
	byName  map[string]Descriptor
}

// New validates the descriptors and builds a map. Any malformed entry fails
// the whole map.
func New(descriptors []Descriptor) (*Map, error) {
	if len(descriptors) == 0 {
		return nil, &MapError{Reason: "no registers defined"}
	}
	m := &Map{
		ordered: make([]Descriptor, 0, len(descriptors)),
		byName:  make(map[string]Descriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		if d.Name == "" {
			return nil, &MapError{Reason: "register with empty name"}
		}
		if _, dup := m.byName[d.Name]; dup {
			return nil, &MapError{Entry: d.Name, Reason: "duplicate name"}
		}
		if d.FunctionCode != 3 && d.FunctionCode != 4 {
			return nil, &MapError{Entry: d.Name, Reason: fmt.Sprintf("unsupported function code %d", d.FunctionCode)}
		}
		if d.DataKind.Words() == 0 {
			return nil, &MapError{Entry: d.Name, Reason: fmt.Sprintf("unknown data kind %q", d.DataKind)}
		}
		if !modbusaccess.KnownOrder(d.ByteOrder) {
			return nil, &MapError{Entry: d.Name, Reason: fmt.Sprintf("unknown byte order %q", d.ByteOrder)}
		}
		m.ordered = append(m.ordered, d)
		m.byName[d.Name] = d
	}
	return m, nil
}

// Load reads a declarative register map file. A parse or validation failure
// is fatal for the caller.
func Load(path string) (*Map, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read register map file: %w", err)
	}
	var file struct {
		Registers []Descriptor `json:"registers"`
	}
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, &MapError{Reason: fmt.Sprintf("unmarshal: %v", err)}
	}
	return New(file.Registers)
}

// Lookup returns the descriptor for the named quantity.
func (m *Map) Lookup(name string) (Descriptor, error) {
	d, ok := m.byName[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownRegister, name)
	}
	return d, nil
}

// All returns the descriptors in declaration order, for adapters that poll
// in bulk. The returned slice is a copy.
func (m *Map) All() []Descriptor {
	out := make([]Descriptor, len(m.ordered))
	copy(out, m.ordered)
	return out
}

// Len returns the number of registers in the map.
func (m *Map) Len() int {
	return len(m.ordered)
}
