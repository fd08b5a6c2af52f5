/*
Package param holds parameter metadata for HS321 drives: per-parameter
name, unit, bounds, factory default and description, keyed by the
(group, index) pair that also forms the register address. Tables are
loaded from YAML documents.

The register client never consults this package. It exists for code
above the protocol layer that presents or range-checks parameter
values.
*/
package param

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Kind tags the concrete type held by a Value.
type Kind int

const (
	// KindNone marks the zero Value, used for parameters without a
	// bound or default.
	KindNone Kind = iota
	// KindFloat for fractional quantities such as frequencies.
	KindFloat
	// KindInt for counts and enumerated settings.
	KindInt
	// KindString for symbolic settings.
	KindString
)

// Value is a tagged variant over the value types parameters use. Tag
// and payload travel together, so a mismatched pairing is
// unrepresentable.
type Value struct {
	kind Kind
	f    float64
	i    int
	s    string
}

// Float makes a float Value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Int makes an integer Value.
func Int(v int) Value { return Value{kind: KindInt, i: v} }

// Text makes a string Value.
func Text(v string) Value { return Value{kind: KindString, s: v} }

// Kind reports which variant is held.
func (v Value) Kind() Kind { return v.kind }

// Float returns the float payload and whether the Value holds one.
func (v Value) Float() (float64, bool) { return v.f, v.kind == KindFloat }

// Int returns the integer payload and whether the Value holds one.
func (v Value) Int() (int, bool) { return v.i, v.kind == KindInt }

// Text returns the string payload and whether the Value holds one.
func (v Value) Text() (string, bool) { return v.s, v.kind == KindString }

// String renders the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// UnmarshalYAML derives the tag from the YAML scalar type.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Tag {
	case "!!int":
		var i int
		if err := node.Decode(&i); err != nil {
			return err
		}
		*v = Int(i)
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = Float(f)
	case "!!str":
		*v = Text(node.Value)
	case "!!null":
		*v = Value{}
	default:
		return fmt.Errorf("param: unsupported value type %s at line %d", node.Tag, node.Line)
	}
	return nil
}

// MarshalYAML emits the payload as a plain scalar.
func (v Value) MarshalYAML() (interface{}, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInt:
		return v.i, nil
	case KindString:
		return v.s, nil
	default:
		return nil, nil
	}
}

// Parameter describes one drive parameter.
type Parameter struct {
	Group       uint16 `yaml:"group"`
	Index       uint8  `yaml:"index"`
	Name        string `yaml:"name"`
	Unit        string `yaml:"unit,omitempty"`
	Default     Value  `yaml:"default,omitempty"`
	Min         Value  `yaml:"min,omitempty"`
	Max         Value  `yaml:"max,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Address is the parameter's register address: group in the high byte,
// index in the low byte.
func (p Parameter) Address() uint16 {
	return p.Group<<8 | uint16(p.Index)
}

// Code renders the panel designation of the parameter, e.g. "F0.07" or
// "d.05".
func (p Parameter) Code() string {
	return fmt.Sprintf("%s.%02d", groupCode(p.Group), p.Index)
}

func groupCode(group uint16) string {
	switch {
	case group <= 9:
		return fmt.Sprintf("F%d", group)
	case group == 10:
		return "FA"
	case group == 11:
		return "FB"
	case group == 12:
		return "FC"
	case group == 13:
		return "FP"
	case group == 0x70:
		return "d"
	default:
		return fmt.Sprintf("G%02X", group)
	}
}

type document struct {
	Parameters []Parameter `yaml:"parameters"`
}

// Table is an immutable parameter metadata table keyed by register
// address.
type Table struct {
	byAddress map[uint16]Parameter
}

// Load reads a YAML parameter document. Unknown fields and duplicate
// (group, index) pairs are errors.
func Load(r io.Reader) (*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("param: decoding table: %w", err)
	}

	t := &Table{byAddress: make(map[uint16]Parameter, len(doc.Parameters))}
	for _, p := range doc.Parameters {
		if p.Name == "" {
			return nil, fmt.Errorf("param: parameter %s has no name", p.Code())
		}
		addr := p.Address()
		if _, ok := t.byAddress[addr]; ok {
			return nil, fmt.Errorf("param: duplicate parameter %s", p.Code())
		}
		t.byAddress[addr] = p
	}
	return t, nil
}

// LoadFile reads a YAML parameter document from a file.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Lookup finds a parameter by group and in-group index.
func (t *Table) Lookup(group uint16, index uint8) (Parameter, bool) {
	return t.ByAddress(group<<8 | uint16(index))
}

// ByAddress finds a parameter by register address.
func (t *Table) ByAddress(address uint16) (Parameter, bool) {
	p, ok := t.byAddress[address]
	return p, ok
}

// Len returns the number of parameters in the table.
func (t *Table) Len() int {
	return len(t.byAddress)
}

// Parameters returns all parameters in ascending address order.
func (t *Table) Parameters() []Parameter {
	out := make([]Parameter, 0, len(t.byAddress))
	for _, p := range t.byAddress {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address() < out[j].Address() })
	return out
}
