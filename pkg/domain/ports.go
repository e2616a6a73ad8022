package domain

import "reflect"

// PortType is the data type carried by a node port.
type PortType string

// Port types understood by the editor. PortTypeAny is a bidirectional wildcard.
const (
	PortTypeString    PortType = "string"
	PortTypeNumber    PortType = "number"
	PortTypeBoolean   PortType = "boolean"
	PortTypeArray     PortType = "array"
	PortTypeArrayFile PortType = "array_file"
	PortTypeObject    PortType = "object"
	PortTypeFile      PortType = "file"
	PortTypeAny       PortType = "any"
)

// AllPortTypes lists every valid PortType in declaration order.
var AllPortTypes = []PortType{
	PortTypeString,
	PortTypeNumber,
	PortTypeBoolean,
	PortTypeArray,
	PortTypeArrayFile,
	PortTypeObject,
	PortTypeFile,
	PortTypeAny,
}

// Valid reports whether t is one of the known port types.
func (t PortType) Valid() bool {
	for _, known := range AllPortTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsTypeCompatible reports whether a port of type port satisfies filter.
// An empty filter means "no filter".
func IsTypeCompatible(filter, port PortType) bool {
	if filter == "" || filter == PortTypeAny || port == PortTypeAny {
		return true
	}
	return filter == port
}

// CompatibleTypes returns the target types a source of type source may connect to.
func CompatibleTypes(source PortType) []PortType {
	if source == PortTypeAny {
		out := make([]PortType, len(AllPortTypes))
		copy(out, AllPortTypes)
		return out
	}
	return []PortType{source, PortTypeAny}
}

// AreTypesCompatible reports whether an edge from a source port of type source
// may feed a target port of type target.
func AreTypesCompatible(source, target PortType) bool {
	for _, t := range CompatibleTypes(source) {
		if t == target {
			return true
		}
	}
	return false
}

// DefaultValue returns the zero value a port of type t starts with.
func DefaultValue(t PortType) any {
	switch t {
	case PortTypeString:
		return ""
	case PortTypeNumber:
		return 0
	case PortTypeBoolean:
		return false
	case PortTypeArray, PortTypeArrayFile:
		return []any{}
	case PortTypeObject:
		return map[string]any{}
	default:
		return nil
	}
}

// PortDefinition declares a single input or output port.
type PortDefinition struct {
	Name         string   `json:"name"`
	Type         PortType `json:"type"`
	Required     bool     `json:"required"`
	DefaultValue any      `json:"default_value,omitempty"`
	Description  string   `json:"description"`
	DisplayName  string   `json:"display_name"`
}

// NodePortSchema is the generated port surface of a node. It is derived from
// configuration and never edited by hand.
type NodePortSchema struct {
	Inputs  []PortDefinition `json:"inputs"`
	Outputs []PortDefinition `json:"outputs"`
}

// Clone returns a copy that shares no slices with s.
func (s NodePortSchema) Clone() NodePortSchema {
	out := NodePortSchema{
		Inputs:  make([]PortDefinition, len(s.Inputs)),
		Outputs: make([]PortDefinition, len(s.Outputs)),
	}
	copy(out.Inputs, s.Inputs)
	copy(out.Outputs, s.Outputs)
	return out
}

// Equal compares two schemas structurally, port by port in order.
func (s NodePortSchema) Equal(other NodePortSchema) bool {
	return portsEqual(s.Inputs, other.Inputs) && portsEqual(s.Outputs, other.Outputs)
}

// Output returns the output port called name.
func (s NodePortSchema) Output(name string) (PortDefinition, bool) {
	return findPort(s.Outputs, name)
}

// Input returns the input port called name.
func (s NodePortSchema) Input(name string) (PortDefinition, bool) {
	return findPort(s.Inputs, name)
}

func findPort(ports []PortDefinition, name string) (PortDefinition, bool) {
	for _, p := range ports {
		if p.Name == name {
			return p, true
		}
	}
	return PortDefinition{}, false
}

func portsEqual(a, b []PortDefinition) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Equal compares two port definitions field by field.
func (p PortDefinition) Equal(other PortDefinition) bool {
	return p.Name == other.Name &&
		p.Type == other.Type &&
		p.Required == other.Required &&
		p.Description == other.Description &&
		p.DisplayName == other.DisplayName &&
		reflect.DeepEqual(p.DefaultValue, other.DefaultValue)
}
