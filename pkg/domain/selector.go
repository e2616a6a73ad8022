package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PathSeparator joins the two segments of a variable path.
const PathSeparator = "."

// ValueSelector addresses one output port of one node: ("llm_1", "response").
// The zero value is the empty selector used by freshly created conditions.
type ValueSelector struct {
	NodeID string
	Port   string
}

// NewValueSelector builds a selector from its two parts.
func NewValueSelector(nodeID, port string) ValueSelector {
	return ValueSelector{NodeID: nodeID, Port: port}
}

// ParseValueSelector parses "nodeId.portName". Anything other than exactly two
// non-empty segments is rejected with ErrInvalidSelector.
func ParseValueSelector(path string) (ValueSelector, error) {
	parts := strings.Split(path, PathSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ValueSelector{}, fmt.Errorf("%w: %q", ErrInvalidSelector, path)
	}
	return ValueSelector{NodeID: parts[0], Port: parts[1]}, nil
}

// String renders the selector as a variable path.
func (s ValueSelector) String() string {
	if s.IsZero() {
		return ""
	}
	return s.NodeID + PathSeparator + s.Port
}

// IsZero reports whether the selector is empty.
func (s ValueSelector) IsZero() bool {
	return s.NodeID == "" && s.Port == ""
}

// Valid reports whether both parts are set.
func (s ValueSelector) Valid() bool {
	return s.NodeID != "" && s.Port != ""
}

// MarshalJSON encodes the selector as ["nodeId","portName"], or [] when empty.
func (s ValueSelector) MarshalJSON() ([]byte, error) {
	if s.IsZero() {
		return []byte("[]"), nil
	}
	return json.Marshal([]string{s.NodeID, s.Port})
}

// UnmarshalJSON accepts the array form and, for older documents, the dotted
// string form.
func (s *ValueSelector) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ValueSelector{}
		return nil
	}

	var parts []string
	if err := json.Unmarshal(data, &parts); err == nil {
		switch len(parts) {
		case 0:
			*s = ValueSelector{}
			return nil
		case 2:
			*s = ValueSelector{NodeID: parts[0], Port: parts[1]}
			return nil
		default:
			return fmt.Errorf("%w: expected 2 segments, got %d", ErrInvalidSelector, len(parts))
		}
	}

	var path string
	if err := json.Unmarshal(data, &path); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSelector, string(data))
	}
	if path == "" {
		*s = ValueSelector{}
		return nil
	}
	parsed, err := ParseValueSelector(path)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
