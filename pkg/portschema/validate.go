package portschema

import (
	"fmt"
	"strings"

	"github.com/polisai/polis-flow/pkg/domain"
)

// ConnectionResult is the outcome of checking a single source→target port pair.
type ConnectionResult struct {
	Valid   bool
	Error   string
	Warning string
}

// ValidatePortDefinition returns the problems of a single port.
func ValidatePortDefinition(port domain.PortDefinition) []string {
	var errs []string
	if strings.TrimSpace(port.Name) == "" {
		errs = append(errs, "port name is empty")
	}
	if !port.Type.Valid() {
		errs = append(errs, fmt.Sprintf("invalid port type: %q", port.Type))
	}
	return errs
}

// ValidatePortSchema checks every port and the uniqueness of names within the
// input list and within the output list.
func ValidatePortSchema(schema domain.NodePortSchema) []string {
	var errs []string
	errs = append(errs, validatePortList("input", schema.Inputs)...)
	errs = append(errs, validatePortList("output", schema.Outputs)...)
	return errs
}

func validatePortList(direction string, ports []domain.PortDefinition) []string {
	var errs []string
	seen := make(map[string]struct{}, len(ports))
	for i, port := range ports {
		for _, e := range ValidatePortDefinition(port) {
			errs = append(errs, fmt.Sprintf("%s port %d: %s", direction, i, e))
		}
		if port.Name == "" {
			continue
		}
		if _, dup := seen[port.Name]; dup {
			errs = append(errs, fmt.Sprintf("duplicate %s port name: %s", direction, port.Name))
		}
		seen[port.Name] = struct{}{}
	}
	return errs
}

// ValidateConnection checks whether source may feed target. Connections that
// rely on the any wildcard are allowed with a warning.
func ValidateConnection(source, target domain.PortDefinition) ConnectionResult {
	if !domain.AreTypesCompatible(source.Type, target.Type) {
		return ConnectionResult{
			Error: fmt.Sprintf("type mismatch: %s (%s) → %s (%s)",
				portLabel(source), source.Type, portLabel(target), target.Type),
		}
	}
	if (source.Type == domain.PortTypeAny || target.Type == domain.PortTypeAny) && source.Type != target.Type {
		return ConnectionResult{Valid: true, Warning: "any-typed connection: value type is only checked at run time"}
	}
	return ConnectionResult{Valid: true}
}

// ValidateRequiredInputs reports required inputs that are not in connected.
func ValidateRequiredInputs(inputs []domain.PortDefinition, connected map[string]bool) ConnectionResult {
	var missing []string
	for _, port := range inputs {
		if port.Required && !connected[port.Name] {
			missing = append(missing, portLabel(port))
		}
	}
	if len(missing) > 0 {
		return ConnectionResult{Error: "required input ports are not connected: " + strings.Join(missing, ", ")}
	}
	return ConnectionResult{Valid: true}
}

// ValidateMultipleConnections rejects a second connection to port unless
// allowMultiple is set.
func ValidateMultipleConnections(port string, existing []string, allowMultiple bool) ConnectionResult {
	if allowMultiple {
		return ConnectionResult{Valid: true}
	}
	for _, name := range existing {
		if name == port {
			return ConnectionResult{Error: "port is already connected"}
		}
	}
	return ConnectionResult{Valid: true}
}

func portLabel(port domain.PortDefinition) string {
	if port.DisplayName != "" {
		return port.DisplayName
	}
	return port.Name
}
