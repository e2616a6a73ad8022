package portschema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/polisai/polis-flow/pkg/domain"
)

// Fingerprint computes a stable hash of a schema. Port order is significant;
// whitespace and map key order of default values are not.
func Fingerprint(schema domain.NodePortSchema) (string, error) {
	normalized := schema.Clone()
	if normalized.Inputs == nil {
		normalized.Inputs = []domain.PortDefinition{}
	}
	if normalized.Outputs == nil {
		normalized.Outputs = []domain.PortDefinition{}
	}

	// encoding/json sorts map keys, which keeps default values canonical.
	data, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("serialize port schema: %w", err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Changed reports whether the persisted ports differ from generated.
func Changed(persisted *domain.NodePortSchema, generated domain.NodePortSchema) bool {
	if persisted == nil {
		return true
	}
	return !persisted.Equal(generated)
}
