package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Digest returns a stable hex-encoded SHA-256 digest of the given payload.
// The payload is serialized as canonical JSON: encoding/json sorts map keys
// at every nesting level, so the same logical content always yields the same
// digest regardless of how the map was assembled.
func Digest(payload map[string]any) (string, error) {
	canonical, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("could not serialize fingerprint payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
