package contextpack

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashDocument returns the SHA-256 of the document's canonical JSON.
// encoding/json sorts map keys, so two invocations with identical inputs
// hash identically.
func HashDocument(doc map[string]any) (string, error) {
	canonical, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("serializing context pack: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
