package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashKey namespaces a SHA-256 digest of the parts under a prefix, giving
// keys of the form "layout:<64 hex chars>". Parts are JSON-encoded so the
// option structs hash field by field.
func hashKey(prefix string, parts ...interface{}) string {
	raw, _ := json.Marshal(parts)
	sum := sha256.Sum256(raw)
	return prefix + ":" + hex.EncodeToString(sum[:])
}

// Hash fingerprints raw bytes, typically a serialized forest or a frame
// payload. The full digest is kept; keys are compared for exact equality
// and never truncated.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
