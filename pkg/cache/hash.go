package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashKey builds an artifact key of the form prefix:hash(parts...). The
// prefix names the artifact type ("render", "export") so different artifact
// families never collide in a shared backend; the parts are the content
// hash plus whatever options distinguish one artifact from another.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(sum[:]))
}

// Hash fingerprints content for cache keying, typically a serialized
// pathway snapshot or collection export. The full SHA-256 digest is kept
// as 64 hex characters rather than truncated, since a collision would
// silently serve one pathway's diagram for another.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
