package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const ownerPrefixBytes = 16

// OwnerPrefix maps an owner id to a stable, path-safe storage prefix so raw
// identity values never appear in object keys.
func OwnerPrefix(ownerID string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(ownerID)))
	return hex.EncodeToString(sum[:ownerPrefixBytes])
}
