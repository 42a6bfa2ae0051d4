package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix leaves room for a
// future encoding change.
const (
	DomainState = "reactorcore/state/v1"
	DomainTrace = "reactorcore/trace/v1"
)

// HashWithDomain computes SHA256(domain + 0x00 + data) as lowercase hex.
// The null byte keeps the domain/data boundary unambiguous.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StateHash hashes the canonical form of a published state payload.
func StateHash(state any) (string, error) {
	data, err := Marshal(state)
	if err != nil {
		return "", fmt.Errorf("StateHash: %w", err)
	}
	return HashWithDomain(DomainState, data), nil
}
