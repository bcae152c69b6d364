package value

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for descriptor fingerprints.
// Version suffix enables future algorithm migration.
const (
	DomainQuery    = "docq/query/v1"
	DomainUpdate   = "docq/update/v1"
	DomainPipeline = "docq/pipeline/v1"
	DomainIndex    = "docq/index/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes the canonical JSON form of obj under domain.
// Equal descriptors always produce equal fingerprints.
func Fingerprint(domain string, obj Object) (string, error) {
	canonical, err := marshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}
