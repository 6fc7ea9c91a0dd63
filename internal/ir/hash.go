package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed hashes.
// Version suffix enables future algorithm migration.
const (
	DomainSchema  = "relsync/schema/v1"
	DomainRequest = "relsync/request/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) []byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return h.Sum(nil)
}

// SchemaHash returns the hex fingerprint of a set of model declarations.
// Declaration order of models matters; map ordering inside them does not.
func SchemaHash(specs []ModelSpec) (string, error) {
	canonical, err := MarshalCanonicalJSON(specs)
	if err != nil {
		return "", fmt.Errorf("SchemaHash: failed to marshal: %w", err)
	}
	return hex.EncodeToString(hashWithDomain(DomainSchema, canonical)), nil
}

// SchemaVersion folds the schema fingerprint into a positive 31-bit integer
// suitable for SQLite's PRAGMA user_version.
func SchemaVersion(specs []ModelSpec) (int32, error) {
	canonical, err := MarshalCanonicalJSON(specs)
	if err != nil {
		return 0, fmt.Errorf("SchemaVersion: failed to marshal: %w", err)
	}
	sum := hashWithDomain(DomainSchema, canonical)
	v := int32(binary.BigEndian.Uint32(sum[:4]) & 0x7fffffff)
	if v == 0 {
		v = 1
	}
	return v, nil
}

// RequestHash returns the content hash of a mutate request, ignoring its
// RequestID. Two requests with the same hash write the same data.
func RequestHash(req MutateRequest) (string, error) {
	req.RequestID = ""
	canonical, err := MarshalCanonicalJSON(req)
	if err != nil {
		return "", fmt.Errorf("RequestHash: failed to marshal: %w", err)
	}
	return hex.EncodeToString(hashWithDomain(DomainRequest, canonical)), nil
}

// MustSchemaHash is like SchemaHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSchemaHash(specs []ModelSpec) string {
	h, err := SchemaHash(specs)
	if err != nil {
		panic(err)
	}
	return h
}
