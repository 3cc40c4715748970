package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for fingerprints.
// The version suffix leaves room for a future algorithm change.
const (
	DomainInterface = "arrpc/interface/v1"
	DomainShape     = "arrpc/shape/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// InterfaceFingerprint identifies a compiled interface by its envelope,
// shapes and migrations. Two descriptions that compile to the same artifacts
// share a fingerprint regardless of formatting or source language.
func InterfaceFingerprint(c *Compiled) (string, error) {
	canonical, err := MarshalCanonical(struct {
		Envelope   Envelope        `json:"envelope"`
		Shapes     []Shape         `json:"shapes"`
		Migrations []MigrationStep `json:"migrations"`
	}{c.Envelope, c.Shapes, c.Migrations})
	if err != nil {
		return "", fmt.Errorf("InterfaceFingerprint: %w", err)
	}
	return hashWithDomain(DomainInterface, canonical), nil
}

// ShapeFingerprint identifies the wire shape of one version of an interface.
// The registry freezes this value once a version is published.
func ShapeFingerprint(iface string, s Shape) (string, error) {
	canonical, err := MarshalCanonical(struct {
		Interface string `json:"interface"`
		Shape     Shape  `json:"shape"`
	}{iface, s})
	if err != nil {
		return "", fmt.Errorf("ShapeFingerprint: %w", err)
	}
	return hashWithDomain(DomainShape, canonical), nil
}

// MustShapeFingerprint is like ShapeFingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustShapeFingerprint(iface string, s Shape) string {
	fp, err := ShapeFingerprint(iface, s)
	if err != nil {
		panic(err)
	}
	return fp
}
