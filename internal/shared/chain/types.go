package chain

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Shared on-chain value types used across the code-distribution contexts.
// A Hash is a 32-byte content identifier (code fingerprint or derived key);
// an Address is a 20-byte deployed location. Zero values are the
// "not found" / "not set" sentinels everywhere.

var (
	ErrInvalidAddress = errors.New("invalid address encoding")
	ErrInvalidHash    = errors.New("invalid hash encoding")
)

type Address [20]byte

type Hash [32]byte

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

func ParseAddress(value string) (Address, error) {
	raw, err := decodeHex(value, 20)
	if err != nil {
		return Address{}, ErrInvalidAddress
	}
	var a Address
	copy(a[:], raw)
	return a, nil
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

func ParseHash(value string) (Hash, error) {
	raw, err := decodeHex(value, 32)
	if err != nil {
		return Hash{}, ErrInvalidHash
	}
	var h Hash
	copy(h[:], raw)
	return h, nil
}

// Keccak256 hashes the concatenation of the given chunks with legacy
// Keccak-256, the digest used for code fingerprints on EVM chains.
func Keccak256(chunks ...[]byte) Hash {
	hasher := sha3.NewLegacyKeccak256()
	for _, chunk := range chunks {
		hasher.Write(chunk)
	}
	var h Hash
	copy(h[:], hasher.Sum(nil))
	return h
}

// FingerprintOf returns the content fingerprint of a code artifact.
func FingerprintOf(code []byte) Hash {
	return Keccak256(code)
}

// DeriveDistributorsID derives the registry key for a (code, initializer)
// pair. Identical pairs collide to the same key so duplicate adds are
// detectable.
func DeriveDistributorsID(codeID Hash, initializerID Hash) Hash {
	return Keccak256(codeID[:], initializerID[:])
}

// AddressFromHash truncates a hash to its trailing 20 bytes, matching how
// deployed locations are derived from digests on EVM chains.
func AddressFromHash(h Hash) Address {
	var a Address
	copy(a[:], h[12:])
	return a
}

func decodeHex(value string, size int) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, err
	}
	if len(raw) != size {
		return nil, hex.ErrLength
	}
	return raw, nil
}
