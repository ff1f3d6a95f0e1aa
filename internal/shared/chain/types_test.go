package chain

import (
	"errors"
	"testing"
)

func TestKeccak256EmptyInput(t *testing.T) {
	// Known Keccak-256 digest of the empty string.
	want := "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	if got := Keccak256().Hex(); got != want {
		t.Fatalf("unexpected empty digest: %s", got)
	}
}

func TestDeriveDistributorsIDIsStable(t *testing.T) {
	codeID := FingerprintOf([]byte("module-a"))
	initializerID := FingerprintOf([]byte("initializer-a"))

	first := DeriveDistributorsID(codeID, initializerID)
	second := DeriveDistributorsID(codeID, initializerID)
	if first != second {
		t.Fatalf("derived key is not deterministic: %s vs %s", first, second)
	}
	if first == DeriveDistributorsID(codeID, Hash{}) {
		t.Fatal("derived key ignores the initializer component")
	}
}

func TestParseAddressRoundTrip(t *testing.T) {
	source := AddressFromHash(FingerprintOf([]byte("instance")))
	parsed, err := ParseAddress(source.Hex())
	if err != nil {
		t.Fatalf("parse address failed: %v", err)
	}
	if parsed != source {
		t.Fatalf("round trip mismatch: %s vs %s", parsed, source)
	}
}

func TestParseHashRejectsBadInput(t *testing.T) {
	if _, err := ParseHash("0x1234"); !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected invalid hash error, got %v", err)
	}
	if _, err := ParseAddress("not-hex"); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected invalid address error, got %v", err)
	}
}

func TestZeroSentinels(t *testing.T) {
	if !(Address{}).IsZero() || !(Hash{}).IsZero() {
		t.Fatal("zero values must report IsZero")
	}
	if FingerprintOf([]byte("x")).IsZero() {
		t.Fatal("non-empty fingerprint must not be zero")
	}
}
