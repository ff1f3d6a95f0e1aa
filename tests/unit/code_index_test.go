package unit

import (
	"context"
	"errors"
	"testing"

	codeindex "daedalus/contexts/code-distribution/code-index"
	domainerrors "daedalus/contexts/code-distribution/code-index/domain/errors"
	httptransport "daedalus/contexts/code-distribution/code-index/transport/http"
	"daedalus/internal/shared/chain"
)

func TestCodeIndexRegisterAndResolve(t *testing.T) {
	module := codeindex.NewInMemoryModule(nil)

	fingerprint := chain.FingerprintOf([]byte("module bytecode v1"))
	address := chain.AddressFromHash(chain.Keccak256([]byte("deployed module")))

	artifact, created, err := module.Service.Register(context.Background(), fingerprint, address)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if !created {
		t.Fatalf("expected first registration to create")
	}
	if artifact.Address != address {
		t.Fatalf("expected address %s, got %s", address.Hex(), artifact.Address.Hex())
	}

	resolved, err := module.Service.Resolve(context.Background(), fingerprint)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved != address {
		t.Fatalf("expected resolved address %s, got %s", address.Hex(), resolved.Hex())
	}
}

func TestCodeIndexRegisterIdempotentPerPair(t *testing.T) {
	module := codeindex.NewInMemoryModule(nil)

	fingerprint := chain.FingerprintOf([]byte("module bytecode v2"))
	address := chain.AddressFromHash(chain.Keccak256([]byte("deployed module v2")))

	if _, _, err := module.Service.Register(context.Background(), fingerprint, address); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	_, created, err := module.Service.Register(context.Background(), fingerprint, address)
	if err != nil {
		t.Fatalf("repeat register failed: %v", err)
	}
	if created {
		t.Fatalf("expected repeat registration to be a no-op")
	}

	other := chain.AddressFromHash(chain.Keccak256([]byte("another deployment")))
	_, _, err = module.Service.Register(context.Background(), fingerprint, other)
	if !errors.Is(err, domainerrors.ErrFingerprintConflict) {
		t.Fatalf("expected fingerprint conflict, got %v", err)
	}
}

func TestCodeIndexResolveUnknownReturnsZeroAddress(t *testing.T) {
	module := codeindex.NewInMemoryModule(nil)

	resolved, err := module.Service.Resolve(context.Background(), chain.FingerprintOf([]byte("never registered")))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !resolved.IsZero() {
		t.Fatalf("expected zero address for unknown fingerprint, got %s", resolved.Hex())
	}
}

func TestCodeIndexRegisterRejectsZeroInputs(t *testing.T) {
	module := codeindex.NewInMemoryModule(nil)

	_, _, err := module.Service.Register(context.Background(), chain.Hash{}, chain.AddressFromHash(chain.Keccak256([]byte("x"))))
	if !errors.Is(err, domainerrors.ErrInvalidArtifactInput) {
		t.Fatalf("expected invalid input for zero fingerprint, got %v", err)
	}
	_, _, err = module.Service.Register(context.Background(), chain.FingerprintOf([]byte("y")), chain.Address{})
	if !errors.Is(err, domainerrors.ErrInvalidArtifactInput) {
		t.Fatalf("expected invalid input for zero address, got %v", err)
	}
}

func TestCodeIndexHandlerRejectsMalformedHex(t *testing.T) {
	module := codeindex.NewInMemoryModule(nil)

	_, err := module.Handler.RegisterArtifactHandler(context.Background(), httptransport.RegisterArtifactRequest{
		Fingerprint: "not-hex",
		Address:     "0x1111111111111111111111111111111111111111",
	})
	if !errors.Is(err, domainerrors.ErrInvalidArtifactInput) {
		t.Fatalf("expected invalid input for malformed fingerprint, got %v", err)
	}
}

func TestCodeIndexOutboxCarriesRegisteredEvent(t *testing.T) {
	module := codeindex.NewInMemoryModule(nil)

	fingerprint := chain.FingerprintOf([]byte("module bytecode v3"))
	address := chain.AddressFromHash(chain.Keccak256([]byte("deployed module v3")))
	if _, _, err := module.Service.Register(context.Background(), fingerprint, address); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	pending, err := module.Store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending outbox failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending outbox row, got %d", len(pending))
	}
	if pending[0].EventType != "codeindex.artifact.registered" {
		t.Fatalf("unexpected event type %q", pending[0].EventType)
	}
	if pending[0].PartitionKey != fingerprint.Hex() {
		t.Fatalf("unexpected partition key %q", pending[0].PartitionKey)
	}
}
