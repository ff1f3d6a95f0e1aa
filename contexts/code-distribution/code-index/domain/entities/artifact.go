package entities

import (
	"time"

	"daedalus/internal/shared/chain"
)

// CodeArtifact binds a bytecode content fingerprint to the one canonical
// address holding that bytecode.
type CodeArtifact struct {
	Fingerprint  chain.Hash
	Address      chain.Address
	RegisteredAt time.Time
}
