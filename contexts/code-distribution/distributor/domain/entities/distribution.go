package entities

import (
	"time"

	"daedalus/internal/shared/chain"
)

// DistributionComponent is one addable unit: a code module plus an optional
// initializer. The initializer is referenced by its own content fingerprint
// and resolved to a deployed address when the component is added; a zero
// InitializerID means "no initializer".
type DistributionComponent struct {
	DistributorsID chain.Hash
	CodeID         chain.Hash
	InitializerID  chain.Hash
	Initializer    chain.Address
	AddedAt        time.Time
}

// InstanceRecord maps a deployed instance address to the instance identity
// and distribution that produced it. Written exactly once, never mutated.
type InstanceRecord struct {
	Address        chain.Address
	InstanceID     uint64
	DistributorsID chain.Hash
	InstantiatedAt time.Time
}

// Instantiation is the observable outcome of one instantiate operation.
type Instantiation struct {
	DistributorsID chain.Hash
	InstanceID     uint64
	Instances      []chain.Address
	Name           string
	Version        string
}
