package ports

import (
	"context"
	"math/big"
	"time"

	"daedalus/contexts/code-distribution/distributor/domain/entities"
	"daedalus/internal/shared/chain"

	contractsv1 "daedalus/contracts/gen/events/v1"
)

// CodeIndex is the two-method collaborator contract the distributor consumes
// from the content-addressed registry. A zero address means "unregistered".
type CodeIndex interface {
	Resolve(ctx context.Context, fingerprint chain.Hash) (chain.Address, error)
}

// DeploymentScope lets a code module place freshly deployed instances inside
// the enclosing registry transaction, so a later failure discards them with
// everything else.
type DeploymentScope interface {
	Deploy(ctx context.Context) (chain.Address, error)
}

// ConfigScope is the capability handed to an initializer. Writes land in the
// registry's own instance-configuration records and roll back with the
// enclosing operation; only trusted initializer code may ever be registered.
type ConfigScope interface {
	Set(ctx context.Context, instance chain.Address, key string, value []byte) error
}

// CodeModule is the contract a registered component's code must satisfy.
type CodeModule interface {
	Instantiate(ctx context.Context, scope DeploymentScope, args []byte) (instances []chain.Address, name string, version string, err error)
}

// Initializer configures freshly produced instances through a ConfigScope.
type Initializer interface {
	Initialize(ctx context.Context, scope ConfigScope, instances []chain.Address, args []byte) error
}

// ModuleHost binds deployed addresses to executable implementations.
type ModuleHost interface {
	Module(ctx context.Context, address chain.Address) (CodeModule, error)
	Initializer(ctx context.Context, address chain.Address) (Initializer, error)
}

// CallConfig optionally pins the admission-check target; a zero Target
// defaults to the immediate caller.
type CallConfig struct {
	Target chain.Address
}

// CallInput carries one beforeCall/afterCall invocation.
type CallInput struct {
	Config   CallConfig
	Selector [4]byte
	Instance chain.Address
	Caller   chain.Address
	Value    *big.Int
	Data     []byte
}

// RegistryReader is the committed, read-only view of the registry. Admission
// hooks run against this view and never observe staged writes.
type RegistryReader interface {
	GetComponent(ctx context.Context, distributorsID chain.Hash) (entities.DistributionComponent, error)
	HasDistribution(ctx context.Context, distributorsID chain.Hash) (bool, error)
	ListDistributions(ctx context.Context) ([]chain.Hash, error)
	// InstanceIDOf reports 0 for addresses that are not instances.
	InstanceIDOf(ctx context.Context, address chain.Address) (uint64, error)
	// DistributionOf reports the zero hash for unknown instance ids.
	DistributionOf(ctx context.Context, instanceID uint64) (chain.Hash, error)
	GetInstanceRecord(ctx context.Context, address chain.Address) (entities.InstanceRecord, error)
}

// RegistryTx is the write scope of one atomic operation. Every write becomes
// visible only when the enclosing Atomically call commits.
type RegistryTx interface {
	RegistryReader
	AddComponent(ctx context.Context, component entities.DistributionComponent) error
	RemoveComponent(ctx context.Context, distributorsID chain.Hash) error
	NextInstanceID(ctx context.Context) (uint64, error)
	RecordInstance(ctx context.Context, record entities.InstanceRecord) error
	RegisterDeployment(ctx context.Context, address chain.Address, deployedAt time.Time) error
	PutInstanceConfig(ctx context.Context, instance chain.Address, key string, value []byte) error
	AppendOutbox(ctx context.Context, envelope contractsv1.Envelope) error
}

type Repository interface {
	RegistryReader
	// Atomically runs fn in a transaction: all writes commit together or not
	// at all. This boundary carries the instantiate atomicity contract.
	Atomically(ctx context.Context, fn func(tx RegistryTx) error) error
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, envelope contractsv1.Envelope) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
