package ports

import (
	"context"
	"time"

	"daedalus/contexts/code-distribution/code-index/domain/entities"
	"daedalus/internal/shared/chain"

	contractsv1 "daedalus/contracts/gen/events/v1"
)

type Repository interface {
	// Insert registers a fingerprint if absent. Re-inserting the same
	// (fingerprint, address) pair reports created=false with no error;
	// the same fingerprint with a different address is a conflict.
	Insert(ctx context.Context, artifact entities.CodeArtifact) (created bool, err error)
	Get(ctx context.Context, fingerprint chain.Hash) (entities.CodeArtifact, error)
	List(ctx context.Context, limit int, offset int) ([]entities.CodeArtifact, error)
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope contractsv1.Envelope) error
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
