package application

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"daedalus/contexts/code-distribution/code-index/domain/entities"
	domainerrors "daedalus/contexts/code-distribution/code-index/domain/errors"
	"daedalus/contexts/code-distribution/code-index/ports"
	"daedalus/internal/shared/chain"

	contractsv1 "daedalus/contracts/gen/events/v1"
)

type Service struct {
	Repo   ports.Repository
	Outbox ports.OutboxWriter
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

// Register indexes a code artifact. The operation is idempotent per
// fingerprint: repeating the same pair succeeds without effect, while a
// different address for a known fingerprint is rejected.
func (s Service) Register(
	ctx context.Context,
	fingerprint chain.Hash,
	address chain.Address,
) (entities.CodeArtifact, bool, error) {
	if fingerprint.IsZero() || address.IsZero() {
		ResolveLogger(s.Logger).Warn("code artifact register invalid input",
			"event", "codeindex_register_invalid_input",
			"module", "code-distribution/code-index",
			"layer", "application",
			"fingerprint", fingerprint.Hex(),
			"address", address.Hex(),
		)
		return entities.CodeArtifact{}, false, domainerrors.ErrInvalidArtifactInput
	}

	artifact := entities.CodeArtifact{
		Fingerprint:  fingerprint,
		Address:      address,
		RegisteredAt: s.now(),
	}
	created, err := s.Repo.Insert(ctx, artifact)
	if err != nil {
		ResolveLogger(s.Logger).Warn("code artifact register rejected",
			"event", "codeindex_register_rejected",
			"module", "code-distribution/code-index",
			"layer", "application",
			"fingerprint", fingerprint.Hex(),
			"address", address.Hex(),
			"error", err.Error(),
		)
		return entities.CodeArtifact{}, false, err
	}
	if !created {
		existing, err := s.Repo.Get(ctx, fingerprint)
		if err != nil {
			return entities.CodeArtifact{}, false, err
		}
		return existing, false, nil
	}

	if err := s.appendRegisteredOutbox(ctx, artifact); err != nil {
		return entities.CodeArtifact{}, false, err
	}
	ResolveLogger(s.Logger).Info("code artifact registered",
		"event", "codeindex_artifact_registered",
		"module", "code-distribution/code-index",
		"layer", "application",
		"fingerprint", fingerprint.Hex(),
		"address", address.Hex(),
	)
	return artifact, true, nil
}

// Resolve returns the canonical address for a fingerprint, or the zero
// address when unregistered. Pure lookup, safe in read-only paths.
func (s Service) Resolve(ctx context.Context, fingerprint chain.Hash) (chain.Address, error) {
	artifact, err := s.Repo.Get(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, domainerrors.ErrArtifactNotFound) {
			return chain.Address{}, nil
		}
		return chain.Address{}, err
	}
	return artifact.Address, nil
}

func (s Service) GetArtifact(ctx context.Context, fingerprint chain.Hash) (entities.CodeArtifact, error) {
	return s.Repo.Get(ctx, fingerprint)
}

func (s Service) ListArtifacts(ctx context.Context, limit int, offset int) ([]entities.CodeArtifact, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.List(ctx, limit, offset)
}

func (s Service) appendRegisteredOutbox(ctx context.Context, artifact entities.CodeArtifact) error {
	if s.Outbox == nil {
		return nil
	}
	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]any{
		"fingerprint": artifact.Fingerprint.Hex(),
		"address":     artifact.Address.Hex(),
	})
	if err != nil {
		return err
	}
	return s.Outbox.AppendOutbox(ctx, contractsv1.Envelope{
		EventID:          eventID,
		EventType:        contractsv1.EventTypeArtifactRegistered,
		OccurredAt:       artifact.RegisteredAt,
		SourceService:    "code-index",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "fingerprint",
		PartitionKey:     artifact.Fingerprint.Hex(),
		Data:             payload,
	})
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

