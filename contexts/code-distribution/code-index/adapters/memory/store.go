package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"daedalus/contexts/code-distribution/code-index/domain/entities"
	domainerrors "daedalus/contexts/code-distribution/code-index/domain/errors"
	"daedalus/contexts/code-distribution/code-index/ports"
	"daedalus/internal/shared/chain"

	contractsv1 "daedalus/contracts/gen/events/v1"

	"github.com/google/uuid"
)

type outboxRecord struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
	PublishedAt  *time.Time
}

type Store struct {
	mu sync.RWMutex

	artifacts map[chain.Hash]entities.CodeArtifact
	outbox    map[string]outboxRecord
}

func NewStore() *Store {
	return &Store{
		artifacts: make(map[chain.Hash]entities.CodeArtifact),
		outbox:    make(map[string]outboxRecord),
	}
}

func (s *Store) Insert(_ context.Context, artifact entities.CodeArtifact) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.artifacts[artifact.Fingerprint]
	if exists {
		if existing.Address == artifact.Address {
			return false, nil
		}
		return false, domainerrors.ErrFingerprintConflict
	}
	s.artifacts[artifact.Fingerprint] = artifact
	return true, nil
}

func (s *Store) Get(_ context.Context, fingerprint chain.Hash) (entities.CodeArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	artifact, exists := s.artifacts[fingerprint]
	if !exists {
		return entities.CodeArtifact{}, domainerrors.ErrArtifactNotFound
	}
	return artifact, nil
}

func (s *Store) List(_ context.Context, limit int, offset int) ([]entities.CodeArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	artifacts := make([]entities.CodeArtifact, 0, len(s.artifacts))
	for _, artifact := range s.artifacts {
		artifacts = append(artifacts, artifact)
	}
	sort.Slice(artifacts, func(i, j int) bool {
		if artifacts[i].RegisteredAt.Equal(artifacts[j].RegisteredAt) {
			return artifacts[i].Fingerprint.Hex() < artifacts[j].Fingerprint.Hex()
		}
		return artifacts[i].RegisteredAt.Before(artifacts[j].RegisteredAt)
	})
	if offset >= len(artifacts) {
		return []entities.CodeArtifact{}, nil
	}
	artifacts = artifacts[offset:]
	if len(artifacts) > limit {
		artifacts = artifacts[:limit]
	}
	return artifacts, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope contractsv1.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if _, exists := s.outbox[outboxID]; exists {
		return nil
	}
	s.outbox[outboxID] = outboxRecord{
		OutboxID:     outboxID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.PublishedAt == nil {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	messages := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt,
		})
	}
	return messages, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, exists := s.outbox[strings.TrimSpace(outboxID)]
	if !exists {
		return domainerrors.ErrInvalidArtifactInput
	}
	timestamp := publishedAt.UTC()
	row.PublishedAt = &timestamp
	s.outbox[row.OutboxID] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.Repository = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
