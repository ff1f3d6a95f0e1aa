package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"daedalus/contexts/code-distribution/distributor/domain/entities"
	domainerrors "daedalus/contexts/code-distribution/distributor/domain/errors"
	"daedalus/contexts/code-distribution/distributor/ports"
	"daedalus/internal/shared/chain"

	contractsv1 "daedalus/contracts/gen/events/v1"

	"github.com/google/uuid"
)

type configKey struct {
	instance chain.Address
	key      string
}

type outboxRecord struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
	PublishedAt  *time.Time
	seq          uint64
}

// Store keeps committed registry state. Writes flow through staged
// transactions: nothing lands in these maps until Atomically commits, so
// readers (the admission hooks in particular) never observe partial state.
type Store struct {
	// txMu serializes whole transactions so counter and uniqueness reads
	// inside one Atomically body cannot go stale against another in-flight
	// transaction. mu guards committed state for concurrent readers.
	txMu sync.Mutex
	mu   sync.RWMutex

	components            map[chain.Hash]entities.DistributionComponent
	instanceRecords       map[chain.Address]entities.InstanceRecord
	instanceDistributions map[uint64]chain.Hash
	deployments           map[chain.Address]time.Time
	instanceConfig        map[configKey][]byte
	outbox                map[string]outboxRecord
	outboxSeq             uint64
	instanceCounter       uint64
}

func NewStore() *Store {
	return &Store{
		components:            make(map[chain.Hash]entities.DistributionComponent),
		instanceRecords:       make(map[chain.Address]entities.InstanceRecord),
		instanceDistributions: make(map[uint64]chain.Hash),
		deployments:           make(map[chain.Address]time.Time),
		instanceConfig:        make(map[configKey][]byte),
		outbox:                make(map[string]outboxRecord),
	}
}

func (s *Store) Atomically(_ context.Context, fn func(tx ports.RegistryTx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &storeTx{
		store:                 s,
		components:            make(map[chain.Hash]entities.DistributionComponent),
		removed:               make(map[chain.Hash]bool),
		instanceRecords:       make(map[chain.Address]entities.InstanceRecord),
		instanceDistributions: make(map[uint64]chain.Hash),
		deployments:           make(map[chain.Address]time.Time),
		instanceConfig:        make(map[configKey][]byte),
	}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, component := range tx.components {
		s.components[id] = component
	}
	for id := range tx.removed {
		delete(s.components, id)
	}
	for address, record := range tx.instanceRecords {
		s.instanceRecords[address] = record
	}
	for instanceID, distributorsID := range tx.instanceDistributions {
		s.instanceDistributions[instanceID] = distributorsID
	}
	for address, deployedAt := range tx.deployments {
		s.deployments[address] = deployedAt
	}
	for key, value := range tx.instanceConfig {
		s.instanceConfig[key] = value
	}
	for _, row := range tx.outbox {
		if _, exists := s.outbox[row.OutboxID]; !exists {
			s.outboxSeq++
			row.seq = s.outboxSeq
			s.outbox[row.OutboxID] = row
		}
	}
	s.instanceCounter += tx.counterDelta
	return nil
}

func (s *Store) GetComponent(_ context.Context, distributorsID chain.Hash) (entities.DistributionComponent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	component, exists := s.components[distributorsID]
	if !exists {
		return entities.DistributionComponent{}, domainerrors.ErrDistributionNotFound
	}
	return component, nil
}

func (s *Store) HasDistribution(_ context.Context, distributorsID chain.Hash) (bool, error) {
	if distributorsID.IsZero() {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.components[distributorsID]
	return exists, nil
}

func (s *Store) ListDistributions(_ context.Context) ([]chain.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]chain.Hash, 0, len(s.components))
	for id := range s.components {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Hex() < ids[j].Hex()
	})
	return ids, nil
}

func (s *Store) InstanceIDOf(_ context.Context, address chain.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.instanceRecords[address].InstanceID, nil
}

func (s *Store) DistributionOf(_ context.Context, instanceID uint64) (chain.Hash, error) {
	if instanceID == 0 {
		return chain.Hash{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.instanceDistributions[instanceID], nil
}

func (s *Store) GetInstanceRecord(_ context.Context, address chain.Address) (entities.InstanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.instanceRecords[address]
	if !exists {
		return entities.InstanceRecord{}, domainerrors.ErrInstanceNotFound
	}
	return record, nil
}

// InstanceConfig exposes initializer-written configuration for tests and
// diagnostics.
func (s *Store) InstanceConfig(address chain.Address, key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.instanceConfig[configKey{instance: address, key: key}]
	if !exists {
		return nil, false
	}
	return append([]byte(nil), value...), true
}

// InstanceCount reports the committed instance counter value.
func (s *Store) InstanceCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.instanceCounter
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
		return rows[i].seq < rows[j].seq
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
		return domainerrors.ErrInvalidDistributorInput
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

// storeTx stages writes in overlay maps. Reads see the overlay first, then
// committed state; the overlay is discarded wholesale when fn fails.
type storeTx struct {
	store *Store

	components            map[chain.Hash]entities.DistributionComponent
	removed               map[chain.Hash]bool
	instanceRecords       map[chain.Address]entities.InstanceRecord
	instanceDistributions map[uint64]chain.Hash
	deployments           map[chain.Address]time.Time
	instanceConfig        map[configKey][]byte
	outbox                []outboxRecord
	counterDelta          uint64
}

func (tx *storeTx) GetComponent(ctx context.Context, distributorsID chain.Hash) (entities.DistributionComponent, error) {
	if component, exists := tx.components[distributorsID]; exists {
		return component, nil
	}
	if tx.removed[distributorsID] {
		return entities.DistributionComponent{}, domainerrors.ErrDistributionNotFound
	}
	return tx.store.GetComponent(ctx, distributorsID)
}

func (tx *storeTx) HasDistribution(ctx context.Context, distributorsID chain.Hash) (bool, error) {
	if distributorsID.IsZero() {
		return false, nil
	}
	if _, exists := tx.components[distributorsID]; exists {
		return true, nil
	}
	if tx.removed[distributorsID] {
		return false, nil
	}
	return tx.store.HasDistribution(ctx, distributorsID)
}

func (tx *storeTx) ListDistributions(ctx context.Context) ([]chain.Hash, error) {
	committed, err := tx.store.ListDistributions(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]chain.Hash, 0, len(committed)+len(tx.components))
	for _, id := range committed {
		if !tx.removed[id] {
			ids = append(ids, id)
		}
	}
	for id := range tx.components {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Hex() < ids[j].Hex()
	})
	return ids, nil
}

func (tx *storeTx) InstanceIDOf(ctx context.Context, address chain.Address) (uint64, error) {
	if record, exists := tx.instanceRecords[address]; exists {
		return record.InstanceID, nil
	}
	return tx.store.InstanceIDOf(ctx, address)
}

func (tx *storeTx) DistributionOf(ctx context.Context, instanceID uint64) (chain.Hash, error) {
	if instanceID == 0 {
		return chain.Hash{}, nil
	}
	if distributorsID, exists := tx.instanceDistributions[instanceID]; exists {
		return distributorsID, nil
	}
	return tx.store.DistributionOf(ctx, instanceID)
}

func (tx *storeTx) GetInstanceRecord(ctx context.Context, address chain.Address) (entities.InstanceRecord, error) {
	if record, exists := tx.instanceRecords[address]; exists {
		return record, nil
	}
	return tx.store.GetInstanceRecord(ctx, address)
}

func (tx *storeTx) AddComponent(ctx context.Context, component entities.DistributionComponent) error {
	exists, err := tx.HasDistribution(ctx, component.DistributorsID)
	if err != nil {
		return err
	}
	if exists {
		return domainerrors.ErrDistributionExists
	}
	delete(tx.removed, component.DistributorsID)
	tx.components[component.DistributorsID] = component
	return nil
}

func (tx *storeTx) RemoveComponent(ctx context.Context, distributorsID chain.Hash) error {
	exists, err := tx.HasDistribution(ctx, distributorsID)
	if err != nil {
		return err
	}
	if !exists {
		return domainerrors.ErrDistributionNotFound
	}
	delete(tx.components, distributorsID)
	tx.removed[distributorsID] = true
	return nil
}

func (tx *storeTx) NextInstanceID(_ context.Context) (uint64, error) {
	tx.store.mu.RLock()
	committed := tx.store.instanceCounter
	tx.store.mu.RUnlock()

	tx.counterDelta++
	return committed + tx.counterDelta, nil
}

func (tx *storeTx) RecordInstance(ctx context.Context, record entities.InstanceRecord) error {
	existingID, err := tx.InstanceIDOf(ctx, record.Address)
	if err != nil {
		return err
	}
	if existingID != 0 {
		return domainerrors.ErrInstanceExists
	}
	tx.instanceRecords[record.Address] = record
	if _, exists := tx.instanceDistributions[record.InstanceID]; !exists {
		tx.instanceDistributions[record.InstanceID] = record.DistributorsID
	}
	return nil
}

func (tx *storeTx) RegisterDeployment(_ context.Context, address chain.Address, deployedAt time.Time) error {
	tx.deployments[address] = deployedAt.UTC()
	return nil
}

func (tx *storeTx) PutInstanceConfig(_ context.Context, instance chain.Address, key string, value []byte) error {
	tx.instanceConfig[configKey{instance: instance, key: key}] = append([]byte(nil), value...)
	return nil
}

func (tx *storeTx) AppendOutbox(_ context.Context, envelope contractsv1.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	tx.outbox = append(tx.outbox, outboxRecord{
		OutboxID:     outboxID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		CreatedAt:    envelope.OccurredAt.UTC(),
	})
	return nil
}

var _ ports.Repository = (*Store)(nil)
var _ ports.RegistryTx = (*storeTx)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
