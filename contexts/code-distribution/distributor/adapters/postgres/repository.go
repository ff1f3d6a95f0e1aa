package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"daedalus/contexts/code-distribution/distributor/domain/entities"
	domainerrors "daedalus/contexts/code-distribution/distributor/domain/errors"
	"daedalus/contexts/code-distribution/distributor/ports"
	"daedalus/internal/shared/chain"

	contractsv1 "daedalus/contracts/gen/events/v1"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"

	instanceCounterRowID = 1
)

// Repository implements both the committed read view and the transactional
// write scope; Atomically hands out a tx-bound copy so the instantiate
// atomicity contract maps directly onto one database transaction.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) Atomically(ctx context.Context, fn func(tx ports.RegistryTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx, logger: r.logger})
	})
}

func (r *Repository) GetComponent(ctx context.Context, distributorsID chain.Hash) (entities.DistributionComponent, error) {
	var row componentModel
	err := r.db.WithContext(ctx).
		Where("distributors_id = ?", distributorsID.Hex()).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.DistributionComponent{}, domainerrors.ErrDistributionNotFound
		}
		return entities.DistributionComponent{}, r.logError("distributor_repo_get_component_failed", err,
			"distributors_id", distributorsID.Hex(),
		)
	}
	return row.toEntity()
}

func (r *Repository) HasDistribution(ctx context.Context, distributorsID chain.Hash) (bool, error) {
	if distributorsID.IsZero() {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&componentModel{}).
		Where("distributors_id = ?", distributorsID.Hex()).
		Count(&count).
		Error; err != nil {
		return false, r.logError("distributor_repo_has_distribution_failed", err,
			"distributors_id", distributorsID.Hex(),
		)
	}
	return count > 0, nil
}

func (r *Repository) ListDistributions(ctx context.Context) ([]chain.Hash, error) {
	var rows []componentModel
	if err := r.db.WithContext(ctx).
		Order("added_at ASC, distributors_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("distributor_repo_list_distributions_failed", err)
	}
	ids := make([]chain.Hash, 0, len(rows))
	for _, row := range rows {
		id, err := chain.ParseHash(row.DistributorsID)
		if err != nil {
			return nil, r.logError("distributor_repo_list_distributions_decode_failed", err,
				"distributors_id", row.DistributorsID,
			)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *Repository) InstanceIDOf(ctx context.Context, address chain.Address) (uint64, error) {
	var row instanceModel
	err := r.db.WithContext(ctx).
		Where("address = ?", address.Hex()).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, r.logError("distributor_repo_instance_id_of_failed", err,
			"address", address.Hex(),
		)
	}
	return uint64(row.InstanceID), nil
}

func (r *Repository) DistributionOf(ctx context.Context, instanceID uint64) (chain.Hash, error) {
	if instanceID == 0 {
		return chain.Hash{}, nil
	}
	var row instanceModel
	err := r.db.WithContext(ctx).
		Where("instance_id = ?", int64(instanceID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chain.Hash{}, nil
		}
		return chain.Hash{}, r.logError("distributor_repo_distribution_of_failed", err,
			"instance_id", instanceID,
		)
	}
	return chain.ParseHash(row.DistributorsID)
}

func (r *Repository) GetInstanceRecord(ctx context.Context, address chain.Address) (entities.InstanceRecord, error) {
	var row instanceModel
	err := r.db.WithContext(ctx).
		Where("address = ?", address.Hex()).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.InstanceRecord{}, domainerrors.ErrInstanceNotFound
		}
		return entities.InstanceRecord{}, r.logError("distributor_repo_get_instance_record_failed", err,
			"address", address.Hex(),
		)
	}
	return row.toEntity()
}

func (r *Repository) AddComponent(ctx context.Context, component entities.DistributionComponent) error {
	row := componentModelFromEntity(component)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			r.logWarn("distributor_repo_add_component_duplicate",
				"distributors_id", row.DistributorsID,
			)
			return domainerrors.ErrDistributionExists
		}
		return r.logError("distributor_repo_add_component_failed", err,
			"distributors_id", row.DistributorsID,
		)
	}
	return nil
}

func (r *Repository) RemoveComponent(ctx context.Context, distributorsID chain.Hash) error {
	result := r.db.WithContext(ctx).
		Where("distributors_id = ?", distributorsID.Hex()).
		Delete(&componentModel{})
	if result.Error != nil {
		return r.logError("distributor_repo_remove_component_failed", result.Error,
			"distributors_id", distributorsID.Hex(),
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("distributor_repo_remove_component_not_found",
			"distributors_id", distributorsID.Hex(),
		)
		return domainerrors.ErrDistributionNotFound
	}
	return nil
}

func (r *Repository) NextInstanceID(ctx context.Context) (uint64, error) {
	var row instanceCounterModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", instanceCounterRowID).
		First(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = instanceCounterModel{ID: instanceCounterRowID, Value: 0}
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil && !isUniqueViolation(err) {
			return 0, r.logError("distributor_repo_counter_seed_failed", err)
		}
	} else if err != nil {
		return 0, r.logError("distributor_repo_counter_lock_failed", err)
	}
	row.Value++
	if err := r.db.WithContext(ctx).
		Model(&instanceCounterModel{}).
		Where("id = ?", instanceCounterRowID).
		Update("value", row.Value).
		Error; err != nil {
		return 0, r.logError("distributor_repo_counter_advance_failed", err)
	}
	return uint64(row.Value), nil
}

func (r *Repository) RecordInstance(ctx context.Context, record entities.InstanceRecord) error {
	row := instanceModelFromEntity(record)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			r.logWarn("distributor_repo_record_instance_duplicate",
				"address", row.Address,
				"instance_id", row.InstanceID,
			)
			return domainerrors.ErrInstanceExists
		}
		return r.logError("distributor_repo_record_instance_failed", err,
			"address", row.Address,
			"instance_id", row.InstanceID,
		)
	}
	return nil
}

func (r *Repository) RegisterDeployment(ctx context.Context, address chain.Address, deployedAt time.Time) error {
	row := deploymentModel{
		Address:    address.Hex(),
		DeployedAt: deployedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return r.logError("distributor_repo_register_deployment_failed", err,
			"address", row.Address,
		)
	}
	return nil
}

func (r *Repository) PutInstanceConfig(ctx context.Context, instance chain.Address, key string, value []byte) error {
	row := instanceConfigModel{
		InstanceAddress: instance.Hex(),
		ConfigKey:       key,
		Value:           append([]byte(nil), value...),
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "instance_address"}, {Name: "config_key"}},
		UpdateAll: true,
	}).Create(&row).Error; err != nil {
		return r.logError("distributor_repo_put_instance_config_failed", err,
			"instance_address", row.InstanceAddress,
			"config_key", key,
		)
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope contractsv1.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("distributor_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	createResult := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if createResult.Error != nil {
		return r.logError("distributor_repo_append_outbox_failed", createResult.Error,
			"outbox_id", row.OutboxID,
			"event_type", row.EventType,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("distributor_repo_list_pending_outbox_failed", err,
			"limit", limit,
		)
	}
	messages := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return messages, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	timestamp := publishedAt.UTC()
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": &timestamp,
		})
	if result.Error != nil {
		return r.logError("distributor_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("distributor_repo_mark_outbox_published_not_found",
			"outbox_id", strings.TrimSpace(outboxID),
		)
		return domainerrors.ErrInvalidDistributorInput
	}
	return nil
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "code-distribution/distributor",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("distributor repository operation failed", fields...)
	return err
}

func (r *Repository) logWarn(event string, attrs ...any) {
	fields := make([]any, 0, len(attrs)+5)
	fields = append(fields,
		"event", event,
		"module", "code-distribution/distributor",
		"layer", "adapter",
	)
	fields = append(fields, attrs...)
	r.logger.Warn("distributor repository warning", fields...)
}

type componentModel struct {
	DistributorsID     string    `gorm:"column:distributors_id;primaryKey"`
	CodeID             string    `gorm:"column:code_id"`
	InitializerID      string    `gorm:"column:initializer_id"`
	InitializerAddress string    `gorm:"column:initializer_address"`
	AddedAt            time.Time `gorm:"column:added_at"`
}

func (componentModel) TableName() string {
	return "distribution_components"
}

func componentModelFromEntity(component entities.DistributionComponent) componentModel {
	return componentModel{
		DistributorsID:     component.DistributorsID.Hex(),
		CodeID:             component.CodeID.Hex(),
		InitializerID:      component.InitializerID.Hex(),
		InitializerAddress: component.Initializer.Hex(),
		AddedAt:            component.AddedAt.UTC(),
	}
}

func (m componentModel) toEntity() (entities.DistributionComponent, error) {
	distributorsID, err := chain.ParseHash(m.DistributorsID)
	if err != nil {
		return entities.DistributionComponent{}, err
	}
	codeID, err := chain.ParseHash(m.CodeID)
	if err != nil {
		return entities.DistributionComponent{}, err
	}
	initializerID, err := chain.ParseHash(m.InitializerID)
	if err != nil {
		return entities.DistributionComponent{}, err
	}
	initializer, err := chain.ParseAddress(m.InitializerAddress)
	if err != nil {
		return entities.DistributionComponent{}, err
	}
	return entities.DistributionComponent{
		DistributorsID: distributorsID,
		CodeID:         codeID,
		InitializerID:  initializerID,
		Initializer:    initializer,
		AddedAt:        m.AddedAt.UTC(),
	}, nil
}

type instanceModel struct {
	Address        string    `gorm:"column:address;primaryKey"`
	InstanceID     int64     `gorm:"column:instance_id;index"`
	DistributorsID string    `gorm:"column:distributors_id"`
	InstantiatedAt time.Time `gorm:"column:instantiated_at"`
}

func (instanceModel) TableName() string {
	return "instance_records"
}

func instanceModelFromEntity(record entities.InstanceRecord) instanceModel {
	return instanceModel{
		Address:        record.Address.Hex(),
		InstanceID:     int64(record.InstanceID),
		DistributorsID: record.DistributorsID.Hex(),
		InstantiatedAt: record.InstantiatedAt.UTC(),
	}
}

func (m instanceModel) toEntity() (entities.InstanceRecord, error) {
	address, err := chain.ParseAddress(m.Address)
	if err != nil {
		return entities.InstanceRecord{}, err
	}
	distributorsID, err := chain.ParseHash(m.DistributorsID)
	if err != nil {
		return entities.InstanceRecord{}, err
	}
	return entities.InstanceRecord{
		Address:        address,
		InstanceID:     uint64(m.InstanceID),
		DistributorsID: distributorsID,
		InstantiatedAt: m.InstantiatedAt.UTC(),
	}, nil
}

type instanceCounterModel struct {
	ID    int   `gorm:"column:id;primaryKey"`
	Value int64 `gorm:"column:value"`
}

func (instanceCounterModel) TableName() string {
	return "instance_counter"
}

type deploymentModel struct {
	Address    string    `gorm:"column:address;primaryKey"`
	DeployedAt time.Time `gorm:"column:deployed_at"`
}

func (deploymentModel) TableName() string {
	return "code_deployments"
}

type instanceConfigModel struct {
	InstanceAddress string `gorm:"column:instance_address;primaryKey"`
	ConfigKey       string `gorm:"column:config_key;primaryKey"`
	Value           []byte `gorm:"column:value"`
}

func (instanceConfigModel) TableName() string {
	return "instance_configs"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "distributor_outbox"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Repository = (*Repository)(nil)
var _ ports.RegistryTx = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
