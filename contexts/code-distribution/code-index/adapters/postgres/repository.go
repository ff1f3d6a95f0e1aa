package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"daedalus/contexts/code-distribution/code-index/domain/entities"
	domainerrors "daedalus/contexts/code-distribution/code-index/domain/errors"
	"daedalus/contexts/code-distribution/code-index/ports"
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
)

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

func (r *Repository) Insert(ctx context.Context, artifact entities.CodeArtifact) (bool, error) {
	row := artifactModelFromEntity(artifact)

	var existing artifactModel
	err := r.db.WithContext(ctx).
		Where("fingerprint = ?", row.Fingerprint).
		First(&existing).
		Error
	if err == nil {
		if existing.Address == row.Address {
			return false, nil
		}
		r.logWarn("codeindex_repo_fingerprint_conflict",
			"fingerprint", row.Fingerprint,
			"address", row.Address,
			"existing_address", existing.Address,
		)
		return false, domainerrors.ErrFingerprintConflict
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, r.logError("codeindex_repo_insert_lookup_failed", err,
			"fingerprint", row.Fingerprint,
		)
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			// Concurrent register of the same fingerprint; re-read to decide
			// between idempotent success and conflict.
			var racer artifactModel
			if lookupErr := r.db.WithContext(ctx).
				Where("fingerprint = ?", row.Fingerprint).
				First(&racer).
				Error; lookupErr == nil {
				if racer.Address == row.Address {
					return false, nil
				}
				return false, domainerrors.ErrFingerprintConflict
			}
			return false, domainerrors.ErrFingerprintConflict
		}
		return false, r.logError("codeindex_repo_insert_failed", err,
			"fingerprint", row.Fingerprint,
			"address", row.Address,
		)
	}
	return true, nil
}

func (r *Repository) Get(ctx context.Context, fingerprint chain.Hash) (entities.CodeArtifact, error) {
	var row artifactModel
	err := r.db.WithContext(ctx).
		Where("fingerprint = ?", fingerprint.Hex()).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.CodeArtifact{}, domainerrors.ErrArtifactNotFound
		}
		return entities.CodeArtifact{}, r.logError("codeindex_repo_get_failed", err,
			"fingerprint", fingerprint.Hex(),
		)
	}
	return row.toEntity()
}

func (r *Repository) List(ctx context.Context, limit int, offset int) ([]entities.CodeArtifact, error) {
	var rows []artifactModel
	if err := r.db.WithContext(ctx).
		Order("registered_at ASC, fingerprint ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, r.logError("codeindex_repo_list_failed", err,
			"limit", limit,
			"offset", offset,
		)
	}
	artifacts := make([]entities.CodeArtifact, 0, len(rows))
	for _, row := range rows {
		artifact, err := row.toEntity()
		if err != nil {
			return nil, r.logError("codeindex_repo_list_decode_failed", err,
				"fingerprint", row.Fingerprint,
			)
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope contractsv1.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("codeindex_repo_append_outbox_marshal_failed", err,
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
		return r.logError("codeindex_repo_append_outbox_failed", createResult.Error,
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
		return nil, r.logError("codeindex_repo_list_pending_outbox_failed", err,
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
		return r.logError("codeindex_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("codeindex_repo_mark_outbox_published_not_found",
			"outbox_id", strings.TrimSpace(outboxID),
		)
		return domainerrors.ErrInvalidArtifactInput
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
		"module", "code-distribution/code-index",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("code index repository operation failed", fields...)
	return err
}

func (r *Repository) logWarn(event string, attrs ...any) {
	fields := make([]any, 0, len(attrs)+5)
	fields = append(fields,
		"event", event,
		"module", "code-distribution/code-index",
		"layer", "adapter",
	)
	fields = append(fields, attrs...)
	r.logger.Warn("code index repository warning", fields...)
}

type artifactModel struct {
	Fingerprint  string    `gorm:"column:fingerprint;primaryKey"`
	Address      string    `gorm:"column:address"`
	RegisteredAt time.Time `gorm:"column:registered_at"`
}

func (artifactModel) TableName() string {
	return "code_artifacts"
}

func artifactModelFromEntity(artifact entities.CodeArtifact) artifactModel {
	return artifactModel{
		Fingerprint:  artifact.Fingerprint.Hex(),
		Address:      artifact.Address.Hex(),
		RegisteredAt: artifact.RegisteredAt.UTC(),
	}
}

func (m artifactModel) toEntity() (entities.CodeArtifact, error) {
	fingerprint, err := chain.ParseHash(m.Fingerprint)
	if err != nil {
		return entities.CodeArtifact{}, err
	}
	address, err := chain.ParseAddress(m.Address)
	if err != nil {
		return entities.CodeArtifact{}, err
	}
	return entities.CodeArtifact{
		Fingerprint:  fingerprint,
		Address:      address,
		RegisteredAt: m.RegisteredAt.UTC(),
	}, nil
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
	return "code_index_outbox"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Repository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
