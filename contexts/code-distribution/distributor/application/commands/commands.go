package commands

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "daedalus/contexts/code-distribution/distributor/application"
	"daedalus/contexts/code-distribution/distributor/domain/entities"
	domainerrors "daedalus/contexts/code-distribution/distributor/domain/errors"
	"daedalus/contexts/code-distribution/distributor/ports"
	"daedalus/internal/shared/chain"

	contractsv1 "daedalus/contracts/gen/events/v1"
)

type AddDistributionCommand struct {
	CodeID        chain.Hash
	InitializerID chain.Hash
}

type RemoveDistributionCommand struct {
	DistributorsID chain.Hash
}

type InstantiateCommand struct {
	DistributorsID chain.Hash
	Args           []byte
}

type UseCase struct {
	Repository ports.Repository
	CodeIndex  ports.CodeIndex
	Host       ports.ModuleHost
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

// AddDistribution registers a (code, initializer) pair under its derived
// key. Both references must resolve through the code index before the pair
// becomes instantiable.
func (uc UseCase) AddDistribution(ctx context.Context, cmd AddDistributionCommand) (chain.Hash, error) {
	logger := application.ResolveLogger(uc.Logger)

	codeAddress, err := uc.CodeIndex.Resolve(ctx, cmd.CodeID)
	if err != nil {
		return chain.Hash{}, err
	}
	if codeAddress.IsZero() {
		logger.Warn("distribution add code unresolved",
			"event", "distributor_add_code_unresolved",
			"module", "code-distribution/distributor",
			"layer", "application",
			"code_id", cmd.CodeID.Hex(),
		)
		return chain.Hash{}, domainerrors.ErrDistributionNotFound
	}

	var initializerAddress chain.Address
	if !cmd.InitializerID.IsZero() {
		initializerAddress, err = uc.CodeIndex.Resolve(ctx, cmd.InitializerID)
		if err != nil {
			return chain.Hash{}, err
		}
		if initializerAddress.IsZero() {
			logger.Warn("distribution add initializer unresolved",
				"event", "distributor_add_initializer_unresolved",
				"module", "code-distribution/distributor",
				"layer", "application",
				"code_id", cmd.CodeID.Hex(),
				"initializer_id", cmd.InitializerID.Hex(),
			)
			return chain.Hash{}, domainerrors.ErrInitializerNotFound
		}
	}

	distributorsID := chain.DeriveDistributorsID(cmd.CodeID, cmd.InitializerID)
	component := entities.DistributionComponent{
		DistributorsID: distributorsID,
		CodeID:         cmd.CodeID,
		InitializerID:  cmd.InitializerID,
		Initializer:    initializerAddress,
		AddedAt:        uc.now(),
	}

	err = uc.Repository.Atomically(ctx, func(tx ports.RegistryTx) error {
		if err := tx.AddComponent(ctx, component); err != nil {
			return err
		}
		return uc.appendOutbox(ctx, tx, contractsv1.EventTypeDistributionAdded, distributorsID.Hex(), map[string]any{
			"distributors_id": distributorsID.Hex(),
			"code_id":         cmd.CodeID.Hex(),
			"initializer_id":  cmd.InitializerID.Hex(),
		})
	})
	if err != nil {
		logger.Warn("distribution add rejected",
			"event", "distributor_add_rejected",
			"module", "code-distribution/distributor",
			"layer", "application",
			"distributors_id", distributorsID.Hex(),
			"error", err.Error(),
		)
		return chain.Hash{}, err
	}

	logger.Info("distribution added",
		"event", "distributor_distribution_added",
		"module", "code-distribution/distributor",
		"layer", "application",
		"distributors_id", distributorsID.Hex(),
		"code_id", cmd.CodeID.Hex(),
		"initializer_id", cmd.InitializerID.Hex(),
	)
	return distributorsID, nil
}

// RemoveDistribution revokes a distribution. Existing instance records stay
// untouched; only future admission checks against this id start failing.
func (uc UseCase) RemoveDistribution(ctx context.Context, cmd RemoveDistributionCommand) error {
	logger := application.ResolveLogger(uc.Logger)

	err := uc.Repository.Atomically(ctx, func(tx ports.RegistryTx) error {
		if err := tx.RemoveComponent(ctx, cmd.DistributorsID); err != nil {
			return err
		}
		return uc.appendOutbox(ctx, tx, contractsv1.EventTypeDistributionRemoved, cmd.DistributorsID.Hex(), map[string]any{
			"distributors_id": cmd.DistributorsID.Hex(),
		})
	})
	if err != nil {
		logger.Warn("distribution remove rejected",
			"event", "distributor_remove_rejected",
			"module", "code-distribution/distributor",
			"layer", "application",
			"distributors_id", cmd.DistributorsID.Hex(),
			"error", err.Error(),
		)
		return err
	}

	logger.Info("distribution removed",
		"event", "distributor_distribution_removed",
		"module", "code-distribution/distributor",
		"layer", "application",
		"distributors_id", cmd.DistributorsID.Hex(),
	)
	return nil
}

// Instantiate produces fresh instances from a registered distribution. The
// whole operation is atomic: module deployment, initializer configuration,
// and instance bookkeeping commit together or roll back together, and the
// admission hooks never see an instance before its bookkeeping committed.
func (uc UseCase) Instantiate(ctx context.Context, cmd InstantiateCommand) (entities.Instantiation, error) {
	logger := application.ResolveLogger(uc.Logger)

	operationID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Instantiation{}, err
	}

	var result entities.Instantiation
	err = uc.Repository.Atomically(ctx, func(tx ports.RegistryTx) error {
		component, err := tx.GetComponent(ctx, cmd.DistributorsID)
		if err != nil {
			return err
		}

		// Defensive re-resolve: the index is append-only, but the component
		// must still point at indexed code before anything is deployed.
		moduleAddress, err := uc.CodeIndex.Resolve(ctx, component.CodeID)
		if err != nil {
			return err
		}
		if moduleAddress.IsZero() {
			return domainerrors.ErrDistributionNotFound
		}

		module, err := uc.Host.Module(ctx, moduleAddress)
		if err != nil {
			return err
		}

		now := uc.now()
		scope := &deploymentScope{
			tx:   tx,
			seed: chain.Keccak256(cmd.DistributorsID[:], []byte(operationID)),
			at:   now,
		}
		instances, name, version, err := module.Instantiate(ctx, scope, cmd.Args)
		if err != nil {
			return err
		}
		if len(instances) == 0 {
			return domainerrors.ErrInvalidDistributorInput
		}

		if !component.Initializer.IsZero() {
			initializer, err := uc.Host.Initializer(ctx, component.Initializer)
			if err != nil {
				return err
			}
			if err := initializer.Initialize(ctx, configScope{tx: tx}, instances, cmd.Args); err != nil {
				// Bubble the initializer failure verbatim; substitute the
				// fixed error only when it carries no payload at all.
				if strings.TrimSpace(err.Error()) == "" {
					return domainerrors.ErrInitializerNoReason
				}
				return err
			}
		}

		instanceID, err := tx.NextInstanceID(ctx)
		if err != nil {
			return err
		}
		for _, instance := range instances {
			if err := tx.RecordInstance(ctx, entities.InstanceRecord{
				Address:        instance,
				InstanceID:     instanceID,
				DistributorsID: cmd.DistributorsID,
				InstantiatedAt: now,
			}); err != nil {
				return err
			}
		}

		instanceHexes := make([]string, 0, len(instances))
		for _, instance := range instances {
			instanceHexes = append(instanceHexes, instance.Hex())
		}
		if err := uc.appendOutbox(ctx, tx, contractsv1.EventTypeDistributionInstantiated, cmd.DistributorsID.Hex(), map[string]any{
			"distributors_id": cmd.DistributorsID.Hex(),
			"instance_id":     instanceID,
			"args":            hex.EncodeToString(cmd.Args),
			"instances":       instanceHexes,
		}); err != nil {
			return err
		}

		result = entities.Instantiation{
			DistributorsID: cmd.DistributorsID,
			InstanceID:     instanceID,
			Instances:      instances,
			Name:           name,
			Version:        version,
		}
		return nil
	})
	if err != nil {
		logger.Warn("distribution instantiate failed",
			"event", "distributor_instantiate_failed",
			"module", "code-distribution/distributor",
			"layer", "application",
			"distributors_id", cmd.DistributorsID.Hex(),
			"error", err.Error(),
		)
		return entities.Instantiation{}, err
	}

	logger.Info("distribution instantiated",
		"event", "distributor_distribution_instantiated",
		"module", "code-distribution/distributor",
		"layer", "application",
		"distributors_id", cmd.DistributorsID.Hex(),
		"instance_id", result.InstanceID,
		"instance_count", len(result.Instances),
		"name", result.Name,
		"version", result.Version,
	)
	return result, nil
}

// deploymentScope derives fresh instance addresses from an operation-unique
// seed and records them inside the enclosing transaction.
type deploymentScope struct {
	tx    ports.RegistryTx
	seed  chain.Hash
	at    time.Time
	nonce uint64
}

func (s *deploymentScope) Deploy(ctx context.Context) (chain.Address, error) {
	s.nonce++
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], s.nonce)
	address := chain.AddressFromHash(chain.Keccak256(s.seed[:], nonce[:]))
	if err := s.tx.RegisterDeployment(ctx, address, s.at); err != nil {
		return chain.Address{}, err
	}
	return address, nil
}

type configScope struct {
	tx ports.RegistryTx
}

func (s configScope) Set(ctx context.Context, instance chain.Address, key string, value []byte) error {
	return s.tx.PutInstanceConfig(ctx, instance, key, value)
}

func (uc UseCase) appendOutbox(
	ctx context.Context,
	tx ports.RegistryTx,
	eventType string,
	partitionKey string,
	data map[string]any,
) error {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return tx.AppendOutbox(ctx, contractsv1.Envelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       uc.now(),
		SourceService:    "distributor",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "distributors_id",
		PartitionKey:     partitionKey,
		Data:             payload,
	})
}

func (uc UseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

var _ ports.DeploymentScope = (*deploymentScope)(nil)
var _ ports.ConfigScope = configScope{}
