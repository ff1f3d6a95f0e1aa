package queries

import (
	"context"
	"log/slog"

	application "daedalus/contexts/code-distribution/distributor/application"
	"daedalus/contexts/code-distribution/distributor/domain/entities"
	domainerrors "daedalus/contexts/code-distribution/distributor/domain/errors"
	"daedalus/contexts/code-distribution/distributor/ports"
	"daedalus/internal/shared/chain"
)

type UseCase struct {
	Repository ports.Repository
	Logger     *slog.Logger
}

// BeforeCall is the admission check an instance invokes before privileged
// logic. It succeeds only for an instance with a non-zero distribution id,
// whose target shares the same instance identity, under a still-active
// distribution. Read-only; the returned context encodes the distribution id.
func (uc UseCase) BeforeCall(ctx context.Context, input ports.CallInput) ([]byte, error) {
	logger := application.ResolveLogger(uc.Logger)

	target := input.Config.Target
	if target.IsZero() {
		target = input.Caller
	}

	instanceID, err := uc.Repository.InstanceIDOf(ctx, input.Instance)
	if err != nil {
		return nil, err
	}
	distributorsID, err := uc.Repository.DistributionOf(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	targetID, err := uc.Repository.InstanceIDOf(ctx, target)
	if err != nil {
		return nil, err
	}
	active, err := uc.Repository.HasDistribution(ctx, distributorsID)
	if err != nil {
		return nil, err
	}

	if distributorsID.IsZero() || targetID != instanceID || !active {
		logger.Warn("before call admission rejected",
			"event", "distributor_before_call_rejected",
			"module", "code-distribution/distributor",
			"layer", "application",
			"instance", input.Instance.Hex(),
			"target", target.Hex(),
			"distributors_id", distributorsID.Hex(),
			"active", active,
		)
		return nil, domainerrors.ErrInvalidInstance
	}

	callContext := make([]byte, len(distributorsID))
	copy(callContext, distributorsID[:])
	return callContext, nil
}

// AfterCall closes the admission bracket. It is intentionally weaker than
// BeforeCall: it only rejects when target and instance resolve to different
// instance identities while the distribution is still active.
func (uc UseCase) AfterCall(ctx context.Context, input ports.CallInput, beforeCallResult []byte) error {
	logger := application.ResolveLogger(uc.Logger)
	_ = beforeCallResult

	target := input.Config.Target
	if target.IsZero() {
		target = input.Caller
	}

	instanceID, err := uc.Repository.InstanceIDOf(ctx, input.Instance)
	if err != nil {
		return err
	}
	targetID, err := uc.Repository.InstanceIDOf(ctx, target)
	if err != nil {
		return err
	}
	distributorsID, err := uc.Repository.DistributionOf(ctx, instanceID)
	if err != nil {
		return err
	}
	active, err := uc.Repository.HasDistribution(ctx, distributorsID)
	if err != nil {
		return err
	}

	if targetID != instanceID && active {
		logger.Warn("after call admission rejected",
			"event", "distributor_after_call_rejected",
			"module", "code-distribution/distributor",
			"layer", "application",
			"instance", input.Instance.Hex(),
			"target", target.Hex(),
			"distributors_id", distributorsID.Hex(),
		)
		return domainerrors.ErrInvalidInstance
	}
	return nil
}

func (uc UseCase) GetDistributions(ctx context.Context) ([]chain.Hash, error) {
	return uc.Repository.ListDistributions(ctx)
}

func (uc UseCase) GetDistributionComponent(ctx context.Context, distributorsID chain.Hash) (entities.DistributionComponent, error) {
	return uc.Repository.GetComponent(ctx, distributorsID)
}

func (uc UseCase) GetInstance(ctx context.Context, address chain.Address) (entities.InstanceRecord, error) {
	return uc.Repository.GetInstanceRecord(ctx, address)
}
