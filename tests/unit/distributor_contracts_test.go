package unit

import (
	"context"
	"errors"
	"testing"

	"daedalus/contexts/code-distribution/distributor/application/commands"
	domainerrors "daedalus/contexts/code-distribution/distributor/domain/errors"
	"daedalus/internal/shared/chain"
)

func TestDistributorAddRejectsDuplicatePair(t *testing.T) {
	fixture := newDistributorFixture(t, stubCodeModule{count: 1, name: "token", version: "1.0.0"}, nil)
	ctx := context.Background()

	if _, err := fixture.module.Commands.AddDistribution(ctx, commands.AddDistributionCommand{
		CodeID: fixture.codeID,
	}); err != nil {
		t.Fatalf("add distribution failed: %v", err)
	}
	_, err := fixture.module.Commands.AddDistribution(ctx, commands.AddDistributionCommand{
		CodeID: fixture.codeID,
	})
	if !errors.Is(err, domainerrors.ErrDistributionExists) {
		t.Fatalf("expected duplicate distribution rejection, got %v", err)
	}
}

func TestDistributorAddRequiresIndexedCode(t *testing.T) {
	fixture := newDistributorFixture(t, stubCodeModule{count: 1, name: "token", version: "1.0.0"}, nil)

	_, err := fixture.module.Commands.AddDistribution(context.Background(), commands.AddDistributionCommand{
		CodeID: chain.FingerprintOf([]byte("never indexed")),
	})
	if !errors.Is(err, domainerrors.ErrDistributionNotFound) {
		t.Fatalf("expected unresolvable code rejection, got %v", err)
	}
}

func TestDistributorAddRequiresIndexedInitializer(t *testing.T) {
	fixture := newDistributorFixture(t, stubCodeModule{count: 1, name: "token", version: "1.0.0"}, nil)

	_, err := fixture.module.Commands.AddDistribution(context.Background(), commands.AddDistributionCommand{
		CodeID:        fixture.codeID,
		InitializerID: chain.FingerprintOf([]byte("unindexed initializer")),
	})
	if !errors.Is(err, domainerrors.ErrInitializerNotFound) {
		t.Fatalf("expected unresolvable initializer rejection, got %v", err)
	}
}

func TestDistributorRemoveUnknownDistribution(t *testing.T) {
	fixture := newDistributorFixture(t, stubCodeModule{count: 1, name: "token", version: "1.0.0"}, nil)

	err := fixture.module.Commands.RemoveDistribution(context.Background(), commands.RemoveDistributionCommand{
		DistributorsID: chain.Keccak256([]byte("missing")),
	})
	if !errors.Is(err, domainerrors.ErrDistributionNotFound) {
		t.Fatalf("expected not-found rejection, got %v", err)
	}
}

func TestDistributorInstantiateUnknownDistribution(t *testing.T) {
	fixture := newDistributorFixture(t, stubCodeModule{count: 1, name: "token", version: "1.0.0"}, nil)

	_, err := fixture.module.Commands.Instantiate(context.Background(), commands.InstantiateCommand{
		DistributorsID: chain.Keccak256([]byte("missing")),
	})
	if !errors.Is(err, domainerrors.ErrDistributionNotFound) {
		t.Fatalf("expected not-found rejection, got %v", err)
	}
}

func TestDistributorInstantiateRollsBackOnInitializerFailure(t *testing.T) {
	boom := errors.New("symbol already taken")
	fixture := newDistributorFixture(t,
		stubCodeModule{count: 2, name: "token", version: "1.0.0"},
		stubInitializer{key: "symbol", value: []byte("TOK"), fail: boom},
	)
	ctx := context.Background()

	distributorsID, err := fixture.module.Commands.AddDistribution(ctx, commands.AddDistributionCommand{
		CodeID:        fixture.codeID,
		InitializerID: fixture.initializerID,
	})
	if err != nil {
		t.Fatalf("add distribution failed: %v", err)
	}

	_, err = fixture.module.Commands.Instantiate(ctx, commands.InstantiateCommand{DistributorsID: distributorsID})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the initializer failure verbatim, got %v", err)
	}

	if count := fixture.module.Store.InstanceCount(); count != 0 {
		t.Fatalf("expected instance counter untouched after rollback, got %d", count)
	}
	pending, err := fixture.module.Store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending outbox failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected only the add event in the outbox after rollback, got %d rows", len(pending))
	}
}

func TestDistributorInstantiateSubstitutesEmptyInitializerReason(t *testing.T) {
	fixture := newDistributorFixture(t,
		stubCodeModule{count: 1, name: "token", version: "1.0.0"},
		stubInitializer{key: "symbol", value: []byte("TOK"), fail: errors.New("")},
	)
	ctx := context.Background()

	distributorsID, err := fixture.module.Commands.AddDistribution(ctx, commands.AddDistributionCommand{
		CodeID:        fixture.codeID,
		InitializerID: fixture.initializerID,
	})
	if err != nil {
		t.Fatalf("add distribution failed: %v", err)
	}

	_, err = fixture.module.Commands.Instantiate(ctx, commands.InstantiateCommand{DistributorsID: distributorsID})
	if !errors.Is(err, domainerrors.ErrInitializerNoReason) {
		t.Fatalf("expected the fixed no-reason error, got %v", err)
	}
}

func TestDistributorInstantiateRollsBackOnModuleFailure(t *testing.T) {
	boom := errors.New("deployment refused")
	fixture := newDistributorFixture(t, stubCodeModule{err: boom}, nil)
	ctx := context.Background()

	distributorsID, err := fixture.module.Commands.AddDistribution(ctx, commands.AddDistributionCommand{
		CodeID: fixture.codeID,
	})
	if err != nil {
		t.Fatalf("add distribution failed: %v", err)
	}

	_, err = fixture.module.Commands.Instantiate(ctx, commands.InstantiateCommand{DistributorsID: distributorsID})
	if !errors.Is(err, boom) {
		t.Fatalf("expected module failure verbatim, got %v", err)
	}
	if count := fixture.module.Store.InstanceCount(); count != 0 {
		t.Fatalf("expected no committed instances after module failure, got %d", count)
	}
}
