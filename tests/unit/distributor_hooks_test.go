package unit

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"daedalus/contexts/code-distribution/distributor/application/commands"
	domainerrors "daedalus/contexts/code-distribution/distributor/domain/errors"
	"daedalus/contexts/code-distribution/distributor/ports"
	"daedalus/internal/shared/chain"
)

func instantiateFixtureDistribution(t *testing.T, fixture distributorFixture) (chain.Hash, []chain.Address) {
	t.Helper()
	ctx := context.Background()

	distributorsID, err := fixture.module.Commands.AddDistribution(ctx, commands.AddDistributionCommand{
		CodeID: fixture.codeID,
	})
	if err != nil {
		t.Fatalf("add distribution failed: %v", err)
	}
	result, err := fixture.module.Commands.Instantiate(ctx, commands.InstantiateCommand{DistributorsID: distributorsID})
	if err != nil {
		t.Fatalf("instantiate failed: %v", err)
	}
	return distributorsID, result.Instances
}

func TestBeforeCallAdmitsActiveInstance(t *testing.T) {
	fixture := newDistributorFixture(t, stubCodeModule{count: 1, name: "token", version: "1.0.0"}, nil)
	distributorsID, instances := instantiateFixtureDistribution(t, fixture)

	callContext, err := fixture.module.Queries.BeforeCall(context.Background(), ports.CallInput{
		Instance: instances[0],
		Caller:   instances[0],
	})
	if err != nil {
		t.Fatalf("before call failed: %v", err)
	}
	if !bytes.Equal(callContext, distributorsID[:]) {
		t.Fatalf("expected the call context to carry the distribution id")
	}
}

func TestBeforeCallRejectsNonInstance(t *testing.T) {
	fixture := newDistributorFixture(t, stubCodeModule{count: 1, name: "token", version: "1.0.0"}, nil)
	instantiateFixtureDistribution(t, fixture)

	stranger := chain.AddressFromHash(chain.Keccak256([]byte("outsider")))
	_, err := fixture.module.Queries.BeforeCall(context.Background(), ports.CallInput{
		Instance: stranger,
		Caller:   stranger,
	})
	if !errors.Is(err, domainerrors.ErrInvalidInstance) {
		t.Fatalf("expected admission rejection for non-instance, got %v", err)
	}
}

func TestBeforeCallRejectsTargetFromOtherOperation(t *testing.T) {
	fixture := newDistributorFixture(t, stubCodeModule{count: 1, name: "token", version: "1.0.0"}, nil)
	distributorsID, first := instantiateFixtureDistribution(t, fixture)

	second, err := fixture.module.Commands.Instantiate(context.Background(), commands.InstantiateCommand{
		DistributorsID: distributorsID,
	})
	if err != nil {
		t.Fatalf("second instantiate failed: %v", err)
	}

	// Instances from different operations carry different instance ids.
	_, err = fixture.module.Queries.BeforeCall(context.Background(), ports.CallInput{
		Config:   ports.CallConfig{Target: second.Instances[0]},
		Instance: first[0],
		Caller:   first[0],
	})
	if !errors.Is(err, domainerrors.ErrInvalidInstance) {
		t.Fatalf("expected cross-operation target rejection, got %v", err)
	}
}

func TestBeforeCallRejectsAfterDistributionRemoved(t *testing.T) {
	fixture := newDistributorFixture(t, stubCodeModule{count: 1, name: "token", version: "1.0.0"}, nil)
	distributorsID, instances := instantiateFixtureDistribution(t, fixture)
	ctx := context.Background()

	if err := fixture.module.Commands.RemoveDistribution(ctx, commands.RemoveDistributionCommand{
		DistributorsID: distributorsID,
	}); err != nil {
		t.Fatalf("remove distribution failed: %v", err)
	}

	_, err := fixture.module.Queries.BeforeCall(ctx, ports.CallInput{
		Instance: instances[0],
		Caller:   instances[0],
	})
	if !errors.Is(err, domainerrors.ErrInvalidInstance) {
		t.Fatalf("expected rejection once the distribution is removed, got %v", err)
	}
}

func TestAfterCallPassesForRemovedDistribution(t *testing.T) {
	fixture := newDistributorFixture(t, stubCodeModule{count: 1, name: "token", version: "1.0.0"}, nil)
	distributorsID, instances := instantiateFixtureDistribution(t, fixture)
	ctx := context.Background()

	if err := fixture.module.Commands.RemoveDistribution(ctx, commands.RemoveDistributionCommand{
		DistributorsID: distributorsID,
	}); err != nil {
		t.Fatalf("remove distribution failed: %v", err)
	}

	// The closing bracket only checks identity under a still-active
	// distribution, so removal mid-call does not strand the caller.
	if err := fixture.module.Queries.AfterCall(ctx, ports.CallInput{
		Instance: instances[0],
		Caller:   instances[0],
	}, distributorsID[:]); err != nil {
		t.Fatalf("expected after call to pass for removed distribution, got %v", err)
	}
}

func TestAfterCallRejectsTargetMismatchWhileActive(t *testing.T) {
	fixture := newDistributorFixture(t, stubCodeModule{count: 1, name: "token", version: "1.0.0"}, nil)
	distributorsID, first := instantiateFixtureDistribution(t, fixture)
	ctx := context.Background()

	second, err := fixture.module.Commands.Instantiate(ctx, commands.InstantiateCommand{
		DistributorsID: distributorsID,
	})
	if err != nil {
		t.Fatalf("second instantiate failed: %v", err)
	}

	err = fixture.module.Queries.AfterCall(ctx, ports.CallInput{
		Config:   ports.CallConfig{Target: second.Instances[0]},
		Instance: first[0],
		Caller:   first[0],
	}, nil)
	if !errors.Is(err, domainerrors.ErrInvalidInstance) {
		t.Fatalf("expected after call mismatch rejection, got %v", err)
	}
}

func TestInstanceRecordsSurviveRemoval(t *testing.T) {
	fixture := newDistributorFixture(t, stubCodeModule{count: 1, name: "token", version: "1.0.0"}, nil)
	distributorsID, instances := instantiateFixtureDistribution(t, fixture)
	ctx := context.Background()

	if err := fixture.module.Commands.RemoveDistribution(ctx, commands.RemoveDistributionCommand{
		DistributorsID: distributorsID,
	}); err != nil {
		t.Fatalf("remove distribution failed: %v", err)
	}

	record, err := fixture.module.Queries.GetInstance(ctx, instances[0])
	if err != nil {
		t.Fatalf("expected instance record to survive removal: %v", err)
	}
	if record.DistributorsID != distributorsID {
		t.Fatalf("instance record lost its distribution id")
	}
}
