package unit

import (
	"bytes"
	"context"
	"testing"

	"daedalus/contexts/code-distribution/distributor/application/commands"
	"daedalus/internal/shared/chain"
)

func TestDistributorAddAndInstantiateFlow(t *testing.T) {
	fixture := newDistributorFixture(t,
		stubCodeModule{count: 2, name: "token", version: "1.0.0"},
		stubInitializer{key: "symbol", value: []byte("TOK")},
	)
	ctx := context.Background()

	distributorsID, err := fixture.module.Commands.AddDistribution(ctx, commands.AddDistributionCommand{
		CodeID:        fixture.codeID,
		InitializerID: fixture.initializerID,
	})
	if err != nil {
		t.Fatalf("add distribution failed: %v", err)
	}
	if distributorsID != chain.DeriveDistributorsID(fixture.codeID, fixture.initializerID) {
		t.Fatalf("distributors id is not derived from the code/initializer pair")
	}

	result, err := fixture.module.Commands.Instantiate(ctx, commands.InstantiateCommand{
		DistributorsID: distributorsID,
		Args:           []byte("init args"),
	})
	if err != nil {
		t.Fatalf("instantiate failed: %v", err)
	}
	if result.InstanceID == 0 {
		t.Fatalf("expected a non-zero instance id")
	}
	if len(result.Instances) != 2 {
		t.Fatalf("expected 2 instances, got %d", len(result.Instances))
	}
	if result.Name != "token" || result.Version != "1.0.0" {
		t.Fatalf("unexpected module identity %q %q", result.Name, result.Version)
	}

	for _, instance := range result.Instances {
		record, err := fixture.module.Queries.GetInstance(ctx, instance)
		if err != nil {
			t.Fatalf("get instance record failed: %v", err)
		}
		if record.InstanceID != result.InstanceID {
			t.Fatalf("expected instance id %d, got %d", result.InstanceID, record.InstanceID)
		}
		if record.DistributorsID != distributorsID {
			t.Fatalf("instance record points at wrong distribution")
		}
		value, ok := fixture.module.Store.InstanceConfig(instance, "symbol")
		if !ok || !bytes.Equal(value, []byte("TOK")) {
			t.Fatalf("expected initializer config to be committed for %s", instance.Hex())
		}
	}
}

func TestDistributorInstantiateAssignsFreshInstanceIDs(t *testing.T) {
	fixture := newDistributorFixture(t, stubCodeModule{count: 1, name: "vault", version: "2.1.0"}, nil)
	ctx := context.Background()

	distributorsID, err := fixture.module.Commands.AddDistribution(ctx, commands.AddDistributionCommand{
		CodeID: fixture.codeID,
	})
	if err != nil {
		t.Fatalf("add distribution failed: %v", err)
	}

	first, err := fixture.module.Commands.Instantiate(ctx, commands.InstantiateCommand{DistributorsID: distributorsID})
	if err != nil {
		t.Fatalf("first instantiate failed: %v", err)
	}
	second, err := fixture.module.Commands.Instantiate(ctx, commands.InstantiateCommand{DistributorsID: distributorsID})
	if err != nil {
		t.Fatalf("second instantiate failed: %v", err)
	}

	if first.InstanceID == second.InstanceID {
		t.Fatalf("expected distinct instance ids, both were %d", first.InstanceID)
	}
	if first.Instances[0] == second.Instances[0] {
		t.Fatalf("expected distinct instance addresses across operations")
	}
}

func TestDistributorInstantiateWithoutInitializerSkipsConfig(t *testing.T) {
	fixture := newDistributorFixture(t, stubCodeModule{count: 1, name: "plain", version: "0.1.0"}, nil)
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
	if _, ok := fixture.module.Store.InstanceConfig(result.Instances[0], "symbol"); ok {
		t.Fatalf("expected no config writes without an initializer")
	}
}

func TestDistributorListAndGetDistribution(t *testing.T) {
	fixture := newDistributorFixture(t, stubCodeModule{count: 1, name: "token", version: "1.0.0"}, nil)
	ctx := context.Background()

	distributorsID, err := fixture.module.Commands.AddDistribution(ctx, commands.AddDistributionCommand{
		CodeID: fixture.codeID,
	})
	if err != nil {
		t.Fatalf("add distribution failed: %v", err)
	}

	ids, err := fixture.module.Queries.GetDistributions(ctx)
	if err != nil {
		t.Fatalf("list distributions failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != distributorsID {
		t.Fatalf("expected exactly the added distribution in the listing")
	}

	component, err := fixture.module.Queries.GetDistributionComponent(ctx, distributorsID)
	if err != nil {
		t.Fatalf("get distribution failed: %v", err)
	}
	if component.CodeID != fixture.codeID {
		t.Fatalf("component carries wrong code id")
	}
	if !component.InitializerID.IsZero() || !component.Initializer.IsZero() {
		t.Fatalf("expected an initializer-free component")
	}
}

func TestDistributorOutboxCarriesLifecycleEvents(t *testing.T) {
	fixture := newDistributorFixture(t, stubCodeModule{count: 1, name: "token", version: "1.0.0"}, nil)
	ctx := context.Background()

	distributorsID, err := fixture.module.Commands.AddDistribution(ctx, commands.AddDistributionCommand{
		CodeID: fixture.codeID,
	})
	if err != nil {
		t.Fatalf("add distribution failed: %v", err)
	}
	if _, err := fixture.module.Commands.Instantiate(ctx, commands.InstantiateCommand{DistributorsID: distributorsID}); err != nil {
		t.Fatalf("instantiate failed: %v", err)
	}
	if err := fixture.module.Commands.RemoveDistribution(ctx, commands.RemoveDistributionCommand{DistributorsID: distributorsID}); err != nil {
		t.Fatalf("remove distribution failed: %v", err)
	}

	pending, err := fixture.module.Store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending outbox failed: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 outbox rows, got %d", len(pending))
	}
	types := []string{pending[0].EventType, pending[1].EventType, pending[2].EventType}
	expected := []string{"distribution.added", "distribution.instantiated", "distribution.removed"}
	for i, eventType := range expected {
		if types[i] != eventType {
			t.Fatalf("expected event %q at position %d, got %q", eventType, i, types[i])
		}
	}
}
