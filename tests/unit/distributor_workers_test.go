package unit

import (
	"context"
	"testing"

	"daedalus/contexts/code-distribution/distributor/application/commands"
	"daedalus/contexts/code-distribution/distributor/application/workers"

	contractsv1 "daedalus/contracts/gen/events/v1"
)

type capturePublisher struct {
	published []contractsv1.Envelope
	topics    []string
}

func (p *capturePublisher) Publish(_ context.Context, topic string, envelope contractsv1.Envelope) error {
	p.published = append(p.published, envelope)
	p.topics = append(p.topics, topic)
	return nil
}

func TestDistributorOutboxRelayPublishesAndMarks(t *testing.T) {
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

	publisher := &capturePublisher{}
	relay := workers.OutboxRelay{
		Outbox:    fixture.module.Store,
		Publisher: publisher,
		Clock:     fixture.module.Store,
		BatchSize: 10,
	}
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}

	if len(publisher.published) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(publisher.published))
	}
	if publisher.topics[0] != "distribution.added" || publisher.topics[1] != "distribution.instantiated" {
		t.Fatalf("unexpected topics %v", publisher.topics)
	}
	for _, event := range publisher.published {
		if event.SourceService != "distributor" {
			t.Fatalf("expected distributor source service, got %q", event.SourceService)
		}
		if event.PartitionKey != distributorsID.Hex() {
			t.Fatalf("expected partition key %s, got %s", distributorsID.Hex(), event.PartitionKey)
		}
	}

	pending, err := fixture.module.Store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending outbox failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected all rows marked published, %d still pending", len(pending))
	}
}
