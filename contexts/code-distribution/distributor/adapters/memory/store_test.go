package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"daedalus/contexts/code-distribution/distributor/domain/entities"
	domainerrors "daedalus/contexts/code-distribution/distributor/domain/errors"
	"daedalus/contexts/code-distribution/distributor/ports"
	"daedalus/internal/shared/chain"
)

func TestConcurrentTransactionsMintDistinctInstanceIDs(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	const operations = 8

	ids := make(chan uint64, operations)
	var wg sync.WaitGroup
	for i := 0; i < operations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Atomically(ctx, func(tx ports.RegistryTx) error {
				id, err := tx.NextInstanceID(ctx)
				if err != nil {
					return err
				}
				time.Sleep(time.Millisecond)
				ids <- id
				return nil
			})
			if err != nil {
				t.Errorf("transaction failed: %v", err)
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool, operations)
	for id := range ids {
		if seen[id] {
			t.Fatalf("instance id %d assigned to two operations", id)
		}
		seen[id] = true
	}
	if count := store.InstanceCount(); count != operations {
		t.Fatalf("expected committed counter %d, got %d", operations, count)
	}
}

func TestConcurrentAddsOfSamePairAdmitExactlyOne(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	component := entities.DistributionComponent{
		DistributorsID: chain.Keccak256([]byte("contested pair")),
		CodeID:         chain.FingerprintOf([]byte("code")),
		AddedAt:        time.Now().UTC(),
	}

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.Atomically(ctx, func(tx ports.RegistryTx) error {
				if err := tx.AddComponent(ctx, component); err != nil {
					return err
				}
				time.Sleep(time.Millisecond)
				return nil
			})
		}()
	}
	wg.Wait()
	close(results)

	var admitted, rejected int
	for err := range results {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, domainerrors.ErrDistributionExists):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if admitted != 1 || rejected != 1 {
		t.Fatalf("expected exactly one admitted add, got %d admitted / %d rejected", admitted, rejected)
	}
}

func TestFailedTransactionLeavesCommittedStateUntouched(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	boom := errors.New("abort")

	err := store.Atomically(ctx, func(tx ports.RegistryTx) error {
		if _, err := tx.NextInstanceID(ctx); err != nil {
			return err
		}
		if err := tx.AddComponent(ctx, entities.DistributionComponent{
			DistributorsID: chain.Keccak256([]byte("doomed")),
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the body error, got %v", err)
	}

	if count := store.InstanceCount(); count != 0 {
		t.Fatalf("expected counter untouched after abort, got %d", count)
	}
	active, err := store.HasDistribution(ctx, chain.Keccak256([]byte("doomed")))
	if err != nil {
		t.Fatalf("has distribution failed: %v", err)
	}
	if active {
		t.Fatalf("aborted component leaked into committed state")
	}
}
