package unit

import (
	"context"
	"testing"

	codeindex "daedalus/contexts/code-distribution/code-index"
	distributor "daedalus/contexts/code-distribution/distributor"
	"daedalus/contexts/code-distribution/distributor/adapters/runtime"
	"daedalus/contexts/code-distribution/distributor/ports"
	"daedalus/internal/shared/chain"
)

// stubCodeModule deploys a fixed number of instances through the scope.
type stubCodeModule struct {
	count   int
	name    string
	version string
	err     error
}

func (m stubCodeModule) Instantiate(
	ctx context.Context,
	scope ports.DeploymentScope,
	_ []byte,
) ([]chain.Address, string, string, error) {
	if m.err != nil {
		return nil, "", "", m.err
	}
	instances := make([]chain.Address, 0, m.count)
	for i := 0; i < m.count; i++ {
		address, err := scope.Deploy(ctx)
		if err != nil {
			return nil, "", "", err
		}
		instances = append(instances, address)
	}
	return instances, m.name, m.version, nil
}

// stubInitializer writes one config key per instance, or fails.
type stubInitializer struct {
	key   string
	value []byte
	fail  error
}

func (i stubInitializer) Initialize(
	ctx context.Context,
	scope ports.ConfigScope,
	instances []chain.Address,
	_ []byte,
) error {
	if i.fail != nil {
		return i.fail
	}
	for _, instance := range instances {
		if err := scope.Set(ctx, instance, i.key, i.value); err != nil {
			return err
		}
	}
	return nil
}

type distributorFixture struct {
	codeIndex     codeindex.Module
	host          *runtime.Host
	module        distributor.Module
	codeID        chain.Hash
	initializerID chain.Hash
}

// newDistributorFixture indexes one code artifact (plus an optional
// initializer artifact) and binds their hosted implementations.
func newDistributorFixture(
	t *testing.T,
	codeModule ports.CodeModule,
	initializer ports.Initializer,
) distributorFixture {
	t.Helper()
	ctx := context.Background()

	codeIndexModule := codeindex.NewInMemoryModule(nil)
	host := runtime.NewHost(nil)

	codeID := chain.FingerprintOf([]byte("token module bytecode"))
	codeAddress := chain.AddressFromHash(chain.Keccak256([]byte("token module deployment")))
	if _, _, err := codeIndexModule.Service.Register(ctx, codeID, codeAddress); err != nil {
		t.Fatalf("register code artifact failed: %v", err)
	}
	host.RegisterModule(codeAddress, codeModule)

	var initializerID chain.Hash
	if initializer != nil {
		initializerID = chain.FingerprintOf([]byte("token initializer bytecode"))
		initializerAddress := chain.AddressFromHash(chain.Keccak256([]byte("token initializer deployment")))
		if _, _, err := codeIndexModule.Service.Register(ctx, initializerID, initializerAddress); err != nil {
			t.Fatalf("register initializer artifact failed: %v", err)
		}
		host.RegisterInitializer(initializerAddress, initializer)
	}

	return distributorFixture{
		codeIndex:     codeIndexModule,
		host:          host,
		module:        distributor.NewInMemoryModule(codeIndexModule.Service, host, nil),
		codeID:        codeID,
		initializerID: initializerID,
	}
}
