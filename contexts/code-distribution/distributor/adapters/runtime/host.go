package runtime

import (
	"context"
	"log/slog"
	"sync"

	domainerrors "daedalus/contexts/code-distribution/distributor/domain/errors"
	"daedalus/contexts/code-distribution/distributor/ports"
	"daedalus/internal/shared/chain"
)

// Host is an in-process module host. Deployed addresses resolve to Go
// implementations registered at wiring time, which stands in for an on-node
// execution environment during local runs and tests.
type Host struct {
	mu           sync.RWMutex
	modules      map[chain.Address]ports.CodeModule
	initializers map[chain.Address]ports.Initializer
	logger       *slog.Logger
}

func NewHost(logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		modules:      make(map[chain.Address]ports.CodeModule),
		initializers: make(map[chain.Address]ports.Initializer),
		logger:       logger,
	}
}

// RegisterModule binds a code address to its executable implementation.
// Re-registration replaces the previous binding.
func (h *Host) RegisterModule(address chain.Address, module ports.CodeModule) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.modules[address] = module
}

// RegisterInitializer binds an initializer address to its implementation.
func (h *Host) RegisterInitializer(address chain.Address, initializer ports.Initializer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.initializers[address] = initializer
}

func (h *Host) Module(_ context.Context, address chain.Address) (ports.CodeModule, error) {
	h.mu.RLock()
	module, ok := h.modules[address]
	h.mu.RUnlock()
	if !ok {
		h.logger.Warn("module host miss",
			"event", "distributor_host_module_miss",
			"module", "code-distribution/distributor",
			"layer", "adapter",
			"address", address.Hex(),
		)
		return nil, domainerrors.ErrModuleNotHosted
	}
	return module, nil
}

func (h *Host) Initializer(_ context.Context, address chain.Address) (ports.Initializer, error) {
	h.mu.RLock()
	initializer, ok := h.initializers[address]
	h.mu.RUnlock()
	if !ok {
		h.logger.Warn("initializer host miss",
			"event", "distributor_host_initializer_miss",
			"module", "code-distribution/distributor",
			"layer", "adapter",
			"address", address.Hex(),
		)
		return nil, domainerrors.ErrInitializerNotFound
	}
	return initializer, nil
}

var _ ports.ModuleHost = (*Host)(nil)
