package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	codeindex "daedalus/contexts/code-distribution/code-index"
	codeindexpostgres "daedalus/contexts/code-distribution/code-index/adapters/postgres"
	codeindexworkers "daedalus/contexts/code-distribution/code-index/application/workers"
	distributor "daedalus/contexts/code-distribution/distributor"
	distributorpostgres "daedalus/contexts/code-distribution/distributor/adapters/postgres"
	"daedalus/contexts/code-distribution/distributor/adapters/runtime"
	distributorworkers "daedalus/contexts/code-distribution/distributor/application/workers"
	"daedalus/internal/platform/config"
	"daedalus/internal/platform/db"
	"daedalus/internal/platform/httpserver"
	"daedalus/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	host     *runtime.Host
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres         *db.Postgres
	codeIndexRelay   codeindexworkers.OutboxRelay
	distributorRelay distributorworkers.OutboxRelay
	relayCodeIndex   bool
	relayDistributor bool
	pollInterval     time.Duration
	logger           *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	codeIndexRepo := codeindexpostgres.NewRepository(pg.DB, logger)
	codeIndexModule := codeindex.NewModule(codeindex.Dependencies{
		Repository:  codeIndexRepo,
		Outbox:      codeIndexRepo,
		Clock:       codeindexpostgres.SystemClock{},
		IDGenerator: codeindexpostgres.UUIDGenerator{},
		Logger:      logger,
	})

	host := runtime.NewHost(logger)
	distributorRepo := distributorpostgres.NewRepository(pg.DB, logger)
	distributorModule := distributor.NewModule(distributor.Dependencies{
		Repository:  distributorRepo,
		CodeIndex:   codeIndexModule.Service,
		Host:        host,
		Clock:       distributorpostgres.SystemClock{},
		IDGenerator: distributorpostgres.UUIDGenerator{},
		Logger:      logger,
	})

	server := httpserver.New(codeIndexModule, distributorModule, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		host:     host,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	codeIndexRepo := codeindexpostgres.NewRepository(pg.DB, logger)
	distributorRepo := distributorpostgres.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		codeIndexRelay: codeindexworkers.OutboxRelay{
			Outbox:    codeIndexRepo,
			Publisher: kafka,
			Clock:     codeindexpostgres.SystemClock{},
			BatchSize: cfg.OutboxRelayBatchSize,
			Logger:    logger,
		},
		distributorRelay: distributorworkers.OutboxRelay{
			Outbox:    distributorRepo,
			Publisher: kafka,
			Clock:     distributorpostgres.SystemClock{},
			BatchSize: cfg.OutboxRelayBatchSize,
			Logger:    logger,
		},
		relayCodeIndex:   cfg.EnableCodeIndexOutboxRelay,
		relayDistributor: cfg.EnableDistributorOutboxRelay,
		pollInterval:     cfg.OutboxRelayInterval,
		logger:           logger,
	}, nil
}

// Host exposes the in-process module host so embedding processes can bind
// executable implementations to deployed code addresses before serving.
func (a *APIApp) Host() *runtime.Host {
	return a.host
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"code_index_relay", w.relayCodeIndex,
		"distributor_relay", w.relayDistributor,
	)

	for {
		if w.relayCodeIndex {
			if err := w.codeIndexRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		if w.relayDistributor {
			if err := w.distributorRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
