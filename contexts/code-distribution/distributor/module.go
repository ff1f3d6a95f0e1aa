package distributor

import (
	"log/slog"

	httpadapter "daedalus/contexts/code-distribution/distributor/adapters/http"
	"daedalus/contexts/code-distribution/distributor/adapters/memory"
	"daedalus/contexts/code-distribution/distributor/application/commands"
	"daedalus/contexts/code-distribution/distributor/application/queries"
	"daedalus/contexts/code-distribution/distributor/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Commands commands.UseCase
	Queries  queries.UseCase
	Store    *memory.Store
}

type Dependencies struct {
	Repository  ports.Repository
	CodeIndex   ports.CodeIndex
	Host        ports.ModuleHost
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	commandUseCase := commands.UseCase{
		Repository: deps.Repository,
		CodeIndex:  deps.CodeIndex,
		Host:       deps.Host,
		Clock:      deps.Clock,
		IDGen:      deps.IDGenerator,
		Logger:     deps.Logger,
	}
	queryUseCase := queries.UseCase{
		Repository: deps.Repository,
		Logger:     deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Commands: commandUseCase,
			Queries:  queryUseCase,
			Logger:   deps.Logger,
		},
		Commands: commandUseCase,
		Queries:  queryUseCase,
	}
}

func NewInMemoryModule(codeIndex ports.CodeIndex, host ports.ModuleHost, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository:  store,
		CodeIndex:   codeIndex,
		Host:        host,
		Clock:       store,
		IDGenerator: store,
		Logger:      logger,
	})
	module.Store = store
	return module
}
