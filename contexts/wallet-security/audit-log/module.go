package auditlog

import (
	"log/slog"

	"midas/contexts/wallet-security/audit-log/adapters/memory"
	"midas/contexts/wallet-security/audit-log/application"
	"midas/contexts/wallet-security/audit-log/ports"
)

type Module struct {
	Service application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Repository ports.Repository
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Service: application.Service{
			Repo:   deps.Repository,
			Clock:  deps.Clock,
			IDGen:  deps.IDGen,
			Logger: deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository: store,
		Clock:      memory.SystemClock{},
		IDGen:      memory.UUIDGenerator{},
		Logger:     logger,
	})
	module.Store = store
	return module
}
