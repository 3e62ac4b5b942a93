package feeclaimer

import (
	"log/slog"

	httpadapter "midas/contexts/treasury-core/fee-claimer/adapters/http"
	"midas/contexts/treasury-core/fee-claimer/adapters/memory"
	"midas/contexts/treasury-core/fee-claimer/application"
	"midas/contexts/treasury-core/fee-claimer/ports"
)

type Module struct {
	Service *application.Service
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Wallets     ports.WalletStore
	Roster      ports.Roster
	Claims      ports.ClaimSource
	Ledger      ports.LedgerGateway
	Vault       ports.KeyVault
	Distributor ports.Distributor
	Audit       ports.AuditTrail
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger

	MasterAddress    string
	MasterSeed       []byte
	FeeBuffer        uint64
	SweepNetworkFee  uint64
	MinNetRevenue    uint64
	EphemeralWallets bool
}

func NewModule(deps Dependencies) Module {
	module := Module{
		Service: &application.Service{
			Wallets:          deps.Wallets,
			Roster:           deps.Roster,
			Claims:           deps.Claims,
			Ledger:           deps.Ledger,
			Vault:            deps.Vault,
			Distributor:      deps.Distributor,
			Audit:            deps.Audit,
			Clock:            deps.Clock,
			IDGen:            deps.IDGen,
			Logger:           deps.Logger,
			MasterAddress:    deps.MasterAddress,
			MasterSeed:       deps.MasterSeed,
			FeeBuffer:        deps.FeeBuffer,
			SweepNetworkFee:  deps.SweepNetworkFee,
			MinNetRevenue:    deps.MinNetRevenue,
			EphemeralWallets: deps.EphemeralWallets,
		},
	}
	module.Handler = httpadapter.Handler{
		Service: module.Service,
		Logger:  deps.Logger,
	}
	return module
}

func NewInMemoryModule(deps Dependencies) Module {
	store := memory.NewStore()
	deps.Wallets = store
	if deps.Clock == nil {
		deps.Clock = memory.SystemClock{}
	}
	if deps.IDGen == nil {
		deps.IDGen = memory.UUIDGenerator{}
	}
	module := NewModule(deps)
	module.Store = store
	return module
}
