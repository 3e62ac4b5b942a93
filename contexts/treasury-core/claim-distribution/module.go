package claimdistribution

import (
	"log/slog"
	"time"

	httpadapter "midas/contexts/treasury-core/claim-distribution/adapters/http"
	"midas/contexts/treasury-core/claim-distribution/adapters/memory"
	"midas/contexts/treasury-core/claim-distribution/application/commands"
	"midas/contexts/treasury-core/claim-distribution/application/queries"
	"midas/contexts/treasury-core/claim-distribution/application/workers"
	"midas/contexts/treasury-core/claim-distribution/ports"
)

type Module struct {
	Commands    commands.UseCase
	Queries     queries.UseCase
	Handler     httpadapter.Handler
	OutboxRelay workers.OutboxRelay
	Store       *memory.Store
}

type Dependencies struct {
	Repository ports.Repository
	Roster     ports.TokenRoster
	Volume     ports.VolumeSource
	Payments   ports.PaymentExecutor
	Addresses  ports.AddressValidator
	Outbox     ports.OutboxWriter
	OutboxRepo ports.OutboxRepository
	Publisher  ports.EventPublisher
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger

	SubmitterShare    float64
	DustThreshold     uint64
	MinClaimAmount    uint64
	InterPaymentDelay time.Duration
	VolumeSourceTag   string
}

func NewModule(deps Dependencies) Module {
	module := Module{
		Commands: commands.UseCase{
			Repository:        deps.Repository,
			Roster:            deps.Roster,
			Volume:            deps.Volume,
			Payments:          deps.Payments,
			Addresses:         deps.Addresses,
			Outbox:            deps.Outbox,
			Clock:             deps.Clock,
			IDGen:             deps.IDGen,
			Logger:            deps.Logger,
			SubmitterShare:    deps.SubmitterShare,
			DustThreshold:     deps.DustThreshold,
			MinClaimAmount:    deps.MinClaimAmount,
			InterPaymentDelay: deps.InterPaymentDelay,
			VolumeSourceTag:   deps.VolumeSourceTag,
		},
		Queries: queries.UseCase{
			Repository: deps.Repository,
		},
		OutboxRelay: workers.OutboxRelay{
			Outbox:    deps.OutboxRepo,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
	}
	module.Handler = httpadapter.Handler{
		Commands: module.Commands,
		Queries:  module.Queries,
		Logger:   deps.Logger,
	}
	return module
}

func NewInMemoryModule(deps Dependencies) Module {
	store := memory.NewStore()
	deps.Repository = store
	deps.Outbox = store
	deps.OutboxRepo = store
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
