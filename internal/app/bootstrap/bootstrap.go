package bootstrap

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	claimdistribution "midas/contexts/treasury-core/claim-distribution"
	distpostgres "midas/contexts/treasury-core/claim-distribution/adapters/postgres"
	"midas/contexts/treasury-core/claim-distribution/adapters/roster"
	"midas/contexts/treasury-core/claim-distribution/adapters/volume"
	distcommands "midas/contexts/treasury-core/claim-distribution/application/commands"
	distworkers "midas/contexts/treasury-core/claim-distribution/application/workers"
	disterrors "midas/contexts/treasury-core/claim-distribution/domain/errors"
	distports "midas/contexts/treasury-core/claim-distribution/ports"
	feeclaimer "midas/contexts/treasury-core/fee-claimer"
	"midas/contexts/treasury-core/fee-claimer/adapters/claimapi"
	"midas/contexts/treasury-core/fee-claimer/adapters/ledgergw"
	claimerpostgres "midas/contexts/treasury-core/fee-claimer/adapters/postgres"
	claimerworkers "midas/contexts/treasury-core/fee-claimer/application/workers"
	claimerports "midas/contexts/treasury-core/fee-claimer/ports"
	auditlog "midas/contexts/wallet-security/audit-log"
	auditpostgres "midas/contexts/wallet-security/audit-log/adapters/postgres"
	auditentities "midas/contexts/wallet-security/audit-log/domain/entities"
	auditports "midas/contexts/wallet-security/audit-log/ports"
	guardapp "midas/contexts/wallet-security/wallet-guardrails/application"
	guardports "midas/contexts/wallet-security/wallet-guardrails/ports"
	"midas/internal/platform/config"
	"midas/internal/platform/db"
	"midas/internal/platform/httpserver"
	"midas/internal/platform/ledger"
	"midas/internal/platform/messaging"

	"github.com/robfig/cron/v3"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	scheduler    *cron.Cron
	bus          *messaging.Bus
	outboxRelay  distworkers.OutboxRelay
	completion   distworkers.CompletionConsumer
	pollInterval time.Duration
	logger       *slog.Logger
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

	mods, err := buildModules(cfg, pg, nil, logger)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	server := httpserver.New(mods.distribution, mods.claimer, mods.audit, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
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

	bus := messaging.NewBus(logger)
	mods, err := buildModules(cfg, pg, bus, logger)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	// The cron expression carries a seconds field.
	scheduler := cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	_, err = scheduler.AddJob(cfg.ClaimCycleCron, claimerworkers.ClaimCycleJob{
		Service: mods.claimer.Service,
		Logger:  logger,
	})
	if err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("schedule claim cycle %q: %w", cfg.ClaimCycleCron, err)
	}

	return &WorkerApp{
		postgres:     pg,
		scheduler:    scheduler,
		bus:          bus,
		outboxRelay:  mods.distribution.OutboxRelay,
		completion:   distworkers.CompletionConsumer{Logger: logger},
		pollInterval: 2 * time.Second,
		logger:       logger,
	}, nil
}

// modules is the wired slice of the system both processes share.
type modules struct {
	audit        auditlog.Module
	distribution claimdistribution.Module
	claimer      feeclaimer.Module
}

func buildModules(
	cfg config.Config,
	pg *db.Postgres,
	publisher distports.EventPublisher,
	logger *slog.Logger,
) (modules, error) {
	masterKey, err := loadMasterKeypair(cfg)
	if err != nil {
		return modules{}, err
	}

	ledgerClient := ledger.NewClient(cfg.LedgerRPCURL, logger, ledger.Options{})

	auditRepo := auditpostgres.NewRepository(pg.DB, logger)
	auditModule := auditlog.NewModule(auditlog.Dependencies{
		Repository: auditRepo,
		Clock:      auditpostgres.SystemClock{},
		IDGen:      auditpostgres.UUIDGenerator{},
		Logger:     logger,
	})

	guard := guardapp.NewService(
		guardports.Config{
			PerTransactionCap: cfg.PerTransactionCap,
			DailyOutflowCap:   cfg.DailyOutflowCap,
			Allowlist:         cfg.SendAllowlist,
		},
		auditModule.Service,
		masterSender{client: ledgerClient, key: masterKey},
		ledgerAddresses{},
		logger,
	)

	rosterClient := roster.NewClient(cfg.RosterAPIURL, logger)
	volumeClient := volume.NewClient(cfg.VolumeAPIURL, cfg.VolumeRequestRate, logger)

	distRepo := distpostgres.NewRepository(pg.DB, logger)
	distModule := claimdistribution.NewModule(claimdistribution.Dependencies{
		Repository:        distRepo,
		Roster:            rosterClient,
		Volume:            volumeClient,
		Payments:          guardedPayments{guard: guard},
		Addresses:         ledgerAddresses{},
		Outbox:            distRepo,
		OutboxRepo:        distRepo,
		Publisher:         publisher,
		Clock:             distpostgres.SystemClock{},
		IDGen:             distpostgres.UUIDGenerator{},
		Logger:            logger,
		SubmitterShare:    cfg.SubmitterShare,
		DustThreshold:     cfg.DustThreshold,
		MinClaimAmount:    cfg.MinClaimAmount,
		InterPaymentDelay: cfg.InterPaymentDelay,
		VolumeSourceTag:   "volume-api",
	})

	claimerRepo := claimerpostgres.NewRepository(pg.DB, logger)
	claimerModule := feeclaimer.NewModule(feeclaimer.Dependencies{
		Wallets:          claimerRepo,
		Roster:           claimerRoster{tokens: rosterClient},
		Claims:           claimapi.NewClient(cfg.ClaimAPIURL, cfg.ClaimRequestRate, logger),
		Ledger:           ledgergw.NewGateway(ledgerClient),
		Vault:            ledgergw.SeedVault{Passphrase: cfg.WalletPassphrase},
		Distributor:      distributionHandOff{commands: distModule.Commands},
		Audit:            claimerAuditTrail{audit: auditModule.Service},
		Clock:            claimerpostgres.SystemClock{},
		IDGen:            claimerpostgres.UUIDGenerator{},
		Logger:           logger,
		MasterAddress:    masterKey.Address(),
		MasterSeed:       masterKey.Seed(),
		FeeBuffer:        cfg.FeeBuffer,
		SweepNetworkFee:  cfg.SweepNetworkFee,
		MinNetRevenue:    cfg.MinNetRevenue,
		EphemeralWallets: cfg.EphemeralWallets,
	})

	return modules{
		audit:        auditModule,
		distribution: distModule,
		claimer:      claimerModule,
	}, nil
}

func loadMasterKeypair(cfg config.Config) (ledger.Keypair, error) {
	if strings.TrimSpace(cfg.MasterWalletKey) == "" {
		return ledger.Keypair{}, errors.New("MASTER_WALLET_KEY is required")
	}
	if cfg.WalletPassphrase == "" {
		return ledger.Keypair{}, errors.New("WALLET_PASSPHRASE is required")
	}
	blob, err := base64.StdEncoding.DecodeString(cfg.MasterWalletKey)
	if err != nil {
		return ledger.Keypair{}, fmt.Errorf("decode master wallet key: %w", err)
	}
	seed, err := ledger.DecryptKeySeed(blob, cfg.WalletPassphrase)
	if err != nil {
		return ledger.Keypair{}, fmt.Errorf("open master wallet key: %w", err)
	}
	return ledger.KeypairFromSeed(seed)
}

// masterSender signs guarded transfers with the master wallet key.
type masterSender struct {
	client *ledger.Client
	key    ledger.Keypair
}

func (s masterSender) Send(ctx context.Context, destination string, amount uint64) (string, error) {
	return s.client.Transfer(ctx, s.key, destination, amount)
}

type ledgerAddresses struct{}

func (ledgerAddresses) ValidateAddress(address string) bool {
	return ledger.ValidateAddress(address)
}

// guardedPayments routes distribution payouts through the wallet guardrails.
type guardedPayments struct {
	guard *guardapp.Service
}

func (p guardedPayments) ExecuteSend(ctx context.Context, req distports.PaymentRequest) (string, error) {
	return p.guard.ExecuteSend(ctx, guardports.SendRequest{
		Destination: req.Destination,
		Amount:      req.Amount,
		Operation:   auditentities.OperationSend,
		Caller:      req.Caller,
		Metadata:    req.Metadata,
	})
}

// claimerRoster narrows the token roster to the fields the claimer needs.
type claimerRoster struct {
	tokens distports.TokenRoster
}

func (r claimerRoster) ListEligible(ctx context.Context) ([]claimerports.Recipient, error) {
	tokens, err := r.tokens.ListEligible(ctx)
	if err != nil {
		return nil, err
	}
	recipients := make([]claimerports.Recipient, 0, len(tokens))
	for _, token := range tokens {
		recipients = append(recipients, claimerports.Recipient{
			TokenID: token.ID,
			Ticker:  token.Ticker,
		})
	}
	return recipients, nil
}

// distributionHandOff feeds claimed revenue into the distribution pipeline.
// A batch that already exists for the claim transaction counts as done.
type distributionHandOff struct {
	commands distcommands.UseCase
}

func (d distributionHandOff) Distribute(ctx context.Context, externalTxID string, amount uint64) error {
	_, err := d.commands.Distribute(ctx, distcommands.DistributeCommand{
		ExternalTxID: externalTxID,
		TotalAmount:  amount,
	})
	if errors.Is(err, disterrors.ErrAlreadyProcessed) {
		return nil
	}
	return err
}

type claimerAuditTrail struct {
	audit guardports.AuditLedger
}

func (a claimerAuditTrail) Record(ctx context.Context, input claimerports.AuditInput) error {
	_, err := a.audit.Record(ctx, auditports.RecordInput{
		Operation:   auditentities.OperationKind(input.Operation),
		Amount:      input.Amount,
		Destination: input.Destination,
		TxID:        input.TxID,
		Caller:      "fee-claimer",
		Success:     input.Success,
		ErrorText:   input.ErrorText,
		Metadata:    input.Metadata,
	})
	return err
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
	w.bus.Subscribe(ctx, distcommands.EventTypeDistributionCompleted, w.completion.Handle)

	w.scheduler.Start()
	defer w.scheduler.Stop()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.outboxRelay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
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
