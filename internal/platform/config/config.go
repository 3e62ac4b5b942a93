package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string

	LedgerRPCURL string
	VolumeAPIURL string
	ClaimAPIURL  string
	RosterAPIURL string

	// Master wallet key material: base64 of salt||nonce||ciphertext (see
	// platform/ledger keycrypt) plus the passphrase used to open it and
	// every ephemeral wallet key.
	MasterWalletKey  string
	WalletPassphrase string

	SubmitterShare    float64
	DustThreshold     uint64
	MinClaimAmount    uint64
	MinNetRevenue     uint64
	FeeBuffer         uint64
	SweepNetworkFee   uint64
	InterPaymentDelay time.Duration

	PerTransactionCap uint64
	DailyOutflowCap   uint64
	SendAllowlist     []string

	ClaimCycleCron    string
	EphemeralWallets  bool
	VolumeRequestRate float64
	ClaimRequestRate  float64
}

func Load() (Config, error) {
	// Best effort; production supplies real env vars.
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "midas"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var allowlist []string
	for _, value := range strings.Split(os.Getenv("SEND_ALLOWLIST"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			allowlist = append(allowlist, value)
		}
	}

	return Config{
		ServiceName: service,
		HTTPPort:    port,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		LedgerRPCURL: envString("LEDGER_RPC_URL", "http://localhost:8899"),
		VolumeAPIURL: envString("VOLUME_API_URL", ""),
		ClaimAPIURL:  envString("CLAIM_API_URL", ""),
		RosterAPIURL: envString("ROSTER_API_URL", ""),

		MasterWalletKey:  os.Getenv("MASTER_WALLET_KEY"),
		WalletPassphrase: os.Getenv("WALLET_PASSPHRASE"),

		SubmitterShare:    envFloat("SUBMITTER_SHARE", 0.5),
		DustThreshold:     envUint64("DUST_THRESHOLD", 10_000),
		MinClaimAmount:    envUint64("MIN_CLAIM_AMOUNT", 100_000),
		MinNetRevenue:     envUint64("MIN_NET_REVENUE", 100_000),
		FeeBuffer:         envUint64("EPHEMERAL_FEE_BUFFER", 2_000_000),
		SweepNetworkFee:   envUint64("SWEEP_NETWORK_FEE", 5_000),
		InterPaymentDelay: envDuration("INTER_PAYMENT_DELAY", 500*time.Millisecond),

		PerTransactionCap: envUint64("PER_TX_CAP", 1_000_000_000),
		DailyOutflowCap:   envUint64("DAILY_OUTFLOW_CAP", 5_000_000_000),
		SendAllowlist:     allowlist,

		ClaimCycleCron:    envString("CLAIM_CYCLE_CRON", "0 */30 * * * *"),
		EphemeralWallets:  envBool("EPHEMERAL_WALLETS", false),
		VolumeRequestRate: envFloat("VOLUME_REQUEST_RATE", 4),
		ClaimRequestRate:  envFloat("CLAIM_REQUEST_RATE", 2),
	}, nil
}

func envString(name string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envUint64(name string, fallback uint64) uint64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return value
}

func envFloat(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
