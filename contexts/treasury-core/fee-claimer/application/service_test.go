package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"midas/contexts/treasury-core/fee-claimer/adapters/memory"
	"midas/contexts/treasury-core/fee-claimer/domain/entities"
	domainerrors "midas/contexts/treasury-core/fee-claimer/domain/errors"
	"midas/contexts/treasury-core/fee-claimer/ports"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type sequenceIDGen struct {
	next int
}

func (g *sequenceIDGen) NewID(_ context.Context) (string, error) {
	g.next++
	return fmt.Sprintf("wallet-%04d", g.next), nil
}

type fakeRoster struct {
	recipients []ports.Recipient
}

func (f fakeRoster) ListEligible(_ context.Context) ([]ports.Recipient, error) {
	return f.recipients, nil
}

type claimBehavior struct {
	amount uint64
	err    error
}

// fakeClaims encodes the claim transfer as "address|amount" so the fake
// ledger can credit the right wallet on submission.
type fakeClaims struct {
	perAddress map[string]claimBehavior
	fallback   claimBehavior
	calls      int
}

func (f *fakeClaims) BuildClaimTransaction(_ context.Context, walletAddress string) ([]byte, error) {
	f.calls++
	behavior, ok := f.perAddress[walletAddress]
	if !ok {
		behavior = f.fallback
	}
	if behavior.err != nil {
		return nil, behavior.err
	}
	return []byte(fmt.Sprintf("%s|%d", walletAddress, behavior.amount)), nil
}

type fakeLedger struct {
	balances    map[string]uint64
	addressFor  map[string]string
	walletSeq   int
	txSeq       int
	transferErr error
}

func newFakeLedger(masterAddress string, masterSeed []byte, masterBalance uint64) *fakeLedger {
	return &fakeLedger{
		balances:   map[string]uint64{masterAddress: masterBalance},
		addressFor: map[string]string{string(masterSeed): masterAddress},
	}
}

func (f *fakeLedger) Balance(_ context.Context, address string) (uint64, error) {
	return f.balances[address], nil
}

func (f *fakeLedger) NewWallet() (string, []byte, error) {
	f.walletSeq++
	address := fmt.Sprintf("ew-%d", f.walletSeq)
	seed := []byte(address + "-seed")
	f.addressFor[string(seed)] = address
	return address, seed, nil
}

func (f *fakeLedger) SubmitAndConfirm(_ context.Context, _ []byte, raw []byte) (string, error) {
	parts := strings.SplitN(string(raw), "|", 2)
	amount, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return "", err
	}
	f.balances[parts[0]] += amount
	f.txSeq++
	return fmt.Sprintf("claimtx-%04d", f.txSeq), nil
}

func (f *fakeLedger) Transfer(_ context.Context, seed []byte, destination string, amount uint64) (string, error) {
	if f.transferErr != nil {
		return "", f.transferErr
	}
	from := f.addressFor[string(seed)]
	if f.balances[from] < amount {
		return "", fmt.Errorf("insufficient balance in %s", from)
	}
	f.balances[from] -= amount
	f.balances[destination] += amount
	f.txSeq++
	return fmt.Sprintf("tx-%04d", f.txSeq), nil
}

type passthroughVault struct{}

func (passthroughVault) Encrypt(seed []byte) ([]byte, error) {
	return append([]byte("enc:"), seed...), nil
}

func (passthroughVault) Decrypt(blob []byte) ([]byte, error) {
	if !strings.HasPrefix(string(blob), "enc:") {
		return nil, errors.New("bad ciphertext")
	}
	return blob[4:], nil
}

type fakeDistributor struct {
	externalTxIDs []string
	amounts       []uint64
	err           error
}

func (f *fakeDistributor) Distribute(_ context.Context, externalTxID string, amount uint64) error {
	if f.err != nil {
		return f.err
	}
	f.externalTxIDs = append(f.externalTxIDs, externalTxID)
	f.amounts = append(f.amounts, amount)
	return nil
}

type fakeAudit struct {
	entries []ports.AuditInput
}

func (f *fakeAudit) Record(_ context.Context, input ports.AuditInput) error {
	f.entries = append(f.entries, input)
	return nil
}

const (
	masterAddress = "master-addr"
	masterBalance = 10_000
)

var masterSeed = []byte("master-seed")

type harness struct {
	service     *Service
	store       *memory.Store
	ledger      *fakeLedger
	claims      *fakeClaims
	distributor *fakeDistributor
	audit       *fakeAudit
}

func newHarness(recipients []ports.Recipient, ephemeral bool) harness {
	store := memory.NewStore()
	ledger := newFakeLedger(masterAddress, masterSeed, masterBalance)
	claims := &fakeClaims{perAddress: map[string]claimBehavior{}}
	distributor := &fakeDistributor{}
	audit := &fakeAudit{}
	service := &Service{
		Wallets:          store,
		Roster:           fakeRoster{recipients: recipients},
		Claims:           claims,
		Ledger:           ledger,
		Vault:            passthroughVault{},
		Distributor:      distributor,
		Audit:            audit,
		Clock:            fixedClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)},
		IDGen:            &sequenceIDGen{},
		MasterAddress:    masterAddress,
		MasterSeed:       masterSeed,
		FeeBuffer:        100,
		SweepNetworkFee:  10,
		MinNetRevenue:    1000,
		EphemeralWallets: ephemeral,
	}
	return harness{
		service:     service,
		store:       store,
		ledger:      ledger,
		claims:      claims,
		distributor: distributor,
		audit:       audit,
	}
}

func TestMasterClaimHandsOffRevenue(t *testing.T) {
	h := newHarness(nil, false)
	h.claims.fallback = claimBehavior{amount: 5000}

	summary, err := h.service.RunClaimCycle(context.Background())
	if err != nil {
		t.Fatalf("RunClaimCycle: %v", err)
	}
	if summary.Claimed != 1 || summary.Failed != 0 {
		t.Fatalf("claimed/failed = %d/%d", summary.Claimed, summary.Failed)
	}
	if summary.NetRevenue != 5000 {
		t.Fatalf("net revenue = %d, want 5000", summary.NetRevenue)
	}
	if !summary.Distributed {
		t.Fatal("revenue not handed off")
	}
	if len(h.distributor.externalTxIDs) != 1 || h.distributor.externalTxIDs[0] != summary.DistributionTxID {
		t.Fatalf("distributor calls = %v", h.distributor.externalTxIDs)
	}
	if h.distributor.amounts[0] != 5000 {
		t.Fatalf("distributed amount = %d", h.distributor.amounts[0])
	}

	watermark, err := h.store.GetWatermark(context.Background(), "master")
	if err != nil {
		t.Fatalf("GetWatermark: %v", err)
	}
	if watermark.LastOutcome != entities.OutcomeClaimed {
		t.Fatalf("watermark outcome = %s", watermark.LastOutcome)
	}

	var claimAudits int
	for _, entry := range h.audit.entries {
		if entry.Operation == "claim-fee" && entry.Success {
			claimAudits++
		}
	}
	if claimAudits != 1 {
		t.Fatalf("claim-fee audit entries = %d, want 1", claimAudits)
	}
}

func TestMasterNothingToClaimAdvancesWatermark(t *testing.T) {
	h := newHarness(nil, false)
	h.claims.fallback = claimBehavior{err: domainerrors.ErrNothingToClaim}

	summary, err := h.service.RunClaimCycle(context.Background())
	if err != nil {
		t.Fatalf("RunClaimCycle: %v", err)
	}
	if summary.NothingToClaim != 1 || summary.Failed != 0 {
		t.Fatalf("nothing/failed = %d/%d", summary.NothingToClaim, summary.Failed)
	}
	if summary.Distributed || len(h.distributor.externalTxIDs) != 0 {
		t.Fatal("empty claim must not distribute")
	}

	watermark, _ := h.store.GetWatermark(context.Background(), "master")
	if watermark.LastOutcome != entities.OutcomeNothingToClaim {
		t.Fatalf("watermark outcome = %s", watermark.LastOutcome)
	}
}

func TestMasterTransientErrorHoldsWatermark(t *testing.T) {
	h := newHarness(nil, false)
	h.claims.fallback = claimBehavior{err: errors.New("portal 503")}

	summary, err := h.service.RunClaimCycle(context.Background())
	if err != nil {
		t.Fatalf("RunClaimCycle: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("failed = %d, want 1", summary.Failed)
	}

	watermark, _ := h.store.GetWatermark(context.Background(), "master")
	if !watermark.LastClaimedAt.IsZero() {
		t.Fatalf("transient error advanced watermark: %+v", watermark)
	}
}

func TestEphemeralFullFlow(t *testing.T) {
	h := newHarness([]ports.Recipient{{TokenID: "token-a"}}, true)
	h.claims.fallback = claimBehavior{amount: 5000}

	summary, err := h.service.RunClaimCycle(context.Background())
	if err != nil {
		t.Fatalf("RunClaimCycle: %v", err)
	}
	if summary.Claimed != 1 || summary.NetRevenue != 5000 {
		t.Fatalf("claimed/net = %d/%d", summary.Claimed, summary.NetRevenue)
	}
	if !summary.Distributed {
		t.Fatal("revenue not handed off")
	}

	// Master funded 100, got back 5100-10 after the claim landed.
	wantMaster := uint64(masterBalance) - 100 + 100 + 5000 - 10
	if h.ledger.balances[masterAddress] != wantMaster {
		t.Fatalf("master balance = %d, want %d", h.ledger.balances[masterAddress], wantMaster)
	}

	wallets := h.store.Wallets()
	if len(wallets) != 1 {
		t.Fatalf("wallet count = %d", len(wallets))
	}
	if wallets[0].State != entities.WalletStateRetired {
		t.Fatalf("wallet state = %s, want retired", wallets[0].State)
	}
	if strings.HasPrefix(string(wallets[0].EncryptedSeed), "ew-") {
		t.Fatal("wallet seed persisted unencrypted")
	}
}

func TestEphemeralTransientFailureLeavesWalletStranded(t *testing.T) {
	h := newHarness([]ports.Recipient{{TokenID: "token-a"}}, true)
	h.claims.fallback = claimBehavior{err: errors.New("portal timeout")}

	summary, err := h.service.RunClaimCycle(context.Background())
	if err != nil {
		t.Fatalf("RunClaimCycle: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("failed = %d, want 1", summary.Failed)
	}
	watermark, _ := h.store.GetWatermark(context.Background(), "token-a")
	if !watermark.LastClaimedAt.IsZero() {
		t.Fatal("transient error advanced watermark")
	}
	stranded, err := h.store.ListStranded(context.Background())
	if err != nil {
		t.Fatalf("ListStranded: %v", err)
	}
	if len(stranded) != 1 || stranded[0].State != entities.WalletStateFunded {
		t.Fatalf("stranded wallets = %+v", stranded)
	}
	if !strings.Contains(stranded[0].LastError, "portal timeout") {
		t.Fatalf("stranded wallet LastError = %q, want the claim failure recorded", stranded[0].LastError)
	}

	// Next cycle sweeps the stranded buffer back and retries with a fresh
	// wallet, this time successfully.
	h.claims.fallback = claimBehavior{amount: 2000}
	second, err := h.service.RunClaimCycle(context.Background())
	if err != nil {
		t.Fatalf("second RunClaimCycle: %v", err)
	}
	if second.Claimed != 1 {
		t.Fatalf("second cycle claimed = %d, want 1", second.Claimed)
	}
	stranded, _ = h.store.ListStranded(context.Background())
	if len(stranded) != 0 {
		t.Fatalf("wallets still stranded after resume: %+v", stranded)
	}
	for _, wallet := range h.store.Wallets() {
		if wallet.State == entities.WalletStateRetired && wallet.LastError != "" {
			t.Fatalf("retired wallet keeps stale failure marker: %+v", wallet)
		}
	}
}

func TestNothingToClaimKeepsLastClaimTime(t *testing.T) {
	h := newHarness(nil, false)
	h.claims.fallback = claimBehavior{amount: 5000}

	if _, err := h.service.RunClaimCycle(context.Background()); err != nil {
		t.Fatalf("first RunClaimCycle: %v", err)
	}
	first, err := h.store.GetWatermark(context.Background(), "master")
	if err != nil {
		t.Fatalf("GetWatermark: %v", err)
	}
	if first.LastClaimedAt.IsZero() {
		t.Fatal("claim did not advance LastClaimedAt")
	}

	// An empty follow-up cycle refreshes the outcome but must not move
	// the time of the last actual claim.
	h.service.Clock = fixedClock{now: first.LastClaimedAt.Add(30 * time.Minute)}
	h.claims.fallback = claimBehavior{err: domainerrors.ErrNothingToClaim}
	if _, err := h.service.RunClaimCycle(context.Background()); err != nil {
		t.Fatalf("second RunClaimCycle: %v", err)
	}

	second, _ := h.store.GetWatermark(context.Background(), "master")
	if second.LastOutcome != entities.OutcomeNothingToClaim {
		t.Fatalf("outcome = %s, want nothing_to_claim", second.LastOutcome)
	}
	if !second.LastClaimedAt.Equal(first.LastClaimedAt) {
		t.Fatalf("LastClaimedAt moved from %v to %v on an empty claim", first.LastClaimedAt, second.LastClaimedAt)
	}
}

func TestRecipientFailureDoesNotAbortCycle(t *testing.T) {
	h := newHarness([]ports.Recipient{{TokenID: "token-a"}, {TokenID: "token-b"}}, true)
	h.claims.fallback = claimBehavior{amount: 3000}
	// The first wallet created this cycle belongs to token-a.
	h.claims.perAddress["ew-1"] = claimBehavior{err: errors.New("portal 502")}

	summary, err := h.service.RunClaimCycle(context.Background())
	if err != nil {
		t.Fatalf("RunClaimCycle: %v", err)
	}
	if summary.Processed != 2 || summary.Claimed != 1 || summary.Failed != 1 {
		t.Fatalf("processed/claimed/failed = %d/%d/%d", summary.Processed, summary.Claimed, summary.Failed)
	}
	if summary.NetRevenue != 3000 {
		t.Fatalf("net revenue = %d, want 3000", summary.NetRevenue)
	}
}

func TestBelowMinimumRevenueSkipsHandOff(t *testing.T) {
	h := newHarness(nil, false)
	h.claims.fallback = claimBehavior{amount: 500}

	summary, err := h.service.RunClaimCycle(context.Background())
	if err != nil {
		t.Fatalf("RunClaimCycle: %v", err)
	}
	if summary.NetRevenue != 500 {
		t.Fatalf("net revenue = %d", summary.NetRevenue)
	}
	if summary.Distributed || len(h.distributor.externalTxIDs) != 0 {
		t.Fatal("below-minimum revenue must not distribute")
	}
}

func TestCycleWithoutMasterKey(t *testing.T) {
	h := newHarness(nil, false)
	h.service.MasterSeed = nil

	_, err := h.service.RunClaimCycle(context.Background())
	if !errors.Is(err, domainerrors.ErrMasterKeyUnavailable) {
		t.Fatalf("err = %v, want ErrMasterKeyUnavailable", err)
	}
}
