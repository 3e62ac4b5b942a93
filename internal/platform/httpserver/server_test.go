package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	claimdistribution "midas/contexts/treasury-core/claim-distribution"
	distributionentities "midas/contexts/treasury-core/claim-distribution/domain/entities"
	distributionports "midas/contexts/treasury-core/claim-distribution/ports"
	feeclaimer "midas/contexts/treasury-core/fee-claimer"
	claimererrors "midas/contexts/treasury-core/fee-claimer/domain/errors"
	claimerports "midas/contexts/treasury-core/fee-claimer/ports"
	auditlog "midas/contexts/wallet-security/audit-log"
)

type stubRoster struct{}

func (stubRoster) ListEligible(_ context.Context) ([]distributionentities.Token, error) {
	return []distributionentities.Token{
		{ID: "token-a", Ticker: "AAA", PayoutAddress: "addr-a", Eligible: true},
		{ID: "token-b", Ticker: "BBB", PayoutAddress: "addr-b", Eligible: true},
	}, nil
}

type stubVolume struct{}

func (stubVolume) FetchWeights(
	_ context.Context,
	tokens []distributionentities.Token,
	previous map[string]uint64,
) ([]distributionports.TokenWeight, error) {
	weights := make([]distributionports.TokenWeight, 0, len(tokens))
	for i, token := range tokens {
		delta := uint64((i + 1) * 100)
		weights = append(weights, distributionports.TokenWeight{
			TokenID:  token.ID,
			Current:  previous[token.ID] + delta,
			Previous: previous[token.ID],
			Delta:    delta,
		})
	}
	return weights, nil
}

type stubPayments struct {
	sent int
}

func (p *stubPayments) ExecuteSend(_ context.Context, _ distributionports.PaymentRequest) (string, error) {
	p.sent++
	return fmt.Sprintf("tx-%04d", p.sent), nil
}

type stubAddresses struct{}

func (stubAddresses) ValidateAddress(_ string) bool { return true }

type stubClaimerRoster struct{}

func (stubClaimerRoster) ListEligible(_ context.Context) ([]claimerports.Recipient, error) {
	return nil, nil
}

type stubClaims struct{}

func (stubClaims) BuildClaimTransaction(_ context.Context, _ string) ([]byte, error) {
	return nil, claimererrors.ErrNothingToClaim
}

type stubLedger struct{}

func (stubLedger) Balance(_ context.Context, _ string) (uint64, error) { return 0, nil }

func (stubLedger) NewWallet() (string, []byte, error) { return "ew-1", []byte("seed"), nil }

func (stubLedger) SubmitAndConfirm(_ context.Context, _ []byte, _ []byte) (string, error) {
	return "claimtx-1", nil
}

func (stubLedger) Transfer(_ context.Context, _ []byte, _ string, _ uint64) (string, error) {
	return "tx-1", nil
}

type stubVault struct{}

func (stubVault) Encrypt(seed []byte) ([]byte, error) { return seed, nil }
func (stubVault) Decrypt(blob []byte) ([]byte, error) { return blob, nil }

type stubDistributor struct{}

func (stubDistributor) Distribute(_ context.Context, _ string, _ uint64) error { return nil }

func newTestServer() *Server {
	audit := auditlog.NewInMemoryModule(nil)

	distribution := claimdistribution.NewInMemoryModule(claimdistribution.Dependencies{
		Roster:          stubRoster{},
		Volume:          stubVolume{},
		Payments:        &stubPayments{},
		Addresses:       stubAddresses{},
		SubmitterShare:  0.5,
		MinClaimAmount:  100,
		VolumeSourceTag: "test",
	})

	claimer := feeclaimer.NewInMemoryModule(feeclaimer.Dependencies{
		Roster:        stubClaimerRoster{},
		Claims:        stubClaims{},
		Ledger:        stubLedger{},
		Vault:         stubVault{},
		Distributor:   stubDistributor{},
		Audit:         nil,
		MasterAddress: "master-addr",
		MasterSeed:    []byte("master-seed"),
		MinNetRevenue: 1000,
	})

	return New(distribution, claimer, audit, nil, ":0")
}

func TestDistributeEndpoint(t *testing.T) {
	server := newTestServer()

	body := `{"external_tx_id":"ext-1","total_amount":1000000}`
	req := httptest.NewRequest(http.MethodPost, "/api/treasury/v1/distributions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"status":"completed"`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestDistributeEndpointDuplicateConflicts(t *testing.T) {
	server := newTestServer()
	body := `{"external_tx_id":"ext-dup","total_amount":1000000}`

	first := httptest.NewRequest(http.MethodPost, "/api/treasury/v1/distributions", strings.NewReader(body))
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, first)
	if rr.Code != http.StatusOK {
		t.Fatalf("first call: expected 200, got %d", rr.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/treasury/v1/distributions", strings.NewReader(body))
	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, second)
	if rr.Code != http.StatusConflict {
		t.Fatalf("second call: expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDistributeEndpointRejectsMalformedJSON(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/treasury/v1/distributions", strings.NewReader("{"))

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestPreviewEndpointHasNoSideEffects(t *testing.T) {
	server := newTestServer()

	body := `{"total_amount":1000000}`
	req := httptest.NewRequest(http.MethodPost, "/api/treasury/v1/distributions/preview", strings.NewReader(body))
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"dry_run":true`) {
		t.Fatalf("preview not marked dry run: %s", rr.Body.String())
	}

	list := httptest.NewRequest(http.MethodGet, "/api/treasury/v1/distributions", nil)
	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, list)
	if !strings.Contains(rr.Body.String(), `"data":[]`) {
		t.Fatalf("preview persisted a batch: %s", rr.Body.String())
	}
}

func TestGetDistributionNotFound(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/treasury/v1/distributions/missing", nil)

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestRunClaimCycleEndpoint(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/treasury/v1/claim-cycle/run", nil)

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"nothing_to_claim":1`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestAuditEndpointRejectsUnknownOperation(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/treasury/v1/audit?operation=bogus", nil)

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestAuditEndpointListsByOperation(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/treasury/v1/audit?operation=send&limit=10", nil)

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"status":"success"`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}
