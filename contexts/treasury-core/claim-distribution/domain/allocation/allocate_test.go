package allocation

import (
	"math/rand"
	"testing"
)

func TestAllocateProportionalScenario(t *testing.T) {
	// Weights {A:100, B:300, C:0}, total 1,000,000, submitter share 0.5:
	// A gets 25% share, 125,000 to recipient; B gets 75%, 375,000; C is
	// excluded because total delta is nonzero.
	shares := Allocate([]Recipient{
		{TokenID: "A", PayoutAddress: "addr-a", Delta: 100},
		{TokenID: "B", PayoutAddress: "addr-b", Delta: 300},
		{TokenID: "C", PayoutAddress: "addr-c", Delta: 0},
	}, 1_000_000, 0.5, 0)

	if len(shares) != 2 {
		t.Fatalf("share count = %d, want 2 (C excluded)", len(shares))
	}

	a, b := shares[0], shares[1]
	if a.TokenID != "A" || b.TokenID != "B" {
		t.Fatalf("unexpected order: %s, %s", a.TokenID, b.TokenID)
	}
	if a.Fraction != 0.25 || a.GrossAmount != 250_000 || a.RecipientAmount != 125_000 {
		t.Fatalf("A = %+v", a)
	}
	if b.Fraction != 0.75 || b.GrossAmount != 750_000 || b.RecipientAmount != 375_000 {
		t.Fatalf("B = %+v", b)
	}
}

func TestAllocateEqualSplitFallback(t *testing.T) {
	// Weights {A:0, B:0}, total 1,000, share 0.5: both get 250.
	shares := Allocate([]Recipient{
		{TokenID: "A", PayoutAddress: "addr-a"},
		{TokenID: "B", PayoutAddress: "addr-b"},
	}, 1_000, 0.5, 0)

	if len(shares) != 2 {
		t.Fatalf("share count = %d, want 2", len(shares))
	}
	for _, share := range shares {
		if share.GrossAmount != 500 || share.RecipientAmount != 250 {
			t.Fatalf("share = %+v, want gross 500 / recipient 250", share)
		}
	}
}

func TestAllocateFlooredSumNeverExceedsTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		count := 1 + rng.Intn(20)
		recipients := make([]Recipient, count)
		for i := range recipients {
			recipients[i] = Recipient{
				TokenID: "t",
				Delta:   uint64(rng.Intn(1_000_000)),
			}
		}
		total := uint64(rng.Intn(10_000_000_000))

		shares := Allocate(recipients, total, 1, 0)
		var sum uint64
		for _, share := range shares {
			sum += share.GrossAmount
		}
		if sum > total {
			t.Fatalf("trial %d: gross sum %d exceeds total %d", trial, sum, total)
		}
		// Each floor loses strictly less than one unit per recipient.
		if total > 0 && len(shares) > 0 && total-sum >= uint64(count) {
			t.Fatalf("trial %d: shortfall %d not < recipient count %d", trial, total-sum, count)
		}
	}
}

func TestAllocateLargeValuesDoNotOverflow(t *testing.T) {
	// delta * total would overflow uint64; big.Int math must not.
	shares := Allocate([]Recipient{
		{TokenID: "A", Delta: 1 << 62},
		{TokenID: "B", Delta: 1 << 62},
	}, 1<<62, 1, 0)

	if len(shares) != 2 {
		t.Fatalf("share count = %d, want 2", len(shares))
	}
	for _, share := range shares {
		if share.GrossAmount != 1<<61 {
			t.Fatalf("gross = %d, want %d", share.GrossAmount, uint64(1)<<61)
		}
		if share.RecipientAmount != share.GrossAmount {
			t.Fatalf("recipient = %d, want full gross %d at share 1", share.RecipientAmount, share.GrossAmount)
		}
	}
}

func TestAllocateRecipientFloorExactPastFloatPrecision(t *testing.T) {
	// Odd totals just past 2^53 are not representable in float64; the
	// recipient floor must stay exact and can never exceed its own gross.
	total := uint64(1)<<53 + 3

	shares := Allocate([]Recipient{{TokenID: "A", Delta: 7}}, total, 1, 0)
	if shares[0].GrossAmount != total {
		t.Fatalf("gross = %d, want %d", shares[0].GrossAmount, total)
	}
	if shares[0].RecipientAmount != total {
		t.Fatalf("recipient = %d, want %d", shares[0].RecipientAmount, total)
	}

	shares = Allocate([]Recipient{{TokenID: "A", Delta: 7}}, total, 0.5, 0)
	if shares[0].RecipientAmount > shares[0].GrossAmount {
		t.Fatalf("recipient %d exceeds gross %d", shares[0].RecipientAmount, shares[0].GrossAmount)
	}
	if want := total / 2; shares[0].RecipientAmount != want {
		t.Fatalf("recipient = %d, want %d", shares[0].RecipientAmount, want)
	}
}

func TestAllocateMarksDustSkipped(t *testing.T) {
	shares := Allocate([]Recipient{
		{TokenID: "A", Delta: 1},
		{TokenID: "B", Delta: 999},
	}, 100_000, 0.5, 1_000)

	if len(shares) != 2 {
		t.Fatalf("share count = %d, want 2", len(shares))
	}
	a := shares[0]
	if !a.Skipped {
		t.Fatalf("A recipient amount %d under dust threshold must be skipped", a.RecipientAmount)
	}
	if a.RecipientAmount != 50 {
		t.Fatalf("A recipient amount = %d, want 50 (still recorded)", a.RecipientAmount)
	}
	if shares[1].Skipped {
		t.Fatal("B must not be skipped")
	}
}

func TestAllocateEdgeInputs(t *testing.T) {
	if shares := Allocate(nil, 1_000, 0.5, 0); shares != nil {
		t.Fatal("nil recipients must produce nil shares")
	}
	if shares := Allocate([]Recipient{{TokenID: "A", Delta: 5}}, 0, 0.5, 0); shares != nil {
		t.Fatal("zero total must produce nil shares")
	}

	// Out-of-range submitter shares clamp instead of corrupting amounts.
	shares := Allocate([]Recipient{{TokenID: "A", Delta: 5}}, 100, 1.5, 0)
	if shares[0].RecipientAmount != 100 {
		t.Fatalf("clamped share = %d, want 100", shares[0].RecipientAmount)
	}
	shares = Allocate([]Recipient{{TokenID: "A", Delta: 5}}, 100, -1, 0)
	if shares[0].RecipientAmount != 0 {
		t.Fatalf("clamped share = %d, want 0", shares[0].RecipientAmount)
	}
}
