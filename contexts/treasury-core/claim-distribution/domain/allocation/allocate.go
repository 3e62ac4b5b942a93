// Package allocation holds the pure pro-rata split. No I/O, no clock:
// everything the orchestrator persists about amounts comes from here.
package allocation

import (
	"math/big"
)

type Recipient struct {
	TokenID       string
	PayoutAddress string
	Delta         uint64
}

type Share struct {
	TokenID         string
	PayoutAddress   string
	Delta           uint64
	Fraction        float64
	GrossAmount     uint64
	RecipientAmount uint64
	Skipped         bool
}

// Allocate splits totalAmount across recipients proportional to Delta.
//
//	gross_i = floor(totalAmount * delta_i / totalDelta)
//
// Flooring guarantees the grosses never sum above totalAmount; the rounding
// residual simply stays with the source balance. When every delta is zero
// the split falls back to an equal share per recipient. All eligible
// recipients participate in the fallback, including ones that never traded.
// Shares whose recipient amount lands under dustThreshold are returned
// marked Skipped so the ledger still records them.
func Allocate(
	recipients []Recipient,
	totalAmount uint64,
	submitterShare float64,
	dustThreshold uint64,
) []Share {
	if len(recipients) == 0 || totalAmount == 0 {
		return nil
	}
	if submitterShare < 0 {
		submitterShare = 0
	}
	if submitterShare > 1 {
		submitterShare = 1
	}

	var totalDelta uint64
	for _, r := range recipients {
		totalDelta += r.Delta
	}
	if totalDelta == 0 {
		return equalSplit(recipients, totalAmount, submitterShare, dustThreshold)
	}

	total := new(big.Int).SetUint64(totalAmount)
	divisor := new(big.Int).SetUint64(totalDelta)

	shares := make([]Share, 0, len(recipients))
	for _, r := range recipients {
		if r.Delta == 0 {
			// Inactive recipients are excluded entirely when anyone traded.
			continue
		}
		gross := new(big.Int).SetUint64(r.Delta)
		gross.Mul(gross, total)
		gross.Div(gross, divisor)
		shares = append(shares, makeShare(r, gross.Uint64(), float64(r.Delta)/float64(totalDelta), submitterShare, dustThreshold))
	}
	return shares
}

func equalSplit(
	recipients []Recipient,
	totalAmount uint64,
	submitterShare float64,
	dustThreshold uint64,
) []Share {
	count := uint64(len(recipients))
	gross := totalAmount / count
	fraction := 1 / float64(count)

	shares := make([]Share, 0, len(recipients))
	for _, r := range recipients {
		shares = append(shares, makeShare(r, gross, fraction, submitterShare, dustThreshold))
	}
	return shares
}

func makeShare(
	r Recipient,
	gross uint64,
	fraction float64,
	submitterShare float64,
	dustThreshold uint64,
) Share {
	recipientAmount := recipientFloor(gross, submitterShare)
	return Share{
		TokenID:         r.TokenID,
		PayoutAddress:   r.PayoutAddress,
		Delta:           r.Delta,
		Fraction:        fraction,
		GrossAmount:     gross,
		RecipientAmount: recipientAmount,
		Skipped:         recipientAmount < dustThreshold,
	}
}

// recipientFloor computes floor(gross * submitterShare) exactly. Going
// through float64 loses integer precision past 2^53 and can round the
// product up past gross, so the share is taken as a rational and the
// multiply-divide stays in big.Int like the gross computation.
func recipientFloor(gross uint64, submitterShare float64) uint64 {
	share := new(big.Rat).SetFloat64(submitterShare)
	if share == nil || share.Sign() <= 0 {
		return 0
	}
	amount := new(big.Int).SetUint64(gross)
	amount.Mul(amount, share.Num())
	amount.Div(amount, share.Denom())
	return amount.Uint64()
}
