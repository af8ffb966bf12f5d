package core

import (
	"github.com/shopspring/decimal"
)

// SplitFee divides a winning stake into the fee recipient's share and the seller's payout.
// The fee is truncated to precision fractional digits so fee + payout == stake exactly.
func SplitFee(stake, feeRate decimal.Decimal, precision int32) (fee, payout decimal.Decimal) {
	fee = stake.Mul(feeRate).Truncate(precision)
	if fee.GreaterThan(stake) {
		fee = stake
	}
	return fee, stake.Sub(fee)
}

// CancellationPenalty is what a seller forfeits for cancelling before expiry.
func CancellationPenalty(a *Auction) decimal.Decimal {
	return a.StartPrice
}

// validAmount reports whether amount is positive and representable in token units.
func validAmount(amount decimal.Decimal, precision int32) bool {
	return amount.IsPositive() && amount.Equal(amount.Truncate(precision))
}
