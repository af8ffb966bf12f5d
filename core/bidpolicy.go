package core

import (
	"github.com/shopspring/decimal"
)

// BidPolicy decides whether a bid is acceptable and what the bidder's stake becomes.
// Implementations are pure: they never mutate the auction or the ledger.
type BidPolicy interface {
	Kind() PolicyKind
	// Evaluate returns the bidder's stake after the bid, or a classified error.
	Evaluate(a *Auction, prior, amount decimal.Decimal) (decimal.Decimal, error)
}

// NewBidPolicy returns the policy for kind.
func NewBidPolicy(kind PolicyKind) (BidPolicy, error) {
	kind, err := ParsePolicyKind(string(kind))
	if err != nil {
		return nil, err
	}
	if kind == PolicyReplace {
		return ReplacePolicy{}, nil
	}
	return AccumulatePolicy{}, nil
}

// ReplacePolicy allows one outstanding stake per bidder; outbid bidders withdraw before
// bidding again.
type ReplacePolicy struct{}

func (ReplacePolicy) Kind() PolicyKind { return PolicyReplace }

func (ReplacePolicy) Evaluate(a *Auction, prior, amount decimal.Decimal) (decimal.Decimal, error) {
	if prior.IsPositive() {
		return decimal.Zero, wrapf(ErrAlreadyBid, "existing stake %s", prior)
	}
	if !amount.GreaterThan(a.StartPrice) {
		return decimal.Zero, wrapf(ErrBidTooLow, "bid %s, start price %s", amount, a.StartPrice)
	}
	if !amount.GreaterThan(a.LeaderStake) {
		return decimal.Zero, wrapf(ErrNotHighEnough, "bid %s, leading stake %s", amount, a.LeaderStake)
	}
	return amount, nil
}

// AccumulatePolicy treats each bid as an increment on the bidder's existing stake.
type AccumulatePolicy struct{}

func (AccumulatePolicy) Kind() PolicyKind { return PolicyAccumulate }

func (AccumulatePolicy) Evaluate(a *Auction, prior, amount decimal.Decimal) (decimal.Decimal, error) {
	total := prior.Add(amount)
	if prior.IsZero() && !total.GreaterThan(a.StartPrice) {
		return decimal.Zero, wrapf(ErrBidTooLow, "bid %s, start price %s", total, a.StartPrice)
	}
	// ties keep the incumbent
	if !total.GreaterThan(a.LeaderStake) {
		return decimal.Zero, wrapf(ErrNotHighEnough, "total %s, leading stake %s", total, a.LeaderStake)
	}
	return total, nil
}
