package core

import (
	"github.com/shopspring/decimal"
)

type stakeKey struct {
	auction AuctionID
	bidder  Address
}

// BidLedger tracks escrowed stakes per (auction, bidder), settlement credits per account
// and the pool total they sum to.
type BidLedger struct {
	stakes  map[stakeKey]decimal.Decimal
	credits map[Address]decimal.Decimal
	pool    decimal.Decimal
}

func NewBidLedger() *BidLedger {
	return &BidLedger{
		stakes:  make(map[stakeKey]decimal.Decimal),
		credits: make(map[Address]decimal.Decimal),
		pool:    decimal.Zero,
	}
}

// StakeOf returns the bidder's stake, zero if none.
func (l *BidLedger) StakeOf(id AuctionID, bidder Address) decimal.Decimal {
	if stake, ok := l.stakes[stakeKey{id, bidder}]; ok {
		return stake
	}
	return decimal.Zero
}

// Pool returns the total escrowed amount.
func (l *BidLedger) Pool() decimal.Decimal {
	return l.pool
}

// StakesOf calls fn for every non-zero stake on an auction.
func (l *BidLedger) StakesOf(id AuctionID, fn func(bidder Address, stake decimal.Decimal)) {
	for k, stake := range l.stakes {
		if k.auction == id {
			fn(k.bidder, stake)
		}
	}
}

// CreditOf returns the settlement proceeds booked for account and not yet claimed.
func (l *BidLedger) CreditOf(account Address) decimal.Decimal {
	if credit, ok := l.credits[account]; ok {
		return credit
	}
	return decimal.Zero
}

// Sum returns the sum of all stakes and credits.
func (l *BidLedger) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, stake := range l.stakes {
		sum = sum.Add(stake)
	}
	for _, credit := range l.credits {
		sum = sum.Add(credit)
	}
	return sum
}

// deposit adds amount to the bidder's stake and the pool, returning the new stake.
func (l *BidLedger) deposit(id AuctionID, bidder Address, amount decimal.Decimal, j *journal) decimal.Decimal {
	key := stakeKey{id, bidder}
	prev, had := l.stakes[key]
	prevPool := l.pool

	stake := l.StakeOf(id, bidder).Add(amount)
	l.stakes[key] = stake
	l.pool = l.pool.Add(amount)

	j.record(func() {
		if had {
			l.stakes[key] = prev
		} else {
			delete(l.stakes, key)
		}
		l.pool = prevPool
	})
	return stake
}

// release clears the bidder's stake and takes it out of the pool, returning the amount.
// It fails with ErrPoolInsolvent if the pool can not cover the stake.
func (l *BidLedger) release(id AuctionID, bidder Address, j *journal) (decimal.Decimal, error) {
	key := stakeKey{id, bidder}
	stake, ok := l.stakes[key]
	if !ok || !stake.IsPositive() {
		return decimal.Zero, ErrNoStake
	}
	if l.pool.LessThan(stake) {
		return decimal.Zero, wrapf(ErrPoolInsolvent, "pool %s, stake %s", l.pool, stake)
	}

	prevPool := l.pool
	delete(l.stakes, key)
	l.pool = l.pool.Sub(stake)

	j.record(func() {
		l.stakes[key] = stake
		l.pool = prevPool
	})
	return stake, nil
}

// credit books amount for account when a settlement transfer to it could not be made.
// The amount stays in the pool until claimed.
func (l *BidLedger) credit(account Address, amount decimal.Decimal, j *journal) {
	prev, had := l.credits[account]
	prevPool := l.pool

	l.credits[account] = l.CreditOf(account).Add(amount)
	l.pool = l.pool.Add(amount)

	j.record(func() {
		if had {
			l.credits[account] = prev
		} else {
			delete(l.credits, account)
		}
		l.pool = prevPool
	})
}

// claim clears account's credit and takes it out of the pool, returning the amount.
func (l *BidLedger) claim(account Address, j *journal) (decimal.Decimal, error) {
	amount, ok := l.credits[account]
	if !ok || !amount.IsPositive() {
		return decimal.Zero, ErrNoCredit
	}
	if l.pool.LessThan(amount) {
		return decimal.Zero, wrapf(ErrPoolInsolvent, "pool %s, credit %s", l.pool, amount)
	}

	prevPool := l.pool
	delete(l.credits, account)
	l.pool = l.pool.Sub(amount)

	j.record(func() {
		l.credits[account] = amount
		l.pool = prevPool
	})
	return amount, nil
}
