package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Standing is one bidder's position on an auction's leaderboard.
type Standing struct {
	Rank   int             `json:"rank"`
	Bidder Address         `json:"bidder"`
	Stake  decimal.Decimal `json:"stake"`
	// LastBidSeq is the sequence number of the bid that produced Stake.
	LastBidSeq int  `json:"last_bid_seq"`
	Leader     bool `json:"leader"`
}

// StandingsResult ranks the outstanding stakes of one auction.
type StandingsResult struct {
	Ranks     map[Address]int `json:"-"`
	Standings []Standing      `json:"standings"`
}

// RankStakes orders bidders by stake descending. Equal stakes are ordered by the bid that
// reached them first, so the ordering is deterministic and the leader always ranks first.
func RankStakes(stakes map[Address]decimal.Decimal, bids []BidEntry, leader *Address) *StandingsResult {
	if len(stakes) == 0 {
		return &StandingsResult{
			Ranks:     make(map[Address]int),
			Standings: make([]Standing, 0),
		}
	}

	// Last bid per bidder; an outstanding stake always comes from the bidder's latest bid
	lastSeq := make(map[Address]int, len(stakes))
	for _, bid := range bids {
		lastSeq[bid.Bidder] = bid.Seq
	}

	entries := make([]Standing, 0, len(stakes))
	for bidder, stake := range stakes {
		if !stake.IsPositive() {
			continue
		}
		entries = append(entries, Standing{
			Bidder:     bidder,
			Stake:      stake,
			LastBidSeq: lastSeq[bidder],
			Leader:     leader != nil && *leader == bidder,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Stake.Equal(entries[j].Stake) {
			return entries[i].Stake.GreaterThan(entries[j].Stake)
		}
		if entries[i].LastBidSeq != entries[j].LastBidSeq {
			return entries[i].LastBidSeq < entries[j].LastBidSeq
		}
		return entries[i].Bidder.Hex() < entries[j].Bidder.Hex()
	})

	result := &StandingsResult{
		Ranks:     make(map[Address]int, len(entries)),
		Standings: entries,
	}
	for i := range entries {
		entries[i].Rank = i + 1
		result.Ranks[entries[i].Bidder] = i + 1
	}
	return result
}

// Standings returns the leaderboard of auction id. Terminal auctions list the stakes still
// waiting to be withdrawn.
func (e *Engine) Standings(id AuctionID) (*StandingsResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.store.Get(id)
	if !ok {
		return nil, wrapf(ErrInvalidAuction, "auction %s", id)
	}
	stakes := make(map[Address]decimal.Decimal)
	e.bids.StakesOf(id, func(bidder Address, stake decimal.Decimal) {
		stakes[bidder] = stake
	})
	return RankStakes(stakes, a.Bids, a.Leader), nil
}
