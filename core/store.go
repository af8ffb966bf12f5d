package core

import (
	"slices"

	"github.com/shopspring/decimal"
)

// AuctionStore keeps auction records. At most one live (Active) record exists per asset;
// terminal records stay addressable by AuctionID so late calls can be told apart from
// calls on ids that never existed.
type AuctionStore struct {
	records  map[AuctionID]*Auction
	byAsset  map[AssetID]AuctionID
	bySeller map[Address][]AssetID
}

func NewAuctionStore() *AuctionStore {
	return &AuctionStore{
		records:  make(map[AuctionID]*Auction),
		byAsset:  make(map[AssetID]AuctionID),
		bySeller: make(map[Address][]AssetID),
	}
}

// Get returns the record for id, live or terminal.
func (s *AuctionStore) Get(id AuctionID) (*Auction, bool) {
	a, ok := s.records[id]
	return a, ok
}

// Live returns the active record for an asset.
func (s *AuctionStore) Live(assetID AssetID) (*Auction, bool) {
	id, ok := s.byAsset[assetID]
	if !ok {
		return nil, false
	}
	return s.records[id], true
}

// AssetsOf returns the asset ids of the seller's live auctions in creation order.
func (s *AuctionStore) AssetsOf(seller Address) []AssetID {
	return slices.Clone(s.bySeller[seller])
}

// ActiveCount returns the number of live auctions.
func (s *AuctionStore) ActiveCount() int {
	return len(s.byAsset)
}

// All calls fn for every record, live or terminal.
func (s *AuctionStore) All(fn func(*Auction)) {
	for _, a := range s.records {
		fn(a)
	}
}

// insert stores a new live record.
func (s *AuctionStore) insert(a *Auction, j *journal) {
	s.records[a.ID] = a
	s.byAsset[a.AssetID] = a.ID
	prevAssets := s.bySeller[a.Seller]
	s.bySeller[a.Seller] = append(slices.Clone(prevAssets), a.AssetID)

	j.record(func() {
		delete(s.records, a.ID)
		delete(s.byAsset, a.AssetID)
		if len(prevAssets) == 0 {
			delete(s.bySeller, a.Seller)
		} else {
			s.bySeller[a.Seller] = prevAssets
		}
	})
}

// setLeader moves the lead to bidder with stake.
func (s *AuctionStore) setLeader(a *Auction, bidder Address, stake decimal.Decimal, j *journal) {
	prevLeader, prevStake := a.Leader, a.LeaderStake
	leader := bidder
	a.Leader = &leader
	a.LeaderStake = stake
	j.record(func() {
		a.Leader = prevLeader
		a.LeaderStake = prevStake
	})
}

// appendBid extends the bid log.
func (s *AuctionStore) appendBid(a *Auction, entry BidEntry, j *journal) {
	prevLen := len(a.Bids)
	entry.Seq = prevLen + 1
	a.Bids = append(a.Bids, entry)
	j.record(func() {
		a.Bids = a.Bids[:prevLen]
	})
}

// finish marks the record terminal: the leader is demoted to an ordinary staker and the
// asset and seller index entries are dropped.
func (s *AuctionStore) finish(a *Auction, status Status, j *journal) {
	prev := *a
	prevAssets := s.bySeller[a.Seller]

	a.Status = status
	a.Leader = nil
	a.LeaderStake = decimal.Zero
	delete(s.byAsset, a.AssetID)

	remaining := make([]AssetID, 0, len(prevAssets))
	for _, assetID := range prevAssets {
		if assetID != a.AssetID {
			remaining = append(remaining, assetID)
		}
	}
	if len(remaining) == 0 {
		delete(s.bySeller, a.Seller)
	} else {
		s.bySeller[a.Seller] = remaining
	}

	j.record(func() {
		*a = prev
		s.byAsset[a.AssetID] = a.ID
		s.bySeller[a.Seller] = prevAssets
	})
}

// settle records the close outcome on a terminal record.
func (s *AuctionStore) settle(a *Auction, winner *Address, price, fee, penalty decimal.Decimal, j *journal) {
	prevWinner, prevPrice, prevFee, prevPenalty := a.Winner, a.SettledPrice, a.Fee, a.Penalty
	a.Winner = winner
	a.SettledPrice = price
	a.Fee = fee
	a.Penalty = penalty
	j.record(func() {
		a.Winner = prevWinner
		a.SettledPrice = prevPrice
		a.Fee = prevFee
		a.Penalty = prevPenalty
	})
}
