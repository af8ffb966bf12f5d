package core

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Address identifies an account on the ledger and an owner on the registry.
type Address = common.Address

// AssetID identifies a uniquely owned asset in the registry. Zero is never a valid id.
type AssetID uint64

// AuctionID identifies a single auction. A re-auctioned asset gets a fresh id.
type AuctionID = uuid.UUID

// Status is the lifecycle phase of an auction.
type Status uint8

const (
	StatusActive Status = iota + 1
	StatusCancelled
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCancelled:
		return "cancelled"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "active":
		*s = StatusActive
	case "cancelled":
		*s = StatusCancelled
	case "closed":
		*s = StatusClosed
	default:
		return fmt.Errorf("unknown auction status %q", text)
	}
	return nil
}

// Terminal reports whether no further mutation of the auction is allowed.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusClosed
}

// BidEntry is one accepted bid in an auction's append-only bid log.
type BidEntry struct {
	Seq    int             `json:"seq"`
	Bidder Address         `json:"bidder"`
	Amount decimal.Decimal `json:"amount"` // amount pulled by this call
	Total  decimal.Decimal `json:"total"`  // bidder's stake after this call
	Time   time.Time       `json:"time"`
}

// Auction is the record kept for one auction.
type Auction struct {
	ID         AuctionID       `json:"id"`
	Seller     Address         `json:"seller"`
	AssetID    AssetID         `json:"asset_id"`
	StartPrice decimal.Decimal `json:"start_price"`
	StartTime  time.Time       `json:"start_time"`
	Duration   time.Duration   `json:"duration"`
	EndTime    time.Time       `json:"end_time"`

	// Leader is nil until the first accepted bid and after the auction ends.
	Leader      *Address        `json:"leader,omitempty"`
	LeaderStake decimal.Decimal `json:"leader_stake"`

	Status Status `json:"status"`

	// Settlement outcome, populated on Close (Winner, SettledPrice, Fee) or Cancel (Penalty).
	Winner       *Address        `json:"winner,omitempty"`
	SettledPrice decimal.Decimal `json:"settled_price"`
	Fee          decimal.Decimal `json:"fee"`
	Penalty      decimal.Decimal `json:"penalty"`

	Bids []BidEntry `json:"bids,omitempty"`
}

// Ended reports whether the bidding window is over at now.
func (a *Auction) Ended(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// IsLeader reports whether addr is the current leader.
func (a *Auction) IsLeader(addr Address) bool {
	return a.Leader != nil && *a.Leader == addr
}

// IsWinner reports whether addr won the (closed) auction.
func (a *Auction) IsWinner(addr Address) bool {
	return a.Winner != nil && *a.Winner == addr
}

// clone returns a deep copy safe to hand to callers outside the engine lock.
func (a *Auction) clone() *Auction {
	cp := *a
	if a.Leader != nil {
		leader := *a.Leader
		cp.Leader = &leader
	}
	if a.Winner != nil {
		winner := *a.Winner
		cp.Winner = &winner
	}
	cp.Bids = append([]BidEntry(nil), a.Bids...)
	return &cp
}

// BidResult describes the auction state right after an accepted bid.
type BidResult struct {
	AuctionID   AuctionID       `json:"auction_id"`
	Bidder      Address         `json:"bidder"`
	Amount      decimal.Decimal `json:"amount"`
	Stake       decimal.Decimal `json:"stake"`
	Leader      Address         `json:"leader"`
	LeaderStake decimal.Decimal `json:"leader_stake"`
	Pool        decimal.Decimal `json:"pool"`
}

// Outcome is how an auction was resolved.
type Outcome string

const (
	OutcomeCancelled Outcome = "cancelled"
	OutcomeClosed    Outcome = "closed"
)

// Settlement is the full value movement performed when an auction ends.
// For a close with a winner: Price = Fee + Payout. For a cancel: Penalty = StartPrice
// and Price/Fee/Payout are zero. For a close without bids every amount is zero.
type Settlement struct {
	AuctionID    AuctionID       `json:"auction_id"`
	AssetID      AssetID         `json:"asset_id"`
	Outcome      Outcome         `json:"outcome"`
	Seller       Address         `json:"seller"`
	Winner       *Address        `json:"winner,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Fee          decimal.Decimal `json:"fee"`
	Payout       decimal.Decimal `json:"payout"`
	Penalty      decimal.Decimal `json:"penalty"`
	FeeRecipient Address         `json:"fee_recipient"`
	Bids         []BidEntry      `json:"bids,omitempty"`
	SettledAt    time.Time       `json:"settled_at"`
}
