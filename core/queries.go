package core

import (
	"github.com/shopspring/decimal"
)

// GetAuction returns a copy of the live auction for assetID.
func (e *Engine) GetAuction(assetID AssetID) (*Auction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.store.Live(assetID)
	if !ok {
		return nil, wrapf(ErrInvalidAuction, "no active auction for asset %d", assetID)
	}
	return a.clone(), nil
}

// GetAuctionByID returns a copy of auction id, live or terminal.
func (e *Engine) GetAuctionByID(id AuctionID) (*Auction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.store.Get(id)
	if !ok {
		return nil, wrapf(ErrInvalidAuction, "auction %s", id)
	}
	return a.clone(), nil
}

// StakeOf returns bidder's escrowed stake on auction id.
func (e *Engine) StakeOf(id AuctionID, bidder Address) decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bids.StakeOf(id, bidder)
}

// StakeOfAsset returns bidder's stake on the live auction of assetID, zero if none.
func (e *Engine) StakeOfAsset(assetID AssetID, bidder Address) decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.store.Live(assetID)
	if !ok {
		return decimal.Zero
	}
	return e.bids.StakeOf(a.ID, bidder)
}

// PoolBalance returns the total amount escrowed: every stake plus unclaimed credits.
func (e *Engine) PoolBalance() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bids.Pool()
}

// CreditOf returns the settlement credit booked for account, zero if none.
func (e *Engine) CreditOf(account Address) decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bids.CreditOf(account)
}

// AuctionsOf returns the asset ids of seller's live auctions in creation order.
func (e *Engine) AuctionsOf(seller Address) []AssetID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.AssetsOf(seller)
}

// AuctionCountOf returns the number of seller's live auctions.
func (e *Engine) AuctionCountOf(seller Address) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.store.AssetsOf(seller))
}

// BidHistory returns the accepted bids of auction id in order.
func (e *Engine) BidHistory(id AuctionID) ([]BidEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.store.Get(id)
	if !ok {
		return nil, wrapf(ErrInvalidAuction, "auction %s", id)
	}
	return append([]BidEntry(nil), a.Bids...), nil
}

// ActiveAuctions returns the number of live auctions across all sellers.
func (e *Engine) ActiveAuctions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.ActiveCount()
}

// FeeRecipient is the account paid the close fee and the cancellation penalty.
func (e *Engine) FeeRecipient() Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.FeeRecipient
}

// FeeRate is the share of the winning stake kept as fee on close.
func (e *Engine) FeeRate() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.FeeRate
}

// MinStartPrice is the lowest start price Create accepts.
func (e *Engine) MinStartPrice() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.MinStartPrice
}

// LedgerAddress is the address of the token ledger holding bidder funds.
func (e *Engine) LedgerAddress() Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Address()
}

// RegistryAddress is the address of the asset registry.
func (e *Engine) RegistryAddress() Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Address()
}

// EscrowAddress is the account holding the pool and the assets under auction.
func (e *Engine) EscrowAddress() Address {
	return e.cfg.Escrow
}

// Policy reports how repeated bids from one bidder are treated.
func (e *Engine) Policy() PolicyKind {
	return e.policy.Kind()
}
