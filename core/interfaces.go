package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger is the fungible-token service holding bidder funds.
// Implementations must not call back into the Engine.
type Ledger interface {
	// Address is the ledger's own account address; zero means not deployed.
	Address() Address
	BalanceOf(account Address) decimal.Decimal
	Allowance(owner, spender Address) decimal.Decimal
	// TransferFrom moves amount from -> to on behalf of spender, consuming allowance.
	TransferFrom(spender, from, to Address, amount decimal.Decimal) error
	// Transfer moves amount from -> to; from is the caller.
	Transfer(from, to Address, amount decimal.Decimal) error
}

// Registry is the asset-ownership service holding auctioned assets.
// Implementations must not call back into the Engine.
type Registry interface {
	Address() Address
	// OwnerOf returns the current owner, or an error if the asset does not exist.
	OwnerOf(assetID AssetID) (Address, error)
	// IsAuthorizedCustodian reports whether custodian may move assetID out of its owner's hands.
	IsAuthorizedCustodian(custodian Address, assetID AssetID) bool
	TransferCustody(operator, from, to Address, assetID AssetID) error
}

// Clock provides the current time used for expiry checks.
// This interface enables dependency injection for deterministic testing.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Operation names the engine entry point an observation refers to.
type Operation string

const (
	OpCreate   Operation = "create"
	OpBid      Operation = "bid"
	OpWithdraw Operation = "withdraw"
	OpCancel   Operation = "cancel"
	OpClose    Operation = "close"
	OpClaim    Operation = "claim"
)

// Observer receives a notification after every mutating call, outside the engine lock.
type Observer interface {
	ObserveOperation(op Operation, err error)
	ObserveState(pool decimal.Decimal, activeAuctions int)
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(Operation, error) {}
func (nopObserver) ObserveState(decimal.Decimal, int) {}
