package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an engine error so callers can decide how to self-correct.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"    // bad id, amount or parameter
	KindAuthorization ErrorKind = "authorization" // caller lacks the required role
	KindState         ErrorKind = "state"         // wrong lifecycle phase
	KindFunds         ErrorKind = "funds"         // balance or allowance shortfall
	KindIntegrity     ErrorKind = "integrity"     // internal accounting mismatch
)

// Error is a classified engine error. Instances below are sentinels; wrapped forms carry
// call details and still match with errors.Is.
type Error struct {
	Kind ErrorKind
	Code string
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func newError(kind ErrorKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

var (
	ErrInvalidAsset   = newError(KindValidation, "InvalidAsset", "invalid asset id")
	ErrInvalidAuction = newError(KindValidation, "InvalidAuction", "invalid auction id")
	ErrInvalidAmount  = newError(KindValidation, "InvalidAmount", "amount must be a positive whole number of token units")
	ErrPriceTooLow    = newError(KindValidation, "PriceTooLow", "start price is below the minimum")
	ErrZeroDuration   = newError(KindValidation, "ZeroDuration", "auction duration must be greater than 0")
	ErrBidTooLow      = newError(KindValidation, "BidTooLow", "bid must be greater than start price")
	ErrNotHighEnough  = newError(KindValidation, "NotHighEnough", "there is already a higher or equal bid")
	ErrZeroAddress    = newError(KindValidation, "ZeroAddress", "address can not be zero address")
	ErrInvalidFeeRate = newError(KindValidation, "InvalidFeeRate", "fee rate must be within (0, 1]")
	ErrNotContract    = newError(KindValidation, "NotContract", "target is not a contract")

	ErrNotOwner               = newError(KindAuthorization, "NotOwner", "sender is not owner of asset")
	ErrNotAuthorizedCustodian = newError(KindAuthorization, "NotAuthorizedCustodian", "engine is unauthorized to manage this asset")
	ErrNotSeller              = newError(KindAuthorization, "NotSeller", "caller is not the seller of this auction")
	ErrSelfBid                = newError(KindAuthorization, "SelfBid", "bidder must be different from seller")
	ErrNotOperator            = newError(KindAuthorization, "NotOperator", "caller is not the engine operator")

	ErrAlreadyActive    = newError(KindState, "AlreadyActive", "asset already has an active auction")
	ErrAuctionEnded     = newError(KindState, "AuctionEnded", "the auction has already ended")
	ErrAuctionNotEnded  = newError(KindState, "AuctionNotEnded", "the auction has not ended yet")
	ErrAuctionNotActive = newError(KindState, "AuctionNotActive", "the auction is already cancelled or closed")
	ErrAlreadyBid       = newError(KindState, "AlreadyBid", "bidder already holds a stake, withdraw before bidding again")
	ErrNoStake          = newError(KindState, "NoStake", "caller has no stake in this auction")
	ErrIsLeader         = newError(KindState, "IsLeader", "leading bid can not be withdrawn")
	ErrNoCredit         = newError(KindState, "NoCredit", "caller has no settlement credit to claim")

	ErrInsufficientFunds     = newError(KindFunds, "InsufficientFunds", "balance is not enough to bid this auction")
	ErrInsufficientAllowance = newError(KindFunds, "InsufficientAllowance", "allowance to escrow is not enough")
	ErrPenaltyPaymentFailed  = newError(KindFunds, "PenaltyPaymentFailed", "seller can not pay the cancellation penalty")

	ErrPoolInsolvent     = newError(KindIntegrity, "PoolInsolvent", "escrow pool is not enough to pay out")
	ErrPayoutFailed      = newError(KindIntegrity, "PayoutFailed", "transfer out of escrow failed")
	ErrInvariantViolated = newError(KindIntegrity, "InvariantViolated", "escrow invariant violated")
)

// KindOf returns the kind of the first *Error found in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the code of the first *Error found in err's chain, or "" if none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// wrapf decorates a sentinel with call details while keeping errors.Is matching.
func wrapf(sentinel *Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
