package validation

import (
	"github.com/cloudx-io/openescrow/escrowapi"
)

// ReceiptValidationInput contains all inputs needed for settlement receipt validation.
// Optional expectations are skipped when left empty.
type ReceiptValidationInput struct {
	// Exactly one receipt encoding is read: ReceiptGzip from notifications, else ReceiptBase64.
	ReceiptGzip   escrowapi.ReceiptCOSEGzip
	ReceiptBase64 escrowapi.ReceiptCOSEBase64

	PublicKeyPEM string // verification key served at /receipts/key

	AuctionID string // expected auction id
	FeeRate   string // expected fee rate as a decimal fraction, e.g. "0.04"

	Bidder   string // hex address whose final stake should appear in the bid log
	BidTotal string // bidder's stake after its last bid
	IsWinner bool   // expected auction result for Bidder
}

// ReceiptValidationResult contains validation results for a settlement receipt
type ReceiptValidationResult struct {
	SignatureValid      bool
	SettlementHashValid bool
	ConservationValid   bool
	AuctionIDValid      bool
	FeeRateValid        bool
	BidHashValid        bool
	WinnerValid         bool
	ValidationDetails   []string

	Payload *escrowapi.ReceiptPayload
}

// IsValid returns true if all receipt validation checks passed
func (r *ReceiptValidationResult) IsValid() bool {
	return r.SignatureValid && r.SettlementHashValid && r.ConservationValid &&
		r.AuctionIDValid && r.FeeRateValid && r.BidHashValid && r.WinnerValid
}
