package escrowapi

import (
	"time"

	"github.com/cloudx-io/openescrow/core"
)

// Request types accepted by the stream server.
const (
	TypePing          = "ping"
	TypeCreateAuction = "create_auction"
	TypeBid           = "bid"
	TypeWithdraw      = "withdraw"
	TypeCancelAuction = "cancel_auction"
	TypeCloseAuction  = "close_auction"
	TypeGetAuction    = "get_auction"
	TypeGetStake      = "get_stake"
	TypePoolBalance   = "pool_balance"
	TypeAuctionsOf    = "auctions_of"
	TypeStandings     = "standings"
	TypePublicKey     = "public_key"
	TypeClaim         = "claim"
	TypeGetCredit     = "get_credit"
)

// ResponseSuffix is appended to a request type to form the response type.
const ResponseSuffix = "_response"

// Request is one call on the escrow engine. Amounts travel as decimal strings and
// addresses as 0x-prefixed hex.
type Request struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`

	// Caller is the account on whose behalf the call is made (seller or bidder).
	Caller string `json:"caller,omitempty"`

	AssetID   uint64 `json:"asset_id,omitempty"`
	AuctionID string `json:"auction_id,omitempty"`

	// Amount is the bid amount for bid requests.
	Amount string `json:"amount,omitempty"`

	// StartPrice and DurationSeconds are read by create_auction.
	StartPrice      string `json:"start_price,omitempty"`
	DurationSeconds int64  `json:"duration_seconds,omitempty"`

	// Account is the subject of get_stake, get_credit and auctions_of queries.
	Account string `json:"account,omitempty"`

	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Response is the single reply written for a Request.
type Response struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`

	// ErrorKind and ErrorCode classify a failed call.
	ErrorKind string `json:"error_kind,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`

	AuctionID  string                `json:"auction_id,omitempty"`
	Auction    *core.Auction         `json:"auction,omitempty"`
	Bid        *core.BidResult       `json:"bid,omitempty"`
	Settlement *core.Settlement      `json:"settlement,omitempty"`
	Standings  *core.StandingsResult `json:"standings,omitempty"`

	// Amount is the refunded amount, a stake or the pool balance depending on the request.
	Amount   string         `json:"amount,omitempty"`
	AssetIDs []core.AssetID `json:"asset_ids,omitempty"`

	// Receipt is the signed settlement receipt of a cancel or close.
	Receipt   ReceiptCOSEBase64 `json:"receipt_cose_base64,omitempty"`
	PublicKey string            `json:"public_key,omitempty"`

	ProcessingTime int64 `json:"processing_time_ms"`
}

// ReceiptVersion is the current receipt payload layout.
const ReceiptVersion = 1

// ReceiptPayload is the CBOR document signed into a settlement receipt. Amounts are decimal
// strings with exactly Precision fractional digits; addresses are lowercase hex.
type ReceiptPayload struct {
	Version      int    `cbor:"version" json:"version"`
	AuctionID    string `cbor:"auction_id" json:"auction_id"`
	AssetID      uint64 `cbor:"asset_id" json:"asset_id"`
	Outcome      string `cbor:"outcome" json:"outcome"`
	Seller       string `cbor:"seller" json:"seller"`
	Winner       string `cbor:"winner,omitempty" json:"winner,omitempty"`
	Price        string `cbor:"price" json:"price"`
	Fee          string `cbor:"fee" json:"fee"`
	Payout       string `cbor:"payout" json:"payout"`
	Penalty      string `cbor:"penalty" json:"penalty"`
	FeeRecipient string `cbor:"fee_recipient" json:"fee_recipient"`
	FeeRate      string `cbor:"fee_rate" json:"fee_rate"`
	Precision    int32  `cbor:"precision" json:"precision"`

	BidHashes      []string `cbor:"bid_hashes" json:"bid_hashes"`
	BidHashNonce   string   `cbor:"bid_hash_nonce" json:"bid_hash_nonce"`
	SettlementHash string   `cbor:"settlement_hash" json:"settlement_hash"`

	// SettledAtMillis is the settlement time in Unix milliseconds.
	SettledAtMillis int64 `cbor:"settled_at_ms" json:"settled_at_ms"`
	// SignedAtMillis is when the receipt was produced.
	SignedAtMillis int64 `cbor:"signed_at_ms" json:"signed_at_ms"`
}

// SettledAt returns the settlement time.
func (p *ReceiptPayload) SettledAt() time.Time {
	return time.UnixMilli(p.SettledAtMillis).UTC()
}

// KeyResponse is served by the HTTP API and the public_key request.
type KeyResponse struct {
	Type          string `json:"type"`
	KeyAlgorithm  string `json:"key_algorithm"` // e.g., "ECDSA-P384"
	COSEAlgorithm string `json:"cose_algorithm"`
	PublicKey     string `json:"public_key"` // PEM format
}
