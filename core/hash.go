package core

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ComputeBidHash computes the commitment to one accepted bid that settlement receipts carry.
// This is used by both the receipt signer (to generate hashes) and validation (to verify hashes).
//
// Formula: SHA256(auction_id + "|" + lowercase_hex(bidder) + "|" + total + "|" + nonce)
//
// The total is the bidder's stake after the bid, formatted with exactly precision fractional
// digits so the hash does not depend on how the decimal was constructed.
func ComputeBidHash(auctionID AuctionID, bidder Address, total decimal.Decimal, precision int32, nonce string) string {
	data := fmt.Sprintf("%s|%s|%s|%s", auctionID, strings.ToLower(bidder.Hex()), total.StringFixed(precision), nonce)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ComputeBidHashes hashes a bid log in order.
func ComputeBidHashes(auctionID AuctionID, bids []BidEntry, precision int32, nonce string) []string {
	hashes := make([]string, 0, len(bids))
	for _, bid := range bids {
		hashes = append(hashes, ComputeBidHash(auctionID, bid.Bidder, bid.Total, precision, nonce))
	}
	return hashes
}

// ComputeSettlementHash computes a digest of the value movement of a settlement.
//
// Formula: SHA256(auction_id + "|" + asset_id + "|" + outcome + "|" + price + "|" + fee + "|" + payout + "|" + penalty)
func ComputeSettlementHash(s *Settlement, precision int32) string {
	data := fmt.Sprintf("%s|%d|%s|%s|%s|%s|%s", s.AuctionID, s.AssetID, s.Outcome,
		s.Price.StringFixed(precision), s.Fee.StringFixed(precision),
		s.Payout.StringFixed(precision), s.Penalty.StringFixed(precision))
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
