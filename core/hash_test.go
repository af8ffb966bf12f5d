package core

import (
	"crypto/sha256"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

var testAuctionID = uuid.MustParse("6f1c2d1e-8a0b-4c1e-9f37-2f0d1b7e5a11")

func TestComputeBidHash(t *testing.T) {
	nonce := "test_nonce_456"
	total := amt(5000)

	hash := ComputeBidHash(testAuctionID, bidderA, total, 0, nonce)
	check.Equal(t, 64, len(hash))

	// Same inputs should produce same hash (deterministic)
	check.Equal(t, hash, ComputeBidHash(testAuctionID, bidderA, total, 0, nonce))

	// Verify exact hash calculation
	expectedData := fmt.Sprintf("%s|%s|%s|%s", testAuctionID.String(),
		"0xaaaa000000000000000000000000000000000001", "5000", nonce)
	check.Equal(t, fmt.Sprintf("%x", sha256.Sum256([]byte(expectedData))), hash)
}

func TestComputeBidHash_AmountFormatting(t *testing.T) {
	// Equal amounts built differently must hash the same
	a := ComputeBidHash(testAuctionID, bidderA, decimal.RequireFromString("5000"), 2, "n")
	b := ComputeBidHash(testAuctionID, bidderA, decimal.RequireFromString("5000.00"), 2, "n")
	c := ComputeBidHash(testAuctionID, bidderA, decimal.New(50, 2), 2, "n")
	check.Equal(t, a, b)
	check.Equal(t, a, c)

	d := ComputeBidHash(testAuctionID, bidderA, decimal.RequireFromString("5000.01"), 2, "n")
	check.NotEqual(t, a, d)
}

func TestComputeBidHash_DifferentInputs(t *testing.T) {
	base := ComputeBidHash(testAuctionID, bidderA, amt(5000), 0, "n")

	check.NotEqual(t, base, ComputeBidHash(uuid.New(), bidderA, amt(5000), 0, "n"))
	check.NotEqual(t, base, ComputeBidHash(testAuctionID, bidderB, amt(5000), 0, "n"))
	check.NotEqual(t, base, ComputeBidHash(testAuctionID, bidderA, amt(5001), 0, "n"))
	check.NotEqual(t, base, ComputeBidHash(testAuctionID, bidderA, amt(5000), 0, "m"))
}

func TestComputeBidHashes(t *testing.T) {
	bids := []BidEntry{
		{Seq: 1, Bidder: bidderC, Amount: amt(2000), Total: amt(2000)},
		{Seq: 2, Bidder: bidderA, Amount: amt(5000), Total: amt(5000)},
		{Seq: 3, Bidder: bidderC, Amount: amt(4000), Total: amt(6000)},
	}
	hashes := ComputeBidHashes(testAuctionID, bids, 0, "n")
	check.Equal(t, 3, len(hashes))
	check.Equal(t, ComputeBidHash(testAuctionID, bidderC, amt(6000), 0, "n"), hashes[2])
	check.Equal(t, 0, len(ComputeBidHashes(testAuctionID, nil, 0, "n")))
}

func TestComputeSettlementHash(t *testing.T) {
	winner := bidderA
	s := &Settlement{
		AuctionID: testAuctionID,
		AssetID:   7,
		Outcome:   OutcomeClosed,
		Winner:    &winner,
		Price:     amt(5000),
		Fee:       amt(200),
		Payout:    amt(4800),
		Penalty:   decimal.Zero,
		SettledAt: time.Unix(0, 0),
	}
	hash := ComputeSettlementHash(s, 0)

	expectedData := fmt.Sprintf("%s|7|closed|5000|200|4800|0", testAuctionID.String())
	check.Equal(t, fmt.Sprintf("%x", sha256.Sum256([]byte(expectedData))), hash)

	s.Payout = amt(4801)
	check.NotEqual(t, hash, ComputeSettlementHash(s, 0))
}
