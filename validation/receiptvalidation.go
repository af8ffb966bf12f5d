package validation

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/openescrow/core"
	"github.com/cloudx-io/openescrow/escrowapi"
)

// ValidateReceipt validates a settlement receipt and verifies:
// - The COSE signature matches the published key
// - The settlement hash matches the disclosed amounts
// - Value is conserved (fee + payout == price for a close, penalty only for a cancel)
// - Auction id and fee rate match, when expected values are given
// - The bidder's final stake was included in the bid log
// - Winner/loser determination
//
// Returns:
//   - ReceiptValidationResult with detailed results (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (e.g., malformed input)
func ValidateReceipt(input *ReceiptValidationInput) (*ReceiptValidationResult, error) {
	receipt, err := decodeReceipt(input)
	if err != nil {
		return nil, err
	}

	payload, err := receipt.ParsePayload()
	if err != nil {
		return nil, fmt.Errorf("failed to parse receipt payload: %w", err)
	}

	result := &ReceiptValidationResult{Payload: payload}

	if err := VerifyCOSESignature(receipt, input.PublicKeyPEM); err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Signature invalid: %v", err))
	} else {
		result.SignatureValid = true
		result.ValidationDetails = append(result.ValidationDetails, "Signature verified with ES384")
	}

	amounts, err := parseAmounts(payload)
	if err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Malformed amounts: %v", err))
		return result, nil
	}

	result.SettlementHashValid = validateSettlementHash(payload, amounts, result)
	result.ConservationValid = validateConservation(payload, amounts, result)
	result.AuctionIDValid = validateAuctionID(input, payload, result)
	result.FeeRateValid = validateFeeRate(input, payload, amounts, result)
	result.BidHashValid = validateBidHash(input, payload, result)
	result.WinnerValid = validateWinner(input, payload, result)

	return result, nil
}

func decodeReceipt(input *ReceiptValidationInput) (escrowapi.ReceiptCOSE, error) {
	switch {
	case input.ReceiptGzip != "":
		receipt, err := input.ReceiptGzip.Decompress()
		if err != nil {
			return nil, fmt.Errorf("decompress receipt: %w", err)
		}
		return receipt, nil
	case input.ReceiptBase64 != "":
		receipt, err := input.ReceiptBase64.Decode()
		if err != nil {
			return nil, fmt.Errorf("decode receipt: %w", err)
		}
		return receipt, nil
	default:
		return nil, fmt.Errorf("no receipt provided")
	}
}

type receiptAmounts struct {
	auctionID                   uuid.UUID
	price, fee, payout, penalty decimal.Decimal
}

func parseAmounts(payload *escrowapi.ReceiptPayload) (*receiptAmounts, error) {
	auctionID, err := uuid.Parse(payload.AuctionID)
	if err != nil {
		return nil, fmt.Errorf("auction id: %w", err)
	}
	fields := []struct {
		name  string
		value string
	}{
		{"price", payload.Price}, {"fee", payload.Fee}, {"payout", payload.Payout}, {"penalty", payload.Penalty},
	}
	parsed := make([]decimal.Decimal, len(fields))
	for i, f := range fields {
		d, err := decimal.NewFromString(f.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		parsed[i] = d
	}
	return &receiptAmounts{
		auctionID: auctionID,
		price:     parsed[0],
		fee:       parsed[1],
		payout:    parsed[2],
		penalty:   parsed[3],
	}, nil
}

func validateSettlementHash(payload *escrowapi.ReceiptPayload, amounts *receiptAmounts, result *ReceiptValidationResult) bool {
	computed := core.ComputeSettlementHash(&core.Settlement{
		AuctionID: amounts.auctionID,
		AssetID:   core.AssetID(payload.AssetID),
		Outcome:   core.Outcome(payload.Outcome),
		Price:     amounts.price,
		Fee:       amounts.fee,
		Payout:    amounts.payout,
		Penalty:   amounts.penalty,
	}, payload.Precision)

	if computed == payload.SettlementHash {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Settlement hash validation passed: %s", computed))
		return true
	}
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Settlement hash mismatch: computed %s, receipt has %s", computed, payload.SettlementHash))
	return false
}

func validateConservation(payload *escrowapi.ReceiptPayload, amounts *receiptAmounts, result *ReceiptValidationResult) bool {
	switch core.Outcome(payload.Outcome) {
	case core.OutcomeClosed:
		if !amounts.fee.Add(amounts.payout).Equal(amounts.price) {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Conservation failed: fee %s + payout %s != price %s", payload.Fee, payload.Payout, payload.Price))
			return false
		}
		if !amounts.penalty.IsZero() {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Conservation failed: close carries penalty %s", payload.Penalty))
			return false
		}
		if payload.Winner == "" && !amounts.price.IsZero() {
			result.ValidationDetails = append(result.ValidationDetails, "Conservation failed: close without winner moved funds")
			return false
		}
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Conservation passed: %s = %s + %s", payload.Price, payload.Fee, payload.Payout))
		return true
	case core.OutcomeCancelled:
		if !amounts.price.IsZero() || !amounts.fee.IsZero() || !amounts.payout.IsZero() || payload.Winner != "" {
			result.ValidationDetails = append(result.ValidationDetails, "Conservation failed: cancel settled a price")
			return false
		}
		if !amounts.penalty.IsPositive() {
			result.ValidationDetails = append(result.ValidationDetails, "Conservation failed: cancel without penalty")
			return false
		}
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Conservation passed: penalty %s", payload.Penalty))
		return true
	default:
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Unknown outcome %q", payload.Outcome))
		return false
	}
}

func validateAuctionID(input *ReceiptValidationInput, payload *escrowapi.ReceiptPayload, result *ReceiptValidationResult) bool {
	if input.AuctionID == "" {
		return true
	}
	if strings.EqualFold(input.AuctionID, payload.AuctionID) {
		result.ValidationDetails = append(result.ValidationDetails, "Auction id matches")
		return true
	}
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Auction id mismatch: expected %s, receipt has %s", input.AuctionID, payload.AuctionID))
	return false
}

func validateFeeRate(input *ReceiptValidationInput, payload *escrowapi.ReceiptPayload, amounts *receiptAmounts, result *ReceiptValidationResult) bool {
	if input.FeeRate == "" {
		return true
	}
	expected, err := decimal.NewFromString(input.FeeRate)
	if err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Expected fee rate is malformed: %v", err))
		return false
	}
	attested, err := decimal.NewFromString(payload.FeeRate)
	if err != nil || !attested.Equal(expected) {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Fee rate mismatch: expected %s, receipt has %s", input.FeeRate, payload.FeeRate))
		return false
	}

	if core.Outcome(payload.Outcome) == core.OutcomeClosed {
		fee, _ := core.SplitFee(amounts.price, expected, payload.Precision)
		if !fee.Equal(amounts.fee) {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Fee mismatch: %s of %s is %s, receipt has %s", input.FeeRate, payload.Price, fee, payload.Fee))
			return false
		}
	}
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Fee rate validation passed: %s", payload.FeeRate))
	return true
}

func validateBidHash(input *ReceiptValidationInput, payload *escrowapi.ReceiptPayload, result *ReceiptValidationResult) bool {
	if input.Bidder == "" {
		return true
	}
	if payload.BidHashNonce == "" {
		result.ValidationDetails = append(result.ValidationDetails, "Bid hash nonce missing from receipt")
		return false
	}
	if !common.IsHexAddress(input.Bidder) {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bidder %q is not a hex address", input.Bidder))
		return false
	}
	total, err := decimal.NewFromString(input.BidTotal)
	if err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bid total is malformed: %v", err))
		return false
	}
	auctionID, err := uuid.Parse(payload.AuctionID)
	if err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Auction id is malformed: %v", err))
		return false
	}

	computedHash := core.ComputeBidHash(auctionID, common.HexToAddress(input.Bidder), total, payload.Precision, payload.BidHashNonce)
	for _, attestedHash := range payload.BidHashes {
		if computedHash == attestedHash {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bid hash found in receipt: %s", computedHash))
			return true
		}
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bid hash NOT found in receipt. Computed: %s", computedHash))
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Total hashes in receipt: %d", len(payload.BidHashes)))
	return false
}

func validateWinner(input *ReceiptValidationInput, payload *escrowapi.ReceiptPayload, result *ReceiptValidationResult) bool {
	if input.Bidder == "" {
		return true
	}
	actuallyWon := payload.Winner != "" && strings.EqualFold(payload.Winner, input.Bidder)

	if input.IsWinner == actuallyWon {
		if actuallyWon {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Winner validation passed: bid won as expected (price: %s)", payload.Price))
		} else {
			result.ValidationDetails = append(result.ValidationDetails, "Winner validation passed: bid lost as expected")
		}
		return true
	}

	if input.IsWinner {
		result.ValidationDetails = append(result.ValidationDetails, "Winner validation failed: expected to win, but did not win")
	} else {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Winner validation failed: expected to lose, but won with price %s", payload.Price))
	}
	return false
}
