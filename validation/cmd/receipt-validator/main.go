package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cloudx-io/openescrow/escrowapi"
	"github.com/cloudx-io/openescrow/validation"
)

func main() {
	var (
		receiptInput = flag.String("receipt", "", "Close/cancel response or notification JSON (file path or inline JSON)")
		keyInput     = flag.String("key", "", "Receipt public key (PEM file, inline PEM, or /receipts/key JSON)")
		bidInput     = flag.String("bid", "", "Optional bid expectation JSON (file path or inline JSON)")
		auctionID    = flag.String("auction-id", "", "Optional expected auction id")
		feeRate      = flag.String("fee-rate", "", "Optional expected fee rate, e.g. 0.04")
		outputFormat = flag.String("format", "text", "Output format: text or json")
		help         = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	if *help {
		showUsage()
		os.Exit(0)
	}

	if *receiptInput == "" || *keyInput == "" {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: --receipt and --key are required\n")
		os.Exit(1)
	}

	receiptJSON, err := readInput(*receiptInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading receipt: %v\n", err)
		os.Exit(2)
	}

	keyData, err := readInput(*keyInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading key: %v\n", err)
		os.Exit(2)
	}

	var bidJSON []byte
	if *bidInput != "" {
		if bidJSON, err = readInput(*bidInput); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading bid: %v\n", err)
			os.Exit(2)
		}
	}

	validationInput, err := extractValidationInput(receiptJSON, keyData, bidJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error extracting validation data: %v\n", err)
		os.Exit(2)
	}
	validationInput.AuctionID = *auctionID
	validationInput.FeeRate = *feeRate

	result, err := validation.ValidateReceipt(validationInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	if *outputFormat == "json" {
		outputJSON(result)
	} else {
		outputText(result)
	}

	if !result.IsValid() {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	fmt.Println("Escrow Settlement Receipt Validator")
	fmt.Println()
	fmt.Println("Verifies a signed settlement receipt returned by cancel_auction or close_auction.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  receipt-validator --receipt <json> --key <pem> [options]")
	fmt.Println()
	fmt.Println("Required Flags:")
	fmt.Println("  --receipt <json>                  Close/cancel response or notification")
	fmt.Println("  --key <pem>                       Receipt public key")
	fmt.Println()
	fmt.Println("Optional Flags:")
	fmt.Println("  --bid <json>                      Bid expectation to check against the bid log")
	fmt.Println("  --auction-id <uuid>               Expected auction id")
	fmt.Println("  --fee-rate <decimal>              Expected fee rate")
	fmt.Println("  --format <text|json>              Output format (default: text)")
	fmt.Println("  --help                            Show this help message")
	fmt.Println()
	fmt.Println("Input Format:")
	fmt.Println("  Each flag accepts either a file path or an inline value.")
	fmt.Println()
	fmt.Println("Receipt (close_auction_response):")
	fmt.Println("  {")
	fmt.Println("    \"type\": \"close_auction_response\",")
	fmt.Println("    \"receipt_cose_base64\": \"0oRYI6...\"")
	fmt.Println("  }")
	fmt.Println()
	fmt.Println("Receipt (notification):")
	fmt.Println("  {")
	fmt.Println("    \"receipt_cose_gzip_base64\": \"H4sIAAAA...\"")
	fmt.Println("  }")
	fmt.Println()
	fmt.Println("Bid:")
	fmt.Println("  {")
	fmt.Println("    \"bidder\": \"0xaaaa...\",")
	fmt.Println("    \"total\": \"5000\",                                 // stake after the last bid")
	fmt.Println("    \"is_winner\": true")
	fmt.Println("  }")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  receipt-validator \\")
	fmt.Println("    --receipt close_response.json \\")
	fmt.Println("    --key receipt_key.pem \\")
	fmt.Println("    --bid '{\"bidder\":\"0xaaaa000000000000000000000000000000000001\",\"total\":\"5000\",\"is_winner\":true}' \\")
	fmt.Println("    --fee-rate 0.04")
	fmt.Println()
	fmt.Println("Exit Codes:")
	fmt.Println("  0 - Validation passed")
	fmt.Println("  1 - Validation failed")
	fmt.Println("  2 - Invalid input or runtime error")
}

func readInput(input string) ([]byte, error) {
	// Try reading as file first
	if data, err := os.ReadFile(input); err == nil {
		return data, nil
	}
	return []byte(input), nil
}

func extractValidationInput(receiptJSON, keyData, bidJSON []byte) (*validation.ReceiptValidationInput, error) {
	var envelope struct {
		Receipt     string `json:"receipt_cose_base64"`
		ReceiptGzip string `json:"receipt_cose_gzip_base64"`
	}
	if err := json.Unmarshal(receiptJSON, &envelope); err != nil {
		return nil, fmt.Errorf("parse receipt: %w", err)
	}
	if envelope.Receipt == "" && envelope.ReceiptGzip == "" {
		return nil, fmt.Errorf("missing 'receipt_cose_base64' or 'receipt_cose_gzip_base64' in receipt input")
	}

	input := &validation.ReceiptValidationInput{
		ReceiptBase64: escrowapi.ReceiptCOSEBase64(envelope.Receipt),
		ReceiptGzip:   escrowapi.ReceiptCOSEGzip(envelope.ReceiptGzip),
		PublicKeyPEM:  extractPEM(keyData),
	}

	if len(bidJSON) > 0 {
		var bid struct {
			Bidder   string `json:"bidder"`
			Total    string `json:"total"`
			IsWinner bool   `json:"is_winner"`
		}
		if err := json.Unmarshal(bidJSON, &bid); err != nil {
			return nil, fmt.Errorf("parse bid: %w", err)
		}
		if bid.Bidder == "" || bid.Total == "" {
			return nil, fmt.Errorf("bid requires 'bidder' and 'total'")
		}
		input.Bidder = bid.Bidder
		input.BidTotal = bid.Total
		input.IsWinner = bid.IsWinner
	}
	return input, nil
}

// extractPEM accepts a raw PEM or the JSON served at /receipts/key.
func extractPEM(keyData []byte) string {
	trimmed := strings.TrimSpace(string(keyData))
	if strings.HasPrefix(trimmed, "{") {
		var key escrowapi.KeyResponse
		if err := json.Unmarshal(keyData, &key); err == nil && key.PublicKey != "" {
			return key.PublicKey
		}
	}
	return trimmed
}

func outputText(result *validation.ReceiptValidationResult) {
	fmt.Println("Escrow Settlement Receipt Validator")
	fmt.Println("===================================")
	fmt.Println()

	if p := result.Payload; p != nil {
		fmt.Println("Receipt:")
		fmt.Printf("  Auction:                 %s (asset %d)\n", p.AuctionID, p.AssetID)
		fmt.Printf("  Outcome:                 %s\n", p.Outcome)
		if p.Winner != "" {
			fmt.Printf("  Winner:                  %s\n", p.Winner)
		}
		fmt.Printf("  Price / Fee / Payout:    %s / %s / %s\n", p.Price, p.Fee, p.Payout)
		fmt.Printf("  Penalty:                 %s\n", p.Penalty)
		fmt.Printf("  Settled At:              %s\n", p.SettledAt().Format("2006-01-02T15:04:05.000Z07:00"))
		fmt.Println()
	}

	fmt.Println("Summary:")
	fmt.Printf("  Signature Valid:         %v\n", result.SignatureValid)
	fmt.Printf("  Settlement Hash Valid:   %v\n", result.SettlementHashValid)
	fmt.Printf("  Conservation Valid:      %v\n", result.ConservationValid)
	fmt.Printf("  Auction ID Valid:        %v\n", result.AuctionIDValid)
	fmt.Printf("  Fee Rate Valid:          %v\n", result.FeeRateValid)
	fmt.Printf("  Bid Hash Valid:          %v\n", result.BidHashValid)
	fmt.Printf("  Winner Valid:            %v\n", result.WinnerValid)

	fmt.Println()
	fmt.Println("Details:")
	for _, detail := range result.ValidationDetails {
		fmt.Printf("  - %s\n", detail)
	}

	fmt.Println()
	fmt.Println("===================================")
	if result.IsValid() {
		fmt.Println("VALIDATION: ✓ PASSED")
		fmt.Println("Exit Code: 0")
	} else {
		fmt.Println("VALIDATION: ✗ FAILED")
		fmt.Println("Exit Code: 1")
	}
}

func outputJSON(result *validation.ReceiptValidationResult) {
	output := map[string]any{
		"valid":                 result.IsValid(),
		"signature_valid":       result.SignatureValid,
		"settlement_hash_valid": result.SettlementHashValid,
		"conservation_valid":    result.ConservationValid,
		"auction_id_valid":      result.AuctionIDValid,
		"fee_rate_valid":        result.FeeRateValid,
		"bid_hash_valid":        result.BidHashValid,
		"winner_valid":          result.WinnerValid,
		"details":               result.ValidationDetails,
		"receipt":               result.Payload,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}
