package receipt

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/shopspring/decimal"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/openescrow/core"
	"github.com/cloudx-io/openescrow/escrowapi"
)

// ContentType is the protected content type header of every receipt.
const ContentType = "application/cbor"

// Signer produces signed settlement receipts.
type Signer struct {
	keys      *KeyManager
	signer    cose.Signer
	precision int32
	now       func() time.Time
	log       *slog.Logger
}

// NewSigner creates a Signer. precision is the number of fractional digits amounts are
// rendered with; it must match the engine's amount precision.
func NewSigner(keys *KeyManager, precision int32) (*Signer, error) {
	if keys == nil {
		return nil, fmt.Errorf("key manager is nil")
	}
	signer, err := cose.NewSigner(cose.AlgorithmES384, keys.privateKey)
	if err != nil {
		return nil, fmt.Errorf("create COSE signer: %w", err)
	}
	return &Signer{
		keys:      keys,
		signer:    signer,
		precision: precision,
		now:       time.Now,
		log:       slog.Default().With("pkg", "receipt"),
	}, nil
}

// Keys returns the signing key pair.
func (s *Signer) Keys() *KeyManager { return s.keys }

// KeyResponse describes the verification key.
func (s *Signer) KeyResponse() (*escrowapi.KeyResponse, error) {
	publicKeyPEM, err := s.keys.PublicKeyPEM()
	if err != nil {
		return nil, fmt.Errorf("failed to export public key: %w", err)
	}
	return &escrowapi.KeyResponse{
		Type:          "key_response",
		KeyAlgorithm:  KeyAlgorithm,
		COSEAlgorithm: COSEAlgorithm,
		PublicKey:     publicKeyPEM,
	}, nil
}

// Sign builds the receipt payload for settlement and signs it.
func (s *Signer) Sign(settlement *core.Settlement, feeRate decimal.Decimal) (escrowapi.ReceiptCOSE, *escrowapi.ReceiptPayload, error) {
	if settlement == nil {
		return nil, nil, fmt.Errorf("settlement is nil")
	}
	nonce, err := generateNonce()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate bid hash nonce: %w", err)
	}

	payload := BuildPayload(settlement, feeRate, s.precision, nonce)
	payload.SignedAtMillis = s.now().UnixMilli()

	payloadBytes, err := cbor.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal receipt payload: %w", err)
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES384)
	msg.Headers.Protected[cose.HeaderLabelContentType] = ContentType
	msg.Headers.Unprotected[cose.HeaderLabelKeyID] = []byte(s.keys.KeyID())
	msg.Payload = payloadBytes

	if err := msg.Sign(rand.Reader, nil, s.signer); err != nil {
		s.log.Error("receipt signing failed", "auction", settlement.AuctionID, "err", err)
		return nil, nil, fmt.Errorf("sign receipt: %w", err)
	}
	raw, err := msg.MarshalCBOR()
	if err != nil {
		return nil, nil, fmt.Errorf("marshal COSE_Sign1: %w", err)
	}

	s.log.Info("receipt signed", "auction", settlement.AuctionID, "outcome", settlement.Outcome,
		"bids", len(payload.BidHashes), "bytes", len(raw))
	return escrowapi.ReceiptCOSE(raw), payload, nil
}

// BuildPayload renders a settlement into the signed receipt document. Bidder identities
// only appear hashed with nonce; the winner is disclosed.
func BuildPayload(settlement *core.Settlement, feeRate decimal.Decimal, precision int32, nonce string) *escrowapi.ReceiptPayload {
	payload := &escrowapi.ReceiptPayload{
		Version:         escrowapi.ReceiptVersion,
		AuctionID:       settlement.AuctionID.String(),
		AssetID:         uint64(settlement.AssetID),
		Outcome:         string(settlement.Outcome),
		Seller:          lowerHex(settlement.Seller),
		Price:           settlement.Price.StringFixed(precision),
		Fee:             settlement.Fee.StringFixed(precision),
		Payout:          settlement.Payout.StringFixed(precision),
		Penalty:         settlement.Penalty.StringFixed(precision),
		FeeRecipient:    lowerHex(settlement.FeeRecipient),
		FeeRate:         feeRate.String(),
		Precision:       precision,
		BidHashes:       core.ComputeBidHashes(settlement.AuctionID, settlement.Bids, precision, nonce),
		BidHashNonce:    nonce,
		SettlementHash:  core.ComputeSettlementHash(settlement, precision),
		SettledAtMillis: settlement.SettledAt.UnixMilli(),
	}
	if settlement.Winner != nil {
		payload.Winner = lowerHex(*settlement.Winner)
	}
	return payload
}

func lowerHex(addr core.Address) string {
	return strings.ToLower(addr.Hex())
}

func generateNonce() (string, error) {
	randomBytes := make([]byte, 32) // 256 bits of entropy
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("entropy generation failed: %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}
