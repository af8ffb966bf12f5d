package validation

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/veraison/go-cose"

	"github.com/cloudx-io/openescrow/escrowapi"
)

// ParsePublicKeyPEM decodes a PEM-encoded P-384 public key.
func ParsePublicKeyPEM(publicKeyPEM string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("no PUBLIC KEY PEM block found")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	ecdsaKey, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not ECDSA")
	}
	if ecdsaKey.Curve != elliptic.P384() {
		return nil, fmt.Errorf("public key curve is %s, want P-384", ecdsaKey.Curve.Params().Name)
	}
	return ecdsaKey, nil
}

// VerifyCOSESignature verifies a tagged COSE_Sign1 receipt against a PEM-encoded public key.
// Receipts are signed with ES384 (ECDSA P-384 with SHA-384) and no external AAD.
func VerifyCOSESignature(receipt escrowapi.ReceiptCOSE, publicKeyPEM string) error {
	publicKey, err := ParsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return err
	}

	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(receipt); err != nil {
		return fmt.Errorf("parse COSE_Sign1: %w", err)
	}

	alg, err := msg.Headers.Protected.Algorithm()
	if err != nil {
		return fmt.Errorf("read algorithm header: %w", err)
	}
	if alg != cose.AlgorithmES384 {
		return fmt.Errorf("unexpected signing algorithm %s", alg)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES384, publicKey)
	if err != nil {
		return fmt.Errorf("create verifier: %w", err)
	}

	if err := msg.Verify(nil, verifier); err != nil {
		return fmt.Errorf("COSE signature verification failed: %w", err)
	}
	return nil
}
