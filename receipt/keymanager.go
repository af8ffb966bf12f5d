// Package receipt signs settlement receipts. A receipt is a CBOR payload describing the value
// movement of a cancel or close, wrapped in a tagged COSE_Sign1 message signed with ES384.
package receipt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
)

const (
	KeyAlgorithm  = "ECDSA-P384"
	COSEAlgorithm = "ES384"
)

// KeyManager holds the receipt signing key pair.
type KeyManager struct {
	privateKey *ecdsa.PrivateKey // Keep private - sensitive!
	PublicKey  *ecdsa.PublicKey
}

// NewKeyManager creates a new KeyManager and generates a fresh P-384 key pair
func NewKeyManager() (*KeyManager, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	return &KeyManager{
		privateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
	}, nil
}

// LoadKeyManager reads a PEM-encoded P-384 private key (SEC 1 or PKCS #8) from path.
func LoadKeyManager(path string) (*KeyManager, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	return ParseKeyManager(pemBytes)
}

// ParseKeyManager decodes a PEM-encoded P-384 private key.
func ParseKeyManager(pemBytes []byte) (*KeyManager, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in signing key")
	}

	var privateKey *ecdsa.PrivateKey
	switch block.Type {
	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse EC private key: %w", err)
		}
		privateKey = key
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKCS #8 private key: %w", err)
		}
		ecKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("signing key is %T, want ECDSA", key)
		}
		privateKey = ecKey
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}

	if privateKey.Curve != elliptic.P384() {
		return nil, fmt.Errorf("signing key curve is %s, want P-384", privateKey.Curve.Params().Name)
	}
	return &KeyManager{
		privateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
	}, nil
}

// PrivateKeyPEM returns the private key in SEC 1 PEM format for persisting.
func (km *KeyManager) PrivateKeyPEM() (string, error) {
	der, err := x509.MarshalECPrivateKey(km.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal private key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})), nil
}

// PublicKeyPEM returns the public key in PEM format
func (km *KeyManager) PublicKeyPEM() (string, error) {
	derBytes, err := x509.MarshalPKIXPublicKey(km.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	pemBlock := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: derBytes,
	}

	return string(pem.EncodeToMemory(pemBlock)), nil
}

// KeyID is a short fingerprint of the public key carried in every receipt header.
func (km *KeyManager) KeyID() string {
	derBytes, err := x509.MarshalPKIXPublicKey(km.PublicKey)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(derBytes)
	return hex.EncodeToString(sum[:8])
}
