package receipt

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestNewKeyManager(t *testing.T) {
	km, err := NewKeyManager()
	assert.NoError(t, err)
	assert.NotNil(t, km)
	assert.NotNil(t, km.privateKey)
	assert.NotNil(t, km.PublicKey)
	check.Equal(t, "P-384", km.PublicKey.Curve.Params().Name)
}

func TestKeyManager_PublicKeyPEM(t *testing.T) {
	km, err := NewKeyManager()
	assert.NoError(t, err)

	pemStr, err := km.PublicKeyPEM()
	assert.NoError(t, err)

	// Verify PEM format
	assert.True(t, strings.HasPrefix(pemStr, "-----BEGIN PUBLIC KEY-----"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(pemStr), "-----END PUBLIC KEY-----"))

	block, _ := pem.Decode([]byte(pemStr))
	assert.NotNil(t, block)
	assert.Equal(t, "PUBLIC KEY", block.Type)

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	assert.NoError(t, err)
	_, ok := key.(*ecdsa.PublicKey)
	check.True(t, ok)
}

func TestKeyManager_UniqueKeys(t *testing.T) {
	km1, _ := NewKeyManager()
	km2, _ := NewKeyManager()

	pem1, _ := km1.PublicKeyPEM()
	pem2, _ := km2.PublicKeyPEM()

	check.NotEqual(t, pem1, pem2)
	check.NotEqual(t, km1.KeyID(), km2.KeyID())
	check.Equal(t, 16, len(km1.KeyID()))
}

func TestLoadKeyManager_RoundTrip(t *testing.T) {
	km, err := NewKeyManager()
	assert.NoError(t, err)
	privatePEM, err := km.PrivateKeyPEM()
	assert.NoError(t, err)

	path := filepath.Join(t.TempDir(), "receipt.key")
	assert.NoError(t, os.WriteFile(path, []byte(privatePEM), 0o600))

	loaded, err := LoadKeyManager(path)
	assert.NoError(t, err)
	check.Equal(t, km.KeyID(), loaded.KeyID())
}

func TestParseKeyManager_Invalid(t *testing.T) {
	_, err := ParseKeyManager([]byte("not pem"))
	check.Error(t, err)

	_, err = ParseKeyManager(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: []byte{1}}))
	check.Error(t, err)

	_, err = LoadKeyManager(filepath.Join(t.TempDir(), "missing.key"))
	check.Error(t, err)
}
