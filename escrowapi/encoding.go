package escrowapi

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/openescrow/escrowapi/parsing"
)

// ReceiptCOSE is a raw tagged COSE_Sign1 settlement receipt.
type ReceiptCOSE []byte

// ReceiptCOSEBase64 is a receipt in standard base64, the form used in JSON responses.
type ReceiptCOSEBase64 string

// ReceiptCOSEURLBase64 is a receipt in unpadded base64url, safe for query strings.
type ReceiptCOSEURLBase64 string

// ReceiptCOSEGzip is a gzip-compressed receipt in unpadded base64url, the form carried in
// settlement notifications.
type ReceiptCOSEGzip string

func (r ReceiptCOSE) EncodeBase64() ReceiptCOSEBase64 {
	return ReceiptCOSEBase64(base64.StdEncoding.EncodeToString(r))
}

func (r ReceiptCOSE) EncodeURLSafe() ReceiptCOSEURLBase64 {
	return ReceiptCOSEURLBase64(base64.RawURLEncoding.EncodeToString(r))
}

// CompressGzip compresses the receipt and encodes it as base64url without padding.
func (r ReceiptCOSE) CompressGzip() (ReceiptCOSEGzip, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(r); err != nil {
		return "", fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("gzip close: %w", err)
	}
	return ReceiptCOSEGzip(base64.RawURLEncoding.EncodeToString(buf.Bytes())), nil
}

// ParsePayload extracts and decodes the CBOR payload without verifying the signature.
func (r ReceiptCOSE) ParsePayload() (*ReceiptPayload, error) {
	payloadBytes, err := parsing.ExtractCOSEPayload(r)
	if err != nil {
		return nil, fmt.Errorf("extract receipt payload: %w", err)
	}
	var payload ReceiptPayload
	if err := cbor.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, fmt.Errorf("parse receipt payload: %w", err)
	}
	return &payload, nil
}

func (b ReceiptCOSEBase64) String() string { return string(b) }

func (b ReceiptCOSEBase64) Decode() (ReceiptCOSE, error) {
	raw, err := base64.StdEncoding.DecodeString(string(b))
	if err != nil {
		return nil, fmt.Errorf("decode COSE base64: %w", err)
	}
	return ReceiptCOSE(raw), nil
}

// CompressGzip converts a base64 receipt into the compressed notification form.
func (b ReceiptCOSEBase64) CompressGzip() (ReceiptCOSEGzip, error) {
	raw, err := b.Decode()
	if err != nil {
		return "", err
	}
	return raw.CompressGzip()
}

func (u ReceiptCOSEURLBase64) String() string { return string(u) }

// Decode accepts both padded and unpadded input.
func (u ReceiptCOSEURLBase64) Decode() (ReceiptCOSE, error) {
	s := strings.TrimRight(string(u), "=")
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode COSE base64url: %w", err)
	}
	return ReceiptCOSE(raw), nil
}

func (g ReceiptCOSEGzip) String() string { return string(g) }

func (g ReceiptCOSEGzip) Decompress() (ReceiptCOSE, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(string(g))
	if err != nil {
		return nil, fmt.Errorf("decode base64url: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	return ReceiptCOSE(raw), nil
}
