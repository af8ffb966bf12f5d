package parsing

import (
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func sign1Array(t *testing.T, payload []byte) []byte {
	t.Helper()
	raw, err := cbor.Marshal([]any{[]byte{0xa0}, map[any]any{}, payload, []byte("signature")})
	assert.NoError(t, err)
	return raw
}

func TestExtractCOSEPayload_Untagged(t *testing.T) {
	payload, err := ExtractCOSEPayload(sign1Array(t, []byte("payload")))
	check.NoError(t, err)
	check.Equal(t, []byte("payload"), payload)
}

func TestExtractCOSEPayload_Tagged(t *testing.T) {
	raw, err := cbor.Marshal(cbor.RawTag{Number: COSESign1Tag, Content: sign1Array(t, []byte("payload"))})
	assert.NoError(t, err)

	payload, err := ExtractCOSEPayload(raw)
	check.NoError(t, err)
	check.Equal(t, []byte("payload"), payload)
}

func TestExtractCOSEPayload_Invalid(t *testing.T) {
	wrongTag, err := cbor.Marshal(cbor.RawTag{Number: 98, Content: sign1Array(t, []byte("payload"))})
	assert.NoError(t, err)
	shortArray, err := cbor.Marshal([]any{[]byte{}, []byte{}})
	assert.NoError(t, err)
	textPayload, err := cbor.Marshal([]any{[]byte{}, map[any]any{}, "text", []byte{}})
	assert.NoError(t, err)

	tests := []struct {
		name    string
		input   []byte
		wantErr string
	}{
		{"wrong tag", wrongTag, "unexpected CBOR tag"},
		{"two elements", shortArray, "expected 4 elements"},
		{"text payload", textPayload, "invalid payload"},
		{"not cbor", []byte{0xff, 0x00}, "parse COSE array"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractCOSEPayload(tt.input)
			check.Error(t, err)
			check.True(t, strings.Contains(err.Error(), tt.wantErr))
		})
	}
}
