package parsing

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// COSESign1Tag is the CBOR tag number of a tagged COSE_Sign1 message (RFC 9052).
const COSESign1Tag = 18

// ExtractCOSEPayload extracts the payload from a COSE_Sign1 4-element array
// COSE_Sign1 structure: [protected, unprotected, payload, signature]
// Both the tagged and the untagged forms are accepted.
// Returns the payload bytes (element 2)
func ExtractCOSEPayload(coseBytes []byte) ([]byte, error) {
	coseArray, err := decodeSign1Array(coseBytes)
	if err != nil {
		return nil, err
	}

	payload, ok := coseArray[2].([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid payload in COSE structure")
	}

	return payload, nil
}

// StripSign1Tag returns the untagged COSE_Sign1 array bytes.
func StripSign1Tag(coseBytes []byte) ([]byte, error) {
	var tagged cbor.RawTag
	if err := cbor.Unmarshal(coseBytes, &tagged); err != nil {
		// not a tag: assume an untagged array
		return coseBytes, nil
	}
	if tagged.Number != COSESign1Tag {
		return nil, fmt.Errorf("unexpected CBOR tag %d, want %d", tagged.Number, COSESign1Tag)
	}
	return tagged.Content, nil
}

func decodeSign1Array(coseBytes []byte) ([]any, error) {
	body, err := StripSign1Tag(coseBytes)
	if err != nil {
		return nil, err
	}

	var coseArray []any
	if err := cbor.Unmarshal(body, &coseArray); err != nil {
		return nil, fmt.Errorf("parse COSE array: %w", err)
	}

	if len(coseArray) != 4 {
		return nil, fmt.Errorf("invalid COSE_Sign1 structure: expected 4 elements, got %d", len(coseArray))
	}
	return coseArray, nil
}
