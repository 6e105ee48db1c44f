/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keybundle

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// nolint:gochecknoglobals
var encMode, _ = cbor.CanonicalEncOptions().EncMode()

// EncodeCBOR encodes the byte-map representation as a canonical CBOR map of
// string keys to byte strings, with the attribute map nested under "atr" as
// a map of string to integer.
func EncodeCBOR(m *ByteMap) ([]byte, error) {
	out := make(map[string]interface{}, len(m.Components)+1)

	for name, data := range m.Components {
		out[name] = data
	}

	if len(m.Attributes) > 0 {
		out[AttributeKey] = map[string]int64(m.Attributes)
	}

	data, err := encMode.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode key bundle CBOR: %w", err)
	}

	return data, nil
}

// DecodeCBOR decodes a CBOR key bundle map back into its byte-map
// representation.
func DecodeCBOR(data []byte) (*ByteMap, error) {
	var raw map[string]cbor.RawMessage

	if err := cbor.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedCBOR, err.Error())
	}

	m := &ByteMap{Components: make(map[string][]byte, len(raw))}

	for name, value := range raw {
		if name == AttributeKey {
			var attrs map[string]int64

			if err := cbor.Unmarshal(value, &attrs); err != nil {
				return nil, fmt.Errorf("%w: attribute map: %s", ErrMalformedCBOR, err.Error())
			}

			m.Attributes = attrs

			continue
		}

		var component []byte

		if err := cbor.Unmarshal(value, &component); err != nil {
			return nil, fmt.Errorf("%w: component %q: %s", ErrMalformedCBOR, name, err.Error())
		}

		m.Components[name] = component
	}

	return m, nil
}
