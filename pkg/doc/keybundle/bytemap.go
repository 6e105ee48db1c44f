/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keybundle

import (
	"fmt"

	"github.com/absauthn/absauthn/pkg/crypto/curve"
)

// ByteMap is the untagged representation of a bundle: each component name
// maps to the raw compressed encoding of its element, and the attribute map
// is carried through unchanged. This is the form fed into CBOR encoding.
type ByteMap struct {
	Components map[string][]byte
	Attributes AttributeMap
}

// ToByteMap converts the bundle to its byte-map representation.
func ToByteMap(b *Bundle) *ByteMap {
	m := &ByteMap{Components: make(map[string][]byte, b.Len())}

	for _, name := range b.Names() {
		m.Components[name] = b.Get(name).Bytes()
	}

	if attrs := b.Attributes(); len(attrs) > 0 {
		m.Attributes = make(AttributeMap, len(attrs))
		for name, val := range attrs {
			m.Attributes[name] = val
		}
	}

	return m
}

// FromByteMap decodes the byte-map representation back into a bundle. With
// no explicit tags the component type is inferred from the encoded length
// alone: 33 bytes is a G1 point and 65 bytes a G2 point. Scalar-width
// entries have no inference rule in this form; they are left out of the
// bundle and reported back in the skipped list so no data is lost silently.
// Any other length is an error. Inferred points must still pass the group
// membership gate.
func FromByteMap(m *ByteMap) (*Bundle, []string, error) {
	bundle := New()

	var skipped []string

	for name, data := range m.Components {
		var typ curve.ElementType

		switch len(data) {
		case curve.G1CompressedSize:
			typ = curve.G1
		case curve.G2CompressedSize:
			typ = curve.G2
		case curve.ScalarSize:
			skipped = append(skipped, name)
			continue
		default:
			return nil, nil, fmt.Errorf("component %q: %w: %d bytes", name, ErrUnknownKeyLength, len(data))
		}

		el, err := curve.Decode(data, typ)
		if err != nil {
			return nil, nil, fmt.Errorf("component %q: %w", name, err)
		}

		if err := bundle.Set(name, el); err != nil {
			return nil, nil, err
		}
	}

	if len(m.Attributes) > 0 {
		attrs := make(AttributeMap, len(m.Attributes))
		for name, val := range m.Attributes {
			attrs[name] = val
		}

		bundle.SetAttributes(attrs)
	}

	return bundle, skipped, nil
}
