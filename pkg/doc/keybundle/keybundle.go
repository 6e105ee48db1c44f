/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package keybundle converts named bundles of curve elements between three
// mutually convertible representations: a line-oriented tagged text format,
// a byte-map form of raw compressed encodings and a canonical CBOR encoding
// of that byte-map. A bundle optionally carries an attribute map under the
// reserved name "atr", which is never a cryptographic component.
package keybundle

import (
	"errors"
	"fmt"
	"sort"

	"github.com/absauthn/absauthn/pkg/crypto/curve"
)

// AttributeKey is the reserved component name holding the attribute map.
const AttributeKey = "atr"

var (
	// ErrUnknownKeyType is returned when a text component carries an unrecognized type tag.
	ErrUnknownKeyType = errors.New("unknown key type tag")

	// ErrUnknownKeyLength is returned when a byte-map entry's length matches no known element type.
	ErrUnknownKeyLength = errors.New("no key type for encoded length")

	// ErrMalformedCBOR is returned when CBOR data does not have the expected key bundle shape.
	ErrMalformedCBOR = errors.New("malformed CBOR key bundle")

	// ErrReservedName is returned when a cryptographic component is stored under the attribute key.
	ErrReservedName = errors.New("component name is reserved")
)

// AttributeMap maps attribute names to integer values.
type AttributeMap map[string]int64

// Bundle is a named collection of curve elements plus an optional attribute
// map. Component names are unique within a bundle.
type Bundle struct {
	components map[string]*curve.Element
	attributes AttributeMap
}

// New returns an empty bundle.
func New() *Bundle {
	return &Bundle{components: make(map[string]*curve.Element)}
}

// Set stores a component under the given name, replacing any previous value.
// The attribute key is reserved and cannot hold a component.
func (b *Bundle) Set(name string, el *curve.Element) error {
	if name == AttributeKey {
		return fmt.Errorf("%w: %q", ErrReservedName, name)
	}

	b.components[name] = el

	return nil
}

// Get returns the component stored under the given name, or nil.
func (b *Bundle) Get(name string) *curve.Element {
	return b.components[name]
}

// Names returns the component names in sorted order.
func (b *Bundle) Names() []string {
	names := make([]string, 0, len(b.components))
	for name := range b.components {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Len returns the number of components.
func (b *Bundle) Len() int {
	return len(b.components)
}

// Attributes returns the attribute map, which is nil when the bundle
// carries no attributes.
func (b *Bundle) Attributes() AttributeMap {
	return b.attributes
}

// SetAttributes replaces the attribute map.
func (b *Bundle) SetAttributes(attrs AttributeMap) {
	b.attributes = attrs
}

// Equal reports whether two bundles hold the same components and attributes.
func (b *Bundle) Equal(other *Bundle) bool {
	if other == nil || len(b.components) != len(other.components) ||
		len(b.attributes) != len(other.attributes) {
		return false
	}

	for name, el := range b.components {
		otherEl, ok := other.components[name]
		if !ok || !el.Equal(otherEl) {
			return false
		}
	}

	for name, val := range b.attributes {
		otherVal, ok := other.attributes[name]
		if !ok || val != otherVal {
			return false
		}
	}

	return true
}
