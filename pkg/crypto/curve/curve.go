/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package curve provides field and group element primitives over the FP256BN
// pairing-friendly curve: random scalar sampling, deterministic hash-to-curve
// for G1 and G2, fixed-length compressed encodings and the group membership
// gates that every decoded point must pass before it is trusted as key
// material.
package curve

import (
	"errors"
	"fmt"
	"io"

	ml "github.com/IBM/mathlib"
)

//nolint:gochecknoglobals
var curve = ml.Curves[ml.FP256BN_AMCL_MIRACL]

//nolint:gochecknoglobals
var (
	// ScalarSize is the number of bytes in the fixed-width scalar encoding.
	ScalarSize = curve.ScalarByteSize

	// G1CompressedSize is the number of bytes in a compressed G1 point (33 for FP256BN).
	G1CompressedSize = curve.CompressedG1ByteSize

	// G2CompressedSize is the number of bytes in a compressed G2 point (65 for FP256BN).
	G2CompressedSize = curve.CompressedG2ByteSize
)

// hashToG2DST domain-separates the G2 hash from other uses of HashToZr.
const hashToG2DST = "ABSAUTHN_HASH_TO_G2_FP256BN"

// Encode/decode errors.
var (
	// ErrMalformedEncoding is returned when an encoding's length does not match the expected element type.
	ErrMalformedEncoding = errors.New("malformed element encoding")

	// ErrNotOnCurve is returned when point bytes do not decode to a curve point.
	ErrNotOnCurve = errors.New("point is not on the curve")

	// ErrNotInSubgroup is returned when a decoded point fails the group membership check.
	ErrNotInSubgroup = errors.New("point is not in the expected subgroup")
)

// ElementType identifies which group (or field) an Element belongs to.
type ElementType int

// Element types.
const (
	Scalar ElementType = iota
	G1
	G2
)

// String returns the type tag used by the text key format.
func (t ElementType) String() string {
	switch t {
	case Scalar:
		return "SCALAR"
	case G1:
		return "G1"
	case G2:
		return "G2"
	default:
		return "UNKNOWN"
	}
}

// Element is a tagged union of a scalar field element, a G1 point or a G2
// point. The type is fixed at construction time so callers never need to
// guess it from an encoding.
type Element struct {
	typ    ElementType
	scalar *ml.Zr
	g1     *ml.G1
	g2     *ml.G2
}

// NewScalar wraps a field element.
func NewScalar(z *ml.Zr) *Element {
	return &Element{typ: Scalar, scalar: z}
}

// NewG1 wraps a G1 point.
func NewG1(p *ml.G1) *Element {
	return &Element{typ: G1, g1: p}
}

// NewG2 wraps a G2 point.
func NewG2(p *ml.G2) *Element {
	return &Element{typ: G2, g2: p}
}

// Type returns the element type chosen at construction.
func (e *Element) Type() ElementType {
	return e.typ
}

// Zr returns the underlying field element, or nil for group elements.
func (e *Element) Zr() *ml.Zr {
	return e.scalar
}

// G1 returns the underlying G1 point, or nil for other types.
func (e *Element) G1() *ml.G1 {
	return e.g1
}

// G2 returns the underlying G2 point, or nil for other types.
func (e *Element) G2() *ml.G2 {
	return e.g2
}

// Bytes returns the fixed-length compressed encoding of the element
// (32 bytes for scalars, 33 for G1 points, 65 for G2 points).
func (e *Element) Bytes() []byte {
	switch e.typ {
	case Scalar:
		return e.scalar.Bytes()
	case G1:
		return e.g1.Compressed()
	case G2:
		return e.g2.Compressed()
	default:
		return nil
	}
}

// Equal reports whether two elements have the same type and value.
func (e *Element) Equal(other *Element) bool {
	if other == nil || e.typ != other.typ {
		return false
	}

	switch e.typ {
	case Scalar:
		return e.scalar.Equals(other.scalar)
	case G1:
		return e.g1.Equals(other.g1)
	case G2:
		return e.g2.Equals(other.g2)
	default:
		return false
	}
}

// SampleScalar draws a uniformly random field element from the given
// randomness source. The source is an explicit collaborator so tests can
// supply deterministic streams.
func SampleScalar(rng io.Reader) *Element {
	return NewScalar(curve.NewRandomZr(rng))
}

// HashToScalar deterministically maps arbitrary bytes to a field element.
func HashToScalar(data []byte) *Element {
	return NewScalar(curve.HashToZr(data))
}

// ScalarFromBytes interprets data as a big-endian integer and reduces it
// modulo the group order.
func ScalarFromBytes(data []byte) (*Element, error) {
	if len(data) != ScalarSize {
		return nil, fmt.Errorf("%w: scalar must be %d bytes, got %d", ErrMalformedEncoding, ScalarSize, len(data))
	}

	z := curve.NewZrFromBytes(data)
	z.Mod(curve.GroupOrder)

	return NewScalar(z), nil
}

// GeneratorG1 returns the fixed G1 group generator.
func GeneratorG1() *Element {
	return NewG1(curve.GenG1.Copy())
}

// GeneratorG2 returns the fixed G2 group generator.
func GeneratorG2() *Element {
	return NewG2(curve.GenG2.Copy())
}

// Mul multiplies the element by a scalar: the scalar multiple for group
// elements, the field product for scalars.
func (e *Element) Mul(k *Element) (*Element, error) {
	if k.Type() != Scalar {
		return nil, fmt.Errorf("mul: multiplier must be a scalar, got %s", k.Type())
	}

	switch e.typ {
	case Scalar:
		return NewScalar(curve.ModMul(e.scalar, k.scalar, curve.GroupOrder)), nil
	case G1:
		return NewG1(e.g1.Mul(k.scalar)), nil
	case G2:
		return NewG2(e.g2.Mul(k.scalar)), nil
	default:
		return nil, fmt.Errorf("mul: unknown element type")
	}
}

// SamePairing reports whether e(a1, b1) == e(a2, b2). The a arguments must be
// G1 elements and the b arguments G2 elements.
func SamePairing(a1, b1, a2, b2 *Element) (bool, error) {
	if a1.typ != G1 || a2.typ != G1 {
		return false, fmt.Errorf("pairing: first arguments must be G1 elements")
	}

	if b1.typ != G2 || b2.typ != G2 {
		return false, fmt.Errorf("pairing: second arguments must be G2 elements")
	}

	negA2 := a2.g1.Copy()
	negA2.Neg()

	p := curve.Pairing2(b1.g2, a1.g1, b2.g2, negA2)
	p = curve.FExp(p)

	return p.IsUnity(), nil
}

// HashToG1 deterministically maps a field seed to a G1 point.
// The same seed always yields the same point.
func HashToG1(seed *Element) (*Element, error) {
	if seed.Type() != Scalar {
		return nil, fmt.Errorf("hash to G1: seed must be a scalar, got %s", seed.Type())
	}

	return NewG1(curve.HashToG1(seed.Bytes())), nil
}

// HashToG2 deterministically maps a field seed to a G2 point. mathlib exposes
// hash-to-curve for G1 only, so the G2 map multiplies the group generator by
// a domain-separated hash of the seed; same seed always yields the same point.
func HashToG2(seed *Element) (*Element, error) {
	if seed.Type() != Scalar {
		return nil, fmt.Errorf("hash to G2: seed must be a scalar, got %s", seed.Type())
	}

	e := curve.HashToZr(append([]byte(hashToG2DST), seed.Bytes()...))

	return NewG2(curve.GenG2.Mul(e)), nil
}

// Decode parses the fixed-length compressed encoding of an element of the
// expected type. Group elements are only returned after passing the
// membership gate; a point that decodes but is not a member of the expected
// subgroup is rejected, never silently passed through.
func Decode(data []byte, typ ElementType) (*Element, error) {
	switch typ {
	case Scalar:
		if len(data) != ScalarSize {
			return nil, fmt.Errorf("%w: scalar must be %d bytes, got %d", ErrMalformedEncoding, ScalarSize, len(data))
		}

		return NewScalar(curve.NewZrFromBytes(data)), nil
	case G1:
		return decodeG1(data)
	case G2:
		return decodeG2(data)
	default:
		return nil, fmt.Errorf("%w: unknown element type", ErrMalformedEncoding)
	}
}

func decodeG1(data []byte) (*Element, error) {
	if len(data) != G1CompressedSize {
		return nil, fmt.Errorf("%w: G1 point must be %d bytes, got %d", ErrMalformedEncoding, G1CompressedSize, len(data))
	}

	p, err := curve.NewG1FromCompressed(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotOnCurve, err.Error())
	}

	if !IsG1Member(p) {
		return nil, ErrNotInSubgroup
	}

	return NewG1(p), nil
}

func decodeG2(data []byte) (*Element, error) {
	if len(data) != G2CompressedSize {
		return nil, fmt.Errorf("%w: G2 point must be %d bytes, got %d", ErrMalformedEncoding, G2CompressedSize, len(data))
	}

	p, err := curve.NewG2FromCompressed(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotOnCurve, err.Error())
	}

	if !IsG2Member(p) {
		return nil, ErrNotInSubgroup
	}

	return NewG2(p), nil
}

// IsG1Member reports whether the point is a non-identity member of G1.
// The identity is rejected since it is never valid key material.
func IsG1Member(p *ml.G1) bool {
	if p == nil || p.IsInfinity() {
		return false
	}

	return p.Mul(curve.GroupOrder).IsInfinity()
}

// IsG2Member reports whether the point is a non-identity member of G2.
func IsG2Member(p *ml.G2) bool {
	if p == nil {
		return false
	}

	identity := curve.NewG2()
	if p.Equals(identity) {
		return false
	}

	return p.Mul(curve.GroupOrder).Equals(identity)
}
