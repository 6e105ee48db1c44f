/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package absfp256bn

import (
	"crypto/rand"
	"errors"
	"fmt"
	"hash"
	"io"
	"sort"
	"strconv"

	"golang.org/x/crypto/hkdf"

	"github.com/absauthn/absauthn/pkg/crypto/curve"
	"github.com/absauthn/absauthn/pkg/doc/keybundle"
)

const (
	seedSize        = 32
	okmSize         = 48
	generateKeySalt = "ABS-SIG-KEYGEN-SALT-"
)

// Key bundle component names.
const (
	componentBase   = "g1"
	componentCert   = "cert"
	componentIssuer = "w2"
)

// PrivateKey is an attester's signing key.
type PrivateKey struct {
	SK *curve.Element
}

// PublicKey is an attester's public key: the base point B = g1^sk, the
// issuer's certificate over B and the attributes, and the certified
// attributes themselves. The certificate is nil until an issuer certifies
// the key.
type PublicKey struct {
	B          *curve.Element
	Cert       *curve.Element
	Attributes keybundle.AttributeMap
}

// IssuerPrivateKey certifies attester public keys.
type IssuerPrivateKey struct {
	X *curve.Element
}

// IssuerPublicKey is the trusted public key W2 = g2^x used to verify
// certificates.
type IssuerPublicKey struct {
	W2 *curve.Element
}

// GenerateKeyPair generates an attester key pair. The returned public key is
// not yet certified.
func GenerateKeyPair(h func() hash.Hash, seed []byte) (*PublicKey, *PrivateKey, error) {
	sk, err := generateScalar(h, seed)
	if err != nil {
		return nil, nil, err
	}

	b, err := curve.GeneratorG1().Mul(sk)
	if err != nil {
		return nil, nil, err
	}

	return &PublicKey{B: b}, &PrivateKey{SK: sk}, nil
}

// GenerateIssuerKeyPair generates an issuer key pair.
func GenerateIssuerKeyPair(h func() hash.Hash, seed []byte) (*IssuerPublicKey, *IssuerPrivateKey, error) {
	x, err := generateScalar(h, seed)
	if err != nil {
		return nil, nil, err
	}

	w2, err := curve.GeneratorG2().Mul(x)
	if err != nil {
		return nil, nil, err
	}

	return &IssuerPublicKey{W2: w2}, &IssuerPrivateKey{X: x}, nil
}

// Certify binds the given attributes to the attester public key and writes
// the resulting certificate into it.
func (k *IssuerPrivateKey) Certify(pub *PublicKey, attrs keybundle.AttributeMap) error {
	if pub == nil || pub.B == nil {
		return errors.New("attester public key is mandatory")
	}

	pub.Attributes = attrs

	h, err := certificationPoint(pub)
	if err != nil {
		return err
	}

	cert, err := h.Mul(k.X)
	if err != nil {
		return err
	}

	pub.Cert = cert

	return nil
}

// ToKeyBundle encodes the public key as a key bundle.
func (pk *PublicKey) ToKeyBundle() (*keybundle.Bundle, error) {
	if pk.B == nil || pk.Cert == nil {
		return nil, errors.New("public key is not certified")
	}

	bundle := keybundle.New()

	if err := bundle.Set(componentBase, pk.B); err != nil {
		return nil, err
	}

	if err := bundle.Set(componentCert, pk.Cert); err != nil {
		return nil, err
	}

	bundle.SetAttributes(pk.Attributes)

	return bundle, nil
}

// ParsePublicKey extracts an attester public key from a key bundle.
func ParsePublicKey(bundle *keybundle.Bundle) (*PublicKey, error) {
	b := bundle.Get(componentBase)
	if b == nil || b.Type() != curve.G1 {
		return nil, fmt.Errorf("attester public key: missing G1 component %q", componentBase)
	}

	cert := bundle.Get(componentCert)
	if cert == nil || cert.Type() != curve.G1 {
		return nil, fmt.Errorf("attester public key: missing G1 component %q", componentCert)
	}

	return &PublicKey{B: b, Cert: cert, Attributes: bundle.Attributes()}, nil
}

// ToKeyBundle encodes the issuer public key as a key bundle.
func (pk *IssuerPublicKey) ToKeyBundle() (*keybundle.Bundle, error) {
	bundle := keybundle.New()

	if err := bundle.Set(componentIssuer, pk.W2); err != nil {
		return nil, err
	}

	return bundle, nil
}

// ParseIssuerPublicKey extracts an issuer public key from a key bundle.
func ParseIssuerPublicKey(bundle *keybundle.Bundle) (*IssuerPublicKey, error) {
	w2 := bundle.Get(componentIssuer)
	if w2 == nil || w2.Type() != curve.G2 {
		return nil, fmt.Errorf("issuer public key: missing G2 component %q", componentIssuer)
	}

	return &IssuerPublicKey{W2: w2}, nil
}

// Marshal marshals the private key.
func (k *PrivateKey) Marshal() []byte {
	return k.SK.Bytes()
}

// UnmarshalPrivateKey unmarshals a private key.
func UnmarshalPrivateKey(privKeyBytes []byte) (*PrivateKey, error) {
	sk, err := curve.Decode(privKeyBytes, curve.Scalar)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return &PrivateKey{SK: sk}, nil
}

// certificationPoint hashes the base point and the sorted attributes to the
// G1 point the issuer signs. Attributes enter the hash in sorted
// "name:value," order so both sides derive the same point.
func certificationPoint(pub *PublicKey) (*curve.Element, error) {
	seed := curve.HashToScalar(append(pub.B.Bytes(), attributeBytes(pub.Attributes)...))

	return curve.HashToG1(seed)
}

func attributeBytes(attrs keybundle.AttributeMap) []byte {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}

	sort.Strings(names)

	var buf []byte

	for _, name := range names {
		buf = append(buf, name...)
		buf = append(buf, ':')
		buf = strconv.AppendInt(buf, attrs[name], 10)
		buf = append(buf, ',')
	}

	return buf
}

func generateScalar(h func() hash.Hash, seed []byte) (*curve.Element, error) {
	if len(seed) != 0 && len(seed) != seedSize {
		return nil, errors.New("invalid size of seed")
	}

	okm, err := generateOKM(seed, h)
	if err != nil {
		return nil, err
	}

	return curve.HashToScalar(okm), nil
}

func generateOKM(ikm []byte, h func() hash.Hash) ([]byte, error) {
	salt := []byte(generateKeySalt)
	info := make([]byte, 2)

	if ikm != nil {
		ikm = append(ikm, 0)
	} else {
		ikm = make([]byte, seedSize+1)

		_, err := rand.Read(ikm)
		if err != nil {
			return nil, err
		}

		ikm[seedSize] = 0
	}

	return newHKDF(h, ikm, salt, info, okmSize)
}

func newHKDF(h func() hash.Hash, ikm, salt, info []byte, length int) ([]byte, error) {
	reader := hkdf.New(h, ikm, salt, info)
	result := make([]byte, length)

	_, err := io.ReadFull(reader, result)
	if err != nil {
		return nil, err
	}

	return result, nil
}
