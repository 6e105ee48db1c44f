/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package absfp256bn implements certified attribute-based signatures over
// the FP256BN pairing-friendly curve.
//
// An issuer holds x and publishes W2 = g2^x. An attester holds sk with base
// point B = g1^sk and carries a certificate Cert = H(B, attrs)^x binding its
// attributes to B. A signature on (message, policy) is Sigma = M^sk where M
// is the message point in G2. Verification checks both the signature
// equation e(B, M) == e(g1, Sigma) and the certificate equation
// e(Cert, g2) == e(H(B, attrs), W2).
package absfp256bn

import (
	"errors"
	"fmt"

	"github.com/absauthn/absauthn/pkg/crypto/curve"
)

// ErrInvalidSignature is returned when a signature does not verify. Callers
// can distinguish it from parse and malformed-key errors.
var ErrInvalidSignature = errors.New("invalid signature")

// ABSFP256BN is the signature scheme. It is stateless; New is provided to
// follow the constructor convention of the other primitives.
type ABSFP256BN struct{}

// New creates a new ABSFP256BN scheme.
func New() *ABSFP256BN {
	return &ABSFP256BN{}
}

// Sign signs the message under the given policy. The signature is the
// compressed encoding of a single G2 point.
func (a *ABSFP256BN) Sign(message, policy []byte, privKey *PrivateKey) ([]byte, error) {
	if privKey == nil || privKey.SK == nil {
		return nil, errors.New("private key is mandatory")
	}

	m, err := messagePoint(message, policy)
	if err != nil {
		return nil, err
	}

	sigma, err := m.Mul(privKey.SK)
	if err != nil {
		return nil, err
	}

	return (&Signature{Sigma: sigma}).ToBytes(), nil
}

// Verify verifies the signature over the message and policy against a
// certified attester public key and the issuer public key. Both the
// signature equation and the certificate equation are always evaluated; a
// failure of either makes the signature invalid.
func (a *ABSFP256BN) Verify(message, policy, sigBytes []byte, pubKey *PublicKey, issuerPubKey *IssuerPublicKey) error {
	if pubKey == nil || pubKey.B == nil || pubKey.Cert == nil {
		return errors.New("certified attester public key is mandatory")
	}

	if issuerPubKey == nil || issuerPubKey.W2 == nil {
		return errors.New("issuer public key is mandatory")
	}

	signature, err := ParseSignature(sigBytes)
	if err != nil {
		return err
	}

	m, err := messagePoint(message, policy)
	if err != nil {
		return err
	}

	// e(B, M) == e(g1, Sigma)
	sigOK, err := curve.SamePairing(pubKey.B, m, curve.GeneratorG1(), signature.Sigma)
	if err != nil {
		return err
	}

	// e(Cert, g2) == e(H(B, attrs), W2)
	h, err := certificationPoint(pubKey)
	if err != nil {
		return err
	}

	certOK, err := curve.SamePairing(pubKey.Cert, curve.GeneratorG2(), h, issuerPubKey.W2)
	if err != nil {
		return err
	}

	if !sigOK {
		return fmt.Errorf("%w: signature equation does not hold", ErrInvalidSignature)
	}

	if !certOK {
		return fmt.Errorf("%w: certificate equation does not hold", ErrInvalidSignature)
	}

	return nil
}

// messagePoint maps the message and policy to the G2 point that gets signed.
func messagePoint(message, policy []byte) (*curve.Element, error) {
	buf := make([]byte, 0, len(message)+len(policy))
	buf = append(buf, message...)
	buf = append(buf, policy...)

	return curve.HashToG2(curve.HashToScalar(buf))
}
