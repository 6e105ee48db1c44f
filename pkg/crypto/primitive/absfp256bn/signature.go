/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package absfp256bn

import (
	"fmt"

	"github.com/absauthn/absauthn/pkg/crypto/curve"
)

// Signature defines an ABS signature: a single G2 point.
type Signature struct {
	Sigma *curve.Element
}

// ParseSignature parses a signature from its compressed encoding. The point
// must pass the G2 membership gate.
func ParseSignature(sigBytes []byte) (*Signature, error) {
	sigma, err := curve.Decode(sigBytes, curve.G2)
	if err != nil {
		return nil, fmt.Errorf("parse signature: %w", err)
	}

	return &Signature{Sigma: sigma}, nil
}

// ToBytes returns the compressed encoding of the signature.
func (s *Signature) ToBytes() []byte {
	return s.Sigma.Bytes()
}
