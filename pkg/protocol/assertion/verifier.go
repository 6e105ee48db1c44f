/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package assertion

import (
	"github.com/absauthn/absauthn/pkg/crypto/primitive/absfp256bn"
	"github.com/absauthn/absauthn/pkg/doc/keybundle"
)

// ABSVerifier verifies attribute-based signatures. It is a pure function of
// its inputs: malformed or uncertified key material makes Verify return
// false, never panic.
type ABSVerifier struct {
	scheme *absfp256bn.ABSFP256BN
}

// NewABSVerifier returns the default signature verifier.
func NewABSVerifier() *ABSVerifier {
	return &ABSVerifier{scheme: absfp256bn.New()}
}

// Verify reports whether signature is a valid attribute-based signature over
// message and policy by the attester key, certified under the trusted key.
func (v *ABSVerifier) Verify(trustedKey, attesterKey *keybundle.Bundle, signature, message, policy []byte) bool {
	if trustedKey == nil || attesterKey == nil {
		return false
	}

	issuerKey, err := absfp256bn.ParseIssuerPublicKey(trustedKey)
	if err != nil {
		return false
	}

	pubKey, err := absfp256bn.ParsePublicKey(attesterKey)
	if err != nil {
		return false
	}

	return v.scheme.Verify(message, policy, signature, pubKey, issuerKey) == nil
}
