/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package assertion

import (
	"github.com/absauthn/absauthn/pkg/storage/profile"
)

// RelyingParty identifies the relying party in issued options.
type RelyingParty struct {
	ID string `json:"id"`
}

// AllowCredential lists one credential the user may answer with.
type AllowCredential struct {
	Type       string   `json:"type"`
	ID         string   `json:"id"`
	Transports []string `json:"transports"`
}

// AuthnOptions is the challenge offer returned by IssueChallenge.
type AuthnOptions struct {
	RP               RelyingParty      `json:"rp"`
	Challenge        string            `json:"challenge"`
	Timeout          int               `json:"timeout"`
	UserVerification string            `json:"userVerification"`
	AllowCredentials []AllowCredential `json:"allowCredentials"`
}

// AssertionResponse is the authenticator's answer to a challenge. All three
// fields are base64url-encoded.
type AssertionResponse struct {
	ClientDataJSON    string `json:"clientDataJSON"`
	AuthenticatorData string `json:"authenticatorData"`
	Signature         string `json:"signature"`
}

// ChallengeRecord is the pending challenge stored per user between the
// options and result phases. A new issuance overwrites the previous record.
type ChallengeRecord struct {
	Challenge   string               `json:"challenge"`
	Policy      string               `json:"policy"`
	Attestation []profile.Credential `json:"attestation"`
}

// Outcome is the result of verifying an assertion. Every check is evaluated
// even after an earlier one has failed, so Failures can name all failing
// steps; Verified is true only when Failures is empty.
type Outcome struct {
	Verified bool
	Failures []error
}

// clientData is the decoded payload of the clientDataJSON field.
type clientData struct {
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
	Type      string `json:"type"`
}
