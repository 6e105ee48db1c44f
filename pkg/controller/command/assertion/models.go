/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package assertion

import (
	protocol "github.com/absauthn/absauthn/pkg/protocol/assertion"
)

// IssueChallengeRequest model
//
// This is used to request authentication options for a user.
type IssueChallengeRequest struct {
	Username string `json:"username"`
	Policy   string `json:"policy"`
}

// IssueChallengeResponse model
//
// Carries the issued challenge and the credential menu for the client.
type IssueChallengeResponse struct {
	*protocol.AuthnOptions
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// VerifyAssertionRequest model
//
// Carries the authenticator's answer to a previously issued challenge.
type VerifyAssertionRequest struct {
	UserID    string           `json:"userid"`
	Assertion AssertionPayload `json:"assertion"`
}

// AssertionPayload wraps the authenticator response the way the client
// submits it.
type AssertionPayload struct {
	Response protocol.AssertionResponse `json:"response"`
}

// VerifyAssertionResponse model
//
// Binary outcome only; per-check detail is logged server side, never
// returned.
type VerifyAssertionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
