/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package assertion

import (
	"github.com/absauthn/absauthn/pkg/controller/command/assertion"
)

// issueChallengeReq model
//
// This is used for issueChallenge request.
//
// swagger:parameters issueChallengeReq
type issueChallengeReq struct { // nolint: unused,deadcode

	// in: body
	assertion.IssueChallengeRequest
}

// issueChallengeRes model
//
// This is used for returning the issued challenge options.
//
// swagger:response issueChallengeRes
type issueChallengeRes struct { // nolint: unused,deadcode

	// in: body
	assertion.IssueChallengeResponse
}

// verifyAssertionReq model
//
// This is used for verifyAssertion request.
//
// swagger:parameters verifyAssertionReq
type verifyAssertionReq struct { // nolint: unused,deadcode

	// in: body
	assertion.VerifyAssertionRequest
}

// verifyAssertionRes model
//
// This is used for returning the verification outcome.
//
// swagger:response verifyAssertionRes
type verifyAssertionRes struct { // nolint: unused,deadcode

	// in: body
	assertion.VerifyAssertionResponse
}
