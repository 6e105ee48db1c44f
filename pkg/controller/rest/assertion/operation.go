/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package assertion

import (
	"io"
	"net/http"

	"github.com/absauthn/absauthn/pkg/controller/command"
	cmdassertion "github.com/absauthn/absauthn/pkg/controller/command/assertion"
	"github.com/absauthn/absauthn/pkg/controller/internal/cmdutil"
	"github.com/absauthn/absauthn/pkg/controller/rest"
)

// constants for assertion operations.
const (
	AssertionOperationID = "/assertion"
	IssueChallengePath   = AssertionOperationID + "/options"
	VerifyAssertionPath  = AssertionOperationID + "/result"
)

// provider contains dependencies for the assertion command.
type provider interface {
	AssertionService() cmdassertion.Service
}

type assertionCommand interface {
	IssueChallenge(rw io.Writer, req io.Reader) command.Error
	VerifyAssertion(rw io.Writer, req io.Reader) command.Error
}

// Operation contains REST operations provided by the assertion controller.
type Operation struct {
	handlers []rest.Handler
	command  assertionCommand
}

// New returns new assertion rest operation instance.
func New(p provider) *Operation {
	cmd := cmdassertion.New(p)

	o := &Operation{command: cmd}
	o.registerHandler()

	return o
}

// GetRESTHandlers get all controller API handler available for this service.
func (o *Operation) GetRESTHandlers() []rest.Handler {
	return o.handlers
}

// registerHandler register handlers to be exposed from this protocol service as REST API endpoints.
func (o *Operation) registerHandler() {
	o.handlers = []rest.Handler{
		cmdutil.NewHTTPHandler(IssueChallengePath, http.MethodPost, o.IssueChallenge),
		cmdutil.NewHTTPHandler(VerifyAssertionPath, http.MethodPost, o.VerifyAssertion),
	}
}

// IssueChallenge swagger:route POST /assertion/options assertion issueChallenge
//
// Issue a fresh authentication challenge for a user.
//
// Responses:
//    default: genericError
//        200: issueChallengeRes
func (o *Operation) IssueChallenge(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.IssueChallenge, rw, req.Body)
}

// VerifyAssertion swagger:route POST /assertion/result assertion verifyAssertion
//
// Verify an authenticator's answer to a pending challenge.
//
// Responses:
//    default: genericError
//        200: verifyAssertionRes
func (o *Operation) VerifyAssertion(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.VerifyAssertion, rw, req.Body)
}
