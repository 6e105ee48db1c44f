/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package assertion

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/absauthn/absauthn/pkg/common/log"
	"github.com/absauthn/absauthn/pkg/controller/command"
	"github.com/absauthn/absauthn/pkg/controller/internal/cmdutil"
	"github.com/absauthn/absauthn/pkg/internal/logutil"
	protocol "github.com/absauthn/absauthn/pkg/protocol/assertion"
)

var logger = log.New("absauthn/command/assertion") //nolint:gochecknoglobals

// Error codes.
const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.Assertion)
	// IssueChallengeError is for failures while issuing a challenge.
	IssueChallengeError
	// VerifyAssertionError is for failures while verifying an assertion.
	VerifyAssertionError
)

// constants for assertion commands.
const (
	// command name.
	CommandName = "assertion"

	// command methods.
	IssueChallengeCommandMethod  = "IssueChallenge"
	VerifyAssertionCommandMethod = "VerifyAssertion"

	// error messages.
	errEmptyUsername = "username is mandatory"
	errEmptyUserID   = "userid is mandatory"

	statusOK     = "ok"
	statusFailed = "failed"

	msgUserNotFound = "user does not exist"
	msgVerified     = "authentication successful"
	msgRejected     = "assertion verification failed"
)

// Service defines the protocol operations used by the assertion command.
type Service interface {
	IssueChallenge(userID, policy string) (*protocol.AuthnOptions, error)
	VerifyAssertion(userID string, response *protocol.AssertionResponse) (*protocol.Outcome, error)
}

// provider contains dependencies for the assertion command.
type provider interface {
	AssertionService() Service
}

// Command contains command operations provided by the assertion controller.
type Command struct {
	service Service
}

// New returns new assertion command instance.
func New(p provider) *Command {
	return &Command{service: p.AssertionService()}
}

// GetHandlers returns list of all commands supported by this controller command.
func (o *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(CommandName, IssueChallengeCommandMethod, o.IssueChallenge),
		cmdutil.NewCommandHandler(CommandName, VerifyAssertionCommandMethod, o.VerifyAssertion),
	}
}

// IssueChallenge issues a fresh challenge for the user together with the
// credential menu the client may answer with.
func (o *Command) IssueChallenge(rw io.Writer, req io.Reader) command.Error {
	var request IssueChallengeRequest

	err := json.NewDecoder(req).Decode(&request)
	if err != nil {
		logutil.LogInfo(logger, CommandName, IssueChallengeCommandMethod, err.Error())
		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf("failed request decode : %w", err))
	}

	if request.Username == "" {
		logutil.LogDebug(logger, CommandName, IssueChallengeCommandMethod, errEmptyUsername)
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyUsername))
	}

	options, err := o.service.IssueChallenge(request.Username, request.Policy)
	if err != nil {
		logutil.LogInfo(logger, CommandName, IssueChallengeCommandMethod, err.Error(),
			logutil.CreateKeyValueString("user", request.Username))

		if errors.Is(err, protocol.ErrUserNotFound) {
			command.WriteNillableResponse(rw, &IssueChallengeResponse{
				Status:       statusFailed,
				ErrorMessage: msgUserNotFound,
			}, logger)

			return nil
		}

		return command.NewExecuteError(IssueChallengeError, err)
	}

	command.WriteNillableResponse(rw, &IssueChallengeResponse{
		AuthnOptions: options,
		Status:       statusOK,
	}, logger)

	logutil.LogDebug(logger, CommandName, IssueChallengeCommandMethod, "success",
		logutil.CreateKeyValueString("user", request.Username))

	return nil
}

// VerifyAssertion validates the authenticator's answer against the user's
// pending challenge. The response is binary ok/failed; which checks failed
// is logged, never returned.
func (o *Command) VerifyAssertion(rw io.Writer, req io.Reader) command.Error {
	var request VerifyAssertionRequest

	err := json.NewDecoder(req).Decode(&request)
	if err != nil {
		logutil.LogInfo(logger, CommandName, VerifyAssertionCommandMethod, err.Error())
		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf("failed request decode : %w", err))
	}

	if request.UserID == "" {
		logutil.LogDebug(logger, CommandName, VerifyAssertionCommandMethod, errEmptyUserID)
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyUserID))
	}

	outcome, err := o.service.VerifyAssertion(request.UserID, &request.Assertion.Response)
	if err != nil {
		logutil.LogInfo(logger, CommandName, VerifyAssertionCommandMethod, err.Error(),
			logutil.CreateKeyValueString("user", request.UserID))

		if errors.Is(err, protocol.ErrUserNotFound) {
			command.WriteNillableResponse(rw, &VerifyAssertionResponse{
				Status:  statusFailed,
				Message: msgUserNotFound,
			}, logger)

			return nil
		}

		return command.NewExecuteError(VerifyAssertionError, err)
	}

	if !outcome.Verified {
		for _, failure := range outcome.Failures {
			logutil.LogInfo(logger, CommandName, VerifyAssertionCommandMethod, failure.Error(),
				logutil.CreateKeyValueString("user", request.UserID))
		}

		command.WriteNillableResponse(rw, &VerifyAssertionResponse{
			Status:  statusFailed,
			Message: msgRejected,
		}, logger)

		return nil
	}

	command.WriteNillableResponse(rw, &VerifyAssertionResponse{
		Status:  statusOK,
		Message: msgVerified,
	}, logger)

	logutil.LogDebug(logger, CommandName, VerifyAssertionCommandMethod, "success",
		logutil.CreateKeyValueString("user", request.UserID))

	return nil
}
