/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/absauthn/absauthn/pkg/common/log"
	"github.com/absauthn/absauthn/pkg/controller/command"
)

var logger = log.New("absauthn/controller/rest") //nolint:gochecknoglobals

// genericErrorBody is the JSON error payload of failed REST calls.
type genericErrorBody struct {
	Code    command.Code `json:"code"`
	Message string       `json:"message"`
}

// Execute runs the given controller command over the HTTP request body and
// renders command errors as error responses.
func Execute(exec command.Exec, rw http.ResponseWriter, req io.Reader) {
	if err := exec(rw, req); err != nil {
		SendError(rw, err)
	}
}

// SendError sends a command error as an HTTP response: validation errors map
// to 400, execution errors to 500.
func SendError(rw http.ResponseWriter, err command.Error) {
	if err.Type() == command.ValidationError {
		SendHTTPStatusError(rw, http.StatusBadRequest, err.Code(), err)

		return
	}

	SendHTTPStatusError(rw, http.StatusInternalServerError, err.Code(), err)
}

// SendHTTPStatusError sends an error response with the given HTTP status.
func SendHTTPStatusError(rw http.ResponseWriter, httpStatus int, code command.Code, err error) {
	rw.WriteHeader(httpStatus)

	if encErr := json.NewEncoder(rw).Encode(genericErrorBody{Code: code, Message: err.Error()}); encErr != nil {
		logger.Errorf("Unable to send error message, %s", encErr)
	}
}
