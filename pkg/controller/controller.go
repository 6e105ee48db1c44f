/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package controller

import (
	"github.com/absauthn/absauthn/pkg/controller/command"
	cmdassertion "github.com/absauthn/absauthn/pkg/controller/command/assertion"
	"github.com/absauthn/absauthn/pkg/controller/rest"
	assertionrest "github.com/absauthn/absauthn/pkg/controller/rest/assertion"
)

// Provider contains dependencies for the controller operations.
type Provider interface {
	AssertionService() cmdassertion.Service
}

// GetRESTHandlers returns all REST handlers provided by controller.
func GetRESTHandlers(p Provider) []rest.Handler {
	return assertionrest.New(p).GetRESTHandlers()
}

// GetCommandHandlers returns all command handlers provided by controller.
func GetCommandHandlers(p Provider) []command.Handler {
	return cmdassertion.New(p).GetHandlers()
}
