/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package cmdutil holds the concrete handler types the controller returns
// from its handler lists.
package cmdutil

import (
	"net/http"

	"github.com/absauthn/absauthn/pkg/controller/command"
)

// HTTPHandler ties one route (path and method) to its handler func so a
// router can be assembled from a handler list.
type HTTPHandler struct {
	path   string
	method string
	handle http.HandlerFunc
}

// NewHTTPHandler returns an HTTPHandler for the given route.
func NewHTTPHandler(path, method string, handle http.HandlerFunc) *HTTPHandler {
	return &HTTPHandler{path: path, method: method, handle: handle}
}

// Path returns the request path of the route.
func (h *HTTPHandler) Path() string { return h.path }

// Method returns the HTTP method of the route.
func (h *HTTPHandler) Method() string { return h.method }

// Handle returns the handler func of the route.
func (h *HTTPHandler) Handle() http.HandlerFunc { return h.handle }

// CommandHandler ties one controller operation, addressed by command and
// method name, to its Exec func.
type CommandHandler struct {
	name   string
	method string
	handle command.Exec
}

// NewCommandHandler returns a CommandHandler for the given operation.
func NewCommandHandler(name, method string, exec command.Exec) *CommandHandler {
	return &CommandHandler{name: name, method: method, handle: exec}
}

// Name returns the command name of the operation.
func (c *CommandHandler) Name() string { return c.name }

// Method returns the method name of the operation.
func (c *CommandHandler) Method() string { return c.method }

// Handle returns the Exec func of the operation.
func (c *CommandHandler) Handle() command.Exec { return c.handle }
