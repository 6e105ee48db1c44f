/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package logutil formats controller command log lines so every command
// logs its name, action and contextual key=[value] pairs the same way.
package logutil

import (
	"strings"

	"github.com/absauthn/absauthn/pkg/common/log"
)

// LogInfo logs an info message tagged with the command and action names.
func LogInfo(logger *log.Log, command, action, msg string, data ...string) {
	logger.Infof("%s", format(command, action, msg, data))
}

// LogDebug logs a debug message tagged with the command and action names.
func LogDebug(logger *log.Log, command, action, msg string, data ...string) {
	logger.Debugf("%s", format(command, action, msg, data))
}

// CreateKeyValueString renders one key=[value] pair for the data arguments
// of LogInfo and LogDebug.
func CreateKeyValueString(key, val string) string {
	return key + "=[" + val + "]"
}

func format(command, action, msg string, data []string) string {
	parts := make([]string, 0, len(data)+3)
	parts = append(parts,
		CreateKeyValueString("command", command),
		CreateKeyValueString("action", action))
	parts = append(parts, data...)
	parts = append(parts, CreateKeyValueString("msg", msg))

	return strings.Join(parts, " ")
}
