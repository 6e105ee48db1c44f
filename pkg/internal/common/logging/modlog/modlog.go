/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package modlog

import (
	"github.com/absauthn/absauthn/pkg/internal/common/logging/metadata"
)

// Logger - standard logger interface.
type Logger interface {

	// Fatalf is critical fatal logging, should possibly be followed by a call to os.Exit(1)
	Fatalf(msg string, args ...interface{})

	// Panicf is critical logging, should possibly be followed by panic
	Panicf(msg string, args ...interface{})

	// Debugf is for logging verbose messages
	Debugf(msg string, args ...interface{})

	// Infof for logging general logging messages
	Infof(msg string, args ...interface{})

	// Warnf is for logging messages about possible issues
	Warnf(msg string, args ...interface{})

	// Errorf is for logging errors
	Errorf(msg string, args ...interface{})
}

// NewModLog returns a moduled wrapper for the given logger implementation.
// It adds module based level filtering on top of the provided logger.
func NewModLog(logger Logger, module string) Logger {
	return &modLog{logger: logger, module: module}
}

// modLog is a moduled wrapper for a Logger implementation.
type modLog struct {
	logger Logger
	module string
}

// Fatalf calls underlying logger.Fatalf.
func (m *modLog) Fatalf(format string, args ...interface{}) {
	m.logger.Fatalf(format, args...)
}

// Panicf calls underlying logger.Panicf.
func (m *modLog) Panicf(format string, args ...interface{}) {
	m.logger.Panicf(format, args...)
}

// Debugf calls underlying log function if DEBUG level enabled.
func (m *modLog) Debugf(format string, args ...interface{}) {
	if !metadata.IsEnabledFor(m.module, metadata.DEBUG) {
		return
	}

	m.logger.Debugf(format, args...)
}

// Infof calls underlying log function if INFO level enabled.
func (m *modLog) Infof(format string, args ...interface{}) {
	if !metadata.IsEnabledFor(m.module, metadata.INFO) {
		return
	}

	m.logger.Infof(format, args...)
}

// Warnf calls underlying log function if WARNING level enabled.
func (m *modLog) Warnf(format string, args ...interface{}) {
	if !metadata.IsEnabledFor(m.module, metadata.WARNING) {
		return
	}

	m.logger.Warnf(format, args...)
}

// Errorf calls underlying log function if ERROR level enabled.
func (m *modLog) Errorf(format string, args ...interface{}) {
	if !metadata.IsEnabledFor(m.module, metadata.ERROR) {
		return
	}

	m.logger.Errorf(format, args...)
}
