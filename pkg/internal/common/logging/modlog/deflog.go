/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package modlog

import (
	"fmt"
	"log"
	"os"

	"github.com/absauthn/absauthn/pkg/internal/common/logging/metadata"
)

const (
	logLevelFormatter  = "UTC %s-> "
	logPrefixFormatter = " [%s] "
)

// NewDefLog returns a new default logger implementation for given module,
// backed by the standard library logger.
func NewDefLog(module string) Logger {
	logger := log.New(os.Stdout, fmt.Sprintf(logPrefixFormatter, module), log.Ldate|log.Ltime|log.LUTC)

	return &defLog{logger: logger, module: module}
}

// defLog is a standard default logger implementation.
type defLog struct {
	logger *log.Logger
	module string
}

// Fatalf is CRITICAL log formatted followed by a call to os.Exit(1).
func (l *defLog) Fatalf(format string, args ...interface{}) {
	l.logf(metadata.CRITICAL, format, args...)
	os.Exit(1)
}

// Panicf is CRITICAL log formatted followed by a call to panic().
func (l *defLog) Panicf(format string, args ...interface{}) {
	l.logf(metadata.CRITICAL, format, args...)
	panic(fmt.Sprintf(format, args...))
}

// Debugf can be used for logging verbose messages.
// Arguments are handled in the manner of fmt.Printf.
func (l *defLog) Debugf(format string, args ...interface{}) {
	l.logf(metadata.DEBUG, format, args...)
}

// Infof can be used for logging general information messages.
// Arguments are handled in the manner of fmt.Printf.
func (l *defLog) Infof(format string, args ...interface{}) {
	l.logf(metadata.INFO, format, args...)
}

// Warnf can be used for logging possible errors.
// Arguments are handled in the manner of fmt.Printf.
func (l *defLog) Warnf(format string, args ...interface{}) {
	l.logf(metadata.WARNING, format, args...)
}

// Errorf can be used for logging errors.
// Arguments are handled in the manner of fmt.Printf.
func (l *defLog) Errorf(format string, args ...interface{}) {
	l.logf(metadata.ERROR, format, args...)
}

func (l *defLog) logf(level metadata.Level, format string, args ...interface{}) {
	customPrefix := fmt.Sprintf(logLevelFormatter, metadata.ParseString(level))

	err := l.logger.Output(3, customPrefix+fmt.Sprintf(format, args...)) //nolint:gomnd
	if err != nil {
		fmt.Printf("error from logger.Output %v\n", err)
	}
}
