/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package main (ABS Authentication REST Server).
//
//
// Terms Of Service:
//
//
//     Schemes: https
//     Version: 0.1.0
//     License: SPDX-License-Identifier: Apache-2.0
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
// swagger:meta
package main

import (
	"github.com/spf13/cobra"

	"github.com/absauthn/absauthn/cmd/absauthn-rest/keygencmd"
	"github.com/absauthn/absauthn/cmd/absauthn-rest/startcmd"
	"github.com/absauthn/absauthn/pkg/common/log"
)

// This is an application which starts the assertion controller API on given port.
func main() {
	rootCmd := &cobra.Command{
		Use: "absauthn-rest",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	logger := log.New("absauthn/rest")

	startCmd, err := startcmd.Cmd(&startcmd.HTTPServer{})
	if err != nil {
		logger.Fatalf(err.Error())
	}

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(keygencmd.Cmd())

	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("Failed to run absauthn-rest: %s", err)
	}
}
