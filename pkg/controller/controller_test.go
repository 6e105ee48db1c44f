/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package controller

import (
	"testing"

	"github.com/stretchr/testify/require"

	cmdassertion "github.com/absauthn/absauthn/pkg/controller/command/assertion"
	protocol "github.com/absauthn/absauthn/pkg/protocol/assertion"
)

type mockService struct{}

func (m *mockService) IssueChallenge(userID, policy string) (*protocol.AuthnOptions, error) {
	return &protocol.AuthnOptions{}, nil
}

func (m *mockService) VerifyAssertion(userID string, response *protocol.AssertionResponse) (*protocol.Outcome, error) {
	return &protocol.Outcome{}, nil
}

type mockProvider struct{}

func (p *mockProvider) AssertionService() cmdassertion.Service {
	return &mockService{}
}

func TestGetRESTHandlers(t *testing.T) {
	handlers := GetRESTHandlers(&mockProvider{})
	require.Len(t, handlers, 2)
}

func TestGetCommandHandlers(t *testing.T) {
	handlers := GetCommandHandlers(&mockProvider{})
	require.Len(t, handlers, 2)
}
