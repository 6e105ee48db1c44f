/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package assertion

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	cmdassertion "github.com/absauthn/absauthn/pkg/controller/command/assertion"
	protocol "github.com/absauthn/absauthn/pkg/protocol/assertion"
)

type mockService struct {
	options   *protocol.AuthnOptions
	outcome   *protocol.Outcome
	issueErr  error
	verifyErr error
}

func (m *mockService) IssueChallenge(userID, policy string) (*protocol.AuthnOptions, error) {
	return m.options, m.issueErr
}

func (m *mockService) VerifyAssertion(userID string, response *protocol.AssertionResponse) (*protocol.Outcome, error) {
	return m.outcome, m.verifyErr
}

type mockProvider struct {
	service cmdassertion.Service
}

func (p *mockProvider) AssertionService() cmdassertion.Service {
	return p.service
}

func TestNew(t *testing.T) {
	operation := New(&mockProvider{service: &mockService{}})
	require.NotNil(t, operation)

	handlers := operation.GetRESTHandlers()
	require.Len(t, handlers, 2)

	paths := map[string]string{}
	for _, h := range handlers {
		paths[h.Path()] = h.Method()
	}

	require.Equal(t, http.MethodPost, paths[IssueChallengePath])
	require.Equal(t, http.MethodPost, paths[VerifyAssertionPath])
}

func TestIssueChallengeHandler(t *testing.T) {
	operation := New(&mockProvider{service: &mockService{
		options: &protocol.AuthnOptions{Challenge: "Y2hhbGxlbmdl"},
	}})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, IssueChallengePath,
		bytes.NewBufferString(`{"username":"alice","policy":"age>=18"}`))

	operation.IssueChallenge(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	response := cmdassertion.IssueChallengeResponse{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	require.Equal(t, "ok", response.Status)
	require.Equal(t, "Y2hhbGxlbmdl", response.Challenge)
}

func TestIssueChallengeHandlerBadRequest(t *testing.T) {
	operation := New(&mockProvider{service: &mockService{}})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, IssueChallengePath, bytes.NewBufferString("--"))

	operation.IssueChallenge(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVerifyAssertionHandler(t *testing.T) {
	operation := New(&mockProvider{service: &mockService{
		outcome: &protocol.Outcome{Verified: true},
	}})

	body := `{"userid":"alice","assertion":{"response":{` +
		`"clientDataJSON":"e30","authenticatorData":"oQJY","signature":"AAAA"}}}`

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, VerifyAssertionPath, bytes.NewBufferString(body))

	operation.VerifyAssertion(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	response := cmdassertion.VerifyAssertionResponse{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	require.Equal(t, "ok", response.Status)
}
