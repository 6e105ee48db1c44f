/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package assertion

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"github.com/absauthn/absauthn/pkg/crypto/primitive/absfp256bn"
	"github.com/absauthn/absauthn/pkg/doc/keybundle"
	"github.com/absauthn/absauthn/pkg/storage"
	"github.com/absauthn/absauthn/pkg/storage/mem"
	"github.com/absauthn/absauthn/pkg/storage/profile"
)

const (
	testRPID   = "localhost"
	testOrigin = "https://localhost:3000"
	testPolicy = "age>=18"
)

type trustedKeyStub struct {
	bundle *keybundle.Bundle
	err    error
}

func (s *trustedKeyStub) Load() (*keybundle.Bundle, error) {
	return s.bundle, s.err
}

type testProvider struct {
	storageProvider storage.Provider
	profiles        *profile.Store
	trusted         TrustedKeyStore
}

func (p *testProvider) StorageProvider() storage.Provider { return p.storageProvider }
func (p *testProvider) ProfileStore() *profile.Store      { return p.profiles }
func (p *testProvider) TrustedKeyStore() TrustedKeyStore  { return p.trusted }

type testFixture struct {
	svc     *Service
	priv    *absfp256bn.PrivateKey
	credID  string
	profile *profile.Store
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()

	issuerPub, issuerPriv, err := absfp256bn.GenerateIssuerKeyPair(sha256.New, nil)
	require.NoError(t, err)

	pub, priv, err := absfp256bn.GenerateKeyPair(sha256.New, nil)
	require.NoError(t, err)

	require.NoError(t, issuerPriv.Certify(pub, keybundle.AttributeMap{"age": 30}))

	apkBundle, err := pub.ToKeyBundle()
	require.NoError(t, err)

	trustedBundle, err := issuerPub.ToKeyBundle()
	require.NoError(t, err)

	storageProvider := mem.NewProvider()

	profiles, err := profile.NewStore(storageProvider)
	require.NoError(t, err)

	credID, err := profiles.Register("alice", testPolicy, apkBundle)
	require.NoError(t, err)

	svc, err := New(&testProvider{
		storageProvider: storageProvider,
		profiles:        profiles,
		trusted:         &trustedKeyStub{bundle: trustedBundle},
	}, Config{
		RPID:             testRPID,
		RPOrigin:         testOrigin,
		ChallengeSize:    32,
		Timeout:          60000,
		UserVerification: "preferred",
	})
	require.NoError(t, err)

	return &testFixture{svc: svc, priv: priv, credID: credID, profile: profiles}
}

type responseParams struct {
	challenge  string
	origin     string
	cdType     string
	rpID       string
	policy     string
	corruptSig bool
}

func buildResponse(t *testing.T, priv *absfp256bn.PrivateKey, params responseParams) *AssertionResponse {
	t.Helper()

	clientDataRaw, err := json.Marshal(clientData{
		Challenge: params.challenge,
		Origin:    params.origin,
		Type:      params.cdType,
	})
	require.NoError(t, err)

	clientDataHash := sha256.Sum256(clientDataRaw)
	rpIDHash := sha256.Sum256([]byte(params.rpID))

	authData := make([]byte, 0, minAuthDataLen)
	authData = append(authData, rpIDHash[:]...)
	authData = append(authData, 0x01)       // flags: user present
	authData = append(authData, 0, 0, 0, 1) // sign count

	envelope, err := cbor.Marshal(map[int][]byte{authDataEnvelope: authData})
	require.NoError(t, err)

	message := make([]byte, 0, len(authData)+len(clientDataHash)+len(params.policy))
	message = append(message, authData...)
	message = append(message, clientDataHash[:]...)
	message = append(message, params.policy...)

	signature, err := absfp256bn.New().Sign(message, []byte(params.policy), priv)
	require.NoError(t, err)

	if params.corruptSig {
		signature[5] ^= 0xFF
	}

	return &AssertionResponse{
		ClientDataJSON:    base64.RawURLEncoding.EncodeToString(clientDataRaw),
		AuthenticatorData: base64.RawURLEncoding.EncodeToString(envelope),
		Signature:         base64.RawURLEncoding.EncodeToString(signature),
	}
}

func validParams(challenge string) responseParams {
	return responseParams{
		challenge: challenge,
		origin:    testOrigin,
		cdType:    clientDataType,
		rpID:      testRPID,
		policy:    testPolicy,
	}
}

func TestIssueChallengeUnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.IssueChallenge("nobody", testPolicy)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUserNotFound))
}

func TestIssueChallengeOptions(t *testing.T) {
	f := newFixture(t)

	options, err := f.svc.IssueChallenge("alice", testPolicy)
	require.NoError(t, err)
	require.Equal(t, testRPID, options.RP.ID)
	require.Equal(t, 60000, options.Timeout)
	require.Equal(t, "preferred", options.UserVerification)
	require.Len(t, options.AllowCredentials, 1)
	require.Equal(t, "ABS", options.AllowCredentials[0].Type)
	require.Equal(t, f.credID, options.AllowCredentials[0].ID)
	require.Equal(t, []string{"usb", "nfc", "ble", "internal"}, options.AllowCredentials[0].Transports)

	challengeBytes, err := base64.RawURLEncoding.DecodeString(options.Challenge)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(challengeBytes), 16)
}

func TestIssueChallengeFreshness(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.IssueChallenge("alice", testPolicy)
	require.NoError(t, err)

	second, err := f.svc.IssueChallenge("alice", testPolicy)
	require.NoError(t, err)

	require.NotEqual(t, first.Challenge, second.Challenge)
}

func TestVerifyAssertionEndToEnd(t *testing.T) {
	f := newFixture(t)

	options, err := f.svc.IssueChallenge("alice", testPolicy)
	require.NoError(t, err)

	outcome, err := f.svc.VerifyAssertion("alice", buildResponse(t, f.priv, validParams(options.Challenge)))
	require.NoError(t, err)
	require.True(t, outcome.Verified)
	require.Empty(t, outcome.Failures)

	// consumed challenge is persisted on the profile
	record, err := f.profile.Get("alice")
	require.NoError(t, err)
	require.Equal(t, options.Challenge, record.Challenge)
	require.Equal(t, testPolicy, record.Policy)
}

func TestVerifyAssertionSingleFieldCorruption(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(*responseParams)
		want    error
	}{
		{"wrong challenge", func(p *responseParams) { p.challenge = "bm90LXRoZS1jaGFsbGVuZ2U" }, ErrChallengeMismatch},
		{"wrong origin", func(p *responseParams) { p.origin = "https://evil.example" }, ErrOriginMismatch},
		{"wrong rp id", func(p *responseParams) { p.rpID = "evil.example" }, ErrRPIDMismatch},
		{"wrong type", func(p *responseParams) { p.cdType = "webauthn.create" }, ErrTypeMismatch},
		{"corrupt signature", func(p *responseParams) { p.corruptSig = true }, ErrSignatureInvalid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)

			options, err := f.svc.IssueChallenge("alice", testPolicy)
			require.NoError(t, err)

			params := validParams(options.Challenge)
			tc.corrupt(&params)

			outcome, err := f.svc.VerifyAssertion("alice", buildResponse(t, f.priv, params))
			require.NoError(t, err)
			require.False(t, outcome.Verified)

			found := false

			for _, failure := range outcome.Failures {
				if errors.Is(failure, tc.want) {
					found = true
				}
			}

			require.True(t, found, "expected failure %v, got %v", tc.want, outcome.Failures)
		})
	}
}

func TestVerifyAssertionReportsAllFailures(t *testing.T) {
	f := newFixture(t)

	options, err := f.svc.IssueChallenge("alice", testPolicy)
	require.NoError(t, err)

	params := validParams(options.Challenge)
	params.challenge = "bm90LXRoZS1jaGFsbGVuZ2U"
	params.origin = "https://evil.example"

	outcome, err := f.svc.VerifyAssertion("alice", buildResponse(t, f.priv, params))
	require.NoError(t, err)
	require.False(t, outcome.Verified)

	var gotChallenge, gotOrigin bool

	for _, failure := range outcome.Failures {
		if errors.Is(failure, ErrChallengeMismatch) {
			gotChallenge = true
		}

		if errors.Is(failure, ErrOriginMismatch) {
			gotOrigin = true
		}
	}

	require.True(t, gotChallenge)
	require.True(t, gotOrigin)
}

func TestVerifyAssertionWithoutChallenge(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.VerifyAssertion("alice", buildResponse(t, f.priv, validParams("anything")))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUserNotFound))
}

func TestVerifyAssertionMalformedClientData(t *testing.T) {
	f := newFixture(t)

	options, err := f.svc.IssueChallenge("alice", testPolicy)
	require.NoError(t, err)

	response := buildResponse(t, f.priv, validParams(options.Challenge))
	response.ClientDataJSON = "!!!not-base64url!!!"

	outcome, err := f.svc.VerifyAssertion("alice", response)
	require.NoError(t, err)
	require.False(t, outcome.Verified)

	found := false

	for _, failure := range outcome.Failures {
		if errors.Is(failure, ErrMalformedClientData) {
			found = true
		}
	}

	require.True(t, found)
}

func TestVerifyAssertionMalformedAuthenticatorData(t *testing.T) {
	f := newFixture(t)

	options, err := f.svc.IssueChallenge("alice", testPolicy)
	require.NoError(t, err)

	response := buildResponse(t, f.priv, validParams(options.Challenge))
	response.AuthenticatorData = base64.RawURLEncoding.EncodeToString([]byte{0xFF, 0x00, 0x13})

	outcome, err := f.svc.VerifyAssertion("alice", response)
	require.NoError(t, err)
	require.False(t, outcome.Verified)

	found := false

	for _, failure := range outcome.Failures {
		if errors.Is(failure, ErrMalformedAuthenticatorData) {
			found = true
		}
	}

	require.True(t, found)
}

func TestLastIssuedChallengeWins(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.IssueChallenge("alice", testPolicy)
	require.NoError(t, err)

	second, err := f.svc.IssueChallenge("alice", testPolicy)
	require.NoError(t, err)

	// answering the discarded challenge fails the challenge check
	outcome, err := f.svc.VerifyAssertion("alice", buildResponse(t, f.priv, validParams(first.Challenge)))
	require.NoError(t, err)
	require.False(t, outcome.Verified)

	// answering the live challenge still verifies
	outcome, err = f.svc.VerifyAssertion("alice", buildResponse(t, f.priv, validParams(second.Challenge)))
	require.NoError(t, err)
	require.True(t, outcome.Verified)
}

func TestVerifyAssertionTrustedKeyLoadFailure(t *testing.T) {
	f := newFixture(t)

	options, err := f.svc.IssueChallenge("alice", testPolicy)
	require.NoError(t, err)

	f.svc.trusted = &trustedKeyStub{err: errors.New("disk gone")}

	outcome, err := f.svc.VerifyAssertion("alice", buildResponse(t, f.priv, validParams(options.Challenge)))
	require.NoError(t, err)
	require.False(t, outcome.Verified)
}
