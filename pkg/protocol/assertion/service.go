/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package assertion implements the two-phase challenge-response protocol:
// IssueChallenge binds a fresh random challenge to a user and a policy,
// VerifyAssertion validates the authenticator's answer against that
// challenge with an attribute-based signature check.
package assertion

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/absauthn/absauthn/pkg/common/log"
	"github.com/absauthn/absauthn/pkg/doc/keybundle"
	"github.com/absauthn/absauthn/pkg/storage"
	"github.com/absauthn/absauthn/pkg/storage/profile"
)

var logger = log.New("absauthn/assertion") //nolint:gochecknoglobals

// ChallengeStoreName is the store holding pending challenge records.
const ChallengeStoreName = "challenges"

const (
	clientDataType = "webauthn.get"
	credentialType = "ABS"

	rpIDHashLen      = sha256.Size
	minAuthDataLen   = rpIDHashLen + 1 + 4 // rpIdHash, flags, signCount
	authDataEnvelope = 2
)

//nolint:gochecknoglobals
var credentialTransports = []string{"usb", "nfc", "ble", "internal"}

// Verification step failures.
var (
	// ErrUserNotFound is returned when the user has no profile or no pending challenge.
	ErrUserNotFound = errors.New("user not found")

	// ErrMalformedClientData marks a clientDataJSON field that cannot be decoded.
	ErrMalformedClientData = errors.New("malformed client data")

	// ErrMalformedAuthenticatorData marks an authenticatorData envelope that cannot be decoded.
	ErrMalformedAuthenticatorData = errors.New("malformed authenticator data")

	// ErrChallengeMismatch marks an echoed challenge that differs from the issued one.
	ErrChallengeMismatch = errors.New("challenge mismatch")

	// ErrOriginMismatch marks a client origin that differs from the configured one.
	ErrOriginMismatch = errors.New("origin mismatch")

	// ErrRPIDMismatch marks an rpIdHash that does not match the configured relying-party ID.
	ErrRPIDMismatch = errors.New("relying party ID mismatch")

	// ErrTypeMismatch marks a client data type other than "webauthn.get".
	ErrTypeMismatch = errors.New("client data type mismatch")

	// ErrSignatureInvalid marks a signature that the verifier rejects.
	ErrSignatureInvalid = errors.New("signature invalid")
)

// TrustedKeyStore loads the server's trusted key bundle.
type TrustedKeyStore interface {
	Load() (*keybundle.Bundle, error)
}

// Verifier validates a signature over a message for a policy. It must be a
// pure function of its inputs and must reject, never panic, on structurally
// invalid key material.
type Verifier interface {
	Verify(trustedKey, attesterKey *keybundle.Bundle, signature, message, policy []byte) bool
}

// Provider contains the dependencies of the assertion service.
type Provider interface {
	StorageProvider() storage.Provider
	ProfileStore() *profile.Store
	TrustedKeyStore() TrustedKeyStore
}

// Config carries the relying-party parameters of the service.
type Config struct {
	RPID             string
	RPOrigin         string
	ChallengeSize    int
	Timeout          int
	UserVerification string
}

// Option customizes the service.
type Option func(*Service)

// WithRand overrides the challenge randomness source.
func WithRand(rng io.Reader) Option {
	return func(s *Service) {
		s.rng = rng
	}
}

// WithVerifier overrides the signature verifier.
func WithVerifier(v Verifier) Option {
	return func(s *Service) {
		s.verifier = v
	}
}

// Service drives the assertion protocol. Challenges live in an injected
// store rather than process-global state, so two service instances over the
// same provider see the same pending challenges.
type Service struct {
	cfg        Config
	profiles   *profile.Store
	challenges storage.Store
	trusted    TrustedKeyStore
	verifier   Verifier
	rng        io.Reader
}

// New returns a new assertion service over the given provider.
func New(ctx Provider, cfg Config) (*Service, error) {
	challenges, err := ctx.StorageProvider().OpenStore(ChallengeStoreName)
	if err != nil {
		return nil, errors.Wrap(err, "open challenge store")
	}

	svc := &Service{
		cfg:        cfg,
		profiles:   ctx.ProfileStore(),
		challenges: challenges,
		trusted:    ctx.TrustedKeyStore(),
		verifier:   NewABSVerifier(),
		rng:        rand.Reader,
	}

	return svc, nil
}

// NewWithOptions returns a new assertion service with custom collaborators.
func NewWithOptions(ctx Provider, cfg Config, opts ...Option) (*Service, error) {
	svc, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// IssueChallenge loads the user's profile, binds a fresh random challenge to
// it together with the requested policy and returns the resulting options.
// A prior pending challenge for the same user is overwritten, never merged.
func (s *Service) IssueChallenge(userID, policy string) (*AuthnOptions, error) {
	record, err := s.profiles.Get(userID)
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			return nil, errors.Wrapf(ErrUserNotFound, "user %s", userID)
		}

		return nil, err
	}

	challengeBytes := make([]byte, s.cfg.ChallengeSize)
	if _, err := io.ReadFull(s.rng, challengeBytes); err != nil {
		return nil, errors.Wrap(err, "generate challenge")
	}

	challenge := base64.RawURLEncoding.EncodeToString(challengeBytes)

	pending := &ChallengeRecord{
		Challenge:   challenge,
		Policy:      policy,
		Attestation: record.Attestation,
	}

	data, err := json.Marshal(pending)
	if err != nil {
		return nil, errors.Wrap(err, "marshal challenge record")
	}

	if err := s.challenges.Put(userID, data); err != nil {
		return nil, errors.Wrap(err, "store challenge record")
	}

	options := &AuthnOptions{
		RP:               RelyingParty{ID: s.cfg.RPID},
		Challenge:        challenge,
		Timeout:          s.cfg.Timeout,
		UserVerification: s.cfg.UserVerification,
	}

	for _, credential := range record.Attestation {
		options.AllowCredentials = append(options.AllowCredentials, AllowCredential{
			Type:       credentialType,
			ID:         credential.CredID,
			Transports: credentialTransports,
		})
	}

	logger.Debugf("issued challenge for user %s under policy %q", userID, policy)

	return options, nil
}

// VerifyAssertion checks the authenticator's answer against the user's
// pending challenge. Every check runs even after an earlier one fails, so
// the outcome reports all failing steps; the assertion is Verified only when
// none fail. On success the user's profile is persisted with the consumed
// challenge and policy. The pending challenge record itself is not cleared;
// it stays valid until the next issuance overwrites it.
func (s *Service) VerifyAssertion(userID string, response *AssertionResponse) (*Outcome, error) {
	pending, err := s.pendingChallenge(userID)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{}

	clientDataRaw, client, err := decodeClientData(response.ClientDataJSON)
	if err != nil {
		outcome.Failures = append(outcome.Failures, errors.Wrap(ErrMalformedClientData, err.Error()))
	}

	clientDataHash := sha256.Sum256(clientDataRaw)

	if client.Challenge != pending.Challenge {
		outcome.Failures = append(outcome.Failures, ErrChallengeMismatch)
	}

	authData, err := decodeAuthenticatorData(response.AuthenticatorData)
	if err != nil {
		outcome.Failures = append(outcome.Failures, errors.Wrap(ErrMalformedAuthenticatorData, err.Error()))
	}

	if client.Origin != s.cfg.RPOrigin {
		outcome.Failures = append(outcome.Failures, ErrOriginMismatch)
	}

	rpIDHash := sha256.Sum256([]byte(s.cfg.RPID))
	if len(authData) < rpIDHashLen || !bytes.Equal(authData[:rpIDHashLen], rpIDHash[:]) {
		outcome.Failures = append(outcome.Failures, ErrRPIDMismatch)
	}

	if client.Type != clientDataType {
		outcome.Failures = append(outcome.Failures, ErrTypeMismatch)
	}

	// the flags byte of authData is intentionally not checked

	message := make([]byte, 0, len(authData)+len(clientDataHash)+len(pending.Policy))
	message = append(message, authData...)
	message = append(message, clientDataHash[:]...)
	message = append(message, pending.Policy...)

	if err := s.verifySignature(pending, response.Signature, message); err != nil {
		outcome.Failures = append(outcome.Failures, err)
	}

	outcome.Verified = len(outcome.Failures) == 0

	if outcome.Verified {
		if err := s.persistProfile(userID, pending); err != nil {
			return nil, err
		}

		logger.Infof("assertion verified for user %s", userID)
	} else {
		logger.Debugf("assertion rejected for user %s: %d failed checks", userID, len(outcome.Failures))
	}

	return outcome, nil
}

func (s *Service) pendingChallenge(userID string) (*ChallengeRecord, error) {
	data, err := s.challenges.Get(userID)
	if err != nil {
		if errors.Is(err, storage.ErrDataNotFound) {
			return nil, errors.Wrapf(ErrUserNotFound, "no pending challenge for user %s", userID)
		}

		return nil, errors.Wrap(err, "get challenge record")
	}

	pending := &ChallengeRecord{}
	if err := json.Unmarshal(data, pending); err != nil {
		return nil, errors.Wrap(err, "unmarshal challenge record")
	}

	return pending, nil
}

func (s *Service) verifySignature(pending *ChallengeRecord, signatureB64 string, message []byte) error {
	if len(pending.Attestation) == 0 {
		return errors.Wrap(ErrSignatureInvalid, "no registered credentials")
	}

	attesterKey, skipped, err := pending.Attestation[0].DecodeAPK()
	if err != nil {
		return errors.Wrap(ErrSignatureInvalid, err.Error())
	}

	if len(skipped) > 0 {
		logger.Warnf("attester key carried %d scalar-width components, ignored", len(skipped))
	}

	trustedKey, err := s.trusted.Load()
	if err != nil {
		return errors.Wrap(err, "load trusted key")
	}

	signature, err := base64.RawURLEncoding.DecodeString(signatureB64)
	if err != nil {
		return errors.Wrap(ErrSignatureInvalid, err.Error())
	}

	if !s.verifier.Verify(trustedKey, attesterKey, signature, message, []byte(pending.Policy)) {
		return ErrSignatureInvalid
	}

	return nil
}

func (s *Service) persistProfile(userID string, pending *ChallengeRecord) error {
	return s.profiles.Update(userID, func(r *profile.Record) error {
		r.Challenge = pending.Challenge
		r.Policy = pending.Policy

		return nil
	})
}

func decodeClientData(encoded string) ([]byte, clientData, error) {
	client := clientData{}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, client, err
	}

	if err := json.Unmarshal(raw, &client); err != nil {
		return raw, clientData{}, err
	}

	return raw, client, nil
}

// decodeAuthenticatorData unwraps the CBOR envelope and returns the signed
// portion: rpIdHash(32) followed by the flags byte and the sign counter.
func decodeAuthenticatorData(encoded string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}

	envelope := map[int][]byte{}
	if err := cbor.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}

	authData, ok := envelope[authDataEnvelope]
	if !ok {
		return nil, errors.Errorf("envelope is missing key %d", authDataEnvelope)
	}

	if len(authData) < minAuthDataLen {
		return nil, errors.Errorf("authenticator data too short: %d bytes", len(authData))
	}

	return authData, nil
}
