/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package profile persists per-user authentication state: registered
// credentials, the attribute policy and the currently pending challenge.
package profile

import (
	"encoding/base64"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/absauthn/absauthn/pkg/doc/keybundle"
	"github.com/absauthn/absauthn/pkg/storage"
)

// StoreName is the store opened on the underlying provider.
const StoreName = "profiles"

// ErrProfileNotFound is returned when no profile exists for a user.
var ErrProfileNotFound = errors.New("profile not found")

// Credential is one registered authenticator credential. APK carries the
// attester public key as a base64url-encoded CBOR map.
type Credential struct {
	CredID string `json:"credId"`
	APK    string `json:"apk"`
}

// Record is the stored profile of a single user.
type Record struct {
	Name        string       `json:"name"`
	Challenge   string       `json:"challenge,omitempty"`
	Policy      string       `json:"policy,omitempty"`
	Attestation []Credential `json:"attestation"`
}

// Store reads and writes user profiles. Writes to the same user are
// serialized so concurrent assertion flows cannot interleave updates.
type Store struct {
	store storage.Store

	userLocks map[string]*sync.Mutex
	lock      sync.Mutex
}

// NewStore opens the profile store on the given provider.
func NewStore(provider storage.Provider) (*Store, error) {
	store, err := provider.OpenStore(StoreName)
	if err != nil {
		return nil, errors.Wrap(err, "open profile store")
	}

	return &Store{store: store, userLocks: make(map[string]*sync.Mutex)}, nil
}

// Get returns the profile of the given user.
func (s *Store) Get(name string) (*Record, error) {
	data, err := s.store.Get(name)
	if err != nil {
		if errors.Is(err, storage.ErrDataNotFound) {
			return nil, errors.Wrapf(ErrProfileNotFound, "user %s", name)
		}

		return nil, errors.Wrap(err, "get profile")
	}

	record := &Record{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, errors.Wrap(err, "unmarshal profile")
	}

	return record, nil
}

// Save persists the given profile record.
func (s *Store) Save(record *Record) error {
	if record.Name == "" {
		return errors.New("profile name is mandatory")
	}

	mu := s.userLock(record.Name)
	mu.Lock()
	defer mu.Unlock()

	return s.put(record)
}

// Update applies fn to the stored profile of the given user and writes the
// result back under the user's lock.
func (s *Store) Update(name string, fn func(*Record) error) error {
	mu := s.userLock(name)
	mu.Lock()
	defer mu.Unlock()

	record, err := s.Get(name)
	if err != nil {
		return err
	}

	if err := fn(record); err != nil {
		return err
	}

	return s.put(record)
}

// Register creates the profile for a user if needed and adds a credential
// holding the given attester public key. It returns the generated credential
// ID.
func (s *Store) Register(name, policy string, apk *keybundle.Bundle) (string, error) {
	apkCBOR, err := keybundle.EncodeCBOR(keybundle.ToByteMap(apk))
	if err != nil {
		return "", errors.Wrap(err, "encode attester public key")
	}

	credID := uuid.New().String()
	credential := Credential{
		CredID: credID,
		APK:    base64.RawURLEncoding.EncodeToString(apkCBOR),
	}

	mu := s.userLock(name)
	mu.Lock()
	defer mu.Unlock()

	record, err := s.Get(name)
	if err != nil {
		if !errors.Is(err, ErrProfileNotFound) {
			return "", err
		}

		record = &Record{Name: name}
	}

	record.Policy = policy
	record.Attestation = append(record.Attestation, credential)

	if err := s.put(record); err != nil {
		return "", err
	}

	return credID, nil
}

// Credential returns the registered credential with the given ID.
func (r *Record) Credential(credID string) (*Credential, bool) {
	for i := range r.Attestation {
		if r.Attestation[i].CredID == credID {
			return &r.Attestation[i], true
		}
	}

	return nil, false
}

// DecodeAPK decodes the credential's attester public key into a key bundle.
// Scalar-width components are not valid in a public key and are dropped; the
// names of any dropped components are returned alongside the bundle.
func (c *Credential) DecodeAPK() (*keybundle.Bundle, []string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(c.APK)
	if err != nil {
		return nil, nil, errors.Wrap(err, "decode attester public key")
	}

	byteMap, err := keybundle.DecodeCBOR(raw)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse attester public key")
	}

	return keybundle.FromByteMap(byteMap)
}

func (s *Store) put(record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshal profile")
	}

	if err := s.store.Put(record.Name, data); err != nil {
		return errors.Wrap(err, "put profile")
	}

	return nil
}

func (s *Store) userLock(name string) *sync.Mutex {
	s.lock.Lock()
	defer s.lock.Unlock()

	mu, ok := s.userLocks[name]
	if !ok {
		mu = &sync.Mutex{}
		s.userLocks[name] = mu
	}

	return mu
}
