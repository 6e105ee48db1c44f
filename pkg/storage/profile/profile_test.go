/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package profile

import (
	"crypto/rand"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/absauthn/absauthn/pkg/crypto/curve"
	"github.com/absauthn/absauthn/pkg/doc/keybundle"
	"github.com/absauthn/absauthn/pkg/storage/mem"
)

func newTestAPK(t *testing.T) *keybundle.Bundle {
	t.Helper()

	seed := curve.SampleScalar(rand.Reader)

	g1, err := curve.HashToG1(seed)
	require.NoError(t, err)

	bundle := keybundle.New()
	require.NoError(t, bundle.Set("g1", g1))
	require.NoError(t, bundle.Set("cert", g1))
	bundle.SetAttributes(keybundle.AttributeMap{"age": 30, "clearance": 2})

	return bundle
}

func TestRegisterAndGet(t *testing.T) {
	store, err := NewStore(mem.NewProvider())
	require.NoError(t, err)

	apk := newTestAPK(t)

	credID, err := store.Register("alice", "age>18", apk)
	require.NoError(t, err)
	require.NotEmpty(t, credID)

	record, err := store.Get("alice")
	require.NoError(t, err)
	require.Equal(t, "alice", record.Name)
	require.Equal(t, "age>18", record.Policy)
	require.Len(t, record.Attestation, 1)

	credential, ok := record.Credential(credID)
	require.True(t, ok)

	decoded, skipped, err := credential.DecodeAPK()
	require.NoError(t, err)
	require.Empty(t, skipped)
	require.True(t, apk.Equal(decoded))
}

func TestRegisterSecondCredential(t *testing.T) {
	store, err := NewStore(mem.NewProvider())
	require.NoError(t, err)

	first, err := store.Register("alice", "age>18", newTestAPK(t))
	require.NoError(t, err)

	second, err := store.Register("alice", "age>18", newTestAPK(t))
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	record, err := store.Get("alice")
	require.NoError(t, err)
	require.Len(t, record.Attestation, 2)
}

func TestGetNotFound(t *testing.T) {
	store, err := NewStore(mem.NewProvider())
	require.NoError(t, err)

	_, err = store.Get("nobody")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrProfileNotFound))
}

func TestUpdate(t *testing.T) {
	store, err := NewStore(mem.NewProvider())
	require.NoError(t, err)

	_, err = store.Register("alice", "age>18", newTestAPK(t))
	require.NoError(t, err)

	err = store.Update("alice", func(r *Record) error {
		r.Challenge = "c29tZS1jaGFsbGVuZ2U"

		return nil
	})
	require.NoError(t, err)

	record, err := store.Get("alice")
	require.NoError(t, err)
	require.Equal(t, "c29tZS1jaGFsbGVuZ2U", record.Challenge)
}

func TestUpdateMissingProfile(t *testing.T) {
	store, err := NewStore(mem.NewProvider())
	require.NoError(t, err)

	err = store.Update("nobody", func(r *Record) error { return nil })
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrProfileNotFound))
}

func TestUpdateCallbackError(t *testing.T) {
	store, err := NewStore(mem.NewProvider())
	require.NoError(t, err)

	_, err = store.Register("alice", "age>18", newTestAPK(t))
	require.NoError(t, err)

	wantErr := errors.New("rejected")

	err = store.Update("alice", func(r *Record) error { return wantErr })
	require.Equal(t, wantErr, err)
}

func TestCredentialLookupMiss(t *testing.T) {
	record := &Record{Name: "alice"}

	_, ok := record.Credential("missing")
	require.False(t, ok)
}

func TestConcurrentRegister(t *testing.T) {
	store, err := NewStore(mem.NewProvider())
	require.NoError(t, err)

	apk := newTestAPK(t)

	const workers = 8

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := store.Register("alice", "age>18", apk)
			require.NoError(t, err)
		}()
	}

	wg.Wait()

	record, err := store.Get("alice")
	require.NoError(t, err)
	require.Len(t, record.Attestation, workers)
}
