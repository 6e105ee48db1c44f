/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keyfile

import (
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/absauthn/absauthn/pkg/crypto/curve"
	"github.com/absauthn/absauthn/pkg/doc/keybundle"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	seed := curve.SampleScalar(rand.Reader)

	p2, err := curve.HashToG2(seed)
	require.NoError(t, err)

	bundle := keybundle.New()
	require.NoError(t, bundle.Set("w2", p2))
	bundle.SetAttributes(keybundle.AttributeMap{"age": 30})

	path := filepath.Join(t.TempDir(), "server.tpk")
	store := NewStore()

	require.NoError(t, store.Save(bundle, path))

	loaded, err := store.Load(path)
	require.NoError(t, err)
	require.True(t, bundle.Equal(loaded))
}

func TestSaveOverwritesAtomically(t *testing.T) {
	store := NewStore()
	path := filepath.Join(t.TempDir(), "server.tpk")

	first := keybundle.New()
	require.NoError(t, first.Set("x", curve.SampleScalar(rand.Reader)))
	require.NoError(t, store.Save(first, path))

	second := keybundle.New()
	require.NoError(t, second.Set("x", curve.SampleScalar(rand.Reader)))
	require.NoError(t, store.Save(second, path))

	loaded, err := store.Load(path)
	require.NoError(t, err)
	require.True(t, second.Equal(loaded))

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewStore().Load(filepath.Join(t.TempDir(), "absent.tpk"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrKeyFileNotFound))
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.tpk")
	require.NoError(t, os.WriteFile(path, []byte("w2:AAAA:ECP2\n"), 0o600))

	_, err := NewStore().Load(path)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrKeyFileCorrupt))
}
