/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package keyfile persists key bundles on disk in the tagged text format.
// The on-disk representation is round-trip stable: a saved bundle loads
// back unchanged.
package keyfile

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/absauthn/absauthn/pkg/doc/keybundle"
)

var (
	// ErrKeyFileNotFound is returned when no key file exists at the given path.
	ErrKeyFileNotFound = errors.New("key file not found")

	// ErrKeyFileCorrupt is returned when a key file exists but cannot be decoded.
	ErrKeyFileCorrupt = errors.New("key file corrupt")
)

const keyFileMode = 0o600

// Store reads and writes key bundles at fixed file paths.
type Store struct{}

// NewStore returns a file-backed key store.
func NewStore() *Store {
	return &Store{}
}

// Save writes the bundle to the given path in the tagged text format. The
// data is written to a temporary file in the same directory and renamed
// into place, so a failed write never corrupts a previously valid file.
func (s *Store) Save(bundle *keybundle.Bundle, path string) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return errors.Wrap(err, "create temp key file")
	}

	tmpName := tmp.Name()

	if _, err = tmp.Write(keybundle.EncodeText(bundle)); err != nil {
		tmp.Close()           //nolint:errcheck,gosec
		os.Remove(tmpName)    //nolint:errcheck,gosec
		return errors.Wrap(err, "write temp key file")
	}

	if err = tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck,gosec
		return errors.Wrap(err, "close temp key file")
	}

	if err = os.Chmod(tmpName, keyFileMode); err != nil {
		os.Remove(tmpName) //nolint:errcheck,gosec
		return errors.Wrap(err, "chmod temp key file")
	}

	if err = os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck,gosec
		return errors.Wrap(err, "rename temp key file")
	}

	return nil
}

// Load reads and decodes the bundle stored at the given path.
func (s *Store) Load(path string) (*keybundle.Bundle, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrKeyFileNotFound, "%s", path)
		}

		return nil, errors.Wrap(err, "read key file")
	}

	bundle, err := keybundle.DecodeText(data)
	if err != nil {
		return nil, errors.Wrapf(ErrKeyFileCorrupt, "%s: %s", path, err.Error())
	}

	return bundle, nil
}
