/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jsonfile provides a file-backed storage provider. Each store is a
// directory and each record is a single JSON document named <key>.json.
package jsonfile

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/absauthn/absauthn/pkg/storage"
)

// Provider is a file-backed implementation of storage.Provider.
type Provider struct {
	rootPath string
	stores   map[string]*jsonFileStore
	lock     sync.RWMutex
}

// NewProvider instantiates a Provider rooted at the given directory.
func NewProvider(rootPath string) (*Provider, error) {
	if err := os.MkdirAll(rootPath, 0o700); err != nil {
		return nil, errors.Wrapf(err, "create storage root %s", rootPath)
	}

	return &Provider{rootPath: rootPath, stores: make(map[string]*jsonFileStore)}, nil
}

// OpenStore opens and returns a store for the given name.
func (p *Provider) OpenStore(name string) (storage.Store, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	store, ok := p.stores[name]
	if ok {
		return store, nil
	}

	dirPath := filepath.Join(p.rootPath, name)
	if err := os.MkdirAll(dirPath, 0o700); err != nil {
		return nil, errors.Wrapf(err, "create store directory %s", dirPath)
	}

	store = &jsonFileStore{dirPath: dirPath}
	p.stores[name] = store

	return store, nil
}

// CloseStore closes the store of the given name.
func (p *Provider) CloseStore(name string) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	delete(p.stores, name)

	return nil
}

// Close closes all stores created under this provider.
func (p *Provider) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.stores = make(map[string]*jsonFileStore)

	return nil
}

type jsonFileStore struct {
	dirPath string
	lock    sync.RWMutex
}

// Put stores the key-value pair. Values are written through a temporary file
// so a failed write never corrupts an existing record.
func (s *jsonFileStore) Put(k string, v []byte) error {
	if k == "" {
		return errors.New("key is mandatory")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	tmp, err := os.CreateTemp(s.dirPath, "record-*")
	if err != nil {
		return errors.Wrap(err, "create temp record")
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(v); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		os.Remove(tmpName) //nolint:errcheck,gosec

		return errors.Wrap(err, "write record")
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck,gosec

		return errors.Wrap(err, "close record")
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName) //nolint:errcheck,gosec

		return errors.Wrap(err, "chmod record")
	}

	if err := os.Rename(tmpName, s.recordPath(k)); err != nil {
		os.Remove(tmpName) //nolint:errcheck,gosec

		return errors.Wrap(err, "rename record")
	}

	return nil
}

// Get fetches the record for the given key.
func (s *jsonFileStore) Get(k string) ([]byte, error) {
	if k == "" {
		return nil, errors.New("key is mandatory")
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	data, err := os.ReadFile(s.recordPath(k))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrDataNotFound
		}

		return nil, errors.Wrap(err, "read record")
	}

	return data, nil
}

// recordPath encodes the key so arbitrary user identifiers stay inside the
// store directory.
func (s *jsonFileStore) recordPath(k string) string {
	return filepath.Join(s.dirPath, base64.RawURLEncoding.EncodeToString([]byte(k))+".json")
}
