/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package keyvaluestore is the file backed credential store of the gateway.
// Each value lives in its own file below the store path.
package keyvaluestore

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/core"
	"github.com/pkg/errors"
)

const (
	newDirMode  = 0700
	newFileMode = 0600
)

// KeySerializer converts a key to a file path relative to the store path
type KeySerializer func(key interface{}) (string, error)

// Marshaller marshals a value into a byte array
type Marshaller func(value interface{}) ([]byte, error)

// Unmarshaller unmarshals a value from a byte array
type Unmarshaller func(value []byte) (interface{}, error)

// FileKeyValueStore stores each value into a separate file.
type FileKeyValueStore struct {
	path          string
	keySerializer KeySerializer
	marshaller    Marshaller
	unmarshaller  Unmarshaller
}

// FileKeyValueStoreOptions allow overriding store defaults
type FileKeyValueStoreOptions struct {
	// Store path, mandatory
	Path string
	// Optional. Defaults to the key string.
	KeySerializer KeySerializer
	// Optional. Defaults to accepting []byte and string values.
	Marshaller Marshaller
	// Optional. Defaults to returning the raw bytes.
	Unmarshaller Unmarshaller
}

func defaultKeySerializer(key interface{}) (string, error) {
	keyString, ok := key.(string)
	if !ok {
		return "", errors.Errorf("converting key of type %T to string failed", key)
	}
	return keyString, nil
}

func defaultMarshaller(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.Errorf("converting value of type %T to byte array failed", value)
	}
}

func defaultUnmarshaller(value []byte) (interface{}, error) {
	return value, nil
}

// New creates a new instance of FileKeyValueStore using provided options
func New(opts *FileKeyValueStoreOptions) (*FileKeyValueStore, error) {
	if opts == nil {
		return nil, errors.New("FileKeyValueStoreOptions is nil")
	}
	if opts.Path == "" {
		return nil, errors.New("FileKeyValueStore path is empty")
	}

	store := &FileKeyValueStore{
		path:          filepath.Clean(opts.Path),
		keySerializer: opts.KeySerializer,
		marshaller:    opts.Marshaller,
		unmarshaller:  opts.Unmarshaller,
	}
	if store.keySerializer == nil {
		store.keySerializer = defaultKeySerializer
	}
	if store.marshaller == nil {
		store.marshaller = defaultMarshaller
	}
	if store.unmarshaller == nil {
		store.unmarshaller = defaultUnmarshaller
	}
	return store, nil
}

// Path returns the store path
func (fkvs *FileKeyValueStore) Path() string {
	return fkvs.path
}

// file maps the key to a file inside the store path
func (fkvs *FileKeyValueStore) file(key interface{}) (string, error) {
	if key == nil {
		return "", errors.New("key is nil")
	}
	rel, err := fkvs.keySerializer(key)
	if err != nil {
		return "", err
	}
	if rel == "" {
		return "", errors.New("key is empty")
	}

	file := filepath.Join(fkvs.path, rel)
	if file != fkvs.path && !strings.HasPrefix(file, fkvs.path+string(filepath.Separator)) {
		return "", errors.Errorf("key %v resolves outside of the store", key)
	}
	return file, nil
}

// Load returns the value stored in the store for a key.
// If a value for the key was not found, returns (nil, core.ErrKeyValueNotFound)
func (fkvs *FileKeyValueStore) Load(key interface{}) (interface{}, error) {
	file, err := fkvs.file(key)
	if err != nil {
		return nil, err
	}

	bytes, err := ioutil.ReadFile(file) // nolint: gas
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrKeyValueNotFound
		}
		return nil, errors.Wrapf(err, "reading %s failed", file)
	}
	if len(bytes) == 0 {
		return nil, core.ErrKeyValueNotFound
	}
	return fkvs.unmarshaller(bytes)
}

// Store sets the value for the key. The file is replaced atomically.
func (fkvs *FileKeyValueStore) Store(key interface{}, value interface{}) error {
	if value == nil {
		return errors.New("value is nil")
	}
	file, err := fkvs.file(key)
	if err != nil {
		return err
	}
	valueBytes, err := fkvs.marshaller(value)
	if err != nil {
		return err
	}

	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, newDirMode); err != nil {
		return errors.Wrapf(err, "creating %s failed", dir)
	}

	tmp, err := ioutil.TempFile(dir, ".kvs-")
	if err != nil {
		return errors.Wrap(err, "creating temporary file failed")
	}
	defer os.Remove(tmp.Name()) // nolint: errcheck

	if _, err := tmp.Write(valueBytes); err != nil {
		tmp.Close() // nolint: errcheck
		return errors.Wrap(err, "writing value failed")
	}
	if err := tmp.Chmod(newFileMode); err != nil {
		tmp.Close() // nolint: errcheck
		return errors.Wrap(err, "chmod failed")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temporary file failed")
	}
	return os.Rename(tmp.Name(), file)
}

// Delete deletes the value for a key. Deleting a missing key is not an error.
func (fkvs *FileKeyValueStore) Delete(key interface{}) error {
	file, err := fkvs.file(key)
	if err != nil {
		return err
	}
	if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing %s failed", file)
	}
	return nil
}
