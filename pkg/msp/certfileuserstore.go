/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/core"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/keyvaluestore"
	"github.com/pkg/errors"
)

// CertFileUserStore stores each user in two PEM files,
// <user>@<msp>-cert.pem and <user>@<msp>-key.pem
type CertFileUserStore struct {
	store core.KVStore
}

func certKey(id msp.IdentityIdentifier) string {
	return id.ID + "@" + id.MSPID + "-cert.pem"
}

func privateKeyKey(id msp.IdentityIdentifier) string {
	return id.ID + "@" + id.MSPID + "-key.pem"
}

// NewCertFileUserStore creates a user store rooted at path
func NewCertFileUserStore(path string) (*CertFileUserStore, error) {
	if path == "" {
		return nil, errors.New("path is empty")
	}
	store, err := keyvaluestore.New(&keyvaluestore.FileKeyValueStoreOptions{
		Path: path,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "user store creation failed")
	}
	return &CertFileUserStore{store: store}, nil
}

// Load returns the User stored in the store for a key.
func (s *CertFileUserStore) Load(key msp.IdentityIdentifier) (*msp.UserData, error) {
	cert, err := s.loadBytes(certKey(key))
	if err != nil {
		return nil, err
	}
	privateKey, err := s.loadBytes(privateKeyKey(key))
	if err != nil {
		return nil, err
	}
	return &msp.UserData{
		MSPID:                 key.MSPID,
		ID:                    key.ID,
		EnrollmentCertificate: cert,
		PrivateKey:            privateKey,
	}, nil
}

// Store stores a User into store
func (s *CertFileUserStore) Store(user *msp.UserData) error {
	if user == nil || user.ID == "" || user.MSPID == "" {
		return errors.New("user ID and MSP ID are required")
	}
	id := msp.IdentityIdentifier{MSPID: user.MSPID, ID: user.ID}
	if err := s.store.Store(privateKeyKey(id), user.PrivateKey); err != nil {
		return errors.WithMessage(err, "storing private key failed")
	}
	if err := s.store.Store(certKey(id), user.EnrollmentCertificate); err != nil {
		return errors.WithMessage(err, "storing certificate failed")
	}
	return nil
}

// Delete deletes a User from store
func (s *CertFileUserStore) Delete(key msp.IdentityIdentifier) error {
	if err := s.store.Delete(certKey(key)); err != nil {
		return err
	}
	return s.store.Delete(privateKeyKey(key))
}

func (s *CertFileUserStore) loadBytes(key string) ([]byte, error) {
	v, err := s.store.Load(key)
	if err != nil {
		if err == core.ErrKeyValueNotFound {
			return nil, msp.ErrUserNotFound
		}
		return nil, err
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, errors.New("user is not of proper type")
	}
	return b, nil
}
