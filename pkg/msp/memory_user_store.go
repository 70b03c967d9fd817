/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"sync"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
)

// MemoryUserStore is in-memory implementation of UserStore
type MemoryUserStore struct {
	lock  sync.RWMutex
	store map[msp.IdentityIdentifier]msp.UserData
}

// NewMemoryUserStore creates a new MemoryUserStore instance
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{store: make(map[msp.IdentityIdentifier]msp.UserData)}
}

// Store stores a user into store
func (s *MemoryUserStore) Store(user *msp.UserData) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.store[msp.IdentityIdentifier{MSPID: user.MSPID, ID: user.ID}] = *user
	return nil
}

// Load loads a user from store
func (s *MemoryUserStore) Load(id msp.IdentityIdentifier) (*msp.UserData, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	userData, ok := s.store[id]
	if !ok {
		return nil, msp.ErrUserNotFound
	}
	return &userData, nil
}
