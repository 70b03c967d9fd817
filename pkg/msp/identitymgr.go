/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"strings"
	"sync"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
	"github.com/pkg/errors"
)

var logger = logging.NewLogger("fabgw/msp")

// IdentityManager implements fab/IdentityManager
type IdentityManager struct {
	orgName       string
	orgMSPID      string
	embeddedUsers map[string]fab.CertKeyPair
	userStore     msp.UserStore

	lock  sync.RWMutex
	users map[string]*User
}

// NewIdentityManager creates the identity manager of an organization.
// Identities are looked up in the user store first, then among the users
// embedded in the network configuration. userStore may be nil.
func NewIdentityManager(orgName string, endpointConfig fab.EndpointConfig, userStore msp.UserStore) (*IdentityManager, error) {
	if orgName == "" {
		return nil, errors.New("orgName is required")
	}
	if endpointConfig == nil {
		return nil, errors.New("endpoint config is required")
	}

	orgName = strings.ToLower(orgName)
	orgConfig, ok := endpointConfig.Organization(orgName)
	if !ok {
		return nil, errors.Errorf("org config retrieval failed for %s", orgName)
	}
	if orgConfig.MSPID == "" {
		return nil, errors.Errorf("MSP ID is empty for org: %s", orgName)
	}

	mgr := &IdentityManager{
		orgName:       orgName,
		orgMSPID:      orgConfig.MSPID,
		embeddedUsers: orgConfig.Users,
		userStore:     userStore,
		users:         make(map[string]*User),
	}
	return mgr, nil
}

// MSPID returns the MSP ID of the organization
func (mgr *IdentityManager) MSPID() string {
	return mgr.orgMSPID
}

// GetSigningIdentity returns a signing identity for the given id
func (mgr *IdentityManager) GetSigningIdentity(id string) (msp.SigningIdentity, error) {
	if id == "" {
		return nil, errors.New("username is required")
	}

	mgr.lock.RLock()
	u, ok := mgr.users[id]
	mgr.lock.RUnlock()
	if ok {
		return u, nil
	}

	u, err := mgr.loadUser(id)
	if err != nil {
		return nil, err
	}

	mgr.lock.Lock()
	mgr.users[id] = u
	mgr.lock.Unlock()
	return u, nil
}

// ImportUser validates a certificate and key pair and persists it in the user store
func (mgr *IdentityManager) ImportUser(id string, cert, key []byte) (*User, error) {
	if mgr.userStore == nil {
		return nil, errors.New("no user store configured")
	}
	userData := &msp.UserData{
		ID:                    id,
		MSPID:                 mgr.orgMSPID,
		EnrollmentCertificate: cert,
		PrivateKey:            key,
	}
	u, err := NewUser(userData)
	if err != nil {
		return nil, err
	}
	if err := mgr.userStore.Store(userData); err != nil {
		return nil, errors.WithMessage(err, "failed to store user")
	}

	mgr.lock.Lock()
	mgr.users[id] = u
	mgr.lock.Unlock()
	logger.Debugf("Imported user [%s] of MSP [%s]", id, mgr.orgMSPID)
	return u, nil
}

func (mgr *IdentityManager) loadUser(id string) (*User, error) {
	userData, err := mgr.loadUserFromStore(id)
	if err != nil && err != msp.ErrUserNotFound {
		return nil, errors.WithMessage(err, "loading user from store failed")
	}
	if userData == nil {
		pair, ok := mgr.embeddedUsers[strings.ToLower(id)]
		if !ok {
			return nil, errors.Wrapf(msp.ErrUserNotFound, "user %s of org %s", id, mgr.orgName)
		}
		userData = &msp.UserData{
			ID:                    id,
			MSPID:                 mgr.orgMSPID,
			EnrollmentCertificate: pair.Cert,
			PrivateKey:            pair.Key,
		}
		logger.Debugf("Using embedded credentials of user [%s]", id)
	}
	return NewUser(userData)
}

func (mgr *IdentityManager) loadUserFromStore(id string) (*msp.UserData, error) {
	if mgr.userStore == nil {
		return nil, msp.ErrUserNotFound
	}
	return mgr.userStore.Load(msp.IdentityIdentifier{MSPID: mgr.orgMSPID, ID: id})
}
