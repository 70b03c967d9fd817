/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"github.com/pkg/errors"
)

var (
	// ErrUserNotFound indicates the user was not found
	ErrUserNotFound = errors.New("user not found")
)

// IdentityManager provides the signing identities of one organization
type IdentityManager interface {
	GetSigningIdentity(name string) (SigningIdentity, error)
}

// Identity represents a Fabric client identity
type Identity interface {
	// Identifier returns the identifier of that identity
	Identifier() *IdentityIdentifier
	// Serialize converts an identity to the bytes used as transaction creator
	Serialize() ([]byte, error)
	// EnrollmentCertificate returns the PEM encoded certificate of the identity
	EnrollmentCertificate() []byte
}

// SigningIdentity is an extension of Identity to cover signing capabilities.
type SigningIdentity interface {
	Identity
	// Sign the message
	Sign(msg []byte) ([]byte, error)
}

// IdentityIdentifier is a holder for the identifier of a specific
// identity, naturally namespaced, by its provider identifier.
type IdentityIdentifier struct {
	// The identifier of the associated membership service provider
	MSPID string
	// The identifier for an identity within a provider
	ID string
}
