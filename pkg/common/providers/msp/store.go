/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

// UserData is the representation of a user in the credential store.
// The private key is kept next to it in PEM form.
type UserData struct {
	ID                    string
	MSPID                 string
	EnrollmentCertificate []byte
	PrivateKey            []byte
}

// UserStore is responsible for UserData persistence
type UserStore interface {
	Store(*UserData) error
	Load(IdentityIdentifier) (*UserData, error)
}
