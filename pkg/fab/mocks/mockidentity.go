/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"github.com/golang/protobuf/proto"
	mspprotos "github.com/hyperledger/fabric-protos-go/msp"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
)

// MockSigningIdentity is a signing identity whose signature is the message prefixed with "sig:"
type MockSigningIdentity struct {
	ID        string
	MSPID     string
	Cert      []byte
	SignError error
}

// NewMockSigningIdentity returns a new mock signing identity
func NewMockSigningIdentity(id, mspID string) *MockSigningIdentity {
	return &MockSigningIdentity{ID: id, MSPID: mspID, Cert: []byte("-----BEGIN CERTIFICATE-----\nmock\n-----END CERTIFICATE-----\n")}
}

// Identifier returns the identifier of the identity
func (m *MockSigningIdentity) Identifier() *msp.IdentityIdentifier {
	return &msp.IdentityIdentifier{ID: m.ID, MSPID: m.MSPID}
}

// Serialize returns the serialized identity
func (m *MockSigningIdentity) Serialize() ([]byte, error) {
	return proto.Marshal(&mspprotos.SerializedIdentity{Mspid: m.MSPID, IdBytes: m.Cert})
}

// EnrollmentCertificate returns the enrollment certificate
func (m *MockSigningIdentity) EnrollmentCertificate() []byte {
	return m.Cert
}

// Sign returns a fake signature
func (m *MockSigningIdentity) Sign(msg []byte) ([]byte, error) {
	if m.SignError != nil {
		return nil, m.SignError
	}
	return append([]byte("sig:"), msg...), nil
}
