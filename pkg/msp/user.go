/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"math/big"

	"github.com/golang/protobuf/proto"
	pb_msp "github.com/hyperledger/fabric-protos-go/msp"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
	"github.com/pkg/errors"
)

// User is a signing identity backed by an enrollment certificate and its
// ECDSA private key
type User struct {
	id                    string
	mspID                 string
	enrollmentCertificate []byte
	privateKey            *ecdsa.PrivateKey
}

// NewUser builds a User from PEM encoded certificate and private key.
// The key must match the public key of the certificate.
func NewUser(userData *msp.UserData) (*User, error) {
	if userData == nil || userData.ID == "" || userData.MSPID == "" {
		return nil, errors.New("user ID and MSP ID are required")
	}

	cert, err := parseCertificate(userData.EnrollmentCertificate)
	if err != nil {
		return nil, errors.WithMessage(err, "enrollment certificate of "+userData.ID)
	}
	key, err := parsePrivateKey(userData.PrivateKey)
	if err != nil {
		return nil, errors.WithMessage(err, "private key of "+userData.ID)
	}

	pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.Errorf("certificate of %s does not carry an ECDSA key", userData.ID)
	}
	if pub.X.Cmp(key.X) != 0 || pub.Y.Cmp(key.Y) != 0 {
		return nil, errors.Errorf("private key of %s does not match its certificate", userData.ID)
	}

	return &User{
		id:                    userData.ID,
		mspID:                 userData.MSPID,
		enrollmentCertificate: userData.EnrollmentCertificate,
		privateKey:            key,
	}, nil
}

// Identifier returns user identifier
func (u *User) Identifier() *msp.IdentityIdentifier {
	return &msp.IdentityIdentifier{MSPID: u.mspID, ID: u.id}
}

// EnrollmentCertificate returns the PEM encoded certificate of the user
func (u *User) EnrollmentCertificate() []byte {
	return u.enrollmentCertificate
}

// Serialize returns the SerializedIdentity used as transaction creator
func (u *User) Serialize() ([]byte, error) {
	serializedIdentity := &pb_msp.SerializedIdentity{
		Mspid:   u.mspID,
		IdBytes: u.enrollmentCertificate,
	}
	identity, err := proto.Marshal(serializedIdentity)
	if err != nil {
		return nil, errors.Wrap(err, "marshal serializedIdentity failed")
	}
	return identity, nil
}

// Sign signs the SHA-256 digest of msg. Signatures are normalized to low-S
// as required by the peers.
func (u *User) Sign(msg []byte) ([]byte, error) {
	if len(msg) == 0 {
		return nil, errors.New("object (to sign) required")
	}
	digest := sha256.Sum256(msg)

	r, s, err := ecdsa.Sign(rand.Reader, u.privateKey, digest[:])
	if err != nil {
		return nil, errors.Wrap(err, "ECDSA signing failed")
	}
	s = toLowS(u.privateKey.Curve, s)

	sig, err := asn1.Marshal(ecdsaSignature{R: r, S: s})
	if err != nil {
		return nil, errors.Wrap(err, "signature marshal failed")
	}
	return sig, nil
}

type ecdsaSignature struct {
	R, S *big.Int
}

func toLowS(curve elliptic.Curve, s *big.Int) *big.Int {
	n := curve.Params().N
	halfOrder := new(big.Int).Rsh(n, 1)
	if s.Cmp(halfOrder) > 0 {
		return new(big.Int).Sub(n, s)
	}
	return s
}

func parseCertificate(raw []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "certificate parsing failed")
	}
	return cert, nil
}

// parsePrivateKey accepts PKCS#8 (as written by cryptogen) and SEC 1 keys
func parsePrivateKey(raw []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		ecKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, errors.New("private key is not an ECDSA key")
		}
		return ecKey, nil
	}

	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "private key parsing failed")
	}
	return key, nil
}
