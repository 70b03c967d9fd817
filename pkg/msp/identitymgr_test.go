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
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"io/ioutil"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	pb_msp "github.com/hyperledger/fabric-protos-go/msp"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orgsConfig struct {
	fab.EndpointConfig
	orgs map[string]*fab.OrganizationConfig
}

func (c *orgsConfig) Organization(org string) (*fab.OrganizationConfig, bool) {
	o, ok := c.orgs[org]
	return o, ok
}

func newCertKeyPair(t *testing.T, cn string) fab.CertKeyPair {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return fab.CertKeyPair{
		Cert: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		Key:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
	}
}

func newTestConfig(t *testing.T) (*orgsConfig, fab.CertKeyPair) {
	admin := newCertKeyPair(t, "Admin@org1.example.com")
	return &orgsConfig{orgs: map[string]*fab.OrganizationConfig{
		"org1": {MSPID: "Org1MSP", Users: map[string]fab.CertKeyPair{"admin": admin}},
		"org2": {},
	}}, admin
}

func TestNewIdentityManager(t *testing.T) {
	cfg, _ := newTestConfig(t)

	_, err := NewIdentityManager("", cfg, nil)
	assert.Error(t, err)
	_, err = NewIdentityManager("org1", nil, nil)
	assert.Error(t, err)
	_, err = NewIdentityManager("org3", cfg, nil)
	assert.Error(t, err)
	_, err = NewIdentityManager("org2", cfg, nil)
	assert.Error(t, err, "empty MSP ID")

	mgr, err := NewIdentityManager("Org1", cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "Org1MSP", mgr.MSPID())
}

func TestEmbeddedUser(t *testing.T) {
	cfg, admin := newTestConfig(t)
	mgr, err := NewIdentityManager("org1", cfg, nil)
	require.NoError(t, err)

	id, err := mgr.GetSigningIdentity("Admin")
	require.NoError(t, err)
	assert.Equal(t, &msp.IdentityIdentifier{MSPID: "Org1MSP", ID: "Admin"}, id.Identifier())
	assert.Equal(t, admin.Cert, id.EnrollmentCertificate())

	raw, err := id.Serialize()
	require.NoError(t, err)
	sid := &pb_msp.SerializedIdentity{}
	require.NoError(t, proto.Unmarshal(raw, sid))
	assert.Equal(t, "Org1MSP", sid.Mspid)
	assert.Equal(t, admin.Cert, sid.IdBytes)

	again, err := mgr.GetSigningIdentity("Admin")
	require.NoError(t, err)
	assert.True(t, id == again, "identities are cached")

	_, err = mgr.GetSigningIdentity("User1")
	assert.Equal(t, msp.ErrUserNotFound, errors.Cause(err))
	_, err = mgr.GetSigningIdentity("")
	assert.Error(t, err)
}

func TestSignVerifies(t *testing.T) {
	cfg, admin := newTestConfig(t)
	mgr, err := NewIdentityManager("org1", cfg, nil)
	require.NoError(t, err)
	id, err := mgr.GetSigningIdentity("admin")
	require.NoError(t, err)

	msg := []byte("proposal bytes")
	sig, err := id.Sign(msg)
	require.NoError(t, err)

	cert, err := parseCertificate(admin.Cert)
	require.NoError(t, err)
	pub := cert.PublicKey.(*ecdsa.PublicKey)

	var parsed ecdsaSignature
	_, err = asn1.Unmarshal(sig, &parsed)
	require.NoError(t, err)
	digest := sha256.Sum256(msg)
	assert.True(t, ecdsa.Verify(pub, digest[:], parsed.R, parsed.S))

	halfOrder := new(big.Int).Rsh(pub.Curve.Params().N, 1)
	assert.True(t, parsed.S.Cmp(halfOrder) <= 0, "signature is low-S")

	_, err = id.Sign(nil)
	assert.Error(t, err)
}

func TestToLowS(t *testing.T) {
	curve := elliptic.P256()
	n := curve.Params().N
	high := new(big.Int).Sub(n, big.NewInt(1))
	assert.Equal(t, big.NewInt(1), toLowS(curve, high))
	assert.Equal(t, big.NewInt(5), toLowS(curve, big.NewInt(5)))
}

func TestNewUserValidation(t *testing.T) {
	a := newCertKeyPair(t, "a")
	b := newCertKeyPair(t, "b")

	_, err := NewUser(nil)
	assert.Error(t, err)
	_, err = NewUser(&msp.UserData{ID: "a", EnrollmentCertificate: a.Cert, PrivateKey: a.Key})
	assert.Error(t, err, "missing MSP ID")
	_, err = NewUser(&msp.UserData{ID: "a", MSPID: "m", EnrollmentCertificate: []byte("junk"), PrivateKey: a.Key})
	assert.Error(t, err)
	_, err = NewUser(&msp.UserData{ID: "a", MSPID: "m", EnrollmentCertificate: a.Cert, PrivateKey: []byte("junk")})
	assert.Error(t, err)

	_, err = NewUser(&msp.UserData{ID: "a", MSPID: "m", EnrollmentCertificate: a.Cert, PrivateKey: b.Key})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")

	block, _ := pem.Decode(a.Key)
	pkcs8, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	require.NoError(t, err)
	sec1, err := x509.MarshalECPrivateKey(pkcs8.(*ecdsa.PrivateKey))
	require.NoError(t, err)
	u, err := NewUser(&msp.UserData{ID: "a", MSPID: "m", EnrollmentCertificate: a.Cert,
		PrivateKey: pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: sec1})})
	require.NoError(t, err)
	assert.Equal(t, "a", u.Identifier().ID)
}

func TestUserStoreTakesPrecedence(t *testing.T) {
	cfg, _ := newTestConfig(t)
	stored := newCertKeyPair(t, "Admin@org1.example.com")

	store := NewMemoryUserStore()
	require.NoError(t, store.Store(&msp.UserData{ID: "admin", MSPID: "Org1MSP", EnrollmentCertificate: stored.Cert, PrivateKey: stored.Key}))

	mgr, err := NewIdentityManager("org1", cfg, store)
	require.NoError(t, err)
	id, err := mgr.GetSigningIdentity("admin")
	require.NoError(t, err)
	assert.Equal(t, stored.Cert, id.EnrollmentCertificate())
}

func TestImportUser(t *testing.T) {
	cfg, _ := newTestConfig(t)
	dir, err := ioutil.TempDir("", "msp")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	noStore, err := NewIdentityManager("org1", cfg, nil)
	require.NoError(t, err)
	pair := newCertKeyPair(t, "User1@org1.example.com")
	_, err = noStore.ImportUser("User1", pair.Cert, pair.Key)
	assert.Error(t, err)

	store, err := NewCertFileUserStore(dir)
	require.NoError(t, err)
	mgr, err := NewIdentityManager("org1", cfg, store)
	require.NoError(t, err)

	_, err = mgr.ImportUser("User1", pair.Cert, []byte("junk"))
	assert.Error(t, err)
	_, err = store.Load(msp.IdentityIdentifier{MSPID: "Org1MSP", ID: "User1"})
	assert.Equal(t, msp.ErrUserNotFound, err, "invalid pairs are not stored")

	_, err = mgr.ImportUser("User1", pair.Cert, pair.Key)
	require.NoError(t, err)

	// a fresh manager finds the user on disk
	mgr2, err := NewIdentityManager("org1", cfg, store)
	require.NoError(t, err)
	id, err := mgr2.GetSigningIdentity("User1")
	require.NoError(t, err)
	assert.Equal(t, pair.Cert, id.EnrollmentCertificate())
}

func TestCertFileUserStore(t *testing.T) {
	_, err := NewCertFileUserStore("")
	assert.Error(t, err)

	dir, err := ioutil.TempDir("", "userstore")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	store, err := NewCertFileUserStore(dir)
	require.NoError(t, err)

	key := msp.IdentityIdentifier{MSPID: "Org1MSP", ID: "user1"}
	_, err = store.Load(key)
	assert.Equal(t, msp.ErrUserNotFound, err)

	assert.Error(t, store.Store(&msp.UserData{ID: "user1"}))

	user := &msp.UserData{ID: "user1", MSPID: "Org1MSP", EnrollmentCertificate: []byte("cert"), PrivateKey: []byte("key")}
	require.NoError(t, store.Store(user))

	_, err = os.Stat(dir + "/user1@Org1MSP-cert.pem")
	assert.NoError(t, err)

	loaded, err := store.Load(key)
	require.NoError(t, err)
	assert.Equal(t, user, loaded)

	require.NoError(t, store.Delete(key))
	_, err = store.Load(key)
	assert.Equal(t, msp.ErrUserNotFound, err)
}
