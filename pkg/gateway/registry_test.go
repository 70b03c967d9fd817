/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	mspProvider "github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/mocks"
	"github.com/hyperledger/fabric-rest-gateway/pkg/msp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeUser(t *testing.T, store mspProvider.UserStore, id, mspID string) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: id},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	require.NoError(t, store.Store(&mspProvider.UserData{
		ID:                    id,
		MSPID:                 mspID,
		EnrollmentCertificate: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		PrivateKey:            pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
	}))
}

func newTestRegistry(t *testing.T, n *mocks.MockInfraProvider) *Registry {
	store := msp.NewMemoryUserStore()
	storeUser(t, store, "User1", "Org1MSP")
	storeUser(t, store, "Admin", "Org1MSP")
	storeUser(t, store, "User1", "Org2MSP")
	return NewRegistry(newTestConfig(t), "User1", WithUserStore(store), WithInfraProvider(n))
}

func TestRegistry(t *testing.T) {
	r := newTestRegistry(t, newMockNetwork())

	gw1, err := r.Gateway("Org1")
	require.NoError(t, err)
	assert.Equal(t, "org1", gw1.Org())
	assert.Equal(t, "Org1MSP", gw1.MSPID())

	same, err := r.Gateway("org1")
	require.NoError(t, err)
	assert.True(t, gw1 == same)

	def, err := r.Gateway("")
	require.NoError(t, err)
	assert.True(t, gw1 == def, "client.organization is the default")

	gw2, err := r.Gateway("org2")
	require.NoError(t, err)
	assert.Equal(t, "Org2MSP", gw2.MSPID())
	assert.True(t, gw1.options.Coordinator == gw2.options.Coordinator, "gateways share the coordinator")

	_, err = r.Gateway("org3")
	require.Error(t, err)
	_, ok := err.(UnknownOrgError)
	assert.True(t, ok)

	r.Close()
	r.Close()
	_, err = r.Gateway("org1")
	assert.Equal(t, ErrClosed, err)
	_, err = gw1.GetNetwork("mychannel")
	assert.Equal(t, ErrClosed, err)
}

func TestResources(t *testing.T) {
	r := newTestRegistry(t, newMockNetwork())
	defer r.Close()

	gw1, err := r.Gateway("org1")
	require.NoError(t, err)
	rc, err := gw1.Resources()
	require.NoError(t, err)
	again, err := gw1.Resources()
	require.NoError(t, err)
	assert.True(t, rc == again)

	admin, err := gw1.SigningIdentity("Admin")
	require.NoError(t, err)
	assert.Equal(t, "Org1MSP", admin.Identifier().MSPID)

	gw2, err := r.Gateway("org2")
	require.NoError(t, err)
	_, err = gw2.Resources()
	assert.Error(t, err, "org2 has no admin")
}
