/*
Copyright 2020 IBM All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	"testing"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/core/config"
	fabImpl "github.com/hyperledger/fabric-rest-gateway/pkg/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	org1Peer0 = "grpc://peer0.org1.example.com:7051"
	org1Peer1 = "grpc://peer1.org1.example.com:7051"
	org2Peer0 = "grpc://peer0.org2.example.com:9051"
	orderer   = "grpc://orderer.example.com:7050"
)

const networkYAML = `
client:
  organization: Org1
  eventService:
    timeout:
      commit: 2s
channels:
  mychannel:
    orderers:
      - orderer.example.com
    peers:
      peer0.org1.example.com: {}
      peer1.org1.example.com:
        eventSource: false
      peer0.org2.example.com: {}
organizations:
  Org1:
    mspid: Org1MSP
    peers:
      - peer0.org1.example.com
      - peer1.org1.example.com
  Org2:
    mspid: Org2MSP
    peers:
      - peer0.org2.example.com
orderers:
  orderer.example.com:
    url: grpc://orderer.example.com:7050
peers:
  peer0.org1.example.com:
    url: grpc://peer0.org1.example.com:7051
  peer1.org1.example.com:
    url: grpc://peer1.org1.example.com:7051
  peer0.org2.example.com:
    url: grpc://peer0.org2.example.com:9051
`

func newMockNetwork() *mocks.MockInfraProvider {
	n := mocks.NewMockInfraProvider()
	for url, mspID := range map[string]string{org1Peer0: "Org1MSP", org1Peer1: "Org1MSP", org2Peer0: "Org2MSP"} {
		n.AddPeer(url, mspID).Payload = []byte("value")
	}
	n.AddOrderer(orderer)
	return n
}

func newTestConfig(t *testing.T) *fabImpl.EndpointConfig {
	backends, err := config.FromRaw([]byte(networkYAML), "yaml")()
	require.NoError(t, err)
	cfg, err := fabImpl.ConfigFromBackend(backends...)
	require.NoError(t, err)
	return cfg
}

func connect(t *testing.T, n *mocks.MockInfraProvider, opts ...Option) *Gateway {
	opts = append([]Option{WithInfraProvider(n)}, opts...)
	gw, err := Connect(WithEndpointConfig(newTestConfig(t)), WithIdentity(mocks.NewMockSigningIdentity("User1", "Org1MSP")), opts...)
	require.NoError(t, err)
	return gw
}

func TestConnectRequiresIdentity(t *testing.T) {
	_, err := Connect(WithEndpointConfig(newTestConfig(t)), WithUser(""), WithInfraProvider(newMockNetwork()))
	assert.Error(t, err)

	_, err = Connect(WithEndpointConfig(newTestConfig(t)), WithUser("nobody"), WithInfraProvider(newMockNetwork()))
	assert.Error(t, err)

	_, err = Connect(WithEndpointConfig(nil), WithUser("User1"))
	assert.Error(t, err)
}

func TestConnectRejectsForeignIdentity(t *testing.T) {
	_, err := Connect(WithEndpointConfig(newTestConfig(t)), WithIdentity(mocks.NewMockSigningIdentity("User1", "Org2MSP")), WithInfraProvider(newMockNetwork()))
	assert.Error(t, err)

	gw, err := Connect(WithEndpointConfig(newTestConfig(t)), WithIdentity(mocks.NewMockSigningIdentity("User1", "Org2MSP")), WithInfraProvider(newMockNetwork()), WithOrg("org2"))
	require.NoError(t, err)
	assert.Equal(t, "org2", gw.Org())
	assert.Equal(t, "Org2MSP", gw.MSPID())
}

func TestSubmitTransaction(t *testing.T) {
	n := newMockNetwork()
	gw := connect(t, n)
	defer gw.Close()

	nw, err := gw.GetNetwork("mychannel")
	require.NoError(t, err)
	assert.Equal(t, "mychannel", nw.Name())

	contract := nw.GetContract("fabcar")
	assert.Equal(t, "fabcar", contract.Name())

	txn, err := contract.CreateTransaction("createCar")
	require.NoError(t, err)
	payload, err := txn.Submit("CAR1", "Honda")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), payload)

	txID := string(txn.Result().TransactionID)
	for url, p := range n.Peers {
		assert.Equal(t, []string{txID}, p.TxIDs(), "every endorsing peer of the channel endorses: %s", url)
	}
	assert.Equal(t, []string{txID}, n.Orderers[orderer].TxIDs())

	outcomes := txn.Result().Verdict.Outcomes
	require.Len(t, outcomes, 2, "orderer and the single org1 event source")
	assert.Equal(t, fab.OrdererSource, outcomes[0].Source)
	assert.Equal(t, org1Peer0, outcomes[1].Node)
}

func TestEvaluateWithEndorsingPeers(t *testing.T) {
	n := newMockNetwork()
	gw := connect(t, n)
	defer gw.Close()

	nw, err := gw.GetNetwork("mychannel")
	require.NoError(t, err)

	txn, err := nw.GetContract("fabcar").CreateTransaction("queryCar", WithEndorsingPeers("peer1.org1.example.com"))
	require.NoError(t, err)
	payload, err := txn.Evaluate("CAR1")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), payload)

	assert.Equal(t, 1, n.Peers[org1Peer1].ProcessProposalCalls())
	assert.Equal(t, 0, n.Peers[org1Peer0].ProcessProposalCalls())
	assert.Empty(t, n.Orderers[orderer].TxIDs())
}

func TestSubmitTransient(t *testing.T) {
	n := newMockNetwork()
	gw := connect(t, n)
	defer gw.Close()

	nw, err := gw.GetNetwork("mychannel")
	require.NoError(t, err)

	transient := map[string][]byte{"price": []byte("8500")}
	txn, err := nw.GetContract("fabcar").CreateTransaction("createCar",
		WithTransient(transient),
		WithEndorsingPeers("peer0.org1.example.com"),
		WithOrderers("orderer.example.com"),
	)
	require.NoError(t, err)
	assert.Equal(t, []byte("8500"), txn.request.TransientMap["price"])

	_, err = txn.Submit("CAR1")
	require.NoError(t, err)
	assert.Equal(t, 1, n.Peers[org1Peer0].ProcessProposalCalls())
	assert.Equal(t, 0, n.Peers[org2Peer0].ProcessProposalCalls())
}

func TestSubmitEndorsementFailure(t *testing.T) {
	n := newMockNetwork()
	n.Peers[org2Peer0].Status = 500
	n.Peers[org2Peer0].ResponseMessage = "chaincode error"
	gw := connect(t, n)
	defer gw.Close()

	nw, err := gw.GetNetwork("mychannel")
	require.NoError(t, err)

	txn, err := nw.GetContract("fabcar").CreateTransaction("createCar")
	require.NoError(t, err)
	_, err = txn.Submit("CAR1")
	require.Error(t, err)

	verdict, ok := VerdictOf(err)
	require.True(t, ok)
	assert.Equal(t, fab.EndorsementFailure, verdict.Kind)
	assert.Contains(t, err.Error(), "chaincode error")
	assert.NotEmpty(t, txn.Result().TransactionID)
	assert.Empty(t, n.Orderers[orderer].TxIDs(), "nothing is ordered without unanimous endorsement")
}

func TestBadRequests(t *testing.T) {
	n := newMockNetwork()
	gw := connect(t, n, WithDiscovery(false))
	defer gw.Close()

	nw, err := gw.GetNetwork("mychannel")
	require.NoError(t, err)
	contract := nw.GetContract("fabcar")

	_, err = contract.SubmitTransaction("createCar", "CAR1")
	verdict, ok := VerdictOf(err)
	require.True(t, ok, "no peers and no discovery")
	assert.Equal(t, fab.BadRequest, verdict.Kind)

	txn, err := contract.CreateTransaction("createCar", WithEndorsingPeers("peer0.org1.example.com"), WithOrderers("orderer.unknown.com"))
	require.NoError(t, err)
	_, err = txn.Submit("CAR1")
	verdict, ok = VerdictOf(err)
	require.True(t, ok)
	assert.Equal(t, fab.BadRequest, verdict.Kind)

	_, err = contract.EvaluateTransaction("", "CAR1")
	verdict, ok = VerdictOf(err)
	require.True(t, ok, "function name is required")
	assert.Equal(t, fab.BadRequest, verdict.Kind)

	for _, p := range n.Peers {
		assert.Equal(t, 0, p.ProcessProposalCalls())
	}
}

func TestGetNetwork(t *testing.T) {
	n := newMockNetwork()
	gw := connect(t, n)

	nw1, err := gw.GetNetwork("mychannel")
	require.NoError(t, err)
	nw2, err := gw.GetNetwork("MyChannel")
	require.NoError(t, err)
	assert.True(t, nw1 == nw2)

	_, err = gw.GetNetwork("")
	assert.Error(t, err)

	gw.Close()
	gw.Close()
	assert.Equal(t, 0, n.Closed(), "a provided infra provider belongs to the caller")

	_, err = gw.GetNetwork("mychannel")
	assert.Equal(t, ErrClosed, err)
	_, err = gw.Resources()
	assert.Equal(t, ErrClosed, err)
}

func TestNoEventSource(t *testing.T) {
	n := newMockNetwork()
	gw := connect(t, n)
	defer gw.Close()

	nw, err := gw.GetNetwork("otherchannel")
	require.NoError(t, err)

	txn, err := nw.GetContract("fabcar").CreateTransaction("createCar", WithEndorsingPeers("peer0.org1.example.com"))
	require.NoError(t, err)
	_, err = txn.Submit("CAR1")
	require.Error(t, err)
	_, ok := VerdictOf(err)
	assert.False(t, ok)
}
