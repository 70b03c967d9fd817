/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package staticdiscovery

import (
	"testing"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/core/config"
	fabImpl "github.com/hyperledger/fabric-rest-gateway/pkg/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/mocks"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const networkYAML = `
channels:
  mychannel:
    peers:
      peer0.org1.example.com: {}
      peer0.org2.example.com: {}
      peer1.org2.example.com:
        endorsingPeer: false
  observers:
    peers:
      peer1.org2.example.com:
        endorsingPeer: false
organizations:
  Org1:
    mspid: Org1MSP
    peers: [peer0.org1.example.com]
  Org2:
    mspid: Org2MSP
    peers: [peer0.org2.example.com, peer1.org2.example.com]
peers:
  peer0.org1.example.com:
    url: grpc://localhost:7051
  peer0.org2.example.com:
    url: grpc://localhost:9051
  peer1.org2.example.com:
    url: grpc://localhost:10051
`

type mockPeerCreator struct {
	err error
}

func (pc *mockPeerCreator) CreatePeerFromConfig(peerCfg *fab.NetworkPeer) (fab.Peer, error) {
	if pc.err != nil {
		return nil, pc.err
	}
	p := mocks.NewMockPeer(peerCfg.URL)
	p.MockMSP = peerCfg.MSPID
	return p, nil
}

func loadConfig(t *testing.T) fab.EndpointConfig {
	backends, err := config.FromRaw([]byte(networkYAML), "yaml")()
	require.NoError(t, err)
	cfg, err := fabImpl.ConfigFromBackend(backends...)
	require.NoError(t, err)
	return cfg
}

func TestStaticDiscovery(t *testing.T) {
	discoveryProvider := New(loadConfig(t), &mockPeerCreator{})

	discoveryService, err := discoveryProvider.CreateDiscoveryService("mychannel")
	require.NoError(t, err)

	peers, err := discoveryService.GetPeers()
	require.NoError(t, err)
	require.Len(t, peers, 2, "every endorsing peer of the channel across organizations")
	assert.Equal(t, "grpc://localhost:7051", peers[0].URL())
	assert.Equal(t, "Org1MSP", peers[0].MSPID())
	assert.Equal(t, "grpc://localhost:9051", peers[1].URL())
	assert.Equal(t, "Org2MSP", peers[1].MSPID())
}

func TestStaticDiscoveryErrors(t *testing.T) {
	discoveryProvider := New(loadConfig(t), &mockPeerCreator{})

	_, err := discoveryProvider.CreateDiscoveryService("")
	assert.Error(t, err)

	_, err = discoveryProvider.CreateDiscoveryService("invalidChannel")
	assert.Error(t, err, "channel is not configured")

	_, err = discoveryProvider.CreateDiscoveryService("observers")
	assert.Error(t, err, "channel has no endorsing peer")

	discoveryProvider = New(loadConfig(t), &mockPeerCreator{err: errors.New("dial failed")})
	_, err = discoveryProvider.CreateDiscoveryService("mychannel")
	assert.Error(t, err)
}
