/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	"testing"
	"time"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const networkYAML = `
name: test-network
client:
  organization: Org1
  credentialStore:
    path: /tmp/fabgw-store
  eventService:
    timeout:
      commit: 5s
channels:
  mychannel:
    orderers:
      - orderer.example.com
    peers:
      peer0.org1.example.com:
        endorsingPeer: true
      peer0.org2.example.com:
        endorsingPeer: false
        eventSource: false
      peer1.org1.example.com: {}
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
    url: grpc://localhost:7050
    grpcOptions:
      ssl-target-name-override: orderer.example.com
  orderer2.example.com:
    url: grpc://localhost:8050
peers:
  peer0.org1.example.com:
    url: grpc://localhost:7051
  peer1.org1.example.com:
    url: grpc://localhost:8051
  peer0.org2.example.com:
    url: grpc://localhost:9051
`

func loadTestConfig(t *testing.T, raw string) *EndpointConfig {
	defer logging.SetLevel("", logging.INFO)

	backends, err := config.FromRaw([]byte(raw), "yaml")()
	require.NoError(t, err)
	cfg, err := ConfigFromBackend(backends...)
	require.NoError(t, err)
	return cfg
}

func TestTimeouts(t *testing.T) {
	cfg := loadTestConfig(t, networkYAML)

	assert.Equal(t, 5*time.Second, cfg.Timeout(fab.CommitEvent))
	assert.Equal(t, defaultExecuteTimeout, cfg.Timeout(fab.Execute))
	assert.Equal(t, defaultEventRegTimeout, cfg.Timeout(fab.EventReg))
	assert.Equal(t, defaultPeerResponseTimeout, cfg.Timeout(fab.PeerResponse))
	assert.Equal(t, time.Duration(0), cfg.Timeout(fab.TimeoutType(-1)))
}

func TestLongestOperation(t *testing.T) {
	cfg := loadTestConfig(t, networkYAML)
	deploy := defaultDeployResponseTimeout + defaultEventRegTimeout + defaultDeployCommitEventTimeout
	assert.Equal(t, deploy, cfg.LongestOperation())

	backends, err := config.FromRaw([]byte("client:\n  global:\n    timeout:\n      execute: 1h\n"), "yaml")()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, LongestOperation(backends...))
}

func TestOrganizations(t *testing.T) {
	cfg := loadTestConfig(t, networkYAML)

	assert.Equal(t, "org1", cfg.DefaultOrganization())
	assert.Equal(t, "/tmp/fabgw-store", cfg.CredentialStorePath())
	assert.Equal(t, []string{"org1", "org2"}, cfg.Organizations())

	org, ok := cfg.Organization("ORG2")
	require.True(t, ok)
	assert.Equal(t, "Org2MSP", org.MSPID)

	_, ok = cfg.Organization("org3")
	assert.False(t, ok)

	peers := cfg.OrgPeers("org1")
	require.Len(t, peers, 2)
	for _, p := range peers {
		assert.Equal(t, "Org1MSP", p.MSPID)
	}
}

func TestPeerLookup(t *testing.T) {
	cfg := loadTestConfig(t, networkYAML)

	p, ok := cfg.PeerConfig("peer0.org2.example.com")
	require.True(t, ok)
	assert.Equal(t, "Org2MSP", p.MSPID)
	assert.Equal(t, "grpc://localhost:9051", p.URL)

	p, ok = cfg.PeerConfig("localhost:8051")
	require.True(t, ok)
	assert.Equal(t, "peer1.org1.example.com", p.Name)

	_, ok = cfg.PeerConfig("peer9")
	assert.False(t, ok)
}

func TestChannelPeerRolesDefaultToTrue(t *testing.T) {
	cfg := loadTestConfig(t, networkYAML)

	peers := cfg.ChannelPeers("mychannel")
	require.Len(t, peers, 3)

	roles := make(map[string]fab.PeerChannelConfig)
	for _, p := range peers {
		roles[p.Name] = p.PeerChannelConfig
	}

	assert.True(t, roles["peer0.org1.example.com"].EndorsingPeer)
	assert.True(t, roles["peer0.org1.example.com"].EventSource)
	assert.False(t, roles["peer0.org2.example.com"].EndorsingPeer)
	assert.False(t, roles["peer0.org2.example.com"].EventSource)
	assert.True(t, roles["peer0.org2.example.com"].ChaincodeQuery)
	assert.True(t, roles["peer1.org1.example.com"].EndorsingPeer)
	assert.True(t, roles["peer1.org1.example.com"].LedgerQuery)

	assert.Empty(t, cfg.ChannelPeers("otherchannel"))
}

func TestChannelOrderers(t *testing.T) {
	cfg := loadTestConfig(t, networkYAML)

	orderers := cfg.ChannelOrderers("mychannel")
	require.Len(t, orderers, 1)
	assert.Equal(t, "orderer.example.com", orderers[0].Name)
	assert.Equal(t, "orderer.example.com", orderers[0].GRPCOptions["ssl-target-name-override"])

	// channels without orderers fall back to every orderer
	assert.Len(t, cfg.ChannelOrderers("otherchannel"), 2)

	o, ok := cfg.OrdererConfig("grpc://localhost:8050")
	require.True(t, ok)
	assert.Equal(t, "orderer2.example.com", o.Name)
}

func TestInvalidTLSCert(t *testing.T) {
	defer logging.SetLevel("", logging.INFO)

	raw := `
peers:
  peer0:
    url: grpcs://localhost:7051
    tlsCACerts:
      pem: not-a-certificate
`
	backends, err := config.FromRaw([]byte(raw), "yaml")()
	require.NoError(t, err)
	_, err = ConfigFromBackend(backends...)
	assert.Error(t, err)
}
