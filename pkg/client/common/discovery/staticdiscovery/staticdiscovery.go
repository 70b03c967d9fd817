/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package staticdiscovery resolves the endorsing set of a channel from the
// network configuration.
package staticdiscovery

import (
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"

	"github.com/pkg/errors"
)

var logger = logging.NewLogger("fabgw/discovery")

type peerCreator interface {
	CreatePeerFromConfig(peerCfg *fab.NetworkPeer) (fab.Peer, error)
}

// DiscoveryProvider implements discovery provider
type DiscoveryProvider struct {
	config  fab.EndpointConfig
	fabPvdr peerCreator
}

// discoveryService implements discovery service
type discoveryService struct {
	peers []fab.Peer
}

// New returns discovery provider
func New(config fab.EndpointConfig, fabPvdr peerCreator) *DiscoveryProvider {
	return &DiscoveryProvider{config: config, fabPvdr: fabPvdr}
}

// CreateDiscoveryService returns the discovery service of the channel. Its
// peers are every configured endorsing peer of the channel, whatever their
// organization.
func (dp *DiscoveryProvider) CreateDiscoveryService(channelID string) (fab.DiscoveryService, error) {
	if channelID == "" {
		return nil, errors.New("channel ID is required")
	}

	var peers []fab.Peer
	for _, p := range dp.config.ChannelPeers(channelID) {
		if !p.EndorsingPeer {
			continue
		}
		p := p
		newPeer, err := dp.fabPvdr.CreatePeerFromConfig(&p.NetworkPeer)
		if err != nil {
			return nil, errors.WithMessage(err, "NewPeer failed")
		}
		peers = append(peers, newPeer)
	}

	if len(peers) == 0 {
		return nil, errors.Errorf("no endorsing peers configured for channel [%s]", channelID)
	}

	logger.Debugf("Discovered %d endorsing peers on channel [%s]", len(peers), channelID)
	return &discoveryService{peers: peers}, nil
}

// GetPeers is used to get peers
func (ds *discoveryService) GetPeers() ([]fab.Peer, error) {
	return ds.peers, nil
}
