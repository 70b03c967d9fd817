/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	mspProvider "github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
	"github.com/pkg/errors"
)

type clientContext struct {
	mspProvider.SigningIdentity
	gateway *Gateway
}

func (c *clientContext) EndpointConfig() fab.EndpointConfig {
	return c.gateway.config
}

func (c *clientContext) InfraProvider() fab.InfraProvider {
	return c.gateway.infra
}

type channelContext struct {
	clientContext
	channelID string
}

func (c *channelContext) ChannelID() string {
	return c.channelID
}

// DiscoveryService resolves the endorsing peers of requests that name none
func (c *channelContext) DiscoveryService() fab.DiscoveryService {
	if !c.gateway.options.Discovery {
		return unavailable{errors.New("discovery is disabled and no endorsing peers were given")}
	}
	ds, err := c.gateway.discovery.CreateDiscoveryService(c.channelID)
	if err != nil {
		return unavailable{err}
	}
	return ds
}

// EventSources are the peers of the gateway's organization that serve
// commit events on the channel
func (c *channelContext) EventSources() ([]fab.EventService, error) {
	mspID := c.gateway.MSPID()

	var sources []fab.EventService
	for _, p := range c.gateway.config.ChannelPeers(c.channelID) {
		if !p.EventSource || p.MSPID != mspID {
			continue
		}
		p := p
		es, err := c.gateway.infra.CreateEventService(c.channelID, &p.NetworkPeer)
		if err != nil {
			return nil, errors.Wrapf(err, "event service of peer [%s]", p.URL)
		}
		sources = append(sources, es)
	}

	if len(sources) == 0 {
		return nil, errors.Errorf("org [%s] has no event source on channel [%s]", c.gateway.org, c.channelID)
	}
	return sources, nil
}

type unavailable struct {
	err error
}

func (u unavailable) GetPeers() ([]fab.Peer, error) {
	return nil, u.err
}
