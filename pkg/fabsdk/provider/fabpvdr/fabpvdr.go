/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package fabpvdr creates the peers, orderers and commit event services an
// organization talks to. Every client dials through one connection cache.
package fabpvdr

import (
	"strings"
	"sync"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/comm"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/events/deliverclient"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/orderer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/peer"
	"github.com/pkg/errors"
)

var logger = logging.NewLogger("fabgw/fabpvdr")

type cacheKey struct {
	channelID string
	url       string
}

type closer interface {
	Close()
}

// InfraProvider represents the default implementation of Fabric objects.
type InfraProvider struct {
	endpointConfig fab.EndpointConfig
	signer         msp.SigningIdentity
	connector      *comm.CachingConnector

	lock          sync.Mutex
	eventServices map[cacheKey]fab.EventService
	closed        bool
}

// New creates an InfraProvider for the organization the signer belongs to
func New(config fab.EndpointConfig, signer msp.SigningIdentity) *InfraProvider {
	return &InfraProvider{
		endpointConfig: config,
		signer:         signer,
		connector:      comm.NewCachingConnector(comm.DefaultSweepTime, comm.DefaultIdleTime),
		eventServices:  make(map[cacheKey]fab.EventService),
	}
}

// CreatePeerFromConfig returns a new default implementation of Peer based configuration
func (f *InfraProvider) CreatePeerFromConfig(peerCfg *fab.NetworkPeer) (fab.Peer, error) {
	if peerCfg == nil {
		return nil, errors.New("peer config is required")
	}
	return peer.New(
		peer.FromPeerConfig(peerCfg),
		peer.WithDialer(f.connector),
		peer.WithConnectTimeout(f.endpointConfig.Timeout(fab.PeerConnection)),
	)
}

// CreateOrdererFromConfig creates a default implementation of Orderer based on configuration.
func (f *InfraProvider) CreateOrdererFromConfig(cfg *fab.OrdererConfig) (fab.Orderer, error) {
	if cfg == nil {
		return nil, errors.New("orderer config is required")
	}
	return orderer.New(
		orderer.FromOrdererConfig(cfg),
		orderer.WithDialer(f.connector),
		orderer.WithConnectTimeout(f.endpointConfig.Timeout(fab.OrdererConnection)),
	)
}

// CreateEventService returns the commit event service of the peer on the
// channel. Services are cached so Close can tear down their listeners.
func (f *InfraProvider) CreateEventService(channelID string, peerCfg *fab.NetworkPeer) (fab.EventService, error) {
	if peerCfg == nil {
		return nil, errors.New("peer config is required")
	}

	key := cacheKey{channelID: strings.ToLower(channelID), url: peerCfg.URL}

	f.lock.Lock()
	defer f.lock.Unlock()

	if f.closed {
		return nil, errors.New("infra provider is closed")
	}
	if es, ok := f.eventServices[key]; ok {
		return es, nil
	}

	opts := comm.OptsFromGRPCOptions(peerCfg.GRPCOptions, peerCfg.TLSCACert)
	opts = append(opts,
		comm.WithConnectTimeout(f.endpointConfig.Timeout(fab.PeerConnection)),
		deliverclient.WithResponseTimeout(f.endpointConfig.Timeout(fab.EventReg)),
	)
	es, err := deliverclient.New(f.connector, f.signer, channelID, peerCfg.URL, opts...)
	if err != nil {
		return nil, errors.WithMessage(err, "creating deliver client failed")
	}

	logger.Debugf("Created event service for %s on channel [%s]", peerCfg.URL, channelID)
	f.eventServices[key] = es
	return es, nil
}

// Close unregisters every listener and closes all connections
func (f *InfraProvider) Close() {
	f.lock.Lock()
	if f.closed {
		f.lock.Unlock()
		return
	}
	f.closed = true
	services := f.eventServices
	f.eventServices = nil
	f.lock.Unlock()

	for _, es := range services {
		if c, ok := es.(closer); ok {
			c.Close()
		}
	}
	f.connector.Close()
}
