/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"sync"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/pkg/errors"
)

// MockInfraProvider is a fab.InfraProvider handing out mocks registered by URL
type MockInfraProvider struct {
	Peers         map[string]*MockPeer
	EventServices map[string]*MockEventService
	Orderers      map[string]*MockOrderer

	lock   sync.Mutex
	closed int
}

// NewMockInfraProvider returns an empty provider
func NewMockInfraProvider() *MockInfraProvider {
	return &MockInfraProvider{
		Peers:         make(map[string]*MockPeer),
		EventServices: make(map[string]*MockEventService),
		Orderers:      make(map[string]*MockOrderer),
	}
}

// AddPeer registers a peer of the given MSP together with its event service
func (p *MockInfraProvider) AddPeer(url, mspID string) *MockPeer {
	peer := NewMockPeer(url)
	peer.MockMSP = mspID
	p.Peers[url] = peer
	p.EventServices[url] = NewMockEventService(url)
	return peer
}

// AddOrderer registers an orderer committing to the event services added so far
func (p *MockInfraProvider) AddOrderer(url string) *MockOrderer {
	var committers []*MockEventService
	for _, es := range p.EventServices {
		committers = append(committers, es)
	}
	o := NewMockOrderer(url, committers...)
	p.Orderers[url] = o
	return o
}

// CreatePeerFromConfig returns the peer registered under the configured URL
func (p *MockInfraProvider) CreatePeerFromConfig(peerCfg *fab.NetworkPeer) (fab.Peer, error) {
	if peer, ok := p.Peers[peerCfg.URL]; ok {
		return peer, nil
	}
	return nil, errors.Errorf("no mock peer for %s", peerCfg.URL)
}

// CreateOrdererFromConfig returns the orderer registered under the configured URL
func (p *MockInfraProvider) CreateOrdererFromConfig(cfg *fab.OrdererConfig) (fab.Orderer, error) {
	if o, ok := p.Orderers[cfg.URL]; ok {
		return o, nil
	}
	return nil, errors.Errorf("no mock orderer for %s", cfg.URL)
}

// CreateEventService returns the event service of the peer with the configured URL
func (p *MockInfraProvider) CreateEventService(channelID string, peerCfg *fab.NetworkPeer) (fab.EventService, error) {
	if es, ok := p.EventServices[peerCfg.URL]; ok {
		return es, nil
	}
	return nil, errors.Errorf("no mock event service for %s", peerCfg.URL)
}

// Close counts the calls
func (p *MockInfraProvider) Close() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.closed++
}

// Closed returns the number of Close calls
func (p *MockInfraProvider) Closed() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.closed
}
