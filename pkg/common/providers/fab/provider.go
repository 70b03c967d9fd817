/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	"crypto/x509"
	"time"
)

//EndpointConfig contains endpoint network configurations
type EndpointConfig interface {
	Timeout(TimeoutType) time.Duration
	OrdererConfig(nameOrURL string) (*OrdererConfig, bool)
	ChannelOrderers(channel string) []OrdererConfig
	PeerConfig(nameOrURL string) (*NetworkPeer, bool)
	OrgPeers(org string) []NetworkPeer
	ChannelPeers(channel string) []ChannelPeer
	Organization(org string) (*OrganizationConfig, bool)
	Organizations() []string
	TLSCACerts() []*x509.Certificate
}

// TimeoutType enumerates the different types of outgoing connections
type TimeoutType int

const (
	// PeerConnection connection timeout
	PeerConnection TimeoutType = iota
	// PeerResponse bounds each endorsement call
	PeerResponse
	// EventReg bounds arming a commit listener
	EventReg
	// CommitEvent bounds the wait for a commit event once armed
	CommitEvent
	// Query is the overall timeout of a query
	Query
	// Execute is the overall timeout of a transaction
	Execute
	// OrdererConnection orderer connection timeout
	OrdererConnection
	// OrdererResponse orderer response timeout
	OrdererResponse
	// DeployResponse bounds each endorsement call of a deployment
	DeployResponse
	// DeployCommitEvent bounds the wait for a deployment commit event
	DeployCommitEvent
	// ResMgmt timeout is default overall timeout for all resource management operations
	ResMgmt
)

// InfraProvider creates the network clients of one organization
type InfraProvider interface {
	CreatePeerFromConfig(peerCfg *NetworkPeer) (Peer, error)
	CreateOrdererFromConfig(cfg *OrdererConfig) (Orderer, error)
	// CreateEventService returns the commit event service of a peer on a channel
	CreateEventService(channelID string, peerCfg *NetworkPeer) (EventService, error)
	Close()
}

// DiscoveryService is used to discover eligible peers on a channel
type DiscoveryService interface {
	GetPeers() ([]Peer, error)
}
