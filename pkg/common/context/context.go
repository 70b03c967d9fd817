/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package context defines what clients need from the organization they act for.
package context

import (
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
)

// Client supplies the configuration and signing identity to client objects.
type Client interface {
	msp.SigningIdentity
	EndpointConfig() fab.EndpointConfig
	InfraProvider() fab.InfraProvider
}

// Channel supplies the configuration for channel context client
type Channel interface {
	Client
	ChannelID() string
	// DiscoveryService returns the endorsing peers used when a request names none
	DiscoveryService() fab.DiscoveryService
	// EventSources returns the commit event services of the organization's peers on the channel
	EventSources() ([]fab.EventService, error)
}

// ClientProvider returns client context
type ClientProvider func() (Client, error)

// ChannelProvider returns channel client context
type ChannelProvider func() (Channel, error)
