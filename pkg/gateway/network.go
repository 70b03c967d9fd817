/*
Copyright 2020 IBM All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	"github.com/hyperledger/fabric-rest-gateway/pkg/client/channel"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/context"
	"github.com/pkg/errors"
)

// A Network object represents the set of peers in a Fabric network (channel).
// Applications should get a Network instance from a Gateway using the GetNetwork method.
type Network struct {
	name    string
	gateway *Gateway
	client  *channel.Client
}

func newNetwork(gateway *Gateway, channelProvider context.ChannelProvider) (*Network, error) {
	n := Network{
		gateway: gateway,
	}

	// Channel client is used to query and execute transactions
	client, err := channel.New(channelProvider,
		channel.WithCoordinator(gateway.options.Coordinator),
		channel.WithMetrics(gateway.options.Metrics),
	)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create new channel client")
	}
	n.client = client

	ctx, err := channelProvider()
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create new channel context")
	}
	n.name = ctx.ChannelID()

	return &n, nil
}

// Name is the name of the network (also known as channel name)
func (n *Network) Name() string {
	return n.name
}

// GetContract returns instance of a smart contract on the current network.
//  Parameters:
//  chaincodeID is the name of the smart contract
//
//  Returns:
//  A Contract object representing the smart contract
func (n *Network) GetContract(chaincodeID string) *Contract {
	return newContract(n, chaincodeID)
}
