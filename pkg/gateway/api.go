/*
Copyright 2020 IBM All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	"github.com/hyperledger/fabric-rest-gateway/pkg/client/channel"
	"github.com/hyperledger/fabric-rest-gateway/pkg/client/channel/invoke"
	"github.com/hyperledger/fabric-rest-gateway/pkg/client/channel/metrics"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/retry"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
)

// Config is the network configuration a gateway connects with
type Config interface {
	fab.EndpointConfig
	DefaultOrganization() string
	CredentialStorePath() string
}

type gatewayOptions struct {
	Org         string
	Identity    msp.SigningIdentity
	User        string
	Admin       string
	UserStore   msp.UserStore
	Infra       fab.InfraProvider
	Coordinator *invoke.Coordinator
	Metrics     *metrics.ClientMetrics
	Retry       retry.Opts
	Discovery   bool
}

// Option functional arguments can be supplied when connecting to the gateway.
type Option = func(*Gateway, *gatewayOptions) error

// ConfigOption specifies the gateway configuration source.
type ConfigOption = func(*Gateway, *gatewayOptions) error

// IdentityOption specifies the user identity under which all transactions are performed for this gateway instance.
type IdentityOption = func(*Gateway, *gatewayOptions) error

// TransactionOption functional arguments can be supplied when creating a transaction object
type TransactionOption = func(*Transaction) error

// Result is the outcome of an evaluated or submitted transaction
type Result = channel.Response
