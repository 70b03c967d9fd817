/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	"strings"
	"sync"

	"github.com/hyperledger/fabric-rest-gateway/pkg/client/channel/invoke"
	"github.com/pkg/errors"
)

// UnknownOrgError is returned for an organization missing from the network config
type UnknownOrgError string

func (e UnknownOrgError) Error() string {
	return "unknown organization: " + string(e)
}

// Registry connects one gateway per organization on demand. Every gateway
// shares the network config and one commit coordinator.
type Registry struct {
	config      Config
	user        string
	options     []Option
	coordinator *invoke.Coordinator

	lock     sync.Mutex
	gateways map[string]*Gateway
	closed   bool
}

// NewRegistry creates a registry whose gateways act as user in their organization
func NewRegistry(config Config, user string, options ...Option) *Registry {
	return &Registry{
		config:      config,
		user:        user,
		options:     options,
		coordinator: invoke.NewCoordinator(),
		gateways:    make(map[string]*Gateway),
	}
}

// Gateway returns the gateway of an organization; an empty name selects
// the default organization of the config
func (r *Registry) Gateway(org string) (*Gateway, error) {
	org = strings.ToLower(org)
	if org == "" {
		org = r.config.DefaultOrganization()
	}
	if _, ok := r.config.Organization(org); !ok {
		return nil, UnknownOrgError(org)
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if gw, ok := r.gateways[org]; ok {
		return gw, nil
	}

	options := append([]Option{WithOrg(org)}, r.options...)
	options = append(options, WithCoordinator(r.coordinator))

	gw, err := Connect(WithEndpointConfig(r.config), WithUser(r.user), options...)
	if err != nil {
		return nil, errors.WithMessage(err, "connecting gateway of org "+org+" failed")
	}
	r.gateways[org] = gw
	return gw, nil
}

// Close force-disconnects every pending commit listener, then closes the
// gateways
func (r *Registry) Close() {
	r.lock.Lock()
	if r.closed {
		r.lock.Unlock()
		return
	}
	r.closed = true
	gateways := r.gateways
	r.gateways = nil
	r.lock.Unlock()

	r.coordinator.Close()
	for _, gw := range gateways {
		gw.Close()
	}
}
