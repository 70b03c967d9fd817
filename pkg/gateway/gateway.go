/*
Copyright 2020 IBM All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package gateway connects an organization to the channels of a Fabric
// network. A Gateway acts for one organization with one signing identity;
// its networks submit transactions through the channel client and share the
// gateway's connections and commit coordinator.
package gateway

import (
	"strings"
	"sync"

	"github.com/hyperledger/fabric-rest-gateway/pkg/client/channel/invoke"
	"github.com/hyperledger/fabric-rest-gateway/pkg/client/channel/metrics"
	"github.com/hyperledger/fabric-rest-gateway/pkg/client/common/discovery/staticdiscovery"
	"github.com/hyperledger/fabric-rest-gateway/pkg/client/resmgmt"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/context"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/retry"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/metrics/disabled"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/core"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	mspProvider "github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
	fabImpl "github.com/hyperledger/fabric-rest-gateway/pkg/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fabsdk/provider/fabpvdr"
	"github.com/hyperledger/fabric-rest-gateway/pkg/msp"
	"github.com/pkg/errors"
)

var logger = logging.NewLogger("fabgw/gateway")

const defaultAdmin = "Admin"

// ErrClosed is returned once the gateway has been closed
var ErrClosed = errors.New("gateway is closed")

// Gateway is the entry point of one organization to a Fabric network
type Gateway struct {
	config     Config
	options    *gatewayOptions
	org        string
	identities *msp.IdentityManager
	signer     mspProvider.SigningIdentity
	infra      fab.InfraProvider
	discovery  *staticdiscovery.DiscoveryProvider

	ownsInfra       bool
	ownsCoordinator bool

	lock      sync.Mutex
	networks  map[string]*Network
	resources *resmgmt.Client
	closed    bool
}

// Connect to a gateway defined by a network config file.
// Must specify a config option, an identity option and zero or more strategy options.
func Connect(config ConfigOption, identity IdentityOption, options ...Option) (*Gateway, error) {
	g := &Gateway{
		options: &gatewayOptions{
			Admin:     defaultAdmin,
			Discovery: true,
		},
		networks: make(map[string]*Network),
	}

	if err := config(g, g.options); err != nil {
		return nil, errors.Wrap(err, "Failed to apply config option")
	}
	if g.config == nil {
		return nil, errors.New("network configuration is required")
	}

	if err := identity(g, g.options); err != nil {
		return nil, errors.Wrap(err, "Failed to apply identity option")
	}

	for _, option := range options {
		if err := option(g, g.options); err != nil {
			return nil, errors.Wrap(err, "Failed to apply gateway option")
		}
	}

	if err := g.initialize(); err != nil {
		return nil, err
	}

	logger.Debugf("Connected gateway of org [%s] as [%s]", g.org, g.signer.Identifier().ID)
	return g, nil
}

func (gw *Gateway) initialize() error {
	o := gw.options

	gw.org = strings.ToLower(o.Org)
	if gw.org == "" {
		gw.org = gw.config.DefaultOrganization()
	}
	if gw.org == "" {
		return errors.New("No client organization defined in the config")
	}

	userStore := o.UserStore
	if userStore == nil && gw.config.CredentialStorePath() != "" {
		store, err := msp.NewCertFileUserStore(gw.config.CredentialStorePath())
		if err != nil {
			return errors.WithMessage(err, "creating credential store failed")
		}
		userStore = store
	}

	identities, err := msp.NewIdentityManager(gw.org, gw.config, userStore)
	if err != nil {
		return errors.WithMessage(err, "creating identity manager failed")
	}
	gw.identities = identities

	gw.signer = o.Identity
	if gw.signer == nil {
		if o.User == "" {
			return errors.New("an identity or a user is required")
		}
		if gw.signer, err = identities.GetSigningIdentity(o.User); err != nil {
			return errors.WithMessage(err, "loading user identity failed")
		}
	}
	if gw.signer.Identifier().MSPID != identities.MSPID() {
		return errors.Errorf("identity [%s] belongs to %s, not to org [%s]", gw.signer.Identifier().ID, gw.signer.Identifier().MSPID, gw.org)
	}

	gw.infra = o.Infra
	if gw.infra == nil {
		gw.infra = fabpvdr.New(gw.config, gw.signer)
		gw.ownsInfra = true
	}
	if o.Coordinator == nil {
		o.Coordinator = invoke.NewCoordinator()
		gw.ownsCoordinator = true
	}
	if o.Metrics == nil {
		o.Metrics = metrics.NewClientMetrics(&disabled.Provider{})
	}

	gw.discovery = staticdiscovery.New(gw.config, gw.infra)
	return nil
}

// WithConfig configures the gateway from a network config, such as a ccp file.
func WithConfig(config core.ConfigProvider) ConfigOption {
	return func(gw *Gateway, o *gatewayOptions) error {
		backends, err := config()
		if err != nil {
			return err
		}
		cfg, err := fabImpl.ConfigFromBackend(backends...)
		if err != nil {
			return err
		}
		gw.config = cfg
		return nil
	}
}

// WithEndpointConfig configures the gateway with an already loaded network
// configuration, so that several gateways can share it
func WithEndpointConfig(config Config) ConfigOption {
	return func(gw *Gateway, o *gatewayOptions) error {
		if config == nil {
			return errors.New("config is nil")
		}
		gw.config = config
		return nil
	}
}

// WithIdentity is an optional argument to the Connect method which specifies
// the identity that is to be used to connect to the network.
// All operations under this gateway connection will be performed using this identity.
func WithIdentity(identity mspProvider.SigningIdentity) IdentityOption {
	return func(gw *Gateway, o *gatewayOptions) error {
		if identity == nil {
			return errors.New("identity is nil")
		}
		o.Identity = identity
		return nil
	}
}

// WithUser is an optional argument to the Connect method which specifies
// the identity that is to be used to connect to the network.
// The user is looked up in the credential store, then among the users of the
// organization in the network config.
func WithUser(user string) IdentityOption {
	return func(gw *Gateway, o *gatewayOptions) error {
		o.User = user
		return nil
	}
}

// WithOrg selects the organization the gateway acts for; it defaults to client.organization
func WithOrg(org string) Option {
	return func(gw *Gateway, o *gatewayOptions) error {
		o.Org = org
		return nil
	}
}

// WithAdmin names the user that signs channel and chaincode administration requests
func WithAdmin(user string) Option {
	return func(gw *Gateway, o *gatewayOptions) error {
		if user == "" {
			return errors.New("admin user is required")
		}
		o.Admin = user
		return nil
	}
}

// WithUserStore replaces the credential store of the config
func WithUserStore(store mspProvider.UserStore) Option {
	return func(gw *Gateway, o *gatewayOptions) error {
		o.UserStore = store
		return nil
	}
}

// WithInfraProvider replaces the clients the gateway dials peers and orderers with
func WithInfraProvider(infra fab.InfraProvider) Option {
	return func(gw *Gateway, o *gatewayOptions) error {
		o.Infra = infra
		return nil
	}
}

// WithCoordinator shares a commit coordinator between gateways. A shared
// coordinator is not closed with the gateway.
func WithCoordinator(coordinator *invoke.Coordinator) Option {
	return func(gw *Gateway, o *gatewayOptions) error {
		o.Coordinator = coordinator
		return nil
	}
}

// WithMetrics records the transactions of the gateway
func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(gw *Gateway, o *gatewayOptions) error {
		o.Metrics = m
		return nil
	}
}

// WithRetry retries endorsement failures under a new transaction ID
func WithRetry(opts retry.Opts) Option {
	return func(gw *Gateway, o *gatewayOptions) error {
		o.Retry = opts
		return nil
	}
}

// WithDiscovery is an optional argument to the Connect method which
// enables or disables service discovery for all transaction submissions for this gateway.
// Without discovery every transaction must name its endorsing peers.
func WithDiscovery(discovery bool) Option {
	return func(gw *Gateway, o *gatewayOptions) error {
		o.Discovery = discovery
		return nil
	}
}

// Org is the organization the gateway acts for
func (gw *Gateway) Org() string {
	return gw.org
}

// MSPID is the MSP of the gateway's organization
func (gw *Gateway) MSPID() string {
	return gw.identities.MSPID()
}

// GetNetwork returns the channel with the given name. Networks are created
// once per gateway.
func (gw *Gateway) GetNetwork(name string) (*Network, error) {
	gw.lock.Lock()
	defer gw.lock.Unlock()

	if gw.closed {
		return nil, ErrClosed
	}
	name = strings.ToLower(name)
	if n, ok := gw.networks[name]; ok {
		return n, nil
	}

	n, err := newNetwork(gw, gw.channelProvider(name, gw.signer))
	if err != nil {
		return nil, err
	}
	gw.networks[name] = n
	return n, nil
}

// Resources returns the client administering the channels and chaincodes of
// the organization. Its requests are signed by the admin user.
func (gw *Gateway) Resources() (*resmgmt.Client, error) {
	gw.lock.Lock()
	defer gw.lock.Unlock()

	if gw.closed {
		return nil, ErrClosed
	}
	if gw.resources != nil {
		return gw.resources, nil
	}

	admin, err := gw.AdminIdentity()
	if err != nil {
		return nil, errors.WithMessage(err, "loading admin identity failed")
	}

	clientProvider := func() (context.Client, error) {
		return &clientContext{SigningIdentity: admin, gateway: gw}, nil
	}
	channels := func(channelID string) context.ChannelProvider {
		return gw.channelProvider(channelID, admin)
	}

	rc, err := resmgmt.New(clientProvider, resmgmt.WithChannelContext(channels), resmgmt.WithCoordinator(gw.options.Coordinator))
	if err != nil {
		return nil, errors.WithMessage(err, "creating resource management client failed")
	}
	gw.resources = rc
	return rc, nil
}

// AdminIdentity returns the identity that signs administration requests
func (gw *Gateway) AdminIdentity() (mspProvider.SigningIdentity, error) {
	return gw.identities.GetSigningIdentity(gw.options.Admin)
}

// SigningIdentity returns the identity of a user of the organization
func (gw *Gateway) SigningIdentity(user string) (mspProvider.SigningIdentity, error) {
	return gw.identities.GetSigningIdentity(user)
}

// Close disconnects the pending commit listeners of the gateway and its
// connections to the network
func (gw *Gateway) Close() {
	gw.lock.Lock()
	if gw.closed {
		gw.lock.Unlock()
		return
	}
	gw.closed = true
	gw.lock.Unlock()

	if gw.ownsCoordinator {
		gw.options.Coordinator.Close()
	}
	if gw.ownsInfra {
		gw.infra.Close()
	}
	logger.Debugf("Closed gateway of org [%s]", gw.org)
}

func (gw *Gateway) channelProvider(channelID string, signer mspProvider.SigningIdentity) context.ChannelProvider {
	return func() (context.Channel, error) {
		if channelID == "" {
			return nil, errors.New("channel name is required")
		}
		return &channelContext{
			clientContext: clientContext{SigningIdentity: signer, gateway: gw},
			channelID:     strings.ToLower(channelID),
		}, nil
	}
}
