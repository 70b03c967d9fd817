/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	"crypto/x509"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/core"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/core/config/endpoint"
	"github.com/hyperledger/fabric-rest-gateway/pkg/core/config/lookup"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

var logger = logging.NewLogger("fabgw/fab")

const (
	defaultPeerConnectionTimeout    = time.Second * 10
	defaultPeerResponseTimeout      = time.Minute * 3
	defaultEventRegTimeout          = time.Second * 15
	defaultCommitEventTimeout       = time.Second * 30
	defaultQueryTimeout             = time.Second * 45
	defaultExecuteTimeout           = time.Minute * 3
	defaultOrdererConnectionTimeout = time.Second * 15
	defaultOrdererResponseTimeout   = time.Minute * 2
	defaultDeployResponseTimeout    = time.Minute * 10
	defaultDeployCommitEventTimeout = time.Minute * 10
	defaultResMgmtTimeout           = time.Minute * 3
)

var timeoutKeys = map[fab.TimeoutType]struct {
	key string
	def time.Duration
}{
	fab.PeerConnection:    {"client.peer.timeout.connection", defaultPeerConnectionTimeout},
	fab.PeerResponse:      {"client.peer.timeout.response", defaultPeerResponseTimeout},
	fab.EventReg:          {"client.eventService.timeout.registrationResponse", defaultEventRegTimeout},
	fab.CommitEvent:       {"client.eventService.timeout.commit", defaultCommitEventTimeout},
	fab.Query:             {"client.global.timeout.query", defaultQueryTimeout},
	fab.Execute:           {"client.global.timeout.execute", defaultExecuteTimeout},
	fab.OrdererConnection: {"client.orderer.timeout.connection", defaultOrdererConnectionTimeout},
	fab.OrdererResponse:   {"client.orderer.timeout.response", defaultOrdererResponseTimeout},
	fab.DeployResponse:    {"client.deploy.timeout.response", defaultDeployResponseTimeout},
	fab.DeployCommitEvent: {"client.deploy.timeout.commit", defaultDeployCommitEventTimeout},
	fab.ResMgmt:           {"client.global.timeout.resmgmt", defaultResMgmtTimeout},
}

// ClientConfig is the client section of the configuration
type ClientConfig struct {
	Organization    string
	CredentialStore struct {
		Path string
	}
}

// ChannelEndpointConfig is the configured form of fab.ChannelEndpointConfig
type ChannelEndpointConfig struct {
	Orderers []string
	Peers    map[string]PeerChannelConfig
}

// PeerChannelConfig is the configured form of fab.PeerChannelConfig; unset roles default to true
type PeerChannelConfig struct {
	EndorsingPeer  bool
	ChaincodeQuery bool
	LedgerQuery    bool
	EventSource    bool
}

// OrganizationConfig is the configured form of fab.OrganizationConfig
type OrganizationConfig struct {
	MSPID string
	Peers []string
	Users map[string]UserConfig
}

// UserConfig holds the PEM files of a user
type UserConfig struct {
	Key  endpoint.TLSConfig
	Cert endpoint.TLSConfig
}

// OrdererConfig is the configured form of fab.OrdererConfig
type OrdererConfig struct {
	URL         string
	GRPCOptions map[string]interface{}
	TLSCACerts  endpoint.TLSConfig
}

// PeerConfig is the configured form of fab.PeerConfig
type PeerConfig struct {
	URL         string
	GRPCOptions map[string]interface{}
	TLSCACerts  endpoint.TLSConfig
}

type endpointConfigEntity struct {
	Client        ClientConfig
	Channels      map[string]ChannelEndpointConfig
	Organizations map[string]OrganizationConfig
	Orderers      map[string]OrdererConfig
	Peers         map[string]PeerConfig
}

// EndpointConfig represents the network configuration of the gateway
type EndpointConfig struct {
	backend         *lookup.ConfigLookup
	client          ClientConfig
	networkConfig   *fab.NetworkConfig
	peersByOrg      map[string][]fab.NetworkPeer
	channelPeers    map[string][]fab.ChannelPeer
	channelOrderers map[string][]fab.OrdererConfig
	tlsCACerts      []*x509.Certificate
}

//ConfigFromBackend returns endpoint config implementation for given backend
func ConfigFromBackend(coreBackend ...core.ConfigBackend) (*EndpointConfig, error) {
	config := &EndpointConfig{
		backend: lookup.New(coreBackend...),
	}

	if err := config.loadEndpointConfiguration(); err != nil {
		return nil, errors.WithMessage(err, "network configuration load failed")
	}

	return config, nil
}

// Timeout reads timeouts for the given timeout type, falling back to the defaults above
func (c *EndpointConfig) Timeout(tType fab.TimeoutType) time.Duration {
	entry, ok := timeoutKeys[tType]
	if !ok {
		return 0
	}
	if timeout := c.backend.GetDuration(entry.key); timeout > 0 {
		return timeout
	}
	return entry.def
}

// LongestOperation is the longest a single request may keep the network
// busy: a transaction, a query, a chaincode deployment or a resource
// management call
func (c *EndpointConfig) LongestOperation() time.Duration {
	longest := c.Timeout(fab.ResMgmt)
	for _, d := range []time.Duration{
		c.Timeout(fab.Execute),
		c.Timeout(fab.Query),
		c.Timeout(fab.OrdererResponse),
		c.Timeout(fab.PeerResponse) + c.Timeout(fab.EventReg) + c.Timeout(fab.CommitEvent),
		c.Timeout(fab.DeployResponse) + c.Timeout(fab.EventReg) + c.Timeout(fab.DeployCommitEvent),
	} {
		if d > longest {
			longest = d
		}
	}
	return longest
}

// LongestOperation reads the operation timeouts of the backends without
// loading the rest of the network configuration
func LongestOperation(coreBackend ...core.ConfigBackend) time.Duration {
	c := &EndpointConfig{backend: lookup.New(coreBackend...)}
	return c.LongestOperation()
}

// Organization returns the named organization
func (c *EndpointConfig) Organization(org string) (*fab.OrganizationConfig, bool) {
	o, ok := c.networkConfig.Organizations[strings.ToLower(org)]
	if !ok {
		return nil, false
	}
	return &o, true
}

// DefaultOrganization is the organization used when a request names none
func (c *EndpointConfig) DefaultOrganization() string {
	return strings.ToLower(c.client.Organization)
}

// Organizations returns the names of all configured organizations, sorted
func (c *EndpointConfig) Organizations() []string {
	var names []string
	for name := range c.networkConfig.Organizations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CredentialStorePath is where identities are cached
func (c *EndpointConfig) CredentialStorePath() string {
	return c.client.CredentialStore.Path
}

// OrdererConfig returns the orderer with the given name, or the one with the given URL
func (c *EndpointConfig) OrdererConfig(nameOrURL string) (*fab.OrdererConfig, bool) {
	if o, ok := c.networkConfig.Orderers[strings.ToLower(nameOrURL)]; ok {
		return &o, true
	}
	for _, o := range c.networkConfig.Orderers {
		if sameAddress(o.URL, nameOrURL) {
			o := o
			return &o, true
		}
	}
	return nil, false
}

// ChannelOrderers returns the orderers of the channel, all orderers if the
// channel lists none
func (c *EndpointConfig) ChannelOrderers(channel string) []fab.OrdererConfig {
	if orderers, ok := c.channelOrderers[strings.ToLower(channel)]; ok && len(orderers) > 0 {
		return orderers
	}

	var orderers []fab.OrdererConfig
	for _, name := range sortedKeys(c.networkConfig.Orderers) {
		orderers = append(orderers, c.networkConfig.Orderers[name])
	}
	return orderers
}

// PeerConfig returns the peer with the given name, or the one with the given URL
func (c *EndpointConfig) PeerConfig(nameOrURL string) (*fab.NetworkPeer, bool) {
	name := strings.ToLower(nameOrURL)
	p, ok := c.networkConfig.Peers[name]
	if !ok {
		for n, cfg := range c.networkConfig.Peers {
			if sameAddress(cfg.URL, nameOrURL) {
				name, p, ok = n, cfg, true
				break
			}
		}
	}
	if !ok {
		return nil, false
	}
	return &fab.NetworkPeer{PeerConfig: p, Name: name, MSPID: c.peerMSPID(name)}, true
}

// OrgPeers returns the peers of the organization
func (c *EndpointConfig) OrgPeers(org string) []fab.NetworkPeer {
	return c.peersByOrg[strings.ToLower(org)]
}

// ChannelPeers returns the peers of the channel with their roles
func (c *EndpointConfig) ChannelPeers(channel string) []fab.ChannelPeer {
	return c.channelPeers[strings.ToLower(channel)]
}

// TLSCACerts returns every configured peer and orderer TLS CA certificate
func (c *EndpointConfig) TLSCACerts() []*x509.Certificate {
	return c.tlsCACerts
}

func (c *EndpointConfig) loadEndpointConfiguration() error {
	configEntity := endpointConfigEntity{}

	if err := c.backend.UnmarshalKey("client", &configEntity.Client); err != nil {
		return errors.WithMessage(err, "failed to parse 'client' config item")
	}
	err := c.backend.UnmarshalKey("channels", &configEntity.Channels,
		lookup.WithUnmarshalHookFunction(peerChannelConfigHookFunc()))
	if err != nil {
		return errors.WithMessage(err, "failed to parse 'channels' config item")
	}
	if err := c.backend.UnmarshalKey("organizations", &configEntity.Organizations); err != nil {
		return errors.WithMessage(err, "failed to parse 'organizations' config item")
	}
	if err := c.backend.UnmarshalKey("orderers", &configEntity.Orderers); err != nil {
		return errors.WithMessage(err, "failed to parse 'orderers' config item")
	}
	if err := c.backend.UnmarshalKey("peers", &configEntity.Peers); err != nil {
		return errors.WithMessage(err, "failed to parse 'peers' config item")
	}

	c.client = configEntity.Client

	if err := c.loadNetworkConfig(&configEntity); err != nil {
		return errors.WithMessage(err, "failed to load network config")
	}

	c.loadPeersByOrg()
	c.loadChannelPeers()
	c.loadChannelOrderers()
	c.loadTLSCACerts()

	return nil
}

func (c *EndpointConfig) loadNetworkConfig(configEntity *endpointConfigEntity) error {
	networkConfig := fab.NetworkConfig{
		Name:          c.backend.GetString("name"),
		Channels:      make(map[string]fab.ChannelEndpointConfig),
		Organizations: make(map[string]fab.OrganizationConfig),
		Orderers:      make(map[string]fab.OrdererConfig),
		Peers:         make(map[string]fab.PeerConfig),
	}

	for chID, chCfg := range configEntity.Channels {
		chPeers := make(map[string]fab.PeerChannelConfig)
		for name, roles := range chCfg.Peers {
			chPeers[strings.ToLower(name)] = fab.PeerChannelConfig(roles)
		}
		networkConfig.Channels[strings.ToLower(chID)] = fab.ChannelEndpointConfig{
			Orderers: lower(chCfg.Orderers),
			Peers:    chPeers,
		}
	}

	for orgName, orgCfg := range configEntity.Organizations {
		users := make(map[string]fab.CertKeyPair)
		for user, pair := range orgCfg.Users {
			if err := pair.Cert.LoadBytes(); err != nil {
				return errors.Wrapf(err, "failed to load certificate of %s@%s", user, orgName)
			}
			if err := pair.Key.LoadBytes(); err != nil {
				return errors.Wrapf(err, "failed to load key of %s@%s", user, orgName)
			}
			users[strings.ToLower(user)] = fab.CertKeyPair{Cert: pair.Cert.Bytes(), Key: pair.Key.Bytes()}
		}
		networkConfig.Organizations[strings.ToLower(orgName)] = fab.OrganizationConfig{
			MSPID: orgCfg.MSPID,
			Peers: lower(orgCfg.Peers),
			Users: users,
		}
	}

	for name, ordererCfg := range configEntity.Orderers {
		tlsCert, err := loadCert(&ordererCfg.TLSCACerts)
		if err != nil {
			return errors.Wrapf(err, "failed to load TLS CA cert of orderer %s", name)
		}
		networkConfig.Orderers[strings.ToLower(name)] = fab.OrdererConfig{
			Name:        strings.ToLower(name),
			URL:         ordererCfg.URL,
			GRPCOptions: ordererCfg.GRPCOptions,
			TLSCACert:   tlsCert,
		}
	}

	for name, peerCfg := range configEntity.Peers {
		tlsCert, err := loadCert(&peerCfg.TLSCACerts)
		if err != nil {
			return errors.Wrapf(err, "failed to load TLS CA cert of peer %s", name)
		}
		networkConfig.Peers[strings.ToLower(name)] = fab.PeerConfig{
			URL:         peerCfg.URL,
			GRPCOptions: peerCfg.GRPCOptions,
			TLSCACert:   tlsCert,
		}
	}

	c.networkConfig = &networkConfig
	return nil
}

func (c *EndpointConfig) loadPeersByOrg() {
	c.peersByOrg = make(map[string][]fab.NetworkPeer)
	for orgName, org := range c.networkConfig.Organizations {
		for _, name := range org.Peers {
			p, ok := c.networkConfig.Peers[name]
			if !ok {
				logger.Warnf("peer %s of organization %s is not configured", name, orgName)
				continue
			}
			c.peersByOrg[orgName] = append(c.peersByOrg[orgName], fab.NetworkPeer{PeerConfig: p, Name: name, MSPID: org.MSPID})
		}
	}
}

func (c *EndpointConfig) loadChannelPeers() {
	c.channelPeers = make(map[string][]fab.ChannelPeer)
	for chID, ch := range c.networkConfig.Channels {
		for _, name := range sortedKeys(ch.Peers) {
			p, ok := c.PeerConfig(name)
			if !ok {
				logger.Warnf("peer %s of channel %s is not configured", name, chID)
				continue
			}
			c.channelPeers[chID] = append(c.channelPeers[chID], fab.ChannelPeer{
				PeerChannelConfig: ch.Peers[name],
				NetworkPeer:       *p,
			})
		}
	}
}

func (c *EndpointConfig) loadChannelOrderers() {
	c.channelOrderers = make(map[string][]fab.OrdererConfig)
	for chID, ch := range c.networkConfig.Channels {
		for _, name := range ch.Orderers {
			o, ok := c.networkConfig.Orderers[name]
			if !ok {
				logger.Warnf("orderer %s of channel %s is not configured", name, chID)
				continue
			}
			c.channelOrderers[chID] = append(c.channelOrderers[chID], o)
		}
	}
}

func (c *EndpointConfig) loadTLSCACerts() {
	c.tlsCACerts = nil
	for _, name := range sortedKeys(c.networkConfig.Orderers) {
		if cert := c.networkConfig.Orderers[name].TLSCACert; cert != nil {
			c.tlsCACerts = append(c.tlsCACerts, cert)
		}
	}
	for _, name := range sortedKeys(c.networkConfig.Peers) {
		if cert := c.networkConfig.Peers[name].TLSCACert; cert != nil {
			c.tlsCACerts = append(c.tlsCACerts, cert)
		}
	}
}

func (c *EndpointConfig) peerMSPID(name string) string {
	for _, org := range c.networkConfig.Organizations {
		for _, p := range org.Peers {
			if p == name {
				return org.MSPID
			}
		}
	}
	return ""
}

func loadCert(cfg *endpoint.TLSConfig) (*x509.Certificate, error) {
	if err := cfg.LoadBytes(); err != nil {
		return nil, err
	}
	cert, _, err := cfg.TLSCert()
	return cert, err
}

func sameAddress(configured, requested string) bool {
	return endpoint.ToAddress(configured) == endpoint.ToAddress(requested)
}

func lower(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func sortedKeys(m interface{}) []string {
	var keys []string
	for _, k := range reflect.ValueOf(m).MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	return keys
}

func peerChannelConfigHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(PeerChannelConfig{}) {
			return data, nil
		}
		var dataMap map[string]interface{}
		switch d := data.(type) {
		case map[string]interface{}:
			dataMap = d
		case map[interface{}]interface{}:
			dataMap = cast.ToStringMap(d)
		default:
			return data, nil
		}
		for _, role := range []string{"endorsingpeer", "chaincodequery", "ledgerquery", "eventsource"} {
			setDefault(dataMap, role, true)
		}
		return dataMap, nil
	}
}

//setDefault sets default value provided to map if given key not found
func setDefault(dataMap map[string]interface{}, key string, defaultVal bool) {
	for k := range dataMap {
		if strings.EqualFold(k, key) {
			return
		}
	}
	dataMap[key] = defaultVal
}
