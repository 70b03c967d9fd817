/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	reqContext "context"
	"crypto/x509"
	"time"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/options"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/comm"
	"github.com/pkg/errors"
)

var logger = logging.NewLogger("fabgw/peer")

// Peer represents a node in the target blockchain network to which
// the gateway sends endorsement proposals.
type Peer struct {
	name        string
	mspID       string
	url         string
	processor   fab.ProposalProcessor
	dialer      comm.Dialer
	dialTimeout time.Duration
	connOpts    []options.Opt
}

// Option describes a functional parameter for the New constructor
type Option func(*Peer) error

// New returns a new Peer instance
func New(opts ...Option) (*Peer, error) {
	peer := &Peer{}

	for _, opt := range opts {
		if err := opt(peer); err != nil {
			return nil, err
		}
	}

	if peer.processor == nil {
		if peer.url == "" {
			return nil, errors.New("peer URL is required")
		}
		if peer.dialer == nil {
			return nil, errors.New("peer dialer is required")
		}
		peer.processor = &peerEndorser{
			target:      peer.url,
			dialer:      peer.dialer,
			dialTimeout: peer.dialTimeout,
			connOpts:    peer.connOpts,
		}
	}

	return peer, nil
}

// WithURL is a functional option for the peer.New constructor that configures the peer's URL
func WithURL(url string) Option {
	return func(p *Peer) error {
		p.url = url
		return nil
	}
}

// WithMSPID is a functional option for the peer.New constructor that configures the peer's msp ID
func WithMSPID(mspID string) Option {
	return func(p *Peer) error {
		p.mspID = mspID
		return nil
	}
}

// WithTLSCert is a functional option for the peer.New constructor that configures the peer's TLS CA certificate
func WithTLSCert(certificate *x509.Certificate) Option {
	return func(p *Peer) error {
		p.connOpts = append(p.connOpts, comm.WithCertificate(certificate))
		return nil
	}
}

// WithServerName is a functional option for the peer.New constructor that configures the peer's server name
func WithServerName(serverName string) Option {
	return func(p *Peer) error {
		p.connOpts = append(p.connOpts, comm.WithHostOverride(serverName))
		return nil
	}
}

// WithInsecure is a functional option for the peer.New constructor that
// allows an insecure connection when the URL has no protocol
func WithInsecure() Option {
	return func(p *Peer) error {
		p.connOpts = append(p.connOpts, comm.WithInsecure())
		return nil
	}
}

// WithDialer sets the connection cache the peer dials through
func WithDialer(dialer comm.Dialer) Option {
	return func(p *Peer) error {
		p.dialer = dialer
		return nil
	}
}

// WithConnectTimeout bounds connecting to the peer
func WithConnectTimeout(timeout time.Duration) Option {
	return func(p *Peer) error {
		p.dialTimeout = timeout
		return nil
	}
}

// WithProcessor replaces the GRPC endorser, mostly for tests
func WithProcessor(processor fab.ProposalProcessor) Option {
	return func(p *Peer) error {
		p.processor = processor
		return nil
	}
}

// FromPeerConfig is a functional option for the peer.New constructor that
// configures a new peer from the network configuration
func FromPeerConfig(peerCfg *fab.NetworkPeer) Option {
	return func(p *Peer) error {
		p.name = peerCfg.Name
		p.url = peerCfg.URL
		p.mspID = peerCfg.MSPID
		p.connOpts = append(p.connOpts, comm.OptsFromGRPCOptions(peerCfg.GRPCOptions, peerCfg.TLSCACert)...)
		return nil
	}
}

// Name returns the configured name of the peer
func (p *Peer) Name() string {
	if p.name == "" {
		return p.url
	}
	return p.name
}

// MSPID gets the Peer mspID.
func (p *Peer) MSPID() string {
	return p.mspID
}

// URL gets the Peer URL. Required property for the instance objects.
func (p *Peer) URL() string {
	return p.url
}

// ProcessTransactionProposal sends the created proposal to peer for endorsement.
func (p *Peer) ProcessTransactionProposal(ctx reqContext.Context, proposal fab.ProcessProposalRequest) (*fab.TransactionProposalResponse, error) {
	return p.processor.ProcessTransactionProposal(ctx, proposal)
}

func (p *Peer) String() string {
	return p.Name()
}
