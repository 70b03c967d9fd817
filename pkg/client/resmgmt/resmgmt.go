/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package resmgmt administers the network on behalf of an organization
// admin: channels are created and joined, and chaincodes instantiated or
// upgraded through the legacy lifecycle system chaincode.
package resmgmt

import (
	reqContext "context"
	"io"
	"time"

	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/client/channel/invoke"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/context"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/retry"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/status"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
	"github.com/pkg/errors"
)

var logger = logging.NewLogger("fabgw/resmgmt")

// InstantiateCCRequest describes a chaincode deployment
type InstantiateCCRequest struct {
	Name    string
	Path    string
	Version string
	// Lang defaults to GOLANG
	Lang pb.ChaincodeSpec_Type
	Args [][]byte
	// Policy defaults to a signature of any member of the channel's organizations
	Policy     *common.SignaturePolicyEnvelope
	CollConfig []*pb.CollectionConfig
}

// InstantiateCCResponse carries the deploy transaction and its verdict
type InstantiateCCResponse struct {
	TransactionID fab.TransactionID
	Verdict       *fab.Verdict
}

// UpgradeCCRequest describes a new version of an instantiated chaincode
type UpgradeCCRequest InstantiateCCRequest

// UpgradeCCResponse carries the upgrade transaction and its verdict
type UpgradeCCResponse InstantiateCCResponse

// SaveChannelRequest holds a channel configuration transaction and the
// admins endorsing it
type SaveChannelRequest struct {
	ChannelID string
	// ChannelConfig is read when ChannelConfigPath is empty
	ChannelConfig     io.Reader
	ChannelConfigPath string
	// SigningIdentities default to the client's identity
	SigningIdentities []msp.SigningIdentity
}

// SaveChannelResponse names the channel configuration transaction
type SaveChannelResponse struct {
	TransactionID fab.TransactionID
}

type requestOptions struct {
	Targets       []fab.Peer
	Orderer       fab.Orderer
	Timeouts      map[fab.TimeoutType]time.Duration
	ParentContext reqContext.Context
	Retry         retry.Opts
}

// RequestOption adjusts a single administration request
type RequestOption func(ctx context.Client, opts *requestOptions) error

// ChannelContextProvider returns the context of a channel the client's
// organization is a member of
type ChannelContextProvider func(channelID string) context.ChannelProvider

// Client administers the network with the identity of its context
type Client struct {
	ctx         context.Client
	channels    ChannelContextProvider
	coordinator *invoke.Coordinator
}

// ClientOption configures the client
type ClientOption func(*Client) error

// WithChannelContext sets how channel contexts are obtained; chaincode
// deployment requires it
func WithChannelContext(channels ChannelContextProvider) ClientOption {
	return func(rc *Client) error {
		rc.channels = channels
		return nil
	}
}

// WithCoordinator shares the commit coordinator of the channel clients
func WithCoordinator(coordinator *invoke.Coordinator) ClientOption {
	return func(rc *Client) error {
		rc.coordinator = coordinator
		return nil
	}
}

// New creates an administration client. The identity of the context must
// carry an MSP ID.
func New(clientProvider context.ClientProvider, opts ...ClientOption) (*Client, error) {
	ctx, err := clientProvider()
	if err != nil {
		return nil, errors.WithMessage(err, "obtaining client context failed")
	}
	if ctx.Identifier().MSPID == "" {
		return nil, errors.New("identity of the client context has no MSP ID")
	}

	rc := &Client{ctx: ctx}
	for _, opt := range opts {
		if err := opt(rc); err != nil {
			return nil, err
		}
	}
	if rc.coordinator == nil {
		rc.coordinator = invoke.NewCoordinator()
	}
	return rc, nil
}

// invalidRequest reports a request rejected before anything was sent
func invalidRequest(msg string) error {
	return status.New(status.ClientStatus, status.InvalidRequest.ToInt32(), msg, nil)
}

// requestOpts applies the options and fills every timeout the request may
// use from the endpoint configuration
func (rc *Client) requestOpts(options ...RequestOption) (requestOptions, error) {
	opts := requestOptions{Timeouts: make(map[fab.TimeoutType]time.Duration)}
	for _, option := range options {
		if err := option(rc.ctx, &opts); err != nil {
			return opts, invalidRequest("Failed to read opts: " + err.Error())
		}
	}

	for _, t := range []fab.TimeoutType{fab.ResMgmt, fab.OrdererResponse, fab.PeerResponse, fab.DeployResponse, fab.DeployCommitEvent} {
		if opts.Timeouts[t] == 0 {
			opts.Timeouts[t] = rc.ctx.EndpointConfig().Timeout(t)
		}
	}
	return opts, nil
}

// deadline derives the context of a request step bounded by the timeout of
// the given type
func (opts requestOptions) deadline(t fab.TimeoutType) (reqContext.Context, reqContext.CancelFunc) {
	parent := opts.ParentContext
	if parent == nil {
		parent = reqContext.Background()
	}
	return reqContext.WithTimeout(parent, opts.Timeouts[t])
}
