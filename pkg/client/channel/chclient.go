/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package channel enables access to a channel on a Fabric network.
//
// Execute runs the whole transaction protocol: the proposal is endorsed by
// every target, the endorsed transaction is broadcast once all targets
// agreed, and the commit is awaited on every event source of the caller's
// organization. The outcome is reported in Response.Verdict; an error is only
// returned for conditions outside the protocol.
package channel

import (
	reqContext "context"
	"time"

	"github.com/hyperledger/fabric-rest-gateway/pkg/client/channel/invoke"
	"github.com/hyperledger/fabric-rest-gateway/pkg/client/channel/metrics"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/context"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/retry"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/status"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/metrics/disabled"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/pkg/errors"
)

var logger = logging.NewLogger("fabgw/channel")

const (
	defaultHandlerTimeout = time.Second * 180
)

// Client enables access to a channel on a Fabric network.
//
// A channel client instance provides a handler to interact with peers on specified channel.
// An application that requires interaction with multiple channels should create a separate
// instance of the channel client for each channel.
type Client struct {
	context     context.Channel
	coordinator *invoke.Coordinator
	policy      invoke.EndorsementPolicy
	metrics     *metrics.ClientMetrics
}

// ClientOption describes a functional parameter for the New constructor
type ClientOption func(*Client) error

// WithCoordinator shares a commit coordinator between clients, so that
// closing it disconnects the listeners of all of them
func WithCoordinator(coordinator *invoke.Coordinator) ClientOption {
	return func(client *Client) error {
		client.coordinator = coordinator
		return nil
	}
}

// WithEndorsementPolicy replaces the unanimous endorsement policy
func WithEndorsementPolicy(policy invoke.EndorsementPolicy) ClientOption {
	return func(client *Client) error {
		client.policy = policy
		return nil
	}
}

// WithMetrics records the client's calls
func WithMetrics(m *metrics.ClientMetrics) ClientOption {
	return func(client *Client) error {
		client.metrics = m
		return nil
	}
}

// New returns a Client instance.
func New(channelProvider context.ChannelProvider, opts ...ClientOption) (*Client, error) {
	channelContext, err := channelProvider()
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create channel context")
	}

	if channelContext.ChannelID() == "" {
		return nil, errors.New("channel ID is required")
	}

	channelClient := Client{context: channelContext}

	for _, param := range opts {
		if err := param(&channelClient); err != nil {
			return nil, errors.WithMessage(err, "option failed")
		}
	}

	if channelClient.coordinator == nil {
		channelClient.coordinator = invoke.NewCoordinator()
	}
	if channelClient.metrics == nil {
		channelClient.metrics = metrics.NewClientMetrics(&disabled.Provider{})
	}

	return &channelClient, nil
}

// Query chaincode using request and optional options provided
func (cc *Client) Query(request Request, options ...RequestOption) (Response, error) {
	return callQuery(cc, request, cc.addDefaultTimeout(fab.Query, options...)...)
}

// Execute prepares and executes transaction using request and optional options provided
func (cc *Client) Execute(request Request, options ...RequestOption) (Response, error) {
	return callExecute(cc, request, cc.addDefaultTimeout(fab.Execute, options...)...)
}

// InvokeHandler invokes handler using request and options provided
func (cc *Client) InvokeHandler(handler invoke.Handler, request Request, options ...RequestOption) (Response, error) {
	return cc.invokeHandler(handler, fab.Execute, request, options...)
}

func (cc *Client) invokeHandler(handler invoke.Handler, timeoutType fab.TimeoutType, request Request, options ...RequestOption) (Response, error) {
	//Read execute tx options
	txnOpts, err := cc.prepareOptsFromOptions(cc.context, options...)
	if err != nil {
		return rejected(err.Error()), nil
	}

	//Prepare context objects for handler
	requestContext, clientContext, err := cc.prepareHandlerContexts(request, txnOpts, timeoutType)
	if err != nil {
		if s, ok := status.FromError(err); ok && s.Code == status.InvalidRequest.ToInt32() {
			return rejected(s.Message), nil
		}
		return Response{}, err
	}

	timeout := txnOpts.Timeouts[timeoutType]
	parentCtx := txnOpts.ParentContext
	if parentCtx == nil {
		parentCtx = reqContext.Background()
	}
	ctx, cancel := reqContext.WithTimeout(parentCtx, timeout)
	defer cancel()
	requestContext.Ctx = ctx

	retryHandler := retry.New(txnOpts.Retry)
	complete := make(chan struct{})

	go func() {
		defer close(complete)
		for {
			//Perform action through handler
			handler.Handle(requestContext, clientContext)
			if !cc.resolveRetry(requestContext, retryHandler) {
				return
			}
		}
	}()

	// handlers observe ctx, so the run settles shortly after it expires
	<-complete

	if timedOut(ctx, parentCtx, requestContext) {
		return Response{}, status.New(status.ClientStatus, status.Timeout.ToInt32(), "request timed out or been cancelled", nil)
	}
	return Response(requestContext.Response), requestContext.Error
}

// timedOut reports a run cut short by its own deadline before it could
// reach the orderer. Later verdicts are kept: they describe what the
// network did with the transaction.
func timedOut(ctx, parentCtx reqContext.Context, requestContext *invoke.RequestContext) bool {
	if ctx.Err() != reqContext.DeadlineExceeded || parentCtx.Err() != nil {
		return false
	}
	v := requestContext.Response.Verdict
	return v == nil || v.Kind == fab.EndorsementFailure
}

// resolveRetry decides whether the run is attempted again. Only endorsement
// failures are retried: after a broadcast the transaction may be recorded.
func (cc *Client) resolveRetry(ctx *invoke.RequestContext, retryHandler retry.Handler) bool {
	if ctx.Error != nil || ctx.Ctx.Err() != nil {
		return false
	}

	v := ctx.Response.Verdict
	if v == nil || (v.Kind != fab.EndorsementFailure && v.Kind != fab.EndorsementMismatch) {
		return false
	}
	if ctx.Response.Cause == nil || !retryHandler.Required(ctx.Response.Cause) {
		return false
	}

	logger.Infof("Retrying transaction [%s] under a new transaction ID: %s", v.TransactionID, v.Detail())

	// Reset context parameters
	ctx.Response = invoke.Response{}
	ctx.Error = nil

	return true
}

//prepareHandlerContexts prepares context objects for handlers
func (cc *Client) prepareHandlerContexts(request Request, o requestOptions, timeoutType fab.TimeoutType) (*invoke.RequestContext, *invoke.ClientContext, error) {
	targets := o.Targets
	if len(targets) == 0 {
		peers, err := cc.context.DiscoveryService().GetPeers()
		if err != nil {
			return nil, nil, status.New(status.ClientStatus, status.InvalidRequest.ToInt32(), "no targets: "+err.Error(), nil)
		}
		targets = peers
	}

	orderers := o.Orderers
	var eventSources []fab.EventService
	if timeoutType != fab.Query {
		if len(orderers) == 0 {
			var err error
			if orderers, err = cc.channelOrderers(); err != nil {
				return nil, nil, err
			}
		}
		var err error
		if eventSources, err = cc.context.EventSources(); err != nil {
			return nil, nil, errors.WithMessage(err, "resolving event sources failed")
		}
	}

	clientContext := &invoke.ClientContext{
		ChannelID:   cc.context.ChannelID(),
		Signer:      cc.context,
		Coordinator: cc.coordinator,
	}

	requestContext := &invoke.RequestContext{
		Request: invoke.Request(request),
		Opts: invoke.Opts{
			Targets:      targets,
			Orderers:     orderers,
			EventSources: eventSources,
			Timeouts:     o.Timeouts,
			Policy:       cc.policy,
		},
		Response: invoke.Response{},
	}

	return requestContext, clientContext, nil
}

// channelOrderers creates the configured orderers of the channel
func (cc *Client) channelOrderers() ([]fab.Orderer, error) {
	var orderers []fab.Orderer
	for _, cfg := range cc.context.EndpointConfig().ChannelOrderers(cc.context.ChannelID()) {
		cfg := cfg
		orderer, err := cc.context.InfraProvider().CreateOrdererFromConfig(&cfg)
		if err != nil {
			return nil, errors.WithMessage(err, "creating orderer from config failed")
		}
		orderers = append(orderers, orderer)
	}
	return orderers, nil
}

//prepareOptsFromOptions Reads apitxn.Opts from Option array
func (cc *Client) prepareOptsFromOptions(ctx context.Client, options ...RequestOption) (requestOptions, error) {
	txnOpts := requestOptions{}
	for _, option := range options {
		err := option(ctx, &txnOpts)
		if err != nil {
			return txnOpts, errors.WithMessage(err, "Failed to read opts")
		}
	}
	return txnOpts, nil
}

//addDefaultTimeout adds the overall timeout of the operation and the
//timeouts of its steps when they are missing in options
func (cc *Client) addDefaultTimeout(timeOutType fab.TimeoutType, options ...RequestOption) []RequestOption {
	txnOpts := requestOptions{}
	for _, option := range options {
		if option != nil {
			option(cc.context, &txnOpts) // nolint: errcheck
		}
	}

	for _, t := range []fab.TimeoutType{timeOutType, fab.PeerResponse, fab.EventReg, fab.CommitEvent} {
		if txnOpts.Timeouts[t] != 0 {
			continue
		}
		to := cc.context.EndpointConfig().Timeout(t)
		if to == 0 && t == timeOutType {
			to = defaultHandlerTimeout
		}
		options = append([]RequestOption{WithTimeout(t, to)}, options...)
	}
	return options
}

func rejected(reason string) Response {
	v := &fab.Verdict{}
	v.Fail(fab.BadRequest, reason)
	return Response{Verdict: v}
}
