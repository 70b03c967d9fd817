/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package channel

import (
	reqContext "context"
	"time"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/context"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/retry"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/pkg/errors"
)

// opts allows the user to specify more advanced options
type requestOptions struct {
	Targets       []fab.Peer // targets
	Orderers      []fab.Orderer
	Timeouts      map[fab.TimeoutType]time.Duration
	Retry         retry.Opts
	ParentContext reqContext.Context
}

// RequestOption func for each Opts argument
type RequestOption func(ctx context.Client, opts *requestOptions) error

// Request contains the parameters to query and execute an invocation transaction
type Request struct {
	ChaincodeID  string
	Fcn          string
	Args         [][]byte
	TransientMap map[string][]byte
}

// Response contains response parameters for query and execute an invocation transaction.
// Verdict is nil only when an error is returned.
type Response struct {
	Payload       []byte
	TransactionID fab.TransactionID
	Proposal      *fab.TransactionProposal
	Responses     []*fab.TransactionProposalResponse
	Verdict       *fab.Verdict
	// Cause is the status behind a failed endorsement
	Cause error
}

// WithTimeout encapsulates key value pairs of timeout type, timeout duration to Options
func WithTimeout(timeoutType fab.TimeoutType, timeout time.Duration) RequestOption {
	return func(ctx context.Client, o *requestOptions) error {
		if o.Timeouts == nil {
			o.Timeouts = make(map[fab.TimeoutType]time.Duration)
		}
		o.Timeouts[timeoutType] = timeout
		return nil
	}
}

// WithTargets allows overriding of the target peers for the request.
// Every target must endorse for the transaction to be submitted.
func WithTargets(targets ...fab.Peer) RequestOption {
	return func(ctx context.Client, o *requestOptions) error {
		for _, t := range targets {
			if t == nil {
				return errors.New("target is nil")
			}
		}
		o.Targets = targets
		return nil
	}
}

// WithTargetEndpoints allows overriding of the target peers for the request.
// Targets are specified by name or URL, and the gateway creates the
// underlying peer objects.
func WithTargetEndpoints(keys ...string) RequestOption {
	return func(ctx context.Client, opts *requestOptions) error {
		var targets []fab.Peer

		for _, url := range keys {
			peerCfg, ok := ctx.EndpointConfig().PeerConfig(url)
			if !ok {
				return errors.Errorf("peer not found: %s", url)
			}

			peer, err := ctx.InfraProvider().CreatePeerFromConfig(peerCfg)
			if err != nil {
				return errors.WithMessage(err, "creating peer from config failed")
			}

			targets = append(targets, peer)
		}

		return WithTargets(targets...)(ctx, opts)
	}
}

// WithOrderers sets the orderers the endorsed transaction may be broadcast to
func WithOrderers(orderers ...fab.Orderer) RequestOption {
	return func(ctx context.Client, o *requestOptions) error {
		for _, orderer := range orderers {
			if orderer == nil {
				return errors.New("orderer is nil")
			}
		}
		o.Orderers = orderers
		return nil
	}
}

// WithOrdererEndpoints sets the orderers by name or URL
func WithOrdererEndpoints(keys ...string) RequestOption {
	return func(ctx context.Client, opts *requestOptions) error {
		var orderers []fab.Orderer

		for _, key := range keys {
			ordererCfg, ok := ctx.EndpointConfig().OrdererConfig(key)
			if !ok {
				return errors.Errorf("orderer not found: %s", key)
			}

			orderer, err := ctx.InfraProvider().CreateOrdererFromConfig(ordererCfg)
			if err != nil {
				return errors.WithMessage(err, "creating orderer from config failed")
			}

			orderers = append(orderers, orderer)
		}

		return WithOrderers(orderers...)(ctx, opts)
	}
}

// WithRetry option to configure retries. Only endorsement failures are
// retried; every attempt runs under a new transaction ID.
func WithRetry(retryOpt retry.Opts) RequestOption {
	return func(ctx context.Client, o *requestOptions) error {
		o.Retry = retryOpt
		return nil
	}
}

// WithParentContext encapsulates grpc parent context
func WithParentContext(parentContext reqContext.Context) RequestOption {
	return func(ctx context.Client, o *requestOptions) error {
		o.ParentContext = parentContext
		return nil
	}
}
