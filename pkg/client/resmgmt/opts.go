/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resmgmt

import (
	reqContext "context"
	"time"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/context"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/retry"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/pkg/errors"
)

// WithTargets sends the request to the given peers
func WithTargets(targets ...fab.Peer) RequestOption {
	return func(_ context.Client, opts *requestOptions) error {
		for i, t := range targets {
			if t == nil {
				return errors.Errorf("target %d is nil", i)
			}
		}
		opts.Targets = targets
		return nil
	}
}

// WithTargetEndpoints sends the request to the configured peers named by
// host or URL
func WithTargetEndpoints(keys ...string) RequestOption {
	return func(ctx context.Client, opts *requestOptions) error {
		targets := make([]fab.Peer, 0, len(keys))
		for _, key := range keys {
			cfg, ok := ctx.EndpointConfig().PeerConfig(key)
			if !ok {
				return errors.Errorf("peer not found: %s", key)
			}
			peer, err := ctx.InfraProvider().CreatePeerFromConfig(cfg)
			if err != nil {
				return errors.WithMessage(err, "creating peer from config failed")
			}
			targets = append(targets, peer)
		}
		opts.Targets = targets
		return nil
	}
}

// WithTimeout overrides the configured timeout of one step of the request
func WithTimeout(timeoutType fab.TimeoutType, timeout time.Duration) RequestOption {
	return func(_ context.Client, opts *requestOptions) error {
		if opts.Timeouts == nil {
			opts.Timeouts = make(map[fab.TimeoutType]time.Duration)
		}
		opts.Timeouts[timeoutType] = timeout
		return nil
	}
}

// WithOrdererEndpoint uses the configured orderer named by host or URL
func WithOrdererEndpoint(key string) RequestOption {
	return func(ctx context.Client, opts *requestOptions) error {
		cfg, ok := ctx.EndpointConfig().OrdererConfig(key)
		if !ok {
			return errors.Errorf("orderer not found: %s", key)
		}
		orderer, err := ctx.InfraProvider().CreateOrdererFromConfig(cfg)
		if err != nil {
			return errors.WithMessage(err, "creating orderer from config failed")
		}
		opts.Orderer = orderer
		return nil
	}
}

// WithOrderer uses the given orderer
func WithOrderer(orderer fab.Orderer) RequestOption {
	return func(_ context.Client, opts *requestOptions) error {
		opts.Orderer = orderer
		return nil
	}
}

// WithRetry retries peer and orderer calls failing with a retryable status
func WithRetry(retryOpt retry.Opts) RequestOption {
	return func(_ context.Client, opts *requestOptions) error {
		opts.Retry = retryOpt
		return nil
	}
}

// WithParentContext bounds the request by the given context, typically the
// one of the inbound HTTP request
func WithParentContext(parent reqContext.Context) RequestOption {
	return func(_ context.Client, opts *requestOptions) error {
		opts.ParentContext = parent
		return nil
	}
}
