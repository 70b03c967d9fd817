/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package resource sends the administrative requests of the network: channel
// configuration transactions to orderers and configuration system chaincode
// (cscc) proposals to peers.
package resource

import (
	reqContext "context"
	"net/http"
	"time"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/retry"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/status"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/txn"
	"github.com/pkg/errors"
)

var logger = logging.NewLogger("fabgw/resource")

const (
	defaultOrdererTimeout = 2 * time.Minute

	cscc         = "cscc"
	csccJoin     = "JoinChain"
	csccChannels = "GetChannels"
)

type options struct {
	retry   retry.Opts
	timeout time.Duration
}

// Opt tunes how a request is sent
type Opt func(opts *options)

// WithRetry retries calls failing with a retryable status
func WithRetry(opts retry.Opts) Opt {
	return func(o *options) {
		o.retry = opts
	}
}

// WithTimeout bounds each call to a peer or orderer
func WithTimeout(timeout time.Duration) Opt {
	return func(o *options) {
		o.timeout = timeout
	}
}

func newOptions(opts []Opt) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// withRetry runs call until it succeeds or the retry handler gives up
func (o options) withRetry(call func() error) error {
	handler := retry.New(o.retry)
	for {
		err := call()
		if err == nil || !handler.Required(err) {
			return err
		}
		logger.Infof("Retrying after error: %s", err)
	}
}

// invokeSystemChaincode endorses a cscc request on a single peer and returns
// the payload of its response. Each attempt carries a new transaction ID.
func invokeSystemChaincode(ctx reqContext.Context, signer msp.SigningIdentity, request fab.ChaincodeInvokeRequest, peer fab.ProposalProcessor, o options) ([]byte, error) {
	var payload []byte
	err := o.withRetry(func() error {
		header, err := txn.NewHeader(signer, fab.SystemChannel)
		if err != nil {
			return errors.WithMessage(err, "creating transaction header failed")
		}
		proposal, err := txn.CreateChaincodeInvokeProposal(header, request)
		if err != nil {
			return errors.WithMessage(err, "creating proposal failed")
		}
		responses, err := txn.SendProposal(ctx, signer, proposal, []fab.ProposalProcessor{peer}, o.timeout)
		if err != nil {
			return errors.WithMessage(err, "sending proposal failed")
		}

		resp := responses[0]
		if resp.Status != http.StatusOK {
			return status.New(status.EndorserServerStatus, resp.Status, "bad status from "+resp.Endorser+": "+resp.Message, nil)
		}
		payload = resp.ProposalResponse.GetResponse().Payload
		return nil
	})
	if err != nil {
		return nil, errors.WithMessage(err, request.ChaincodeID+"."+request.Fcn+" failed")
	}
	return payload, nil
}
