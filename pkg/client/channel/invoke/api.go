/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package invoke provides the handlers for performing chaincode invocations:
// proposal, endorsement validation, and commit with confirmation from every
// event source of the caller's organization.
package invoke

import (
	reqContext "context"
	"time"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
)

// Opts allows the user to specify more advanced options
type Opts struct {
	// Targets are the endorsing peers
	Targets []fab.Peer
	// Orderers the endorsed envelope may be broadcast to
	Orderers []fab.Orderer
	// EventSources are the peers whose commit is awaited
	EventSources []fab.EventService
	// Timeouts of type PeerResponse, EventReg and CommitEvent are used
	Timeouts map[fab.TimeoutType]time.Duration
	// Policy decides whether the endorsements allow a submit; Unanimous when nil
	Policy        EndorsementPolicy
	ParentContext reqContext.Context
}

// Request contains the parameters to execute transaction
type Request struct {
	ChaincodeID  string
	Fcn          string
	Args         [][]byte
	TransientMap map[string][]byte
}

//Response contains response parameters for query and execute transaction
type Response struct {
	Payload       []byte
	TransactionID fab.TransactionID
	Proposal      *fab.TransactionProposal
	Responses     []*fab.TransactionProposalResponse
	// Verdict is set once the run reached a terminal state
	Verdict *fab.Verdict
	// Cause is the typed status behind a failed endorsement; it drives retries
	Cause error
}

//Handler for chaining transaction executions
type Handler interface {
	Handle(context *RequestContext, clientContext *ClientContext)
}

//ClientContext contains context parameters for handler execution
type ClientContext struct {
	ChannelID   string
	Signer      msp.SigningIdentity
	Coordinator *Coordinator
	// TxnHeaderOpts customizes the nonce or creator of the proposal header
	TxnHeaderOpts []fab.TxnHeaderOpt
}

//RequestContext contains request, opts, response parameters for handler execution.
//Error is only set for conditions outside the failure taxonomy of the Verdict.
type RequestContext struct {
	Request  Request
	Opts     Opts
	Response Response
	Error    error
	Ctx      reqContext.Context
}

func (rc *RequestContext) timeout(tType fab.TimeoutType) time.Duration {
	return rc.Opts.Timeouts[tType]
}
