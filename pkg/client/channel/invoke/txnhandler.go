/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	reqContext "context"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/txn"
	"github.com/pkg/errors"
)

var logger = logging.NewLogger("fabgw/invoke")

//ValidationHandler rejects requests that cannot be sent before anything is sent
type ValidationHandler struct {
	next   Handler
	commit bool
}

//Handle checks the request and the targets
func (v *ValidationHandler) Handle(requestContext *RequestContext, clientContext *ClientContext) {
	reason := ""
	switch {
	case requestContext.Request.ChaincodeID == "":
		reason = "chaincode ID is required"
	case requestContext.Request.Fcn == "":
		reason = "function name is required"
	case len(requestContext.Opts.Targets) == 0:
		reason = "targets were not provided"
	case v.commit && len(requestContext.Opts.Orderers) == 0:
		reason = "orderers were not provided"
	}
	if reason != "" {
		requestContext.Response.Verdict = badRequest(fab.EmptyTransactionID, reason)
		return
	}

	if v.next != nil {
		v.next.Handle(requestContext, clientContext)
	}
}

//ProposalHandler builds the proposal under a new transaction ID and sends it
//to every target
type ProposalHandler struct {
	next Handler
}

//Handle for endorsing transactions
func (e *ProposalHandler) Handle(requestContext *RequestContext, clientContext *ClientContext) {
	txh, err := txn.NewHeader(clientContext.Signer, clientContext.ChannelID, clientContext.TxnHeaderOpts...)
	if err != nil {
		requestContext.Error = errors.WithMessage(err, "creating transaction header failed")
		return
	}

	request := fab.ChaincodeInvokeRequest{
		ChaincodeID:  requestContext.Request.ChaincodeID,
		Fcn:          requestContext.Request.Fcn,
		Args:         requestContext.Request.Args,
		TransientMap: requestContext.Request.TransientMap,
	}
	proposal, err := txn.CreateChaincodeInvokeProposal(txh, request)
	if err != nil {
		requestContext.Error = errors.WithMessage(err, "creating transaction proposal failed")
		return
	}
	requestContext.Response.Proposal = proposal
	requestContext.Response.TransactionID = proposal.TxnID

	targets := make([]fab.ProposalProcessor, len(requestContext.Opts.Targets))
	for i, p := range requestContext.Opts.Targets {
		targets[i] = p
	}

	logger.Debugf("Sending proposal [%s] to %d endorsers", proposal.TxnID, len(targets))
	responses, err := txn.SendProposal(requestContext.Ctx, clientContext.Signer, proposal, targets, requestContext.timeout(fab.PeerResponse))
	if responses == nil {
		requestContext.Error = errors.WithMessage(err, "sending transaction proposal failed")
		return
	}
	if err != nil {
		logger.Debugf("Some endorsers of [%s] failed: %s", proposal.TxnID, err)
	}
	requestContext.Response.Responses = responses

	if e.next != nil {
		e.next.Handle(requestContext, clientContext)
	}
}

//EndorsementValidationHandler applies the endorsement policy; the chain only
//continues when the policy allows a submit
type EndorsementValidationHandler struct {
	next Handler
}

//Handle for Filtering proposal response
func (f *EndorsementValidationHandler) Handle(requestContext *RequestContext, clientContext *ClientContext) {
	policy := requestContext.Opts.Policy
	if policy == nil {
		policy = Unanimous{}
	}

	result, err := policy.Aggregate(requestContext.Response.Responses)
	if err != nil {
		requestContext.Error = errors.WithMessage(err, "endorsement validation failed")
		return
	}

	txnID := requestContext.Response.TransactionID
	requestContext.Response.Payload = result.Payload
	requestContext.Response.Cause = result.Cause
	requestContext.Response.Verdict = endorsementVerdict(txnID, result)
	if !result.OK {
		logger.Infof("Endorsement of [%s] rejected: %s", txnID, requestContext.Response.Verdict.Detail())
		return
	}

	if f.next != nil {
		f.next.Handle(requestContext, clientContext)
	}
}

//CommitTxHandler submits the endorsed transaction while the coordinator
//watches for its commit
type CommitTxHandler struct {
	next Handler
}

//Handle handles commit tx
func (c *CommitTxHandler) Handle(requestContext *RequestContext, clientContext *ClientContext) {
	if !requestContext.Response.Verdict.Succeeded() {
		requestContext.Error = errors.New("commit requires an accepted endorsement")
		return
	}
	if clientContext.Coordinator == nil {
		requestContext.Error = errors.New("commit coordinator is required")
		return
	}

	tx, err := txn.New(fab.TransactionRequest{
		Proposal:          requestContext.Response.Proposal,
		ProposalResponses: requestContext.Response.Responses,
	})
	if err != nil {
		requestContext.Error = errors.WithMessage(err, "CreateTransaction failed")
		return
	}

	txnID := requestContext.Response.TransactionID
	outcomes, err := clientContext.Coordinator.Run(requestContext.Ctx, CommitRequest{
		TxnID:        txnID,
		EventSources: requestContext.Opts.EventSources,
		Submit: func(ctx reqContext.Context) (*fab.TransactionResponse, error) {
			return txn.Send(ctx, clientContext.Signer, tx, requestContext.Opts.Orderers)
		},
		RegistrationTimeout: requestContext.timeout(fab.EventReg),
		CommitTimeout:       requestContext.timeout(fab.CommitEvent),
	})
	if err != nil {
		requestContext.Error = err
		return
	}

	verdict := commitVerdict(txnID, requestContext.Response.Payload, outcomes)
	requestContext.Response.Verdict = verdict
	if verdict.Succeeded() {
		logger.Debugf("Transaction [%s] committed", txnID)
	} else {
		logger.Infof("Transaction [%s] failed: %s", txnID, verdict.Detail())
	}

	if c.next != nil {
		c.next.Handle(requestContext, clientContext)
	}
}

//NewQueryHandler returns query handler with chain of ValidationHandler, ProposalHandler and EndorsementValidationHandler
func NewQueryHandler(next ...Handler) Handler {
	return NewValidationHandler(false,
		NewProposalHandler(
			NewEndorsementValidationHandler(next...),
		),
	)
}

//NewExecuteHandler returns execute handler with chain of ValidationHandler, ProposalHandler, EndorsementValidationHandler and CommitHandler
func NewExecuteHandler(next ...Handler) Handler {
	return NewValidationHandler(true,
		NewProposalHandler(
			NewEndorsementValidationHandler(
				NewCommitHandler(next...),
			),
		),
	)
}

//NewValidationHandler returns a handler that validates the request; commit
//also requires orderers
func NewValidationHandler(commit bool, next ...Handler) *ValidationHandler {
	return &ValidationHandler{next: getNext(next), commit: commit}
}

//NewProposalHandler returns a handler that endorses a transaction proposal
func NewProposalHandler(next ...Handler) *ProposalHandler {
	return &ProposalHandler{next: getNext(next)}
}

//NewEndorsementValidationHandler returns a handler that validates an endorsement
func NewEndorsementValidationHandler(next ...Handler) *EndorsementValidationHandler {
	return &EndorsementValidationHandler{next: getNext(next)}
}

//NewCommitHandler returns a handler that commits transaction propsal responses
func NewCommitHandler(next ...Handler) *CommitTxHandler {
	return &CommitTxHandler{next: getNext(next)}
}

func getNext(next []Handler) Handler {
	if len(next) > 0 {
		return next[0]
	}
	return nil
}
