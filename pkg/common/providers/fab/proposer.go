/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	reqContext "context"

	pb "github.com/hyperledger/fabric-protos-go/peer"
)

// ProposalProcessor simulates transaction proposal, so that a client can submit the result for ordering.
type ProposalProcessor interface {
	ProcessTransactionProposal(reqContext.Context, ProcessProposalRequest) (*TransactionProposalResponse, error)
}

// TxnHeaderOptions contains options for creating a Transaction Header
type TxnHeaderOptions struct {
	Nonce   []byte
	Creator []byte
}

// TxnHeaderOpt is a Transaction Header option
type TxnHeaderOpt func(*TxnHeaderOptions)

// WithNonce specifies the nonce to use when creating the Transaction Header
func WithNonce(nonce []byte) TxnHeaderOpt {
	return func(options *TxnHeaderOptions) {
		options.Nonce = nonce
	}
}

// WithCreator specifies the creator to use when creating the Transaction Header
func WithCreator(creator []byte) TxnHeaderOpt {
	return func(options *TxnHeaderOptions) {
		options.Creator = creator
	}
}

// TransactionID provides the identifier of a Fabric transaction proposal.
// It correlates the proposal, the envelope and every commit listener of a run.
type TransactionID string

// EmptyTransactionID represents a non-existing transaction (usually due to error).
const EmptyTransactionID = TransactionID("")

// SystemChannel is the channel used for system chaincode calls such as joins.
const SystemChannel = ""

// TransactionHeader provides a handle to transaction metadata.
type TransactionHeader interface {
	TransactionID() TransactionID
	Creator() []byte
	Nonce() []byte
	ChannelID() string
}

// ChaincodeInvokeRequest contains the parameters for sending a transaction proposal.
// Args are positional.
type ChaincodeInvokeRequest struct {
	ChaincodeID  string
	Lang         pb.ChaincodeSpec_Type
	TransientMap map[string][]byte
	Fcn          string
	Args         [][]byte
}

// TransactionProposal contains a marshalled transaction proposal.
type TransactionProposal struct {
	TxnID TransactionID
	*pb.Proposal
}

// ProcessProposalRequest requests simulation of a proposed transaction from transaction processors.
type ProcessProposalRequest struct {
	SignedProposal *pb.SignedProposal
}

// TransactionProposalResponse represents the result of transaction proposal processing.
// A peer that could not be reached is represented with a non-200 Status,
// a nil ProposalResponse and the reason in Message.
type TransactionProposalResponse struct {
	Endorser string
	// Status is the EndorserStatus
	Status int32
	// ChaincodeStatus is the status returned by Chaincode
	ChaincodeStatus int32
	// Message explains a non-200 status
	Message string
	*pb.ProposalResponse
}

// Endorsed reports whether the endorser produced an endorsement with status 200
func (r *TransactionProposalResponse) Endorsed() bool {
	return r != nil && r.Status == 200 && r.ProposalResponse != nil
}
