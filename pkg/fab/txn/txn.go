/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package txn enables creating, endorsing and sending transactions to Fabric peers and orderers.
package txn

import (
	"bytes"
	reqContext "context"
	"math/rand"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/multi"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
	"github.com/pkg/errors"
)

var logger = logging.NewLogger("fabgw/txn")

// New create a transaction with proposal response, following the endorsement policy.
func New(request fab.TransactionRequest) (*fab.Transaction, error) {
	if len(request.ProposalResponses) == 0 {
		return nil, errors.New("at least one proposal response is necessary")
	}

	proposal := request.Proposal
	if proposal == nil || proposal.Proposal == nil {
		return nil, errors.New("proposal is required")
	}

	// the original header
	hdr := &common.Header{}
	if err := proto.Unmarshal(proposal.Header, hdr); err != nil {
		return nil, errors.Wrap(err, "unmarshal proposal header failed")
	}

	// the original payload
	pPayl := &pb.ChaincodeProposalPayload{}
	if err := proto.Unmarshal(proposal.Payload, pPayl); err != nil {
		return nil, errors.Wrap(err, "unmarshal proposal payload failed")
	}

	responsePayload := request.ProposalResponses[0].GetPayload()
	for _, r := range request.ProposalResponses {
		if !r.Endorsed() {
			return nil, errors.Errorf("proposal response was not successful, error code %d, msg %s", r.Status, r.Message)
		}
		if !bytes.Equal(responsePayload, r.ProposalResponse.Payload) {
			return nil, errors.Errorf("proposal response payloads are not the same (%s, %s)", request.ProposalResponses[0].Endorser, r.Endorser)
		}
	}

	// fill endorsements
	endorsements := make([]*pb.Endorsement, len(request.ProposalResponses))
	for n, r := range request.ProposalResponses {
		endorsements[n] = r.ProposalResponse.Endorsement
	}

	cea := &pb.ChaincodeEndorsedAction{ProposalResponsePayload: responsePayload, Endorsements: endorsements}

	// the transient map never goes to the orderer
	propPayloadBytes, err := proto.Marshal(&pb.ChaincodeProposalPayload{Input: pPayl.Input})
	if err != nil {
		return nil, errors.Wrap(err, "marshal of proposal payload failed")
	}

	capBytes, err := proto.Marshal(&pb.ChaincodeActionPayload{ChaincodeProposalPayload: propPayloadBytes, Action: cea})
	if err != nil {
		return nil, errors.Wrap(err, "marshal of chaincode action payload failed")
	}

	taa := &pb.TransactionAction{Header: hdr.SignatureHeader, Payload: capBytes}

	return &fab.Transaction{
		Transaction: &pb.Transaction{Actions: []*pb.TransactionAction{taa}},
		Proposal:    proposal,
	}, nil
}

// Send send a transaction to the chain’s orderer service (one or more orderer endpoints) for consensus and committing to the ledger.
func Send(reqCtx reqContext.Context, signer msp.SigningIdentity, tx *fab.Transaction, orderers []fab.Orderer) (*fab.TransactionResponse, error) {
	if len(orderers) == 0 {
		return nil, errors.New("orderers is nil")
	}
	if tx == nil {
		return nil, errors.New("transaction is nil")
	}
	if tx.Proposal == nil || tx.Proposal.Proposal == nil {
		return nil, errors.New("proposal is nil")
	}

	// the original header
	hdr := &common.Header{}
	if err := proto.Unmarshal(tx.Proposal.Proposal.Header, hdr); err != nil {
		return nil, errors.Wrap(err, "unmarshal proposal header failed")
	}

	txBytes, err := proto.Marshal(tx.Transaction)
	if err != nil {
		return nil, errors.Wrap(err, "marshal of transaction failed")
	}

	payload := common.Payload{Header: hdr, Data: txBytes}

	return BroadcastPayload(reqCtx, signer, &payload, orderers)
}

// BroadcastPayload will send the given payload to some orderer, picking random endpoints
// until all are exhausted
func BroadcastPayload(reqCtx reqContext.Context, signer msp.SigningIdentity, payload *common.Payload, orderers []fab.Orderer) (*fab.TransactionResponse, error) {
	if len(orderers) == 0 {
		return nil, errors.New("orderers not set")
	}

	envelope, err := signPayload(signer, payload)
	if err != nil {
		return nil, err
	}

	return broadcastEnvelope(reqCtx, envelope, orderers)
}

// broadcastEnvelope will send the given envelope to some orderer, picking random endpoints
// until all are exhausted. On failure the response of the last orderer tried
// is returned along with the errors of all of them.
func broadcastEnvelope(reqCtx reqContext.Context, envelope *fab.SignedEnvelope, orderers []fab.Orderer) (*fab.TransactionResponse, error) {
	var errs error
	var lastResp *fab.TransactionResponse

	for _, i := range rand.Perm(len(orderers)) {
		resp, err := sendBroadcast(reqCtx, envelope, orderers[i])
		if err == nil {
			return resp, nil
		}
		lastResp = resp
		errs = multi.Append(errs, err)

		if reqCtx.Err() != nil {
			break
		}
	}
	return lastResp, errs
}

func sendBroadcast(reqCtx reqContext.Context, envelope *fab.SignedEnvelope, orderer fab.Orderer) (*fab.TransactionResponse, error) {
	logger.Debugf("Broadcasting envelope to orderer: %s", orderer.URL())
	resp := &fab.TransactionResponse{Orderer: orderer.URL()}

	s, err := orderer.SendBroadcast(reqCtx, envelope)
	if s != nil {
		resp.Status = *s
	}
	if err != nil {
		logger.Debugf("Receive Error Response from orderer: %s", err)
		resp.Info = err.Error()
		return resp, errors.WithMessage(err, "calling orderer '"+orderer.URL()+"' failed")
	}

	logger.Debugf("Receive Success Response from orderer")
	return resp, nil
}

// SendPayload sends the given payload to the orderers one at a time and
// returns the first block delivered
func SendPayload(reqCtx reqContext.Context, signer msp.SigningIdentity, payload *common.Payload, orderers []fab.Orderer, timeout time.Duration) (*common.Block, error) {
	if len(orderers) == 0 {
		return nil, errors.New("orderers not set")
	}

	envelope, err := signPayload(signer, payload)
	if err != nil {
		return nil, err
	}

	var errs error
	for _, i := range rand.Perm(len(orderers)) {
		block, err := sendEnvelope(reqCtx, envelope, orderers[i], timeout)
		if err == nil {
			return block, nil
		}
		errs = multi.Append(errs, err)
	}
	return nil, errors.WithMessage(errs, "error returned from orderer service")
}

func sendEnvelope(reqCtx reqContext.Context, envelope *fab.SignedEnvelope, orderer fab.Orderer, timeout time.Duration) (*common.Block, error) {
	ctx, cancel := reqContext.WithTimeout(reqCtx, timeout)
	defer cancel()

	logger.Debugf("Requesting block from orderer: %s", orderer.URL())
	blocks, errs := orderer.SendDeliver(ctx, envelope)

	select {
	case block, ok := <-blocks:
		if ok {
			return block, nil
		}
		select {
		case err := <-errs:
			return nil, err
		default:
			return nil, errors.Errorf("orderer %s delivered no block", orderer.URL())
		}
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "timeout waiting for response from orderer %s", orderer.URL())
	}
}
