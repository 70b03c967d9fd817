/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	reqContext "context"
	"net/http"
	"sync"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/multi"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/status"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
	"github.com/pkg/errors"
)

// CreateChaincodeInvokeProposal creates a proposal for transaction.
func CreateChaincodeInvokeProposal(txh fab.TransactionHeader, request fab.ChaincodeInvokeRequest) (*fab.TransactionProposal, error) {
	if request.ChaincodeID == "" {
		return nil, errors.New("ChaincodeID is required")
	}

	if request.Fcn == "" {
		return nil, errors.New("Fcn is required")
	}

	// Add function name to arguments
	argsArray := make([][]byte, len(request.Args)+1)
	argsArray[0] = []byte(request.Fcn)
	for i, arg := range request.Args {
		argsArray[i+1] = arg
	}

	// create invocation spec to target a chaincode with arguments
	ccis := &pb.ChaincodeInvocationSpec{ChaincodeSpec: &pb.ChaincodeSpec{
		Type:        request.Lang,
		ChaincodeId: &pb.ChaincodeID{Name: request.ChaincodeID},
		Input:       &pb.ChaincodeInput{Args: argsArray},
	}}

	proposal, err := createChaincodeProposal(txh, common.HeaderType_ENDORSER_TRANSACTION, ccis, request.TransientMap)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create chaincode proposal")
	}

	return &fab.TransactionProposal{
		TxnID:    txh.TransactionID(),
		Proposal: proposal,
	}, nil
}

func createChaincodeProposal(txh fab.TransactionHeader, headerType common.HeaderType, ccis *pb.ChaincodeInvocationSpec, transientMap map[string][]byte) (*pb.Proposal, error) {
	ccisBytes, err := proto.Marshal(ccis)
	if err != nil {
		return nil, errors.Wrap(err, "marshal of invocation spec failed")
	}

	payloadBytes, err := proto.Marshal(&pb.ChaincodeProposalPayload{Input: ccisBytes, TransientMap: transientMap})
	if err != nil {
		return nil, errors.Wrap(err, "marshal of proposal payload failed")
	}

	channelHeader, err := CreateChannelHeader(headerType, ChannelHeaderOpts{
		TxnHeader:   txh,
		ChaincodeID: ccis.GetChaincodeSpec().GetChaincodeId().GetName(),
	})
	if err != nil {
		return nil, err
	}

	header, err := createHeader(txh, channelHeader)
	if err != nil {
		return nil, err
	}

	headerBytes, err := proto.Marshal(header)
	if err != nil {
		return nil, errors.Wrap(err, "marshal of header failed")
	}

	return &pb.Proposal{Header: headerBytes, Payload: payloadBytes}, nil
}

// signProposal creates a SignedProposal signed by the given identity.
func signProposal(signer msp.SigningIdentity, proposal *pb.Proposal) (*pb.SignedProposal, error) {
	proposalBytes, err := proto.Marshal(proposal)
	if err != nil {
		return nil, errors.Wrap(err, "mashal proposal failed")
	}

	signature, err := signer.Sign(proposalBytes)
	if err != nil {
		return nil, errors.WithMessage(err, "sign failed")
	}

	return &pb.SignedProposal{ProposalBytes: proposalBytes, Signature: signature}, nil
}

// SendProposal signs the proposal and sends it to every target concurrently,
// each call bounded by timeout when positive. It returns one response per
// distinct target, in target order. A target that failed is represented by a
// non-200 response; the failures are also returned together as the error.
func SendProposal(reqCtx reqContext.Context, signer msp.SigningIdentity, proposal *fab.TransactionProposal, targets []fab.ProposalProcessor, timeout time.Duration) ([]*fab.TransactionProposalResponse, error) {
	if proposal == nil {
		return nil, errors.New("proposal is required")
	}

	if len(targets) < 1 {
		return nil, errors.New("targets is required")
	}

	for _, p := range targets {
		if p == nil {
			return nil, errors.New("target is nil")
		}
	}

	targets = getTargetsWithoutDuplicates(targets)

	signedProposal, err := signProposal(signer, proposal.Proposal)
	if err != nil {
		return nil, errors.WithMessage(err, "sign proposal failed")
	}

	request := fab.ProcessProposalRequest{SignedProposal: signedProposal}

	var responseMtx sync.Mutex
	responses := make([]*fab.TransactionProposalResponse, len(targets))
	var wg sync.WaitGroup
	errs := multi.Errors{}

	for i, p := range targets {
		wg.Add(1)
		go func(i int, processor fab.ProposalProcessor) {
			defer wg.Done()

			ctx := reqCtx
			if timeout > 0 {
				var cancel reqContext.CancelFunc
				ctx, cancel = reqContext.WithTimeout(reqCtx, timeout)
				defer cancel()
			}

			resp, err := processor.ProcessTransactionProposal(ctx, request)
			if err != nil {
				logger.Debugf("Received error response from txn proposal processing: %s", err)
				resp = failedResponse(processor, resp, err)
				responseMtx.Lock()
				errs = append(errs, err)
				responseMtx.Unlock()
			}
			responses[i] = resp
		}(i, p)
	}
	wg.Wait()

	return responses, errs.ToError()
}

// failedResponse represents a failed call as a non-200 response: the chaincode
// status when the peer reported one, 503 otherwise
func failedResponse(processor fab.ProposalProcessor, resp *fab.TransactionProposalResponse, err error) *fab.TransactionProposalResponse {
	failed := &fab.TransactionProposalResponse{
		Status:  http.StatusServiceUnavailable,
		Message: err.Error(),
	}
	if resp != nil {
		failed.Endorser = resp.Endorser
	}
	if failed.Endorser == "" {
		if peer, ok := processor.(fab.Peer); ok {
			failed.Endorser = peer.URL()
		}
	}
	if s, ok := status.FromError(err); ok && s.Group == status.ChaincodeStatus {
		failed.Status = s.Code
		failed.ChaincodeStatus = s.Code
		failed.Message = s.Message
	}
	return failed
}

// getTargetsWithoutDuplicates returns a list of targets without duplicates
func getTargetsWithoutDuplicates(targets []fab.ProposalProcessor) []fab.ProposalProcessor {
	peerUrlsToTargets := map[string]fab.ProposalProcessor{}
	var uniqueTargets []fab.ProposalProcessor

	for i := range targets {
		peer, ok := targets[i].(fab.Peer)
		if !ok {
			// ProposalProcessor is not a fab.Peer... cannot remove duplicates
			return targets
		}
		if _, present := peerUrlsToTargets[peer.URL()]; !present {
			uniqueTargets = append(uniqueTargets, targets[i])
			peerUrlsToTargets[peer.URL()] = targets[i]
		}
	}

	if len(uniqueTargets) != len(targets) {
		logger.Warn("Duplicate target peers in configuration")
	}

	return uniqueTargets
}
