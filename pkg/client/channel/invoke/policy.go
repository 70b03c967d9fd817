/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	"bytes"
	"fmt"

	"github.com/golang/protobuf/proto"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/status"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/pkg/errors"
)

// AggregateResult is the decision of an EndorsementPolicy
type AggregateResult struct {
	OK bool
	// Payload is the chaincode result of the first endorser
	Payload []byte
	// Kind is set when OK is false
	Kind fab.FailureKind
	// Detail names every endorser that prevented a submit
	Detail []string
	// Cause is the status of the first offending endorser
	Cause error
}

// EndorsementPolicy decides whether a set of endorsements may be submitted
type EndorsementPolicy interface {
	Aggregate(responses []*fab.TransactionProposalResponse) (AggregateResult, error)
}

// Unanimous accepts the endorsements only when every endorser answered 200
// and all of them simulated the same result
type Unanimous struct{}

// Aggregate implements EndorsementPolicy
func (Unanimous) Aggregate(responses []*fab.TransactionProposalResponse) (AggregateResult, error) {
	if len(responses) == 0 {
		return AggregateResult{
			Kind:   fab.EndorsementFailure,
			Detail: []string{string(fab.EndorsementFailure) + ": no endorsements"},
			Cause:  status.New(status.ClientStatus, status.NoPeersFound.ToInt32(), "no endorsements", nil),
		}, nil
	}

	var result AggregateResult
	for _, r := range responses {
		if r == nil {
			return AggregateResult{}, errors.New("nil endorsement response")
		}
		if r.Endorsed() {
			continue
		}
		result.Kind = fab.EndorsementFailure
		result.Detail = append(result.Detail, fmt.Sprintf("%s: %s returned %d: %s", fab.EndorsementFailure, r.Endorser, r.Status, r.Message))
		if result.Cause == nil {
			result.Cause = status.New(status.EndorserServerStatus, r.Status, r.Message, []interface{}{r.Endorser})
		}
	}
	if result.Kind != "" {
		return result, nil
	}

	first := responses[0]
	for _, r := range responses[1:] {
		if !bytes.Equal(first.ProposalResponse.Payload, r.ProposalResponse.Payload) {
			result.Kind = fab.EndorsementMismatch
			result.Detail = append(result.Detail, fmt.Sprintf("%s: result of %s differs from %s", fab.EndorsementMismatch, r.Endorser, first.Endorser))
		}
	}
	if result.Kind != "" {
		result.Cause = status.New(status.EndorserClientStatus, status.EndorsementMismatch.ToInt32(), "ProposalResponsePayloads do not match", nil)
		return result, nil
	}

	payload, err := resultFromProposalResponse(first.ProposalResponse)
	if err != nil {
		return AggregateResult{}, errors.WithMessage(err, "endorsement of "+first.Endorser)
	}
	return AggregateResult{OK: true, Payload: payload}, nil
}

func resultFromProposalResponse(proposalResponse *pb.ProposalResponse) ([]byte, error) {
	responsePayload := &pb.ProposalResponsePayload{}
	if err := proto.Unmarshal(proposalResponse.GetPayload(), responsePayload); err != nil {
		return nil, errors.Wrap(err, "failed to deserialize proposal response payload")
	}

	chaincodeAction := &pb.ChaincodeAction{}
	if err := proto.Unmarshal(responsePayload.GetExtension(), chaincodeAction); err != nil {
		return nil, errors.Wrap(err, "failed to deserialize chaincode action")
	}

	return chaincodeAction.GetResponse().GetPayload(), nil
}
