/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	"testing"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func endorsement(endorser string, status int32, payload string) *fab.TransactionProposalResponse {
	return &fab.TransactionProposalResponse{
		Endorser: endorser,
		Status:   status,
		ProposalResponse: &pb.ProposalResponse{
			Response: &pb.Response{Status: status},
			Payload:  mocks.NewProposalResponsePayload("fabcar", status, "", []byte(payload)),
		},
	}
}

func TestUnanimousAccepts(t *testing.T) {
	result, err := Unanimous{}.Aggregate([]*fab.TransactionProposalResponse{
		endorsement("peer0", 200, "car"),
		endorsement("peer1", 200, "car"),
	})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, []byte("car"), result.Payload)
	assert.Empty(t, result.Detail)
	assert.Nil(t, result.Cause)
}

func TestUnanimousListsEveryRefusal(t *testing.T) {
	result, err := Unanimous{}.Aggregate([]*fab.TransactionProposalResponse{
		endorsement("peer0", 500, ""),
		endorsement("peer1", 200, "car"),
		{Endorser: "peer2", Status: 503, Message: "connection refused"},
	})
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, fab.EndorsementFailure, result.Kind)
	require.Len(t, result.Detail, 2)
	assert.Contains(t, result.Detail[0], "peer0 returned 500")
	assert.Contains(t, result.Detail[1], "peer2 returned 503: connection refused")
	assert.Nil(t, result.Payload)
}

func TestUnanimousEdgeCases(t *testing.T) {
	result, err := Unanimous{}.Aggregate(nil)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, fab.EndorsementFailure, result.Kind)

	_, err = Unanimous{}.Aggregate([]*fab.TransactionProposalResponse{nil})
	assert.Error(t, err)

	malformed := endorsement("peer0", 200, "")
	malformed.ProposalResponse.Payload = []byte("not a proto")
	_, err = Unanimous{}.Aggregate([]*fab.TransactionProposalResponse{malformed})
	assert.Error(t, err)
}

func TestCommitVerdict(t *testing.T) {
	orderer := fab.CommitOutcome{Source: fab.OrdererSource, Node: "orderer", Status: fab.OutcomeSuccess}
	valid := fab.CommitOutcome{Source: fab.NodeSource, Node: "peer0", Status: fab.OutcomeSuccess}
	timedOut := fab.CommitOutcome{Source: fab.NodeSource, Node: "peer1", Status: fab.OutcomeTimeout}
	invalid := fab.CommitOutcome{Source: fab.NodeSource, Node: "peer2", Status: fab.OutcomeInvalid}
	rejected := fab.CommitOutcome{Source: fab.OrdererSource, Node: "orderer", Status: fab.OutcomeError, Detail: "BAD_REQUEST"}

	v := commitVerdict(testTxID, []byte("p"), []fab.CommitOutcome{orderer, valid})
	assert.True(t, v.Succeeded())
	assert.Empty(t, v.FailureDetail)
	assert.Equal(t, []byte("p"), v.Payload)

	v = commitVerdict(testTxID, nil, []fab.CommitOutcome{orderer, valid, timedOut})
	assert.True(t, v.Succeeded())
	assert.Empty(t, v.Kind)
	assert.True(t, v.HasNote(fab.CommitTimeout))

	v = commitVerdict(testTxID, nil, []fab.CommitOutcome{orderer, timedOut, invalid})
	assert.False(t, v.Succeeded())
	assert.Equal(t, fab.CommitInvalid, v.Kind)
	assert.True(t, v.HasNote(fab.CommitTimeout))

	v = commitVerdict(testTxID, nil, []fab.CommitOutcome{rejected, invalid})
	assert.Equal(t, fab.SubmissionFailure, v.Kind)
	assert.True(t, v.HasNote(fab.CommitInvalid))
}
