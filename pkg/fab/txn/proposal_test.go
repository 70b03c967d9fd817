/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"context"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/status"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/mocks"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChannel = "mychannel"

func newTestProposal(t *testing.T) (*mocks.MockSigningIdentity, *fab.TransactionProposal) {
	signer := mocks.NewMockSigningIdentity("user1", "Org1MSP")
	txh, err := NewHeader(signer, testChannel)
	require.NoError(t, err)

	proposal, err := CreateChaincodeInvokeProposal(txh, fab.ChaincodeInvokeRequest{
		ChaincodeID:  "mycc",
		Fcn:          "move",
		Args:         [][]byte{[]byte("a"), []byte("b"), []byte("10")},
		TransientMap: map[string][]byte{"secret": []byte("s")},
	})
	require.NoError(t, err)
	return signer, proposal
}

func TestNewTransactionProposal(t *testing.T) {
	_, proposal := newTestProposal(t)

	hdr := &common.Header{}
	require.NoError(t, proto.Unmarshal(proposal.Header, hdr))
	chdr := &common.ChannelHeader{}
	require.NoError(t, proto.Unmarshal(hdr.ChannelHeader, chdr))

	assert.Equal(t, testChannel, chdr.ChannelId)
	assert.Equal(t, string(proposal.TxnID), chdr.TxId)
	assert.Equal(t, int32(common.HeaderType_ENDORSER_TRANSACTION), chdr.Type)

	payload := &pb.ChaincodeProposalPayload{}
	require.NoError(t, proto.Unmarshal(proposal.Payload, payload))
	assert.Equal(t, []byte("s"), payload.TransientMap["secret"])

	ccis := &pb.ChaincodeInvocationSpec{}
	require.NoError(t, proto.Unmarshal(payload.Input, ccis))
	assert.Equal(t, "mycc", ccis.ChaincodeSpec.ChaincodeId.Name)
	assert.Equal(t, [][]byte{[]byte("move"), []byte("a"), []byte("b"), []byte("10")}, ccis.ChaincodeSpec.Input.Args)
}

func TestNewTransactionProposalParams(t *testing.T) {
	signer := mocks.NewMockSigningIdentity("user1", "Org1MSP")
	txh, err := NewHeader(signer, testChannel)
	require.NoError(t, err)

	_, err = CreateChaincodeInvokeProposal(txh, fab.ChaincodeInvokeRequest{Fcn: "move"})
	assert.Error(t, err, "chaincode ID is required")

	_, err = CreateChaincodeInvokeProposal(txh, fab.ChaincodeInvokeRequest{ChaincodeID: "mycc"})
	assert.Error(t, err, "function is required")
}

func TestTransactionIDs(t *testing.T) {
	signer := mocks.NewMockSigningIdentity("user1", "Org1MSP")
	creator, err := signer.Serialize()
	require.NoError(t, err)

	h1, err := NewHeader(signer, testChannel)
	require.NoError(t, err)
	h2, err := NewHeader(signer, testChannel)
	require.NoError(t, err)
	assert.NotEqual(t, h1.TransactionID(), h2.TransactionID())
	assert.Len(t, h1.Nonce(), nonceSize)
	assert.Equal(t, creator, h1.Creator())
	assert.Len(t, string(h1.TransactionID()), 64)

	nonce := []byte("fixed-nonce")
	h3, err := NewHeader(signer, testChannel, fab.WithNonce(nonce))
	require.NoError(t, err)
	h4, err := NewHeader(signer, testChannel, fab.WithNonce(nonce))
	require.NoError(t, err)
	assert.Equal(t, h3.TransactionID(), h4.TransactionID())
	assert.Equal(t, computeTxnID(nonce, creator), h3.TransactionID())
}

func TestSendTransactionProposal(t *testing.T) {
	signer, proposal := newTestProposal(t)
	p1 := mocks.NewMockPeer("peer1:7051")
	p2 := mocks.NewMockPeer("peer2:7051")

	responses, err := SendProposal(context.Background(), signer, proposal, []fab.ProposalProcessor{p1, p2, p1}, time.Second)
	require.NoError(t, err)
	require.Len(t, responses, 2, "duplicate targets are removed")
	assert.Equal(t, "peer1:7051", responses[0].Endorser)
	assert.Equal(t, "peer2:7051", responses[1].Endorser)
	assert.True(t, responses[0].Endorsed())
	assert.Equal(t, 1, p1.ProcessProposalCalls())
	assert.Equal(t, []string{string(proposal.TxnID)}, p2.TxIDs())

	_, err = SendProposal(context.Background(), signer, nil, []fab.ProposalProcessor{p1}, 0)
	assert.Error(t, err)
	_, err = SendProposal(context.Background(), signer, proposal, nil, 0)
	assert.Error(t, err)
	_, err = SendProposal(context.Background(), signer, proposal, []fab.ProposalProcessor{nil}, 0)
	assert.Error(t, err)
}

func TestSendProposalFailedTargets(t *testing.T) {
	signer, proposal := newTestProposal(t)
	good := mocks.NewMockPeer("peer1:7051")
	down := mocks.NewMockPeer("peer2:7051")
	down.Error = errors.New("connection refused")
	ccErr := mocks.NewMockPeer("peer3:7051")
	ccErr.Error = status.NewFromExtractedChaincodeError(404, "not found")
	slow := mocks.NewMockPeer("peer4:7051")
	slow.Delay = time.Second

	responses, err := SendProposal(context.Background(), signer, proposal, []fab.ProposalProcessor{good, down, ccErr, slow}, 50*time.Millisecond)
	require.Error(t, err)
	require.Len(t, responses, 4)

	assert.True(t, responses[0].Endorsed())
	assert.Equal(t, int32(503), responses[1].Status)
	assert.Equal(t, "peer2:7051", responses[1].Endorser)
	assert.Contains(t, responses[1].Message, "connection refused")
	assert.Equal(t, int32(404), responses[2].Status)
	assert.Equal(t, "not found", responses[2].Message)
	assert.Equal(t, int32(503), responses[3].Status)
	assert.False(t, responses[3].Endorsed())
}

func TestSignProposalError(t *testing.T) {
	signer, proposal := newTestProposal(t)
	signer.SignError = errors.New("no key")

	_, err := SendProposal(context.Background(), signer, proposal, []fab.ProposalProcessor{mocks.NewMockPeer("peer1:7051")}, 0)
	assert.Error(t, err)
}
