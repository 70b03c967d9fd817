/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	"context"
	"testing"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/status"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/comm"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

func startPeer(t *testing.T, srv *mocks.MockEndorserServer) (*Peer, *comm.CachingConnector) {
	addr := srv.Start("127.0.0.1:0")
	connector := comm.NewCachingConnector(time.Second, time.Minute)
	p, err := New(WithURL("grpc://"+addr), WithMSPID("Org1MSP"), WithDialer(connector), WithConnectTimeout(5*time.Second))
	require.NoError(t, err)
	return p, connector
}

func TestNewPeer(t *testing.T) {
	_, err := New()
	assert.Error(t, err)

	_, err = New(WithURL("grpc://localhost:7051"))
	assert.Error(t, err, "a dialer is required")

	connector := comm.NewCachingConnector(time.Second, time.Minute)
	defer connector.Close()

	p, err := New(FromPeerConfig(&fab.NetworkPeer{
		Name:       "peer0.org1.example.com",
		MSPID:      "Org1MSP",
		PeerConfig: fab.PeerConfig{URL: "grpcs://localhost:7051"},
	}), WithDialer(connector))
	require.NoError(t, err)
	assert.Equal(t, "peer0.org1.example.com", p.Name())
	assert.Equal(t, "Org1MSP", p.MSPID())
	assert.Equal(t, "grpcs://localhost:7051", p.URL())
}

func TestProcessProposalEndorsed(t *testing.T) {
	srv := &mocks.MockEndorserServer{Payload: []byte("result")}
	p, connector := startPeer(t, srv)
	defer srv.Stop()
	defer connector.Close()

	resp, err := p.ProcessTransactionProposal(context.Background(), fab.ProcessProposalRequest{SignedProposal: &pb.SignedProposal{}})
	require.NoError(t, err)
	assert.True(t, resp.Endorsed())
	assert.Equal(t, int32(200), resp.ChaincodeStatus)
	assert.Equal(t, []byte("result"), resp.GetResponse().GetPayload())
	assert.Equal(t, p.URL(), resp.Endorser)
	assert.Equal(t, 1, srv.Calls())
}

func TestProcessProposalRejected(t *testing.T) {
	srv := &mocks.MockEndorserServer{Status: 500, Message: "chaincode failed"}
	p, connector := startPeer(t, srv)
	defer srv.Stop()
	defer connector.Close()

	resp, err := p.ProcessTransactionProposal(context.Background(), fab.ProcessProposalRequest{SignedProposal: &pb.SignedProposal{}})
	require.NoError(t, err)
	assert.False(t, resp.Endorsed())
	assert.Equal(t, int32(500), resp.Status)
	assert.Equal(t, "chaincode failed", resp.Message)
}

func TestProcessProposalGRPCError(t *testing.T) {
	srv := &mocks.MockEndorserServer{ProposalError: grpcstatus.Error(codes.Unavailable, "try later")}
	p, connector := startPeer(t, srv)
	defer srv.Stop()
	defer connector.Close()

	resp, err := p.ProcessTransactionProposal(context.Background(), fab.ProcessProposalRequest{SignedProposal: &pb.SignedProposal{}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, p.URL(), resp.Endorser)

	s, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, status.GRPCTransportStatus, s.Group)
	assert.Equal(t, int32(codes.Unavailable), s.Code)
}

func TestProcessProposalChaincodeError(t *testing.T) {
	srv := &mocks.MockEndorserServer{ProposalError: grpcstatus.Error(codes.Unknown, "chaincode error (status: 404, message: not found)")}
	p, connector := startPeer(t, srv)
	defer srv.Stop()
	defer connector.Close()

	_, err := p.ProcessTransactionProposal(context.Background(), fab.ProcessProposalRequest{SignedProposal: &pb.SignedProposal{}})
	s, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, status.ChaincodeStatus, s.Group)
	assert.Equal(t, int32(404), s.Code)
	assert.Equal(t, "not found", s.Message)
}

func TestProcessProposalUnreachable(t *testing.T) {
	connector := comm.NewCachingConnector(time.Second, time.Minute)
	defer connector.Close()

	p, err := New(WithURL("grpc://127.0.0.1:1"), WithDialer(connector), WithConnectTimeout(100*time.Millisecond))
	require.NoError(t, err)

	resp, err := p.ProcessTransactionProposal(context.Background(), fab.ProcessProposalRequest{SignedProposal: &pb.SignedProposal{}})
	require.Error(t, err)
	assert.False(t, resp.Endorsed())

	s, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, status.EndorserClientStatus, s.Group)
	assert.Equal(t, status.ConnectionFailed.ToInt32(), s.Code)
}

func TestExtractChaincodeError(t *testing.T) {
	code, msg, err := extractChaincodeError(grpcstatus.New(codes.Unknown, "(status: 500, message: boom)"))
	require.NoError(t, err)
	assert.Equal(t, 500, code)
	assert.Equal(t, "boom", msg)

	_, _, err = extractChaincodeError(grpcstatus.New(codes.Internal, "(status: 500, message: boom)"))
	assert.Error(t, err)

	_, _, err = extractChaincodeError(grpcstatus.New(codes.Unknown, "no structure"))
	assert.Error(t, err)
}
