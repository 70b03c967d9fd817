/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"context"
	"sync/atomic"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"google.golang.org/grpc"
)

// MockEndorserServer mock endorser server to process endorsement proposals.
// It answers with Status (200 by default) and Payload, or fails the call
// with ProposalError.
type MockEndorserServer struct {
	grpcServer
	Status        int32
	Message       string
	Payload       []byte
	ProposalError error
	Delay         time.Duration
	calls         int32
}

// ProcessProposal mock implementation
func (m *MockEndorserServer) ProcessProposal(ctx context.Context, proposal *pb.SignedProposal) (*pb.ProposalResponse, error) {
	atomic.AddInt32(&m.calls, 1)

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.ProposalError != nil {
		return nil, m.ProposalError
	}

	status := m.Status
	if status == 0 {
		status = 200
	}

	resp := &pb.ProposalResponse{
		Version:  1,
		Response: &pb.Response{Status: status, Message: m.Message, Payload: m.Payload},
		Payload:  NewProposalResponsePayload("", status, m.Message, m.Payload),
	}
	if status == 200 {
		resp.Endorsement = &pb.Endorsement{Endorser: []byte("endorser"), Signature: []byte("signature")}
	}
	return resp, nil
}

// Calls returns the number of proposals received
func (m *MockEndorserServer) Calls() int {
	return int(atomic.LoadInt32(&m.calls))
}

// Start the mock endorser server
func (m *MockEndorserServer) Start(address string) string {
	return m.start(address, func(srv *grpc.Server) {
		pb.RegisterEndorserServer(srv, m)
	})
}
