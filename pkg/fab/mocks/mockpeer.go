/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	reqContext "context"
	"sync"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
)

// MockPeer is an in-memory fab.Peer
type MockPeer struct {
	lock                 sync.Mutex
	Error                error
	MockURL              string
	MockMSP              string
	Status               int32
	ResponseMessage      string
	Payload              []byte
	Delay                time.Duration
	Journal              *Journal
	processProposalCalls int
	txIDs                []string
}

// NewMockPeer creates basic mock peer
func NewMockPeer(url string) *MockPeer {
	return &MockPeer{MockURL: url, MockMSP: "Org1MSP", Status: 200}
}

// MSPID gets the Peer mspID.
func (p *MockPeer) MSPID() string {
	return p.MockMSP
}

// URL returns the mock peer's mock URL
func (p *MockPeer) URL() string {
	return p.MockURL
}

// ProcessProposalCalls returns the number of proposals received
func (p *MockPeer) ProcessProposalCalls() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.processProposalCalls
}

// TxIDs returns the IDs of the transactions proposed to the peer
func (p *MockPeer) TxIDs() []string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]string(nil), p.txIDs...)
}

// ProcessTransactionProposal returns the configured response without sending anything anywhere
func (p *MockPeer) ProcessTransactionProposal(ctx reqContext.Context, tp fab.ProcessProposalRequest) (*fab.TransactionProposalResponse, error) {
	p.lock.Lock()
	p.processProposalCalls++
	if txID, err := ProposalTxID(tp.SignedProposal); err == nil {
		p.txIDs = append(p.txIDs, txID)
	}
	p.lock.Unlock()

	p.Journal.Record("endorse:" + p.MockURL)

	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return &fab.TransactionProposalResponse{Endorser: p.MockURL}, ctx.Err()
		}
	}

	if p.Error != nil {
		return &fab.TransactionProposalResponse{Endorser: p.MockURL}, p.Error
	}

	resp := &pb.ProposalResponse{
		Response: &pb.Response{
			Message: p.ResponseMessage,
			Status:  p.Status,
			Payload: p.Payload,
		},
		Payload: NewProposalResponsePayload("", p.Status, p.ResponseMessage, p.Payload),
	}
	if p.Status == 200 {
		resp.Endorsement = &pb.Endorsement{Endorser: []byte(p.MockURL), Signature: []byte("signature")}
	}

	return &fab.TransactionProposalResponse{
		Endorser:         p.MockURL,
		Status:           p.Status,
		ChaincodeStatus:  p.Status,
		Message:          p.ResponseMessage,
		ProposalResponse: resp,
	}, nil
}
