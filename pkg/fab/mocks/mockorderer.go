/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	reqContext "context"
	"sync"

	"github.com/hyperledger/fabric-protos-go/common"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/status"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
)

// MockOrderer is an in-memory fab.Orderer. Accepted transactions are
// handed to every committer in Committers, the way an ordering service
// cuts blocks that peers then commit.
type MockOrderer struct {
	OrdererURL     string
	Status         common.Status
	BroadcastError error
	Committers     []*MockEventService
	Journal        *Journal
	// Blocks is returned by SendDeliver
	Blocks []*common.Block

	lock      sync.Mutex
	envelopes []*fab.SignedEnvelope
	txIDs     []string
}

// NewMockOrderer returns an orderer accepting every envelope
func NewMockOrderer(url string, committers ...*MockEventService) *MockOrderer {
	return &MockOrderer{OrdererURL: url, Status: common.Status_SUCCESS, Committers: committers}
}

// URL returns the URL of the mock Orderer
func (o *MockOrderer) URL() string {
	return o.OrdererURL
}

// Envelopes returns the envelopes broadcast so far
func (o *MockOrderer) Envelopes() []*fab.SignedEnvelope {
	o.lock.Lock()
	defer o.lock.Unlock()
	return append([]*fab.SignedEnvelope(nil), o.envelopes...)
}

// TxIDs returns the IDs of the transactions broadcast so far
func (o *MockOrderer) TxIDs() []string {
	o.lock.Lock()
	defer o.lock.Unlock()
	return append([]string(nil), o.txIDs...)
}

// SendBroadcast records the envelope and answers with the configured status
func (o *MockOrderer) SendBroadcast(ctx reqContext.Context, envelope *fab.SignedEnvelope) (*common.Status, error) {
	_, txID, _ := TxIDFromEnvelope(envelope.Payload)

	o.lock.Lock()
	o.envelopes = append(o.envelopes, envelope)
	o.txIDs = append(o.txIDs, txID)
	o.lock.Unlock()

	o.Journal.Record("broadcast:" + o.OrdererURL)

	if o.BroadcastError != nil {
		return nil, o.BroadcastError
	}

	s := o.Status
	if s != common.Status_SUCCESS {
		return &s, status.New(status.OrdererServerStatus, int32(s), "rejected by "+o.OrdererURL, nil)
	}
	for _, c := range o.Committers {
		c.Commit(txID)
	}
	return &s, nil
}

// SendDeliver returns the configured blocks
func (o *MockOrderer) SendDeliver(ctx reqContext.Context, envelope *fab.SignedEnvelope) (chan *common.Block, chan error) {
	blocks := make(chan *common.Block, len(o.Blocks))
	errs := make(chan error, 1)
	for _, b := range o.Blocks {
		blocks <- b
	}
	close(blocks)
	return blocks, errs
}
