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

// CommitBehavior decides what a MockEventService does with a committed transaction
type CommitBehavior int

const (
	// Report sends the commit with the configured validation code
	Report CommitBehavior = iota
	// Silent never reports, as a lagging peer would
	Silent
	// Drop closes the listener without an event, as a broken stream would
	Drop
)

// MockEventService is an in-memory fab.EventService
type MockEventService struct {
	MockURL       string
	Code          pb.TxValidationCode
	Behavior      CommitBehavior
	RegisterError error
	ArmDelay      time.Duration
	Journal       *Journal

	lock        sync.Mutex
	regs        map[*txReg]struct{}
	blockNumber uint64
	armed       int
	unregisters int
}

type txReg struct {
	txID    string
	eventch chan *fab.TxStatusEvent
}

// NewMockEventService returns a mock event service reporting VALID commits
func NewMockEventService(url string) *MockEventService {
	return &MockEventService{
		MockURL: url,
		Code:    pb.TxValidationCode_VALID,
		regs:    make(map[*txReg]struct{}),
	}
}

// URL returns the mock peer URL
func (m *MockEventService) URL() string {
	return m.MockURL
}

// RegisterTxStatusEvent arms a listener for the transaction
func (m *MockEventService) RegisterTxStatusEvent(ctx reqContext.Context, txID string) (fab.Registration, <-chan *fab.TxStatusEvent, error) {
	if m.ArmDelay > 0 {
		select {
		case <-time.After(m.ArmDelay):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}

	if m.RegisterError != nil {
		return nil, nil, m.RegisterError
	}

	reg := &txReg{txID: txID, eventch: make(chan *fab.TxStatusEvent, 1)}

	m.lock.Lock()
	m.regs[reg] = struct{}{}
	m.armed++
	m.lock.Unlock()

	m.Journal.Record("arm:" + m.MockURL)

	return reg, reg.eventch, nil
}

// Unregister closes the listener if it has not fired yet
func (m *MockEventService) Unregister(reg fab.Registration) {
	r, ok := reg.(*txReg)
	if !ok {
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	m.unregisters++
	if _, ok := m.regs[r]; ok {
		delete(m.regs, r)
		close(r.eventch)
	}
}

// Commit reports the transaction to the listeners registered for it
func (m *MockEventService) Commit(txID string) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.Behavior == Silent {
		return
	}

	m.blockNumber++
	for r := range m.regs {
		if r.txID != txID {
			continue
		}
		if m.Behavior == Report {
			r.eventch <- &fab.TxStatusEvent{
				TxID:             txID,
				TxValidationCode: m.Code,
				BlockNumber:      m.blockNumber,
				SourceURL:        m.MockURL,
			}
		}
		delete(m.regs, r)
		close(r.eventch)
	}
}

// Armed returns the number of listeners armed so far
func (m *MockEventService) Armed() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.armed
}

// Active returns the number of listeners neither fired nor unregistered
func (m *MockEventService) Active() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.regs)
}

// Unregisters returns the number of Unregister calls
func (m *MockEventService) Unregisters() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.unregisters
}
