/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"io"
	"sync"

	"github.com/hyperledger/fabric-protos-go/common"
	po "github.com/hyperledger/fabric-protos-go/orderer"
	"google.golang.org/grpc"
)

// MockBroadcastServer mock ordering service. Broadcast answers with
// BroadcastStatus (SUCCESS by default) and reports accepted transactions to
// OnBroadcast; Deliver answers with DeliverBlock followed by a SUCCESS status.
type MockBroadcastServer struct {
	grpcServer
	BroadcastStatus common.Status
	BroadcastError  error
	DeliverError    error
	DeliverBlock    *common.Block
	OnBroadcast     func(channelID, txID string)

	mutex    sync.Mutex
	received []string
}

// Broadcast mock broadcast
func (m *MockBroadcastServer) Broadcast(server po.AtomicBroadcast_BroadcastServer) error {
	for {
		env, err := server.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if m.BroadcastError != nil {
			return m.BroadcastError
		}

		channelID, txID, err := TxIDFromEnvelope(env.Payload)
		if err != nil {
			return err
		}

		status := m.BroadcastStatus
		if status == common.Status_UNKNOWN {
			status = common.Status_SUCCESS
		}

		if status == common.Status_SUCCESS {
			m.mutex.Lock()
			m.received = append(m.received, txID)
			m.mutex.Unlock()
		}

		if err := server.Send(&po.BroadcastResponse{Status: status}); err != nil {
			return err
		}

		if status == common.Status_SUCCESS && m.OnBroadcast != nil {
			m.OnBroadcast(channelID, txID)
		}
	}
}

// Received returns the IDs of the accepted transactions in order
func (m *MockBroadcastServer) Received() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]string(nil), m.received...)
}

// Deliver mock deliver
func (m *MockBroadcastServer) Deliver(server po.AtomicBroadcast_DeliverServer) error {
	if _, err := server.Recv(); err != nil {
		return err
	}

	if m.DeliverError != nil {
		return m.DeliverError
	}

	if m.DeliverBlock == nil {
		return server.Send(&po.DeliverResponse{Type: &po.DeliverResponse_Status{Status: common.Status_NOT_FOUND}})
	}

	if err := server.Send(&po.DeliverResponse{Type: &po.DeliverResponse_Block{Block: m.DeliverBlock}}); err != nil {
		return err
	}
	return server.Send(&po.DeliverResponse{Type: &po.DeliverResponse_Status{Status: common.Status_SUCCESS}})
}

// Start the mock broadcast server
func (m *MockBroadcastServer) Start(address string) string {
	return m.start(address, func(srv *grpc.Server) {
		po.RegisterAtomicBroadcastServer(srv, m)
	})
}
