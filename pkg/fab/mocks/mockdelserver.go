/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"sync"

	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
)

// MockDeliverServer is a mock peer deliver service. Every filtered stream is
// answered with the current (empty) block first and then with the blocks
// produced by Commit.
type MockDeliverServer struct {
	grpcServer
	ChannelID string

	mutex       sync.RWMutex
	height      uint64
	subscribers map[chan *pb.FilteredBlock]struct{}
	armed       int
	muted       bool
	disconnErr  error
	seekErr     error
}

// NewMockDeliverServer returns a new MockDeliverServer
func NewMockDeliverServer(channelID string) *MockDeliverServer {
	return &MockDeliverServer{
		ChannelID:   channelID,
		height:      1,
		subscribers: make(map[chan *pb.FilteredBlock]struct{}),
	}
}

// Start the mock deliver server
func (s *MockDeliverServer) Start(address string) string {
	return s.start(address, func(srv *grpc.Server) {
		pb.RegisterDeliverServer(srv, s)
	})
}

// Mute makes the peer swallow commits, as a peer lagging behind would
func (s *MockDeliverServer) Mute(muted bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.muted = muted
}

// Disconnect terminates the open streams with the given error
func (s *MockDeliverServer) Disconnect(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.disconnErr = err
	for ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, ch)
	}
}

// RejectSeek makes new streams fail right after the seek request
func (s *MockDeliverServer) RejectSeek(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.seekErr = err
}

// Armed returns the number of streams that received their first block
func (s *MockDeliverServer) Armed() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.armed
}

// Commit appends a block holding the transaction and sends it to every open stream
func (s *MockDeliverServer) Commit(txID string, code pb.TxValidationCode) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.muted {
		return
	}

	block := NewFilteredBlock(s.ChannelID, s.height, NewFilteredTx(txID, code))
	s.height++
	for ch := range s.subscribers {
		ch <- block
	}
}

// Deliver is not supported by the mock
func (s *MockDeliverServer) Deliver(srv pb.Deliver_DeliverServer) error {
	return errors.New("unfiltered delivery not supported")
}

// DeliverWithPrivateData is not supported by the mock
func (s *MockDeliverServer) DeliverWithPrivateData(srv pb.Deliver_DeliverWithPrivateDataServer) error {
	return errors.New("private data delivery not supported")
}

// DeliverFiltered delivers a stream of filtered blocks
func (s *MockDeliverServer) DeliverFiltered(srv pb.Deliver_DeliverFilteredServer) error {
	if _, err := srv.Recv(); err != nil {
		return err
	}

	ch, first, err := s.subscribe()
	if err != nil {
		return srv.Send(&pb.DeliverResponse{Type: &pb.DeliverResponse_Status{Status: common.Status_FORBIDDEN}})
	}
	defer s.unsubscribe(ch)

	if err := srv.Send(&pb.DeliverResponse{Type: &pb.DeliverResponse_FilteredBlock{FilteredBlock: first}}); err != nil {
		return err
	}

	for {
		select {
		case <-srv.Context().Done():
			return nil
		case block, ok := <-ch:
			if !ok {
				return s.disconnectErr()
			}
			if err := srv.Send(&pb.DeliverResponse{Type: &pb.DeliverResponse_FilteredBlock{FilteredBlock: block}}); err != nil {
				return err
			}
		}
	}
}

func (s *MockDeliverServer) subscribe() (chan *pb.FilteredBlock, *pb.FilteredBlock, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.seekErr != nil {
		return nil, nil, s.seekErr
	}

	ch := make(chan *pb.FilteredBlock, 100)
	s.subscribers[ch] = struct{}{}
	s.armed++
	return ch, NewFilteredBlock(s.ChannelID, s.height-1), nil
}

func (s *MockDeliverServer) unsubscribe(ch chan *pb.FilteredBlock) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *MockDeliverServer) disconnectErr() error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.disconnErr
}
