/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"fmt"
	"net"
	"sync"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

var logger = logging.NewLogger("fabgw/mocks")

// grpcServer is the lifecycle shared by the mock GRPC servers
type grpcServer struct {
	Creds credentials.TransportCredentials
	srv   *grpc.Server
	wg    sync.WaitGroup
}

func (s *grpcServer) start(address string, register func(*grpc.Server)) string {
	if s.srv != nil {
		panic("mock server already started")
	}

	// pass in TLS creds if present
	if s.Creds != nil {
		s.srv = grpc.NewServer(grpc.Creds(s.Creds))
	} else {
		s.srv = grpc.NewServer()
	}

	lis, err := net.Listen("tcp", address)
	if err != nil {
		panic(fmt.Sprintf("Error starting mock server %s", err))
	}
	addr := lis.Addr().String()

	logger.Debugf("Starting mock server [%s]", addr)
	register(s.srv)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.srv.Serve(lis); err != nil {
			logger.Debugf("mock server failed [%s]", err)
		}
	}()

	return addr
}

// Stop the mock server and wait for completion.
func (s *grpcServer) Stop() {
	if s.srv == nil {
		panic("mock server not started")
	}

	s.srv.Stop()
	s.wg.Wait()
	s.srv = nil
}
