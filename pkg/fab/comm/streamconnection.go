/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"sync"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/options"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
)

// StreamProvider creates a GRPC stream along with the function cancelling it
type StreamProvider func(conn *grpc.ClientConn) (grpc.ClientStream, func(), error)

// StreamConnection manages a GRPC connection and one client stream on it
type StreamConnection struct {
	*GRPCConnection
	stream grpc.ClientStream
	cancel func()
	lock   sync.Mutex
}

// NewStreamConnection dials the URL and opens a stream on the connection
func NewStreamConnection(dialer Dialer, streamProvider StreamProvider, url string, opts ...options.Opt) (*StreamConnection, error) {
	conn, err := NewConnection(dialer, url, opts...)
	if err != nil {
		return nil, err
	}

	stream, cancel, err := streamProvider(conn.conn)
	if err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "could not create stream to %s", url)
	}

	if stream == nil {
		conn.Close()
		return nil, errors.New("unexpected nil stream received from provider")
	}

	return &StreamConnection{
		GRPCConnection: conn,
		stream:         stream,
		cancel:         cancel,
	}, nil
}

// Close cancels the stream and releases the connection
func (c *StreamConnection) Close() {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.Closed() {
		return
	}

	logger.Debug("Closing stream....")

	c.cancel()

	if err := c.stream.CloseSend(); err != nil {
		logger.Warnf("error closing GRPC stream: %s", err)
	}

	c.GRPCConnection.Close()
}

// Stream returns the GRPC stream
func (c *StreamConnection) Stream() grpc.ClientStream {
	return c.stream
}
