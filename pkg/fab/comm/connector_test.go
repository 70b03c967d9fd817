/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
)

func startServer(t *testing.T) (string, func()) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	go srv.Serve(lis) // nolint: errcheck
	return lis.Addr().String(), srv.Stop
}

func TestConnectorReusesConnections(t *testing.T) {
	addr, stop := startServer(t)
	defer stop()

	cc := NewCachingConnector(time.Second, time.Minute)
	defer cc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c1, err := cc.DialContext(ctx, addr, grpc.WithInsecure())
	require.NoError(t, err)
	c2, err := cc.DialContext(ctx, addr, grpc.WithInsecure())
	require.NoError(t, err)
	assert.True(t, c1 == c2, "expected the cached connection")

	cc.ReleaseConn(c1)
	cc.ReleaseConn(c2)
	assert.Equal(t, connectivity.Ready, c1.GetState())
}

func TestConnectorClosesIdleConnections(t *testing.T) {
	addr, stop := startServer(t)
	defer stop()

	cc := NewCachingConnector(10*time.Millisecond, 20*time.Millisecond)
	defer cc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := cc.DialContext(ctx, addr, grpc.WithInsecure())
	require.NoError(t, err)
	cc.ReleaseConn(conn)

	assert.Eventually(t, func() bool {
		return conn.GetState() == connectivity.Shutdown
	}, 2*time.Second, 10*time.Millisecond)

	conn2, err := cc.DialContext(ctx, addr, grpc.WithInsecure())
	require.NoError(t, err)
	assert.False(t, conn == conn2)
	cc.ReleaseConn(conn2)
}

func TestConnectorClose(t *testing.T) {
	addr, stop := startServer(t)
	defer stop()

	cc := NewCachingConnector(time.Second, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := cc.DialContext(ctx, addr, grpc.WithInsecure())
	require.NoError(t, err)

	cc.Close()
	assert.Equal(t, connectivity.Shutdown, conn.GetState())

	_, err = cc.DialContext(ctx, addr, grpc.WithInsecure())
	assert.Error(t, err)

	// closing twice is tolerated
	cc.Close()
}

func TestConnectorDialTimeout(t *testing.T) {
	cc := NewCachingConnector(time.Second, time.Minute)
	defer cc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := cc.DialContext(ctx, "127.0.0.1:1", grpc.WithInsecure())
	assert.Error(t, err)
}
