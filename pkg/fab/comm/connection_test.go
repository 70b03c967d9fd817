/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestConnection(t *testing.T) {
	addr, stop := startServer(t)
	defer stop()

	cc := NewCachingConnector(time.Second, time.Minute)
	defer cc.Close()

	_, err := NewConnection(cc, "")
	assert.Error(t, err)

	conn, err := NewConnection(cc, "grpc://"+addr, WithConnectTimeout(5*time.Second))
	require.NoError(t, err)
	assert.False(t, conn.Closed())
	assert.NotNil(t, conn.ClientConn())
	assert.Equal(t, "grpc://"+addr, conn.URL())

	conn.Close()
	assert.True(t, conn.Closed())

	// Calling close again should be ignored
	conn.Close()
}

func TestConnectionWithCancelledParent(t *testing.T) {
	cc := NewCachingConnector(time.Second, time.Minute)
	defer cc.Close()

	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()

	conn, err := NewConnection(cc, "grpc://localhost:8978", WithParentContext(reqCtx))
	require.Error(t, err)
	assert.Nil(t, conn)
}

func TestStreamConnection(t *testing.T) {
	addr, stop := startServer(t)
	defer stop()

	cc := NewCachingConnector(time.Second, time.Minute)
	defer cc.Close()

	cancelled := false
	provider := func(conn *grpc.ClientConn) (grpc.ClientStream, func(), error) {
		ctx, cancel := context.WithCancel(context.Background())
		stream, err := conn.NewStream(ctx, &grpc.StreamDesc{ClientStreams: true, ServerStreams: true}, "/test.Service/Stream")
		return stream, func() { cancelled = true; cancel() }, err
	}

	conn, err := NewStreamConnection(cc, provider, "grpc://"+addr, WithConnectTimeout(5*time.Second))
	require.NoError(t, err)
	assert.NotNil(t, conn.Stream())

	conn.Close()
	assert.True(t, cancelled)
	assert.True(t, conn.Closed())
}

func TestDialOptions(t *testing.T) {
	p := defaultParams()
	opts, err := newDialOpts("grpcs://peer0:7051", p)
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	p.keepAliveParams.Time = time.Minute
	opts, err = newDialOpts("grpc://peer0:7051", p)
	require.NoError(t, err)
	assert.Len(t, opts, 3)
}

func TestOptsFromGRPCOptions(t *testing.T) {
	p := defaultParams()
	opts := OptsFromGRPCOptions(map[string]interface{}{
		"ssl-target-name-override": "peer0.org1.example.com",
		"keep-alive-time":          "20s",
		"keep-alive-timeout":       "10s",
		"keep-alive-permit":        false,
		"fail-fast":                false,
		"allow-insecure":           true,
	}, nil)
	for _, opt := range opts {
		opt(p)
	}

	assert.Equal(t, "peer0.org1.example.com", p.hostOverride)
	assert.Equal(t, 20*time.Second, p.keepAliveParams.Time)
	assert.Equal(t, 10*time.Second, p.keepAliveParams.Timeout)
	assert.False(t, p.failFast)
	assert.True(t, p.insecure)
}
