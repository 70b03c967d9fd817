/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
)

const (
	connShutdownTimeout = 50 * time.Millisecond

	// DefaultSweepTime is how often idle connections are looked for
	DefaultSweepTime = 5 * time.Second
	// DefaultIdleTime is how long a connection may stay unused before it is closed
	DefaultIdleTime = 30 * time.Second
)

// CachingConnector caches GRPC connections per target. A connection is
// shared by every caller dialing the same target; it is closed once it has
// not been in use for longer than idleTime, or when it enters the shutdown
// state. The connector is unusable after Close.
type CachingConnector struct {
	lock      sync.Mutex
	conns     map[string]*cachedConn
	index     map[*grpc.ClientConn]*cachedConn
	idleTime  time.Duration
	done      chan struct{}
	waitgroup sync.WaitGroup
	closed    bool
}

type cachedConn struct {
	target    string
	conn      *grpc.ClientConn
	open      int
	lastClose time.Time
}

// NewCachingConnector creates a GRPC connection cache governed by sweepTime and idleTime
func NewCachingConnector(sweepTime time.Duration, idleTime time.Duration) *CachingConnector {
	cc := &CachingConnector{
		conns:    make(map[string]*cachedConn),
		index:    make(map[*grpc.ClientConn]*cachedConn),
		idleTime: idleTime,
		done:     make(chan struct{}),
	}

	cc.waitgroup.Add(1)
	go cc.janitor(sweepTime)

	return cc
}

// DialContext is a wrapper for grpc.DialContext where connections are cached.
// It returns once the connection is ready or ctx is done.
func (cc *CachingConnector) DialContext(ctx context.Context, target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	logger.Debugf("DialContext: %s", target)

	c, err := cc.loadOrCreate(ctx, target, opts...)
	if err != nil {
		return nil, errors.WithMessage(err, "connection creation failed")
	}

	if err := waitConn(ctx, c.conn, connectivity.Ready); err != nil {
		cc.ReleaseConn(c.conn)
		return nil, errors.Errorf("dialing connection timed out [%s]", target)
	}
	return c.conn, nil
}

// ReleaseConn notifies the cache that the connection is no longer in use
func (cc *CachingConnector) ReleaseConn(conn *grpc.ClientConn) {
	cc.lock.Lock()
	defer cc.lock.Unlock()

	if cc.closed {
		logger.Debugf("Releasing connection after connector closed")
		closeConn(conn)
		return
	}

	c, ok := cc.index[conn]
	if !ok {
		logger.Warnf("connection not found [%p]", conn)
		return
	}
	logger.Debugf("ReleaseConn [%s]", c.target)

	if c.open > 0 {
		c.open--
		c.lastClose = time.Now()
	}
}

// Close stops the janitor and closes every cached connection
func (cc *CachingConnector) Close() {
	cc.lock.Lock()
	if cc.closed {
		cc.lock.Unlock()
		logger.Warn("Trying to close connector after already closed")
		return
	}
	cc.closed = true
	close(cc.done)
	cc.lock.Unlock()

	cc.waitgroup.Wait()

	cc.lock.Lock()
	defer cc.lock.Unlock()
	for target, c := range cc.conns {
		logger.Debugf("closing connection [%s]", target)
		closeConn(c.conn)
	}
	cc.conns = make(map[string]*cachedConn)
	cc.index = make(map[*grpc.ClientConn]*cachedConn)
}

func (cc *CachingConnector) loadOrCreate(ctx context.Context, target string, opts ...grpc.DialOption) (*cachedConn, error) {
	cc.lock.Lock()
	defer cc.lock.Unlock()

	if cc.closed {
		return nil, errors.New("connector is closed")
	}

	if c, ok := cc.conns[target]; ok {
		if c.conn.GetState() != connectivity.Shutdown {
			logger.Debugf("using cached connection [%s]", target)
			c.open++
			return c, nil
		}
		cc.remove(c)
	}

	logger.Debugf("creating connection [%s]", target)
	conn, err := grpc.DialContext(ctx, target, opts...)
	if err != nil {
		return nil, errors.WithMessage(err, "dialing failed")
	}

	c := &cachedConn{target: target, conn: conn, open: 1}
	cc.conns[target] = c
	cc.index[conn] = c
	return c, nil
}

func (cc *CachingConnector) remove(c *cachedConn) {
	delete(cc.conns, c.target)
	delete(cc.index, c.conn)
}

func (cc *CachingConnector) janitor(sweepTime time.Duration) {
	defer cc.waitgroup.Done()

	ticker := time.NewTicker(sweepTime)
	defer ticker.Stop()

	for {
		select {
		case <-cc.done:
			return
		case <-ticker.C:
			cc.sweep()
		}
	}
}

func (cc *CachingConnector) sweep() {
	cc.lock.Lock()
	defer cc.lock.Unlock()

	now := time.Now()
	for _, c := range cc.conns {
		switch {
		case c.conn.GetState() == connectivity.Shutdown:
			logger.Debugf("connection already closed [%s]", c.target)
			cc.remove(c)
		case c.open == 0 && now.After(c.lastClose.Add(cc.idleTime)):
			logger.Debugf("connection janitor closing connection [%s]", c.target)
			cc.remove(c)
			closeConn(c.conn)
		}
	}
}

func waitConn(ctx context.Context, conn *grpc.ClientConn, targetState connectivity.State) error {
	for {
		state := conn.GetState()
		if state == targetState {
			return nil
		}
		if !conn.WaitForStateChange(ctx, state) {
			return errors.Wrap(ctx.Err(), "waiting for connection failed")
		}
	}
}

func closeConn(conn *grpc.ClientConn) {
	if err := conn.Close(); err != nil {
		logger.Debugf("unable to close connection [%s]", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connShutdownTimeout)
	defer cancel()
	if err := waitConn(ctx, conn, connectivity.Shutdown); err != nil {
		logger.Debugf("unable to wait for connection close [%s]", err)
	}
}
