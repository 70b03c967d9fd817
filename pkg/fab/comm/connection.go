/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"sync/atomic"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/options"
	"github.com/hyperledger/fabric-rest-gateway/pkg/core/config/endpoint"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

var logger = logging.NewLogger("fabgw/comm")

// Dialer hands out GRPC connections, which must be given back with ReleaseConn
type Dialer interface {
	DialContext(ctx context.Context, target string, opts ...grpc.DialOption) (*grpc.ClientConn, error)
	ReleaseConn(conn *grpc.ClientConn)
}

// GRPCConnection is a GRPC client connection obtained from a Dialer
type GRPCConnection struct {
	url    string
	conn   *grpc.ClientConn
	dialer Dialer
	done   int32
}

// NewConnection dials the given URL. A grpcs:// URL is dialed with TLS; one
// without protocol is dialed with TLS unless WithInsecure is given.
func NewConnection(dialer Dialer, url string, opts ...options.Opt) (*GRPCConnection, error) {
	if url == "" {
		return nil, errors.New("server URL not specified")
	}

	params := defaultParams()
	options.Apply(params, opts)

	dialOpts, err := newDialOpts(url, params)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(params.parentContext, params.connectTimeout)
	defer cancel()

	conn, err := dialer.DialContext(ctx, endpoint.ToAddress(url), dialOpts...)
	if err != nil {
		return nil, errors.Wrapf(err, "could not connect to %s", url)
	}

	return &GRPCConnection{
		url:    url,
		conn:   conn,
		dialer: dialer,
	}, nil
}

// URL returns the URL the connection was dialed with
func (c *GRPCConnection) URL() string {
	return c.url
}

// ClientConn returns the underlying GRPC connection
func (c *GRPCConnection) ClientConn() *grpc.ClientConn {
	return c.conn
}

// Close releases the connection back to its dialer
func (c *GRPCConnection) Close() {
	if !c.setClosed() {
		logger.Debugf("Already closed")
		return
	}
	c.dialer.ReleaseConn(c.conn)
}

// Closed returns true if the connection has been closed
func (c *GRPCConnection) Closed() bool {
	return atomic.LoadInt32(&c.done) == 1
}

func (c *GRPCConnection) setClosed() bool {
	return atomic.CompareAndSwapInt32(&c.done, 0, 1)
}

func newDialOpts(url string, params *params) ([]grpc.DialOption, error) {
	var dialOpts []grpc.DialOption

	if params.keepAliveParams.Time > 0 || params.keepAliveParams.Timeout > 0 {
		dialOpts = append(dialOpts, grpc.WithKeepaliveParams(params.keepAliveParams))
	}

	dialOpts = append(dialOpts, grpc.WithDefaultCallOptions(
		grpc.WaitForReady(!params.failFast),
		grpc.MaxCallRecvMsgSize(maxMessageSize),
		grpc.MaxCallSendMsgSize(maxMessageSize),
	))

	if endpoint.AttemptSecured(url, params.insecure) {
		tlsConfig := newTLSConfig(params.certificate, params.hostOverride)
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
		logger.Debugf("Creating a secure connection to [%s] with TLS HostOverride [%s]", url, params.hostOverride)
	} else {
		logger.Debugf("Creating an insecure connection [%s]", url)
		dialOpts = append(dialOpts, grpc.WithInsecure())
	}

	return dialOpts, nil
}

func newTLSConfig(cert *x509.Certificate, serverName string) *tls.Config {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if cert != nil {
		pool.AddCert(cert)
	}
	return &tls.Config{RootCAs: pool, ServerName: serverName}
}
