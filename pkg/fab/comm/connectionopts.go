/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"context"
	"crypto/x509"
	"time"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/options"
	"github.com/spf13/cast"
	"google.golang.org/grpc/keepalive"
)

const (
	defaultConnectTimeout = 3 * time.Second
	maxMessageSize        = 100 * 1024 * 1024
)

type params struct {
	hostOverride    string
	certificate     *x509.Certificate
	keepAliveParams keepalive.ClientParameters
	failFast        bool
	insecure        bool
	connectTimeout  time.Duration
	parentContext   context.Context
}

func defaultParams() *params {
	return &params{
		failFast:       true,
		connectTimeout: defaultConnectTimeout,
		parentContext:  context.Background(),
	}
}

func (p *params) dial() *params {
	return p
}

type dialParams interface {
	dial() *params
}

// dialOpt turns a change of the dial parameters into an option; parameter
// sets of other components ignore it
func dialOpt(apply func(p *params)) options.Opt {
	return func(p options.Params) {
		if dp, ok := p.(dialParams); ok {
			apply(dp.dial())
		}
	}
}

// WithHostOverride sets the host name that will be used to resolve the TLS certificate
func WithHostOverride(value string) options.Opt {
	return dialOpt(func(p *params) {
		logger.Debugf("HostOverride: %s", value)
		p.hostOverride = value
	})
}

// WithCertificate sets the X509 CA certificate used to verify the TLS server
func WithCertificate(value *x509.Certificate) options.Opt {
	return dialOpt(func(p *params) {
		if value != nil {
			logger.Debugf("TLS CA certificate [subject: %s, serial: %s]", value.Subject, value.SerialNumber)
		}
		p.certificate = value
	})
}

// WithKeepAliveParams sets the GRPC keep-alive parameters
func WithKeepAliveParams(value keepalive.ClientParameters) options.Opt {
	return dialOpt(func(p *params) { p.keepAliveParams = value })
}

// WithFailFast makes calls fail at once while the connection is not ready
func WithFailFast(value bool) options.Opt {
	return dialOpt(func(p *params) { p.failFast = value })
}

// WithConnectTimeout bounds dialing; zero keeps the default
func WithConnectTimeout(value time.Duration) options.Opt {
	return dialOpt(func(p *params) {
		if value > 0 {
			p.connectTimeout = value
		}
	})
}

// WithParentContext sets the parent context the connection timeout derives from
func WithParentContext(value context.Context) options.Opt {
	return dialOpt(func(p *params) {
		if value != nil {
			p.parentContext = value
		}
	})
}

// WithInsecure dials URLs without protocol in plaintext
func WithInsecure() options.Opt {
	return dialOpt(func(p *params) { p.insecure = true })
}

// OptsFromGRPCOptions returns connection options for the grpcOptions section
// of a peer or orderer along with its TLS CA certificate
func OptsFromGRPCOptions(grpcOptions map[string]interface{}, tlsCACert *x509.Certificate) []options.Opt {
	opts := []options.Opt{
		WithHostOverride(cast.ToString(grpcOptions["ssl-target-name-override"])),
		WithFailFast(cast.ToBool(grpcOptions["fail-fast"])),
		WithKeepAliveParams(keepAliveParams(grpcOptions)),
		WithCertificate(tlsCACert),
	}
	if cast.ToBool(grpcOptions["allow-insecure"]) {
		opts = append(opts, WithInsecure())
	}
	return opts
}

// keepAliveParams reads keep-alive-time, keep-alive-timeout and
// keep-alive-permit; cast yields zero values for absent keys
func keepAliveParams(grpcOptions map[string]interface{}) keepalive.ClientParameters {
	return keepalive.ClientParameters{
		Time:                cast.ToDuration(grpcOptions["keep-alive-time"]),
		Timeout:             cast.ToDuration(grpcOptions["keep-alive-timeout"]),
		PermitWithoutStream: cast.ToBool(grpcOptions["keep-alive-permit"]),
	}
}
