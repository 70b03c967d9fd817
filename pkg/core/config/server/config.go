/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package server reads the process level sections of the configuration:
// the HTTP server, metrics, logging and the identities the gateway acts as.
package server

import (
	"strings"
	"time"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/retry"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/core"
	"github.com/hyperledger/fabric-rest-gateway/pkg/core/config/lookup"
	fabImpl "github.com/hyperledger/fabric-rest-gateway/pkg/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/rest"
	"github.com/pkg/errors"
)

const (
	defaultListenAddress = "0.0.0.0:4000"
	defaultReadTimeout   = 30 * time.Second
	defaultWriteTimeout  = 5 * time.Minute
	// writeTimeoutGrace leaves room to encode the verdict once the longest
	// operation gives up
	writeTimeoutGrace    = 15 * time.Second
	defaultUser          = "User1"
	defaultAdmin         = "Admin"

	// PrometheusProvider exposes metrics under GET /metrics
	PrometheusProvider = "prometheus"
	// DisabledProvider records nothing
	DisabledProvider = "disabled"
)

var logger = logging.NewLogger("fabgw/config")

// Config holds everything outside the network description
type Config struct {
	Server  rest.Config
	Metrics MetricsConfig
	Logging LoggingConfig
	Gateway GatewayConfig
}

// MetricsConfig selects the metrics provider
type MetricsConfig struct {
	// Provider is prometheus or disabled
	Provider string
}

// LoggingConfig selects the log encoding
type LoggingConfig struct {
	// Format is console or json
	Format string
}

// GatewayConfig names the identities requests are signed with
type GatewayConfig struct {
	// User signs transactions of every organization
	User string
	// Admin signs channel and chaincode administration
	Admin string
	// Retry re-runs transactions that failed endorsement; disabled when
	// Attempts is zero
	Retry retry.Opts
}

// ConfigFromBackend reads the configuration from the given backends, the
// first backend holding a key wins
func ConfigFromBackend(coreBackend ...core.ConfigBackend) (*Config, error) {
	backend := lookup.New(coreBackend...)

	c := &Config{}
	c.loadServer(backend, fabImpl.LongestOperation(coreBackend...))

	c.Metrics.Provider = strings.ToLower(backend.GetString("metrics.provider"))
	switch c.Metrics.Provider {
	case "":
		c.Metrics.Provider = DisabledProvider
	case PrometheusProvider, DisabledProvider:
	default:
		return nil, errors.Errorf("unsupported metrics provider: %s", c.Metrics.Provider)
	}

	c.Logging.Format = backend.GetLowerString("client.logging.format")

	if err := c.loadGateway(backend); err != nil {
		return nil, errors.WithMessage(err, "gateway configuration load failed")
	}
	return c, nil
}

// loadServer reads the HTTP server section. The write timeout never cuts
// off a response before the longest operation has reached its verdict.
func (c *Config) loadServer(backend *lookup.ConfigLookup, longest time.Duration) {
	s := &c.Server
	s.ListenAddress = backend.GetString("server.listenAddress")
	if s.ListenAddress == "" {
		s.ListenAddress = defaultListenAddress
	}
	s.CORS.AllowedOrigins = backend.GetStringSlice("server.cors.allowedOrigins")

	s.Timeout.Read = backend.GetDuration("server.timeout.read")
	if s.Timeout.Read == 0 {
		s.Timeout.Read = defaultReadTimeout
	}
	s.Timeout.Write = backend.GetDuration("server.timeout.write")
	if s.Timeout.Write == 0 {
		s.Timeout.Write = defaultWriteTimeout
	}
	if floor := longest + writeTimeoutGrace; s.Timeout.Write < floor {
		if backend.GetDuration("server.timeout.write") > 0 {
			logger.Warnf("server.timeout.write %s is shorter than the longest operation, using %s", s.Timeout.Write, floor)
		}
		s.Timeout.Write = floor
	}

	s.TLS.Enabled = backend.GetBool("server.tls.enabled")
	s.TLS.CertFile = backend.GetString("server.tls.cert.file")
	s.TLS.KeyFile = backend.GetString("server.tls.key.file")
}

func (c *Config) loadGateway(backend *lookup.ConfigLookup) error {
	g := &c.Gateway
	g.User = backend.GetString("gateway.user")
	if g.User == "" {
		g.User = defaultUser
	}
	g.Admin = backend.GetString("gateway.admin")
	if g.Admin == "" {
		g.Admin = defaultAdmin
	}

	if _, ok := backend.Lookup("gateway.retry"); !ok {
		return nil
	}
	g.Retry = retry.DefaultOpts
	if err := backend.UnmarshalKey("gateway.retry", &g.Retry); err != nil {
		return errors.WithMessage(err, "failed to parse 'gateway.retry' config item to retry.Opts type")
	}
	return nil
}
