/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package rest exposes the gateway over HTTP. Transactions are submitted
// with POST /invoke/{channel}/{contractId} and evaluated with
// POST /query/{channel}/{contractId}; channels and chaincodes are
// administered under /channel and /chaincode.
package rest

import (
	reqContext "context"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/hyperledger/fabric-lib-go/healthz"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/gateway"
	"github.com/pkg/errors"
)

var logger = logging.NewLogger("fabgw/rest")

// Gateways resolves the gateway of the organization a request acts for
type Gateways interface {
	Gateway(org string) (*gateway.Gateway, error)
}

// Config is the server section of the configuration
type Config struct {
	ListenAddress string
	CORS          struct {
		AllowedOrigins []string
	}
	Timeout struct {
		Read  time.Duration
		Write time.Duration
	}
	TLS struct {
		Enabled  bool
		CertFile string
		KeyFile  string
	}
}

// Server serves the REST API of the gateway
type Server struct {
	gateways   Gateways
	config     Config
	health     *healthz.HealthHandler
	metrics    http.Handler
	httpServer *http.Server
}

// Option configures the server
type Option func(*Server) error

// WithMetricsHandler serves handler under GET /metrics
func WithMetricsHandler(handler http.Handler) Option {
	return func(s *Server) error {
		s.metrics = handler
		return nil
	}
}

// WithHealthChecker adds a component to GET /healthz
func WithHealthChecker(component string, checker healthz.HealthChecker) Option {
	return func(s *Server) error {
		return s.health.RegisterChecker(component, checker)
	}
}

// New creates the server. The default organization's gateway is checked by
// GET /healthz.
func New(gateways Gateways, config Config, opts ...Option) (*Server, error) {
	s := &Server{
		gateways: gateways,
		config:   config,
		health:   healthz.NewHealthHandler(),
	}
	if err := s.health.RegisterChecker("gateway", gatewayChecker{gateways}); err != nil {
		return nil, errors.Wrap(err, "registering health checker failed")
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, errors.WithMessage(err, "server option failed")
		}
	}

	s.httpServer = &http.Server{
		Addr:         config.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  config.Timeout.Read,
		WriteTimeout: config.Timeout.Write,
	}
	return s, nil
}

// Handler returns the routes wrapped in the request ID, recovery, access
// log and CORS middleware
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router()

	if origins := s.config.CORS.AllowedOrigins; len(origins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
			handlers.AllowedHeaders([]string{"Content-Type", RequestIDHeader}),
			handlers.ExposedHeaders([]string{RequestIDHeader}),
		)(h)
	}
	h = handlers.CustomLoggingHandler(ioutil.Discard, h, accessLog)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))(h)
	return withRequestID(h)
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/invoke/{channel}/{contractId}", s.invoke).Methods(http.MethodPost)
	r.HandleFunc("/query/{channel}/{contractId}", s.query).Methods(http.MethodPost)
	r.HandleFunc("/chaincode/instantiate", s.instantiate).Methods(http.MethodPost)
	r.HandleFunc("/channel/create", s.createChannel).Methods(http.MethodPost)
	r.HandleFunc("/channel/join", s.joinChannel).Methods(http.MethodPost)
	r.HandleFunc("/channels", s.listChannels).Methods(http.MethodGet)

	r.Handle("/healthz", s.health).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
	return r
}

// Start serves until Stop is called
func (s *Server) Start() error {
	var err error
	if s.config.TLS.Enabled {
		logger.Infof("Serving HTTPS requests on %s", s.httpServer.Addr)
		err = s.httpServer.ListenAndServeTLS(s.config.TLS.CertFile, s.config.TLS.KeyFile)
	} else {
		logger.Infof("Serving HTTP requests on %s", s.httpServer.Addr)
		err = s.httpServer.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "serving HTTP failed")
	}
	return nil
}

// Stop lets in-flight requests finish until ctx is done
func (s *Server) Stop(ctx reqContext.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type gatewayChecker struct {
	gateways Gateways
}

func (c gatewayChecker) HealthCheck(ctx reqContext.Context) error {
	_, err := c.gateways.Gateway("")
	return err
}

type recoveryLogger struct{}

func (recoveryLogger) Println(args ...interface{}) {
	logger.Error(args...)
}
