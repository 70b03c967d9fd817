/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package orderer talks to the ordering service: envelopes are broadcast
// for ordering and blocks are pulled with deliver requests.
package orderer

import (
	reqContext "context"
	"io"
	"time"

	"github.com/hyperledger/fabric-protos-go/common"
	ab "github.com/hyperledger/fabric-protos-go/orderer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/status"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/options"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/comm"
	"github.com/pkg/errors"
	grpcstatus "google.golang.org/grpc/status"
)

var logger = logging.NewLogger("fabgw/orderer")

// Orderer is a client of one ordering node. Connections come from the
// shared dialer and are released after each call.
type Orderer struct {
	name        string
	url         string
	dialer      comm.Dialer
	dialTimeout time.Duration
	connOpts    []options.Opt
}

// Option configures an orderer
type Option func(*Orderer) error

// New creates an orderer client; a URL and a dialer are required
func New(opts ...Option) (*Orderer, error) {
	o := &Orderer{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	switch {
	case o.url == "":
		return nil, errors.New("orderer URL is required")
	case o.dialer == nil:
		return nil, errors.New("orderer dialer is required")
	}
	return o, nil
}

// WithURL sets the address of the orderer
func WithURL(url string) Option {
	return func(o *Orderer) error {
		o.url = url
		return nil
	}
}

// WithDialer sets the connection cache the orderer dials through
func WithDialer(dialer comm.Dialer) Option {
	return func(o *Orderer) error {
		o.dialer = dialer
		return nil
	}
}

// WithConnectTimeout bounds connecting to the orderer
func WithConnectTimeout(timeout time.Duration) Option {
	return func(o *Orderer) error {
		o.dialTimeout = timeout
		return nil
	}
}

// FromOrdererConfig takes the name, address, TLS root and gRPC options of a
// configured orderer
func FromOrdererConfig(cfg *fab.OrdererConfig) Option {
	return func(o *Orderer) error {
		o.name = cfg.Name
		o.url = cfg.URL
		o.connOpts = append(o.connOpts, comm.OptsFromGRPCOptions(cfg.GRPCOptions, cfg.TLSCACert)...)
		return nil
	}
}

// URL returns the address of the orderer
func (o *Orderer) URL() string {
	return o.url
}

func (o *Orderer) String() string {
	if o.name == "" {
		return o.url
	}
	return o.name
}

// grpcError converts a gRPC status into the gateway's status error
func grpcError(err error, msg string) error {
	if s, ok := grpcstatus.FromError(errors.Cause(err)); ok {
		return errors.WithMessage(status.NewFromGRPCStatus(s), msg)
	}
	return errors.Wrap(err, msg)
}

func (o *Orderer) connect(ctx reqContext.Context) (*comm.GRPCConnection, error) {
	opts := append([]options.Opt{comm.WithParentContext(ctx), comm.WithConnectTimeout(o.dialTimeout)}, o.connOpts...)
	conn, err := comm.NewConnection(o.dialer, o.url, opts...)
	if err == nil {
		return conn, nil
	}
	if _, ok := grpcstatus.FromError(errors.Cause(err)); ok {
		return nil, grpcError(err, "connection failed")
	}
	return nil, status.New(status.OrdererClientStatus, status.ConnectionFailed.ToInt32(), err.Error(), nil)
}

// SendBroadcast submits the envelope for ordering. A status other than
// SUCCESS is returned together with an OrdererServerStatus error.
func (o *Orderer) SendBroadcast(ctx reqContext.Context, envelope *fab.SignedEnvelope) (*common.Status, error) {
	conn, err := o.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	stream, err := ab.NewAtomicBroadcastClient(conn.ClientConn()).Broadcast(ctx)
	if err != nil {
		return nil, grpcError(err, "opening broadcast stream failed")
	}
	if err := stream.Send(&common.Envelope{Payload: envelope.Payload, Signature: envelope.Signature}); err != nil {
		return nil, errors.Wrap(err, "sending envelope to orderer failed")
	}
	if err := stream.CloseSend(); err != nil {
		logger.Debugf("closing broadcast stream failed: %s", err)
	}

	resp, err := stream.Recv()
	switch {
	case err == io.EOF:
		return nil, errors.New("broadcast stream closed without a response")
	case err != nil:
		return nil, grpcError(err, "receiving broadcast response failed")
	}

	s := resp.Status
	if s != common.Status_SUCCESS {
		return &s, status.New(status.OrdererServerStatus, int32(s), resp.Info, nil)
	}
	return &s, nil
}

// SendDeliver sends a seek request and streams the blocks the orderer
// answers with. The block channel is closed when the orderer ends the
// stream; a failure is reported on the error channel first.
func (o *Orderer) SendDeliver(ctx reqContext.Context, envelope *fab.SignedEnvelope) (chan *common.Block, chan error) {
	blocks := make(chan *common.Block)
	errs := make(chan error, 1)
	fail := func(err error) (chan *common.Block, chan error) {
		errs <- err
		close(blocks)
		return blocks, errs
	}

	conn, err := o.connect(ctx)
	if err != nil {
		return fail(err)
	}

	stream, err := ab.NewAtomicBroadcastClient(conn.ClientConn()).Deliver(ctx)
	if err != nil {
		conn.Close()
		return fail(grpcError(err, "opening deliver stream failed"))
	}

	go func() {
		defer conn.Close()
		receiveBlocks(stream, blocks, errs)
	}()

	if err := stream.Send(&common.Envelope{Payload: envelope.Payload, Signature: envelope.Signature}); err != nil {
		logger.Warnf("sending seek request to %s failed: %s", o, err)
	}
	if err := stream.CloseSend(); err != nil {
		logger.Debugf("closing deliver stream failed: %s", err)
	}
	return blocks, errs
}

// receiveBlocks forwards blocks until the orderer sends its final status
func receiveBlocks(stream ab.AtomicBroadcast_DeliverClient, blocks chan<- *common.Block, errs chan<- error) {
	defer close(blocks)

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			errs <- errors.Wrap(err, "receiving from ordering service failed")
			return
		}

		switch r := resp.Type.(type) {
		case *ab.DeliverResponse_Block:
			blocks <- r.Block
		case *ab.DeliverResponse_Status:
			logger.Debugf("Deliver ended with status %s", r.Status)
			if r.Status != common.Status_SUCCESS {
				errs <- status.New(status.OrdererServerStatus, int32(r.Status), "error status from ordering service", nil)
			}
			return
		default:
			logger.Infof("Ignoring deliver response of type %T", r)
		}
	}
}
