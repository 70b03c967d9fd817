/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"context"
	"fmt"

	"github.com/golang/protobuf/proto"
	cb "github.com/hyperledger/fabric-protos-go/common"
	ab "github.com/hyperledger/fabric-protos-go/orderer"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/options"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/comm"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/txn"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
)

var logger = logging.NewLogger("fabgw/deliver")

type deliverStream interface {
	grpc.ClientStream
	Send(*cb.Envelope) error
	Recv() (*pb.DeliverResponse, error)
}

// DeliverConnection manages the connection to the deliver server of a peer
type DeliverConnection struct {
	*comm.StreamConnection
	channelID string
	signer    msp.SigningIdentity
}

// StreamProvider creates a deliver stream
type StreamProvider func(pb.DeliverClient) (stream deliverStream, cancel func(), err error)

// DeliverFiltered creates a DeliverFiltered stream
var DeliverFiltered StreamProvider = func(client pb.DeliverClient) (deliverStream, func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.DeliverFiltered(ctx)
	return stream, cancel, err
}

// New opens a deliver stream to the peer at url. Seek requests sent on it
// are signed by signer.
func New(dialer comm.Dialer, signer msp.SigningIdentity, channelID string, streamProvider StreamProvider, url string, opts ...options.Opt) (*DeliverConnection, error) {
	logger.Debugf("Connecting to %s...", url)
	connect, err := comm.NewStreamConnection(
		dialer,
		func(grpcconn *grpc.ClientConn) (grpc.ClientStream, func(), error) {
			return streamProvider(pb.NewDeliverClient(grpcconn))
		},
		url, opts...,
	)
	if err != nil {
		return nil, err
	}

	return &DeliverConnection{
		StreamConnection: connect,
		channelID:        channelID,
		signer:           signer,
	}, nil
}

func (c *DeliverConnection) deliverStream() deliverStream {
	stream, ok := c.Stream().(deliverStream)
	if !ok {
		panic(fmt.Sprintf("invalid DeliverStream type %T", c.Stream()))
	}
	return stream
}

// Send sends a seek request to the deliver server
func (c *DeliverConnection) Send(seekInfo *ab.SeekInfo) error {
	if c.Closed() {
		return errors.New("connection is closed")
	}

	logger.Debugf("Sending %#v", seekInfo)

	env, err := c.createSignedEnvelope(seekInfo)
	if err != nil {
		return err
	}

	return c.deliverStream().Send(env)
}

// Recv blocks until the next response arrives or the stream ends
func (c *DeliverConnection) Recv() (*pb.DeliverResponse, error) {
	if c.Closed() {
		return nil, errors.New("connection is closed")
	}
	return c.deliverStream().Recv()
}

func (c *DeliverConnection) createSignedEnvelope(msg proto.Message) (*cb.Envelope, error) {
	txh, err := txn.NewHeader(c.signer, c.channelID)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create seek header")
	}

	chdr, err := txn.CreateChannelHeader(cb.HeaderType_DELIVER_SEEK_INFO, txn.ChannelHeaderOpts{TxnHeader: txh})
	if err != nil {
		return nil, err
	}

	data, err := proto.Marshal(msg)
	if err != nil {
		return nil, err
	}

	payload, err := txn.CreatePayload(txh, chdr, data)
	if err != nil {
		return nil, err
	}

	paylBytes, err := proto.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal of seek payload failed")
	}

	signature, err := c.signer.Sign(paylBytes)
	if err != nil {
		return nil, errors.WithMessage(err, "signing of seek payload failed")
	}

	return &cb.Envelope{Payload: paylBytes, Signature: signature}, nil
}
