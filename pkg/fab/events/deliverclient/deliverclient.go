/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package deliverclient

import (
	"context"
	"sync"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/options"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/comm"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/events/deliverclient/connection"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/events/deliverclient/seek"
	"github.com/pkg/errors"
)

var logger = logging.NewLogger("fabgw/deliver")

// Client is the commit event service of one peer on one channel. Each
// transaction status registration opens its own filtered deliver stream,
// which is torn down as soon as the registration fires or is unregistered.
type Client struct {
	params
	url       string
	channelID string
	signer    msp.SigningIdentity
	dialer    comm.Dialer
	opts      []options.Opt

	lock sync.Mutex
	regs map[*registration]struct{}
}

type registration struct {
	txID    string
	conn    *connection.DeliverConnection
	eventch chan *fab.TxStatusEvent
	once    sync.Once
}

func (r *registration) close() {
	r.once.Do(r.conn.Close)
}

// New returns an event service for the peer at url. Options not consumed by
// the client, such as comm.WithCertificate, are passed on to the connection.
func New(dialer comm.Dialer, signer msp.SigningIdentity, channelID, url string, opts ...options.Opt) (*Client, error) {
	if channelID == "" {
		return nil, errors.New("expecting channel ID")
	}
	if url == "" {
		return nil, errors.New("expecting peer URL")
	}
	if dialer == nil || signer == nil {
		return nil, errors.New("dialer and signer are required")
	}

	params := defaultParams()
	options.Apply(params, opts)

	if _, ok := seek.Info(params.seekType, params.fromBlock); !ok {
		return nil, errors.Errorf("unsupported seek type:[%s]", params.seekType)
	}

	return &Client{
		params:    *params,
		url:       url,
		channelID: channelID,
		signer:    signer,
		dialer:    dialer,
		opts:      opts,
		regs:      make(map[*registration]struct{}),
	}, nil
}

// URL returns the URL of the peer
func (c *Client) URL() string {
	return c.url
}

// RegisterTxStatusEvent opens a deliver stream and returns once the peer
// answered the seek with its first block, or fails when it did not within the
// response timeout.
func (c *Client) RegisterTxStatusEvent(ctx context.Context, txID string) (fab.Registration, <-chan *fab.TxStatusEvent, error) {
	if txID == "" {
		return nil, nil, errors.New("txID must be provided")
	}

	conn, err := connection.New(c.dialer, c.signer, c.channelID, c.streamProvider, c.url, c.opts...)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "connection to deliver service of "+c.url+" failed")
	}

	reg := &registration{
		txID:    txID,
		conn:    conn,
		eventch: make(chan *fab.TxStatusEvent, 1),
	}

	seekInfo, _ := seek.Info(c.seekType, c.fromBlock)
	if err := conn.Send(seekInfo); err != nil {
		reg.close()
		return nil, nil, errors.Wrapf(err, "seek request to %s failed", c.url)
	}

	armed := make(chan error, 1)
	go c.listen(reg, armed)

	select {
	case err = <-armed:
	case <-time.After(c.respTimeout):
		err = errors.Errorf("timeout waiting for deliver response from %s", c.url)
	case <-ctx.Done():
		err = errors.Wrapf(ctx.Err(), "registration with %s aborted", c.url)
	}
	if err != nil {
		reg.close()
		return nil, nil, err
	}

	c.lock.Lock()
	c.regs[reg] = struct{}{}
	c.lock.Unlock()

	logger.Debugf("Listener for TxID [%s] armed on %s", txID, c.url)
	return reg, reg.eventch, nil
}

// Unregister closes the stream of the registration. Calling it again, or
// after the event fired, has no effect.
func (c *Client) Unregister(reg fab.Registration) {
	r, ok := reg.(*registration)
	if !ok {
		logger.Warnf("Unsupported registration type: %T", reg)
		return
	}

	c.lock.Lock()
	delete(c.regs, r)
	c.lock.Unlock()

	r.close()
}

// Close unregisters all active registrations
func (c *Client) Close() {
	c.lock.Lock()
	regs := c.regs
	c.regs = make(map[*registration]struct{})
	c.lock.Unlock()

	for r := range regs {
		r.close()
	}
}

// listen reads the stream until the transaction shows up in a block or the
// stream ends. The first response is reported on armed.
func (c *Client) listen(reg *registration, armed chan<- error) {
	defer close(reg.eventch)
	defer reg.close()

	first := true
	signal := func(err error) {
		if first {
			first = false
			armed <- err
		}
	}

	for {
		resp, err := reg.conn.Recv()
		if err != nil {
			if !reg.conn.Closed() {
				logger.Warnf("Deliver stream from %s ended: %s", c.url, err)
			}
			signal(errors.Wrapf(err, "deliver stream from %s ended", c.url))
			return
		}

		switch evt := resp.Type.(type) {
		case *pb.DeliverResponse_Status:
			logger.Debugf("Deliver service %s responded with status %s", c.url, evt.Status)
			signal(errors.Errorf("deliver service %s responded with status %s", c.url, evt.Status))
			return
		case *pb.DeliverResponse_FilteredBlock:
			signal(nil)
			if e := c.txStatusEvent(evt.FilteredBlock, reg.txID); e != nil {
				reg.eventch <- e
				return
			}
		default:
			logger.Warnf("Unsupported deliver response type: %T", resp.Type)
		}
	}
}

func (c *Client) txStatusEvent(block *pb.FilteredBlock, txID string) *fab.TxStatusEvent {
	for _, tx := range block.FilteredTransactions {
		if tx.Txid == txID {
			return &fab.TxStatusEvent{
				TxID:             txID,
				TxValidationCode: tx.TxValidationCode,
				BlockNumber:      block.Number,
				SourceURL:        c.url,
			}
		}
	}
	return nil
}
