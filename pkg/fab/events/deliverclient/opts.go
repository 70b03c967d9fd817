/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package deliverclient

import (
	"time"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/options"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/events/deliverclient/connection"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/events/deliverclient/seek"
)

const defaultResponseTimeout = 15 * time.Second

type params struct {
	streamProvider connection.StreamProvider
	seekType       seek.Type
	fromBlock      uint64
	respTimeout    time.Duration
}

func defaultParams() *params {
	return &params{
		streamProvider: connection.DeliverFiltered,
		seekType:       seek.Newest,
		respTimeout:    defaultResponseTimeout,
	}
}

func (p *params) deliver() *params { return p }

// deliverParams is implemented by the option targets of the event service
type deliverParams interface {
	deliver() *params
}

func deliverOpt(apply func(p *params)) options.Opt {
	return func(target options.Params) {
		if dp, ok := target.(deliverParams); ok {
			apply(dp.deliver())
		}
	}
}

// WithSeekType sets where the stream starts: newest, oldest or from a block
func WithSeekType(value seek.Type) options.Opt {
	return deliverOpt(func(p *params) {
		if value != "" {
			p.seekType = value
		}
	})
}

// WithBlockNum sets the first block of a seek.FromBlock stream
func WithBlockNum(value uint64) options.Opt {
	return deliverOpt(func(p *params) {
		p.fromBlock = value
	})
}

// WithResponseTimeout bounds the wait for the first deliver response, i.e.
// the time it takes to arm a listener.
func WithResponseTimeout(value time.Duration) options.Opt {
	return deliverOpt(func(p *params) {
		if value > 0 {
			p.respTimeout = value
		}
	})
}
