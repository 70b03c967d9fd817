/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	reqContext "context"

	pb "github.com/hyperledger/fabric-protos-go/peer"
)

// TxStatusEvent contains the data for a transaction status event
type TxStatusEvent struct {
	// TxID is the ID of the transaction in which the event was set
	TxID string
	// TxValidationCode is the status code of the commit
	TxValidationCode pb.TxValidationCode
	// BlockNumber contains the block number in which the
	// transaction was committed
	BlockNumber uint64
	// SourceURL specifies the URL of the peer that produced the event
	SourceURL string
}

// Registration is a handle that is returned from a successful RegisterTxStatusEvent.
// This handle should be used in Unregister in order to unregister the event.
type Registration interface{}

// EventService delivers commit notifications from one peer.
type EventService interface {
	// URL of the peer the events come from
	URL() string

	// RegisterTxStatusEvent arms a one-shot listener for the given transaction.
	// It returns only once the peer is ready to report the commit, so a
	// transaction submitted afterwards cannot be missed. At most one event is
	// sent on the returned channel; the channel is closed when the listener
	// fires or is unregistered. An error on the stream closes the channel
	// without an event.
	RegisterTxStatusEvent(ctx reqContext.Context, txID string) (Registration, <-chan *TxStatusEvent, error)

	// Unregister disconnects a listener. It is safe to call more than once
	// and after the listener fired.
	Unregister(reg Registration)
}
