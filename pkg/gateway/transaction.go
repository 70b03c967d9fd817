/*
Copyright 2020 IBM All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	reqContext "context"

	"github.com/hyperledger/fabric-rest-gateway/pkg/client/channel"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/pkg/errors"
)

// A Transaction represents a specific invocation of a transaction function, and provides
// flexibility over how that transaction is invoked. Applications should
// obtain instances of this class from a Contract using the
// Contract.CreateTransaction method.
//
// Instances of this class are stateful. A new instance must
// be created for each transaction invocation.
type Transaction struct {
	name           string
	contract       *Contract
	request        *channel.Request
	endorsingPeers []string
	orderers       []string
	parent         reqContext.Context
	result         Result
}

// VerdictError is returned when the network turned a transaction down
type VerdictError struct {
	Verdict *fab.Verdict
}

func (e *VerdictError) Error() string {
	return e.Verdict.Detail()
}

// VerdictOf returns the verdict behind a transaction error
func VerdictOf(err error) (*fab.Verdict, bool) {
	if ve, ok := errors.Cause(err).(*VerdictError); ok {
		return ve.Verdict, true
	}
	return nil, false
}

func newTransaction(name string, contract *Contract, options ...TransactionOption) (*Transaction, error) {
	txn := &Transaction{
		name:     name,
		contract: contract,
		request:  &channel.Request{ChaincodeID: contract.chaincodeID, Fcn: name},
	}

	for _, option := range options {
		err := option(txn)
		if err != nil {
			return nil, err
		}
	}

	return txn, nil
}

// WithTransient is an optional argument to the CreateTransaction method which
// sets the transient data that will be passed to the transaction function
// but will not be stored on the ledger. This can be used to pass
// private data to a transaction function.
func WithTransient(data map[string][]byte) TransactionOption {
	return func(txn *Transaction) error {
		txn.request.TransientMap = data
		return nil
	}
}

// WithEndorsingPeers is an optional argument to the CreateTransaction method which
// sets the peers, by name or URL, that must all endorse the transaction
func WithEndorsingPeers(peers ...string) TransactionOption {
	return func(txn *Transaction) error {
		txn.endorsingPeers = peers
		return nil
	}
}

// WithOrderers sets the orderers, by name or URL, the endorsed transaction
// may be broadcast to. It defaults to the orderers of the channel.
func WithOrderers(orderers ...string) TransactionOption {
	return func(txn *Transaction) error {
		txn.orderers = orderers
		return nil
	}
}

// WithContext bounds the transaction by a caller's context
func WithContext(ctx reqContext.Context) TransactionOption {
	return func(txn *Transaction) error {
		if ctx == nil {
			return errors.New("context is nil")
		}
		txn.parent = ctx
		return nil
	}
}

// Result is the complete outcome of the last Evaluate or Submit
func (txn *Transaction) Result() Result {
	return txn.result
}

// Evaluate runs the transaction function on the endorsing peers without
// ordering the result
func (txn *Transaction) Evaluate(args ...string) ([]byte, error) {
	txn.request.Args = toBytes(args)

	response, err := txn.contract.client.Query(*txn.request, txn.requestOptions(false)...)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to evaluate")
	}
	return txn.complete(response)
}

// Submit runs the transaction function on the endorsing peers, orders the
// result and waits for the organization's peers to commit it
func (txn *Transaction) Submit(args ...string) ([]byte, error) {
	txn.request.Args = toBytes(args)

	response, err := txn.contract.client.Execute(*txn.request, txn.requestOptions(true)...)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to submit")
	}
	return txn.complete(response)
}

func (txn *Transaction) complete(response channel.Response) ([]byte, error) {
	txn.result = response
	if !response.Verdict.Succeeded() {
		return nil, &VerdictError{Verdict: response.Verdict}
	}
	if len(response.Verdict.FailureDetail) > 0 {
		logger.Warnf("Transaction [%s] succeeded with notes: %s", response.TransactionID, response.Verdict.Detail())
	}
	return response.Payload, nil
}

func (txn *Transaction) requestOptions(commit bool) []channel.RequestOption {
	var opts []channel.RequestOption
	if len(txn.endorsingPeers) > 0 {
		opts = append(opts, channel.WithTargetEndpoints(txn.endorsingPeers...))
	}
	if commit && len(txn.orderers) > 0 {
		opts = append(opts, channel.WithOrdererEndpoints(txn.orderers...))
	}
	if retry := txn.contract.network.gateway.options.Retry; retry.Attempts > 0 {
		opts = append(opts, channel.WithRetry(retry))
	}
	if txn.parent != nil {
		opts = append(opts, channel.WithParentContext(txn.parent))
	}
	return opts
}

func toBytes(args []string) [][]byte {
	bytes := make([][]byte, len(args))
	for i, v := range args {
		bytes[i] = []byte(v)
	}
	return bytes
}
