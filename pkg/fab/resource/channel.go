/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resource

import (
	reqContext "context"
	"sync"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/multi"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/status"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/events/deliverclient/seek"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/txn"
	"github.com/pkg/errors"
)

// CreateChannelRequest carries a channel configuration transaction, either
// as a complete signed envelope or as a config update with its signatures
type CreateChannelRequest struct {
	Name     string
	Orderers []fab.Orderer
	// Envelope is a signed transaction as produced by configtxgen
	Envelope []byte
	// Config is a config update obtained with ExtractChannelConfig
	Config []byte
	// Signatures satisfy the channel creation policy, see CreateConfigSignature
	Signatures []*common.ConfigSignature
}

// JoinChannelRequest carries the genesis block of the channel to join
type JoinChannelRequest struct {
	Name         string
	GenesisBlock *common.Block
}

// CreateChannel broadcasts a channel configuration transaction to the
// orderers
func CreateChannel(ctx reqContext.Context, signer msp.SigningIdentity, request CreateChannelRequest, opts ...Opt) (fab.TransactionID, error) {
	switch {
	case len(request.Orderers) == 0:
		return fab.EmptyTransactionID, errors.New("at least one orderer is required to create a channel")
	case request.Name == "":
		return fab.EmptyTransactionID, errors.New("channel name is required")
	case request.Envelope != nil:
		return fab.EmptyTransactionID, broadcastSigned(ctx, request.Envelope, request.Orderers)
	case request.Config == nil:
		return fab.EmptyTransactionID, errors.New("channel envelope or config update is required")
	case request.Signatures == nil:
		return fab.EmptyTransactionID, errors.New("config update signatures are required")
	}

	header, err := txn.NewHeader(signer, request.Name)
	if err != nil {
		return fab.EmptyTransactionID, errors.WithMessage(err, "creating transaction header failed")
	}

	update, err := proto.Marshal(&common.ConfigUpdateEnvelope{ConfigUpdate: request.Config, Signatures: request.Signatures})
	if err != nil {
		return fab.EmptyTransactionID, errors.Wrap(err, "marshalling config update envelope failed")
	}
	chdr, err := txn.CreateChannelHeader(common.HeaderType_CONFIG_UPDATE, txn.ChannelHeaderOpts{TxnHeader: header})
	if err != nil {
		return fab.EmptyTransactionID, errors.WithMessage(err, "creating channel header failed")
	}
	payload, err := txn.CreatePayload(header, chdr, update)
	if err != nil {
		return fab.EmptyTransactionID, errors.WithMessage(err, "creating payload failed")
	}

	err = newOptions(opts).withRetry(func() error {
		_, err := txn.BroadcastPayload(ctx, signer, payload, request.Orderers)
		return err
	})
	if err != nil {
		return header.TransactionID(), errors.WithMessage(err, "broadcasting config update failed")
	}
	return header.TransactionID(), nil
}

// broadcastSigned sends a presigned envelope to the first orderer accepting
// it
func broadcastSigned(ctx reqContext.Context, raw []byte, orderers []fab.Orderer) error {
	envelope := &common.Envelope{}
	if err := proto.Unmarshal(raw, envelope); err != nil {
		return errors.Wrap(err, "channel envelope is not valid")
	}

	signed := &fab.SignedEnvelope{Payload: envelope.Payload, Signature: envelope.Signature}
	var errs error
	for _, o := range orderers {
		_, err := o.SendBroadcast(ctx, signed)
		if err == nil {
			return nil
		}
		errs = multi.Append(errs, err)
	}
	return errors.WithMessage(errs, "no orderer accepted the channel envelope")
}

// GenesisBlockFromOrderer fetches block 0 of the channel, as needed to join
// it
func GenesisBlockFromOrderer(ctx reqContext.Context, signer msp.SigningIdentity, channelID string, orderer fab.Orderer, opts ...Opt) (*common.Block, error) {
	if orderer == nil {
		return nil, errors.New("orderer required")
	}

	o := newOptions(opts)
	if o.timeout == 0 {
		o.timeout = defaultOrdererTimeout
	}

	var block *common.Block
	err := o.withRetry(func() error {
		header, err := txn.NewHeader(signer, channelID)
		if err != nil {
			return errors.WithMessage(err, "creating transaction header failed")
		}
		chdr, err := txn.CreateChannelHeader(common.HeaderType_DELIVER_SEEK_INFO, txn.ChannelHeaderOpts{TxnHeader: header})
		if err != nil {
			return errors.WithMessage(err, "creating seek header failed")
		}
		seekInfo, err := proto.Marshal(seek.InfoBlock(0))
		if err != nil {
			return errors.Wrap(err, "marshalling seek info failed")
		}
		payload, err := txn.CreatePayload(header, chdr, seekInfo)
		if err != nil {
			return err
		}
		block, err = txn.SendPayload(ctx, signer, payload, []fab.Orderer{orderer}, o.timeout)
		return err
	})
	if err != nil {
		return nil, errors.WithMessage(err, "retrieving genesis block failed")
	}
	return block, nil
}

// JoinChannel has every target join the channel concurrently. It fails
// unless all of them accept.
func JoinChannel(ctx reqContext.Context, signer msp.SigningIdentity, request JoinChannelRequest, targets []fab.ProposalProcessor, opts ...Opt) error {
	if request.GenesisBlock == nil {
		return errors.New("genesis block is required to join a channel")
	}
	if len(targets) == 0 {
		return errors.WithStack(status.New(status.ClientStatus, status.NoPeersFound.ToInt32(), "no targets available", nil))
	}

	block, err := proto.Marshal(request.GenesisBlock)
	if err != nil {
		return errors.Wrap(err, "marshalling genesis block failed")
	}
	join := fab.ChaincodeInvokeRequest{ChaincodeID: cscc, Fcn: csccJoin, Args: [][]byte{block}}

	o := newOptions(opts)
	var (
		mutex sync.Mutex
		errs  multi.Errors
		wg    sync.WaitGroup
	)
	for _, target := range targets {
		wg.Add(1)
		go func(target fab.ProposalProcessor) {
			defer wg.Done()
			if _, err := invokeSystemChaincode(ctx, signer, join, target, o); err != nil {
				mutex.Lock()
				errs = append(errs, err)
				mutex.Unlock()
			}
		}(target)
	}
	wg.Wait()

	return errs.ToError()
}

// QueryChannels lists the channels the peer has joined
func QueryChannels(ctx reqContext.Context, signer msp.SigningIdentity, peer fab.ProposalProcessor, opts ...Opt) (*pb.ChannelQueryResponse, error) {
	if peer == nil {
		return nil, errors.New("peer required")
	}

	payload, err := invokeSystemChaincode(ctx, signer, fab.ChaincodeInvokeRequest{ChaincodeID: cscc, Fcn: csccChannels}, peer, newOptions(opts))
	if err != nil {
		return nil, err
	}

	channels := &pb.ChannelQueryResponse{}
	if err := proto.Unmarshal(payload, channels); err != nil {
		return nil, errors.Wrap(err, "unmarshalling channel query response failed")
	}
	return channels, nil
}
