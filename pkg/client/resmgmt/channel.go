/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resmgmt

import (
	reqContext "context"
	"io/ioutil"
	"math/rand"
	"os"

	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/status"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/resource"
	"github.com/pkg/errors"
)

// SaveChannel sends a channel configuration transaction, creating or
// updating the channel, signed by every signing identity
func (rc *Client) SaveChannel(req SaveChannelRequest, options ...RequestOption) (SaveChannelResponse, error) {
	opts, err := rc.requestOpts(options...)
	if err != nil {
		return SaveChannelResponse{}, err
	}

	if req.ChannelConfigPath != "" {
		f, err := os.Open(req.ChannelConfigPath)
		if err != nil {
			return SaveChannelResponse{}, errors.Wrapf(err, "opening channel config file failed")
		}
		defer func() {
			if err := f.Close(); err != nil {
				logger.Warnf("closing %s failed: %s", req.ChannelConfigPath, err)
			}
		}()
		req.ChannelConfig = f
	}
	if req.ChannelID == "" || req.ChannelConfig == nil {
		return SaveChannelResponse{}, invalidRequest("must provide channel ID and channel config")
	}

	configTx, err := ioutil.ReadAll(req.ChannelConfig)
	if err != nil {
		return SaveChannelResponse{}, errors.WithMessage(err, "reading channel config failed")
	}
	configUpdate, err := resource.ExtractChannelConfig(configTx)
	if err != nil {
		return SaveChannelResponse{}, errors.WithMessage(err, "extracting channel config failed")
	}

	signers := []msp.SigningIdentity{rc.ctx}
	if len(req.SigningIdentities) > 0 {
		signers = signers[:0]
		for _, id := range req.SigningIdentities {
			if id != nil {
				signers = append(signers, id)
			}
		}
	}
	var signatures []*common.ConfigSignature
	for _, signer := range signers {
		signature, err := resource.CreateConfigSignature(signer, configUpdate)
		if err != nil {
			return SaveChannelResponse{}, errors.WithMessage(err, "signing channel config failed")
		}
		signatures = append(signatures, signature)
	}

	orderer, err := rc.orderer(opts, req.ChannelID)
	if err != nil {
		return SaveChannelResponse{}, err
	}

	ctx, cancel := opts.deadline(fab.OrdererResponse)
	defer cancel()

	logger.Debugf("Saving channel [%s] with %d signatures", req.ChannelID, len(signatures))
	txID, err := resource.CreateChannel(ctx, rc.ctx, resource.CreateChannelRequest{
		Name:       req.ChannelID,
		Orderers:   []fab.Orderer{orderer},
		Config:     configUpdate,
		Signatures: signatures,
	}, resource.WithRetry(opts.Retry))
	if err != nil {
		return SaveChannelResponse{}, errors.WithMessage(err, "create channel failed")
	}
	return SaveChannelResponse{TransactionID: txID}, nil
}

// JoinChannel fetches the genesis block of the channel from an orderer and
// has the targets join with it. Targets default to the peers of the
// client's organization.
func (rc *Client) JoinChannel(channelID string, options ...RequestOption) error {
	if channelID == "" {
		return invalidRequest("must provide channel ID")
	}

	opts, err := rc.requestOpts(options...)
	if err != nil {
		return err
	}

	ctx, cancel := opts.deadline(fab.ResMgmt)
	defer cancel()

	targets := opts.Targets
	if len(targets) == 0 {
		if targets, err = rc.orgPeers(); err != nil {
			return errors.WithMessage(err, "determining the peers of the organization failed")
		}
	}
	if len(targets) == 0 {
		return errors.WithStack(status.New(status.ClientStatus, status.NoPeersFound.ToInt32(), "no targets available", nil))
	}

	orderer, err := rc.orderer(opts, channelID)
	if err != nil {
		return err
	}

	genesisBlock, err := rc.genesisBlock(ctx, opts, channelID, orderer)
	if err != nil {
		return err
	}

	processors := make([]fab.ProposalProcessor, len(targets))
	for i, t := range targets {
		processors[i] = t
	}
	err = resource.JoinChannel(ctx, rc.ctx, resource.JoinChannelRequest{Name: channelID, GenesisBlock: genesisBlock}, processors,
		resource.WithRetry(opts.Retry), resource.WithTimeout(opts.Timeouts[fab.PeerResponse]))
	if err != nil {
		return errors.WithMessage(err, "join channel failed")
	}

	logger.Infof("%d peers joined channel [%s]", len(targets), channelID)
	return nil
}

func (rc *Client) genesisBlock(parent reqContext.Context, opts requestOptions, channelID string, orderer fab.Orderer) (*common.Block, error) {
	ctx, cancel := reqContext.WithTimeout(parent, opts.Timeouts[fab.OrdererResponse])
	defer cancel()

	block, err := resource.GenesisBlockFromOrderer(ctx, rc.ctx, channelID, orderer, resource.WithRetry(opts.Retry))
	if err != nil {
		return nil, errors.WithMessage(err, "genesis block retrieval failed")
	}
	return block, nil
}

// QueryChannels lists the channels the single target peer has joined
func (rc *Client) QueryChannels(options ...RequestOption) (*pb.ChannelQueryResponse, error) {
	opts, err := rc.requestOpts(options...)
	if err != nil {
		return nil, err
	}
	if len(opts.Targets) != 1 {
		return nil, invalidRequest("only one target is supported")
	}

	ctx, cancel := opts.deadline(fab.PeerResponse)
	defer cancel()
	return resource.QueryChannels(ctx, rc.ctx, opts.Targets[0], resource.WithRetry(opts.Retry))
}

// orgPeers returns the configured peers of every organization sharing the
// client's MSP
func (rc *Client) orgPeers() ([]fab.Peer, error) {
	mspID := rc.ctx.Identifier().MSPID
	config := rc.ctx.EndpointConfig()

	var peers []fab.Peer
	for _, org := range config.Organizations() {
		if orgConfig, ok := config.Organization(org); !ok || orgConfig.MSPID != mspID {
			continue
		}
		for _, peerCfg := range config.OrgPeers(org) {
			peerCfg := peerCfg
			peer, err := rc.ctx.InfraProvider().CreatePeerFromConfig(&peerCfg)
			if err != nil {
				return nil, errors.WithMessage(err, "creating peer from config failed")
			}
			peers = append(peers, peer)
		}
	}
	return peers, nil
}

// orderer returns the orderer given with the request or a random orderer of
// the channel
func (rc *Client) orderer(opts requestOptions, channelID string) (fab.Orderer, error) {
	if opts.Orderer != nil {
		return opts.Orderer, nil
	}

	orderers := rc.ctx.EndpointConfig().ChannelOrderers(channelID)
	if len(orderers) == 0 {
		return nil, errors.Errorf("no orderers configured for channel %s", channelID)
	}
	orderer, err := rc.ctx.InfraProvider().CreateOrdererFromConfig(&orderers[rand.Intn(len(orderers))])
	if err != nil {
		return nil, errors.WithMessage(err, "creating orderer from config failed")
	}
	return orderer, nil
}
