/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resmgmt

import (
	"sort"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/client/channel"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/policydsl"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/pkg/errors"
)

const (
	lscc = "lscc"
	escc = "escc"
	vscc = "vscc"
)

// chaincodeProposalType selects the lscc function of a deployment
type chaincodeProposalType int

// Deployment kinds
const (
	InstantiateChaincode chaincodeProposalType = iota
	UpgradeChaincode
)

var lsccFunctions = map[chaincodeProposalType]string{
	InstantiateChaincode: "deploy",
	UpgradeChaincode:     "upgrade",
}

type chaincodeDeployRequest InstantiateCCRequest

// InstantiateCC deploys a chaincode on the channel. Endorsement or commit
// problems are reported in the verdict, not as an error.
func (rc *Client) InstantiateCC(channelID string, req InstantiateCCRequest, options ...RequestOption) (InstantiateCCResponse, error) {
	return rc.deploy(InstantiateChaincode, channelID, chaincodeDeployRequest(req), options...)
}

// UpgradeCC replaces the instantiated version of a chaincode
func (rc *Client) UpgradeCC(channelID string, req UpgradeCCRequest, options ...RequestOption) (UpgradeCCResponse, error) {
	resp, err := rc.deploy(UpgradeChaincode, channelID, chaincodeDeployRequest(req), options...)
	return UpgradeCCResponse(resp), err
}

func (rc *Client) deploy(kind chaincodeProposalType, channelID string, req chaincodeDeployRequest, options ...RequestOption) (InstantiateCCResponse, error) {
	switch {
	case channelID == "":
		return InstantiateCCResponse{}, invalidRequest("must provide channel ID")
	case req.Name == "" || req.Version == "" || req.Path == "":
		return InstantiateCCResponse{}, invalidRequest("chaincode name, version and path are required")
	case rc.channels == nil:
		return InstantiateCCResponse{}, errors.New("channel context is required for chaincode deployment")
	}

	opts, err := rc.requestOpts(options...)
	if err != nil {
		return InstantiateCCResponse{}, err
	}

	if req.Policy == nil {
		if req.Policy, err = rc.defaultPolicy(channelID); err != nil {
			return InstantiateCCResponse{}, err
		}
	}

	invocation, err := createChaincodeDeployRequest(kind, channelID, req)
	if err != nil {
		return InstantiateCCResponse{}, errors.WithMessage(err, "creating chaincode deploy request failed")
	}

	client, err := channel.New(rc.channels(channelID), channel.WithCoordinator(rc.coordinator))
	if err != nil {
		return InstantiateCCResponse{}, errors.WithMessage(err, "creating channel client failed")
	}

	resp, err := client.Execute(invocation, rc.deployOptions(opts)...)
	if err != nil {
		return InstantiateCCResponse{}, errors.WithMessage(err, "chaincode deployment failed")
	}

	if resp.Verdict.Succeeded() {
		logger.Infof("Deployed %s:%s on channel [%s] in transaction [%s]", req.Name, req.Version, channelID, resp.TransactionID)
	}
	return InstantiateCCResponse{TransactionID: resp.TransactionID, Verdict: resp.Verdict}, nil
}

// deployOptions bounds each step of the lscc transaction by the deployment
// timeouts instead of the regular transaction ones
func (rc *Client) deployOptions(opts requestOptions) []channel.RequestOption {
	endorse := opts.Timeouts[fab.DeployResponse]
	commit := opts.Timeouts[fab.DeployCommitEvent]
	register := rc.ctx.EndpointConfig().Timeout(fab.EventReg)

	chOpts := []channel.RequestOption{
		channel.WithTimeout(fab.PeerResponse, endorse),
		channel.WithTimeout(fab.EventReg, register),
		channel.WithTimeout(fab.CommitEvent, commit),
		channel.WithTimeout(fab.Execute, endorse+register+commit),
		channel.WithRetry(opts.Retry),
	}
	if len(opts.Targets) > 0 {
		chOpts = append(chOpts, channel.WithTargets(opts.Targets...))
	}
	if opts.Orderer != nil {
		chOpts = append(chOpts, channel.WithOrderers(opts.Orderer))
	}
	if opts.ParentContext != nil {
		chOpts = append(chOpts, channel.WithParentContext(opts.ParentContext))
	}
	return chOpts
}

// defaultPolicy is satisfied by a signature of any member of an
// organization with peers on the channel
func (rc *Client) defaultPolicy(channelID string) (*common.SignaturePolicyEnvelope, error) {
	members := make(map[string]bool)
	for _, p := range rc.ctx.EndpointConfig().ChannelPeers(channelID) {
		if p.MSPID != "" {
			members[p.MSPID] = true
		}
	}
	if len(members) == 0 {
		return nil, errors.Errorf("no organizations found on channel %s", channelID)
	}

	mspIDs := make([]string, 0, len(members))
	for id := range members {
		mspIDs = append(mspIDs, id)
	}
	sort.Strings(mspIDs)
	return policydsl.SignedByAnyMember(mspIDs)
}

// createChaincodeDeployRequest builds the lscc invocation. Its arguments
// are the channel, the deployment spec, the endorsement policy, the
// endorsement and validation plugins, then the collections if any.
func createChaincodeDeployRequest(kind chaincodeProposalType, channelID string, req chaincodeDeployRequest) (channel.Request, error) {
	fcn, ok := lsccFunctions[kind]
	if !ok {
		return channel.Request{}, errors.Errorf("unknown chaincode deployment type %d", kind)
	}

	spec, err := proto.Marshal(&pb.ChaincodeDeploymentSpec{
		ChaincodeSpec: &pb.ChaincodeSpec{
			Type:        req.Lang,
			ChaincodeId: &pb.ChaincodeID{Name: req.Name, Path: req.Path, Version: req.Version},
			Input:       &pb.ChaincodeInput{Args: req.Args},
		},
	})
	if err != nil {
		return channel.Request{}, errors.Wrap(err, "marshalling deployment spec failed")
	}

	policy, err := proto.Marshal(req.Policy)
	if err != nil {
		return channel.Request{}, errors.Wrap(err, "marshalling endorsement policy failed")
	}

	args := [][]byte{[]byte(channelID), spec, policy, []byte(escc), []byte(vscc)}
	if len(req.CollConfig) > 0 {
		collections, err := proto.Marshal(&pb.CollectionConfigPackage{Config: req.CollConfig})
		if err != nil {
			return channel.Request{}, errors.Wrap(err, "marshalling collection config failed")
		}
		args = append(args, collections)
	}

	return channel.Request{ChaincodeID: lscc, Fcn: fcn, Args: args}, nil
}
