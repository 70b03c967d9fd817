/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
)

// NewFilteredBlock returns a new mock filtered block initialized with the given channel
// and filtered transactions
func NewFilteredBlock(channelID string, number uint64, filteredTx ...*pb.FilteredTransaction) *pb.FilteredBlock {
	return &pb.FilteredBlock{
		ChannelId:            channelID,
		Number:               number,
		FilteredTransactions: filteredTx,
	}
}

// NewFilteredTx returns a new mock filtered transaction
func NewFilteredTx(txID string, txValidationCode pb.TxValidationCode) *pb.FilteredTransaction {
	return &pb.FilteredTransaction{
		Txid:             txID,
		TxValidationCode: txValidationCode,
		Type:             common.HeaderType_ENDORSER_TRANSACTION,
	}
}

// NewSimpleMockBlock returns a simple mock block
func NewSimpleMockBlock(number uint64) *common.Block {
	return &common.Block{
		Header: &common.BlockHeader{Number: number},
		Data: &common.BlockData{
			Data: [][]byte{[]byte("test")},
		},
		Metadata: &common.BlockMetadata{
			Metadata: [][]byte{{}, {}, {}, {}},
		},
	}
}

// NewProposalResponsePayload returns the marshalled payload of a proposal
// response carrying the given chaincode response
func NewProposalResponsePayload(ccID string, status int32, message string, payload []byte) []byte {
	action := &pb.ChaincodeAction{
		Response: &pb.Response{
			Status:  status,
			Message: message,
			Payload: payload,
		},
		Results: []byte("rwset"),
	}
	if ccID != "" {
		action.ChaincodeId = &pb.ChaincodeID{Name: ccID}
	}
	actionBytes, err := proto.Marshal(action)
	if err != nil {
		panic(err)
	}

	prpBytes, err := proto.Marshal(&pb.ProposalResponsePayload{
		ProposalHash: []byte("hash"),
		Extension:    actionBytes,
	})
	if err != nil {
		panic(err)
	}
	return prpBytes
}

// TxIDFromEnvelope returns the channel and transaction ID carried in a marshalled payload
func TxIDFromEnvelope(payload []byte) (channelID string, txID string, err error) {
	pl := &common.Payload{}
	if err := proto.Unmarshal(payload, pl); err != nil {
		return "", "", err
	}
	if pl.Header == nil {
		return "", "", nil
	}
	chdr := &common.ChannelHeader{}
	if err := proto.Unmarshal(pl.Header.ChannelHeader, chdr); err != nil {
		return "", "", err
	}
	return chdr.ChannelId, chdr.TxId, nil
}

// ProposalTxID returns the transaction ID of a signed proposal
func ProposalTxID(signed *pb.SignedProposal) (string, error) {
	if signed == nil {
		return "", nil
	}
	prop := &pb.Proposal{}
	if err := proto.Unmarshal(signed.ProposalBytes, prop); err != nil {
		return "", err
	}
	hdr := &common.Header{}
	if err := proto.Unmarshal(prop.Header, hdr); err != nil {
		return "", err
	}
	chdr := &common.ChannelHeader{}
	if err := proto.Unmarshal(hdr.ChannelHeader, chdr); err != nil {
		return "", err
	}
	return chdr.TxId, nil
}
