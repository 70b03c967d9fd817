/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resource

import (
	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/txn"
	"github.com/pkg/errors"
)

// CreateConfigSignature signs a channel configuration update with the given identity.
func CreateConfigSignature(signer msp.SigningIdentity, config []byte) (*common.ConfigSignature, error) {
	if signer == nil {
		return nil, errors.New("signing identity required")
	}
	if len(config) == 0 {
		return nil, errors.New("channel configuration required")
	}

	creator, err := signer.Serialize()
	if err != nil {
		return nil, errors.WithMessage(err, "failed to get user context's identity")
	}

	nonce, err := txn.NewNonce()
	if err != nil {
		return nil, errors.WithMessage(err, "nonce creation failed")
	}

	// signature is across a signature header and the config update
	signatureHeader := &common.SignatureHeader{
		Creator: creator,
		Nonce:   nonce,
	}
	signatureHeaderBytes, err := proto.Marshal(signatureHeader)
	if err != nil {
		return nil, errors.Wrap(err, "marshal signatureHeader failed")
	}

	signingBytes := make([]byte, 0, len(signatureHeaderBytes)+len(config))
	signingBytes = append(signingBytes, signatureHeaderBytes...)
	signingBytes = append(signingBytes, config...)

	signature, err := signer.Sign(signingBytes)
	if err != nil {
		return nil, errors.WithMessage(err, "signing of channel config failed")
	}

	return &common.ConfigSignature{
		SignatureHeader: signatureHeaderBytes,
		Signature:       signature,
	}, nil
}

// ExtractChannelConfig extracts the protobuf 'ConfigUpdate' object out of the 'ConfigEnvelope'.
func ExtractChannelConfig(configEnvelope []byte) ([]byte, error) {
	envelope := &common.Envelope{}
	err := proto.Unmarshal(configEnvelope, envelope)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal config envelope failed")
	}

	payload := &common.Payload{}
	err = proto.Unmarshal(envelope.Payload, payload)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal envelope payload failed")
	}

	configUpdateEnvelope := &common.ConfigUpdateEnvelope{}
	err = proto.Unmarshal(payload.Data, configUpdateEnvelope)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal config update envelope")
	}

	if len(configUpdateEnvelope.ConfigUpdate) == 0 {
		return nil, errors.New("config envelope holds no config update")
	}

	return configUpdateEnvelope.ConfigUpdate, nil
}

// ExtractConfigFromBlock extracts channel configuration from block
func ExtractConfigFromBlock(block *common.Block) (*common.Config, error) {
	if block == nil || block.Data == nil || len(block.Data.Data) == 0 {
		return nil, errors.New("invalid block")
	}

	envelope := &common.Envelope{}
	if err := proto.Unmarshal(block.Data.Data[0], envelope); err != nil {
		return nil, errors.Wrap(err, "unmarshal envelope from config block failed")
	}
	payload := &common.Payload{}
	if err := proto.Unmarshal(envelope.Payload, payload); err != nil {
		return nil, errors.Wrap(err, "unmarshal payload from envelope failed")
	}
	if payload.Header == nil {
		return nil, errors.New("payload header is missing")
	}
	channelHeader := &common.ChannelHeader{}
	if err := proto.Unmarshal(payload.Header.ChannelHeader, channelHeader); err != nil {
		return nil, errors.Wrap(err, "unmarshal channel header failed")
	}
	if common.HeaderType(channelHeader.Type) != common.HeaderType_CONFIG {
		return nil, errors.New("block must be of type 'CONFIG'")
	}

	cfgEnv := &common.ConfigEnvelope{}
	if err := proto.Unmarshal(payload.Data, cfgEnv); err != nil {
		return nil, errors.Wrap(err, "unmarshal config envelope failed")
	}
	return cfgEnv.Config, nil
}
