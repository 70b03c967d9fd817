/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
	"github.com/pkg/errors"
)

const nonceSize = 24

// TransactionHeader contains metadata for a transaction created from a proposal.
type TransactionHeader struct {
	id        fab.TransactionID
	creator   []byte
	nonce     []byte
	channelID string
}

// TransactionID returns the transaction's computed identifier.
func (th *TransactionHeader) TransactionID() fab.TransactionID {
	return th.id
}

// Creator returns the transaction creator's identity bytes.
func (th *TransactionHeader) Creator() []byte {
	return th.creator
}

// Nonce returns the transaction's generated nonce.
func (th *TransactionHeader) Nonce() []byte {
	return th.nonce
}

// ChannelID returns the transaction's target channel identifier.
func (th *TransactionHeader) ChannelID() string {
	return th.channelID
}

// NewHeader computes a TransactionID from a fresh nonce and the serialized
// creator, so every call yields a new identifier.
func NewHeader(creator msp.Identity, channelID string, opts ...fab.TxnHeaderOpt) (*TransactionHeader, error) {
	o := fab.TxnHeaderOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	nonce := o.Nonce
	if nonce == nil {
		var err error
		nonce, err = NewNonce()
		if err != nil {
			return nil, errors.WithMessage(err, "nonce creation failed")
		}
	}

	creatorBytes := o.Creator
	if creatorBytes == nil {
		var err error
		creatorBytes, err = creator.Serialize()
		if err != nil {
			return nil, errors.WithMessage(err, "identity from context failed")
		}
	}

	return &TransactionHeader{
		id:        computeTxnID(nonce, creatorBytes),
		creator:   creatorBytes,
		nonce:     nonce,
		channelID: channelID,
	}, nil
}

// NewNonce returns a random nonce of the size used in transaction headers
func NewNonce() ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "error getting random bytes")
	}
	return nonce, nil
}

func computeTxnID(nonce, creator []byte) fab.TransactionID {
	b := make([]byte, 0, len(nonce)+len(creator))
	b = append(b, nonce...)
	b = append(b, creator...)

	digest := sha256.Sum256(b)
	return fab.TransactionID(hex.EncodeToString(digest[:]))
}

// signPayload signs payload
func signPayload(signer msp.SigningIdentity, payload *common.Payload) (*fab.SignedEnvelope, error) {
	payloadBytes, err := proto.Marshal(payload)
	if err != nil {
		return nil, errors.WithMessage(err, "marshaling of payload failed")
	}

	signature, err := signer.Sign(payloadBytes)
	if err != nil {
		return nil, errors.WithMessage(err, "signing of payload failed")
	}
	return &fab.SignedEnvelope{Payload: payloadBytes, Signature: signature}, nil
}

// ChannelHeaderOpts holds the parameters to create a ChannelHeader.
type ChannelHeaderOpts struct {
	TxnHeader   fab.TransactionHeader
	Epoch       uint64
	ChaincodeID string
	Timestamp   time.Time
	TLSCertHash []byte
}

// CreateChannelHeader is a utility method to build a common chain header
func CreateChannelHeader(headerType common.HeaderType, opts ChannelHeaderOpts) (*common.ChannelHeader, error) {
	logger.Debugf("buildChannelHeader - headerType: %s channelID: %s txID: %s epoch: %d chaincodeID: %s timestamp: %v", headerType, opts.TxnHeader.ChannelID(), opts.TxnHeader.TransactionID(), opts.Epoch, opts.ChaincodeID, opts.Timestamp)
	channelHeader := &common.ChannelHeader{
		Type:        int32(headerType),
		ChannelId:   opts.TxnHeader.ChannelID(),
		TxId:        string(opts.TxnHeader.TransactionID()),
		Epoch:       opts.Epoch,
		TlsCertHash: opts.TLSCertHash,
	}

	if opts.Timestamp.IsZero() {
		opts.Timestamp = time.Now()
	}

	ts, err := ptypes.TimestampProto(opts.Timestamp)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create timestamp in channel header")
	}
	channelHeader.Timestamp = ts

	if opts.ChaincodeID != "" {
		headerExt := &pb.ChaincodeHeaderExtension{
			ChaincodeId: &pb.ChaincodeID{Name: opts.ChaincodeID},
		}
		headerExtBytes, err := proto.Marshal(headerExt)
		if err != nil {
			return nil, errors.Wrap(err, "marshal header extension failed")
		}
		channelHeader.Extension = headerExtBytes
	}
	return channelHeader, nil
}

// createHeader creates a Header from a ChannelHeader.
func createHeader(txh fab.TransactionHeader, channelHeader *common.ChannelHeader) (*common.Header, error) {
	sh, err := proto.Marshal(CreateSignatureHeader(txh))
	if err != nil {
		return nil, errors.Wrap(err, "marshal signatureHeader failed")
	}
	ch, err := proto.Marshal(channelHeader)
	if err != nil {
		return nil, errors.Wrap(err, "marshal channelHeader failed")
	}
	return &common.Header{
		SignatureHeader: sh,
		ChannelHeader:   ch,
	}, nil
}

// CreatePayload creates a payload from a ChannelHeader and a data slice.
func CreatePayload(txh fab.TransactionHeader, channelHeader *common.ChannelHeader, data []byte) (*common.Payload, error) {
	header, err := createHeader(txh, channelHeader)
	if err != nil {
		return nil, errors.Wrap(err, "header creation failed")
	}

	return &common.Payload{
		Header: header,
		Data:   data,
	}, nil
}

// CreateSignatureHeader creates a SignatureHeader based on the nonce and creator of the transaction header.
func CreateSignatureHeader(txh fab.TransactionHeader) *common.SignatureHeader {
	return &common.SignatureHeader{
		Creator: txh.Creator(),
		Nonce:   txh.Nonce(),
	}
}
