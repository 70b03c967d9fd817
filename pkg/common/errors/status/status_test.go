/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package status

import (
	"fmt"
	"testing"

	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/multi"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	grpccodes "google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

func TestStatusConstructors(t *testing.T) {
	s := New(EndorserClientStatus, ConnectionFailed.ToInt32(), "test", nil)
	assert.EqualValues(t, ConnectionFailed, ToGatewayStatusCode(s.Code))
	assert.Equal(t, EndorserClientStatus, s.Group)
	assert.Equal(t, "test", s.Message)

	assert.Nil(t, NewFromGRPCStatus(nil))
	s = NewFromGRPCStatus(grpcstatus.New(grpccodes.DeadlineExceeded, "slow"))
	assert.EqualValues(t, grpccodes.DeadlineExceeded, ToGRPCStatusCode(s.Code))
	assert.Equal(t, GRPCTransportStatus, s.Group)
	assert.Equal(t, "slow", s.Message)

	assert.Nil(t, NewFromProposalResponse(nil, ""))
	assert.Nil(t, NewFromProposalResponse(&pb.ProposalResponse{}, ""))
	s = NewFromProposalResponse(&pb.ProposalResponse{
		Response: &pb.Response{
			Status:  int32(common.Status_BAD_REQUEST),
			Message: "bad args",
		}}, "peer0.org1:7051")
	assert.EqualValues(t, common.Status_BAD_REQUEST, ToPeerStatusCode(s.Code))
	assert.Equal(t, EndorserServerStatus, s.Group)
	assert.Equal(t, "bad args", s.Message)
	assert.Equal(t, "peer0.org1:7051", s.Details[0].(string))
}

func TestFromError(t *testing.T) {
	s := New(OrdererServerStatus, int32(common.Status_SERVICE_UNAVAILABLE), "down", nil)
	derived, ok := FromError(s)
	assert.True(t, ok)
	assert.Equal(t, s, derived)

	derived, ok = FromError(errors.Wrap(s, "broadcast failed"))
	assert.True(t, ok)
	assert.Equal(t, s, derived)

	derived, ok = FromError(nil)
	assert.True(t, ok)
	assert.EqualValues(t, OK.ToInt32(), derived.Code)

	_, ok = FromError(fmt.Errorf("plain"))
	assert.False(t, ok)

	errs := multi.Errors{fmt.Errorf("a"), fmt.Errorf("b")}
	derived, ok = FromError(errs)
	assert.True(t, ok)
	assert.Equal(t, ClientStatus, derived.Group)
	assert.EqualValues(t, MultipleErrors.ToInt32(), derived.Code)
	assert.Len(t, derived.Details, 2)
}

func TestStatusToError(t *testing.T) {
	s := New(EndorserClientStatus, EndorsementMismatch.ToInt32(), "payloads differ", nil)
	assert.Equal(t, "Endorser Client Status Code: (3) ENDORSEMENT_MISMATCH. Description: payloads differ", s.Error())
}

func TestStatusCodeString(t *testing.T) {
	s := Status{Group: GRPCTransportStatus, Code: int32(grpccodes.Unavailable)}
	assert.Equal(t, grpccodes.Unavailable.String(), s.codeString())

	s = Status{Group: OrdererServerStatus, Code: int32(common.Status_FORBIDDEN)}
	assert.Equal(t, common.Status_FORBIDDEN.String(), s.codeString())

	s = Status{Group: EventServerStatus, Code: int32(pb.TxValidationCode_MVCC_READ_CONFLICT)}
	assert.Equal(t, pb.TxValidationCode_MVCC_READ_CONFLICT.String(), s.codeString())

	s = Status{Group: ChaincodeStatus, Code: 500}
	assert.Equal(t, Unknown.String(), s.codeString())

	assert.Equal(t, "25999", Code(25999).String())
	assert.Equal(t, UnknownStatus.String(), Group(777).String())
}

func TestChaincodeStatus(t *testing.T) {
	s := NewFromExtractedChaincodeError(500, "key not found")
	assert.Equal(t, "key not found", s.Message)
	assert.Equal(t, int32(500), s.Code)
	assert.Equal(t, ChaincodeStatus, s.Group)
}
