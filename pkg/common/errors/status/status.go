/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package status attaches machine readable metadata to errors produced
// while talking to the network. A Status names the component that produced
// it (the group) and the code that component used, so callers can decide
// on retries and on the HTTP answer without parsing messages.
package status

import (
	"fmt"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/multi"
	"github.com/pkg/errors"
	grpcstatus "google.golang.org/grpc/status"
)

// Group names the source of a status and so the meaning of its code
type Group int32

// Groups. Server groups carry codes returned by a network component, client
// groups carry gateway codes.
const (
	UnknownStatus Group = iota
	GRPCTransportStatus
	EndorserServerStatus
	// EventServerStatus codes are transaction validation codes
	EventServerStatus
	OrdererServerStatus
	EndorserClientStatus
	OrdererClientStatus
	ClientStatus
	ChaincodeStatus
)

var groupNames = []string{
	"Unknown",
	"gRPC Transport Status",
	"Endorser Server Status",
	"Event Server Status",
	"Orderer Server Status",
	"Endorser Client Status",
	"Orderer Client Status",
	"Client Status",
	"Chaincode status",
}

func (g Group) String() string {
	if g < 0 || int(g) >= len(groupNames) {
		return groupNames[UnknownStatus]
	}
	return groupNames[g]
}

// Status is an error describing an unsuccessful operation
type Status struct {
	Group   Group
	Code    int32
	Message string
	// Details depend on the group, e.g. the endorser and payload of a
	// proposal response
	Details []interface{}
}

// New creates a status
func New(group Group, code int32, msg string, details []interface{}) *Status {
	return &Status{Group: group, Code: code, Message: msg, Details: details}
}

// NewFromProposalResponse describes the response of an endorser; nil when
// the response carries none
func NewFromProposalResponse(res *pb.ProposalResponse, endorser string) *Status {
	if res.GetResponse() == nil {
		return nil
	}
	return New(EndorserServerStatus, res.Response.Status, res.Response.Message, []interface{}{endorser, res.Response.Payload})
}

// NewFromGRPCStatus converts a gRPC status
func NewFromGRPCStatus(s *grpcstatus.Status) *Status {
	if s == nil {
		return nil
	}
	p := s.Proto()
	details := make([]interface{}, 0, len(p.Details))
	for _, d := range p.Details {
		details = append(details, d)
	}
	return New(GRPCTransportStatus, p.Code, s.Message(), details)
}

// NewFromExtractedChaincodeError describes an error raised by chaincode
func NewFromExtractedChaincodeError(code int, message string) *Status {
	return New(ChaincodeStatus, int32(code), message, nil)
}

// FromError finds the status behind err. A nil error is OK and a multi
// error becomes a MultipleErrors status listing its errors.
func FromError(err error) (*Status, bool) {
	if err == nil {
		return &Status{Code: OK.ToInt32()}, true
	}

	switch cause := errors.Cause(err).(type) {
	case *Status:
		return cause, true
	case multi.Errors:
		details := make([]interface{}, len(cause))
		for i, e := range cause {
			details[i] = e
		}
		return New(ClientStatus, MultipleErrors.ToInt32(), cause.Error(), details), true
	default:
		return nil, false
	}
}

func (s *Status) Error() string {
	return fmt.Sprintf("%s Code: (%d) %s. Description: %s", s.Group, s.Code, s.codeString(), s.Message)
}

func (s *Status) codeString() string {
	switch s.Group {
	case GRPCTransportStatus:
		return ToGRPCStatusCode(s.Code).String()
	case EndorserServerStatus, OrdererServerStatus:
		return ToPeerStatusCode(s.Code).String()
	case EventServerStatus:
		return pb.TxValidationCode(s.Code).String()
	case EndorserClientStatus, OrdererClientStatus, ClientStatus:
		return ToGatewayStatusCode(s.Code).String()
	default:
		return Unknown.String()
	}
}
