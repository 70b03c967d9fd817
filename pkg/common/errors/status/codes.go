/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package status

import (
	"strconv"

	"github.com/hyperledger/fabric-protos-go/common"
	grpcCodes "google.golang.org/grpc/codes"
)

// Code is a status code the gateway infers itself, used with the client
// groups
type Code uint32

// Gateway codes
const (
	OK                  Code = 0
	Unknown             Code = 1
	ConnectionFailed    Code = 2
	EndorsementMismatch Code = 3
	Timeout             Code = 5
	NoPeersFound        Code = 6
	MultipleErrors      Code = 7
	InvalidRequest      Code = 10
)

var codeNames = map[Code]string{
	OK:                  "OK",
	Unknown:             "UNKNOWN",
	ConnectionFailed:    "CONNECTION_FAILED",
	EndorsementMismatch: "ENDORSEMENT_MISMATCH",
	Timeout:             "TIMEOUT",
	NoPeersFound:        "NO_PEERS_FOUND",
	MultipleErrors:      "MULTIPLE_ERRORS",
	InvalidRequest:      "INVALID_REQUEST",
}

// ToInt32 returns the code as carried in Status.Code
func (c Code) ToInt32() int32 {
	return int32(c)
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return strconv.FormatUint(uint64(c), 10)
}

// ToGatewayStatusCode reads the code of a client group status
func ToGatewayStatusCode(c int32) Code {
	return Code(c)
}

// ToGRPCStatusCode reads the code of a GRPCTransportStatus
func ToGRPCStatusCode(c int32) grpcCodes.Code {
	return grpcCodes.Code(c)
}

// ToPeerStatusCode reads the code of an EndorserServerStatus
func ToPeerStatusCode(c int32) common.Status {
	return common.Status(c)
}

// ToOrdererStatusCode reads the code of an OrdererServerStatus
func ToOrdererStatusCode(c int32) common.Status {
	return common.Status(c)
}
