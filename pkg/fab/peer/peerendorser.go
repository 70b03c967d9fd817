/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	reqContext "context"
	"strconv"
	"strings"
	"time"

	"github.com/golang/protobuf/proto"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/status"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/options"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/comm"
	"github.com/pkg/errors"
	grpcstatus "google.golang.org/grpc/status"
)

const statusCodeUnknown = "Unknown"

// peerEndorser enables access to a GRPC-based endorser for running transaction proposal simulations
type peerEndorser struct {
	target      string
	dialer      comm.Dialer
	dialTimeout time.Duration
	connOpts    []options.Opt
}

// ProcessTransactionProposal sends the transaction proposal to a peer and returns the response.
// An application level rejection is not an error: it comes back as a
// response with a non-200 Status.
func (p *peerEndorser) ProcessTransactionProposal(ctx reqContext.Context, request fab.ProcessProposalRequest) (*fab.TransactionProposalResponse, error) {
	logger.Debugf("Processing proposal using endorser: %s", p.target)

	proposalResponse, err := p.sendProposal(ctx, request)
	if err != nil {
		tpr := fab.TransactionProposalResponse{Endorser: p.target}
		return &tpr, errors.WithMessage(err, "Transaction processing for endorser ["+p.target+"]")
	}

	chaincodeStatus, err := getChaincodeResponseStatus(proposalResponse)
	if err != nil {
		return nil, errors.WithMessage(err, "chaincode response status parsing failed")
	}

	tpr := fab.TransactionProposalResponse{
		ProposalResponse: proposalResponse,
		Endorser:         p.target,
		ChaincodeStatus:  chaincodeStatus,
		Status:           proposalResponse.GetResponse().GetStatus(),
		Message:          proposalResponse.GetResponse().GetMessage(),
	}
	return &tpr, nil
}

func (p *peerEndorser) sendProposal(ctx reqContext.Context, proposal fab.ProcessProposalRequest) (*pb.ProposalResponse, error) {
	opts := append([]options.Opt{comm.WithParentContext(ctx), comm.WithConnectTimeout(p.dialTimeout)}, p.connOpts...)
	conn, err := comm.NewConnection(p.dialer, p.target, opts...)
	if err != nil {
		if rpcStatus, ok := grpcstatus.FromError(errors.Cause(err)); ok {
			return nil, errors.WithMessage(status.NewFromGRPCStatus(rpcStatus), "connection failed")
		}
		return nil, status.New(status.EndorserClientStatus, status.ConnectionFailed.ToInt32(), err.Error(), []interface{}{p.target})
	}
	defer conn.Close()

	endorserClient := pb.NewEndorserClient(conn.ClientConn())
	resp, err := endorserClient.ProcessProposal(ctx, proposal.SignedProposal)
	if err != nil {
		logger.Errorf("process proposal failed [%s]", err)
		rpcStatus, ok := grpcstatus.FromError(err)
		if !ok {
			return nil, err
		}
		if code, message, extractErr := extractChaincodeError(rpcStatus); extractErr == nil {
			return nil, status.NewFromExtractedChaincodeError(code, message)
		}
		return nil, status.NewFromGRPCStatus(rpcStatus)
	}
	if resp.GetResponse() == nil {
		return nil, status.New(status.EndorserClientStatus, status.Unknown.ToInt32(), "proposal response has no response", []interface{}{p.target})
	}

	return resp, nil
}

// extractChaincodeError parses "status: N, message: M" out of an Unknown
// GRPC status, which is how older peers report chaincode failures
func extractChaincodeError(status *grpcstatus.Status) (int, string, error) {
	var code int
	if status.Code().String() != statusCodeUnknown || status.Message() == "" {
		return 0, "", errors.New("Unable to parse GRPC status message")
	}

	msg := status.Message()
	statusLength := len("status:")
	if i := strings.Index(msg, "status:"); i >= 0 {
		j := strings.Index(msg[i:], ",")
		if j > statusLength {
			c, err := strconv.Atoi(strings.TrimSpace(msg[i+statusLength : i+j]))
			if err != nil {
				return 0, "", errors.Errorf("Non-number returned as GRPC status [%s]", strings.TrimSpace(msg[i+statusLength:i+j]))
			}
			code = c
		}
	}

	var message string
	messageLength := len("message:")
	if i := strings.Index(msg, "message:"); i >= 0 {
		j := strings.LastIndex(msg[i:], ")")
		if j > messageLength {
			message = strings.TrimSpace(msg[i+messageLength : i+j])
		}
	}

	if code != 0 && message != "" {
		return code, message, nil
	}
	return code, message, errors.Errorf("Unable to parse GRPC Status Message Code: %v Message: %v", code, message)
}

// getChaincodeResponseStatus gets the actual response status from response.Payload.extension.Response.status, as fabric always returns actual 200
func getChaincodeResponseStatus(response *pb.ProposalResponse) (int32, error) {
	if response.Payload != nil {
		payload := &pb.ProposalResponsePayload{}
		if err := proto.Unmarshal(response.Payload, payload); err != nil {
			return 0, errors.Wrap(err, "unmarshal of proposal response payload failed")
		}

		extension := &pb.ChaincodeAction{}
		if err := proto.Unmarshal(payload.Extension, extension); err != nil {
			return 0, errors.Wrap(err, "unmarshal of chaincode action failed")
		}

		if extension.Response != nil {
			return extension.Response.Status, nil
		}
	}
	return response.Response.Status, nil
}
