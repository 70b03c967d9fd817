/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package retry

import (
	"time"

	"github.com/hyperledger/fabric-protos-go/common"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/status"
	grpcCodes "google.golang.org/grpc/codes"
)

const (
	// DefaultAttempts number of retry attempts made by default
	DefaultAttempts = 3
	// DefaultInitialBackoff default initial backoff
	DefaultInitialBackoff = 500 * time.Millisecond
	// DefaultMaxBackoff default maximum backoff
	DefaultMaxBackoff = 60 * time.Second
	// DefaultBackoffFactor default backoff factor
	DefaultBackoffFactor = 2.0
)

// DefaultOpts default retry options
var DefaultOpts = Opts{
	Attempts:       DefaultAttempts,
	InitialBackoff: DefaultInitialBackoff,
	MaxBackoff:     DefaultMaxBackoff,
	BackoffFactor:  DefaultBackoffFactor,
	RetryableCodes: DefaultRetryableCodes,
}

// DefaultRetryableCodes are the endorsement stage conditions considered
// transient. Nothing from the ordering or commit stages is listed: once an
// envelope was broadcast the transaction may be recorded, and resubmitting it
// under a new ID could execute it twice.
var DefaultRetryableCodes = map[status.Group][]status.Code{
	status.EndorserClientStatus: {
		status.ConnectionFailed,
		status.EndorsementMismatch,
	},
	status.EndorserServerStatus: {
		status.Code(common.Status_SERVICE_UNAVAILABLE),
		status.Code(common.Status_INTERNAL_SERVER_ERROR),
	},
	status.GRPCTransportStatus: {
		status.Code(grpcCodes.Unavailable),
	},
}
