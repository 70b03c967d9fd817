/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	"fmt"
	"strings"

	pb "github.com/hyperledger/fabric-protos-go/peer"
)

// FailureKind classifies why a transaction run did not succeed, or what was
// noted about an otherwise successful run.
type FailureKind string

const (
	// BadRequest a required field of the request is missing; nothing was sent
	BadRequest FailureKind = "BadRequest"
	// EndorsementFailure at least one endorser answered with a non-200 status
	EndorsementFailure FailureKind = "EndorsementFailure"
	// EndorsementMismatch all endorsers answered 200 but their results differ
	EndorsementMismatch FailureKind = "EndorsementMismatch"
	// SubmissionFailure the ordering service refused the envelope
	SubmissionFailure FailureKind = "SubmissionFailure"
	// CommitInvalid a peer committed the transaction as invalid
	CommitInvalid FailureKind = "CommitInvalid"
	// CommitTimeout a peer did not report the commit in time
	CommitTimeout FailureKind = "CommitTimeout"
)

// OutcomeSource tells which participant produced a CommitOutcome
type OutcomeSource string

const (
	// OrdererSource the outcome of the broadcast
	OrdererSource OutcomeSource = "orderer"
	// NodeSource the outcome of a peer's commit listener
	NodeSource OutcomeSource = "node"
)

// OutcomeStatus is the settled state of one participant
type OutcomeStatus string

const (
	// OutcomeSuccess the orderer accepted the envelope or the peer committed it as valid
	OutcomeSuccess OutcomeStatus = "SUCCESS"
	// OutcomeInvalid the peer committed the transaction with a validation code other than VALID
	OutcomeInvalid OutcomeStatus = "INVALID"
	// OutcomeTimeout the listener expired before the event arrived
	OutcomeTimeout OutcomeStatus = "TIMEOUT"
	// OutcomeError the orderer or the listener failed; for a listener this is as inconclusive as a timeout
	OutcomeError OutcomeStatus = "ERROR"
)

// CommitOutcome is the typed result slot of one participant of the commit phase
type CommitOutcome struct {
	Source OutcomeSource
	// Node is the orderer or peer URL
	Node   string
	Status OutcomeStatus
	// ValidationCode is set when a peer reported the commit
	ValidationCode pb.TxValidationCode
	BlockNumber    uint64
	Detail         string
}

func (o CommitOutcome) String() string {
	if o.Detail == "" {
		return fmt.Sprintf("%s %s: %s", o.Source, o.Node, o.Status)
	}
	return fmt.Sprintf("%s %s: %s (%s)", o.Source, o.Node, o.Status, o.Detail)
}

// VerdictStatus is the overall result of a run
type VerdictStatus string

const (
	// Success the transaction was endorsed, ordered and no peer reported it invalid
	Success VerdictStatus = "SUCCESS"
	// Failure the run failed; Kind says where
	Failure VerdictStatus = "FAILURE"
)

// Verdict is the terminal result of one transaction run.
//
// A peer that reports the transaction INVALID fails the run even though the
// orderer accepted it. A peer that does not report in time only adds a
// CommitTimeout note: the commit may still happen and the ordering outcome
// is already known.
type Verdict struct {
	Overall       VerdictStatus
	TransactionID TransactionID
	// Payload is the chaincode result of the first endorsement
	Payload []byte
	// Kind is the reason of a Failure, empty on Success
	Kind FailureKind
	// FailureDetail collects diagnostics, including notes on a Success
	FailureDetail []string
	// Outcomes holds the orderer slot followed by one slot per listener
	Outcomes []CommitOutcome
}

// Succeeded returns true if the overall status is Success
func (v *Verdict) Succeeded() bool {
	return v != nil && v.Overall == Success
}

// Detail returns the failure detail as one line
func (v *Verdict) Detail() string {
	if v == nil {
		return ""
	}
	return strings.Join(v.FailureDetail, "; ")
}

// HasNote reports whether FailureDetail mentions the given kind
func (v *Verdict) HasNote(kind FailureKind) bool {
	if v == nil {
		return false
	}
	for _, d := range v.FailureDetail {
		if strings.HasPrefix(d, string(kind)) {
			return true
		}
	}
	return false
}

// Fail marks the run failed and records detail under kind. The first kind
// recorded stays the Kind of the verdict.
func (v *Verdict) Fail(kind FailureKind, detail string) {
	v.Overall = Failure
	if v.Kind == "" {
		v.Kind = kind
	}
	v.FailureDetail = append(v.FailureDetail, string(kind)+": "+detail)
}
