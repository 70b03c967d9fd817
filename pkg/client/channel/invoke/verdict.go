/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
)

func badRequest(txnID fab.TransactionID, reason string) *fab.Verdict {
	return &fab.Verdict{
		Overall:       fab.Failure,
		TransactionID: txnID,
		Kind:          fab.BadRequest,
		FailureDetail: []string{string(fab.BadRequest) + ": " + reason},
	}
}

func endorsementVerdict(txnID fab.TransactionID, result AggregateResult) *fab.Verdict {
	if result.OK {
		return &fab.Verdict{Overall: fab.Success, TransactionID: txnID, Payload: result.Payload}
	}
	return &fab.Verdict{
		Overall:       fab.Failure,
		TransactionID: txnID,
		Kind:          result.Kind,
		FailureDetail: result.Detail,
	}
}

// commitVerdict merges the settled commit outcomes. Success requires the
// orderer to accept the envelope and no peer to report it invalid. A peer
// that timed out or whose listener failed is inconclusive: it is noted as a
// CommitTimeout without changing the overall status.
func commitVerdict(txnID fab.TransactionID, payload []byte, outcomes []fab.CommitOutcome) *fab.Verdict {
	v := &fab.Verdict{
		Overall:       fab.Success,
		TransactionID: txnID,
		Payload:       payload,
		Outcomes:      outcomes,
	}

	for _, o := range outcomes {
		switch {
		case o.Source == fab.OrdererSource && o.Status != fab.OutcomeSuccess:
			v.Fail(fab.SubmissionFailure, o.String())
		case o.Status == fab.OutcomeInvalid:
			v.Fail(fab.CommitInvalid, o.String())
		case o.Status == fab.OutcomeTimeout || o.Status == fab.OutcomeError:
			v.FailureDetail = append(v.FailureDetail, string(fab.CommitTimeout)+": "+o.String())
		}
	}
	return v
}
