/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package channel

import (
	"fmt"
	"time"

	"github.com/hyperledger/fabric-rest-gateway/pkg/client/channel/invoke"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/status"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
)

func callQuery(cc *Client, request Request, options ...RequestOption) (Response, error) {
	meterLabels := []string{
		"chaincode", request.ChaincodeID,
		"Fcn", request.Fcn,
	}
	cc.metrics.QueriesReceived.With(meterLabels...).Add(1)
	startTime := time.Now()
	r, err := cc.invokeHandler(invoke.NewQueryHandler(), fab.Query, request, options...)
	if err != nil {
		if s, ok := err.(*status.Status); ok && s.Code == status.Timeout.ToInt32() {
			cc.metrics.QueryTimeouts.With(append(meterLabels, "fail", "timeout")...).Add(1)
			return r, err
		}
		cc.metrics.QueriesFailed.With(append(meterLabels, "fail", failLabel(err))...).Add(1)
		return r, err
	}
	if !r.Verdict.Succeeded() {
		cc.metrics.QueriesFailed.With(append(meterLabels, "fail", string(r.Verdict.Kind))...).Add(1)
	}
	cc.metrics.QueryDuration.With(meterLabels...).Observe(time.Since(startTime).Seconds())
	return r, err
}

func callExecute(cc *Client, request Request, options ...RequestOption) (Response, error) {
	meterLabels := []string{
		"chaincode", request.ChaincodeID,
		"Fcn", request.Fcn,
	}
	cc.metrics.ExecutionsReceived.With(meterLabels...).Add(1)
	startTime := time.Now()
	r, err := cc.invokeHandler(invoke.NewExecuteHandler(), fab.Execute, request, options...)
	if err != nil {
		if s, ok := err.(*status.Status); ok && s.Code == status.Timeout.ToInt32() {
			cc.metrics.ExecutionTimeouts.With(append(meterLabels, "fail", "timeout")...).Add(1)
			return r, err
		}
		cc.metrics.ExecutionsFailed.With(append(meterLabels, "fail", failLabel(err))...).Add(1)
		return r, err
	}
	if !r.Verdict.Succeeded() {
		cc.metrics.ExecutionsFailed.With(append(meterLabels, "fail", string(r.Verdict.Kind))...).Add(1)
	}
	for _, o := range r.Verdict.Outcomes {
		cc.metrics.CommitOutcomes.With("source", string(o.Source), "node", o.Node, "status", string(o.Status)).Add(1)
	}

	cc.metrics.ExecutionDuration.With(meterLabels...).Observe(time.Since(startTime).Seconds())
	return r, err
}

func failLabel(err error) string {
	if s, ok := err.(*status.Status); ok {
		return fmt.Sprintf("Error - Group:%s - Code:%d", s.Group.String(), s.Code)
	}
	return "Error - Generic"
}
