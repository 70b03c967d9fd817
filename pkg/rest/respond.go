/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"encoding/json"
	"net/http"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/status"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/gateway"
	"github.com/pkg/errors"
)

const (
	resultSuccess = "success"
	resultFailed  = "failed"

	maxBodyBytes = 1 << 20
)

// Response is the body of every API answer
type Response struct {
	Result   string   `json:"result"`
	TxID     string   `json:"txId,omitempty"`
	Payload  string   `json:"payload,omitempty"`
	Channels []string `json:"channels,omitempty"`
	// Notes are diagnostics of a successful run, e.g. commit timeouts on
	// some event sources
	Notes    []string `json:"notes,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// badRequest is a request rejected before anything was sent to the network
type badRequest struct {
	msg string
}

func (e badRequest) Error() string {
	return e.msg
}

func respond(w http.ResponseWriter, r *http.Request, code int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warnf("[%s] Error encoding data for response: %s", requestID(r), err)
	}
}

func notes(v *fab.Verdict) []string {
	if v == nil || len(v.FailureDetail) == 0 {
		return nil
	}
	return append([]string(nil), v.FailureDetail...)
}

func succeed(w http.ResponseWriter, r *http.Request, body Response) {
	body.Result = resultSuccess
	respond(w, r, http.StatusOK, body)
}

// fail answers 400 for requests that were rejected before reaching the
// network and 500 for every other failure
func fail(w http.ResponseWriter, r *http.Request, txID fab.TransactionID, err error) {
	code := http.StatusInternalServerError
	msg := err.Error()

	if v, ok := gateway.VerdictOf(err); ok {
		if v.Kind == fab.BadRequest {
			code = http.StatusBadRequest
		}
		if txID == "" {
			txID = v.TransactionID
		}
	} else if isBadRequest(err) {
		code = http.StatusBadRequest
	}

	logger.Warnf("[%s] Request failed with %d: %s", requestID(r), code, msg)
	respond(w, r, code, Response{Result: resultFailed, TxID: string(txID), Error: msg})
}

func isBadRequest(err error) bool {
	switch errors.Cause(err).(type) {
	case badRequest, gateway.UnknownOrgError:
		return true
	}
	s, ok := status.FromError(err)
	return ok && s.Group == status.ClientStatus && s.Code == status.InvalidRequest.ToInt32()
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return badRequest{"invalid request body: " + err.Error()}
	}
	return nil
}
