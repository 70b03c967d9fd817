/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	reqContext "context"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/status"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/test/mockfab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/fab/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChannel = "mychannel"

// network is two endorsing peers that are also event sources, and one orderer
// that hands accepted transactions to the event sources
type network struct {
	journal *mocks.Journal
	peers   []*mocks.MockPeer
	sources []*mocks.MockEventService
	orderer *mocks.MockOrderer
}

func newNetwork(n int) *network {
	net := &network{journal: &mocks.Journal{}}
	for i := 0; i < n; i++ {
		url := fmt.Sprintf("peer%d.org1.example.com:7051", i)
		p := mocks.NewMockPeer(url)
		p.Payload = []byte("value")
		p.Journal = net.journal
		net.peers = append(net.peers, p)

		es := mocks.NewMockEventService(url)
		es.Journal = net.journal
		net.sources = append(net.sources, es)
	}
	net.orderer = mocks.NewMockOrderer("orderer.example.com:7050", net.sources...)
	net.orderer.Journal = net.journal
	return net
}

func (n *network) opts() Opts {
	opts := Opts{
		Orderers: []fab.Orderer{n.orderer},
		Timeouts: map[fab.TimeoutType]time.Duration{
			fab.PeerResponse: time.Second,
			fab.EventReg:     time.Second,
			fab.CommitEvent:  200 * time.Millisecond,
		},
	}
	for i := range n.peers {
		opts.Targets = append(opts.Targets, n.peers[i])
		opts.EventSources = append(opts.EventSources, n.sources[i])
	}
	return opts
}

func newClientContext() *ClientContext {
	return &ClientContext{
		ChannelID:   testChannel,
		Signer:      mocks.NewMockSigningIdentity("user1", "Org1MSP"),
		Coordinator: NewCoordinator(),
	}
}

func newRequestContext(opts Opts) *RequestContext {
	return &RequestContext{
		Request: Request{ChaincodeID: "fabcar", Fcn: "createCar", Args: [][]byte{[]byte("CAR1"), []byte("VW")}},
		Opts:    opts,
		Ctx:     reqContext.Background(),
	}
}

func execute(t *testing.T, opts Opts) *RequestContext {
	requestContext := newRequestContext(opts)
	NewExecuteHandler().Handle(requestContext, newClientContext())
	require.NoError(t, requestContext.Error)
	require.NotNil(t, requestContext.Response.Verdict)
	return requestContext
}

// Scenario A: all endorse, the orderer accepts and every peer commits VALID
func TestExecuteSuccess(t *testing.T) {
	net := newNetwork(2)
	rc := execute(t, net.opts())

	v := rc.Response.Verdict
	assert.True(t, v.Succeeded())
	assert.Empty(t, v.FailureDetail)
	assert.Equal(t, []byte("value"), v.Payload)
	assert.Equal(t, rc.Response.TransactionID, v.TransactionID)

	require.Len(t, v.Outcomes, 3)
	assert.Equal(t, fab.OrdererSource, v.Outcomes[0].Source)
	assert.Equal(t, "orderer.example.com:7050", v.Outcomes[0].Node)
	for i, o := range v.Outcomes[1:] {
		assert.Equal(t, fab.NodeSource, o.Source)
		assert.Equal(t, net.sources[i].URL(), o.Node)
		assert.Equal(t, fab.OutcomeSuccess, o.Status)
		assert.Equal(t, pb.TxValidationCode_VALID, o.ValidationCode)
	}

	// the same ID was used for the proposal, the envelope and the listeners
	txID := string(rc.Response.TransactionID)
	assert.Equal(t, []string{txID}, net.peers[0].TxIDs())
	assert.Equal(t, []string{txID}, net.peers[1].TxIDs())
	assert.Equal(t, []string{txID}, net.orderer.TxIDs())
}

func TestListenersArmedBeforeSubmit(t *testing.T) {
	net := newNetwork(3)
	net.sources[2].ArmDelay = 50 * time.Millisecond
	execute(t, net.opts())

	broadcast := net.journal.Index("broadcast:orderer.example.com:7050")
	require.True(t, broadcast >= 0)
	for _, es := range net.sources {
		arm := net.journal.Index("arm:" + es.URL())
		require.True(t, arm >= 0, "listener on %s armed", es.URL())
		assert.True(t, arm < broadcast, "listener on %s armed before submit", es.URL())
	}
}

// Scenario B: one endorser refuses; nothing is submitted and nothing armed
func TestEndorsementFailureStopsRun(t *testing.T) {
	net := newNetwork(2)
	net.peers[1].Status = 500
	net.peers[1].ResponseMessage = "chaincode panicked"

	rc := execute(t, net.opts())
	v := rc.Response.Verdict
	assert.False(t, v.Succeeded())
	assert.Equal(t, fab.EndorsementFailure, v.Kind)
	require.Len(t, v.FailureDetail, 1)
	assert.Contains(t, v.FailureDetail[0], net.peers[1].URL())
	assert.Contains(t, v.FailureDetail[0], "500")
	assert.Empty(t, v.Outcomes)

	assert.Empty(t, net.orderer.Envelopes())
	for _, es := range net.sources {
		assert.Zero(t, es.Armed())
	}

	s, ok := status.FromError(rc.Response.Cause)
	require.True(t, ok)
	assert.Equal(t, status.EndorserServerStatus, s.Group)
	assert.EqualValues(t, 500, s.Code)
}

func TestNoSubmitWithoutUnanimity(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	// no expectations: any call fails the test
	orderer := mockfab.NewMockOrderer(mockCtrl)
	source := mockfab.NewMockEventService(mockCtrl)

	net := newNetwork(2)
	net.peers[0].Error = fmt.Errorf("connection refused")

	opts := net.opts()
	opts.Orderers = []fab.Orderer{orderer}
	opts.EventSources = []fab.EventService{source}

	rc := execute(t, opts)
	assert.Equal(t, fab.EndorsementFailure, rc.Response.Verdict.Kind)
	assert.Contains(t, rc.Response.Verdict.Detail(), "503")
}

func TestEndorsementMismatch(t *testing.T) {
	net := newNetwork(2)
	net.peers[1].Payload = []byte("other")

	rc := execute(t, net.opts())
	v := rc.Response.Verdict
	assert.False(t, v.Succeeded())
	assert.Equal(t, fab.EndorsementMismatch, v.Kind)
	assert.Empty(t, net.orderer.Envelopes())

	s, ok := status.FromError(rc.Response.Cause)
	require.True(t, ok)
	assert.Equal(t, status.EndorserClientStatus, s.Group)
	assert.Equal(t, status.EndorsementMismatch.ToInt32(), s.Code)
}

// Scenario C: one peer never reports; the run succeeds with a note
func TestCommitTimeoutIsNoted(t *testing.T) {
	net := newNetwork(2)
	net.sources[1].Behavior = mocks.Silent

	rc := execute(t, net.opts())
	v := rc.Response.Verdict
	assert.True(t, v.Succeeded())
	assert.True(t, v.HasNote(fab.CommitTimeout))
	assert.Contains(t, v.Detail(), net.sources[1].URL())
	assert.Equal(t, fab.OutcomeSuccess, v.Outcomes[1].Status)
	assert.Equal(t, fab.OutcomeTimeout, v.Outcomes[2].Status)

	assert.Zero(t, net.sources[1].Active(), "timed out listener is disconnected")
}

// Scenario D: a peer reports the transaction invalid after the orderer accepted it
func TestCommitInvalidFailsRun(t *testing.T) {
	net := newNetwork(2)
	net.sources[1].Code = pb.TxValidationCode_MVCC_READ_CONFLICT

	rc := execute(t, net.opts())
	v := rc.Response.Verdict
	assert.False(t, v.Succeeded())
	assert.Equal(t, fab.CommitInvalid, v.Kind)
	assert.Equal(t, fab.OutcomeSuccess, v.Outcomes[0].Status)
	assert.Equal(t, fab.OutcomeInvalid, v.Outcomes[2].Status)
	assert.Equal(t, pb.TxValidationCode_MVCC_READ_CONFLICT, v.Outcomes[2].ValidationCode)
	assert.Contains(t, v.Detail(), "MVCC_READ_CONFLICT")
}

func TestInvalidIsNotMaskedByTimeout(t *testing.T) {
	net := newNetwork(3)
	net.sources[0].Behavior = mocks.Silent
	net.sources[2].Code = pb.TxValidationCode_ENDORSEMENT_POLICY_FAILURE

	v := execute(t, net.opts()).Response.Verdict
	assert.Equal(t, fab.CommitInvalid, v.Kind)
	assert.True(t, v.HasNote(fab.CommitTimeout))
}

func TestSubmissionFailure(t *testing.T) {
	net := newNetwork(2)
	net.orderer.Status = common.Status_SERVICE_UNAVAILABLE

	v := execute(t, net.opts()).Response.Verdict
	assert.False(t, v.Succeeded())
	assert.Equal(t, fab.SubmissionFailure, v.Kind)
	assert.Equal(t, fab.OutcomeError, v.Outcomes[0].Status)
	assert.Contains(t, v.Outcomes[0].Detail, "SERVICE_UNAVAILABLE")
	// the armed listeners ran out their own budgets
	assert.Equal(t, fab.OutcomeTimeout, v.Outcomes[1].Status)
	assert.Equal(t, fab.OutcomeTimeout, v.Outcomes[2].Status)
}

func TestBadRequest(t *testing.T) {
	net := newNetwork(1)

	tests := []struct {
		name   string
		mutate func(rc *RequestContext)
	}{
		{"no function", func(rc *RequestContext) { rc.Request.Fcn = "" }},
		{"no chaincode", func(rc *RequestContext) { rc.Request.ChaincodeID = "" }},
		{"no targets", func(rc *RequestContext) { rc.Opts.Targets = nil }},
		{"no orderers", func(rc *RequestContext) { rc.Opts.Orderers = nil }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rc := newRequestContext(net.opts())
			tc.mutate(rc)
			NewExecuteHandler().Handle(rc, newClientContext())
			require.NoError(t, rc.Error)
			assert.Equal(t, fab.BadRequest, rc.Response.Verdict.Kind)
			assert.Equal(t, fab.EmptyTransactionID, rc.Response.Verdict.TransactionID)
		})
	}
	assert.Zero(t, net.peers[0].ProcessProposalCalls())
}

func TestQuery(t *testing.T) {
	net := newNetwork(2)
	opts := net.opts()
	opts.Orderers = nil

	rc := newRequestContext(opts)
	NewQueryHandler().Handle(rc, newClientContext())
	require.NoError(t, rc.Error)
	assert.True(t, rc.Response.Verdict.Succeeded())
	assert.Equal(t, []byte("value"), rc.Response.Payload)
	assert.Empty(t, rc.Response.Verdict.Outcomes)
	assert.Empty(t, net.orderer.Envelopes())
	assert.Zero(t, net.sources[0].Armed())
}

func TestFreshTransactionIDPerRun(t *testing.T) {
	net := newNetwork(1)
	first := execute(t, net.opts()).Response.TransactionID
	second := execute(t, net.opts()).Response.TransactionID
	assert.NotEqual(t, first, second)
	assert.Equal(t, []string{string(first), string(second)}, net.orderer.TxIDs())
}

func TestSignErrorIsUnexpected(t *testing.T) {
	net := newNetwork(1)
	clientContext := newClientContext()
	clientContext.Signer = &mocks.MockSigningIdentity{ID: "user1", MSPID: "Org1MSP", SignError: fmt.Errorf("hsm unavailable")}

	rc := newRequestContext(net.opts())
	NewExecuteHandler().Handle(rc, clientContext)
	require.Error(t, rc.Error)
	assert.Contains(t, rc.Error.Error(), "hsm unavailable")
}

func TestCommitHandlerRequiresEndorsement(t *testing.T) {
	rc := newRequestContext(newNetwork(1).opts())
	NewCommitHandler().Handle(rc, newClientContext())
	assert.Error(t, rc.Error)
}
