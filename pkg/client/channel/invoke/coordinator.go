/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	reqContext "context"
	"sync"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/status"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/fab"
	"github.com/pkg/errors"
)

const defaultCommitTimeout = 30 * time.Second

// ErrCoordinatorClosed is returned by Run after Close
var ErrCoordinatorClosed = errors.New("commit coordinator is closed")

// Submitter broadcasts the endorsed transaction to the ordering service
type Submitter func(ctx reqContext.Context) (*fab.TransactionResponse, error)

// CommitRequest describes the commit phase of one run
type CommitRequest struct {
	TxnID        fab.TransactionID
	EventSources []fab.EventService
	Submit       Submitter
	// RegistrationTimeout bounds arming each listener; no bound when zero
	RegistrationTimeout time.Duration
	// CommitTimeout is the budget of each listener once armed
	CommitTimeout time.Duration
}

// Coordinator runs the commit phase of transactions: it arms one listener per
// event source, submits, then waits for the submission and every listener to
// settle. Concurrent runs share nothing but the shutdown signal.
type Coordinator struct {
	lock    sync.Mutex
	closed  bool
	closing chan struct{}
	running sync.WaitGroup
}

// NewCoordinator returns a commit coordinator
func NewCoordinator() *Coordinator {
	return &Coordinator{closing: make(chan struct{})}
}

// armed is a listener that has been registered and not yet settled
type armed struct {
	source  fab.EventService
	reg     fab.Registration
	eventch <-chan *fab.TxStatusEvent
}

// Run executes the commit phase. The first outcome is the orderer's, followed
// by one outcome per event source in the given order. An error is returned
// only when the run was aborted before submitting.
func (c *Coordinator) Run(ctx reqContext.Context, req CommitRequest) ([]fab.CommitOutcome, error) {
	if req.TxnID == fab.EmptyTransactionID {
		return nil, errors.New("transaction ID is required")
	}
	if req.Submit == nil {
		return nil, errors.New("submitter is required")
	}

	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return nil, ErrCoordinatorClosed
	}
	c.running.Add(1)
	c.lock.Unlock()
	defer c.running.Done()

	outcomes := make([]fab.CommitOutcome, len(req.EventSources)+1)
	listeners := c.arm(ctx, req, outcomes[1:])

	if err := ctx.Err(); err != nil {
		c.unregisterAll(listeners)
		return nil, errors.Wrap(err, "commit aborted before submit")
	}
	select {
	case <-c.closing:
		c.unregisterAll(listeners)
		return nil, ErrCoordinatorClosed
	default:
	}

	commitTimeout := req.CommitTimeout
	if commitTimeout <= 0 {
		commitTimeout = defaultCommitTimeout
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		outcomes[0] = submit(ctx, req.Submit)
	}()

	for i, l := range listeners {
		if l == nil {
			continue
		}
		wg.Add(1)
		go func(slot *fab.CommitOutcome, l *armed) {
			defer wg.Done()
			*slot = c.await(ctx, req.TxnID, l, commitTimeout)
		}(&outcomes[i+1], l)
	}

	wg.Wait()
	return outcomes, nil
}

// Close disconnects every pending listener and rejects new runs.
// It returns once all runs in progress have settled.
func (c *Coordinator) Close() {
	c.lock.Lock()
	if !c.closed {
		c.closed = true
		close(c.closing)
	}
	c.lock.Unlock()

	c.running.Wait()
}

// arm registers every listener in parallel and returns once all of them are
// armed or failed. A failed registration settles its slot as ERROR and
// leaves a nil listener.
func (c *Coordinator) arm(ctx reqContext.Context, req CommitRequest, slots []fab.CommitOutcome) []*armed {
	listeners := make([]*armed, len(req.EventSources))

	var wg sync.WaitGroup
	for i, source := range req.EventSources {
		wg.Add(1)
		go func(i int, source fab.EventService) {
			defer wg.Done()

			regCtx := ctx
			if req.RegistrationTimeout > 0 {
				var cancel reqContext.CancelFunc
				regCtx, cancel = reqContext.WithTimeout(ctx, req.RegistrationTimeout)
				defer cancel()
			}

			reg, eventch, err := source.RegisterTxStatusEvent(regCtx, string(req.TxnID))
			if err != nil {
				logger.Warnf("Failed to arm commit listener on %s for [%s]: %s", source.URL(), req.TxnID, err)
				slots[i] = nodeOutcome(source, fab.OutcomeError, "listener registration failed: "+err.Error())
				return
			}
			logger.Debugf("Commit listener armed on %s for [%s]", source.URL(), req.TxnID)
			listeners[i] = &armed{source: source, reg: reg, eventch: eventch}
		}(i, source)
	}
	wg.Wait()

	return listeners
}

// await settles one listener: the commit event, its own timer, caller
// cancellation and coordinator shutdown are raced. Every branch unregisters.
func (c *Coordinator) await(ctx reqContext.Context, txnID fab.TransactionID, l *armed, timeout time.Duration) fab.CommitOutcome {
	defer l.source.Unregister(l.reg)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case event, ok := <-l.eventch:
		if !ok {
			return nodeOutcome(l.source, fab.OutcomeError, "listener disconnected before the commit was reported")
		}
		outcome := nodeOutcome(l.source, fab.OutcomeSuccess, "")
		outcome.ValidationCode = event.TxValidationCode
		outcome.BlockNumber = event.BlockNumber
		if event.TxValidationCode != pb.TxValidationCode_VALID {
			outcome.Status = fab.OutcomeInvalid
			outcome.Detail = "transaction committed as " + event.TxValidationCode.String()
			logger.Warnf("Peer %s committed [%s] as %s", l.source.URL(), txnID, event.TxValidationCode)
		}
		return outcome
	case <-timer.C:
		logger.Warnf("Peer %s did not report [%s] within %s", l.source.URL(), txnID, timeout)
		return nodeOutcome(l.source, fab.OutcomeTimeout, "no commit event within "+timeout.String())
	case <-ctx.Done():
		return nodeOutcome(l.source, fab.OutcomeError, "listener unregistered: "+ctx.Err().Error())
	case <-c.closing:
		return nodeOutcome(l.source, fab.OutcomeError, "listener unregistered: gateway shutting down")
	}
}

func (c *Coordinator) unregisterAll(listeners []*armed) {
	for _, l := range listeners {
		if l != nil {
			l.source.Unregister(l.reg)
		}
	}
}

func submit(ctx reqContext.Context, send Submitter) fab.CommitOutcome {
	resp, err := send(ctx)
	outcome := fab.CommitOutcome{Source: fab.OrdererSource, Status: fab.OutcomeSuccess}
	if resp != nil {
		outcome.Node = resp.Orderer
	}
	if err != nil {
		outcome.Status = fab.OutcomeError
		outcome.Detail = err.Error()
		if s, ok := status.FromError(err); ok && s.Group == status.OrdererServerStatus {
			outcome.Detail = "orderer responded with " + status.ToOrdererStatusCode(s.Code).String() + ": " + s.Message
		}
	}
	return outcome
}

func nodeOutcome(source fab.EventService, s fab.OutcomeStatus, detail string) fab.CommitOutcome {
	return fab.CommitOutcome{Source: fab.NodeSource, Node: source.URL(), Status: s, Detail: detail}
}
