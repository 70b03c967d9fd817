/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package retry decides whether a failed transaction run may be attempted
// again. It is used with channel.WithRetry; every retried run builds a new
// proposal under a newly generated transaction ID.
package retry

import (
	"time"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/status"
)

// Opts defines the retry parameters
type Opts struct {
	// Attempts the number retry attempts
	Attempts int
	// InitialBackoff the backoff interval for the first retry attempt
	InitialBackoff time.Duration
	// MaxBackoff the maximum backoff interval for any retry attempt
	MaxBackoff time.Duration
	// BackoffFactor the factor by which the InitialBackoff is exponentially
	// incremented for consecutive retry attempts.
	BackoffFactor float64
	// RetryableCodes defines the status codes, mapped by group, that warrant
	// a retry. Defaults to DefaultRetryableCodes.
	RetryableCodes map[status.Group][]status.Code
}

// Handler retry handler interface decides whether a retry is required for the given
// error
type Handler interface {
	Required(err error) bool
}

type impl struct {
	opts    Opts
	retries int
	sleep   func(time.Duration)
}

// New retry Handler with the given opts
func New(opts Opts) Handler {
	if len(opts.RetryableCodes) == 0 {
		opts.RetryableCodes = DefaultRetryableCodes
	}
	return &impl{opts: opts, sleep: time.Sleep}
}

// WithDefaults new retry Handler with default opts
func WithDefaults() Handler {
	return New(DefaultOpts)
}

// WithAttempts new retry Handler with given attempts. Other opts are set to default.
func WithAttempts(attempts int) Handler {
	opts := DefaultOpts
	opts.Attempts = attempts
	return New(opts)
}

// Required determines if retry is required for the given error.
// Backoff happens before it returns true.
func (i *impl) Required(err error) bool {
	if i.retries >= i.opts.Attempts {
		return false
	}

	s, ok := status.FromError(err)
	if ok && i.isRetryable(s.Group, s.Code) {
		i.sleep(i.backoffPeriod())
		i.retries++
		return true
	}

	return false
}

func (i *impl) backoffPeriod() time.Duration {
	backoff, max := float64(i.opts.InitialBackoff), float64(i.opts.MaxBackoff)
	for j := 0; j < i.retries && backoff < max; j++ {
		backoff *= i.opts.BackoffFactor
	}
	if backoff > max {
		backoff = max
	}

	return time.Duration(backoff)
}

func (i *impl) isRetryable(g status.Group, c int32) bool {
	for _, code := range i.opts.RetryableCodes[g] {
		if status.Code(c) == code {
			return true
		}
	}
	return false
}
