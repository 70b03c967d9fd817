/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package multi holds the errors of an operation that targets several nodes,
// for example joining a channel on two peers where both refuse.
package multi

import (
	"fmt"
	"strings"
)

// Errors is used to represent multiple errors
type Errors []error

// New Errors object with the given errors. Only non-nil errors are added.
// A single error is returned as is.
func New(errs ...error) error {
	var m Errors
	for _, err := range errs {
		if err != nil {
			m = append(m, err)
		}
	}
	return m.ToError()
}

// Append err to errs. If errs is not an Errors object, one will be created
func Append(errs error, err error) error {
	m, ok := errs.(Errors)
	if !ok {
		return New(errs, err)
	}
	if err == nil {
		return errs
	}
	return append(m, err)
}

// ToError returns nil if no errors are present, the error itself if only one
// is present and errs otherwise
func (errs Errors) ToError() error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errs
	}
}

// Error implements the error interface
func (errs Errors) Error() string {
	switch len(errs) {
	case 0:
		return ""
	case 1:
		return errs[0].Error()
	}

	msgs := make([]string, 0, len(errs)+1)
	msgs = append(msgs, fmt.Sprintf("%d errors occurred:", len(errs)))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, " - ")
}
