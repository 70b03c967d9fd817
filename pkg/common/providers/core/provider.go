/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package core

// ConfigBackend backend for all config types in the gateway
type ConfigBackend interface {
	Lookup(key string) (interface{}, bool)
}

// ConfigProvider provides config backend for the gateway
type ConfigProvider func() ([]ConfigBackend, error)
