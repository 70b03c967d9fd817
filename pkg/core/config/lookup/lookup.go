/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package lookup reads typed values from a stack of configuration
// backends. Earlier backends shadow later ones, so command line overrides
// go first and the configuration file last.
package lookup

import (
	"strings"
	"time"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/core"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// ConfigLookup resolves keys across backends
type ConfigLookup struct {
	backends []core.ConfigBackend
}

// New stacks the backends, highest priority first
func New(backends ...core.ConfigBackend) *ConfigLookup {
	return &ConfigLookup{backends: backends}
}

// Lookup returns the value of the first backend holding the key
func (c *ConfigLookup) Lookup(key string) (interface{}, bool) {
	for _, b := range c.backends {
		if b == nil {
			continue
		}
		if v, ok := b.Lookup(key); ok {
			return v, true
		}
	}
	return nil, false
}

// value returns the key's value or nil, which every cast turns into the
// zero value
func (c *ConfigLookup) value(key string) interface{} {
	v, _ := c.Lookup(key)
	return v
}

// GetBool returns the key as a bool, false if unset
func (c *ConfigLookup) GetBool(key string) bool {
	return cast.ToBool(c.value(key))
}

// GetString returns the key as a string, empty if unset
func (c *ConfigLookup) GetString(key string) string {
	return cast.ToString(c.value(key))
}

// GetLowerString returns the key as a lower case string
func (c *ConfigLookup) GetLowerString(key string) string {
	return strings.ToLower(c.GetString(key))
}

// GetStringSlice returns the key as a list of strings
func (c *ConfigLookup) GetStringSlice(key string) []string {
	v, ok := c.Lookup(key)
	if !ok {
		return nil
	}
	return cast.ToStringSlice(v)
}

// GetInt returns the key as an int, 0 if unset
func (c *ConfigLookup) GetInt(key string) int {
	return cast.ToInt(c.value(key))
}

// GetDuration returns the key as a duration; strings such as "30s" are
// parsed
func (c *ConfigLookup) GetDuration(key string) time.Duration {
	return cast.ToDuration(c.value(key))
}

// UnmarshalOption adds decode hooks to UnmarshalKey
type UnmarshalOption func(hooks []mapstructure.DecodeHookFunc) []mapstructure.DecodeHookFunc

// WithUnmarshalHookFunction runs the hook after the duration hook
func WithUnmarshalHookFunction(hook mapstructure.DecodeHookFunc) UnmarshalOption {
	return func(hooks []mapstructure.DecodeHookFunc) []mapstructure.DecodeHookFunc {
		return append(hooks, hook)
	}
}

// UnmarshalKey decodes the key into out, leaving out untouched when the key
// is unset. Input is weakly typed and strings decode into durations.
func (c *ConfigLookup) UnmarshalKey(key string, out interface{}, opts ...UnmarshalOption) error {
	v, ok := c.Lookup(key)
	if !ok {
		return nil
	}

	hooks := []mapstructure.DecodeHookFunc{mapstructure.StringToTimeDurationHookFunc()}
	for _, opt := range opts {
		hooks = opt(hooks)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(hooks...),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(v)
}
