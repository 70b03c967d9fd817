/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package config loads the gateway configuration through viper. Every key can
// be overridden from the environment, FABRIC_GATEWAY_CLIENT_LOGGING_LEVEL for
// client.logging.level for example.
package config

import (
	"bytes"
	"io"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/core"
	"github.com/pkg/errors"
)

type options struct {
	envPrefix string
	defaults  map[string]interface{}
}

const (
	cmdRoot = "FABRIC_GATEWAY"
)

// Option configures the package.
type Option func(opts *options) error

// FromReader loads configuration from in.
// configType can be "json" or "yaml".
func FromReader(in io.Reader, configType string, opts ...Option) core.ConfigProvider {
	return func() ([]core.ConfigBackend, error) {
		return initFromReader(in, configType, opts...)
	}
}

// FromFile reads from named config file
func FromFile(name string, opts ...Option) core.ConfigProvider {
	return func() ([]core.ConfigBackend, error) {
		if name == "" {
			return nil, errors.New("filename is required")
		}

		backend, err := newBackend(opts...)
		if err != nil {
			return nil, err
		}

		backend.configViper.SetConfigFile(name)
		if err := backend.configViper.MergeInConfig(); err != nil {
			return nil, errors.Wrapf(err, "loading config file failed: %s", name)
		}

		if err := setLogLevel(backend); err != nil {
			return nil, err
		}

		return []core.ConfigBackend{backend}, nil
	}
}

// FromRaw will initialize the configs from a byte array
func FromRaw(configBytes []byte, configType string, opts ...Option) core.ConfigProvider {
	return func() ([]core.ConfigBackend, error) {
		return initFromReader(bytes.NewBuffer(configBytes), configType, opts...)
	}
}

func initFromReader(in io.Reader, configType string, opts ...Option) ([]core.ConfigBackend, error) {
	if configType == "" {
		return nil, errors.New("empty config type")
	}

	backend, err := newBackend(opts...)
	if err != nil {
		return nil, err
	}

	// viper needs the type to unmarshal a reader
	backend.configViper.SetConfigType(configType)
	if err := backend.configViper.MergeConfig(in); err != nil {
		return nil, errors.Wrap(err, "reading config failed")
	}

	if err := setLogLevel(backend); err != nil {
		return nil, err
	}

	return []core.ConfigBackend{backend}, nil
}

// WithEnvPrefix defines the prefix for environment variable overrides.
// See viper SetEnvPrefix for more information.
func WithEnvPrefix(prefix string) Option {
	return func(opts *options) error {
		opts.envPrefix = prefix
		return nil
	}
}

// WithDefault sets a value used when neither the file nor the environment
// provides the key
func WithDefault(key string, value interface{}) Option {
	return func(opts *options) error {
		if key == "" {
			return errors.New("default key is required")
		}
		if opts.defaults == nil {
			opts.defaults = make(map[string]interface{})
		}
		opts.defaults[key] = value
		return nil
	}
}

func newBackend(opts ...Option) (*defConfigBackend, error) {
	o := options{
		envPrefix: cmdRoot,
	}

	for _, option := range opts {
		if err := option(&o); err != nil {
			return nil, errors.WithMessage(err, "Error in options passed to create new config backend")
		}
	}

	v := newViper(o.envPrefix)
	for key, value := range o.defaults {
		v.SetDefault(key, value)
	}

	return &defConfigBackend{configViper: v, opts: o}, nil
}

func newViper(cmdRootPrefix string) *viper.Viper {
	myViper := viper.New()
	myViper.SetEnvPrefix(cmdRootPrefix)
	myViper.AutomaticEnv()
	replacer := strings.NewReplacer(".", "_")
	myViper.SetEnvKeyReplacer(replacer)
	return myViper
}

// setLogLevel applies client.logging.level as the default level and
// client.logging.modules as per module overrides
func setLogLevel(backend core.ConfigBackend) error {
	if levelString, ok := backend.Lookup("client.logging.level"); ok {
		level, err := logging.LogLevel(cast.ToString(levelString))
		if err != nil {
			return errors.WithMessage(err, "client.logging.level")
		}
		logging.SetLevel("", level)
	}

	modules, ok := backend.Lookup("client.logging.modules")
	if !ok {
		return nil
	}
	for module, levelString := range cast.ToStringMapString(modules) {
		level, err := logging.LogLevel(levelString)
		if err != nil {
			return errors.Wrapf(err, "client.logging.modules.%s", module)
		}
		logging.SetLevel(module, level)
	}
	return nil
}
