/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package server

import (
	"os"
	"testing"
	"time"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/errors/retry"
	"github.com/hyperledger/fabric-rest-gateway/pkg/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serverYAML = `
server:
  listenAddress: 127.0.0.1:8080
  cors:
    allowedOrigins:
      - http://example.com
  timeout:
    read: 10s
  tls:
    enabled: true
    cert:
      file: /etc/gateway/tls.crt
    key:
      file: /etc/gateway/tls.key
metrics:
  provider: Prometheus
client:
  logging:
    format: JSON
gateway:
  user: appUser
  retry:
    attempts: 2
    initialBackoff: 100ms
`

func load(t *testing.T, raw string) (*Config, error) {
	backends, err := config.FromRaw([]byte(raw), "yaml")()
	require.NoError(t, err)
	return ConfigFromBackend(backends...)
}

func TestConfigFromBackend(t *testing.T) {
	c, err := load(t, serverYAML)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", c.Server.ListenAddress)
	assert.Equal(t, []string{"http://example.com"}, c.Server.CORS.AllowedOrigins)
	assert.Equal(t, 10*time.Second, c.Server.Timeout.Read)
	assert.Equal(t, 20*time.Minute+15*time.Second+writeTimeoutGrace, c.Server.Timeout.Write, "defaults to the deployment budget")
	assert.True(t, c.Server.TLS.Enabled)
	assert.Equal(t, "/etc/gateway/tls.crt", c.Server.TLS.CertFile)
	assert.Equal(t, "/etc/gateway/tls.key", c.Server.TLS.KeyFile)

	assert.Equal(t, PrometheusProvider, c.Metrics.Provider)
	assert.Equal(t, "json", c.Logging.Format)

	assert.Equal(t, "appUser", c.Gateway.User)
	assert.Equal(t, defaultAdmin, c.Gateway.Admin)
	assert.Equal(t, 2, c.Gateway.Retry.Attempts)
	assert.Equal(t, 100*time.Millisecond, c.Gateway.Retry.InitialBackoff)
	assert.Equal(t, retry.DefaultMaxBackoff, c.Gateway.Retry.MaxBackoff)
}

func TestDefaults(t *testing.T) {
	c, err := load(t, "client:\n  organization: Org1\n")
	require.NoError(t, err)

	assert.Equal(t, defaultListenAddress, c.Server.ListenAddress)
	assert.Empty(t, c.Server.CORS.AllowedOrigins)
	assert.False(t, c.Server.TLS.Enabled)
	assert.Equal(t, DisabledProvider, c.Metrics.Provider)
	assert.Equal(t, defaultUser, c.Gateway.User)
	assert.Equal(t, 0, c.Gateway.Retry.Attempts, "retry is off unless configured")
}

func TestWriteTimeoutCoversOperations(t *testing.T) {
	c, err := load(t, `
server:
  timeout:
    write: 500ms
client:
  eventService:
    timeout:
      commit: 2s
  deploy:
    timeout:
      response: 1m
      commit: 4m
`)
	require.NoError(t, err)

	deploy := time.Minute + 15*time.Second + 4*time.Minute
	assert.True(t, c.Server.Timeout.Write >= deploy, "write timeout %s is below the deployment budget %s", c.Server.Timeout.Write, deploy)
	assert.Equal(t, deploy+writeTimeoutGrace, c.Server.Timeout.Write)
}

func TestWriteTimeoutKeptWhenLonger(t *testing.T) {
	c, err := load(t, "server:\n  timeout:\n    write: 1h\n")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, c.Server.Timeout.Write)
}

func TestEnvOverride(t *testing.T) {
	os.Setenv("FABRIC_GATEWAY_SERVER_LISTENADDRESS", "127.0.0.1:9999")
	defer os.Unsetenv("FABRIC_GATEWAY_SERVER_LISTENADDRESS")

	c, err := load(t, serverYAML)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", c.Server.ListenAddress)
}

func TestUnsupportedMetricsProvider(t *testing.T) {
	_, err := load(t, "metrics:\n  provider: statsd\n")
	assert.Error(t, err)
}
