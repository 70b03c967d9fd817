/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
client:
  organization: org1
  logging:
    level: debug
    modules:
      fabgw/invoke: warning
server:
  listenAddress: 127.0.0.1:4000
`

func TestFromRaw(t *testing.T) {
	defer logging.SetLevel("", logging.INFO)

	backends, err := FromRaw([]byte(sampleConfig), "yaml")()
	require.NoError(t, err)
	require.Len(t, backends, 1)

	v, ok := backends[0].Lookup("client.organization")
	assert.True(t, ok)
	assert.Equal(t, "org1", v)

	_, ok = backends[0].Lookup("client.missing")
	assert.False(t, ok)

	assert.Equal(t, logging.DEBUG, logging.GetLevel("fabgw/rest"))
	assert.Equal(t, logging.WARNING, logging.GetLevel("fabgw/invoke"))
}

func TestFromReaderRequiresType(t *testing.T) {
	_, err := FromReader(strings.NewReader(sampleConfig), "")()
	assert.Error(t, err)
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := FromRaw([]byte("client:\n  logging:\n    level: loud\n"), "yaml")()
	assert.Error(t, err)
}

func TestFromFile(t *testing.T) {
	defer logging.SetLevel("", logging.INFO)

	_, err := FromFile("")()
	assert.Error(t, err)

	_, err = FromFile("/does/not/exist.yaml")()
	assert.Error(t, err)

	dir, err := ioutil.TempDir("", "config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(sampleConfig), 0600))

	backends, err := FromFile(path)()
	require.NoError(t, err)
	v, ok := backends[0].Lookup("server.listenAddress")
	assert.True(t, ok)
	assert.Equal(t, "127.0.0.1:4000", v)
}

func TestEnvOverride(t *testing.T) {
	defer logging.SetLevel("", logging.INFO)

	require.NoError(t, os.Setenv("FABRIC_GATEWAY_CLIENT_ORGANIZATION", "org2"))
	defer os.Unsetenv("FABRIC_GATEWAY_CLIENT_ORGANIZATION")

	backends, err := FromRaw([]byte(sampleConfig), "yaml")()
	require.NoError(t, err)
	v, _ := backends[0].Lookup("client.organization")
	assert.Equal(t, "org2", v)

	backends, err = FromRaw([]byte(sampleConfig), "yaml", WithEnvPrefix("OTHER"))()
	require.NoError(t, err)
	v, _ = backends[0].Lookup("client.organization")
	assert.Equal(t, "org1", v)
}

func TestWithDefault(t *testing.T) {
	defer logging.SetLevel("", logging.INFO)

	backends, err := FromRaw([]byte(sampleConfig), "yaml", WithDefault("metrics.provider", "disabled"))()
	require.NoError(t, err)
	v, ok := backends[0].Lookup("metrics.provider")
	assert.True(t, ok)
	assert.Equal(t, "disabled", v)

	_, err = FromRaw([]byte(sampleConfig), "yaml", WithDefault("", 1))()
	assert.Error(t, err)
}
