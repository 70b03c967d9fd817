/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package zaplog

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperledger/fabric-rest-gateway/pkg/core/logging/api"
	"github.com/hyperledger/fabric-rest-gateway/pkg/core/logging/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleLogging(t *testing.T) {
	var buf bytes.Buffer
	levels := &metadata.ModuleLevels{}
	levels.SetLevel("fabgw/test", api.WARNING)

	logger := New(Config{Writer: &buf}, levels).GetLogger("fabgw/test")

	logger.Infof("hidden %d", 1)
	assert.Empty(t, buf.String())

	logger.Warnf("shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "fabgw/test")

	levels.SetLevel("fabgw/test", api.DEBUG)
	buf.Reset()
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestJSONLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: JSONFormat, Writer: &buf}, &metadata.ModuleLevels{}).GetLogger("fabgw/json")

	logger.Error("boom")

	line := strings.TrimSpace(buf.String())
	entry := map[string]interface{}{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "boom", entry["msg"])
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "fabgw/json", entry["name"])
}

func TestPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Writer: &buf}, nil).GetLogger("fabgw/panic")

	assert.Panics(t, func() { logger.Panicf("bad %s", "state") })
	assert.Contains(t, buf.String(), "bad state")
}
