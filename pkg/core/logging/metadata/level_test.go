/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/
package metadata

import (
	"testing"

	"github.com/hyperledger/fabric-rest-gateway/pkg/core/logging/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevels(t *testing.T) {
	mlevel := ModuleLevels{}

	mlevel.SetLevel("fabgw/debug", api.DEBUG)
	mlevel.SetLevel("fabgw/warning", api.WARNING)

	assert.True(t, mlevel.IsEnabledFor("fabgw/debug", api.DEBUG))
	assert.True(t, mlevel.IsEnabledFor("fabgw/debug", api.ERROR))

	assert.False(t, mlevel.IsEnabledFor("fabgw/warning", api.INFO))
	assert.True(t, mlevel.IsEnabledFor("fabgw/warning", api.WARNING))
	assert.True(t, mlevel.IsEnabledFor("fabgw/warning", api.CRITICAL))

	//default is info
	assert.True(t, mlevel.IsEnabledFor("fabgw/other", api.INFO))
	assert.False(t, mlevel.IsEnabledFor("fabgw/other", api.DEBUG))

	//an explicit default overrides info
	mlevel.SetLevel("", api.ERROR)
	assert.False(t, mlevel.IsEnabledFor("fabgw/other", api.WARNING))
	assert.True(t, mlevel.IsEnabledFor("fabgw/debug", api.DEBUG))
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, api.DEBUG, l)

	l, err = ParseLevel("Warn")
	require.NoError(t, err)
	assert.Equal(t, api.WARNING, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)

	assert.Equal(t, "INFO", ParseString(api.INFO))
	assert.Equal(t, "UNKNOWN", ParseString(api.Level(42)))
}
