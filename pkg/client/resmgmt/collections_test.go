/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resmgmt

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/policydsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const collectionsYAML = `
- name: collectionMarbles
  policy: "OR('Org1MSP.member','Org2MSP.member')"
  requiredPeerCount: 0
  maxPeerCount: 3
  blockToLive: 1000000
  memberOnlyRead: true
- name: collectionMarblePrivateDetails
  policy: "OR('Org1MSP.member')"
  requiredPeerCount: 0
  maxPeerCount: 3
  blockToLive: 3
  memberOnlyRead: true
  memberOnlyWrite: true
`

const collectionsJSON = `[
  {"name": "collectionMarbles", "policy": "OR('Org1MSP.member')", "requiredPeerCount": 1, "maxPeerCount": 2, "blockToLive": 0}
]`

func TestCollectionConfig(t *testing.T) {
	configs, err := CollectionConfigFromBytes([]byte(collectionsYAML))
	require.NoError(t, err)
	require.Len(t, configs, 2)

	marbles := configs[0].GetStaticCollectionConfig()
	require.NotNil(t, marbles)
	assert.Equal(t, "collectionMarbles", marbles.Name)
	assert.EqualValues(t, 3, marbles.MaximumPeerCount)
	assert.EqualValues(t, 1000000, marbles.BlockToLive)
	assert.True(t, marbles.MemberOnlyRead)
	assert.False(t, marbles.MemberOnlyWrite)

	expected, err := policydsl.FromString("OR('Org1MSP.member','Org2MSP.member')")
	require.NoError(t, err)
	assert.True(t, proto.Equal(expected, marbles.MemberOrgsPolicy.GetSignaturePolicy()))

	assert.True(t, configs[1].GetStaticCollectionConfig().MemberOnlyWrite)
}

func TestCollectionConfigFromJSONFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "collections")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "collections_config.json")
	require.NoError(t, ioutil.WriteFile(path, []byte(collectionsJSON), 0600))

	configs, err := CollectionConfigFromFile(path)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.EqualValues(t, 1, configs[0].GetStaticCollectionConfig().RequiredPeerCount)

	_, err = CollectionConfigFromFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestInvalidCollectionConfig(t *testing.T) {
	invalid := map[string]string{
		"not a list":     "name: x",
		"no name":        "- policy: \"OR('Org1MSP.member')\"",
		"duplicate":      "- {name: a, policy: \"OR('Org1MSP.member')\"}\n- {name: a, policy: \"OR('Org1MSP.member')\"}",
		"peer counts":    "- {name: a, policy: \"OR('Org1MSP.member')\", requiredPeerCount: 2, maxPeerCount: 1}",
		"policy":         "- {name: a, policy: \"OR(Org1MSP.member\"}",
		"missing policy": "- {name: a}",
	}
	for name, raw := range invalid {
		_, err := CollectionConfigFromBytes([]byte(raw))
		assert.Error(t, err, name)
	}
}
