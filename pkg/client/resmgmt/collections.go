/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resmgmt

import (
	"io/ioutil"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/policydsl"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// collectionConfig is one entry of a collections configuration file, in
// the layout used by the peer CLI. JSON files parse as well.
type collectionConfig struct {
	Name              string `yaml:"name"`
	Policy            string `yaml:"policy"`
	RequiredPeerCount int32  `yaml:"requiredPeerCount"`
	MaxPeerCount      int32  `yaml:"maxPeerCount"`
	BlockToLive       uint64 `yaml:"blockToLive"`
	MemberOnlyRead    bool   `yaml:"memberOnlyRead"`
	MemberOnlyWrite   bool   `yaml:"memberOnlyWrite"`
}

// CollectionConfigFromFile reads the private data collections of a chaincode
func CollectionConfigFromFile(path string) ([]*pb.CollectionConfig, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading collections config %s failed", path)
	}
	return CollectionConfigFromBytes(raw)
}

// CollectionConfigFromBytes parses the private data collections of a chaincode
func CollectionConfigFromBytes(raw []byte) ([]*pb.CollectionConfig, error) {
	var entries []collectionConfig
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrap(err, "parsing collections config failed")
	}

	seen := make(map[string]struct{})
	configs := make([]*pb.CollectionConfig, 0, len(entries))
	for _, c := range entries {
		if c.Name == "" {
			return nil, errors.New("collection name is required")
		}
		if _, ok := seen[c.Name]; ok {
			return nil, errors.Errorf("collection %s is defined twice", c.Name)
		}
		seen[c.Name] = struct{}{}

		if c.MaxPeerCount < c.RequiredPeerCount {
			return nil, errors.Errorf("collection %s: maxPeerCount %d is lower than requiredPeerCount %d", c.Name, c.MaxPeerCount, c.RequiredPeerCount)
		}

		policy, err := policydsl.FromString(c.Policy)
		if err != nil {
			return nil, errors.WithMessage(err, "policy of collection "+c.Name)
		}

		configs = append(configs, &pb.CollectionConfig{
			Payload: &pb.CollectionConfig_StaticCollectionConfig{
				StaticCollectionConfig: &pb.StaticCollectionConfig{
					Name: c.Name,
					MemberOrgsPolicy: &pb.CollectionPolicyConfig{
						Payload: &pb.CollectionPolicyConfig_SignaturePolicy{SignaturePolicy: policy},
					},
					RequiredPeerCount: c.RequiredPeerCount,
					MaximumPeerCount:  c.MaxPeerCount,
					BlockToLive:       c.BlockToLive,
					MemberOnlyRead:    c.MemberOnlyRead,
					MemberOnlyWrite:   c.MemberOnlyWrite,
				},
			},
		})
	}
	return configs, nil
}
