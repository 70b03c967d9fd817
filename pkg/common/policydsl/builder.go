/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package policydsl

import (
	"sort"

	"github.com/golang/protobuf/proto"
	cb "github.com/hyperledger/fabric-protos-go/common"
	mb "github.com/hyperledger/fabric-protos-go/msp"
)

// SignedBy requires a signature of the identity at the given index of the envelope
func SignedBy(index int32) *cb.SignaturePolicy {
	return &cb.SignaturePolicy{
		Type: &cb.SignaturePolicy_SignedBy{
			SignedBy: index,
		},
	}
}

// NOutOf is satisfied when n of the given policies are satisfied
func NOutOf(n int32, policies []*cb.SignaturePolicy) *cb.SignaturePolicy {
	return &cb.SignaturePolicy{
		Type: &cb.SignaturePolicy_NOutOf_{
			NOutOf: &cb.SignaturePolicy_NOutOf{
				N:     n,
				Rules: policies,
			},
		},
	}
}

// And requires both policies
func And(lhs, rhs *cb.SignaturePolicy) *cb.SignaturePolicy {
	return NOutOf(2, []*cb.SignaturePolicy{lhs, rhs})
}

// Or requires either policy
func Or(lhs, rhs *cb.SignaturePolicy) *cb.SignaturePolicy {
	return NOutOf(1, []*cb.SignaturePolicy{lhs, rhs})
}

// SignedByAnyMember is satisfied by one signature of a member of any of the given MSPs.
// An instantiate request without a policy gets this over the channel organizations.
func SignedByAnyMember(mspIDs []string) (*cb.SignaturePolicyEnvelope, error) {
	return signedByAnyOfRole(mb.MSPRole_MEMBER, mspIDs)
}

// SignedByAnyAdmin is satisfied by one signature of an admin of any of the given MSPs
func SignedByAnyAdmin(mspIDs []string) (*cb.SignaturePolicyEnvelope, error) {
	return signedByAnyOfRole(mb.MSPRole_ADMIN, mspIDs)
}

func signedByAnyOfRole(role mb.MSPRole_MSPRoleType, mspIDs []string) (*cb.SignaturePolicyEnvelope, error) {
	ids := append([]string(nil), mspIDs...)
	sort.Strings(ids)

	principals := make([]*mb.MSPPrincipal, len(ids))
	rules := make([]*cb.SignaturePolicy, len(ids))
	for i, id := range ids {
		principal, err := rolePrincipal(id, role)
		if err != nil {
			return nil, err
		}
		principals[i] = principal
		rules[i] = SignedBy(int32(i))
	}

	return &cb.SignaturePolicyEnvelope{
		Version:    0,
		Rule:       NOutOf(1, rules),
		Identities: principals,
	}, nil
}

func rolePrincipal(mspID string, role mb.MSPRole_MSPRoleType) (*mb.MSPPrincipal, error) {
	principal, err := proto.Marshal(&mb.MSPRole{MspIdentifier: mspID, Role: role})
	if err != nil {
		return nil, err
	}
	return &mb.MSPPrincipal{
		PrincipalClassification: mb.MSPPrincipal_ROLE,
		Principal:               principal,
	}, nil
}
