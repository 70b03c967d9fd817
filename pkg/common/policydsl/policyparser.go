/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package policydsl parses endorsement policies written in the Fabric policy
// language, for example
//
//	OR('Org1MSP.member', AND('Org2MSP.peer', 'Org3MSP.admin'))
//	OutOf(2, 'Org1MSP.member', 'Org2MSP.member', 'Org3MSP.member')
//
// into signature policy envelopes.
package policydsl

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
	cb "github.com/hyperledger/fabric-protos-go/common"
	mb "github.com/hyperledger/fabric-protos-go/msp"
	"github.com/pkg/errors"
)

// Gates of the policy language
const (
	GateAnd   = "And"
	GateOr    = "Or"
	GateOutOf = "OutOf"
)

// Roles a principal may name
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleClient = "client"
	RolePeer   = "peer"
)

var (
	principalRegex = regexp.MustCompile(
		fmt.Sprintf("^([[:alnum:].-]+)([.])(%s|%s|%s|%s)$", RoleAdmin, RoleMember, RoleClient, RolePeer),
	)
	unknownParamRegex = regexp.MustCompile("^No parameter '([^']+)' found[.]$")
)

var roles = map[string]mb.MSPRole_MSPRoleType{
	RoleAdmin:  mb.MSPRole_ADMIN,
	RoleMember: mb.MSPRole_MEMBER,
	RoleClient: mb.MSPRole_CLIENT,
	RolePeer:   mb.MSPRole_PEER,
}

// FromString parses a policy expression. The expression is evaluated in three
// passes: the gates are first normalized to outof calls, then a context
// placeholder is threaded through every call, and finally the calls are
// evaluated into signature policies while the principals are collected.
func FromString(policy string) (*cb.SignaturePolicyEnvelope, error) {
	if strings.TrimSpace(policy) == "" {
		return nil, errors.New("policy string is empty")
	}

	gates := make(map[string]govaluate.ExpressionFunction)
	for name, fn := range map[string]govaluate.ExpressionFunction{GateAnd: and, GateOr: or, GateOutOf: outOf} {
		gates[name] = fn
		gates[strings.ToLower(name)] = fn
		gates[strings.ToUpper(name)] = fn
	}

	normalized, err := evaluate(policy, policy, gates, nil)
	if err != nil {
		return nil, err
	}

	if _, ok := normalized.(string); !ok {
		return nil, errors.Errorf("invalid policy string '%s'", policy)
	}
	threaded, err := evaluate(policy, normalized.(string), map[string]govaluate.ExpressionFunction{"outof": threadContext}, nil)
	if err != nil {
		return nil, err
	}

	ctx := &parseContext{index: make(map[string]int32)}
	result, err := evaluate(policy, threaded.(string), map[string]govaluate.ExpressionFunction{"outof": ctx.build}, map[string]interface{}{"ID": ctx})
	if err != nil {
		return nil, err
	}

	rule, ok := result.(*cb.SignaturePolicy)
	if !ok {
		return nil, errors.Errorf("invalid policy string '%s'", policy)
	}

	return &cb.SignaturePolicyEnvelope{
		Version:    0,
		Rule:       rule,
		Identities: ctx.principals,
	}, nil
}

// evaluate runs one pass. Every pass but the last yields a string.
func evaluate(policy, expression string, functions map[string]govaluate.ExpressionFunction, params map[string]interface{}) (interface{}, error) {
	exp, err := govaluate.NewEvaluableExpressionWithFunctions(expression, functions)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid policy string '%s'", policy)
	}

	if params == nil {
		params = map[string]interface{}{}
	}
	result, err := exp.Evaluate(params)
	if err != nil {
		if m := unknownParamRegex.FindStringSubmatch(err.Error()); len(m) == 2 {
			return nil, errors.Errorf("unrecognized token '%s' in policy string", m[1])
		}
		return nil, errors.Wrapf(err, "invalid policy string '%s'", policy)
	}

	switch result.(type) {
	case string, *cb.SignaturePolicy:
		return result, nil
	default:
		return nil, errors.Errorf("invalid policy string '%s'", policy)
	}
}

func and(args ...interface{}) (interface{}, error) {
	return outOf(append([]interface{}{len(args)}, args...)...)
}

func or(args ...interface{}) (interface{}, error) {
	return outOf(append([]interface{}{1}, args...)...)
}

// outOf renders a gate back into source text, quoting principals
func outOf(args ...interface{}) (interface{}, error) {
	if len(args) < 2 {
		return nil, errors.Errorf("expected at least two arguments to OutOf, given %d", len(args))
	}

	var n string
	switch v := args[0].(type) {
	case float64:
		n = strconv.Itoa(int(v))
	case int:
		n = strconv.Itoa(v)
	case string:
		n = v
	default:
		return nil, errors.Errorf("unexpected type %s", reflect.TypeOf(args[0]))
	}

	parts := []string{n}
	for _, arg := range args[1:] {
		s, ok := arg.(string)
		if !ok {
			return nil, errors.Errorf("unexpected type %s", reflect.TypeOf(arg))
		}
		parts = append(parts, quotePrincipal(s))
	}
	return "outof(" + strings.Join(parts, ", ") + ")", nil
}

// threadContext prepends the ID parameter to every outof call
func threadContext(args ...interface{}) (interface{}, error) {
	parts := []string{"ID"}
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			parts = append(parts, quotePrincipal(v))
		case float64:
			parts = append(parts, strconv.Itoa(int(v)))
		default:
			return nil, errors.Errorf("unexpected type %s", reflect.TypeOf(arg))
		}
	}
	return "outof(" + strings.Join(parts, ", ") + ")", nil
}

func quotePrincipal(s string) string {
	if principalRegex.MatchString(s) {
		return "'" + s + "'"
	}
	return s
}

type parseContext struct {
	principals []*mb.MSPPrincipal
	index      map[string]int32
}

// build evaluates outof(ID, t, p1, ..., pn) into a t-out-of-n policy
func (c *parseContext) build(args ...interface{}) (interface{}, error) {
	if len(args) < 3 {
		return nil, errors.Errorf("at least 3 arguments expected, got %d", len(args))
	}
	if _, ok := args[0].(*parseContext); !ok {
		return nil, errors.Errorf("unrecognized type, expected the context, got %s", reflect.TypeOf(args[0]))
	}

	f, ok := args[1].(float64)
	if !ok {
		return nil, errors.Errorf("unrecognized type, expected a number, got %s", reflect.TypeOf(args[1]))
	}
	t, n := int(f), len(args)-2
	if t < 0 || t > n+1 {
		return nil, errors.Errorf("invalid t-out-of-n predicate, t %d, n %d", t, n)
	}

	policies := make([]*cb.SignaturePolicy, 0, n)
	for _, arg := range args[2:] {
		switch v := arg.(type) {
		case string:
			index, err := c.principal(v)
			if err != nil {
				return nil, err
			}
			policies = append(policies, SignedBy(index))
		case *cb.SignaturePolicy:
			policies = append(policies, v)
		default:
			return nil, errors.Errorf("unrecognized type, expected a principal or a policy, got %s", reflect.TypeOf(arg))
		}
	}

	return NOutOf(int32(t), policies), nil
}

// principal returns the envelope index of the principal, adding it once
func (c *parseContext) principal(s string) (int32, error) {
	if i, ok := c.index[s]; ok {
		return i, nil
	}

	m := principalRegex.FindStringSubmatch(s)
	if len(m) != 4 {
		return 0, errors.Errorf("error parsing principal %s", s)
	}

	principal, err := rolePrincipal(m[1], roles[m[3]])
	if err != nil {
		return 0, errors.Wrapf(err, "marshal of principal %s failed", s)
	}

	i := int32(len(c.principals))
	c.principals = append(c.principals, principal)
	c.index[s] = i
	return i, nil
}
