/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package fabricgateway exposes a Hyperledger Fabric network over a REST API.
//
// Packages
//
// cmd/fabric-rest-gateway: The gateway binary. "start" loads the network and
// server configuration and serves until SIGINT or SIGTERM.
//
// pkg/rest: HTTP routes for invoke, query, chaincode instantiation and
// channel administration. Every response carries an X-Request-Id header.
//
// pkg/gateway: Per organization access to the network. A Registry holds one
// Gateway per organization; each opens Networks (channels) and Contracts and
// runs transactions through endorsement, ordering and commit confirmation.
//
// pkg/client/channel: Executes a transaction on a channel. Endorsement must
// be unanimous with status 200 and identical results before the envelope is
// sent to the orderer and the commit is awaited on every event source.
//
// pkg/client/resmgmt: Channel creation and joining, and chaincode
// instantiation or upgrade through lscc.
//
// Transaction outcome
//
// A run ends in a verdict: success, BadRequest, EndorsementFailure,
// EndorsementMismatch, SubmissionFailure, CommitInvalid or CommitTimeout.
// A commit timeout only on some event sources is noted and the run still
// succeeds when no source reports the transaction invalid.
//
package fabricgateway
