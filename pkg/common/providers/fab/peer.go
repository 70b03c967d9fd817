/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

// Peer represents an endorsing node of the network.
type Peer interface {
	ProposalProcessor
	// MSPID gets the Peer mspID.
	MSPID() string
	// URL gets the peer address
	URL() string
}
