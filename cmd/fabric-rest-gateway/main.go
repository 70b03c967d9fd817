/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Command fabric-rest-gateway serves the transactions and administration of
// a Hyperledger Fabric network over HTTP.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   programName,
		Short: "REST gateway for Hyperledger Fabric",
		Long:  `Endorses, orders and confirms Fabric transactions submitted over HTTP.`,
	}
	root.AddCommand(newStartCmd(), newVersionCmd())
	return root
}
