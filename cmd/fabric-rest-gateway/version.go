/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"runtime"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const programName = "fabric-rest-gateway"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gateway version.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return errors.New("trailing args detected")
			}
			cmd.SilenceUsage = true
			fmt.Fprint(cmd.OutOrStdout(), versionInfo())
			return nil
		},
	}
}

func versionInfo() string {
	version := Version
	if version == "" {
		version = "development build"
	}
	return fmt.Sprintf("%s:\n Version: %s\n Go version: %s\n OS/Arch: %s/%s\n",
		programName, version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
