/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/playcore/internal/version"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, version.String())
		if !versionCheck {
			return nil
		}
		info, err := version.NewChecker().Check(cmd.Context())
		if err != nil {
			return fmt.Errorf("update check: %w", err)
		}
		if info.UpdateAvailable {
			fmt.Fprintf(out, "update available: %s (%s)\n", info.LatestVersion, info.ReleaseURL)
		} else {
			fmt.Fprintln(out, "up to date")
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check for a newer release")
	rootCmd.AddCommand(versionCmd)
}
