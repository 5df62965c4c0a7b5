// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Duskhall CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duskhall",
		Short: "Duskhall - container coordination for a multiplayer world",
		Long: `Duskhall coordinates shared container interaction for a multiplayer
world: session tracking, item transfers with capacity enforcement,
lock management, and a durable event journal.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())

	return cmd
}
