package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idanshimon/protect-web/internal/config"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "protect-web wrapper %s\n", Version)
			fmt.Fprintf(out, "Required %s version: %s\n", config.Product, config.RequiredVersion)
			return nil
		},
	}
}
