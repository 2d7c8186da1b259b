package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idanshimon/protect-web/internal/blueprint"
)

func newProtectCommand() *cobra.Command {
	var blueprintPath string

	cmd := &cobra.Command{
		Use:   "protect",
		Short: "Run protect-web with a blueprint",
		Long: `Run protect-web with the given blueprint, downloading the binary first
if the installed version does not match. The blueprint may be JSON, YAML
or Lua; the license token from A4WEB_LICENSE_TOKEN is merged in unless the
blueprint already carries one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				bp, err := blueprint.LoadFile(ctx, blueprintPath, a.platform)
				if err != nil {
					return err
				}
				out, err := a.pipeline.Invoke(ctx, bp)
				if err != nil {
					return err
				}
				writeOutput(cmd, out.Stdout, out.Stderr)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&blueprintPath, "blueprint", "", "Path to the blueprint file (.json, .yaml, .yml or .lua)")
	_ = cmd.MarkFlagRequired("blueprint")
	return cmd
}

// writeOutput relays the binary's output to the command's streams.
func writeOutput(cmd *cobra.Command, stdout, stderr string) {
	if stdout != "" {
		fmt.Fprintln(cmd.OutOrStdout(), stdout)
	}
	if stderr != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), stderr)
	}
}
