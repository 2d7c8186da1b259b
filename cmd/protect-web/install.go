package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newInstallCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Download the protect-web binary into the install directory",
		Long: `Download the protect-web binary for this platform into the install
directory. Requires A4WEB_API_KEY and A4WEB_API_SECRET.

Nothing is downloaded when the installed version already matches, unless
--force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				if !force && !a.manager.NeedsAcquisition() {
					fmt.Fprintf(out, "protect-web %s is already installed at %s\n", a.manager.Version(), a.manager.BinaryPath())
					return nil
				}
				if err := a.manager.Acquire(ctx); err != nil {
					return err
				}
				fmt.Fprintf(out, "Installed protect-web %s at %s\n", a.manager.Version(), a.manager.BinaryPath())
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Download even if the required version is installed")
	return cmd
}
