package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idanshimon/protect-web/internal/blueprint"
	"github.com/idanshimon/protect-web/internal/bridge"
)

func newBuildCommand() *cobra.Command {
	var (
		blueprintPath string
		assetsDir     string
		contextDir    string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Protect a build tool's output directory in place",
		Long: `Protect the scripts and pages in a build output directory in place.

Files ending in .js, .html, .htm, .jsbundle, .android.bundle, .xhtml, .jsp,
.asp or .aspx are handed to protect-web; everything it writes back replaces
the matching files. Any targets in the blueprint are ignored. When the
blueprint has no appID, the name in <context>/package.json is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				var bp *blueprint.Map
				if blueprintPath != "" {
					var err error
					bp, err = blueprint.LoadFile(ctx, blueprintPath, a.platform)
					if err != nil {
						return err
					}
				}

				b, err := bridge.New(bp, a.pipeline, bridge.Options{
					ContextDir: contextDir,
					Logger:     a.logger,
				})
				if err != nil {
					return err
				}

				res, err := b.Run(ctx, bridge.NewDirTree(assetsDir))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Protected %s (%s): %d files staged, %d written back\n",
					assetsDir, b.TargetType(), len(res.Staged), len(res.Reabsorbed))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&blueprintPath, "blueprint", "", "Path to the blueprint file; an empty guard configuration is used when omitted")
	cmd.Flags().StringVar(&assetsDir, "assets", "", "Build output directory to protect")
	cmd.Flags().StringVar(&contextDir, "context", ".", "Project directory containing package.json")
	_ = cmd.MarkFlagRequired("assets")
	return cmd
}
