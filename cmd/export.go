package cmd

import (
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/config"
	"github.com/spf13/cobra"
)

func NewExportCommand(cfg *config.GlobalConfig) *cobra.Command {
	var transferConfig config.TransferConfig
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export project metadata into a local snapshot without importing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(*cfg, transferConfig, modeExportOnly)
		},
	}

	cmd.Flags().BoolVar(&transferConfig.SkipValidation, "skip-validation", false, "Downgrade consistency check failures to warnings")

	return cmd
}
