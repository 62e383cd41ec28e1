package cmd

import (
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/config"
	"github.com/spf13/cobra"
)

func NewImportCommand(cfg *config.GlobalConfig) *cobra.Command {
	var transferConfig config.TransferConfig
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a previously exported snapshot into GitHub",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(*cfg, transferConfig, modeImportOnly)
		},
	}

	cmd.Flags().BoolVar(&transferConfig.DryRun, "dry-run", false, "Report what would be imported without writing to GitHub")
	cmd.Flags().BoolVar(&transferConfig.SkipValidation, "skip-validation", false, "Downgrade consistency check failures to warnings")

	return cmd
}
