package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/config"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/logger"
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	var cfg config.GlobalConfig

	rootCmd := &cobra.Command{
		Use:   "gitlab-2-github-metadata",
		Short: "Transfer GitLab project metadata to GitHub",
		Long: `Transfer GitLab project metadata to GitHub.
This tool performs:
- Export of labels, milestones, issues, comments and merge request metadata into a local snapshot
- Reconciliation of GitLab authors against GitHub accounts through an editable mapping file
- Idempotent import of the snapshot into an existing GitHub repository`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return resolveConfig(&cfg)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.GitLabToken, "gitlab-token", "", "GitLab API token (or set GITLAB_TOKEN env)")
	rootCmd.PersistentFlags().StringVar(&cfg.GitLabURL, "gitlab-url", "https://gitlab.com", "GitLab URL")
	rootCmd.PersistentFlags().StringVar(&cfg.GitLabProject, "gitlab-project", "", "GitLab project ID or path (namespace/project-name)")
	rootCmd.PersistentFlags().StringVar(&cfg.GitHubApiToken, "github-api-token", "", "GitHub API token (or set GITHUB_API_TOKEN env)")
	rootCmd.PersistentFlags().IntVar(&cfg.GitHubAppID, "github-app-id", 0, "GitHub APP ID (or set GITHUB_APP_ID env)")
	rootCmd.PersistentFlags().IntVar(&cfg.GitHubAppInstallationID, "github-app-installation-id", 0, "GitHub APP Installation ID (or set GITHUB_APP_INSTALLATION_ID env)")
	rootCmd.PersistentFlags().StringVar(&cfg.GitHubAppPrivateKey, "github-app-private-key", "", "GitHub APP private key (or set GITHUB_APP_PRIVATE_KEY env)")
	rootCmd.PersistentFlags().BoolVar(&cfg.GitHubAppPrivateKeyAsFile, "github-app-private-key-as-file", false, "GitHub APP private key as file")
	rootCmd.PersistentFlags().StringVar(&cfg.GitHubOwner, "github-owner", "", "GitHub owner (username or organization)")
	rootCmd.PersistentFlags().StringVar(&cfg.GitHubRepo, "github-repo", "", "GitHub repository name")
	rootCmd.PersistentFlags().StringVar(&cfg.ExportDir, "export-dir", "./metadata_export", "Directory for the snapshot, user mapping and transfer state")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error, fatal)")

	// Add subcommands
	rootCmd.AddCommand(NewTransferCommand(&cfg))
	rootCmd.AddCommand(NewExportCommand(&cfg))
	rootCmd.AddCommand(NewImportCommand(&cfg))

	return rootCmd
}

// resolveConfig fills unset flags from environment variables and prepares the
// logger. It runs after flag parsing so flags always win over the environment.
func resolveConfig(cfg *config.GlobalConfig) error {
	if cfg.GitLabToken == "" {
		cfg.GitLabToken = os.Getenv("GITLAB_TOKEN")
	}
	if cfg.GitHubApiToken == "" {
		cfg.GitHubApiToken = os.Getenv("GITHUB_API_TOKEN")
	}
	if cfg.GitHubAppID == 0 {
		cfg.GitHubAppID, _ = strconv.Atoi(os.Getenv("GITHUB_APP_ID"))
	}
	if cfg.GitHubAppInstallationID == 0 {
		cfg.GitHubAppInstallationID, _ = strconv.Atoi(os.Getenv("GITHUB_APP_INSTALLATION_ID"))
	}
	if cfg.GitHubAppPrivateKey == "" {
		cfg.GitHubAppPrivateKey = os.Getenv("GITHUB_APP_PRIVATE_KEY")
	}
	if cfg.GitHubAppPrivateKeyAsFile {
		privateKey, err := os.ReadFile(cfg.GitHubAppPrivateKey)
		if err != nil {
			return fmt.Errorf("could not read private key %s: %w", cfg.GitHubAppPrivateKey, err)
		}
		cfg.GitHubAppPrivateKey = string(privateKey)
	}

	// Configure logger based on log level
	if cfg.LogLevel != "" {
		logger.SetLevel(cfg.LogLevel)
	}
	return nil
}
