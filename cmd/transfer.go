package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/krrrr38/gitlab-2-github-metadata/pkg/config"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/github"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/gitlab"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/logger"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/metadata"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/ratelimit"
	"github.com/krrrr38/gitlab-2-github-metadata/pkg/transfer"
	"github.com/spf13/cobra"
)

type runMode int

const (
	modeFull runMode = iota
	modeExportOnly
	modeImportOnly
)

func NewTransferCommand(cfg *config.GlobalConfig) *cobra.Command {
	var transferConfig config.TransferConfig
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Export, reconcile and import project metadata in one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(*cfg, transferConfig, modeFull)
		},
	}

	// Transfer command specific flags
	cmd.Flags().BoolVar(&transferConfig.DryRun, "dry-run", false, "Report what would be imported without writing to GitHub")
	cmd.Flags().BoolVar(&transferConfig.ForceExport, "force-export", false, "Ignore an existing snapshot and export again")
	cmd.Flags().BoolVar(&transferConfig.SkipValidation, "skip-validation", false, "Downgrade consistency check failures to warnings")

	return cmd
}

func runTransfer(cfg config.GlobalConfig, transferConfig config.TransferConfig, mode runMode) error {
	// Initialize GitLab source
	source, err := gitlab.NewSource(cfg.GitLabToken, cfg.GitLabURL, cfg.GitLabProject)
	if err != nil {
		return fmt.Errorf("failed to create GitLab client: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリングのセットアップ（CTRL+Cなどの割り込みを処理）
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalChan)

	// シグナルハンドラ
	go func() {
		<-signalChan
		logger.Info("Received interrupt signal, shutting down...")

		// コンテキストをキャンセルして実行中の処理に停止を通知
		// 転送状態は書き込みごとに保存されるため、次回実行時に続きから再開できる
		cancel()
	}()

	// Initialize GitHub client with retry capability
	limiter := ratelimit.New(ratelimit.DefaultConfig())

	var githubClient *github.Client
	if cfg.GitHubApiToken != "" {
		githubClient = github.NewClientByPAT(cfg.GitHubApiToken, limiter)
	} else if cfg.GitHubAppID > 0 && cfg.GitHubAppInstallationID > 0 && cfg.GitHubAppPrivateKey != "" {
		githubClient, err = github.NewClientByApp(cfg.GitHubAppID, cfg.GitHubAppInstallationID, cfg.GitHubAppPrivateKey, limiter)
		if err != nil {
			return fmt.Errorf("failed to create GitHub App client: %w", err)
		}
	} else {
		logger.Fatal("GitHub token or GitHub App settings are required")
	}

	sink := github.NewSink(githubClient, cfg.GitHubOwner, cfg.GitHubRepo)
	pipeline := transfer.NewPipeline(source, sink, githubClient, transferConfig, cfg.ExportDir)

	var summary *transfer.Summary
	switch mode {
	case modeExportOnly:
		logger.Info("Export started...")
		summary, err = pipeline.Export(ctx)
	case modeImportOnly:
		logger.Info("Import started...")
		summary, err = pipeline.Import(ctx)
	default:
		logger.Info("Transfer started...")
		summary, err = pipeline.Run(ctx)
	}
	if err != nil {
		return err
	}

	logSummary(summary)
	return nil
}

func logSummary(summary *transfer.Summary) {
	if len(summary.Unmapped) > 0 {
		logger.Warn("Some snapshot authors have no GitHub account yet",
			"count", len(summary.Unmapped),
			"hint", fmt.Sprintf("fill in %s and rerun", metadata.MappingFileName))
	}

	if summary.DryRun {
		logger.Info("Dry run finished, nothing was written",
			"labels", summary.Counts.Labels,
			"milestones", summary.Counts.Milestones,
			"issues", summary.Counts.Issues,
			"comments", summary.Counts.Comments)
		return
	}

	if summary.Import == nil {
		logger.Info("Export finished",
			"labels", summary.Counts.Labels,
			"milestones", summary.Counts.Milestones,
			"issues", summary.Counts.Issues,
			"comments", summary.Counts.Comments,
			"merge_requests", summary.Counts.MergeRequests)
		return
	}

	result := summary.Import
	for _, failure := range result.Failures {
		logger.Warn("Entity was skipped", "kind", failure.Kind, "key", failure.Key, "reason", failure.Reason)
	}
	if len(result.Failures) > 0 {
		logger.Warn("Transfer finished with skipped entities, rerun to retry them", "skipped", len(result.Failures))
		return
	}
	logger.Info("Transfer completed successfully!",
		"labels_created", result.LabelsCreated,
		"milestones_created", result.MilestonesCreated,
		"issues_created", result.IssuesCreated,
		"comments_created", result.CommentsCreated,
		"issues_closed", result.IssuesClosed)
}
