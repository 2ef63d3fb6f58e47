package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jvaisto/clerkbot/internal/archiver"
	"github.com/jvaisto/clerkbot/internal/config"
	"github.com/jvaisto/clerkbot/internal/mediawiki"
	"github.com/jvaisto/clerkbot/internal/metrics"
	"github.com/jvaisto/clerkbot/internal/runner"
)

// newRunCmd creates the 'run' subcommand, which performs one clerking
// pass over every configured page and exits.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one clerking pass over all configured pages",
		Long: `Fetches each configured page, annotates open threads, moves resolved
threads to their archives, and saves the results. With wiki.dry_run set
nothing is written back; the intended edits are only logged.`,

		RunE: runRunCommand,
	}
	return cmd
}

func runRunCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	metrics.Init()

	cfg := appInstance.Config()
	logger := appInstance.Logger()
	if len(cfg.Pages) == 0 {
		logger.Warn("no pages configured, nothing to do")
		return nil
	}

	eng := runner.New(appInstance.Clock(), logger.Named("runner"))
	facts := mediawiki.NewFactProvider(appInstance.Wiki(), appInstance.Clock())

	var failed int
	for _, pageCfg := range cfg.Pages {
		if err := runPage(cmd.Context(), appInstance, eng, facts, pageCfg); err != nil {
			logger.Error("page run failed",
				zap.String("page", pageCfg.Page), zap.Error(err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d page runs failed", failed, len(cfg.Pages))
	}
	logger.Info("run command finished", zap.Int("pages", len(cfg.Pages)))
	return nil
}

func runPage(
	ctx context.Context,
	appInstance App,
	eng *runner.Runner,
	facts *mediawiki.FactProvider,
	pageCfg config.PageConfig,
) error {
	logger := appInstance.Logger()
	clock := appInstance.Clock()
	wiki := appInstance.Wiki()

	task, err := runner.BuildTask(pageCfg, facts, logger.Named("annotate"))
	if err != nil {
		return err
	}

	pageText, err := wiki.PageText(ctx, pageCfg.Page)
	if err != nil {
		return err
	}
	destText, _, err := wiki.PageTextIfExists(ctx, task.Destination(clock.Now()))
	if err != nil {
		return err
	}

	result, err := eng.Run(ctx, task, runner.Input{
		PageText:             pageText,
		DestinationText:      destText,
		PreviousSectionCount: -1,
	})
	if err != nil {
		metrics.ObserveRun(pageCfg.Page, "error", 0, 0, 0)
		return err
	}

	finished := clock.Now()
	outcome := recordOutcome(result)
	metrics.ObserveRun(pageCfg.Page, outcome,
		result.ArchivedCount(), len(result.Modified), finished.Sub(result.Started))

	if err := saveResult(ctx, appInstance, pageCfg, result); err != nil {
		return err
	}

	rec := archiver.RunRecord{
		ID:            result.RunID,
		Page:          result.Page,
		Started:       result.Started,
		Finished:      finished,
		ArchivedCount: result.ArchivedCount(),
		ModifiedCount: len(result.Modified),
		Skipped:       result.Skipped,
		Summary:       result.Summary,
	}
	if err := appInstance.Runs().RecordRun(ctx, rec); err != nil {
		// Losing one history row is not worth failing the run over.
		logger.Warn("record run failed", zap.String("page", result.Page), zap.Error(err))
	}
	return nil
}

func recordOutcome(result archiver.RunResult) string {
	switch {
	case result.Skipped:
		return "skipped"
	case result.Changed:
		return "changed"
	default:
		return "unchanged"
	}
}

// saveResult writes the archive page before the source page so an
// interrupted run duplicates threads rather than losing them.
func saveResult(ctx context.Context, appInstance App, pageCfg config.PageConfig, result archiver.RunResult) error {
	logger := appInstance.Logger()
	if result.Skipped {
		logger.Info("run skipped",
			zap.String("page", result.Page), zap.String("reason", result.SkipReason))
		return nil
	}
	if !result.Changed {
		logger.Info("no changes", zap.String("page", result.Page))
		return nil
	}

	summary := result.Summary
	if pageCfg.EditSummary != "" {
		summary = pageCfg.EditSummary
	}

	if appInstance.Config().Wiki.DryRun {
		logger.Info("dry run, skipping saves",
			zap.String("page", result.Page),
			zap.String("destination", result.DestinationName),
			zap.String("summary", summary),
			zap.Int("archived", result.ArchivedCount()),
			zap.Int("modified", len(result.Modified)))
		metrics.ObserveEdit("dry_run")
		return nil
	}

	wiki := appInstance.Wiki()
	if result.DestinationName != "" {
		if err := wiki.SavePage(ctx, result.DestinationName, result.DestinationText, summary); err != nil {
			metrics.ObserveEdit("error")
			return fmt.Errorf("save archive: %w", err)
		}
		metrics.ObserveEdit("saved")
	}
	if err := wiki.SavePage(ctx, result.Page, result.NewText, summary); err != nil {
		metrics.ObserveEdit("error")
		return fmt.Errorf("save page: %w", err)
	}
	metrics.ObserveEdit("saved")
	return nil
}
