package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/tollgate-risk/internal/cli"
	"github.com/Veraticus/tollgate-risk/internal/common"
	"github.com/Veraticus/tollgate-risk/internal/engine"
	"github.com/Veraticus/tollgate-risk/internal/report"
	"github.com/Veraticus/tollgate-risk/internal/risk"
	"github.com/Veraticus/tollgate-risk/internal/tui"
	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report SESSION",
		Short: "Re-score a saved session",
		Long: `Load a saved session's trip ledger and score it again. By default the
current thresholds are applied; --stored reuses the ones saved with the session.`,
		Args: cobra.ExactArgs(1),
		RunE: runReport,
	}

	cmd.Flags().Bool("json", false, "Print the analysis as JSON")
	cmd.Flags().BoolP("interactive", "i", false, "Browse the analysis in a terminal UI")
	cmd.Flags().Bool("stored", false, "Use the thresholds saved with the session")
	cmd.Flags().String("thresholds", "", "YAML thresholds file (overrides risk.thresholds_file)")
	cmd.Flags().String("theme", "", "Terminal UI theme (default, catppuccin-mocha)")
	cmd.Flags().Int("ledger-rows", report.DefaultLedgerRows, "Maximum ledger rows to print")

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	asJSON, _ := cmd.Flags().GetBool("json")
	interactive, _ := cmd.Flags().GetBool("interactive")
	stored, _ := cmd.Flags().GetBool("stored")
	ledgerRows, _ := cmd.Flags().GetInt("ledger-rows")

	eng, err := newEngine()
	if err != nil {
		return err
	}
	a, err := resumeSession(cmd, eng, args[0], nil)
	if err != nil {
		return err
	}

	if !stored {
		current, err := loadThresholds(cmd)
		if err != nil {
			return err
		}
		if current != a.Thresholds {
			saved := a.Report.TotalAdjustmentPercent
			if a, err = eng.Reevaluate(a, current); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatInfo(fmt.Sprintf(
				"Thresholds changed since the session was saved: %s with saved thresholds, %s now",
				report.FormatAdjustment(saved), report.FormatAdjustment(a.Report.TotalAdjustmentPercent))))
		}
	}

	switch {
	case asJSON:
		return writeAnalysesJSON(cmd.OutOrStdout(), []*engine.Analysis{a})
	case interactive:
		return tui.Run(ctx, a, themeFor(cmd))
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.NewCLIFormatter(ledgerRows).FormatAnalysis(a))
	return nil
}

// resumeSession rebuilds a saved analysis. A nil th scores with the
// thresholds stored in the session.
func resumeSession(cmd *cobra.Command, eng *engine.Engine, sessionID string, th *risk.Thresholds) (*engine.Analysis, error) {
	ctx := cmd.Context()

	repo, err := initStorage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Warn("Failed to close storage", "error", closeErr)
		}
	}()

	a, err := eng.Resume(ctx, repo, sessionID, th)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.NewUserError(fmt.Sprintf("No saved session %q; run 'tollrisk sessions' to list them", sessionID), err)
	}
	if errors.Is(err, engine.ErrIncompleteSession) {
		return nil, common.NewUserError(fmt.Sprintf("Session %q was not saved completely; remove it with 'tollrisk sessions --delete %s'", sessionID, sessionID), err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resume session %s: %w", sessionID, err)
	}
	return a, nil
}
