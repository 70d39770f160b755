package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/tollgate-risk/internal/cli"
	"github.com/Veraticus/tollgate-risk/internal/common"
	"github.com/Veraticus/tollgate-risk/internal/engine"
	"github.com/Veraticus/tollgate-risk/internal/model"
	"github.com/Veraticus/tollgate-risk/internal/report"
	"github.com/Veraticus/tollgate-risk/internal/risk"
	"github.com/Veraticus/tollgate-risk/internal/service"
	"github.com/Veraticus/tollgate-risk/internal/tui"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Score one or more toll statements",
		Long: `Read toll statements, rebuild the trip ledger, derive gate-to-gate speeds
and print the premium adjustment with its eight factors.

Examples:
  # Score a CSV export
  tollrisk analyze salik-march.csv

  # Several statements at once, saved for later
  tollrisk analyze --save jan.xlsx feb.xlsx mar.pdf

  # Browse the result interactively
  tollrisk analyze --interactive statement.csv

  # Use a custom threshold ladder
  tollrisk analyze --thresholds fleet.yaml statement.csv

  # Re-score a ledger written earlier by --json
  tollrisk analyze --json march.csv > march.json
  tollrisk analyze --ledger march.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().Bool("json", false, "Print the analysis as JSON")
	cmd.Flags().BoolP("interactive", "i", false, "Browse the analysis in a terminal UI")
	cmd.Flags().Bool("save", false, "Persist the analysis as a session")
	cmd.Flags().Bool("ledger", false, "Treat FILE as a JSON trip ledger instead of a statement")
	cmd.Flags().String("thresholds", "", "YAML thresholds file (overrides risk.thresholds_file)")
	cmd.Flags().String("theme", "", "Terminal UI theme (default, catppuccin-mocha)")
	cmd.Flags().Int("ledger-rows", report.DefaultLedgerRows, "Maximum ledger rows to print")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	interactive, _ := cmd.Flags().GetBool("interactive")
	save, _ := cmd.Flags().GetBool("save")
	ledgerRows, _ := cmd.Flags().GetInt("ledger-rows")
	fromLedger, _ := cmd.Flags().GetBool("ledger")

	if interactive && asJSON {
		return common.NewUserError("--interactive and --json cannot be combined", nil)
	}
	if interactive && len(args) > 1 {
		return common.NewUserError("--interactive browses a single statement", nil)
	}

	th, err := loadThresholds(cmd)
	if err != nil {
		return err
	}
	eng, err := newEngine()
	if err != nil {
		return err
	}

	hint := ""
	if save {
		hint = "Statements analyzed before the interrupt were already saved."
	}
	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, stop := interrupts.HandleInterrupts(cmd.Context(), hint)
	defer stop()

	var repo service.Repository
	if save {
		repo, err = initStorage(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer func() {
			if closeErr := repo.Close(); closeErr != nil {
				slog.Warn("Failed to close storage", "error", closeErr)
			}
		}()
	}

	var bar *progressbar.ProgressBar
	if len(args) > 1 && !asJSON {
		bar = newProgressBar(cmd.ErrOrStderr(), len(args))
	}

	analyses := make([]*engine.Analysis, 0, len(args))
	for _, path := range args {
		analyze := analyzeFile
		if fromLedger {
			analyze = analyzeLedgerFile
		}
		a, err := analyze(ctx, eng, path, th)
		if err != nil {
			return err
		}
		analyses = append(analyses, a)

		if repo != nil {
			if err := eng.Save(ctx, repo, a); err != nil {
				return fmt.Errorf("failed to save session for %s: %w", path, err)
			}
		}

		if bar != nil {
			if err := bar.Add(1); err != nil {
				slog.Warn("Failed to update progress bar", "error", err)
			}
		}
		if err := ctx.Err(); err != nil {
			if interrupts.WasInterrupted() {
				return common.NewUserError(fmt.Sprintf("Stopped after %d of %d statements", len(analyses), len(args)), err)
			}
			return err
		}
	}

	out := cmd.OutOrStdout()
	switch {
	case asJSON:
		return writeAnalysesJSON(out, analyses)
	case interactive:
		return tui.Run(ctx, analyses[0], themeFor(cmd))
	}

	formatter := report.NewCLIFormatter(ledgerRows)
	for _, a := range analyses {
		fmt.Fprintln(out, formatter.FormatAnalysis(a))
		if save {
			fmt.Fprintln(out, cli.FormatSuccess("Saved session "+a.SessionID))
		}
	}
	return nil
}

func analyzeFile(ctx context.Context, eng *engine.Engine, path string, th risk.Thresholds) (*engine.Analysis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("Cannot open %s", path), err)
	}
	defer f.Close()

	a, err := eng.Analyze(ctx, filepath.Base(path), f, th)
	if err != nil {
		var userErr *common.UserError
		if errors.As(common.AsUserError(err), &userErr) {
			return nil, common.NewUserError(path+": "+userErr.UserMessage, err)
		}
		return nil, fmt.Errorf("failed to analyze %s: %w", path, err)
	}
	return a, nil
}

// ledgerFile accepts a bare trip array or any object with a "trips" key,
// including the output of analyze --json.
type ledgerFile struct {
	Source    string             `json:"source"`
	Trips     []model.TripRecord `json:"trips"`
	Synthetic bool               `json:"synthetic"`
}

func analyzeLedgerFile(_ context.Context, eng *engine.Engine, path string, th risk.Thresholds) (*engine.Analysis, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("Cannot open %s", path), err)
	}

	var ledger ledgerFile
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &ledger.Trips)
	} else {
		err = json.Unmarshal(data, &ledger)
	}
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("%s is not a JSON trip ledger", path), err)
	}
	if len(ledger.Trips) == 0 {
		return nil, common.AsUserError(fmt.Errorf("%w: %s", common.ErrEmptyResult, path))
	}
	if ledger.Source == "" {
		ledger.Source = filepath.Base(path)
	}

	return eng.AnalyzeLedger(ledger.Source, ledger.Trips, th, ledger.Synthetic)
}

func writeAnalysesJSON(w io.Writer, analyses []*engine.Analysis) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(analyses) == 1 {
		return enc.Encode(analyses[0])
	}
	return enc.Encode(analyses)
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Scoring statements...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}
