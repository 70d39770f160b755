package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Veraticus/tollgate-risk/internal/cli"
	"github.com/Veraticus/tollgate-risk/internal/common"
	"github.com/Veraticus/tollgate-risk/internal/config"
	"github.com/Veraticus/tollgate-risk/internal/engine"
	"github.com/Veraticus/tollgate-risk/internal/report"
	"github.com/Veraticus/tollgate-risk/internal/risk"
	"github.com/Veraticus/tollgate-risk/internal/service"
	"github.com/Veraticus/tollgate-risk/internal/sheets"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export SESSION",
		Short: "Export a saved session to Google Sheets",
		Long: `Write a saved session to a Google Sheets spreadsheet with Risk, Trips and
Speed tabs. Existing tabs are cleared and rewritten.

Authentication uses either a service account (sheets.service_account_path) or
OAuth2 client credentials. With OAuth2, run once with --login to store a
refresh token.`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}

	cmd.Flags().Bool("login", false, "Run the browser OAuth2 flow before exporting")
	cmd.Flags().Bool("stored", false, "Use the thresholds saved with the session")
	cmd.Flags().String("thresholds", "", "YAML thresholds file (overrides risk.thresholds_file)")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if login, _ := cmd.Flags().GetBool("login"); login {
		oauthCfg := config.LoadOAuth2Config()
		if oauthCfg.ClientID == "" || oauthCfg.ClientSecret == "" {
			return common.NewUserError("--login needs sheets.client_id and sheets.client_secret", common.ErrMissingConfig)
		}
		if _, err := sheets.GetOrCreateToken(ctx, oauthCfg); err != nil {
			return fmt.Errorf("google sheets login failed: %w", err)
		}
	}

	var th *risk.Thresholds
	if stored, _ := cmd.Flags().GetBool("stored"); !stored {
		current, err := loadThresholds(cmd)
		if err != nil {
			return err
		}
		th = &current
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	a, err := resumeSession(cmd, eng, args[0], th)
	if err != nil {
		return err
	}

	sheetsCfg, err := config.LoadSheetsConfig()
	if err != nil {
		return common.NewUserError("Google Sheets is not configured; see 'tollrisk export --help'", err)
	}

	writer, err := sheets.NewWriter(ctx, *sheetsCfg, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create sheets writer: %w", err)
	}

	return exportAnalysis(ctx, cmd.OutOrStdout(), writer, a)
}

func exportAnalysis(ctx context.Context, out io.Writer, w service.ReportWriter, a *engine.Analysis) error {
	if err := w.Write(ctx, a.Summary()); err != nil {
		return fmt.Errorf("failed to export session %s: %w", a.SessionID, err)
	}
	fmt.Fprintln(out, cli.RenderBox("Google Sheets", strings.Join([]string{
		cli.FormatSuccess(fmt.Sprintf("Exported session %s (%d trips)", a.SessionID, len(a.Trips))),
		fmt.Sprintf("Premium adjustment: %s", report.FormatAdjustment(a.Report.TotalAdjustmentPercent)),
		fmt.Sprintf("Driver profile: %s", a.Report.DriverProfile),
	}, "\n")))
	return nil
}
