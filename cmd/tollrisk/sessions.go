package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/tollgate-risk/internal/cli"
	"github.com/Veraticus/tollgate-risk/internal/common"
	"github.com/Veraticus/tollgate-risk/internal/report"
	"github.com/spf13/cobra"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List or delete saved sessions",
		Args:  cobra.NoArgs,
		RunE:  runSessions,
	}

	cmd.Flags().Bool("json", false, "Print the sessions as JSON")
	cmd.Flags().String("delete", "", "Delete the session with this ID")

	return cmd
}

func runSessions(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	repo, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Warn("Failed to close storage", "error", closeErr)
		}
	}()

	if id, _ := cmd.Flags().GetString("delete"); id != "" {
		err := repo.DeleteSession(ctx, id)
		if errors.Is(err, common.ErrNotFound) {
			return common.NewUserError(fmt.Sprintf("No saved session %q", id), err)
		}
		if err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		fmt.Fprintln(out, cli.FormatSuccess("Deleted session "+id))
		return nil
	}

	sessions, err := repo.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sessions)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No saved sessions. Use 'tollrisk analyze --save' to create one."))
		return nil
	}
	fmt.Fprintln(out, report.NewCLIFormatter(report.DefaultLedgerRows).FormatSessions(sessions))
	return nil
}
