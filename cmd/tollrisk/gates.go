package main

import (
	"encoding/json"
	"fmt"

	"github.com/Veraticus/tollgate-risk/internal/report"
	"github.com/Veraticus/tollgate-risk/internal/tollnet"
	"github.com/spf13/cobra"
)

func gatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gates",
		Short: "Show the toll gate network",
		Long:  `List every known gate in route order with its distance to the next gate and the posted limit.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gates := tollnet.Default().Gates()

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(gates)
			}

			fmt.Fprintln(cmd.OutOrStdout(), report.NewCLIFormatter(report.DefaultLedgerRows).FormatGates(gates))
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "Print as JSON")

	return cmd
}
