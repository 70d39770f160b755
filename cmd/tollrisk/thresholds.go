package main

import (
	"encoding/json"
	"fmt"

	"github.com/Veraticus/tollgate-risk/internal/cli"
	"github.com/Veraticus/tollgate-risk/internal/config"
	"github.com/Veraticus/tollgate-risk/internal/risk"
	"github.com/spf13/cobra"
)

func thresholdsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thresholds",
		Short: "Inspect or create risk threshold files",
	}

	cmd.AddCommand(thresholdsShowCmd())
	cmd.AddCommand(thresholdsInitCmd())

	return cmd
}

func thresholdsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective thresholds",
		Long: `Print the thresholds analyze would use: the defaults, overlaid by
risk.thresholds_file and any risk.thresholds overrides.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			th, err := loadThresholds(cmd)
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(th)
			}

			data, err := config.EncodeThresholds(th)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().Bool("json", false, "Print as JSON instead of YAML")
	cmd.Flags().String("thresholds", "", "YAML thresholds file (overrides risk.thresholds_file)")

	return cmd
}

func thresholdsInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init PATH",
		Short: "Write the default thresholds as an editable YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			path := config.ExpandPath(args[0])

			if err := config.WriteThresholdsFile(path, risk.DefaultThresholds(), force); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Wrote "+path))
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Point risk.thresholds_file at it or pass --thresholds "+path))
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "Overwrite an existing file")

	return cmd
}
