package cmd

import (
	"github.com/spf13/cobra"

	"garage-scraper/config"
	"garage-scraper/services"
	"garage-scraper/utils"
)

var (
	reportDataDir  string
	reportChartDir string
)

func init() {
	reportCmd.Flags().StringVar(&reportDataDir, "data-dir", "", "Directory holding stream CSV files (overrides DATA_DIR).")
	reportCmd.Flags().StringVar(&reportChartDir, "chart-dir", "", "Directory for rendered charts (overrides CHART_DIR).")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report [--data-dir <dir>] [--chart-dir <dir>]",
	Short: "Aggregates every stream into hourly averages and renders one trend chart per stream.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if reportDataDir != "" {
			cfg.DataDir = reportDataDir
		}
		if reportChartDir != "" {
			cfg.ChartDir = reportChartDir
		}
		logger := utils.NewLogger(cfg.Debug)

		renderer, err := services.NewRenderer(cfg.ChartDir, logger)
		if err != nil {
			return err
		}
		svc := services.NewReportService(cfg.DataDir, renderer, logger)

		entries, err := svc.Run()
		if err != nil {
			return err
		}
		svc.Print(cmd.OutOrStdout(), entries)

		failed := 0
		for _, e := range entries {
			if e.Err != nil {
				failed++
			}
		}
		logger.Info("Done. %d streams charted, %d skipped. Charts in %s",
			len(entries)-failed, failed, cfg.ChartDir)
		return nil
	},
}
