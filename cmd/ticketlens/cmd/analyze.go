package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	analyzeTenant    string
	analyzeInput     string
	analyzeChunkSize int
	analyzeGoal      string
	analyzeOut       string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run chunked batch analysis over ticket records",
	Long: `Analyze splits the ticket collection into bounded chunks, sends each
chunk to the model backend concurrently, and merges the per-record
fragments. A chunk failing is isolated; its records are reported as a
coverage gap instead of aborting the run.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := resolveInput(cmd, a, analyzeInput, analyzeTenant)
		if err != nil {
			return err
		}

		result, err := a.analyzer.RunBatchAnalysis(cmd.Context(), records, analyzeChunkSize, analyzeGoal)
		if err != nil {
			return fmt.Errorf("batch analysis: %w", err)
		}
		return writeResult(analyzeOut, result)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeTenant, "tenant", "", "tenant whose committed records to analyze")
	analyzeCmd.Flags().StringVar(&analyzeInput, "input", "", "JSON file with records to analyze (overrides --tenant)")
	analyzeCmd.Flags().IntVar(&analyzeChunkSize, "chunk-size", 0, "records per chunk (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeGoal, "goal", "", "analysis goal passed to the model")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "write the result JSON to this file instead of stdout")

	rootCmd.AddCommand(analyzeCmd)
}
