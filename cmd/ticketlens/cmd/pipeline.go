package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	pipelineTenant  string
	pipelineInput   string
	pipelineContext string
	pipelineOut     string
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the phased agentic analysis pipeline",
	Long: `Pipeline runs discovery, hypothesis, targeted analysis, cross
validation, and synthesis as strictly sequential phases. Each phase sees
the accumulated output of the phases before it; a failed phase stops the
run and reports which phase broke.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := resolveInput(cmd, a, pipelineInput, pipelineTenant)
		if err != nil {
			return err
		}

		result, err := a.pipeline.Run(cmd.Context(), records, pipelineContext)
		if err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
		return writeResult(pipelineOut, result)
	},
}

func init() {
	pipelineCmd.Flags().StringVar(&pipelineTenant, "tenant", "", "tenant whose committed records to analyze")
	pipelineCmd.Flags().StringVar(&pipelineInput, "input", "", "JSON file with records to analyze (overrides --tenant)")
	pipelineCmd.Flags().StringVar(&pipelineContext, "context", "", "business context shared with every phase")
	pipelineCmd.Flags().StringVar(&pipelineOut, "out", "", "write the result JSON to this file instead of stdout")

	rootCmd.AddCommand(pipelineCmd)
}
