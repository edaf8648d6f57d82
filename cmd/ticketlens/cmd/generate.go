package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ticketlens/ticketlens/internal/service"
)

var (
	generateTenant   string
	generateCount    int
	generateScenario string
	generateOut      string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate and commit synthetic ticket records",
	Long: `Generate asks the model backend for synthetic ticket records starting
at the tenant's next safe identifier. Candidates colliding with already
committed identifiers are dropped before anything is stored, so repeated
runs never duplicate ids.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		scenario := service.DefaultScenario()
		if generateScenario != "" {
			loaded, err := service.LoadScenario(generateScenario)
			if err != nil {
				return fmt.Errorf("loading scenario: %w", err)
			}
			scenario = loaded
		}

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		committed, err := a.generator.Generate(cmd.Context(), generateCount, generateTenant, scenario)
		if err != nil {
			return fmt.Errorf("generation: %w", err)
		}

		logger.Info("records committed", "tenant", generateTenant, "count", len(committed))
		return writeResult(generateOut, committed)
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateTenant, "tenant", "", "tenant to commit records under (required)")
	generateCmd.Flags().IntVar(&generateCount, "count", 10, "number of records to generate")
	generateCmd.Flags().StringVar(&generateScenario, "scenario", "", "YAML scenario file shaping the generated dataset")
	generateCmd.Flags().StringVar(&generateOut, "out", "", "write the committed records JSON to this file instead of stdout")
	_ = generateCmd.MarkFlagRequired("tenant")

	rootCmd.AddCommand(generateCmd)
}
