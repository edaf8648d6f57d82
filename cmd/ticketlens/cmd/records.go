package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	recordsTenant string
	recordsOut    string
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List a tenant's committed ticket records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.store.ListRecords(cmd.Context(), recordsTenant)
		if err != nil {
			return fmt.Errorf("listing records: %w", err)
		}
		return writeResult(recordsOut, records)
	},
}

func init() {
	recordsCmd.Flags().StringVar(&recordsTenant, "tenant", "", "tenant to list (required)")
	recordsCmd.Flags().StringVar(&recordsOut, "out", "", "write the records JSON to this file instead of stdout")
	_ = recordsCmd.MarkFlagRequired("tenant")

	rootCmd.AddCommand(recordsCmd)
}
