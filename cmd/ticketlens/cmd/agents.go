package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ticketlens/ticketlens/internal/core"
)

var (
	agentsTasksFile string
	agentsOut       string
)

// agentsFile is the on-disk shape of an agent run definition.
type agentsFile struct {
	Tasks     []core.AgentTask `json:"tasks"`
	Synthesis *core.AgentTask  `json:"synthesis,omitempty"`
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Fan tasks out to parallel specialist agents",
	Long: `Agents runs logically independent specialist tasks concurrently and
aggregates their results. A failing agent degrades the aggregate rather
than aborting its siblings. When the task file defines a synthesis task
it runs afterwards over all specialist outputs, failed ones included.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := os.ReadFile(agentsTasksFile)
		if err != nil {
			return fmt.Errorf("reading tasks file: %w", err)
		}
		var run agentsFile
		if err := json.Unmarshal(data, &run); err != nil {
			return fmt.Errorf("parsing tasks file %s: %w", agentsTasksFile, err)
		}

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		var result interface{}
		if run.Synthesis != nil {
			result, err = a.agents.RunWithSynthesis(cmd.Context(), run.Tasks, *run.Synthesis)
		} else {
			result, err = a.agents.RunAgents(cmd.Context(), run.Tasks)
		}
		if err != nil {
			return fmt.Errorf("agent run: %w", err)
		}
		return writeResult(agentsOut, result)
	},
}

func init() {
	agentsCmd.Flags().StringVar(&agentsTasksFile, "tasks", "", "JSON file defining the agent tasks (required)")
	agentsCmd.Flags().StringVar(&agentsOut, "out", "", "write the result JSON to this file instead of stdout")
	_ = agentsCmd.MarkFlagRequired("tasks")

	rootCmd.AddCommand(agentsCmd)
}
