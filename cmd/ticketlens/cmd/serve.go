package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ticketlens/ticketlens/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serve exposes the analysis engine over HTTP: batch analysis, the
phased pipeline, parallel agents, generation, record listing, and the
diagnostic flow buffer. Shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := api.NewServer(api.Dependencies{
			Analyzer:  a.analyzer,
			Pipeline:  a.pipeline,
			Agents:    a.agents,
			Generator: a.generator,
			Store:     a.store,
			Flows:     a.flows,
			Perf:      a.perf,
		},
			api.WithLogger(logger),
			api.WithCORSOrigins(cfg.Server.CORSOrigins),
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
