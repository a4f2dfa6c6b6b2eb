package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/law-makers/pricewatch/internal/api"
	"github.com/law-makers/pricewatch/internal/scheduler"
)

var serveNoSchedule bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the recurring crawl schedule",
	Long: `Serves the REST API and runs a full crawl pass on the configured schedule.
A pass that is still running when the next one is due is skipped.`,
	Example: `  # Serve on :8080 and crawl every 15 minutes
  pricewatch serve

  # Crawl hourly on a custom port
  pricewatch serve --addr :9090 --schedule "@every 1h"

  # API only
  pricewatch serve --no-schedule`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default :8080)")
	serveCmd.Flags().String("schedule", "", "Cron spec for crawl passes (default \"@every 15m\")")
	serveCmd.Flags().BoolVar(&serveNoSchedule, "no-schedule", false, "Disable scheduled crawls")
}

func runServe(cmd *cobra.Command, args []string) error {
	a := mustApp(cmd)
	cfg := a.Config.Server

	srv := api.NewServer(a.Orchestrator, a.Store, api.Options{
		AllowedOrigins: cfg.AllowedOrigins,
	})

	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.Addr)
	})

	if !serveNoSchedule {
		sched, err := scheduler.New(a.Orchestrator, cfg.Schedule)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return sched.Run(ctx)
		})
	} else {
		log.Info().Msg("Scheduled crawls disabled")
	}

	return g.Wait()
}
