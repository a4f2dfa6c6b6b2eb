package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/law-makers/pricewatch/internal/cache"
	"github.com/law-makers/pricewatch/internal/ui"
	"github.com/law-makers/pricewatch/internal/utils/output"
	"github.com/law-makers/pricewatch/pkg/models"
)

var (
	crawlComponentID int64
	crawlParallel    bool
	crawlFormat      string
	crawlOutput      string
	crawlNoProgress  bool
)

// crawlCmd runs one crawl pass
var crawlCmd = &cobra.Command{
	Annotations: map[string]string{sitesAnnotation: ""},
	Use:         "crawl",
	Short:       "Run one crawl pass over the catalog",
	Long: `Searches every configured site for each catalog component, picks the
best-matching result and records its price.

Outcomes are printed as a table unless --format or --output is set.`,
	Example: `  # Crawl every component
  pricewatch crawl

  # Crawl a single component on all sites at once
  pricewatch crawl --component-id 3 --parallel

  # Save the outcomes as CSV
  pricewatch crawl --output prices.csv`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().Int64Var(&crawlComponentID, "component-id", 0, "Only crawl this component")
	crawlCmd.Flags().BoolVar(&crawlParallel, "parallel", false, "Crawl sites concurrently")
	crawlCmd.Flags().StringVarP(&crawlFormat, "format", "f", "table", "Output format: table, json, csv, md or html")
	crawlCmd.Flags().StringVarP(&crawlOutput, "output", "o", "", "File to save outcomes to (format from extension)")
	crawlCmd.Flags().BoolVar(&crawlNoProgress, "no-progress", false, "Hide the progress bar")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	a := mustApp(cmd)
	ctx := cmd.Context()

	var componentID *int64
	if cmd.Flags().Changed("component-id") {
		componentID = &crawlComponentID
	}

	items, err := a.Store.Items(ctx, componentID)
	if err != nil {
		return err
	}
	total := len(items) * len(a.Sites.IDs())

	var bar *progressbar.ProgressBar
	progress := func(models.CrawlOutcome) {}
	if !crawlNoProgress && total > 0 && !a.Config.Log.JSON {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("crawling"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionThrottle(100*time.Millisecond),
		)
		progress = func(models.CrawlOutcome) { _ = bar.Add(1) }
	}

	o, err := a.NewOrchestrator(crawlParallel, progress)
	if err != nil {
		return err
	}

	outcomes, report, err := o.RunCrawl(ctx, componentID)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	log.Info().
		Str("run_id", report.RunID).
		Int("pairs", report.Pairs).
		Int("successes", report.Successes).
		Int("failures", report.Failures).
		Dur("took", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Crawl pass finished")

	if mc, ok := a.Cache.(*cache.MemoryCache); ok {
		st := mc.Stats()
		log.Debug().
			Int("entries", st.Entries).
			Uint64("hits", st.Hits).
			Uint64("misses", st.Misses).
			Float64("hit_rate", st.HitRate).
			Msg("Page cache stats")
	}

	if crawlOutput != "" {
		if err := output.Save(crawlOutput, outcomes); err != nil {
			return fmt.Errorf("save outcomes: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("✓ Saved to "+crawlOutput))
		return nil
	}

	if err := output.Write(cmd.OutOrStdout(), crawlFormat, outcomes); err != nil {
		return err
	}
	if report.Cancelled {
		return fmt.Errorf("crawl cancelled after %d of %d pairs", report.Successes+report.Failures, report.Pairs)
	}
	return nil
}
