package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/law-makers/pricewatch/internal/ui"
	"github.com/law-makers/pricewatch/internal/utils/output"
	"github.com/law-makers/pricewatch/pkg/models"
)

var bestPriceFormat string

var bestPriceCmd = &cobra.Command{
	Annotations: map[string]string{sitesAnnotation: ""},
	Use:         "best-price <component-id>",
	Short:       "Find the lowest current price for one component",
	Long: `Crawls every site for the component and reports the cheapest accepted
price. Prices found along the way are recorded.`,
	Example: `  pricewatch best-price 3
  pricewatch best-price 3 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runBestPrice,
}

func init() {
	rootCmd.AddCommand(bestPriceCmd)
	bestPriceCmd.Flags().StringVarP(&bestPriceFormat, "format", "f", "table", "Output format: table, json, csv, md or html")
}

func runBestPrice(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	a := mustApp(cmd)
	best, err := a.Orchestrator.GetBestPrice(cmd.Context(), id)
	if err != nil {
		return err
	}

	if bestPriceFormat == "table" {
		s := best.Success
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s on %s\n  %s\n  %s\n",
			ui.Price(s.Currency, s.Price),
			best.ComponentName, best.SiteID, s.MatchedTitle, ui.Info(s.URL))
		return nil
	}
	return output.Write(cmd.OutOrStdout(), bestPriceFormat, []models.CrawlOutcome{best})
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid component id %q", s)
	}
	return id, nil
}
