package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/law-makers/pricewatch/internal/store"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:     "history <component-id>",
	Short:   "Show recorded prices for a component, newest first",
	Example: `  pricewatch history 3 --limit 20`,
	Args:    cobra.ExactArgs(1),
	RunE:    runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", store.DefaultHistoryLimit, "Maximum number of records")
	historyCmd.Flags().BoolVar(&historyJSON, "as-json", false, "Print records as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if historyLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	a := mustApp(cmd)
	records, err := a.Store.PriceHistory(cmd.Context(), id, historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No prices recorded yet")
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(out, "%s  %12.2f  %-12s %s\n",
			r.Timestamp.Local().Format("2006-01-02 15:04"), r.Price, r.SiteID, r.URL)
	}
	return nil
}
