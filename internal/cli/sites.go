package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/law-makers/pricewatch/internal/ui"
)

var sitesCmd = &cobra.Command{
	Annotations: map[string]string{sitesAnnotation: ""},
	Use:         "sites",
	Short:       "List the configured site profiles",
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := mustApp(cmd)
		for _, p := range a.Sites.All() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s %s\n",
				ui.Bold(p.ID), p.Name, ui.Info("("+string(p.FetchMode())+")"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sitesCmd)
}
