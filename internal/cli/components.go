package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/law-makers/pricewatch/internal/ui"
	"github.com/law-makers/pricewatch/pkg/models"
)

var (
	componentName         string
	componentManufacturer string
	componentCategory     string
)

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "Manage the component catalog",
}

var componentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog components",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := mustApp(cmd)
		items, err := a.Store.ListComponents(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(out, "Catalog is empty. Add a component with \"pricewatch components add\".")
			return nil
		}
		for _, it := range items {
			fmt.Fprintf(out, "%4d  %-45s %-12s %s\n", it.ID, it.Name, it.Manufacturer, ui.Info(it.Category))
		}
		return nil
	},
}

var componentsAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Add a component to the catalog",
	Example: `  pricewatch components add --name "GeForce RTX 4070" --manufacturer ZOTAC --category GPU`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := mustApp(cmd)
		item, err := a.Store.AddComponent(cmd.Context(), models.CatalogItem{
			Name:         componentName,
			Manufacturer: componentManufacturer,
			Category:     componentCategory,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("✓ Added component %d: %s", item.ID, item.Target())))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(componentsCmd)
	componentsCmd.AddCommand(componentsListCmd, componentsAddCmd)

	componentsAddCmd.Flags().StringVar(&componentName, "name", "", "Component name")
	componentsAddCmd.Flags().StringVar(&componentManufacturer, "manufacturer", "", "Manufacturer")
	componentsAddCmd.Flags().StringVar(&componentCategory, "category", "", "Category name (created if missing)")
	_ = componentsAddCmd.MarkFlagRequired("name")
	_ = componentsAddCmd.MarkFlagRequired("manufacturer")
	_ = componentsAddCmd.MarkFlagRequired("category")
}
