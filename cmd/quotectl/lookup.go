package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/quote-assistant/internal/model"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <text>",
	Short: "Resolve free text against the catalog",
	Long:  "Looks text up the way the assistant does and prints the matching catalog entry.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := loadCatalog()
		if err != nil {
			return err
		}

		kind, _ := cmd.Flags().GetString("kind")
		category, _ := cmd.Flags().GetString("category")
		text := strings.Join(args, " ")

		// Resolve against the requested list
		ctx := cmd.Context()
		var entry model.CatalogEntry
		switch model.CatalogKind(kind) {
		case model.KindCategory:
			entry, err = resolver.Category(ctx, text)
		case model.KindProduct:
			entry, err = resolver.Product(ctx, text, category)
		case model.KindMaterial:
			entry, err = resolver.Material(ctx, text, category)
		case model.KindFinish:
			entry, err = resolver.Finish(ctx, text, category)
		default:
			return fmt.Errorf("unknown kind %q", kind)
		}
		if err != nil {
			return err
		}

		// Print entry as JSON
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entry)
	},
}

func init() {
	f := lookupCmd.Flags()
	f.String("kind", string(model.KindProduct), "catalog list: category, product, material or finish")
	f.String("category", "", "category id scoping product, material and finish lookups")
	rootCmd.AddCommand(lookupCmd)
}
