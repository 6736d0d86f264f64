package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/capitalize-ai/quote-assistant/internal/model"
	"github.com/capitalize-ai/quote-assistant/internal/service"
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Price an order by catalog names",
	Long:  "Resolves each name against the catalog and prints one row per quantity tier.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		resolver, err := loadCatalog()
		if err != nil {
			return err
		}

		// Build request from flags
		f := cmd.Flags()
		var req model.PriceRequest
		req.Category, _ = f.GetString("category")
		req.Product, _ = f.GetString("product")
		req.Materials, _ = f.GetStringSlice("material")
		req.Finishes, _ = f.GetStringSlice("finish")
		req.Dimensions, _ = f.GetFloat64Slice("dims")
		req.Quantities, _ = f.GetIntSlice("qty")
		req.SKUCount, _ = f.GetInt("skus")

		// Price all tiers
		quote, err := service.NewPriceService(resolver, newEngine()).Quote(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printQuote(cmd, quote)
	},
}

func init() {
	f := priceCmd.Flags()
	f.String("category", "", "category name")
	f.String("product", "", "product name")
	f.StringSlice("material", nil, "material names")
	f.StringSlice("finish", nil, "finish names")
	f.Float64Slice("dims", nil, "dimensions in the product's field order, e.g. 5,4")
	f.IntSlice("qty", nil, "quantity tiers, e.g. 1000,5000")
	f.Int("skus", 1, "number of designs")
	_ = priceCmd.MarkFlagRequired("product")
	_ = priceCmd.MarkFlagRequired("dims")
	_ = priceCmd.MarkFlagRequired("qty")
	rootCmd.AddCommand(priceCmd)
}

func printQuote(cmd *cobra.Command, q *model.Quote) error {
	p := message.NewPrinter(language.English)
	out := cmd.OutOrStdout()

	p.Fprintf(out, "%s (%s)\n", q.Request.Product.Name, q.Currency)
	// Header, then one row per tier
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "QTY\tSUBTOTAL\tDISCOUNT\tTAX\tSHIPPING\tTOTAL\tUNIT\t")
	for _, t := range q.Tiers {
		fmt.Fprint(w, p.Sprintf("%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.4f\t\n",
			t.Quantity, t.Subtotal, t.Discount, t.Tax, t.Shipping, t.Total, t.UnitPrice))
	}
	return w.Flush()
}
