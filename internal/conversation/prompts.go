package conversation

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/capitalize-ai/quote-assistant/internal/model"
)

const (
	msgGreeting     = "Hi! I can put together a price quote for your packaging. Would you like to start a quote? (yes/no)"
	msgGreetingHelp = "Please reply yes to start a quote, or no if you don't need one right now."
	msgGoodbye      = "No problem. Message me any time you need a packaging quote."
	msgReset        = "Okay, let's start a new quote."
	msgReviewHelp   = "Reply confirm to see pricing, or tell me what to change (for example: change material)."
	msgAcceptHelp   = "Reply yes to accept this quote, or no to go back and make changes."
	msgUnavailable  = "Some of your selections are no longer in our catalog. Let's review your order."
)

var printer = message.NewPrinter(language.English)

func names(entries []model.CatalogEntry) string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return strings.Join(out, ", ")
}

func selectionNames(sel []model.Selection) string {
	out := make([]string, len(sel))
	for i, s := range sel {
		out[i] = s.Name
	}
	return strings.Join(out, ", ")
}

func notFound(kind model.CatalogKind, input string, options []model.CatalogEntry) string {
	msg := fmt.Sprintf("Sorry, I couldn't find a %s called %q.", kind, strings.TrimSpace(input))
	if len(options) == 0 {
		return msg + " Please type the exact name."
	}
	return msg + " Please type the exact name from this list: " + names(options) + "."
}

func askCategory(options []model.CatalogEntry) string {
	return "What type of packaging do you need? Options: " + names(options) + "."
}

func askProduct(category string, options []model.CatalogEntry) string {
	return fmt.Sprintf("Which %s product would you like? Options: %s.", category, names(options))
}

func askMaterial(options []model.CatalogEntry) string {
	return "Which material would you like? Options: " + names(options) + ". You can name more than one, separated by commas."
}

func askFinish(options []model.CatalogEntry) string {
	return "Which finish would you like? Options: " + names(options) + ". Reply none for no finish."
}

func askQuantity() string {
	return "How many units do you need? You can list several quantities to compare, for example: 1000, 5k, 10,000."
}

func askDimensions(d model.CollectedData) string {
	fields := d.DimensionFields[d.DimensionIndex:]
	if d.DimensionIndex == 0 {
		return fmt.Sprintf("Please enter the size as %s (unit: %s), for example 5x4.",
			strings.Join(fields, " x "), d.DimensionUnit)
	}
	return fmt.Sprintf("Thanks. What is the %s (in %s)?", fields[0], d.DimensionUnit)
}

func noDimensions(d model.CollectedData) string {
	return "I couldn't find a number in that. " + askDimensions(d)
}

func noQuantity() string {
	return "I couldn't find a quantity in that. Please enter a number such as 5000 or 5k."
}

func summary(d model.CollectedData) string {
	var b strings.Builder
	b.WriteString("Here is your order so far:\n")
	if d.Category != nil {
		fmt.Fprintf(&b, "- Category: %s\n", d.Category.Name)
	}
	if d.Product != nil {
		fmt.Fprintf(&b, "- Product: %s\n", d.Product.Name)
	}
	if len(d.Dimensions) > 0 {
		parts := make([]string, len(d.Dimensions))
		for i, dim := range d.Dimensions {
			parts[i] = fmt.Sprintf("%s %g %s", dim.Name, dim.Value, dim.Unit)
		}
		fmt.Fprintf(&b, "- Size: %s\n", strings.Join(parts, ", "))
	}
	if len(d.Materials) > 0 {
		fmt.Fprintf(&b, "- Material: %s\n", selectionNames(d.Materials))
	}
	switch {
	case len(d.Finishes) > 0:
		fmt.Fprintf(&b, "- Finish: %s\n", selectionNames(d.Finishes))
	case d.FinishesSkipped:
		b.WriteString("- Finish: none\n")
	}
	if len(d.Quantities) > 0 {
		qs := make([]string, len(d.Quantities))
		for i, q := range d.Quantities {
			qs[i] = printer.Sprintf("%d", q)
		}
		fmt.Fprintf(&b, "- Quantity: %s\n", strings.Join(qs, " / "))
	}
	if d.SKUCount > 1 {
		fmt.Fprintf(&b, "- SKUs: %d\n", d.SKUCount)
	}
	b.WriteString(msgReviewHelp)
	return b.String()
}

func quoteText(q *model.Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your quote %s for %s:\n", shortID(q.ID), q.Request.Product.Name)
	for _, t := range q.Tiers {
		printer.Fprintf(&b, "%d units: %s %.2f total (%s %.4f per unit)\n",
			t.Quantity, q.Currency, t.Total, q.Currency, t.UnitPrice)
		printer.Fprintf(&b, "  base %.2f, material %.2f, finishes %.2f", t.Base, t.MaterialCost, t.FinishCost)
		if t.SetupCost > 0 {
			printer.Fprintf(&b, ", setup %.2f", t.SetupCost)
		}
		if t.Discount > 0 {
			printer.Fprintf(&b, ", discount -%.2f (%.0f%%)", t.Discount, t.DiscountRate*100)
		}
		if t.Tax > 0 {
			printer.Fprintf(&b, ", tax %.2f", t.Tax)
		}
		if t.Shipping > 0 {
			printer.Fprintf(&b, ", shipping %.2f", t.Shipping)
		}
		b.WriteString("\n")
	}
	b.WriteString(msgAcceptHelp)
	return b.String()
}

func accepted(q *model.Quote) string {
	return fmt.Sprintf("Thank you! Quote %s is confirmed. We'll send the full document shortly.", shortID(q.ID))
}

func shortID(id string) string {
	if len(id) > 8 {
		return strings.ToUpper(id[len(id)-8:])
	}
	return strings.ToUpper(id)
}
