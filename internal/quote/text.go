package quote

import (
	"fmt"
	"strings"
)

// Formatter renders amounts for display.
type Formatter interface {
	Format(v float64) string
}

// RenderText returns a plain-text rendering of a stored quote. Amounts come
// from the snapshot as saved.
func RenderText(q Quote, money Formatter) string {
	var b strings.Builder

	title := q.Title
	if title == "" {
		title = "Cabinet quote"
	}
	fmt.Fprintf(&b, "%s (%s)\n", title, q.Reference)
	fmt.Fprintf(&b, "Status: %s\n", q.Status)
	fmt.Fprintf(&b, "Date: %s\n", q.CreatedAt)
	if q.CustomerEmail != "" {
		fmt.Fprintf(&b, "Customer: %s\n", q.CustomerEmail)
	}

	b.WriteString("\nItem:\n")
	fmt.Fprintf(&b, "- Cabinet: %s\n", q.Item.CabinetName)
	fmt.Fprintf(&b, "- Size: %d x %d x %d mm (W x H x D)\n", q.Item.WidthMm, q.Item.HeightMm, q.Item.DepthMm)
	for _, opt := range []struct{ label, value string }{
		{"Door style", q.Item.DoorStyle},
		{"Finish", q.Item.Finish},
		{"Colour", q.Item.Color},
	} {
		if opt.value != "" {
			fmt.Fprintf(&b, "- %s: %s\n", opt.label, opt.value)
		}
	}
	fmt.Fprintf(&b, "- Quantity: %d\n", q.Snapshot.Quantity)

	bd := q.Snapshot.Breakdown
	b.WriteString("\nBreakdown (per cabinet):\n")
	for _, line := range []struct {
		label string
		value float64
	}{
		{"Back panels", bd.BackCost},
		{"Bottom panels", bd.BottomCost},
		{"Side panels", bd.SideCost},
		{"Doors", bd.DoorCost},
		{"Hardware", bd.HardwareCost},
		{"Subtotal", bd.Subtotal},
		{"Subtotal with wastage", bd.SubtotalWithWastage},
		{"Unit price", bd.Total},
	} {
		fmt.Fprintf(&b, "- %s: %s\n", line.label, money.Format(line.value))
	}

	b.WriteString("\nAssumptions:\n")
	fmt.Fprintf(&b, "- Panel rate: %s per m2\n", money.Format(q.Item.Rates.PanelRatePerSqm))
	fmt.Fprintf(&b, "- Door rate: %s per m2\n", money.Format(q.Item.DoorRates.Total()))
	fmt.Fprintf(&b, "- Wastage: %s%%\n", percent(q.Item.Rates.WastageFactor))
	fmt.Fprintf(&b, "- Tax: %s%%\n", percent(q.Item.Rates.TaxRate))

	fmt.Fprintf(&b, "\nTotal: %s %s\n", money.Format(q.Snapshot.Total), q.Currency)
	if q.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", q.Notes)
	}

	return b.String()
}

func percent(factor float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", factor*100), "0"), ".")
}
