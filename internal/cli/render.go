package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/stockroom/internal/allocation"
	"github.com/roach88/stockroom/internal/catalog"
	"github.com/roach88/stockroom/internal/correlation"
	"github.com/roach88/stockroom/internal/model"
	"github.com/roach88/stockroom/internal/payment"
)

// Text renderers. Each writes the human form of one command result; the
// JSON form is the value itself.

func renderApply(w io.Writer, res catalog.ApplyResult) error {
	fmt.Fprintf(w, "Products: %d created, %d updated\n", res.ProductsCreated, res.ProductsUpdated)
	fmt.Fprintf(w, "Orders:   %d created, %d already present\n", res.OrdersCreated, res.OrdersSkipped)
	if res.UnitsDropped > 0 {
		fmt.Fprintf(w, "Dropped %d stock unit(s) already delivered to other orders\n", res.UnitsDropped)
	}
	return nil
}

func renderReport(w io.Writer, r allocation.Report) error {
	fmt.Fprintf(w, "Order %s: %s", r.OrderID, r.Status)
	if r.Promoted {
		fmt.Fprint(w, " (promoted)")
	}
	fmt.Fprintln(w)
	if r.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", r.RunID)
	}
	for _, it := range r.Items {
		product := it.ProductID
		if it.Variant != "" {
			product += " / " + it.Variant
		}
		fmt.Fprintf(w, "  [%d] %-14s %s x%d", it.Index, it.Outcome, product, it.Quantity)
		if it.Reason != "" {
			fmt.Fprintf(w, " (%s)", it.Reason)
		}
		fmt.Fprintln(w)
		for _, u := range it.Units {
			fmt.Fprintf(w, "        %s\n", u)
		}
	}
	fmt.Fprintf(w, "Fulfillment: %s\n", completeness(r.FulfillmentComplete))
	if n := len(r.NeedsManual()); n > 0 {
		fmt.Fprintf(w, "%d item(s) need an operator; run `stockroom requests %s`\n", n, r.OrderID)
	}
	return nil
}

func renderOutcome(w io.Writer, o payment.Outcome) error {
	switch {
	case o.Duplicate:
		fmt.Fprintf(w, "Order %s: duplicate event ignored (status %s)\n", o.OrderID, o.To)
	case o.Transitioned:
		fmt.Fprintf(w, "Order %s: %s -> %s\n", o.OrderID, o.From, o.To)
	default:
		fmt.Fprintf(w, "Order %s: unchanged (status %s)\n", o.OrderID, o.To)
	}
	if o.Allocation != nil {
		return renderReport(w, *o.Allocation)
	}
	return nil
}

func renderResult(w io.Writer, r correlation.Result) error {
	fmt.Fprintf(w, "Order %s item %d: %d of %d unit(s) stored\n",
		r.Reference.OrderID, r.Reference.Index, len(r.Lines), r.Quantity)
	if r.Overwrote {
		fmt.Fprintf(w, "Replaced previous data (%d unit(s))\n", len(r.Previous))
	}
	if r.Short() {
		fmt.Fprintf(w, "Warning: %d unit(s) short\n", r.Quantity-len(r.Lines))
	}
	fmt.Fprintf(w, "Fulfillment: %s\n", completeness(r.FulfillmentComplete))
	return nil
}

func renderOrder(w io.Writer, o model.Order) error {
	fmt.Fprintf(w, "Order %s\n", o.ID)
	fmt.Fprintf(w, "  Status:      %s\n", o.Status)
	fmt.Fprintf(w, "  Fulfillment: %s\n", completeness(o.FulfillmentComplete))
	if o.BuyerContact != "" {
		fmt.Fprintf(w, "  Buyer:       %s\n", o.BuyerContact)
	}
	if o.Amount != 0 {
		fmt.Fprintf(w, "  Amount:      %d\n", o.Amount)
	}
	for i, li := range o.LineItems {
		product := li.Product.ProductID
		if li.Product.VariantName != "" {
			product += " / " + li.Product.VariantName
		}
		fmt.Fprintf(w, "  [%d] %s x%d (%d assigned)", i, product, li.Quantity, len(li.AssignedData))
		if li.FulfillmentHint {
			fmt.Fprint(w, " manual")
		}
		fmt.Fprintln(w)
		for _, u := range li.AssignedData {
			fmt.Fprintf(w, "      %s\n", u)
		}
	}
	return nil
}

func renderProduct(w io.Writer, p model.Product) error {
	fmt.Fprintf(w, "Product %s (%s)\n", p.ID, p.DisplayName())
	fmt.Fprintf(w, "  Mode:      %s\n", p.Mode)
	if p.ServiceCode != "" {
		fmt.Fprintf(w, "  Service:   %s\n", p.ServiceCode)
	}
	fmt.Fprintf(w, "  Stock:     %d\n", len(p.MainStock))
	for _, v := range p.Variants {
		fmt.Fprintf(w, "  Variant %q: %d\n", v.Name, len(v.Stock))
	}
	fmt.Fprintf(w, "  Delivered: %d\n", p.UnitsDelivered)
	return nil
}

func renderRequests(w io.Writer, reqs []correlation.Request) error {
	if len(reqs) == 0 {
		fmt.Fprintln(w, "No pending requests")
		return nil
	}
	for i, r := range reqs {
		if i > 0 {
			fmt.Fprintln(w, strings.Repeat("-", 40))
		}
		fmt.Fprintln(w, r.Text())
		fmt.Fprintf(w, "Payload: %s\n", r.Payload)
	}
	return nil
}

func renderTestResult(w io.Writer, r TestResult) error {
	if r.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}
	for _, sc := range r.Scenarios {
		mark := "✓"
		if !sc.Pass {
			mark = "✗"
		}
		line := mark + " " + sc.Name
		if sc.Golden == "updated" {
			line += " (golden updated)"
		}
		fmt.Fprintln(w, line)
		for _, e := range sc.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
	return nil
}

func completeness(done bool) string {
	if done {
		return "complete"
	}
	return "incomplete"
}
