package cli

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stockroom/internal/allocation"
	"github.com/roach88/stockroom/internal/catalog"
	"github.com/roach88/stockroom/internal/correlation"
	"github.com/roach88/stockroom/internal/model"
	"github.com/roach88/stockroom/internal/payment"
)

func assertGolden(t *testing.T, name string, render func(*bytes.Buffer) error) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, render(&buf))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, buf.Bytes())
}

func TestRenderReport_Golden(t *testing.T) {
	report := allocation.Report{
		RunID:   "run-1",
		OrderID: "ORD-1",
		Status:  model.StatusProcessing,
		Items: []allocation.ItemReport{
			{Index: 0, ProductID: "netflix", Variant: "1 Month", Quantity: 2,
				Outcome: allocation.OutcomeAutoFilled, Units: []string{"NF-1M-A", "NF-1M-B"}},
			{Index: 1, ProductID: "ig-accounts", Quantity: 1,
				Outcome: allocation.OutcomeNeedsManual, Reason: allocation.ReasonManualProduct},
		},
	}
	assertGolden(t, "report_mixed", func(b *bytes.Buffer) error { return renderReport(b, report) })
}

func TestRenderOutcome_Golden(t *testing.T) {
	outcome := payment.Outcome{
		OrderID:      "ORD-2",
		From:         model.StatusPending,
		To:           model.StatusProcessing,
		Transitioned: true,
		Allocation: &allocation.Report{
			RunID:               "run-2",
			OrderID:             "ORD-2",
			Status:              model.StatusPaid,
			FulfillmentComplete: true,
			Promoted:            true,
			Items: []allocation.ItemReport{
				{Index: 0, ProductID: "spotify", Quantity: 1,
					Outcome: allocation.OutcomeAutoFilled, Units: []string{"SP-1"}},
			},
		},
	}
	assertGolden(t, "outcome_captured", func(b *bytes.Buffer) error { return renderOutcome(b, outcome) })

	dup := payment.Outcome{OrderID: "ORD-2", From: model.StatusPaid, To: model.StatusPaid, Duplicate: true}
	assertGolden(t, "outcome_duplicate", func(b *bytes.Buffer) error { return renderOutcome(b, dup) })
}

func TestRenderResult_Golden(t *testing.T) {
	res := correlation.Result{
		Reference: correlation.Reference{OrderID: "ORD-3", Index: 1},
		Lines:     []string{"ACC-9"},
		Quantity:  2,
		Overwrote: true,
		Previous:  []string{"OLD-1", "OLD-2"},
	}
	assertGolden(t, "result_short_overwrite", func(b *bytes.Buffer) error { return renderResult(b, res) })
}

func TestRenderOrder_Golden(t *testing.T) {
	o := model.Order{
		ID:           "ORD-4",
		Status:       model.StatusProcessing,
		BuyerContact: "+15550100",
		Amount:       1500,
		LineItems: []model.LineItem{
			{Product: model.ProductRef{ProductID: "netflix", VariantName: "1 Month"}, Quantity: 2,
				AssignedData: []string{"NF-1", "NF-2"}},
			{Product: model.ProductRef{ProductID: "ig-accounts"}, Quantity: 1,
				AssignedData: []string{}, FulfillmentHint: true},
		},
	}
	assertGolden(t, "order", func(b *bytes.Buffer) error { return renderOrder(b, o) })
}

func TestRenderProduct_Golden(t *testing.T) {
	p := model.Product{
		ID:             "netflix",
		Name:           "Netflix Premium",
		Mode:           model.ModeStocked,
		MainStock:      []string{"a", "b"},
		Variants:       []model.Variant{{Name: "1 Month", Stock: []string{"c"}}},
		UnitsDelivered: 3,
	}
	assertGolden(t, "product", func(b *bytes.Buffer) error { return renderProduct(b, p) })
}

func TestRenderRequests_Golden(t *testing.T) {
	o := model.Order{
		ID: "ORD-5",
		LineItems: []model.LineItem{
			{Product: model.ProductRef{ProductID: "netflix"}, Quantity: 1, AssignedData: []string{"x"}},
			{Product: model.ProductRef{ProductID: "ig-accounts"}, Quantity: 1, BuyerNote: "aged please"},
			{Product: model.ProductRef{ProductID: "gone", VariantName: "Gold"}, Quantity: 2},
		},
	}
	ig := &model.Product{ID: "ig-accounts", Name: "Instagram Account"}
	reqs := []correlation.Request{
		correlation.NewRequest(&o, 1, ig),
		correlation.NewRequest(&o, 2, nil),
	}
	assertGolden(t, "requests", func(b *bytes.Buffer) error { return renderRequests(b, reqs) })
	assertGolden(t, "requests_empty", func(b *bytes.Buffer) error { return renderRequests(b, nil) })
}

func TestRenderApply_Golden(t *testing.T) {
	res := catalog.ApplyResult{ProductsCreated: 2, ProductsUpdated: 1, OrdersCreated: 1, OrdersSkipped: 1, UnitsDropped: 2}
	assertGolden(t, "apply", func(b *bytes.Buffer) error { return renderApply(b, res) })
}
