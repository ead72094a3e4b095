package allocation

import (
	"github.com/roach88/stockroom/internal/model"
	"github.com/roach88/stockroom/internal/store"
)

// productSource resolves a product id to a mutable working copy, or nil if
// the product does not exist. Repeated calls for the same id must return the
// same pointer so that two line items drawing on one product see each
// other's pops.
type productSource func(id string) (*model.Product, error)

// plan decides every unfilled line item of order against the products
// returned by lookup, mutating both in place. It returns the per-item
// reports, the units moved (for the delivery ledger), and the ids of the
// products whose stock changed, in first-touched order.
func plan(order *model.Order, lookup productSource) ([]ItemReport, []store.Delivery, []string, error) {
	items := make([]ItemReport, 0, len(order.LineItems))
	var deliveries []store.Delivery
	var touched []string

	for i := range order.LineItems {
		li := &order.LineItems[i]
		item := ItemReport{
			Index:     i,
			ProductID: li.Product.ProductID,
			Variant:   li.Product.VariantName,
			Quantity:  li.Quantity,
		}

		switch have := len(li.AssignedData); {
		case have == li.Quantity:
			item.Outcome = OutcomeAlreadyFilled
			items = append(items, item)
			continue
		case have > li.Quantity:
			// Stock cannot shrink an item; an operator has to trim it.
			item.Outcome = OutcomeNeedsManual
			item.Reason = ReasonExcessUnits
			li.FulfillmentHint = true
			items = append(items, item)
			continue
		}

		p, err := lookup(li.Product.ProductID)
		if err != nil {
			return nil, nil, nil, err
		}

		var stock *[]model.StockUnit
		switch {
		case p == nil:
			item.Reason = ReasonProductMissing
		case li.Product.VariantName != "":
			if v := p.Variant(li.Product.VariantName); v != nil {
				stock = &v.Stock
			} else {
				item.Reason = ReasonVariantMissing
			}
		default:
			stock = &p.MainStock
		}

		if item.Reason == "" {
			switch p.Mode {
			case model.ModeManual:
				item.Reason = ReasonManualProduct
			case model.ModeExternalAPI:
				item.Reason = ReasonExternalProduct
			default:
				if len(*stock) < li.Quantity {
					item.Reason = ReasonInsufficientStock
				}
			}
		}

		if item.Reason != "" {
			item.Outcome = OutcomeNeedsManual
			li.FulfillmentHint = true
			items = append(items, item)
			continue
		}

		// FIFO: the oldest units ship first.
		units := append([]model.StockUnit(nil), (*stock)[:li.Quantity]...)
		*stock = append([]model.StockUnit(nil), (*stock)[li.Quantity:]...)
		li.AssignedData = units
		li.FulfillmentHint = false
		p.UnitsDelivered += li.Quantity

		for _, u := range units {
			deliveries = append(deliveries, store.Delivery{
				Token:     u,
				ProductID: p.ID,
				OrderID:   order.ID,
				Index:     i,
			})
		}
		if !containsID(touched, p.ID) {
			touched = append(touched, p.ID)
		}

		item.Outcome = OutcomeAutoFilled
		item.Units = append([]string(nil), units...)
		items = append(items, item)
	}

	return items, deliveries, touched, nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
