package allocation

import (
	"github.com/roach88/stockroom/internal/model"
)

// Outcome is the result of one allocation attempt for one line item.
type Outcome string

const (
	OutcomeAutoFilled    Outcome = "AUTO_FILLED"
	OutcomeAlreadyFilled Outcome = "ALREADY_FILLED"
	OutcomeNeedsManual   Outcome = "NEEDS_MANUAL"
)

// Reason explains a NEEDS_MANUAL outcome.
type Reason string

const (
	ReasonInsufficientStock Reason = "INSUFFICIENT_STOCK"
	ReasonManualProduct     Reason = "MANUAL_PRODUCT"
	ReasonExternalProduct   Reason = "EXTERNAL_PRODUCT"
	ReasonProductMissing    Reason = "PRODUCT_MISSING"
	ReasonVariantMissing    Reason = "VARIANT_MISSING"
	// ReasonExcessUnits marks an item holding more units than its quantity.
	ReasonExcessUnits Reason = "EXCESS_UNITS"
)

// Err maps a reason onto the core error taxonomy. These errors are never
// returned by Allocate; they let callers classify NEEDS_MANUAL items.
// ReasonExcessUnits has no counterpart and maps to nil.
func (r Reason) Err() error {
	switch r {
	case ReasonInsufficientStock:
		return model.ErrInsufficientStock
	case ReasonManualProduct, ReasonExternalProduct:
		return model.ErrManualOrExternalProduct
	case ReasonProductMissing:
		return model.ErrProductNotFound
	case ReasonVariantMissing:
		return model.ErrVariantNotFound
	}
	return nil
}

// ItemReport is the per-line-item part of a Report.
type ItemReport struct {
	Index     int     `json:"index"`
	ProductID string  `json:"product_id"`
	Variant   string  `json:"variant,omitempty"`
	Quantity  int     `json:"quantity"`
	Outcome   Outcome `json:"outcome"`
	Reason    Reason  `json:"reason,omitempty"`

	// Units holds what was assigned in this call (AUTO_FILLED only).
	Units []string `json:"units,omitempty"`
}

// Report describes one call to Allocate.
type Report struct {
	// RunID identifies the audit record. Empty when the order was already complete.
	RunID               string       `json:"run_id,omitempty"`
	OrderID             string       `json:"order_id"`
	Status              model.Status `json:"status"`
	FulfillmentComplete bool         `json:"fulfillment_complete"`

	// Promoted is set when this call moved the order from PROCESSING to PAID.
	Promoted bool         `json:"promoted,omitempty"`
	Items    []ItemReport `json:"items"`
}

// Count returns how many items ended with the given outcome.
func (r Report) Count(o Outcome) int {
	n := 0
	for _, it := range r.Items {
		if it.Outcome == o {
			n++
		}
	}
	return n
}

// NeedsManual returns the items left for an operator.
func (r Report) NeedsManual() []ItemReport {
	var out []ItemReport
	for _, it := range r.Items {
		if it.Outcome == OutcomeNeedsManual {
			out = append(out, it)
		}
	}
	return out
}
