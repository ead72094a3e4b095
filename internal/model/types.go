package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// StockUnit is one opaque, single-use deliverable (credential, voucher code).
type StockUnit = string

// NormalizeUnit trims surrounding whitespace and NFC-normalizes a unit so that
// visually identical tokens compare equal across catalog loads and operator replies.
func NormalizeUnit(u string) StockUnit {
	return norm.NFC.String(strings.TrimSpace(u))
}

// Variant is a named partition of a product's stock.
type Variant struct {
	Name  string      `json:"name" yaml:"name"`
	Stock []StockUnit `json:"stock" yaml:"stock"`
}

// Product is an inventory document.
type Product struct {
	ID             string          `json:"id"`
	Name           string          `json:"name,omitempty"`
	Mode           FulfillmentMode `json:"fulfillment_mode"`
	ServiceCode    string          `json:"service_code,omitempty"`
	MainStock      []StockUnit     `json:"main_stock"`
	Variants       []Variant       `json:"variants"`
	UnitsDelivered int             `json:"units_delivered"`

	// Version is the optimistic concurrency token maintained by the store.
	Version int64 `json:"-"`
}

// Variant returns a pointer into p.Variants for the named variant, or nil.
func (p *Product) Variant(name string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].Name == name {
			return &p.Variants[i]
		}
	}
	return nil
}

// DisplayName falls back to the id when the product carries no name.
func (p *Product) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// Clone returns a deep copy so transactional edits never alias a snapshot.
func (p Product) Clone() Product {
	out := p
	out.MainStock = append([]StockUnit(nil), p.MainStock...)
	out.Variants = make([]Variant, len(p.Variants))
	for i, v := range p.Variants {
		out.Variants[i] = Variant{Name: v.Name, Stock: append([]StockUnit(nil), v.Stock...)}
	}
	return out
}

// ProductRef points a line item at a product and optionally one of its variants.
type ProductRef struct {
	ProductID   string `json:"product_id"`
	VariantName string `json:"variant_name,omitempty"`
}

// LineItem is one cart entry within an order.
type LineItem struct {
	Product         ProductRef  `json:"product"`
	Quantity        int         `json:"quantity"`
	AssignedData    []StockUnit `json:"assigned_data"`
	FulfillmentHint bool        `json:"fulfillment_hint"`
	BuyerNote       string      `json:"buyer_note,omitempty"`
}

// Filled reports whether the item holds exactly as many units as were ordered.
func (li LineItem) Filled() bool {
	return len(li.AssignedData) == li.Quantity
}

// Order is a customer order document.
type Order struct {
	ID                  string     `json:"id"`
	Status              Status     `json:"status"`
	FulfillmentComplete bool       `json:"fulfillment_complete"`
	LineItems           []LineItem `json:"line_items"`
	BuyerContact        string     `json:"buyer_contact,omitempty"`
	Amount              int64      `json:"amount,omitempty"`
	OperatorNote        string     `json:"operator_note,omitempty"`
	ComplaintReply      string     `json:"complaint_reply,omitempty"`
	HasOpenComplaint    bool       `json:"has_open_complaint"`

	Version int64 `json:"-"`
}

// Complete is the conjunction of Filled over every line item.
// An order without line items is complete.
func (o *Order) Complete() bool {
	for _, li := range o.LineItems {
		if !li.Filled() {
			return false
		}
	}
	return true
}

// Recompute refreshes FulfillmentComplete from the line items.
func (o *Order) Recompute() {
	o.FulfillmentComplete = o.Complete()
}

// Clone returns a deep copy of the order.
func (o Order) Clone() Order {
	out := o
	out.LineItems = make([]LineItem, len(o.LineItems))
	for i, li := range o.LineItems {
		li.AssignedData = append([]StockUnit(nil), li.AssignedData...)
		out.LineItems[i] = li
	}
	return out
}
