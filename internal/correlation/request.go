package correlation

import (
	"fmt"
	"strings"

	"github.com/roach88/stockroom/internal/model"
)

// Request asks an operator to supply data for one line item.
// It is handed to the notification transport, which renders and delivers it.
type Request struct {
	OrderID        string `json:"order_id"`
	LineItemIndex  int    `json:"line_item_index"`
	ProductName    string `json:"product_name"`
	Variant        string `json:"variant,omitempty"`
	Quantity       int    `json:"quantity"`
	BuyerNote      string `json:"buyer_note,omitempty"`
	BuyerContact   string `json:"buyer_contact,omitempty"`
	ReferenceToken string `json:"reference_token"`

	// Payload is the structured reference for transports with a metadata channel.
	Payload string `json:"payload"`
}

// NewRequest builds the request for order.LineItems[index].
// product may be nil when the referenced product no longer exists.
func NewRequest(order *model.Order, index int, product *model.Product) Request {
	li := order.LineItems[index]
	ref := Reference{OrderID: order.ID, Index: index}

	name := li.Product.ProductID
	if product != nil {
		name = product.DisplayName()
	}

	return Request{
		OrderID:        order.ID,
		LineItemIndex:  index,
		ProductName:    name,
		Variant:        li.Product.VariantName,
		Quantity:       li.Quantity,
		BuyerNote:      li.BuyerNote,
		BuyerContact:   order.BuyerContact,
		ReferenceToken: ref.Text(),
		Payload:        ref.Payload(),
	}
}

// Text renders a plain message body ending with the reference token on its
// own line, ready to be quoted back by the operator.
func (r Request) Text() string {
	var b strings.Builder
	b.WriteString("Manual fulfillment needed\n")
	fmt.Fprintf(&b, "Product: %s", r.ProductName)
	if r.Variant != "" {
		fmt.Fprintf(&b, " (%s)", r.Variant)
	}
	fmt.Fprintf(&b, "\nQuantity: %d\n", r.Quantity)
	if r.BuyerNote != "" {
		fmt.Fprintf(&b, "Note: %s\n", r.BuyerNote)
	}
	b.WriteString("Reply with one unit per line.\n")
	b.WriteString(r.ReferenceToken)
	return b.String()
}
