package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/stockroom/internal/model"
)

// marshalProduct converts a product to its JSON document.
// Nil sequences are stored as [] so documents read back identically.
func marshalProduct(p model.Product) (string, error) {
	if p.MainStock == nil {
		p.MainStock = []model.StockUnit{}
	}
	if p.Variants == nil {
		p.Variants = []model.Variant{}
	}
	for i := range p.Variants {
		if p.Variants[i].Stock == nil {
			p.Variants[i].Stock = []model.StockUnit{}
		}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal product %s: %w", p.ID, err)
	}
	return string(data), nil
}

func unmarshalProduct(doc string, version int64) (model.Product, error) {
	var p model.Product
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return model.Product{}, fmt.Errorf("unmarshal product: %w", err)
	}
	p.Version = version
	return p, nil
}

func marshalOrder(o model.Order) (string, error) {
	if o.LineItems == nil {
		o.LineItems = []model.LineItem{}
	}
	for i := range o.LineItems {
		if o.LineItems[i].AssignedData == nil {
			o.LineItems[i].AssignedData = []model.StockUnit{}
		}
	}
	data, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("marshal order %s: %w", o.ID, err)
	}
	return string(data), nil
}

func unmarshalOrder(doc string, version int64) (model.Order, error) {
	var o model.Order
	if err := json.Unmarshal([]byte(doc), &o); err != nil {
		return model.Order{}, fmt.Errorf("unmarshal order: %w", err)
	}
	o.Version = version
	return o, nil
}
