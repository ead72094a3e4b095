package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/stockroom/internal/model"
	"github.com/roach88/stockroom/internal/store"
)

// ApplyResult summarizes what Apply changed.
type ApplyResult struct {
	ProductsCreated int
	ProductsUpdated int
	OrdersCreated   int
	OrdersSkipped   int
	// UnitsDropped counts stock units left out because the delivered-unit
	// ledger already assigns them to an order.
	UnitsDropped int
}

// Apply writes the catalog to s in one transaction.
//
// Products are upserted: stock and metadata are replaced while the
// delivered counter is kept. Orders are only created; an order id that
// already exists is left untouched so re-loading a seed never rewinds
// status or assigned data.
func (c *Catalog) Apply(ctx context.Context, s *store.Store, logger *slog.Logger) (ApplyResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	type skipped struct{ product, owner string }
	var res ApplyResult
	var skips []skipped
	err := s.RunTx(ctx, func(tx *store.Tx) error {
		res = ApplyResult{}
		skips = skips[:0]
		for _, p := range c.Products {
			existing, found, err := tx.Product(p.ID)
			if err != nil {
				return err
			}
			delivered := make(map[string]bool)
			for _, u := range allUnits(p) {
				owner, ok, err := tx.DeliveredUnitOwner(u)
				if err != nil {
					return err
				}
				if ok {
					skips = append(skips, skipped{product: p.ID, owner: owner})
					delivered[u] = true
				}
			}
			next := p.Clone()
			next.MainStock, res.UnitsDropped = without(next.MainStock, delivered, res.UnitsDropped)
			for i := range next.Variants {
				next.Variants[i].Stock, res.UnitsDropped = without(next.Variants[i].Stock, delivered, res.UnitsDropped)
			}
			if found {
				next.UnitsDelivered = existing.UnitsDelivered
				res.ProductsUpdated++
			} else {
				res.ProductsCreated++
			}
			if err := tx.PutProduct(next); err != nil {
				return err
			}
		}

		for _, o := range c.Orders {
			_, err := tx.Order(o.ID)
			switch {
			case err == nil:
				res.OrdersSkipped++
				continue
			case model.CodeOf(err) != model.CodeOrderNotFound:
				return err
			}
			if err := tx.PutOrder(o.Clone()); err != nil {
				return err
			}
			res.OrdersCreated++
		}
		return nil
	})
	if err != nil {
		return ApplyResult{}, fmt.Errorf("apply catalog: %w", err)
	}

	for _, sk := range skips {
		logger.Warn("skipping delivered stock unit", "product", sk.product, "order", sk.owner)
	}

	logger.Info("catalog applied",
		"products_created", res.ProductsCreated,
		"products_updated", res.ProductsUpdated,
		"orders_created", res.OrdersCreated,
		"orders_skipped", res.OrdersSkipped,
		"units_dropped", res.UnitsDropped)
	return res, nil
}

func allUnits(p model.Product) []string {
	units := append([]string(nil), p.MainStock...)
	for _, v := range p.Variants {
		units = append(units, v.Stock...)
	}
	return units
}

func without(units []string, drop map[string]bool, dropped int) ([]string, int) {
	out := make([]string, 0, len(units))
	for _, u := range units {
		if drop[u] {
			dropped++
			continue
		}
		out = append(out, u)
	}
	return out, dropped
}
