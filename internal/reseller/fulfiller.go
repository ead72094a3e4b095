package reseller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/stockroom/internal/correlation"
	"github.com/roach88/stockroom/internal/model"
	"github.com/roach88/stockroom/internal/store"
)

// ErrNotExternal is returned when the referenced product is not EXTERNAL_API.
var ErrNotExternal = errors.New("product is not fulfilled through the reseller API")

// Fulfiller delivers an EXTERNAL_API line item and records the result.
type Fulfiller struct {
	store    *store.Store
	api      Deliverer
	resolver *correlation.Resolver
	logger   *slog.Logger
}

// NewFulfiller wires a Deliverer to the store through a Resolver.
func NewFulfiller(s *store.Store, api Deliverer, resolver *correlation.Resolver, logger *slog.Logger) *Fulfiller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fulfiller{store: s, api: api, resolver: resolver, logger: logger}
}

// Fulfill requests the units still missing from the referenced line item
// and stores them after the ones it already holds. A line item that already
// holds its full quantity is returned as is, without calling the API, so a
// repeated delivery request never pays the reseller twice. If the API fails
// part way, the units delivered so far are stored (leaving the order
// incomplete) and an error matching model.ErrExternalServiceFailure is
// returned; a later Fulfill requests only the remainder.
func (f *Fulfiller) Fulfill(ctx context.Context, ref correlation.Reference, target string) (correlation.Result, error) {
	order, err := f.store.GetOrder(ctx, ref.OrderID)
	if err != nil {
		return correlation.Result{}, err
	}
	if ref.Index < 0 || ref.Index >= len(order.LineItems) {
		return correlation.Result{}, model.NewIndexOutOfRange(ref.OrderID, ref.Index, len(order.LineItems))
	}
	li := order.LineItems[ref.Index]

	product, err := f.store.GetProduct(ctx, li.Product.ProductID)
	if err != nil {
		return correlation.Result{}, err
	}
	if product.Mode != model.ModeExternalAPI {
		return correlation.Result{}, fmt.Errorf("%w: %s is %s", ErrNotExternal, product.ID, product.Mode)
	}

	have := len(li.AssignedData)
	if have >= li.Quantity {
		f.logger.Info("line item already delivered, reseller not called",
			"order", ref.OrderID, "index", ref.Index, "units", have)
		return correlation.Result{
			Reference:           ref,
			Lines:               append([]string{}, li.AssignedData...),
			Quantity:            li.Quantity,
			FulfillmentComplete: order.FulfillmentComplete,
		}, nil
	}

	units := append([]string{}, li.AssignedData...)
	var apiErr error
	for i := have; i < li.Quantity; i++ {
		unit, err := f.api.Deliver(ctx, product.ServiceCode, target)
		if err != nil {
			apiErr = err
			break
		}
		units = append(units, model.NormalizeUnit(unit))
	}

	if apiErr != nil {
		f.logger.Error("reseller delivery failed",
			"order", ref.OrderID, "index", ref.Index, "service", product.ServiceCode,
			"delivered", len(units)-have, "missing", li.Quantity-have, "error", apiErr)
		if len(units) == have {
			return correlation.Result{}, model.NewExternalServiceFailure(ref.OrderID, ref.Index, apiErr)
		}
	}

	res, err := f.resolver.ResolveReference(ctx, ref, units)
	if err != nil {
		return correlation.Result{}, err
	}
	if apiErr != nil {
		return res, model.NewExternalServiceFailure(ref.OrderID, ref.Index, apiErr)
	}
	return res, nil
}
