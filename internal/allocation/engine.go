package allocation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/stockroom/internal/correlation"
	"github.com/roach88/stockroom/internal/model"
	"github.com/roach88/stockroom/internal/store"
)

// Engine allocates stocked units to orders.
//
// Thread-safety: Allocate may be called concurrently for the same or
// different orders; consistency comes from the store's optimistic
// transactions, not from in-process locking.
type Engine struct {
	store   *store.Store
	runIDs  RunIDGenerator
	logger  *slog.Logger
	timeout time.Duration
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithRunIDGenerator overrides the UUIDv7 run id generator.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithLogger sets the engine logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTimeout bounds each Allocate call. Zero means no bound beyond the
// caller's context.
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.timeout = d
	}
}

// New creates an Engine over the given store.
func New(s *store.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  s,
		runIDs: UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Allocate attempts to fill every unfilled line item of an order from stock.
//
// Stock and manual conditions are reported per item and never returned as
// errors. Errors are structural: a missing order (model.ErrOrderNotFound),
// an exhausted retry budget (model.ErrTransactionConflict), a context
// deadline, or a storage failure. On error nothing was committed.
//
// If the order is already complete, no stock is touched and every item is
// reported ALREADY_FILLED. A PROCESSING order that ends complete is promoted
// to PAID in the same commit.
func (e *Engine) Allocate(ctx context.Context, orderID string) (Report, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	runID := e.runIDs.Generate()

	var report Report
	err := e.store.RunTx(ctx, func(tx *store.Tx) error {
		r, err := e.allocateTx(tx, orderID, runID)
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("allocate %s: %w", orderID, err)
	}

	e.logger.Info("allocation committed",
		"order", orderID,
		"run", report.RunID,
		"auto_filled", report.Count(OutcomeAutoFilled),
		"already_filled", report.Count(OutcomeAlreadyFilled),
		"needs_manual", report.Count(OutcomeNeedsManual),
		"complete", report.FulfillmentComplete,
		"status", report.Status,
	)
	for _, it := range report.NeedsManual() {
		e.logger.Debug("line item needs manual fulfillment",
			"order", orderID, "index", it.Index, "product", it.ProductID, "reason", it.Reason)
	}
	return report, nil
}

// allocateTx is the body of one transaction attempt. It only touches tx.
func (e *Engine) allocateTx(tx *store.Tx, orderID, runID string) (Report, error) {
	order, err := tx.Order(orderID)
	if err != nil {
		return Report{}, err
	}

	report := Report{OrderID: orderID}

	if order.FulfillmentComplete {
		for i, li := range order.LineItems {
			report.Items = append(report.Items, ItemReport{
				Index:     i,
				ProductID: li.Product.ProductID,
				Variant:   li.Product.VariantName,
				Quantity:  li.Quantity,
				Outcome:   OutcomeAlreadyFilled,
			})
		}
		if order.Status == model.StatusProcessing {
			order.Status = model.StatusPaid
			report.Promoted = true
			if err := tx.PutOrder(order); err != nil {
				return Report{}, err
			}
		}
		report.Status = order.Status
		report.FulfillmentComplete = true
		return report, nil
	}

	before := order.Clone()

	working := make(map[string]*model.Product)
	lookup := func(id string) (*model.Product, error) {
		if p, ok := working[id]; ok {
			return p, nil
		}
		p, ok, err := tx.Product(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			working[id] = nil
			return nil, nil
		}
		working[id] = &p
		return &p, nil
	}

	items, deliveries, touched, err := plan(&order, lookup)
	if err != nil {
		return Report{}, err
	}

	order.Recompute()
	if order.FulfillmentComplete && order.Status == model.StatusProcessing {
		order.Status = model.StatusPaid
		report.Promoted = true
	}

	for _, id := range touched {
		if err := tx.PutProduct(*working[id]); err != nil {
			return Report{}, err
		}
	}
	if orderChanged(&before, &order) {
		if err := tx.PutOrder(order); err != nil {
			return Report{}, err
		}
	}
	for _, d := range deliveries {
		tx.RecordDelivery(d)
	}

	report.RunID = runID
	report.Items = items
	report.Status = order.Status
	report.FulfillmentComplete = order.FulfillmentComplete

	data, err := json.Marshal(report)
	if err != nil {
		return Report{}, fmt.Errorf("marshal report: %w", err)
	}
	tx.RecordAllocationRun(store.AllocationRun{ID: runID, OrderID: orderID, Report: data})

	return report, nil
}

// orderChanged reports whether plan altered anything that is persisted.
func orderChanged(before, after *model.Order) bool {
	if before.Status != after.Status || before.FulfillmentComplete != after.FulfillmentComplete {
		return true
	}
	for i := range after.LineItems {
		a, b := after.LineItems[i], before.LineItems[i]
		if a.FulfillmentHint != b.FulfillmentHint || len(a.AssignedData) != len(b.AssignedData) {
			return true
		}
		for j := range a.AssignedData {
			if a.AssignedData[j] != b.AssignedData[j] {
				return true
			}
		}
	}
	return false
}

// PendingRequests builds the request-for-data messages for every line item
// of an order that is not yet filled. It reads outside any transaction; the
// result is a snapshot for the notification transport.
func (e *Engine) PendingRequests(ctx context.Context, orderID string) ([]correlation.Request, error) {
	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	products := make(map[string]*model.Product)
	var reqs []correlation.Request
	for i, li := range order.LineItems {
		if li.Filled() {
			continue
		}
		p, seen := products[li.Product.ProductID]
		if !seen {
			got, err := e.store.GetProduct(ctx, li.Product.ProductID)
			switch {
			case err == nil:
				p = &got
			case model.CodeOf(err) == model.CodeProductNotFound:
				p = nil
			default:
				return nil, err
			}
			products[li.Product.ProductID] = p
		}
		reqs = append(reqs, correlation.NewRequest(&order, i, p))
	}
	return reqs, nil
}
