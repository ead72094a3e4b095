package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/stockroom/internal/allocation"
	"github.com/roach88/stockroom/internal/model"
	"github.com/roach88/stockroom/internal/store"
)

// Allocator is the step run after an order enters PROCESSING.
// Implemented by *allocation.Engine.
type Allocator interface {
	Allocate(ctx context.Context, orderID string) (allocation.Report, error)
}

// Outcome describes what Apply did.
type Outcome struct {
	OrderID string       `json:"order_id"`
	From    model.Status `json:"from"`
	To      model.Status `json:"to"`

	// Transitioned is true when the status changed in this call.
	Transitioned bool `json:"transitioned"`

	// Duplicate is true when the identical event was already in the ledger.
	Duplicate bool `json:"duplicate"`

	// Allocation is set when the transition triggered an allocation.
	Allocation *allocation.Report `json:"allocation,omitempty"`
}

// Guard applies payment events to orders.
type Guard struct {
	store     *store.Store
	allocator Allocator
	logger    *slog.Logger
}

// NewGuard creates a Guard. allocator may be nil, in which case entering
// PROCESSING does not trigger allocation.
func NewGuard(s *store.Store, allocator Allocator, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{store: s, allocator: allocator, logger: logger}
}

// Apply records ev and moves the order's status forward if ev's target is
// strictly ahead of the current status. Anything else is a no-op.
//
// If the order enters PROCESSING, the allocator runs after the status commit.
// An allocation error is returned wrapped together with the Outcome; the
// status change stands and a later re-check can retry allocation.
func (g *Guard) Apply(ctx context.Context, ev Event) (Outcome, error) {
	target, err := ev.Kind.Target()
	if err != nil {
		return Outcome{}, err
	}
	id := ev.ID()

	var out Outcome
	err = g.store.RunTx(ctx, func(tx *store.Tx) error {
		out = Outcome{OrderID: ev.OrderID}

		order, err := tx.Order(ev.OrderID)
		if err != nil {
			return err
		}
		out.From, out.To = order.Status, order.Status

		seen, err := tx.PaymentEventSeen(id)
		if err != nil {
			return err
		}
		if seen {
			out.Duplicate = true
			return nil
		}

		tx.RecordPaymentEvent(store.PaymentEvent{
			ID:      id,
			OrderID: ev.OrderID,
			Kind:    string(ev.Kind),
			Amount:  ev.Amount,
			From:    order.Status,
			To:      target,
		})

		if !order.Status.Advances(target) {
			return nil
		}

		order.Status = target
		order.Amount = ev.Amount
		out.To = target
		out.Transitioned = true
		return tx.PutOrder(order)
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("apply %s to %s: %w", ev.Kind, ev.OrderID, err)
	}

	g.logger.Info("payment event applied",
		"order", ev.OrderID,
		"kind", ev.Kind,
		"from", out.From,
		"to", out.To,
		"transitioned", out.Transitioned,
		"duplicate", out.Duplicate,
	)

	if out.Transitioned && out.To == model.StatusProcessing && g.allocator != nil {
		report, err := g.allocator.Allocate(ctx, ev.OrderID)
		if err != nil {
			return out, fmt.Errorf("order %s is PROCESSING but allocation failed: %w", ev.OrderID, err)
		}
		out.Allocation = &report
	}
	return out, nil
}

// Confirm records an operator's confirmation that a PROCESSING order is paid
// and delivered. Confirming a PAID order is a no-op.
func (g *Guard) Confirm(ctx context.Context, orderID string) (Outcome, error) {
	var out Outcome
	err := g.store.RunTx(ctx, func(tx *store.Tx) error {
		order, err := tx.Order(orderID)
		if err != nil {
			return err
		}
		out = Outcome{OrderID: orderID, From: order.Status, To: order.Status}

		switch order.Status {
		case model.StatusPaid:
			return nil
		case model.StatusProcessing:
			order.Status = model.StatusPaid
			out.To = model.StatusPaid
			out.Transitioned = true
			return tx.PutOrder(order)
		default:
			return fmt.Errorf("%w: cannot confirm %s order", ErrInvalidTransition, order.Status)
		}
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("confirm %s: %w", orderID, err)
	}

	g.logger.Info("order confirmed", "order", orderID, "transitioned", out.Transitioned)
	return out, nil
}
