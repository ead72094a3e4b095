package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/stockroom/internal/correlation"
	"github.com/roach88/stockroom/internal/model"
	"github.com/roach88/stockroom/internal/payment"
	"github.com/roach88/stockroom/internal/store"
)

type actionFunc func(h *Harness, ctx context.Context, args map[string]any) (any, error)

// actions maps scenario action names to the operations they drive.
var actions = map[string]actionFunc{
	"payment":  (*Harness).payment,
	"allocate": (*Harness).allocate,
	"confirm":  (*Harness).confirm,
	"resolve":  (*Harness).resolve,
	"restock":  (*Harness).restock,
	"requests": (*Harness).requests,
}

// errBadArgs marks a malformed step. It aborts the run instead of becoming
// a completion case.
var errBadArgs = errors.New("bad step args")

func (h *Harness) payment(ctx context.Context, args map[string]any) (any, error) {
	orderID, err := stringArg(args, "order")
	if err != nil {
		return nil, err
	}
	kind, err := stringArg(args, "kind")
	if err != nil {
		return nil, err
	}
	amount, err := optionalIntArg(args, "amount")
	if err != nil {
		return nil, err
	}
	return h.guard.Apply(ctx, payment.Event{OrderID: orderID, Kind: payment.EventKind(kind), Amount: amount})
}

func (h *Harness) allocate(ctx context.Context, args map[string]any) (any, error) {
	orderID, err := stringArg(args, "order")
	if err != nil {
		return nil, err
	}
	return h.engine.Allocate(ctx, orderID)
}

func (h *Harness) confirm(ctx context.Context, args map[string]any) (any, error) {
	orderID, err := stringArg(args, "order")
	if err != nil {
		return nil, err
	}
	return h.guard.Confirm(ctx, orderID)
}

func (h *Harness) resolve(ctx context.Context, args map[string]any) (any, error) {
	reply, err := stringArg(args, "reply")
	if err != nil {
		return nil, err
	}
	if ref, ok := args["ref"].(string); ok {
		r, err := correlation.ParseReference(ref)
		if err != nil {
			return nil, err
		}
		return h.resolver.ResolveReference(ctx, r, correlation.SplitLines(reply))
	}
	quoted, err := stringArg(args, "quoted")
	if err != nil {
		return nil, err
	}
	return h.resolver.ResolveReply(ctx, correlation.Submission{RawReplyText: reply, QuotedOriginalText: quoted})
}

// restock appends units to a product's main stock or to one variant,
// standing in for the restock collaborator.
func (h *Harness) restock(ctx context.Context, args map[string]any) (any, error) {
	productID, err := stringArg(args, "product")
	if err != nil {
		return nil, err
	}
	units, err := stringsArg(args, "units")
	if err != nil {
		return nil, err
	}
	variant, _ := args["variant"].(string)

	var stocked model.Product
	err = h.store.RunTx(ctx, func(tx *store.Tx) error {
		p, ok, err := tx.Product(productID)
		if err != nil {
			return err
		}
		if !ok {
			return model.NewProductNotFound(productID)
		}
		for _, u := range units {
			u = model.NormalizeUnit(u)
			if variant == "" {
				p.MainStock = append(p.MainStock, u)
				continue
			}
			v := p.Variant(variant)
			if v == nil {
				return fmt.Errorf("restock %s: %w: %q", productID, model.ErrVariantNotFound, variant)
			}
			v.Stock = append(v.Stock, u)
		}
		stocked = p
		return tx.PutProduct(p)
	})
	if err != nil {
		return nil, err
	}
	return stocked, nil
}

func (h *Harness) requests(ctx context.Context, args map[string]any) (any, error) {
	orderID, err := stringArg(args, "order")
	if err != nil {
		return nil, err
	}
	reqs, err := h.engine.PendingRequests(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if reqs == nil {
		reqs = []correlation.Request{}
	}
	return reqs, nil
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok {
		return "", fmt.Errorf("%w: %q must be a string", errBadArgs, key)
	}
	return v, nil
}

func optionalIntArg(args map[string]any, key string) (int64, error) {
	switch v := args[key].(type) {
	case nil:
		return 0, nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: %q must be an integer", errBadArgs, key)
	}
}

func stringsArg(args map[string]any, key string) ([]string, error) {
	raw, ok := args[key].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q must be a list", errBadArgs, key)
	}
	out := make([]string, 0, len(raw))
	for i, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] must be a string", errBadArgs, key, i)
		}
		out = append(out, s)
	}
	return out, nil
}

// completionCase names how a step ended: "ok" or an error code.
func completionCase(err error) string {
	if err == nil {
		return "ok"
	}
	if code := model.CodeOf(err); code != "" {
		return string(code)
	}
	switch {
	case errors.Is(err, payment.ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, payment.ErrUnknownEventKind):
		return "UNKNOWN_EVENT_KIND"
	case errors.Is(err, store.ErrUnitAlreadyDelivered):
		return "UNIT_ALREADY_DELIVERED"
	}
	return "ERROR"
}
