package correlation

import (
	"context"
	"log/slog"

	"github.com/roach88/stockroom/internal/model"
	"github.com/roach88/stockroom/internal/store"
)

// Submission is an operator reply as supplied by the notification transport.
type Submission struct {
	// RawReplyText is the operator's own text: one unit per line.
	RawReplyText string

	// QuotedOriginalText is the request message the operator replied to.
	QuotedOriginalText string
}

// Result describes the line item after a resolved submission.
type Result struct {
	Reference           Reference `json:"reference"`
	Lines               []string  `json:"lines"`
	Quantity            int       `json:"quantity"`
	FulfillmentComplete bool      `json:"fulfillment_complete"`

	// Overwrote is true when the line item already held data, whether from
	// an earlier reply or from the allocation engine.
	Overwrote bool     `json:"overwrote"`
	Previous  []string `json:"previous,omitempty"`
}

// Short reports whether fewer units were submitted than ordered.
func (r Result) Short() bool {
	return len(r.Lines) < r.Quantity
}

// Resolver writes operator submissions into orders.
type Resolver struct {
	store  *store.Store
	logger *slog.Logger
}

// NewResolver creates a Resolver over the given store.
// A nil logger falls back to slog.Default().
func NewResolver(s *store.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: s, logger: logger}
}

// ResolveReply extracts the reference from the quoted request text and
// stores the reply lines in the referenced line item.
func (r *Resolver) ResolveReply(ctx context.Context, sub Submission) (Result, error) {
	ref, err := ParseReferenceText(sub.QuotedOriginalText)
	if err != nil {
		return Result{}, err
	}
	return r.ResolveReference(ctx, ref, SplitLines(sub.RawReplyText))
}

// ResolveReference stores lines as the assigned data of the referenced line
// item, clears its fulfillment hint and recomputes order completeness, all in
// one transaction. Existing data is overwritten. The number of lines is not
// checked against the ordered quantity; a short submission leaves the order
// incomplete.
func (r *Resolver) ResolveReference(ctx context.Context, ref Reference, lines []string) (Result, error) {
	if lines == nil {
		lines = []string{}
	}

	var res Result
	err := r.store.RunTx(ctx, func(tx *store.Tx) error {
		order, err := tx.Order(ref.OrderID)
		if err != nil {
			return err
		}
		if ref.Index < 0 || ref.Index >= len(order.LineItems) {
			return model.NewIndexOutOfRange(ref.OrderID, ref.Index, len(order.LineItems))
		}

		li := &order.LineItems[ref.Index]
		res = Result{
			Reference: ref,
			Lines:     lines,
			Quantity:  li.Quantity,
			Overwrote: len(li.AssignedData) > 0,
		}
		if res.Overwrote {
			res.Previous = append([]string(nil), li.AssignedData...)
		}

		li.AssignedData = append([]string(nil), lines...)
		li.FulfillmentHint = false
		order.Recompute()
		res.FulfillmentComplete = order.FulfillmentComplete

		return tx.PutOrder(order)
	})
	if err != nil {
		return Result{}, err
	}

	attrs := []any{
		"order", ref.OrderID,
		"index", ref.Index,
		"lines", len(lines),
		"quantity", res.Quantity,
		"complete", res.FulfillmentComplete,
	}
	switch {
	case res.Overwrote:
		r.logger.Warn("manual submission overwrote existing data", append(attrs, "previous", len(res.Previous))...)
	case res.Short():
		r.logger.Warn("manual submission short of ordered quantity", attrs...)
	default:
		r.logger.Info("manual submission stored", attrs...)
	}
	return res, nil
}
