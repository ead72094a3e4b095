package correlation

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stockroom/internal/model"
	"github.com/roach88/stockroom/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func putOrder(t *testing.T, s *store.Store, o model.Order) {
	t.Helper()
	require.NoError(t, s.RunTx(context.Background(), func(tx *store.Tx) error {
		_, _ = tx.Order(o.ID)
		return tx.PutOrder(o)
	}))
}

func pendingOrder(id string, quantities ...int) model.Order {
	o := model.Order{ID: id, Status: model.StatusProcessing}
	for _, q := range quantities {
		o.LineItems = append(o.LineItems, model.LineItem{
			Product:         model.ProductRef{ProductID: "p1"},
			Quantity:        q,
			FulfillmentHint: true,
		})
	}
	return o
}

func TestResolveReply_FillsLineItem(t *testing.T) {
	s := setupTestStore(t)
	putOrder(t, s, pendingOrder("O2", 2))
	r := NewResolver(s, nil)

	res, err := r.ResolveReply(context.Background(), Submission{
		RawReplyText:       "ACC001\nACC002",
		QuotedOriginalText: "Manual fulfillment needed\nRef: O2 | Idx: 0",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ACC001", "ACC002"}, res.Lines)
	assert.True(t, res.FulfillmentComplete)
	assert.False(t, res.Overwrote)

	o, err := s.GetOrder(context.Background(), "O2")
	require.NoError(t, err)
	assert.Equal(t, []string{"ACC001", "ACC002"}, o.LineItems[0].AssignedData)
	assert.False(t, o.LineItems[0].FulfillmentHint)
	assert.True(t, o.FulfillmentComplete)
}

func TestResolveReply_ShortSubmissionStaysIncomplete(t *testing.T) {
	s := setupTestStore(t)
	putOrder(t, s, pendingOrder("O1", 3))
	r := NewResolver(s, nil)

	res, err := r.ResolveReply(context.Background(), Submission{
		RawReplyText:       "ONLY-ONE\n\n",
		QuotedOriginalText: "Ref: O1 | Idx: 0",
	})
	require.NoError(t, err)
	assert.True(t, res.Short())
	assert.False(t, res.FulfillmentComplete)

	o, err := s.GetOrder(context.Background(), "O1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ONLY-ONE"}, o.LineItems[0].AssignedData)
	assert.False(t, o.FulfillmentComplete)
}

func TestResolveReply_LongSubmissionStaysIncomplete(t *testing.T) {
	s := setupTestStore(t)
	putOrder(t, s, pendingOrder("O1", 1))
	r := NewResolver(s, nil)

	res, err := r.ResolveReply(context.Background(), Submission{
		RawReplyText:       "A\nB",
		QuotedOriginalText: "Ref: O1 | Idx: 0",
	})
	require.NoError(t, err)
	assert.False(t, res.Short())
	assert.False(t, res.FulfillmentComplete)

	o, err := s.GetOrder(context.Background(), "O1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, o.LineItems[0].AssignedData)
}

func TestResolveReply_OtherItemsKeepOrderIncomplete(t *testing.T) {
	s := setupTestStore(t)
	putOrder(t, s, pendingOrder("O1", 1, 1))
	r := NewResolver(s, nil)

	res, err := r.ResolveReference(context.Background(), Reference{OrderID: "O1", Index: 1}, []string{"X"})
	require.NoError(t, err)
	assert.False(t, res.FulfillmentComplete)

	res, err = r.ResolveReference(context.Background(), Reference{OrderID: "O1", Index: 0}, []string{"Y"})
	require.NoError(t, err)
	assert.True(t, res.FulfillmentComplete)
}

func TestResolveReply_LastWriteWins(t *testing.T) {
	s := setupTestStore(t)
	o := pendingOrder("O1", 1)
	o.LineItems[0].AssignedData = []string{"AUTO-1"}
	o.LineItems[0].FulfillmentHint = false
	o.FulfillmentComplete = true
	putOrder(t, s, o)
	r := NewResolver(s, nil)

	res, err := r.ResolveReference(context.Background(), Reference{OrderID: "O1", Index: 0}, []string{"MANUAL-1"})
	require.NoError(t, err)
	assert.True(t, res.Overwrote)
	assert.Equal(t, []string{"AUTO-1"}, res.Previous)

	got, err := s.GetOrder(context.Background(), "O1")
	require.NoError(t, err)
	assert.Equal(t, []string{"MANUAL-1"}, got.LineItems[0].AssignedData)
}

func TestResolveReply_DuplicateReplyIsDeterministic(t *testing.T) {
	s := setupTestStore(t)
	putOrder(t, s, pendingOrder("O1", 2))
	r := NewResolver(s, nil)
	sub := Submission{RawReplyText: "A\nB", QuotedOriginalText: "Ref: O1 | Idx: 0"}

	_, err := r.ResolveReply(context.Background(), sub)
	require.NoError(t, err)
	first, err := s.GetOrder(context.Background(), "O1")
	require.NoError(t, err)

	_, err = r.ResolveReply(context.Background(), sub)
	require.NoError(t, err)
	second, err := s.GetOrder(context.Background(), "O1")
	require.NoError(t, err)

	assert.Equal(t, first.LineItems, second.LineItems)
	assert.Equal(t, first.FulfillmentComplete, second.FulfillmentComplete)
}

func TestResolveReply_Errors(t *testing.T) {
	s := setupTestStore(t)
	putOrder(t, s, pendingOrder("O1", 1))
	r := NewResolver(s, nil)
	ctx := context.Background()

	_, err := r.ResolveReply(ctx, Submission{RawReplyText: "X", QuotedOriginalText: "no marker here"})
	assert.ErrorIs(t, err, model.ErrTokenUnparseable)

	_, err = r.ResolveReply(ctx, Submission{RawReplyText: "X", QuotedOriginalText: "Ref: MISSING | Idx: 0"})
	assert.ErrorIs(t, err, model.ErrOrderNotFound)

	_, err = r.ResolveReply(ctx, Submission{RawReplyText: "X", QuotedOriginalText: "Ref: O1 | Idx: 1"})
	assert.ErrorIs(t, err, model.ErrIndexOutOfRange)

	_, err = r.ResolveReference(ctx, Reference{OrderID: "O1", Index: -1}, []string{"X"})
	assert.ErrorIs(t, err, model.ErrIndexOutOfRange)
}

func TestNewRequest(t *testing.T) {
	o := pendingOrder("O9", 2)
	o.BuyerContact = "buyer@example.com"
	o.LineItems[0].BuyerNote = "family plan"
	o.LineItems[0].Product.VariantName = "1 month"
	p := &model.Product{ID: "p1", Name: "Streaming"}

	req := NewRequest(&o, 0, p)
	assert.Equal(t, "Streaming", req.ProductName)
	assert.Equal(t, "Ref: O9 | Idx: 0", req.ReferenceToken)
	assert.Equal(t, 2, req.Quantity)

	ref, err := ParseReferenceText(req.Text())
	require.NoError(t, err)
	assert.Equal(t, Reference{OrderID: "O9", Index: 0}, ref)

	ref, err = ParseReferencePayload(req.Payload)
	require.NoError(t, err)
	assert.Equal(t, Reference{OrderID: "O9", Index: 0}, ref)

	assert.Equal(t, "p1", NewRequest(&o, 0, nil).ProductName)
}
