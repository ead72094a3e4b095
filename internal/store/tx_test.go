package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stockroom/internal/model"
)

func TestRunTx_InsertAndRead(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seedProduct(t, s, model.Product{ID: "p1", Mode: model.ModeStocked, MainStock: []string{"U1", "U2"}})
	seedOrder(t, s, model.Order{
		ID:     "o1",
		Status: model.StatusPending,
		LineItems: []model.LineItem{
			{Product: model.ProductRef{ProductID: "p1"}, Quantity: 1},
		},
	})

	p, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"U1", "U2"}, p.MainStock)
	assert.Equal(t, int64(1), p.Version)
	assert.NotNil(t, p.Variants)

	o, err := s.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, o.Status)
	require.Len(t, o.LineItems, 1)
	assert.NotNil(t, o.LineItems[0].AssignedData)
	assert.Empty(t, o.LineItems[0].AssignedData)
}

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrder(ctx, "nope")
	assert.ErrorIs(t, err, model.ErrOrderNotFound)

	_, err = s.GetProduct(ctx, "nope")
	assert.ErrorIs(t, err, model.ErrProductNotFound)
}

func TestRunTx_UpdateBumpsVersion(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, model.Product{ID: "p1", Mode: model.ModeStocked})

	err := s.RunTx(ctx, func(tx *Tx) error {
		p, ok, err := tx.Product("p1")
		require.True(t, ok)
		if err != nil {
			return err
		}
		p.UnitsDelivered = 7
		return tx.PutProduct(p)
	})
	require.NoError(t, err)

	p, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 7, p.UnitsDelivered)
	assert.Equal(t, int64(2), p.Version)
}

func TestRunTx_PutWithoutRead(t *testing.T) {
	s := createTestStore(t)

	err := s.RunTx(context.Background(), func(tx *Tx) error {
		return tx.PutOrder(model.Order{ID: "o1", Status: model.StatusPending})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "was not read")
}

func TestRunTx_CallbackErrorAbortsWithoutRetry(t *testing.T) {
	s := createTestStore(t)
	seedProduct(t, s, model.Product{ID: "p1", Mode: model.ModeStocked})

	boom := errors.New("boom")
	calls := 0
	err := s.RunTx(context.Background(), func(tx *Tx) error {
		calls++
		p, _, err := tx.Product("p1")
		if err != nil {
			return err
		}
		p.UnitsDelivered = 99
		if err := tx.PutProduct(p); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)

	p, err := s.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.UnitsDelivered, "buffered write must not leak")
}

func TestRunTx_RetriesAfterConcurrentWrite(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, model.Product{ID: "p1", Mode: model.ModeStocked, MainStock: []string{"A", "B", "C"}})

	attempts := 0
	err := s.RunTx(ctx, func(tx *Tx) error {
		attempts++
		p, _, err := tx.Product("p1")
		if err != nil {
			return err
		}
		if attempts == 1 {
			// Another writer pops a unit between our read and our commit.
			require.NoError(t, s.RunTx(ctx, func(inner *Tx) error {
				q, _, err := inner.Product("p1")
				if err != nil {
					return err
				}
				q.MainStock = q.MainStock[1:]
				return inner.PutProduct(q)
			}))
		}
		p.MainStock = p.MainStock[1:]
		return tx.PutProduct(p)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	p, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, p.MainStock)
}

func TestRunTx_ReadOnlyDocumentIsValidated(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, model.Product{ID: "p1", Mode: model.ModeStocked})
	seedOrder(t, s, model.Order{ID: "o1", Status: model.StatusPending})

	attempts := 0
	err := s.RunTx(ctx, func(tx *Tx) error {
		attempts++
		// Only read p1; write o1.
		if _, _, err := tx.Product("p1"); err != nil {
			return err
		}
		o, err := tx.Order("o1")
		if err != nil {
			return err
		}
		if attempts == 1 {
			seedProduct(t, s, model.Product{ID: "p1", Mode: model.ModeManual})
		}
		o.OperatorNote = "checked"
		return tx.PutOrder(o)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRunTx_ExhaustsAttempts(t *testing.T) {
	s := createTestStore(t, WithMaxAttempts(3))
	ctx := context.Background()
	seedProduct(t, s, model.Product{ID: "p1", Mode: model.ModeStocked})

	attempts := 0
	err := s.RunTx(ctx, func(tx *Tx) error {
		attempts++
		p, _, err := tx.Product("p1")
		if err != nil {
			return err
		}
		seedProduct(t, s, model.Product{ID: "p1", Mode: model.ModeStocked, UnitsDelivered: attempts})
		return tx.PutProduct(p)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrTransactionConflict)
	assert.Equal(t, model.CodeTransactionConflict, model.CodeOf(err))
	assert.Equal(t, 3, attempts)
}

func TestRunTx_CancelledContext(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.RunTx(ctx, func(tx *Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestRunTx_InsertRace(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	attempts := 0
	err := s.RunTx(ctx, func(tx *Tx) error {
		attempts++
		_, err := tx.Order("o1")
		if err == nil {
			return nil
		}
		if attempts == 1 {
			seedOrder(t, s, model.Order{ID: "o1", Status: model.StatusProcessing})
		}
		return tx.PutOrder(model.Order{ID: "o1", Status: model.StatusPending})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	o, err := s.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, o.Status, "first insert wins")
}

func TestRunTx_DeliveryLedgerRejectsDuplicates(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedOrder(t, s, model.Order{ID: "o1", Status: model.StatusPending})

	record := func(orderID string) error {
		return s.RunTx(ctx, func(tx *Tx) error {
			tx.RecordDelivery(Delivery{Token: "U1", ProductID: "p1", OrderID: orderID, Index: 0})
			return nil
		})
	}

	require.NoError(t, record("o1"))
	err := record("o2")
	assert.ErrorIs(t, err, ErrUnitAlreadyDelivered)

	owner, ok, err := s.DeliveredUnitOwner(ctx, "U1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "o1", owner)
}

func TestRunTx_PaymentEventLedger(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := PaymentEvent{ID: "ev-1", OrderID: "o1", Kind: "CAPTURED", Amount: 100,
		From: model.StatusPending, To: model.StatusProcessing}

	err := s.RunTx(ctx, func(tx *Tx) error {
		seen, err := tx.PaymentEventSeen(ev.ID)
		if err != nil {
			return err
		}
		assert.False(t, seen)
		tx.RecordPaymentEvent(ev)
		return nil
	})
	require.NoError(t, err)

	err = s.RunTx(ctx, func(tx *Tx) error {
		seen, err := tx.PaymentEventSeen(ev.ID)
		if err != nil {
			return err
		}
		assert.True(t, seen)
		return nil
	})
	require.NoError(t, err)

	n, err := s.CountPaymentEvents(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunTx_ConcurrentIncrementsSerialize(t *testing.T) {
	s := createTestStore(t, WithMaxAttempts(50))
	ctx := context.Background()
	seedProduct(t, s, model.Product{ID: "p1", Mode: model.ModeStocked})

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.RunTx(ctx, func(tx *Tx) error {
				p, _, err := tx.Product("p1")
				if err != nil {
					return err
				}
				p.UnitsDelivered++
				return tx.PutProduct(p)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	p, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, workers, p.UnitsDelivered)
}

func TestRunTx_DeliveredUnitOwnerSeenOnRetry(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, model.Product{ID: "p1", Mode: model.ModeStocked, MainStock: []string{"U1", "U2"}})

	attempts := 0
	var owners []string
	err := s.RunTx(ctx, func(tx *Tx) error {
		attempts++
		p, _, err := tx.Product("p1")
		if err != nil {
			return err
		}
		owner, ok, err := tx.DeliveredUnitOwner("U1")
		if err != nil {
			return err
		}
		owners = append(owners, owner)
		if attempts == 1 {
			require.False(t, ok)
			// U1 is delivered after the ledger lookup but before our commit.
			require.NoError(t, s.RunTx(ctx, func(inner *Tx) error {
				q, _, err := inner.Product("p1")
				if err != nil {
					return err
				}
				q.MainStock = q.MainStock[1:]
				q.UnitsDelivered++
				inner.RecordDelivery(Delivery{Token: "U1", ProductID: "p1", OrderID: "o1", Index: 0})
				return inner.PutProduct(q)
			}))
		}
		if !ok {
			p.MainStock = []string{"U1", "U2", "U3"}
		} else {
			p.MainStock = []string{"U2", "U3"}
		}
		return tx.PutProduct(p)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []string{"", "o1"}, owners)

	p, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"U2", "U3"}, p.MainStock)
	assert.Equal(t, 1, p.UnitsDelivered)
}
