package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/stockroom/internal/model"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedProduct inserts a product through a transaction.
func seedProduct(t *testing.T, s *Store, p model.Product) {
	t.Helper()
	err := s.RunTx(context.Background(), func(tx *Tx) error {
		if _, _, err := tx.Product(p.ID); err != nil {
			return err
		}
		return tx.PutProduct(p)
	})
	require.NoError(t, err)
}

// seedOrder inserts an order through a transaction.
func seedOrder(t *testing.T, s *Store, o model.Order) {
	t.Helper()
	err := s.RunTx(context.Background(), func(tx *Tx) error {
		if _, err := tx.Order(o.ID); err != nil && !isNotFound(err) {
			return err
		}
		return tx.PutOrder(o)
	})
	require.NoError(t, err)
}

func isNotFound(err error) bool {
	return model.CodeOf(err) == model.CodeOrderNotFound
}
