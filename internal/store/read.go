package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/stockroom/internal/model"
)

// GetOrder reads an order outside any transaction.
// Returns an error matching model.ErrOrderNotFound if absent.
func (s *Store) GetOrder(ctx context.Context, id string) (model.Order, error) {
	o, ok, err := s.loadOrder(ctx, s.db, id)
	if err != nil {
		return model.Order{}, err
	}
	if !ok {
		return model.Order{}, model.NewOrderNotFound(id)
	}
	return o, nil
}

// GetProduct reads a product outside any transaction.
// Returns an error matching model.ErrProductNotFound if absent.
func (s *Store) GetProduct(ctx context.Context, id string) (model.Product, error) {
	p, ok, err := s.loadProduct(ctx, s.db, id)
	if err != nil {
		return model.Product{}, err
	}
	if !ok {
		return model.Product{}, model.NewProductNotFound(id)
	}
	return p, nil
}

// AllocationRun is one committed allocation attempt.
type AllocationRun struct {
	ID      string
	OrderID string
	Report  []byte
}

// ListAllocationRuns returns the audit trail for an order, oldest first.
// Run ids are UUIDv7, so ordering by id is ordering by creation time.
func (s *Store) ListAllocationRuns(ctx context.Context, orderID string) ([]AllocationRun, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT id, order_id, report
		FROM allocation_runs
		WHERE order_id = ?
		ORDER BY id ASC
	`), orderID)
	if err != nil {
		return nil, fmt.Errorf("query allocation runs: %w", err)
	}
	defer rows.Close()

	runs := []AllocationRun{}
	for rows.Next() {
		var r AllocationRun
		var report string
		if err := rows.Scan(&r.ID, &r.OrderID, &report); err != nil {
			return nil, fmt.Errorf("scan allocation run: %w", err)
		}
		r.Report = []byte(report)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate allocation runs: %w", err)
	}
	return runs, nil
}

// DeliveredUnitOwner returns the order a unit was attached to, if any.
func (s *Store) DeliveredUnitOwner(ctx context.Context, token string) (orderID string, ok bool, err error) {
	err = s.queryRow(ctx, `SELECT order_id FROM delivered_units WHERE token = ?`, token).Scan(&orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query delivered unit: %w", err)
	}
	return orderID, true, nil
}

// CountPaymentEvents returns how many distinct payment events were recorded for an order.
func (s *Store) CountPaymentEvents(ctx context.Context, orderID string) (int, error) {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM payment_events WHERE order_id = ?`, orderID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count payment events: %w", err)
	}
	return n, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) loadOrder(ctx context.Context, q querier, id string) (model.Order, bool, error) {
	var doc string
	var version int64
	err := q.QueryRowContext(ctx, s.dialect.rebind(`SELECT doc, version FROM orders WHERE id = ?`), id).Scan(&doc, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, false, nil
	}
	if err != nil {
		return model.Order{}, false, fmt.Errorf("read order %s: %w", id, err)
	}
	o, err := unmarshalOrder(doc, version)
	if err != nil {
		return model.Order{}, false, err
	}
	return o, true, nil
}

func (s *Store) loadProduct(ctx context.Context, q querier, id string) (model.Product, bool, error) {
	var doc string
	var version int64
	err := q.QueryRowContext(ctx, s.dialect.rebind(`SELECT doc, version FROM products WHERE id = ?`), id).Scan(&doc, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Product{}, false, nil
	}
	if err != nil {
		return model.Product{}, false, fmt.Errorf("read product %s: %w", id, err)
	}
	p, err := unmarshalProduct(doc, version)
	if err != nil {
		return model.Product{}, false, err
	}
	return p, true, nil
}
