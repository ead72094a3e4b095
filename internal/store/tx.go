package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/stockroom/internal/model"
)

// errConflict marks a commit whose read set was invalidated. RunTx retries on it.
var errConflict = errors.New("optimistic read set invalidated")

// ErrUnitAlreadyDelivered is returned when a commit would attach a stock unit
// that the delivered_units ledger already records. It is not retried: a fresh
// read cannot make a duplicated token unique.
var ErrUnitAlreadyDelivered = errors.New("stock unit already delivered")

// Delivery records one unit moved from a product's stock into an order.
type Delivery struct {
	Token     model.StockUnit
	ProductID string
	OrderID   string
	Index     int
}

// PaymentEvent is one row of the payment event ledger.
type PaymentEvent struct {
	ID      string
	OrderID string
	Kind    string
	Amount  int64
	From    model.Status
	To      model.Status
}

// Tx is the view a RunTx callback works against.
//
// Reads observe committed state and remember the version they saw. Writes are
// buffered and only reach the database if every remembered version still
// holds at commit. Documents returned by Tx are copies; mutate them and hand
// them back with PutOrder/PutProduct.
//
// A Tx must not be used after its callback returns.
type Tx struct {
	ctx context.Context
	s   *Store

	orderReads   map[string]int64
	productReads map[string]int64
	orders       map[string]model.Order
	products     map[string]model.Product

	orderWrites   []string
	productWrites []string

	deliveries []Delivery
	events     []PaymentEvent
	runs       []AllocationRun
}

func newTx(ctx context.Context, s *Store) *Tx {
	return &Tx{
		ctx:          ctx,
		s:            s,
		orderReads:   make(map[string]int64),
		productReads: make(map[string]int64),
		orders:       make(map[string]model.Order),
		products:     make(map[string]model.Product),
	}
}

// Context returns the context the transaction runs under.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// Order returns the order with the given id.
// Returns an error matching model.ErrOrderNotFound if absent.
func (tx *Tx) Order(id string) (model.Order, error) {
	if o, ok := tx.orders[id]; ok {
		return o.Clone(), nil
	}
	if ver, seen := tx.orderReads[id]; seen && ver == 0 {
		return model.Order{}, model.NewOrderNotFound(id)
	}

	o, ok, err := tx.s.loadOrder(tx.ctx, tx.s.db, id)
	if err != nil {
		return model.Order{}, err
	}
	if !ok {
		tx.orderReads[id] = 0
		return model.Order{}, model.NewOrderNotFound(id)
	}
	tx.orderReads[id] = o.Version
	tx.orders[id] = o
	return o.Clone(), nil
}

// Product returns the product with the given id, and false if it does not exist.
func (tx *Tx) Product(id string) (model.Product, bool, error) {
	if p, ok := tx.products[id]; ok {
		return p.Clone(), true, nil
	}
	if ver, seen := tx.productReads[id]; seen && ver == 0 {
		return model.Product{}, false, nil
	}

	p, ok, err := tx.s.loadProduct(tx.ctx, tx.s.db, id)
	if err != nil {
		return model.Product{}, false, err
	}
	if !ok {
		tx.productReads[id] = 0
		return model.Product{}, false, nil
	}
	tx.productReads[id] = p.Version
	tx.products[id] = p
	return p.Clone(), true, nil
}

// PutOrder buffers a write of o. The order must have been read in this
// transaction first, either found or confirmed absent (which inserts it).
func (tx *Tx) PutOrder(o model.Order) error {
	if _, seen := tx.orderReads[o.ID]; !seen {
		return fmt.Errorf("put order %s: document was not read in this transaction", o.ID)
	}
	if !o.Status.Valid() {
		return fmt.Errorf("put order %s: invalid status %q", o.ID, o.Status)
	}
	if !contains(tx.orderWrites, o.ID) {
		tx.orderWrites = append(tx.orderWrites, o.ID)
	}
	tx.orders[o.ID] = o.Clone()
	return nil
}

// PutProduct buffers a write of p under the same rules as PutOrder.
func (tx *Tx) PutProduct(p model.Product) error {
	if _, seen := tx.productReads[p.ID]; !seen {
		return fmt.Errorf("put product %s: document was not read in this transaction", p.ID)
	}
	if !contains(tx.productWrites, p.ID) {
		tx.productWrites = append(tx.productWrites, p.ID)
	}
	tx.products[p.ID] = p.Clone()
	return nil
}

// RecordDelivery adds a unit to the delivered_units ledger on commit.
func (tx *Tx) RecordDelivery(d Delivery) {
	tx.deliveries = append(tx.deliveries, d)
}

// PaymentEventSeen reports whether an event id is already in the ledger.
// If it is not, a concurrent writer inserting it before this commit causes
// a conflict rather than a second application.
func (tx *Tx) PaymentEventSeen(id string) (bool, error) {
	var one int
	err := tx.s.queryRow(tx.ctx, `SELECT 1 FROM payment_events WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read payment event: %w", err)
	}
	return true, nil
}

// DeliveredUnitOwner returns the order the delivered_units ledger assigns
// token to. Deliveries commit together with the product they drain, so look
// a unit up after reading its product: a delivery landing in between then
// fails this transaction's version check and the retry sees it.
func (tx *Tx) DeliveredUnitOwner(token string) (string, bool, error) {
	return tx.s.DeliveredUnitOwner(tx.ctx, token)
}

// RecordPaymentEvent inserts ev into the ledger on commit.
func (tx *Tx) RecordPaymentEvent(ev PaymentEvent) {
	tx.events = append(tx.events, ev)
}

// RecordAllocationRun appends an allocation report to the audit trail on commit.
func (tx *Tx) RecordAllocationRun(run AllocationRun) {
	tx.runs = append(tx.runs, run)
}

// RunTx executes fn inside an optimistic transaction, retrying from a fresh
// read when the commit finds that a document fn read has changed, or when
// the database aborts the commit with a deadlock or serialization failure.
//
// fn may run up to MaxAttempts times and must not have side effects outside
// the Tx. An error returned by fn aborts without retry. When every attempt
// conflicts, RunTx returns an error matching model.ErrTransactionConflict.
// Context cancellation is checked between attempts; a commit either applies
// every buffered write or none.
func (s *Store) RunTx(ctx context.Context, fn func(tx *Tx) error) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("transaction aborted: %w", err)
		}

		tx := newTx(ctx, s)
		if err := fn(tx); err != nil {
			return err
		}

		err := tx.commit()
		if err == nil {
			return nil
		}
		if !errors.Is(err, errConflict) && !isTransient(err) {
			return err
		}
		s.logger.Debug("transaction conflict, retrying",
			"attempt", attempt,
			"max_attempts", s.maxAttempts,
			"cause", err,
		)
	}

	return &model.Error{
		Code:    model.CodeTransactionConflict,
		Message: fmt.Sprintf("read set invalidated on all %d attempts", s.maxAttempts),
		Index:   -1,
	}
}

func (tx *Tx) commit() error {
	if len(tx.orderWrites) == 0 && len(tx.productWrites) == 0 &&
		len(tx.deliveries) == 0 && len(tx.events) == 0 && len(tx.runs) == 0 {
		return nil
	}

	sqlTx, err := tx.s.db.BeginTx(tx.ctx, nil)
	if err != nil {
		return fmt.Errorf("commit: begin tx: %w", err)
	}
	defer sqlTx.Rollback() // No-op if committed

	// Read-only documents: their versions must be unchanged.
	for id, ver := range tx.orderReads {
		if contains(tx.orderWrites, id) {
			continue
		}
		if err := tx.validate(sqlTx, "orders", id, ver); err != nil {
			return err
		}
	}
	for id, ver := range tx.productReads {
		if contains(tx.productWrites, id) {
			continue
		}
		if err := tx.validate(sqlTx, "products", id, ver); err != nil {
			return err
		}
	}

	// Products before deliveries: a racing allocation fails here on the
	// version check, so the ledger insert below only trips on real duplicates.
	for _, id := range tx.productWrites {
		doc, err := marshalProduct(tx.products[id])
		if err != nil {
			return err
		}
		if err := tx.write(sqlTx, "products", id, tx.productReads[id], doc, nil); err != nil {
			return err
		}
	}
	for _, id := range tx.orderWrites {
		o := tx.orders[id]
		doc, err := marshalOrder(o)
		if err != nil {
			return err
		}
		status := string(o.Status)
		if err := tx.write(sqlTx, "orders", id, tx.orderReads[id], doc, &status); err != nil {
			return err
		}
	}

	for _, d := range tx.deliveries {
		res, err := sqlTx.ExecContext(tx.ctx, tx.s.dialect.rebind(`
			INSERT INTO delivered_units (token, product_id, order_id, line_index)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(token) DO NOTHING
		`), d.Token, d.ProductID, d.OrderID, d.Index)
		if err != nil {
			return fmt.Errorf("commit: record delivery: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("commit: record delivery: %w", err)
		} else if n == 0 {
			return fmt.Errorf("commit: unit %q for order %s: %w", d.Token, d.OrderID, ErrUnitAlreadyDelivered)
		}
	}

	for _, ev := range tx.events {
		res, err := sqlTx.ExecContext(tx.ctx, tx.s.dialect.rebind(`
			INSERT INTO payment_events (id, order_id, kind, amount, from_status, to_status)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`), ev.ID, ev.OrderID, ev.Kind, ev.Amount, string(ev.From), string(ev.To))
		if err != nil {
			return fmt.Errorf("commit: record payment event: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("commit: record payment event: %w", err)
		} else if n == 0 {
			// Inserted by a concurrent delivery of the same event.
			return errConflict
		}
	}

	for _, run := range tx.runs {
		_, err := sqlTx.ExecContext(tx.ctx, tx.s.dialect.rebind(`
			INSERT INTO allocation_runs (id, order_id, report) VALUES (?, ?, ?)
		`), run.ID, run.OrderID, string(run.Report))
		if err != nil {
			return fmt.Errorf("commit: record allocation run: %w", err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// validate checks that the stored version of a document still equals ver.
// A version of 0 means the document was read as absent.
func (tx *Tx) validate(sqlTx *sql.Tx, table, id string, ver int64) error {
	var current int64
	query := `SELECT version FROM ` + table + ` WHERE id = ?` + tx.s.dialect.lockSuffix
	err := sqlTx.QueryRowContext(tx.ctx, tx.s.dialect.rebind(query), id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		current = 0
	} else if err != nil {
		return fmt.Errorf("commit: validate %s %s: %w", table, id, err)
	}
	if current != ver {
		return errConflict
	}
	return nil
}

// write inserts (ver == 0) or conditionally updates a document.
// status is only set for the orders table.
func (tx *Tx) write(sqlTx *sql.Tx, table, id string, ver int64, doc string, status *string) error {
	var (
		res sql.Result
		err error
	)
	switch {
	case ver == 0 && status != nil:
		res, err = sqlTx.ExecContext(tx.ctx, tx.s.dialect.rebind(`
			INSERT INTO orders (id, status, doc, version) VALUES (?, ?, ?, 1)
			ON CONFLICT(id) DO NOTHING
		`), id, *status, doc)
	case ver == 0:
		res, err = sqlTx.ExecContext(tx.ctx, tx.s.dialect.rebind(`
			INSERT INTO products (id, doc, version) VALUES (?, ?, 1)
			ON CONFLICT(id) DO NOTHING
		`), id, doc)
	case status != nil:
		res, err = sqlTx.ExecContext(tx.ctx, tx.s.dialect.rebind(`
			UPDATE orders SET status = ?, doc = ?, version = version + 1
			WHERE id = ? AND version = ?
		`), *status, doc, id, ver)
	default:
		res, err = sqlTx.ExecContext(tx.ctx, tx.s.dialect.rebind(`
			UPDATE products SET doc = ?, version = version + 1
			WHERE id = ? AND version = ?
		`), doc, id, ver)
	}
	if err != nil {
		return fmt.Errorf("commit: write %s %s: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("commit: write %s %s: %w", table, id, err)
	}
	if n == 0 {
		return errConflict
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
