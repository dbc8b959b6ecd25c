// Package sqlite provides the SQLite-backed implementation of
// checkout.Repository and outbox.Store.
//
// WAL mode is enabled on Open so the reconciler and the outbox relay can
// read while HTTP handlers write. The modernc.org/sqlite driver is pure Go,
// so the binaries build without CGO.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	sqlite3 "modernc.org/sqlite"

	"github.com/aldomata/storefront-checkout/internal/checkout"
	"github.com/aldomata/storefront-checkout/internal/checkout/domain"
	"github.com/aldomata/storefront-checkout/internal/outbox"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLITE_CONSTRAINT_UNIQUE; modernc surfaces extended result codes.
const sqliteConstraintUnique = 2067

// Repository implements checkout.Repository and outbox.Store over one database.
type Repository struct {
	db *sql.DB
}

var (
	_ checkout.Repository = (*Repository)(nil)
	_ outbox.Store        = (*Repository)(nil)
)

// Open opens (or creates) the SQLite database at the given path and applies
// the embedded migrations.
//
//	repo, err := sqlite.Open("./data/storefront.db")
func Open(path string) (*Repository, error) {
	// The pure-Go driver uses _pragma query parameters to configure connection
	// state. WAL enables concurrent readers; busy_timeout waits for locks
	// instead of failing immediately.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	// Use "sqlite", not "sqlite3", for the modernc driver.
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("sqlite: load migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlite: create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("sqlite: create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: run migrations: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Create persists the order, its line snapshot and the order.created outbox
// event in a single transaction.
func (r *Repository) Create(ctx context.Context, order *domain.Order, event outbox.Event) error {
	linesJSON, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("sqlite: marshal order lines: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin create order: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
		INSERT INTO orders
			(id, order_number, full_name, email, phone, delivery_address, city,
			 postal_code, instructions, delivery_method, order_type, lines,
			 subtotal, delivery_cost, tax, total_amount, payment_method,
			 payment_intent_id, payment_status, order_status, created_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.ExecContext(ctx, q,
		order.ID,
		order.OrderNumber,
		order.Customer.FullName,
		order.Customer.Email,
		order.Customer.Phone,
		order.Customer.DeliveryAddress,
		order.Customer.City,
		order.Customer.PostalCode,
		order.Customer.Instructions,
		order.Customer.DeliveryMethod,
		string(order.OrderType),
		string(linesJSON),
		order.Subtotal,
		order.DeliveryCost,
		order.Tax,
		order.TotalAmount,
		order.PaymentMethod,
		order.PaymentIntentID,
		string(order.PaymentStatus),
		string(order.OrderStatus),
		formatTime(order.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err, "orders.order_number") {
			return checkout.ErrDuplicateOrderNumber
		}
		return fmt.Errorf("sqlite: insert order %s: %w", order.ID, err)
	}

	if err := insertEvent(ctx, tx, event); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit create order %s: %w", order.ID, err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	const q = selectOrder + ` WHERE id = ?`
	return scanOrder(r.db.QueryRowContext(ctx, q, id))
}

// AttachIntent records the gateway intent id on a still-pending order so the
// reconciler can later re-query its status. Attaching to a finalized order is
// a no-op.
func (r *Repository) AttachIntent(ctx context.Context, orderID, intentID string) error {
	const q = `
		UPDATE orders SET payment_intent_id = ?
		WHERE  id = ? AND payment_status = 'pending'`

	res, err := r.db.ExecContext(ctx, q, intentID, orderID)
	if err != nil {
		return fmt.Errorf("sqlite: attach intent to order %s: %w", orderID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: attach intent rows affected: %w", err)
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, orderID); err != nil {
			return err
		}
	}
	return nil
}

// FinalizePayment is a conditional state transition, not a blind write:
// the order moves to completed/confirmed only if it is still pending, so a
// replayed confirm (client retry, webhook duplicate, reconciler pass) cannot
// double-apply. The order.confirmed event commits atomically with the
// transition — exactly once per order.
func (r *Repository) FinalizePayment(ctx context.Context, orderID string, event outbox.Event) (checkout.FinalizeResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin finalize payment: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
		UPDATE orders
		SET    payment_status = 'completed', order_status = 'confirmed'
		WHERE  id = ? AND payment_status = 'pending'`

	res, err := tx.ExecContext(ctx, q, orderID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: finalize order %s: %w", orderID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: finalize rows affected: %w", err)
	}

	if n == 0 {
		var paymentStatus string
		err := tx.QueryRowContext(ctx, `SELECT payment_status FROM orders WHERE id = ?`, orderID).Scan(&paymentStatus)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, checkout.ErrOrderNotFound
		}
		if err != nil {
			return 0, fmt.Errorf("sqlite: read order %s status: %w", orderID, err)
		}
		if paymentStatus == string(domain.PaymentCompleted) {
			return checkout.FinalizeAlreadyDone, nil
		}
		return 0, fmt.Errorf("sqlite: order %s has payment status %q, cannot finalize", orderID, paymentStatus)
	}

	if err := insertEvent(ctx, tx, event); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit finalize order %s: %w", orderID, err)
	}
	return checkout.FinalizeApplied, nil
}

// ListPendingBefore returns pending/pending orders created before cutoff,
// oldest first.
func (r *Repository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Order, error) {
	const q = selectOrder + `
		WHERE  payment_status = 'pending' AND order_status = 'pending'
		  AND  created_at < ?
		ORDER  BY created_at ASC
		LIMIT  ?`

	rows, err := r.db.QueryContext(ctx, q, formatTime(cutoff), limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list pending orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate pending orders: %w", err)
	}
	return orders, nil
}

// UnpublishedEvents returns up to limit outbox rows not yet shipped, oldest
// first.
func (r *Repository) UnpublishedEvents(ctx context.Context, limit int) ([]outbox.Event, error) {
	const q = `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM   outbox_events
		WHERE  published_at IS NULL
		ORDER  BY created_at ASC
		LIMIT  ?`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list unpublished events: %w", err)
	}
	defer rows.Close()

	var events []outbox.Event
	for rows.Next() {
		var ev outbox.Event
		var payload, createdAt string
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.Type, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan outbox event: %w", err)
		}
		ev.Payload = []byte(payload)
		ev.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate outbox events: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventPublished(ctx context.Context, eventID string) error {
	const q = `UPDATE outbox_events SET published_at = ? WHERE id = ? AND published_at IS NULL`

	if _, err := r.db.ExecContext(ctx, q, formatTime(time.Now().UTC()), eventID); err != nil {
		return fmt.Errorf("sqlite: mark event %s published: %w", eventID, err)
	}
	return nil
}

const selectOrder = `
	SELECT id, order_number, full_name, email, phone, delivery_address, city,
	       postal_code, instructions, delivery_method, order_type, lines,
	       subtotal, delivery_cost, tax, total_amount, payment_method,
	       payment_intent_id, payment_status, order_status, created_at
	FROM   orders`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var orderType, paymentStatus, orderStatus, linesJSON, createdAt string

	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.Customer.FullName,
		&order.Customer.Email,
		&order.Customer.Phone,
		&order.Customer.DeliveryAddress,
		&order.Customer.City,
		&order.Customer.PostalCode,
		&order.Customer.Instructions,
		&order.Customer.DeliveryMethod,
		&orderType,
		&linesJSON,
		&order.Subtotal,
		&order.DeliveryCost,
		&order.Tax,
		&order.TotalAmount,
		&order.PaymentMethod,
		&order.PaymentIntentID,
		&paymentStatus,
		&orderStatus,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, checkout.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan order: %w", err)
	}

	if err := json.Unmarshal([]byte(linesJSON), &order.Lines); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal lines for order %s: %w", order.ID, err)
	}

	order.OrderType = domain.OrderType(orderType)
	order.PaymentStatus = domain.PaymentStatus(paymentStatus)
	order.OrderStatus = domain.OrderStatus(orderStatus)
	order.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, event outbox.Event) error {
	const q = `
		INSERT INTO outbox_events (id, aggregate_id, event_type, payload, created_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err := tx.ExecContext(ctx, q,
		event.ID,
		event.AggregateID,
		event.Type,
		string(event.Payload),
		formatTime(event.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert outbox event %s: %w", event.ID, err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on the
// given column (e.g. "orders.order_number").
func isUniqueViolation(err error, column string) bool {
	var se *sqlite3.Error
	if errors.As(err, &se) && se.Code() == sqliteConstraintUnique {
		return strings.Contains(err.Error(), column)
	}
	return false
}

// SQLite has no native datetime type; timestamps are RFC3339 TEXT. The fixed
// precision keeps lexicographic and chronological order identical, so
// created_at comparisons in SQL are correct.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
