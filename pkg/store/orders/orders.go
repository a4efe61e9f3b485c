// Package orders is the local order database backing the lookup_order
// tool in the demo. It is intentionally small: one table, seeded with
// demo rows, queried by order id.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an order id has no row.
var ErrNotFound = errors.New("order not found")

// Order statuses the demo recognizes.
const (
	StatusProcessing     = "processing"
	StatusPacked         = "packed"
	StatusInTransit      = "in_transit"
	StatusOutForDelivery = "out_for_delivery"
	StatusDelivered      = "delivered"
	StatusCancelled      = "cancelled"
)

var validStatuses = map[string]bool{
	StatusProcessing:     true,
	StatusPacked:         true,
	StatusInTransit:      true,
	StatusOutForDelivery: true,
	StatusDelivered:      true,
	StatusCancelled:      true,
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	return validStatuses[s]
}

// Order is one row of the demo order table.
type Order struct {
	ID           string    `json:"id"`
	CustomerName string    `json:"customer_name"`
	Status       string    `json:"status"`
	ETADays      int       `json:"eta_days"`
	TotalCents   int64     `json:"total_cents"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store wraps the sqlite database holding demo orders.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway; one connection avoids lock errors
	// and keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)

	s := &Store{DB: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			customer_name TEXT NOT NULL,
			status TEXT NOT NULL,
			eta_days INTEGER NOT NULL DEFAULT 0,
			total_cents INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		);`,
	}
	for _, q := range stmts {
		if _, err := s.DB.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

var demoOrders = []Order{
	{ID: "BD-1001", CustomerName: "Farhan Ahmed", Status: StatusDelivered, ETADays: 0, TotalCents: 249900},
	{ID: "BD-1009", CustomerName: "Nusrat Jahan", Status: StatusInTransit, ETADays: 2, TotalCents: 78500},
	{ID: "BD-1042", CustomerName: "Rafiq Islam", Status: StatusProcessing, ETADays: 5, TotalCents: 132000},
	{ID: "BD-1077", CustomerName: "Sadia Rahman", Status: StatusOutForDelivery, ETADays: 1, TotalCents: 45000},
	{ID: "BD-1090", CustomerName: "Tanvir Hossain", Status: StatusPacked, ETADays: 3, TotalCents: 99900},
}

// Seed inserts the demo order rows. Existing rows are left alone, so
// Seed is safe to run on every start.
func (s *Store) Seed(ctx context.Context) error {
	now := time.Now().Unix()
	for _, o := range demoOrders {
		_, err := s.DB.ExecContext(ctx,
			`INSERT OR IGNORE INTO orders(id, customer_name, status, eta_days, total_cents, updated_at)
			 VALUES(?,?,?,?,?,?)`,
			o.ID, o.CustomerName, o.Status, o.ETADays, o.TotalCents, now)
		if err != nil {
			return err
		}
	}
	return nil
}

// Get returns the order with the given id. Lookup is case-insensitive
// on the id since ids arrive from speech recognition.
func (s *Store) Get(ctx context.Context, id string) (Order, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return Order{}, ErrNotFound
	}

	var o Order
	var updated int64
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, customer_name, status, eta_days, total_cents, updated_at
		 FROM orders WHERE id = ?`, id)
	if err := row.Scan(&o.ID, &o.CustomerName, &o.Status, &o.ETADays, &o.TotalCents, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	o.UpdatedAt = time.Unix(updated, 0)
	return o, nil
}

// UpdateStatus moves an order to a new status.
func (s *Store) UpdateStatus(ctx context.Context, id, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("invalid order status %q", status)
	}
	id = strings.ToUpper(strings.TrimSpace(id))

	res, err := s.DB.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
