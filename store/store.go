// Package store persists parsed delivery-note orders in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Order workflow statuses.
const (
	StatusNew          = "NEW"
	StatusContacted    = "CONTACTED"
	StatusScheduled    = "SCHEDULED"
	StatusReadyForWork = "READY FOR WORK"
)

// Statuses lists the workflow statuses in order.
var Statuses = []string{StatusNew, StatusContacted, StatusScheduled, StatusReadyForWork}

// ValidStatus reports whether s is a known workflow status.
func ValidStatus(s string) bool {
	return slices.Contains(Statuses, s)
}

var (
	// ErrNotFound is returned when no order row matches.
	ErrNotFound = errors.New("store: order not found")

	// ErrInvalidField is returned by UpdateOrder for a column that may not
	// be edited.
	ErrInvalidField = errors.New("store: field cannot be updated")

	// ErrInvalidStatus is returned for a status outside Statuses.
	ErrInvalidStatus = errors.New("store: invalid status")
)

// Order represents a row in the orders table.
type Order struct {
	ID               int64  `json:"id"`
	OriginalFilename string `json:"original_filename"`
	StoredPath       string `json:"stored_path"`
	ContentHash      string `json:"content_hash"`
	ParseMethod      string `json:"parse_method"`
	Status           string `json:"status"`

	ClientName     string `json:"client_name"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	DeliveryDate   string `json:"delivery_date"`
	DeliveryWindow string `json:"delivery_window"`
	Notes          string `json:"notes"`

	OrderRef      string `json:"order_ref"`
	RecipientName string `json:"recipient_name"`
	ShipAddress   string `json:"ship_address"`
	ServiceTag    string `json:"service_tag"`
	DocAuthor     string `json:"doc_author"`
	DocEmail      string `json:"doc_email"`
	DocPhone      string `json:"doc_phone"`
	ItemsCompact  string `json:"items_compact"`
	ItemsJSON     string `json:"-"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// UpdatableFields are the columns UpdateOrder accepts.
var UpdatableFields = []string{
	"status", "client_name", "phone", "address", "delivery_date", "delivery_window", "notes",
	"order_ref", "recipient_name", "ship_address", "service_tag",
	"doc_author", "doc_email", "doc_phone", "items_compact", "items_json",
	"parse_method",
}

const orderColumns = `id, original_filename, stored_path, content_hash, parse_method, status,
	client_name, phone, address, delivery_date, delivery_window, notes,
	order_ref, recipient_name, ship_address, service_tag,
	doc_author, doc_email, doc_phone, items_compact, items_json,
	created_at, updated_at`

// Store wraps the SQLite database holding orders.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and brings the
// schema up to date.
func New(dbPath string) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Order operations ---

// InsertOrder stores a new order and returns its ID. An empty status
// becomes NEW; timestamps are set here.
func (s *Store) InsertOrder(ctx context.Context, o Order) (int64, error) {
	if o.Status == "" {
		o.Status = StatusNew
	}
	if !ValidStatus(o.Status) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, o.Status)
	}
	if o.ItemsJSON == "" {
		o.ItemsJSON = "[]"
	}
	now := timestamp()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (original_filename, stored_path, content_hash, parse_method, status,
			client_name, phone, address, delivery_date, delivery_window, notes,
			order_ref, recipient_name, ship_address, service_tag,
			doc_author, doc_email, doc_phone, items_compact, items_json,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.OriginalFilename, o.StoredPath, o.ContentHash, o.ParseMethod, o.Status,
		o.ClientName, o.Phone, o.Address, o.DeliveryDate, o.DeliveryWindow, o.Notes,
		o.OrderRef, o.RecipientName, o.ShipAddress, o.ServiceTag,
		o.DocAuthor, o.DocEmail, o.DocPhone, o.ItemsCompact, o.ItemsJSON,
		now, now)
	if err != nil {
		return 0, fmt.Errorf("inserting order: %w", err)
	}
	return res.LastInsertId()
}

// GetOrder retrieves an order by ID.
func (s *Store) GetOrder(ctx context.Context, id int64) (*Order, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id)
	return scanOrder(row)
}

// GetOrderByHash retrieves the oldest order whose stored file has the given
// content hash.
func (s *Store) GetOrderByHash(ctx context.Context, hash string) (*Order, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE content_hash = ? ORDER BY id LIMIT 1", hash)
	return scanOrder(row)
}

// ListOrders returns orders newest first. An empty status or "ALL" lists
// every order.
func (s *Store) ListOrders(ctx context.Context, status string) ([]Order, error) {
	query := "SELECT " + orderColumns + " FROM orders"
	var args []any
	if status != "" && status != "ALL" {
		if !ValidStatus(status) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
		}
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// UpdateOrder sets the given columns on one order. Every key must be in
// UpdatableFields; an empty map is a no-op.
func (s *Store) UpdateOrder(ctx context.Context, id int64, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	// Sorted for a stable statement.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !slices.Contains(UpdatableFields, k) {
			return fmt.Errorf("%w: %q", ErrInvalidField, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if st, ok := fields["status"]; ok && !ValidStatus(st) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, st)
	}

	sets := make([]string, 0, len(keys)+1)
	args := make([]any, 0, len(keys)+2)
	for _, k := range keys {
		sets = append(sets, k+" = ?")
		args = append(args, fields[k])
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, timestamp(), id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("updating order %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOrder removes an order row. The stored file is the caller's.
func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting order %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// StatusCounts returns the number of orders per status. Every status is
// present, with zero when no order has it.
func (s *Store) StatusCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(Statuses))
	for _, st := range Statuses {
		counts[st] = 0
	}

	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM orders GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		counts[st] = n
	}
	return counts, rows.Err()
}

// --- helpers ---

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(r scanner) (*Order, error) {
	o := &Order{}
	err := r.Scan(&o.ID, &o.OriginalFilename, &o.StoredPath, &o.ContentHash, &o.ParseMethod, &o.Status,
		&o.ClientName, &o.Phone, &o.Address, &o.DeliveryDate, &o.DeliveryWindow, &o.Notes,
		&o.OrderRef, &o.RecipientName, &o.ShipAddress, &o.ServiceTag,
		&o.DocAuthor, &o.DocEmail, &o.DocPhone, &o.ItemsCompact, &o.ItemsJSON,
		&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
