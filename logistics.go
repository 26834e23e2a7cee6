// Package logistics ingests delivery-note documents, parses them into order
// records and keeps them in a local SQLite store for dispatch.
package logistics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hansjooseptammerik/logistics-automation-mvp/export"
	"github.com/hansjooseptammerik/logistics-automation-mvp/items"
	"github.com/hansjooseptammerik/logistics-automation-mvp/order"
	"github.com/hansjooseptammerik/logistics-automation-mvp/parser"
	"github.com/hansjooseptammerik/logistics-automation-mvp/store"
)

// Engine is the main entry point for order intake.
type Engine interface {
	// ParseFile extracts an order record from a document without storing it.
	ParseFile(ctx context.Context, path string) (*ParseOutput, error)

	// Ingest copies the document at path into the orders directory, parses
	// it and stores the order. Skips if an order with the same content
	// hash exists, unless WithForce is given.
	Ingest(ctx context.Context, path string, opts ...IngestOption) (*IngestResult, error)

	// IngestReader is Ingest for an upload; name is the original file name.
	IngestReader(ctx context.Context, name string, r io.Reader, opts ...IngestOption) (*IngestResult, error)

	// Get returns one order.
	Get(ctx context.Context, id int64) (*Order, error)

	// List returns orders newest first, optionally filtered by status.
	List(ctx context.Context, status string) ([]Order, error)

	// Search ranks orders by a fuzzy match on names, addresses and refs.
	Search(ctx context.Context, query string, limit int) ([]Order, error)

	// Update edits dispatcher fields of an order.
	Update(ctx context.Context, id int64, fields map[string]string) (*Order, error)

	// Reparse re-runs the parser on the stored document.
	Reparse(ctx context.Context, id int64) (*Order, error)

	// Delete removes an order and its stored document.
	Delete(ctx context.Context, id int64) error

	// Export writes orders as "xlsx" or "csv".
	Export(ctx context.Context, w io.Writer, format, status string) error

	// StatusCounts returns the number of orders per status.
	StatusCounts(ctx context.Context) (map[string]int, error)

	// Store returns the underlying store for diagnostic access.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// Order is a stored order with its items and dispatch links.
type Order struct {
	store.Order
	Items    []items.Item `json:"items"`
	MapLink  string       `json:"map_link,omitempty"`
	CallLink string       `json:"call_link,omitempty"`
}

// ParseOutput is the result of parsing a document without storing it.
type ParseOutput struct {
	Record order.Record `json:"record"`
	Method string       `json:"method"`
	Pages  int          `json:"pages"`
	Empty  bool         `json:"empty"`
}

// IngestResult reports the outcome of one ingest. A document that was
// stored but could not be parsed has a ParseError and empty parsed fields.
type IngestResult struct {
	OrderID    int64  `json:"order_id"`
	Duplicate  bool   `json:"duplicate"`
	ParseError string `json:"parse_error,omitempty"`
}

// IngestOption configures ingestion behavior.
type IngestOption func(*ingestOptions)

type ingestOptions struct {
	force bool
}

// WithForce stores the document even if its hash is already known.
func WithForce() IngestOption {
	return func(o *ingestOptions) { o.force = true }
}

// dispatcherFields are seeded from the parsed note but owned by the
// dispatcher afterwards.
var dispatcherFields = []string{"client_name", "phone", "address", "notes"}

// readOnlyFields are store columns that Update does not accept.
var readOnlyFields = []string{"items_json", "parse_method"}

type engine struct {
	cfg       Config
	store     *store.Store
	parsers   *parser.Registry
	ordersDir string
	now       func() time.Time
	closed    atomic.Bool
}

// New creates an engine with the given configuration.
func New(cfg Config) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dbPath := cfg.resolveDBPath()
	ordersDir := cfg.resolveOrdersDir()
	if err := os.MkdirAll(ordersDir, 0755); err != nil {
		return nil, fmt.Errorf("creating orders directory: %w", err)
	}

	s, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	parsers := parser.NewRegistry()
	if cfg.PDFRows {
		parsers.Register("pdf", &parser.PDFParser{Rows: true})
	}

	slog.Debug("engine ready", "db", dbPath, "orders_dir", ordersDir, "pdf_rows", cfg.PDFRows)
	return &engine{
		cfg:       cfg,
		store:     s,
		parsers:   parsers,
		ordersDir: ordersDir,
		now:       time.Now,
	}, nil
}

// ParseFile extracts text with the parser registered for the file's
// extension and parses it.
func (e *engine) ParseFile(ctx context.Context, path string) (*ParseOutput, error) {
	start := time.Now()
	out, err := ParseDocument(ctx, e.parsers, path)
	if err != nil {
		return nil, err
	}
	slog.Info("parse: document parsed",
		"file", filepath.Base(path), "method", out.Method, "pages", out.Pages,
		"items", len(out.Record.Items), "elapsed", time.Since(start).Round(time.Millisecond))
	return out, nil
}

// ParseDocument parses the file at path with the registry's parser for its
// extension. It needs no order store.
func ParseDocument(ctx context.Context, parsers *parser.Registry, path string) (*ParseOutput, error) {
	format := parser.FormatOf(path)
	p, err := parsers.Get(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	res, err := p.Parse(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	return &ParseOutput{
		Record: order.Parse(res.Lines()),
		Method: res.Method,
		Pages:  len(res.Pages),
		Empty:  res.Empty(),
	}, nil
}

// Ingest opens the file at path and ingests it under its base name.
func (e *engine) Ingest(ctx context.Context, path string, opts ...IngestOption) (*IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()
	return e.IngestReader(ctx, filepath.Base(path), f, opts...)
}

// IngestReader stores the upload, creates the order row and fills it from
// the parsed note. Parse failures keep the order so it can be completed by
// hand.
func (e *engine) IngestReader(ctx context.Context, name string, r io.Reader, opts ...IngestOption) (*IngestResult, error) {
	if e.closed.Load() {
		return nil, ErrStoreClosed
	}
	options := &ingestOptions{}
	for _, o := range opts {
		o(options)
	}

	format := parser.FormatOf(name)
	if _, err := e.parsers.Get(format); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	data, err := e.readUpload(r)
	if err != nil {
		return nil, err
	}
	hash := contentHash(data)

	if !options.force {
		existing, err := e.store.GetOrderByHash(ctx, hash)
		if err == nil {
			slog.Info("ingest: duplicate skipped", "file", name, "order_id", existing.ID)
			return &IngestResult{OrderID: existing.ID, Duplicate: true}, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("checking duplicates: %w", err)
		}
	}

	stored, err := e.storeFile(name, format, data)
	if err != nil {
		return nil, err
	}

	id, err := e.store.InsertOrder(ctx, store.Order{
		OriginalFilename: name,
		StoredPath:       stored,
		ContentHash:      hash,
		DeliveryDate:     e.now().Format("2006-01-02"),
	})
	if err != nil {
		os.Remove(stored)
		return nil, fmt.Errorf("inserting order: %w", err)
	}
	slog.Info("ingest: document stored", "file", name, "order_id", id, "path", stored)

	result := &IngestResult{OrderID: id}
	if _, err := e.applyParse(ctx, id); err != nil {
		slog.Warn("ingest: order kept without parsed fields", "order_id", id, "error", err)
		result.ParseError = err.Error()
	}
	return result, nil
}

func (e *engine) Get(ctx context.Context, id int64) (*Order, error) {
	if e.closed.Load() {
		return nil, ErrStoreClosed
	}
	o, err := e.store.GetOrder(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	view := newOrder(*o)
	return &view, nil
}

func (e *engine) List(ctx context.Context, status string) ([]Order, error) {
	if e.closed.Load() {
		return nil, ErrStoreClosed
	}
	rows, err := e.store.ListOrders(ctx, status)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	out := make([]Order, len(rows))
	for i, o := range rows {
		out[i] = newOrder(o)
	}
	return out, nil
}

func (e *engine) Search(ctx context.Context, query string, limit int) ([]Order, error) {
	if e.closed.Load() {
		return nil, ErrStoreClosed
	}
	results, err := e.store.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Order, len(results))
	for i, r := range results {
		out[i] = newOrder(r.Order)
	}
	return out, nil
}

// Update applies dispatcher edits. Editing items_compact also refreshes the
// structured item list.
func (e *engine) Update(ctx context.Context, id int64, fields map[string]string) (*Order, error) {
	if e.closed.Load() {
		return nil, ErrStoreClosed
	}
	upd := make(map[string]string, len(fields)+1)
	for k, v := range fields {
		for _, ro := range readOnlyFields {
			if k == ro {
				return nil, fmt.Errorf("%w: %q", ErrInvalidField, k)
			}
		}
		upd[k] = v
	}
	if compact, ok := upd["items_compact"]; ok {
		js, err := json.Marshal(nonNil(items.ParseCompact(compact)))
		if err != nil {
			return nil, err
		}
		upd["items_json"] = string(js)
	}

	if err := e.store.UpdateOrder(ctx, id, upd); err != nil {
		return nil, mapStoreErr(err)
	}
	return e.Get(ctx, id)
}

// Reparse refreshes the parsed columns from the stored document. Dispatcher
// fields are only filled where still empty.
func (e *engine) Reparse(ctx context.Context, id int64) (*Order, error) {
	if e.closed.Load() {
		return nil, ErrStoreClosed
	}
	if _, err := e.applyParse(ctx, id); err != nil {
		return nil, err
	}
	return e.Get(ctx, id)
}

func (e *engine) Delete(ctx context.Context, id int64) error {
	if e.closed.Load() {
		return ErrStoreClosed
	}
	o, err := e.store.GetOrder(ctx, id)
	if err != nil {
		return mapStoreErr(err)
	}
	if err := e.store.DeleteOrder(ctx, id); err != nil {
		return mapStoreErr(err)
	}
	if err := os.Remove(o.StoredPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("delete: stored document not removed", "order_id", id, "path", o.StoredPath, "error", err)
	}
	slog.Info("delete: order removed", "order_id", id)
	return nil
}

func (e *engine) Export(ctx context.Context, w io.Writer, format, status string) error {
	if e.closed.Load() {
		return ErrStoreClosed
	}
	orders, err := e.store.ListOrders(ctx, status)
	if err != nil {
		return mapStoreErr(err)
	}
	switch format {
	case "xlsx":
		return export.WriteXLSX(w, orders)
	case "csv":
		return export.WriteItemsCSV(w, orders)
	default:
		return fmt.Errorf("%w: export %s", ErrUnsupportedFormat, format)
	}
}

func (e *engine) StatusCounts(ctx context.Context) (map[string]int, error) {
	if e.closed.Load() {
		return nil, ErrStoreClosed
	}
	return e.store.StatusCounts(ctx)
}

// Store returns the underlying store for diagnostic access.
func (e *engine) Store() *store.Store {
	return e.store
}

// Close shuts down the engine.
func (e *engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	return e.store.Close()
}

// applyParse parses the order's stored document and writes the parsed
// fields back.
func (e *engine) applyParse(ctx context.Context, id int64) (*ParseOutput, error) {
	o, err := e.store.GetOrder(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	out, err := e.ParseFile(ctx, o.StoredPath)
	if err != nil {
		return nil, err
	}
	if out.Empty {
		return out, ErrEmptyDocument
	}

	fields, err := parsedFields(out, o)
	if err != nil {
		return nil, err
	}
	if err := e.store.UpdateOrder(ctx, id, fields); err != nil {
		return nil, mapStoreErr(err)
	}
	return out, nil
}

// parsedFields maps a parse result onto order columns. Dispatcher fields
// are only set where the current order has none.
func parsedFields(out *ParseOutput, current *store.Order) (map[string]string, error) {
	rec := out.Record
	js, err := json.Marshal(nonNil(rec.Items))
	if err != nil {
		return nil, fmt.Errorf("encoding items: %w", err)
	}

	fields := map[string]string{
		"order_ref":      rec.OrderRef,
		"recipient_name": rec.RecipientName,
		"ship_address":   rec.ShipAddress,
		"service_tag":    rec.ServiceTag,
		"doc_author":     rec.DocAuthor,
		"doc_email":      rec.DocEmail,
		"doc_phone":      rec.DocPhone,
		"items_compact":  rec.ItemsCompact,
		"items_json":     string(js),
		"parse_method":   out.Method,
	}

	seed := map[string]string{
		"client_name": rec.RecipientName,
		"phone":       rec.ClientPhone,
		"address":     rec.ShipAddress,
		"notes":       rec.Notes,
	}
	have := map[string]string{
		"client_name": current.ClientName,
		"phone":       current.Phone,
		"address":     current.Address,
		"notes":       current.Notes,
	}
	for _, k := range dispatcherFields {
		if strings.TrimSpace(have[k]) == "" && seed[k] != "" {
			fields[k] = seed[k]
		}
	}
	return fields, nil
}

func (e *engine) readUpload(r io.Reader) ([]byte, error) {
	limit := e.cfg.MaxUploadBytes
	if limit <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading document: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}

// storeFile writes data to <orders>/<yyyy>/<mm>/order_<uuid>_<safe name>.
func (e *engine) storeFile(name, format string, data []byte) (string, error) {
	now := e.now()
	dir := filepath.Join(e.ordersDir, fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating order directory: %w", err)
	}

	base := "order_" + uuid.NewString() + "_" + SafeFilename(name)
	if parser.FormatOf(base) != format {
		base += "." + format
	}
	path := filepath.Join(dir, base)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing document: %w", err)
	}
	return path, nil
}

func newOrder(o store.Order) Order {
	addr := o.Address
	if strings.TrimSpace(addr) == "" {
		addr = o.ShipAddress
	}
	view := Order{
		Order:    o,
		Items:    nonNil(export.OrderItems(o)),
		CallLink: order.CallLink(o.Phone),
	}
	if strings.TrimSpace(addr) != "" {
		view.MapLink = order.MapLink(addr)
	}
	return view
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrOrderNotFound, err)
	case errors.Is(err, store.ErrInvalidStatus):
		return fmt.Errorf("%w: %w", ErrInvalidStatus, err)
	case errors.Is(err, store.ErrInvalidField):
		return fmt.Errorf("%w: %w", ErrInvalidField, err)
	}
	return err
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func nonNil(list []items.Item) []items.Item {
	if list == nil {
		return []items.Item{}
	}
	return list
}
