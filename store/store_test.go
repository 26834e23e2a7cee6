//go:build cgo

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleOrder(name string) Order {
	return Order{
		OriginalFilename: name + ".pdf",
		StoredPath:       "/orders/2024/04/order_x_" + name + ".pdf",
		ContentHash:      "hash-" + name,
		ParseMethod:      "rows",
		ClientName:       "Mari Maasikas",
		Phone:            "+3725111111",
		Address:          "Tartu mnt 5\n51 Tallinn",
		OrderRef:         "4512/03.04.2024",
		RecipientName:    "Mari Maasikas",
		ShipAddress:      "Tartu mnt 5\n51 Tallinn",
		ServiceTag:       "Transport + Paigaldus",
		ItemsCompact:     "1 - Diivan Oslo - 1 tk - Pealadu",
	}
}

// ---------------------------------------------------------------------------
// Schema / construction
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	s := newTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil *sql.DB")
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub", "dir")
	s, err := New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

func TestMigrationsApplied(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v, err := s.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if want := migrations[len(migrations)-1].version; v != want {
		t.Errorf("schema version = %d, want %d", v, want)
	}

	// Running again is a no-op.
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	id, err := s.InsertOrder(ctx, sampleOrder("a"))
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s.Close()
	if _, err := s.GetOrder(ctx, id); err != nil {
		t.Errorf("expected order %d after reopen, got %v", id, err)
	}
}

// ---------------------------------------------------------------------------
// Order CRUD
// ---------------------------------------------------------------------------

func TestInsertAndGetOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertOrder(ctx, sampleOrder("a"))
	if err != nil {
		t.Fatalf("inserting order: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero order id")
	}

	got, err := s.GetOrder(ctx, id)
	if err != nil {
		t.Fatalf("getting order: %v", err)
	}
	if got.Status != StatusNew {
		t.Errorf("Status = %q, want %q", got.Status, StatusNew)
	}
	if got.ShipAddress != "Tartu mnt 5\n51 Tallinn" {
		t.Errorf("ShipAddress = %q", got.ShipAddress)
	}
	if got.ItemsJSON != "[]" {
		t.Errorf("ItemsJSON = %q, want []", got.ItemsJSON)
	}
	if got.CreatedAt == "" || got.UpdatedAt == "" {
		t.Error("expected timestamps to be set")
	}
}

func TestInsertOrderRejectsUnknownStatus(t *testing.T) {
	s := newTestStore(t)
	o := sampleOrder("a")
	o.Status = "DONE"
	if _, err := s.InsertOrder(context.Background(), o); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetOrder(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetOrderByHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, _ := s.InsertOrder(ctx, sampleOrder("a"))
	if _, err := s.InsertOrder(ctx, sampleOrder("a")); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetOrderByHash(ctx, "hash-a")
	if err != nil {
		t.Fatalf("GetOrderByHash: %v", err)
	}
	if got.ID != first {
		t.Errorf("expected oldest order %d, got %d", first, got.ID)
	}

	if _, err := s.GetOrderByHash(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.InsertOrder(ctx, sampleOrder("a"))
	b, _ := s.InsertOrder(ctx, sampleOrder("b"))
	if err := s.UpdateOrder(ctx, b, map[string]string{"status": StatusScheduled}); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListOrders(ctx, "")
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(all) != 2 || all[0].ID != b || all[1].ID != a {
		t.Errorf("expected newest first [%d %d], got %+v", b, a, all)
	}

	tests := []struct {
		status string
		want   int
	}{
		{"ALL", 2},
		{StatusNew, 1},
		{StatusScheduled, 1},
		{StatusReadyForWork, 0},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got, err := s.ListOrders(ctx, tt.status)
			if err != nil {
				t.Fatalf("ListOrders(%q): %v", tt.status, err)
			}
			if len(got) != tt.want {
				t.Errorf("ListOrders(%q) returned %d orders, want %d", tt.status, len(got), tt.want)
			}
		})
	}

	if _, err := s.ListOrders(ctx, "bogus"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestUpdateOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, _ := s.InsertOrder(ctx, sampleOrder("a"))

	err := s.UpdateOrder(ctx, id, map[string]string{
		"status":          StatusContacted,
		"delivery_date":   "2024-04-10",
		"delivery_window": "10-12",
	})
	if err != nil {
		t.Fatalf("UpdateOrder: %v", err)
	}

	got, _ := s.GetOrder(ctx, id)
	if got.Status != StatusContacted || got.DeliveryDate != "2024-04-10" || got.DeliveryWindow != "10-12" {
		t.Errorf("unexpected order after update: %+v", got)
	}
	if got.RecipientName != "Mari Maasikas" {
		t.Errorf("untouched field changed: %q", got.RecipientName)
	}
}

func TestUpdateOrderErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, _ := s.InsertOrder(ctx, sampleOrder("a"))

	if err := s.UpdateOrder(ctx, id, map[string]string{"stored_path": "/etc/passwd"}); !errors.Is(err, ErrInvalidField) {
		t.Errorf("expected ErrInvalidField, got %v", err)
	}
	if err := s.UpdateOrder(ctx, id, map[string]string{"status": "DONE"}); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
	if err := s.UpdateOrder(ctx, 999, map[string]string{"notes": "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateOrder(ctx, 999, nil); err != nil {
		t.Errorf("expected empty update to be a no-op, got %v", err)
	}
}

func TestDeleteOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, _ := s.InsertOrder(ctx, sampleOrder("a"))

	if err := s.DeleteOrder(ctx, id); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}
	if _, err := s.GetOrder(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteOrder(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStatusCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.InsertOrder(ctx, sampleOrder("a"))
	b, _ := s.InsertOrder(ctx, sampleOrder("b"))
	s.UpdateOrder(ctx, b, map[string]string{"status": StatusReadyForWork})

	counts, err := s.StatusCounts(ctx)
	if err != nil {
		t.Fatalf("StatusCounts: %v", err)
	}
	if counts[StatusNew] != 1 || counts[StatusReadyForWork] != 1 || counts[StatusScheduled] != 0 {
		t.Errorf("unexpected counts %v", counts)
	}
	if len(counts) != len(Statuses) {
		t.Errorf("expected %d statuses, got %v", len(Statuses), counts)
	}
}

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

func TestSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mari, _ := s.InsertOrder(ctx, sampleOrder("a"))
	other := sampleOrder("b")
	other.ClientName = "John Demo"
	other.RecipientName = "John Demo"
	other.Address = "Lille 5\nTartu"
	other.ShipAddress = "Lille 5\nTartu"
	other.OrderRef = "778/12.05.2024"
	other.Phone = "+3725551234"
	other.ItemsCompact = "1 - Sofa - 1 tk - Ware"
	john, _ := s.InsertOrder(ctx, other)

	tests := []struct {
		name  string
		query string
		want  []int64
	}{
		{"name", "maasikas", []int64{mari}},
		{"address", "lille", []int64{john}},
		{"order_ref", "778/12", []int64{john}},
		{"phone", "5551234", []int64{john}},
		{"phone_spaced", "+372 555 1234", []int64{john}},
		{"phone_dashed", "555-12-34", []int64{john}},
		{"no_match", "zzzz", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Search(ctx, tt.query, 0)
			if err != nil {
				t.Fatalf("Search(%q): %v", tt.query, err)
			}
			var ids []int64
			for _, r := range got {
				ids = append(ids, r.Order.ID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("Search(%q) = %v, want %v", tt.query, ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("Search(%q) = %v, want %v", tt.query, ids, tt.want)
				}
			}
		})
	}
}

func TestSearchEmptyQueryAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.InsertOrder(ctx, sampleOrder("a"))
	s.InsertOrder(ctx, sampleOrder("b"))

	got, err := s.Search(ctx, "  ", 0)
	if err != nil || got != nil {
		t.Errorf("expected no results for empty query, got %v, %v", got, err)
	}

	got, err = s.Search(ctx, "mari", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("expected limit 1, got %d results", len(got))
	}
}
