// Package export writes stored orders as spreadsheets for dispatch.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/hansjooseptammerik/logistics-automation-mvp/items"
	"github.com/hansjooseptammerik/logistics-automation-mvp/store"
)

// Sheet names in the exported workbook.
const (
	OrdersSheet = "Orders"
	ItemsSheet  = "Items"
)

var orderHeader = []any{
	"ID", "Status", "Order ref", "Client", "Phone", "Address",
	"Delivery date", "Delivery window", "Service", "Notes",
	"Author", "Author e-mail", "Author phone", "Items", "File", "Created",
}

// ItemRow is one item line of the items CSV and the Items sheet.
type ItemRow struct {
	OrderID     int64  `csv:"order_id"`
	OrderRef    string `csv:"order_ref"`
	Client      string `csv:"client"`
	Sequence    int    `csv:"nr"`
	Description string `csv:"description"`
	Quantity    string `csv:"quantity"`
	Warehouse   string `csv:"warehouse"`
}

// OrderItems returns the item list of a stored order. The JSON column is
// preferred; the compact text is parsed when JSON is missing or unreadable.
func OrderItems(o store.Order) []items.Item {
	var out []items.Item
	if o.ItemsJSON != "" && json.Unmarshal([]byte(o.ItemsJSON), &out) == nil && len(out) > 0 {
		return out
	}
	return items.ParseCompact(o.ItemsCompact)
}

// ItemRows flattens the items of every order, in order.
func ItemRows(orders []store.Order) []ItemRow {
	var rows []ItemRow
	for _, o := range orders {
		for _, it := range OrderItems(o) {
			rows = append(rows, ItemRow{
				OrderID:     o.ID,
				OrderRef:    o.OrderRef,
				Client:      o.ClientName,
				Sequence:    it.Sequence,
				Description: it.Description,
				Quantity:    it.Quantity,
				Warehouse:   it.Warehouse,
			})
		}
	}
	return rows
}

// WriteItemsCSV writes one CSV row per item, with a header row.
func WriteItemsCSV(w io.Writer, orders []store.Order) error {
	rows := ItemRows(orders)
	if rows == nil {
		rows = []ItemRow{}
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("writing items CSV: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook with an Orders sheet (one row per order) and
// an Items sheet (one row per item).
func WriteXLSX(w io.Writer, orders []store.Order) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", OrdersSheet); err != nil {
		return fmt.Errorf("naming orders sheet: %w", err)
	}
	if err := setRow(f, OrdersSheet, 1, orderHeader); err != nil {
		return err
	}
	for i, o := range orders {
		row := []any{
			o.ID, o.Status, o.OrderRef, o.ClientName, o.Phone, o.Address,
			o.DeliveryDate, o.DeliveryWindow, o.ServiceTag, o.Notes,
			o.DocAuthor, o.DocEmail, o.DocPhone, o.ItemsCompact, o.OriginalFilename, o.CreatedAt,
		}
		if err := setRow(f, OrdersSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(ItemsSheet); err != nil {
		return fmt.Errorf("creating items sheet: %w", err)
	}
	header := []any{"Order ID", "Order ref", "Client", "Nr", "Description", "Quantity", "Warehouse"}
	if err := setRow(f, ItemsSheet, 1, header); err != nil {
		return err
	}
	for i, r := range ItemRows(orders) {
		row := []any{r.OrderID, r.OrderRef, r.Client, r.Sequence, r.Description, quantityCell(r.Quantity), r.Warehouse}
		if err := setRow(f, ItemsSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}

// quantityCell writes whole-number quantities as numbers so they can be
// summed; "?" and decimals stay text.
func quantityCell(q string) any {
	if n, err := strconv.Atoi(q); err == nil {
		return n
	}
	return q
}
