package order

import (
	"encoding/json"
	"reflect"
	"slices"
	"sync"
	"testing"

	"github.com/hansjooseptammerik/logistics-automation-mvp/items"
	"github.com/hansjooseptammerik/logistics-automation-mvp/line"
)

var estonianNote = []string{
	"Aatrium Sisustus OÜ",
	"Order nr. 4512/03.04.2024",
	"Vastuvõtja: Mari Maasikas",
	"Lähetusaadress:",
	"Tartu mnt 5",
	"51 Tallinn",
	"palun helistada tund enne, vana diivan utiliseerida",
	"Nr Kood Artikkel Kogus Ladu",
	"1 ERMA12 Diivan Oslo",
	"hall kangas 1 Pealadu",
	"2 TBL100 Laud 2 Kaupluse ladu",
	"Paigaldus",
	"Dokumendi koostas: Jaan Tamm",
	"E-mail: jaan@aatrium.ee",
	"Tel: +372 6001234",
	"+372 5111111",
}

var englishNote = []string{
	"Shoporder",
	"Order nr. 778/12.05.2024",
	"Name: John Demo Phone: +372 5551234",
	"Receiver: John Demo",
	"Address: Lille 5",
	"Tartu",
	"No. Code Description Quantity Location",
	"1 ABC100 Sofa Oslo 1 Ware",
	"2 ABC200 Armchair 2 Shop",
	"Demo Terms: goods remain property of the seller",
	line.PageBreak,
	"3 635511",
	"4 635567",
	"Coffee table",
	"Lamp",
	"1",
	"2",
	"Ware",
	"Shop",
	"Document created by: Jane Clerk",
	"Telephone: +37212345678",
	"E-mail: jane@shop.example",
	"+372 5111111",
}

// ---------------------------------------------------------------------------
// Full documents
// ---------------------------------------------------------------------------

func TestParseEstonianNote(t *testing.T) {
	got := Parse(estonianNote)
	want := Record{
		OrderRef:      "4512/03.04.2024",
		RecipientName: "Mari Maasikas",
		ShipAddress:   "Tartu mnt 5\n51 Tallinn",
		Notes:         "palun helistada tund enne, vana diivan utiliseerida",
		DocAuthor:     "Jaan Tamm",
		DocEmail:      "jaan@aatrium.ee",
		DocPhone:      "+372 6001234",
		ClientPhone:   "+3725111111",
		ServiceTag:    "Transport + Paigaldus + Utiil",
		Items: []items.Item{
			{Sequence: 1, Description: "Diivan Oslo hall kangas", Quantity: "1", Warehouse: "Pealadu"},
			{Sequence: 2, Description: "Laud", Quantity: "2", Warehouse: "Kaupluse ladu"},
		},
		ItemsCompact: "1 - Diivan Oslo hall kangas - 1 tk - Pealadu\n2 - Laud - 2 tk - Kaupluse ladu",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse =\n%+v\nwant\n%+v", got, want)
	}
}

func TestParseEnglishNoteWithDetachedBlock(t *testing.T) {
	got := Parse(englishNote)

	if got.OrderRef != "778/12.05.2024" {
		t.Errorf("OrderRef = %q", got.OrderRef)
	}
	if got.RecipientName != "John Demo" {
		t.Errorf("RecipientName = %q", got.RecipientName)
	}
	if got.ShipAddress != "Lille 5\nTartu" {
		t.Errorf("ShipAddress = %q", got.ShipAddress)
	}
	if got.Notes != "" {
		t.Errorf("Notes = %q, want empty", got.Notes)
	}
	if got.ClientPhone != "+3725111111" {
		t.Errorf("ClientPhone = %q, want +3725111111", got.ClientPhone)
	}
	if got.DocAuthor != "Jane Clerk" || got.DocPhone != "+37212345678" || got.DocEmail != "jane@shop.example" {
		t.Errorf("unexpected author block %q %q %q", got.DocAuthor, got.DocPhone, got.DocEmail)
	}
	if got.ServiceTag != "Transport" {
		t.Errorf("ServiceTag = %q, want Transport", got.ServiceTag)
	}
	wantCompact := "1 - Sofa Oslo - 1 tk - Ware\n" +
		"2 - Armchair - 2 tk - Shop\n" +
		"3 - Coffee table - 1 tk - Ware\n" +
		"4 - Lamp - 2 tk - Shop"
	if got.ItemsCompact != wantCompact {
		t.Errorf("ItemsCompact =\n%s\nwant\n%s", got.ItemsCompact, wantCompact)
	}
}

func TestParseEmpty(t *testing.T) {
	for _, lines := range [][]string{nil, {}, {"", line.PageBreak, "   "}} {
		got := Parse(lines)
		want := Record{ServiceTag: "Transport", Items: []items.Item{}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Parse(%q) = %+v, want %+v", lines, got, want)
		}
	}
}

func TestParseTextMultiPage(t *testing.T) {
	text := line.Join(line.FromPages([]string{
		"Nr Kood Artikkel Kogus Ladu\n7 ABC Sofa\nSignature\n",
		"Nr Kood Artikkel Kogus Ladu\n8 ABC Chair\nSignature\n",
	}))
	got := ParseText(text)
	if len(got.Items) != 2 || got.Items[0].Sequence != 7 || got.Items[1].Sequence != 8 {
		t.Errorf("unexpected items %+v", got.Items)
	}
}

// ---------------------------------------------------------------------------
// Properties
// ---------------------------------------------------------------------------

func TestParseIsIdempotent(t *testing.T) {
	for _, doc := range [][]string{estonianNote, englishNote} {
		a, err := json.Marshal(Parse(doc))
		if err != nil {
			t.Fatal(err)
		}
		b, err := json.Marshal(Parse(doc))
		if err != nil {
			t.Fatal(err)
		}
		if string(a) != string(b) {
			t.Errorf("expected identical output, got\n%s\n%s", a, b)
		}
	}
}

func TestParseDoesNotModifyInput(t *testing.T) {
	in := slices.Clone(englishNote)
	Parse(in)
	if !slices.Equal(in, englishNote) {
		t.Error("expected the input lines to be unchanged")
	}
}

func TestParseItemsStrictlyAscending(t *testing.T) {
	for _, doc := range [][]string{estonianNote, englishNote} {
		rec := Parse(doc)
		for i := 1; i < len(rec.Items); i++ {
			if rec.Items[i].Sequence <= rec.Items[i-1].Sequence {
				t.Errorf("items not strictly ascending: %+v", rec.Items)
			}
		}
	}
}

func TestCompactRoundTrip(t *testing.T) {
	rec := Parse(englishNote)
	back := items.ParseCompact(rec.ItemsCompact)
	if len(back) != len(rec.Items) {
		t.Fatalf("expected %d items, got %d", len(rec.Items), len(back))
	}
	for i, it := range rec.Items {
		b := back[i]
		if b.Sequence != it.Sequence || b.Quantity != it.Quantity || b.Warehouse != it.Warehouse {
			t.Errorf("item %d: got %+v, want %+v", i, b, it)
		}
	}
}

func TestParseConcurrent(t *testing.T) {
	want := Parse(estonianNote)
	var wg sync.WaitGroup
	errs := make(chan Record, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := Parse(estonianNote); !reflect.DeepEqual(got, want) {
				errs <- got
			}
		}()
	}
	wg.Wait()
	close(errs)
	for got := range errs {
		t.Errorf("concurrent parse differs: %+v", got)
	}
}

// ---------------------------------------------------------------------------
// Links
// ---------------------------------------------------------------------------

func TestMapLink(t *testing.T) {
	got := MapLink(" Tartu mnt 5\n51 Tallinn ")
	want := "https://www.google.com/maps/search/?api=1&query=Tartu+mnt+5%0A51+Tallinn"
	if got != want {
		t.Errorf("MapLink = %q, want %q", got, want)
	}
}

func TestCallLink(t *testing.T) {
	if got := CallLink("+372 511 1111"); got != "tel:+3725111111" {
		t.Errorf("CallLink = %q", got)
	}
	if got := CallLink(""); got != "" {
		t.Errorf("CallLink(\"\") = %q, want empty", got)
	}
}
