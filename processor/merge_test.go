package processor

import (
	"testing"
	"time"

	"nseflow/models"
)

func sampleDataset(t *testing.T) *models.Dataset {
	t.Helper()
	ds := models.NewDataset("symbol", "company", "name", "date", "secVal", "tdpTransactionType", "buyQuantity")
	ds.Append(
		models.Row{
			"symbol":             models.StringValue("ABC"),
			"company":            models.StringValue("ABC Ltd"),
			"name":               models.StringValue("Promoter One"),
			"date":               models.TimeValue(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
			"secVal":             models.NumberValue(100),
			"tdpTransactionType": models.StringValue("Buy"),
			"buyQuantity":        models.NumberValue(10),
		},
		models.Row{
			"symbol":             models.StringValue("XYZ"),
			"company":            models.StringValue("XYZ Ltd"),
			"name":               models.StringValue("Promoter Two"),
			"date":               models.TimeValue(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
			"secVal":             models.NumberValue(200),
			"tdpTransactionType": models.StringValue("Sell"),
			"buyQuantity":        models.Absent(),
		},
	)
	return ds
}

func TestIdentityKeyAbsentPlaceholder(t *testing.T) {
	columns := []string{"symbol", "company", "name", "date", "secVal", "tdpTransactionType"}
	row := models.Row{
		"symbol":             models.StringValue("ABC"),
		"company":            models.Absent(),
		"name":               models.StringValue("P"),
		"date":               models.TimeValue(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		"secVal":             models.NumberValue(100),
		"tdpTransactionType": models.StringValue("Buy"),
	}
	got := IdentityKey(row, columns)
	want := "ABC|NA|P|2024-01-01 00:00:00|100|Buy"
	if got != want {
		t.Fatalf("key = %q, want %q", got, want)
	}
}

func TestIdentityKeyOmitsMissingColumns(t *testing.T) {
	// A column absent from the schema is omitted outright, unlike a column
	// that exists with an absent value.
	columns := []string{"symbol", "date", "secVal", "tdpTransactionType"}
	row := models.Row{
		"symbol":             models.StringValue("ABC"),
		"date":               models.TimeValue(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		"secVal":             models.NumberValue(100),
		"tdpTransactionType": models.StringValue("Buy"),
	}
	got := IdentityKey(row, columns)
	want := "ABC|2024-01-01 00:00:00|100|Buy"
	if got != want {
		t.Fatalf("key = %q, want %q", got, want)
	}
}

func TestIdentityKeyIgnoresNonKeyFields(t *testing.T) {
	columns := []string{"symbol", "company", "name", "date", "secVal", "tdpTransactionType", "buyQuantity"}
	base := models.Row{
		"symbol":             models.StringValue("ABC"),
		"company":            models.StringValue("ABC Ltd"),
		"name":               models.StringValue("P"),
		"date":               models.TimeValue(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		"secVal":             models.NumberValue(100),
		"tdpTransactionType": models.StringValue("Buy"),
		"buyQuantity":        models.NumberValue(10),
	}
	other := make(models.Row, len(base))
	for k, v := range base {
		other[k] = v
	}
	other["buyQuantity"] = models.NumberValue(999)

	if IdentityKey(base, columns) != IdentityKey(other, columns) {
		t.Fatal("keys must not depend on non-key fields")
	}
}

func TestMergeNoExisting(t *testing.T) {
	incoming := sampleDataset(t)
	res := Merge(nil, incoming, "date")
	if len(res.NewRecords) != incoming.Len() {
		t.Fatalf("new = %d, want %d", len(res.NewRecords), incoming.Len())
	}
	if res.Merged.Len() != incoming.Len() {
		t.Fatalf("merged = %d, want %d", res.Merged.Len(), incoming.Len())
	}
}

func TestMergeIdempotent(t *testing.T) {
	existing := sampleDataset(t)
	incoming := sampleDataset(t)
	res := Merge(existing, incoming, "date")
	if len(res.NewRecords) != 0 {
		t.Fatalf("new = %d, want 0", len(res.NewRecords))
	}
	if res.Merged.Len() != existing.Len() {
		t.Fatalf("merged = %d, want %d", res.Merged.Len(), existing.Len())
	}
}

func TestMergeOnlyUnseenKeysAdded(t *testing.T) {
	existing := sampleDataset(t)

	incoming := models.NewDataset("symbol", "company", "name", "date", "secVal", "tdpTransactionType", "buyQuantity")
	incoming.Append(
		// Same key as an existing row, different non-key field.
		models.Row{
			"symbol":             models.StringValue("ABC"),
			"company":            models.StringValue("ABC Ltd"),
			"name":               models.StringValue("Promoter One"),
			"date":               models.TimeValue(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
			"secVal":             models.NumberValue(100),
			"tdpTransactionType": models.StringValue("Buy"),
			"buyQuantity":        models.NumberValue(999),
		},
		models.Row{
			"symbol":             models.StringValue("NEW"),
			"company":            models.StringValue("New Ltd"),
			"name":               models.StringValue("Someone"),
			"date":               models.TimeValue(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)),
			"secVal":             models.NumberValue(300),
			"tdpTransactionType": models.StringValue("Buy"),
			"buyQuantity":        models.NumberValue(5),
		},
	)

	res := Merge(existing, incoming, "date")
	if len(res.NewRecords) != 1 {
		t.Fatalf("new = %d, want 1", len(res.NewRecords))
	}
	if res.NewRecords[0]["symbol"].Str != "NEW" {
		t.Fatalf("new record = %+v", res.NewRecords[0])
	}
	// The stored row for the shared key keeps its original quantity.
	for _, row := range res.Merged.Rows {
		if row["symbol"].Str == "ABC" && row["buyQuantity"].Num == 999 {
			t.Fatal("existing record was rewritten by an incoming duplicate")
		}
	}
}

func TestMergeDedupesWithinIncoming(t *testing.T) {
	incoming := models.NewDataset("symbol", "date", "secVal", "tdpTransactionType", "buyQuantity")
	row := models.Row{
		"symbol":             models.StringValue("ABC"),
		"date":               models.TimeValue(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		"secVal":             models.NumberValue(100),
		"tdpTransactionType": models.StringValue("Buy"),
		"buyQuantity":        models.NumberValue(10),
	}
	dup := make(models.Row, len(row))
	for k, v := range row {
		dup[k] = v
	}
	dup["buyQuantity"] = models.NumberValue(999)
	incoming.Append(row, dup)

	res := Merge(nil, incoming, "date")
	if len(res.NewRecords) != 1 {
		t.Fatalf("new = %d, want 1 (first-seen only)", len(res.NewRecords))
	}
	if res.NewRecords[0]["buyQuantity"].Num != 10 {
		t.Fatalf("first-seen record should win, got %+v", res.NewRecords[0])
	}
}

func TestMergeSortsByDateDescending(t *testing.T) {
	existing := sampleDataset(t)
	incoming := models.NewDataset("symbol", "date", "secVal", "tdpTransactionType")
	incoming.Append(
		models.Row{
			"symbol":             models.StringValue("MID"),
			"date":               models.TimeValue(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
			"secVal":             models.NumberValue(50),
			"tdpTransactionType": models.StringValue("Buy"),
		},
		models.Row{
			"symbol":             models.StringValue("UNDATED"),
			"date":               models.Absent(),
			"secVal":             models.NumberValue(60),
			"tdpTransactionType": models.StringValue("Sell"),
		},
	)

	res := Merge(existing, incoming, "date")
	symbols := make([]string, 0, res.Merged.Len())
	for _, row := range res.Merged.Rows {
		symbols = append(symbols, row["symbol"].Str)
	}
	want := []string{"XYZ", "MID", "ABC", "UNDATED"}
	for i := range want {
		if symbols[i] != want[i] {
			t.Fatalf("order = %v, want %v", symbols, want)
		}
	}
}
