package processor

import (
	"testing"
	"time"

	"nseflow/models"
)

func TestNormalizeTypedColumns(t *testing.T) {
	raw := []map[string]any{{
		"symbol":      "ABC",
		"company":     "ABC Ltd",
		"date":        "02-Jan-2024 10:30",
		"secVal":      "150000.5",
		"buyQuantity": float64(10),
	}}

	ds := NewNormalizer().Normalize(raw)
	if ds.Len() != 1 {
		t.Fatalf("rows = %d, want 1", ds.Len())
	}
	row := ds.Rows[0]

	want := time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC)
	if v := row["date"]; v.Kind != models.KindTime || !v.Time.Equal(want) {
		t.Errorf("date = %+v, want %v", v, want)
	}
	if v := row["secVal"]; v.Kind != models.KindNumber || v.Num != 150000.5 {
		t.Errorf("secVal = %+v, want 150000.5", v)
	}
	if v := row["buyQuantity"]; v.Kind != models.KindNumber || v.Num != 10 {
		t.Errorf("buyQuantity = %+v, want 10", v)
	}
	if v := row["symbol"]; v.Kind != models.KindString || v.Str != "ABC" {
		t.Errorf("symbol = %+v, want ABC", v)
	}
}

func TestNormalizeSentinelsUniform(t *testing.T) {
	raw := []map[string]any{{
		"symbol":  "-",
		"company": "",
		"name":    nil,
		"secVal":  "-",
		"date":    "",
	}}

	ds := NewNormalizer().Normalize(raw)
	row := ds.Rows[0]
	for _, col := range []string{"symbol", "company", "name", "secVal", "date"} {
		if !row[col].IsAbsent() {
			t.Errorf("%s = %+v, want absent", col, row[col])
		}
	}
}

func TestNormalizeMalformedCellsDegrade(t *testing.T) {
	raw := []map[string]any{
		{"date": "not a date", "secVal": "12,34", "symbol": "OK"},
		{"date": "05-Feb-2024 09:00", "secVal": "99"},
	}

	ds := NewNormalizer().Normalize(raw)
	if ds.Len() != 2 {
		t.Fatalf("rows = %d, want 2; bad cells must not drop rows", ds.Len())
	}
	if !ds.Rows[0]["date"].IsAbsent() {
		t.Errorf("unparseable date should be absent, got %+v", ds.Rows[0]["date"])
	}
	if !ds.Rows[0]["secVal"].IsAbsent() {
		t.Errorf("unparseable number should be absent, got %+v", ds.Rows[0]["secVal"])
	}
	if ds.Rows[1]["secVal"].Num != 99 {
		t.Errorf("secVal = %+v, want 99", ds.Rows[1]["secVal"])
	}
}

func TestNormalizeCanonicalTimeRoundTrip(t *testing.T) {
	// Rows reloaded from CSV carry the canonical layout instead of the
	// feed's; both must normalize to the same instant.
	fresh := NewNormalizer().Normalize([]map[string]any{{"date": "02-Jan-2024 10:30"}})
	reloaded := NewNormalizer().Normalize([]map[string]any{{"date": "2024-01-02 10:30:00"}})
	f, r := fresh.Rows[0]["date"], reloaded.Rows[0]["date"]
	if f.Kind != models.KindTime || r.Kind != models.KindTime || !f.Time.Equal(r.Time) {
		t.Fatalf("canonical layout mismatch: %+v vs %+v", f, r)
	}
}

func TestNormalizeOrderPreserving(t *testing.T) {
	raw := []map[string]any{
		{"symbol": "A"},
		{"symbol": "B"},
		{"symbol": "C"},
	}
	ds := NewNormalizer().Normalize(raw)
	for i, want := range []string{"A", "B", "C"} {
		if ds.Rows[i]["symbol"].Str != want {
			t.Fatalf("row %d = %+v, want %s", i, ds.Rows[i]["symbol"], want)
		}
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	ds := NewNormalizer().Normalize(nil)
	if ds.Len() != 0 || len(ds.Columns) != 0 {
		t.Fatalf("empty input should yield empty dataset, got %+v", ds)
	}
}
