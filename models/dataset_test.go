package models

import (
	"testing"
	"time"
)

func TestValueString(t *testing.T) {
	ts := time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC)
	cases := []struct {
		name string
		v    Value
		want string
	}{
		{"absent", Absent(), ""},
		{"string", StringValue("ABC"), "ABC"},
		{"whole number", NumberValue(100), "100"},
		{"fraction", NumberValue(12.5), "12.5"},
		{"time", TimeValue(ts), "2024-01-02 10:30:00"},
	}
	for _, c := range cases {
		if got := c.v.String(); got != c.want {
			t.Errorf("%s: got %q, want %q", c.name, got, c.want)
		}
	}
}

func TestAddColumnsUnion(t *testing.T) {
	d := NewDataset("symbol", "company")
	d.AddColumns([]string{"company", "date", "secVal"})
	want := []string{"symbol", "company", "date", "secVal"}
	if len(d.Columns) != len(want) {
		t.Fatalf("columns = %v, want %v", d.Columns, want)
	}
	for i, c := range want {
		if d.Columns[i] != c {
			t.Fatalf("columns = %v, want %v", d.Columns, want)
		}
	}
}

func TestMaxTime(t *testing.T) {
	d := NewDataset("date")
	if _, ok := d.MaxTime("date"); ok {
		t.Fatal("empty dataset should have no max time")
	}
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	d.Append(
		Row{"date": TimeValue(t1)},
		Row{"date": Absent()},
		Row{"date": TimeValue(t2)},
	)
	max, ok := d.MaxTime("date")
	if !ok || !max.Equal(t2) {
		t.Fatalf("max time = %v ok=%v, want %v", max, ok, t2)
	}
}

func TestSortByTimeDescAbsentLast(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	d := NewDataset("date", "symbol")
	d.Append(
		Row{"date": Absent(), "symbol": StringValue("A")},
		Row{"date": TimeValue(t1), "symbol": StringValue("B")},
		Row{"date": TimeValue(t2), "symbol": StringValue("C")},
		Row{"symbol": StringValue("D")},
	)
	d.SortByTimeDesc("date")
	order := make([]string, 0, d.Len())
	for _, r := range d.Rows {
		order = append(order, r["symbol"].Str)
	}
	want := []string{"C", "B", "A", "D"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestUniqueCount(t *testing.T) {
	d := NewDataset("symbol")
	d.Append(
		Row{"symbol": StringValue("ABC")},
		Row{"symbol": StringValue("ABC")},
		Row{"symbol": StringValue("XYZ")},
		Row{"symbol": Absent()},
	)
	if got := d.UniqueCount("symbol"); got != 2 {
		t.Fatalf("unique count = %d, want 2", got)
	}
}
