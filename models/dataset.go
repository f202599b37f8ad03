package models

import (
	"sort"
	"time"
)

// Row is one disclosure record as a mapping from column name to typed cell.
// The NSE feed does not guarantee a stable schema between fetches, so rows
// are maps and lookups are always optional.
type Row map[string]Value

// Get returns the cell for col. Columns missing from the row report ok=false,
// which is distinct from a column that is present with an absent value.
func (r Row) Get(col string) (Value, bool) {
	v, ok := r[col]
	return v, ok
}

// Dataset is an ordered collection of rows plus the column order used for
// tabular serialization. Columns keeps first-seen order.
type Dataset struct {
	Columns []string
	Rows    []Row
}

func NewDataset(columns ...string) *Dataset {
	return &Dataset{Columns: columns}
}

func (d *Dataset) Len() int {
	return len(d.Rows)
}

func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumns unions the given columns into the dataset, appending unseen
// names after the existing ones.
func (d *Dataset) AddColumns(columns []string) {
	for _, c := range columns {
		if !d.HasColumn(c) {
			d.Columns = append(d.Columns, c)
		}
	}
}

func (d *Dataset) Append(rows ...Row) {
	d.Rows = append(d.Rows, rows...)
}

// MaxTime returns the latest time held in col across all rows. ok is false
// when no row carries a time value in that column.
func (d *Dataset) MaxTime(col string) (time.Time, bool) {
	var max time.Time
	found := false
	for _, row := range d.Rows {
		v, ok := row.Get(col)
		if !ok || v.Kind != KindTime {
			continue
		}
		if !found || v.Time.After(max) {
			max = v.Time
			found = true
		}
	}
	return max, found
}

// UniqueCount returns the number of distinct non-absent values in col.
func (d *Dataset) UniqueCount(col string) int {
	seen := make(map[string]struct{})
	for _, row := range d.Rows {
		v, ok := row.Get(col)
		if !ok || v.IsAbsent() {
			continue
		}
		seen[v.String()] = struct{}{}
	}
	return len(seen)
}

// SortByTimeDesc stable-sorts rows by the given time column, newest first.
// Rows without a usable time in that column sort after all dated rows.
func (d *Dataset) SortByTimeDesc(col string) {
	sort.SliceStable(d.Rows, func(i, j int) bool {
		vi, oki := d.Rows[i].Get(col)
		vj, okj := d.Rows[j].Get(col)
		ti := oki && vi.Kind == KindTime
		tj := okj && vj.Kind == KindTime
		switch {
		case ti && tj:
			return vi.Time.After(vj.Time)
		case ti:
			return true
		default:
			return false
		}
	})
}
