package processor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"nseflow/logger"
	"nseflow/models"
)

// Normalizer coerces raw feed rows into typed datasets. Malformed cells
// degrade to the absent marker; normalization never fails for a row.
type Normalizer struct {
	log *logger.Log
}

func NewNormalizer() *Normalizer {
	return &Normalizer{log: logger.GetLogger()}
}

var dateColumnSet = toSet(models.DateColumns)
var numericColumnSet = toSet(models.NumericColumns)

func toSet(cols []string) map[string]struct{} {
	set := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		set[c] = struct{}{}
	}
	return set
}

// Normalize converts raw rows into a Dataset, preserving row order. The
// column set is the union of all row keys in sorted order; the upstream
// schema is not contractually fixed, so columns are derived per batch.
func (n *Normalizer) Normalize(raw []map[string]any) *models.Dataset {
	log := n.log.WithComponent("normalizer")

	columnSet := make(map[string]struct{})
	for _, row := range raw {
		for k := range row {
			columnSet[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(columnSet))
	for k := range columnSet {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	ds := models.NewDataset(columns...)
	for _, rawRow := range raw {
		row := make(models.Row, len(rawRow))
		for col, v := range rawRow {
			row[col] = normalizeCell(col, v)
		}
		ds.Append(row)
	}

	if len(raw) > 0 {
		log.WithFields(logger.Fields{
			"rows":    ds.Len(),
			"columns": len(ds.Columns),
		}).Info("normalized fetched rows")
	}

	return ds
}

// normalizeCell maps a raw JSON value to a typed cell. null, "-" and ""
// all collapse to the absent marker uniformly across columns.
func normalizeCell(col string, v any) models.Value {
	if v == nil {
		return models.Absent()
	}

	if s, ok := v.(string); ok {
		if s == "" || s == "-" {
			return models.Absent()
		}
	}

	if _, ok := dateColumnSet[col]; ok {
		return normalizeDate(v)
	}
	if _, ok := numericColumnSet[col]; ok {
		return normalizeNumber(v)
	}

	switch val := v.(type) {
	case string:
		return models.StringValue(val)
	case float64:
		return models.NumberValue(val)
	case bool:
		return models.StringValue(strconv.FormatBool(val))
	default:
		return models.StringValue(fmt.Sprint(val))
	}
}

func normalizeDate(v any) models.Value {
	s, ok := v.(string)
	if !ok {
		return models.Absent()
	}
	t, err := parseFeedTime(s)
	if err != nil {
		return models.Absent()
	}
	return models.TimeValue(t)
}

// parseFeedTime accepts both the feed's native timestamp form and the
// canonical form this system writes to CSV, so reloaded datasets normalize
// identically to fresh fetches.
func parseFeedTime(s string) (time.Time, error) {
	if t, err := time.Parse(models.FeedTimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(models.TimeLayout, s)
}

func normalizeNumber(v any) models.Value {
	switch val := v.(type) {
	case float64:
		return models.NumberValue(val)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return models.Absent()
		}
		return models.NumberValue(f)
	default:
		return models.Absent()
	}
}
