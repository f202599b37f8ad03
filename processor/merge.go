package processor

import (
	"strings"

	"nseflow/logger"
	"nseflow/models"
)

// absentKeyToken stands in for a key field whose column exists in the
// schema but whose cell holds no value. A column missing from the schema
// entirely is omitted from the key instead; the two cases deliberately
// collapse differently.
const absentKeyToken = "NA"

const keySeparator = "|"

// IdentityKey derives the deduplication key for a row against the given
// schema. It is a pure function of the fixed field subset in
// models.KeyColumns and the schema's column set.
func IdentityKey(row models.Row, columns []string) string {
	columnSet := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		columnSet[c] = struct{}{}
	}

	parts := make([]string, 0, len(models.KeyColumns))
	for _, field := range models.KeyColumns {
		if _, ok := columnSet[field]; !ok {
			continue
		}
		v, ok := row.Get(field)
		if !ok || v.IsAbsent() {
			parts = append(parts, absentKeyToken)
			continue
		}
		parts = append(parts, v.String())
	}

	return strings.Join(parts, keySeparator)
}

// MergeResult carries the combined dataset and the rows that were genuinely
// new at merge time.
type MergeResult struct {
	Merged     *models.Dataset
	NewRecords []models.Row
}

// Merge diffs incoming rows against the existing dataset by identity key and
// appends only unseen rows. Existing rows are never rewritten: key equality
// is the sole deduplication criterion, and a recorded event is immutable.
// The merged dataset is sorted by dateCol descending with undated rows last.
// A nil existing dataset means every incoming row is new.
func Merge(existing *models.Dataset, incoming *models.Dataset, dateCol string) MergeResult {
	log := logger.GetLogger().WithComponent("merge")

	seen := make(map[string]struct{})
	if existing != nil {
		for _, row := range existing.Rows {
			seen[IdentityKey(row, existing.Columns)] = struct{}{}
		}
	}

	newRecords := make([]models.Row, 0, incoming.Len())
	for _, row := range incoming.Rows {
		key := IdentityKey(row, incoming.Columns)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		newRecords = append(newRecords, row)
	}

	merged := models.NewDataset()
	if existing != nil {
		merged.AddColumns(existing.Columns)
		merged.Append(existing.Rows...)
	}
	merged.AddColumns(incoming.Columns)
	merged.Append(newRecords...)
	merged.SortByTimeDesc(dateCol)

	log.WithFields(logger.Fields{
		"incoming":    incoming.Len(),
		"new_records": len(newRecords),
		"total":       merged.Len(),
	}).Info("merged incoming rows")

	return MergeResult{Merged: merged, NewRecords: newRecords}
}
