package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"nseflow/logger"
	"nseflow/models"
	"nseflow/processor"
)

// BackupTimeLayout is the timestamp suffix appended to rotated dataset files.
const BackupTimeLayout = "20060102_150405"

// Store persists the disclosure dataset as a flat CSV file. The file has no
// storage-level key; uniqueness is enforced by the merge step only.
type Store struct {
	path string
	norm *processor.Normalizer
	log  *logger.Log
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
		norm: processor.NewNormalizer(),
		log:  logger.GetLogger(),
	}
}

func (s *Store) Path() string { return s.path }

// Exists reports whether a dataset file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// ModTime returns the dataset file's modification time.
func (s *Store) ModTime() (time.Time, bool) {
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// Load reads the dataset file and re-normalizes the typed columns so that
// reloaded rows produce the same identity keys as freshly fetched ones.
// A missing file yields (nil, nil); unreadable content yields a
// PersistenceError the caller may downgrade.
func (s *Store) Load() (*models.Dataset, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &PersistenceError{Op: "open", Path: s.path, Err: err}
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, &PersistenceError{Op: "read", Path: s.path, Err: err}
	}
	if len(records) == 0 {
		return nil, &PersistenceError{Op: "read", Path: s.path, Err: fmt.Errorf("file has no header row")}
	}

	header := records[0]
	raw := make([]map[string]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		raw = append(raw, row)
	}

	ds := s.norm.Normalize(raw)
	// Keep the file's column order rather than the normalizer's.
	ds.Columns = header

	s.log.WithComponent("csv_store").WithFields(logger.Fields{
		"path": s.path,
		"rows": ds.Len(),
	}).Info("loaded existing dataset")

	return ds, nil
}

// Save rotates any existing dataset file aside with a timestamp suffix and
// writes the dataset. The backup is never deleted by this system, and it is
// not restored automatically when the subsequent write fails.
func (s *Store) Save(ds *models.Dataset) error {
	log := s.log.WithComponent("csv_store").WithFields(logger.Fields{"path": s.path})

	if s.Exists() {
		backup := fmt.Sprintf("%s.backup_%s", s.path, time.Now().Format(BackupTimeLayout))
		if err := os.Rename(s.path, backup); err != nil {
			return &PersistenceError{Op: "backup", Path: s.path, Err: err}
		}
		logger.IncrementBackup()
		log.WithFields(logger.Fields{"backup": backup}).Info("created backup of existing dataset")
	}

	f, err := os.Create(s.path)
	if err != nil {
		return &PersistenceError{Op: "create", Path: s.path, Err: err}
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(ds.Columns); err != nil {
		return &PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	record := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for i, col := range ds.Columns {
			v, ok := row.Get(col)
			if !ok {
				record[i] = ""
				continue
			}
			record[i] = v.String()
		}
		if err := w.Write(record); err != nil {
			return &PersistenceError{Op: "write", Path: s.path, Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &PersistenceError{Op: "write", Path: s.path, Err: err}
	}

	log.WithFields(logger.Fields{"rows": ds.Len()}).Info("dataset written")
	return nil
}
