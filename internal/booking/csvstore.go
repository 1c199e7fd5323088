package booking

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// CSVStore keeps the table in a spreadsheet-compatible CSV file. The header is
// extended with any missing canonical column on load; unknown columns survive rewrites.
type CSVStore struct {
	path string

	mu     sync.Mutex
	header []string
}

// NewCSVStore opens (lazily) the file at path.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// LoadAll reads every row. A missing file is an empty table.
func (s *CSVStore) LoadAll(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	header, rows, err := s.read()
	if err != nil {
		return nil, err
	}
	full, added := EnsureHeader(header)
	s.header = full

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, RecordFromRow(full, row))
	}
	if len(header) > 0 && len(added) > 0 {
		if err := s.write(records); err != nil {
			return nil, fmt.Errorf("extend header: %w", err)
		}
	}
	return records, nil
}

// AppendOne adds a row at the end of the file.
func (s *CSVStore) AppendOne(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadHeader(); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}

	// A new or emptied file gets the header before its first row.
	w := csv.NewWriter(f)
	if fi.Size() == 0 {
		if err := w.Write(s.header); err != nil {
			return err
		}
	}
	if err := w.Write(RowFromRecord(s.header, r)); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// OverwriteAll rewrites the whole file through a temp file and rename.
func (s *CSVStore) OverwriteAll(_ context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadHeader(); err != nil {
		return err
	}
	return s.write(records)
}

func (s *CSVStore) loadHeader() error {
	if s.header != nil {
		return nil
	}
	header, _, err := s.read()
	if err != nil {
		return err
	}
	s.header, _ = EnsureHeader(header)
	return nil
}

func (s *CSVStore) read() ([]string, [][]string, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	return header, rows, nil
}

func (s *CSVStore) write(records []Record) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".bookings-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, s.header, records); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// WriteCSV renders records under header. Admin exports use the canonical Columns.
func WriteCSV(w io.Writer, header []string, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(RowFromRecord(header, r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
