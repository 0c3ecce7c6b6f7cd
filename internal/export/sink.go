package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"
)

// Sink writes projected rows to one CSV export file. Output is UTF-8 with a
// single header row; rows are flushed periodically and on Close.
type Sink struct {
	file       *os.File
	writer     *csv.Writer
	path       string
	rows       int
	flushEvery int
}

// ExportFileName builds the output file name for one resource kind:
// "<Service>_<Kind> <timestamp>.csv". The timestamp layout avoids characters
// that are illegal in Windows file names.
func ExportFileName(service, kind string, now time.Time) string {
	return fmt.Sprintf("%s_%s %s.csv", service, kind, now.Format("2006-01-02 15-04-05"))
}

// Create opens a new export file and writes the header row. An existing file
// is never overwritten.
func Create(path string, header []string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrSinkWrite, path, err)
	}
	s := newSink(f, path)
	if err := s.writeHeader(header); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// Append opens an export file for appending, creating it if needed. The
// header row is written only when the file is new or empty, so endpoints
// appending after the first never duplicate it.
func Append(path string, header []string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s for append: %w", ErrSinkWrite, path, err)
	}
	s := newSink(f, path)

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %w", ErrSinkWrite, path, err)
	}
	if info.Size() == 0 {
		if err := s.writeHeader(header); err != nil {
			f.Close()
			return nil, err
		}
	}
	return s, nil
}

func newSink(f *os.File, path string) *Sink {
	return &Sink{
		file:       f,
		writer:     csv.NewWriter(f),
		path:       path,
		flushEvery: 500,
	}
}

func (s *Sink) writeHeader(header []string) error {
	if err := s.writer.Write(header); err != nil {
		return fmt.Errorf("%w: write header to %s: %w", ErrSinkWrite, s.path, err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("%w: flush header to %s: %w", ErrSinkWrite, s.path, err)
	}
	return nil
}

// WriteRow appends one data row.
func (s *Sink) WriteRow(row []string) error {
	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("%w: write row to %s: %w", ErrSinkWrite, s.path, err)
	}
	s.rows++
	if s.rows%s.flushEvery == 0 {
		s.writer.Flush()
		if err := s.writer.Error(); err != nil {
			return fmt.Errorf("%w: flush %s: %w", ErrSinkWrite, s.path, err)
		}
	}
	return nil
}

// Rows reports the number of data rows written through this sink, excluding
// the header.
func (s *Sink) Rows() int {
	return s.rows
}

// Path returns the file path the sink writes to.
func (s *Sink) Path() string {
	return s.path
}

// Close flushes buffered rows and closes the file. Safe to call after a
// failed write.
func (s *Sink) Close() error {
	s.writer.Flush()
	flushErr := s.writer.Error()
	closeErr := s.file.Close()
	if flushErr != nil {
		return fmt.Errorf("%w: flush %s on close: %w", ErrSinkWrite, s.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: close %s: %w", ErrSinkWrite, s.path, closeErr)
	}
	return nil
}
