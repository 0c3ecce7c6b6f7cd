package logger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// JSONLogger writes the per-run audit log as JSON Lines: one object per row,
// keyed by the declared column names plus a timestamp field.
type JSONLogger struct {
	writer     *bufio.Writer
	file       *os.File
	toolName   string
	action     string
	columns    []string
	rowCount   int
	lastFlush  time.Time
	flushEvery int
}

// NewJSONLogger creates a JSON Lines audit logger for the specified tool and
// action. Filename pattern: %TEMP%/_{toolName}_{action}_{date}.jsonl
//
// The file is opened in append mode so repeated runs on the same day share
// one audit file.
func NewJSONLogger(toolName, action string) (*JSONLogger, error) {
	tempDir := os.TempDir()

	dateStr := time.Now().Format("2006-01-02")
	fileName := fmt.Sprintf("_%s_%s_%s.jsonl", toolName, action, dateStr)
	filePath := filepath.Join(tempDir, fileName)

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not create JSON log file: %w", err)
	}

	logger := &JSONLogger{
		writer:     bufio.NewWriter(file),
		file:       file,
		toolName:   toolName,
		action:     action,
		lastFlush:  time.Now(),
		flushEvery: 10, // Flush every 10 rows or on close
	}

	fmt.Printf("Logging to: %s\n\n", filePath)
	return logger, nil
}

// WriteHeader records the column names used as JSON keys for subsequent
// rows. No line is written; JSON Lines carry their keys on every row.
func (l *JSONLogger) WriteHeader(columns []string) error {
	l.columns = append([]string(nil), columns...)
	return nil
}

// WriteRow writes one row as a JSON object keyed by the declared columns,
// with a timestamp field added. Fails if WriteHeader has not been called or
// the row length does not match the declared columns.
func (l *JSONLogger) WriteRow(row []string) error {
	if len(l.columns) == 0 {
		return fmt.Errorf("JSON logger columns are not set (call WriteHeader first)")
	}
	if len(row) != len(l.columns) {
		return fmt.Errorf("row has %d values but header declares %d columns", len(row), len(l.columns))
	}

	entry := make(map[string]string, len(row)+1)
	entry["timestamp"] = time.Now().Format("2006-01-02 15:04:05")
	for i, col := range l.columns {
		entry[col] = row[i]
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON log entry: %w", err)
	}
	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write JSON row: %w", err)
	}

	l.rowCount++

	if l.rowCount%l.flushEvery == 0 || time.Since(l.lastFlush) > 5*time.Second {
		if err := l.writer.Flush(); err != nil {
			return fmt.Errorf("failed to flush JSON log: %w", err)
		}
		l.lastFlush = time.Now()
	}

	return nil
}

// Close flushes buffered rows and closes the file.
// Always call this method when done logging to prevent data loss.
func (l *JSONLogger) Close() error {
	if l.writer != nil {
		if err := l.writer.Flush(); err != nil {
			return fmt.Errorf("error flushing JSON log on close: %w", err)
		}
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// ShouldWriteHeader checks if the JSON log file is new (empty).
// JSON rows always carry their keys, so this only signals a fresh file.
func (l *JSONLogger) ShouldWriteHeader() (bool, error) {
	fileInfo, err := l.file.Stat()
	if err != nil {
		return false, fmt.Errorf("could not stat JSON log file: %w", err)
	}
	return fileInfo.Size() == 0, nil
}
