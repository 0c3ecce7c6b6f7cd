package logger

import "fmt"

// AuditLogger is the durable per-run audit log every tool in the suite
// writes alongside its console output: one row per exported resource kind or
// endpoint, timestamped by the implementation. Implemented by CSVLogger and
// JSONLogger; the -logformat flag selects between them.
type AuditLogger interface {
	// WriteHeader declares the column names. The CSV implementation writes a
	// physical header row only when the file is new or empty; the JSON
	// implementation records the names as object keys for subsequent rows.
	WriteHeader(columns []string) error
	// WriteRow appends one audit row. Values must align with the declared
	// columns.
	WriteRow(row []string) error
	// ShouldWriteHeader reports whether the underlying file is new or empty.
	ShouldWriteHeader() (bool, error)
	// Close flushes buffered rows and releases the file.
	Close() error
}

// NewAuditLogger builds the audit logger for the requested format.
func NewAuditLogger(format, toolName, action string) (AuditLogger, error) {
	switch format {
	case "", "csv":
		return NewCSVLogger(toolName, action)
	case "json":
		return NewJSONLogger(toolName, action)
	default:
		return nil, fmt.Errorf("unsupported log format %q (must be csv or json)", format)
	}
}
