package logger

import (
	"encoding/csv"
	"os"
	"strings"
	"testing"
)

func TestNewCSVLogger(t *testing.T) {
	tests := []struct {
		name     string
		toolName string
		action   string
		wantErr  bool
	}{
		{
			name:     "valid spoexport logger",
			toolName: "spoexport",
			action:   "export",
			wantErr:  false,
		},
		{
			name:     "valid onedriveexport logger",
			toolName: "onedriveexport",
			action:   "export",
			wantErr:  false,
		},
		{
			name:     "empty toolname",
			toolName: "",
			action:   "test",
			wantErr:  false, // Should still work
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewCSVLogger(tt.toolName, tt.action)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewCSVLogger() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if logger == nil {
					t.Fatal("NewCSVLogger() returned nil logger with no error")
				}
				defer logger.Close()
				defer os.Remove(logger.file.Name())

				// Verify file was created
				if _, err := os.Stat(logger.file.Name()); os.IsNotExist(err) {
					t.Errorf("Log file was not created: %s", logger.file.Name())
				}

				// Verify filename format
				if !strings.HasSuffix(logger.file.Name(), ".csv") {
					t.Errorf("Log file should end with .csv, got: %s", logger.file.Name())
				}
			}
		})
	}
}

func TestCSVLogger_WriteHeaderAndRow(t *testing.T) {
	logger, err := NewCSVLogger("csvtesttool", "testaction")
	if err != nil {
		t.Fatalf("NewCSVLogger() error = %v", err)
	}
	defer os.Remove(logger.file.Name())

	columns := []string{"Resource", "Geo", "Status", "Rows"}
	if err := logger.WriteHeader(columns); err != nil {
		t.Fatalf("WriteHeader() error = %v", err)
	}
	row := []string{"SharePointOnline_Sites", "EUR", "SUCCESS", "17"}
	if err := logger.WriteRow(row); err != nil {
		t.Fatalf("WriteRow() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	file, err := os.Open(logger.file.Name())
	if err != nil {
		t.Fatalf("failed to open log file: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d CSV records, want 2 (header + row)", len(records))
	}

	// Header gets a Timestamp column prepended
	wantHeader := []string{"Timestamp", "Resource", "Geo", "Status", "Rows"}
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}

	// Data row gets a timestamp cell prepended
	if records[1][0] == "" {
		t.Error("row timestamp cell is empty")
	}
	for i, cell := range row {
		if records[1][i+1] != cell {
			t.Errorf("row[%d] = %q, want %q", i+1, records[1][i+1], cell)
		}
	}
}

func TestCSVLogger_HeaderOnlyWhenEmpty(t *testing.T) {
	columns := []string{"Resource", "Status"}

	// First run of the day creates the file and writes the header
	first, err := NewCSVLogger("csvappendtool", "testaction")
	if err != nil {
		t.Fatalf("NewCSVLogger() error = %v", err)
	}
	path := first.file.Name()
	defer os.Remove(path)

	if err := first.WriteHeader(columns); err != nil {
		t.Fatalf("WriteHeader() error = %v", err)
	}
	if err := first.WriteRow([]string{"AzureAD_Users", "SUCCESS"}); err != nil {
		t.Fatalf("WriteRow() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// A later run on the same day appends to the same file without
	// duplicating the header
	second, err := NewCSVLogger("csvappendtool", "testaction")
	if err != nil {
		t.Fatalf("NewCSVLogger() reopen error = %v", err)
	}
	if second.file.Name() != path {
		t.Fatalf("reopened path = %s, want %s", second.file.Name(), path)
	}

	needed, err := second.ShouldWriteHeader()
	if err != nil {
		t.Fatalf("ShouldWriteHeader() error = %v", err)
	}
	if needed {
		t.Error("ShouldWriteHeader() = true for a non-empty file, want false")
	}
	if err := second.WriteHeader(columns); err != nil {
		t.Fatalf("WriteHeader() on reopen error = %v", err)
	}
	if err := second.WriteRow([]string{"AzureAD_GuestUsers", "SUCCESS"}); err != nil {
		t.Fatalf("WriteRow() on reopen error = %v", err)
	}
	if err := second.Close(); err != nil {
		t.Fatalf("Close() on reopen error = %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open log file: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d CSV records, want 3 (one header + two rows)", len(records))
	}
	if records[0][0] != "Timestamp" {
		t.Errorf("first record starts with %q, want the header", records[0][0])
	}
	if records[2][1] != "AzureAD_GuestUsers" {
		t.Errorf("appended row resource = %q, want AzureAD_GuestUsers", records[2][1])
	}
}

func TestNewAuditLogger(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		wantType string
		wantErr  bool
	}{
		{"csv format", "csv", "*logger.CSVLogger", false},
		{"json format", "json", "*logger.JSONLogger", false},
		{"empty format defaults to csv", "", "*logger.CSVLogger", false},
		{"unsupported format", "xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audit, err := NewAuditLogger(tt.format, "audittesttool", "testaction")
			if (err != nil) != tt.wantErr {
				t.Errorf("NewAuditLogger(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			defer audit.Close()

			switch logger := audit.(type) {
			case *CSVLogger:
				defer os.Remove(logger.file.Name())
				if tt.wantType != "*logger.CSVLogger" {
					t.Errorf("NewAuditLogger(%q) = CSVLogger, want %s", tt.format, tt.wantType)
				}
			case *JSONLogger:
				defer os.Remove(logger.file.Name())
				if tt.wantType != "*logger.JSONLogger" {
					t.Errorf("NewAuditLogger(%q) = JSONLogger, want %s", tt.format, tt.wantType)
				}
			default:
				t.Errorf("NewAuditLogger(%q) returned unexpected type %T", tt.format, audit)
			}
		})
	}
}
