package export

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingAudit captures audit rows in memory.
type recordingAudit struct {
	header []string
	rows   [][]string
}

func (a *recordingAudit) WriteHeader(columns []string) error { a.header = columns; return nil }
func (a *recordingAudit) WriteRow(row []string) error        { a.rows = append(a.rows, row); return nil }
func (a *recordingAudit) ShouldWriteHeader() (bool, error)   { return true, nil }
func (a *recordingAudit) Close() error                       { return nil }

func writeAttrTable(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// findExport returns the single CSV file the runner created in dir.
func findExport(t *testing.T, dir string) string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var found string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".csv") {
			if found != "" {
				t.Fatalf("multiple CSV files in %s", dir)
			}
			found = filepath.Join(dir, e.Name())
		}
	}
	if found == "" {
		t.Fatalf("no CSV file in %s", dir)
	}
	return found
}

func newTestRunner(t *testing.T, audit *recordingAudit) (*Runner, string) {
	t.Helper()
	attrDir := t.TempDir()
	outDir := t.TempDir()
	r := &Runner{
		Logger:    discardLogger(),
		Audit:     audit,
		OutputDir: outDir,
		AttrDir:   attrDir,
		FailFast:  true,
	}
	return r, attrDir
}

// TestExportResource tests the single-resource export path
func TestExportResource(t *testing.T) {
	t.Run("Writes projected rows in server order", func(t *testing.T) {
		audit := &recordingAudit{}
		runner, attrDir := newTestRunner(t, audit)
		writeAttrTable(t, attrDir, "UserAttrs.csv",
			"Attributes,Attribute Type,Required\nid,Guid,YES\nmail,String,YES\ncity,String,NO\n")

		res := Resource{
			Service:  "AzureAD",
			Kind:     "Users",
			AttrFile: "UserAttrs.csv",
			Fetch: func(ctx context.Context, yield func(Record) error) error {
				if err := yield(Record{"id": "1", "mail": "a@contoso.com", "city": "Oslo"}); err != nil {
					return err
				}
				return yield(Record{"id": "2"})
			},
		}

		if err := runner.ExportResource(context.Background(), res); err != nil {
			t.Fatalf("ExportResource() error = %v", err)
		}

		rows := readCSV(t, findExport(t, runner.OutputDir))
		if len(rows) != 3 {
			t.Fatalf("got %d rows, want header plus 2", len(rows))
		}
		if rows[0][0] != "id" || rows[0][1] != "mail" || len(rows[0]) != 2 {
			t.Errorf("header = %v, want [id mail]", rows[0])
		}
		if rows[1][0] != "1" || rows[1][1] != "a@contoso.com" {
			t.Errorf("row 1 = %v", rows[1])
		}
		if rows[2][0] != "2" || rows[2][1] != "" {
			t.Errorf("row 2 = %v, want absent mail as empty cell", rows[2])
		}

		if len(audit.rows) != 1 {
			t.Fatalf("audit rows = %d, want 1", len(audit.rows))
		}
		if audit.rows[0][2] != StatusSuccess || audit.rows[0][3] != "2" {
			t.Errorf("audit row = %v", audit.rows[0])
		}
	})

	t.Run("Missing attribute table leaves no output file", func(t *testing.T) {
		audit := &recordingAudit{}
		runner, _ := newTestRunner(t, audit)

		res := Resource{Service: "AzureAD", Kind: "Users", AttrFile: "Absent.csv",
			Fetch: func(ctx context.Context, yield func(Record) error) error { return nil }}

		err := runner.ExportResource(context.Background(), res)
		if !errors.Is(err, ErrConfiguration) {
			t.Fatalf("ExportResource() error = %v, want ErrConfiguration", err)
		}

		entries, _ := os.ReadDir(runner.OutputDir)
		if len(entries) != 0 {
			t.Errorf("output dir not empty after config failure: %v", entries)
		}
	})

	t.Run("Strict mode surfaces absent attributes", func(t *testing.T) {
		audit := &recordingAudit{}
		runner, attrDir := newTestRunner(t, audit)
		runner.Strict = true
		writeAttrTable(t, attrDir, "UserAttrs.csv",
			"Attributes,Attribute Type,Required\nid,Guid,YES\nmail,String,YES\n")

		res := Resource{Service: "AzureAD", Kind: "Users", AttrFile: "UserAttrs.csv",
			Fetch: func(ctx context.Context, yield func(Record) error) error {
				return yield(Record{"id": "1"})
			}}

		err := runner.ExportResource(context.Background(), res)
		if !errors.Is(err, ErrConfiguration) {
			t.Fatalf("ExportResource() error = %v, want ErrConfiguration", err)
		}
	})

	t.Run("Fetch errors propagate unchanged", func(t *testing.T) {
		audit := &recordingAudit{}
		runner, attrDir := newTestRunner(t, audit)
		writeAttrTable(t, attrDir, "UserAttrs.csv",
			"Attributes,Attribute Type,Required\nid,Guid,YES\n")

		fetchErr := errors.New("throttled")
		res := Resource{Service: "AzureAD", Kind: "Users", AttrFile: "UserAttrs.csv",
			Fetch: func(ctx context.Context, yield func(Record) error) error {
				return fetchErr
			}}

		err := runner.ExportResource(context.Background(), res)
		if !errors.Is(err, fetchErr) {
			t.Fatalf("ExportResource() error = %v, want wrapped %v", err, fetchErr)
		}
		if len(audit.rows) != 1 || !strings.HasPrefix(audit.rows[0][2], StatusError) {
			t.Errorf("audit rows = %v, want one error row", audit.rows)
		}
	})
}

// TestExportMultiGeo tests the shared-file multi-endpoint export path
func TestExportMultiGeo(t *testing.T) {
	endpoints := []Endpoint{
		{AdminCenterURL: "https://contoso-admin.sharepoint.com", GeoLocation: "NAM"},
		{AdminCenterURL: "https://contosoeur-admin.sharepoint.com", GeoLocation: "EUR"},
	}

	yieldOne := func(id string) FetchFunc {
		return func(ctx context.Context, yield func(Record) error) error {
			return yield(Record{"id": id})
		}
	}
	failing := func(ctx context.Context, yield func(Record) error) error {
		return errors.New("geo unavailable")
	}

	t.Run("Appends all endpoints into one file with one header", func(t *testing.T) {
		audit := &recordingAudit{}
		runner, attrDir := newTestRunner(t, audit)
		writeAttrTable(t, attrDir, "SiteAttrs.csv",
			"Attributes,Attribute Type,Required\nid,Guid,YES\n")

		results, err := runner.ExportMultiGeo(context.Background(), "SharePointOnline", "Sites", "SiteAttrs.csv",
			endpoints, func(ep Endpoint) FetchFunc {
				return yieldOne("site-" + ep.GeoLocation)
			})
		if err != nil {
			t.Fatalf("ExportMultiGeo() error = %v", err)
		}
		if len(results) != 2 || results[0].Rows != 1 || results[1].Rows != 1 {
			t.Fatalf("results = %+v, want one row per endpoint", results)
		}

		rows := readCSV(t, findExport(t, runner.OutputDir))
		if len(rows) != 3 {
			t.Fatalf("got %d rows, want one header plus 2 data rows", len(rows))
		}
		wantHeader := []string{"id", GeoColumnName}
		if rows[0][0] != wantHeader[0] || rows[0][1] != wantHeader[1] {
			t.Errorf("header = %v, want %v", rows[0], wantHeader)
		}
		if rows[1][0] != "site-NAM" || rows[1][1] != "NAM" {
			t.Errorf("row 1 = %v", rows[1])
		}
		if rows[2][0] != "site-EUR" || rows[2][1] != "EUR" {
			t.Errorf("row 2 = %v", rows[2])
		}
	})

	t.Run("FailFast abandons remaining endpoints", func(t *testing.T) {
		audit := &recordingAudit{}
		runner, attrDir := newTestRunner(t, audit)
		writeAttrTable(t, attrDir, "SiteAttrs.csv",
			"Attributes,Attribute Type,Required\nid,Guid,YES\n")

		secondSeen := false
		results, err := runner.ExportMultiGeo(context.Background(), "SharePointOnline", "Sites", "SiteAttrs.csv",
			endpoints, func(ep Endpoint) FetchFunc {
				if ep.GeoLocation == "NAM" {
					return failing
				}
				secondSeen = true
				return yieldOne("site-EUR")
			})
		if err == nil {
			t.Fatal("ExportMultiGeo() expected error, got nil")
		}
		if len(results) != 1 {
			t.Errorf("results = %+v, want only the failed endpoint", results)
		}
		if results[0].Err == nil {
			t.Error("results[0].Err = nil, want failure recorded")
		}
		if secondSeen {
			t.Error("second endpoint was fetched despite FailFast")
		}
	})

	t.Run("Without FailFast every endpoint runs and errors aggregate", func(t *testing.T) {
		audit := &recordingAudit{}
		runner, attrDir := newTestRunner(t, audit)
		runner.FailFast = false
		writeAttrTable(t, attrDir, "SiteAttrs.csv",
			"Attributes,Attribute Type,Required\nid,Guid,YES\n")

		results, err := runner.ExportMultiGeo(context.Background(), "SharePointOnline", "Sites", "SiteAttrs.csv",
			endpoints, func(ep Endpoint) FetchFunc {
				if ep.GeoLocation == "NAM" {
					return failing
				}
				return yieldOne("site-EUR")
			})
		if err == nil {
			t.Fatal("ExportMultiGeo() expected aggregated error, got nil")
		}
		if len(results) != 2 {
			t.Fatalf("results = %+v, want both endpoints attempted", results)
		}
		if results[0].Err == nil || results[1].Err != nil {
			t.Errorf("results = %+v, want first failed and second clean", results)
		}

		rows := readCSV(t, findExport(t, runner.OutputDir))
		if len(rows) != 2 || rows[1][0] != "site-EUR" {
			t.Errorf("rows = %v, want header plus the EUR row", rows)
		}
	})

	t.Run("Cancelled context stops before the next endpoint", func(t *testing.T) {
		audit := &recordingAudit{}
		runner, attrDir := newTestRunner(t, audit)
		writeAttrTable(t, attrDir, "SiteAttrs.csv",
			"Attributes,Attribute Type,Required\nid,Guid,YES\n")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		results, err := runner.ExportMultiGeo(ctx, "SharePointOnline", "Sites", "SiteAttrs.csv",
			endpoints, func(ep Endpoint) FetchFunc {
				return yieldOne("site")
			})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("ExportMultiGeo() error = %v, want context.Canceled", err)
		}
		if len(results) != 0 {
			t.Errorf("results = %+v, want none", results)
		}
	})
}
