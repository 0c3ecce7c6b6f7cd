package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"m365exporttool/internal/common/logger"
)

// Resource binds one exportable resource kind to its fetch operation.
type Resource struct {
	Service  string
	Kind     string
	AttrFile string
	Fetch    FetchFunc
}

// FetchFunc streams the records of one resource kind, invoking yield once
// per record in server order. An error returned by yield stops the
// enumeration and is surfaced unchanged.
type FetchFunc func(ctx context.Context, yield func(Record) error) error

// EndpointResult reports the outcome of one endpoint of a multi-geo run.
type EndpointResult struct {
	Endpoint Endpoint
	Rows     int
	Err      error
}

// Status constants for audit log rows.
const (
	StatusSuccess = "Success"
	StatusError   = "Error"
)

// AuditColumns is the audit log header shared by every tool in the suite.
var AuditColumns = []string{"Resource", "Geo", "Status", "Rows", "Output"}

// Runner carries the per-run context shared by every stage: loggers, output
// locations, and the failure policy. All state is explicit here; nothing is
// kept in process-global variables.
type Runner struct {
	Logger    *slog.Logger
	Audit     logger.AuditLogger
	OutputDir string
	AttrDir   string
	Strict    bool
	FailFast  bool

	auditHeaderDone bool
}

// ExportResource exports one resource kind into a freshly created file. The
// attribute table is loaded before the output file is created, so a
// configuration failure leaves no file behind.
func (r *Runner) ExportResource(ctx context.Context, res Resource) error {
	attrs, err := LoadAttributes(filepath.Join(r.AttrDir, res.AttrFile))
	if err != nil {
		logger.LogError(r.Logger, "Attribute table load failed", "resource", res.Kind, "error", err)
		r.audit(res.Kind, "", errorStatus(err), 0, "")
		return err
	}

	path := filepath.Join(r.OutputDir, ExportFileName(res.Service, res.Kind, time.Now()))
	sink, err := Create(path, Header(attrs, nil))
	if err != nil {
		logger.LogError(r.Logger, "Output file creation failed", "resource", res.Kind, "path", path, "error", err)
		r.audit(res.Kind, "", errorStatus(err), 0, path)
		return err
	}

	logger.LogInfo(r.Logger, "Export started", "resource", res.Kind, "attributes", len(attrs), "output", path)

	fetchErr := res.Fetch(ctx, func(rec Record) error {
		row, perr := Project(rec, attrs, nil, r.Strict)
		if perr != nil {
			return perr
		}
		return sink.WriteRow(row)
	})
	rows := sink.Rows()
	if closeErr := sink.Close(); closeErr != nil && fetchErr == nil {
		fetchErr = closeErr
	}

	if fetchErr != nil {
		logger.LogError(r.Logger, "Export failed", "resource", res.Kind, "rows", rows, "error", fetchErr)
		r.audit(res.Kind, "", errorStatus(fetchErr), rows, path)
		return fetchErr
	}

	logger.LogInfo(r.Logger, "Export completed", "resource", res.Kind, "rows", rows, "output", path)
	r.audit(res.Kind, "", StatusSuccess, rows, path)
	return nil
}

// ExportMultiGeo exports one resource kind across admin-center endpoints in
// table order, appending every endpoint's rows into one shared file. One
// EndpointResult is collected per attempted endpoint. With FailFast the
// first failure abandons the remaining endpoints; otherwise the run
// continues and the returned error aggregates every endpoint failure.
func (r *Runner) ExportMultiGeo(ctx context.Context, service, kind, attrFile string, endpoints []Endpoint, build func(Endpoint) FetchFunc) ([]EndpointResult, error) {
	attrs, err := LoadAttributes(filepath.Join(r.AttrDir, attrFile))
	if err != nil {
		logger.LogError(r.Logger, "Attribute table load failed", "resource", kind, "error", err)
		r.audit(kind, "", errorStatus(err), 0, "")
		return nil, err
	}

	path := filepath.Join(r.OutputDir, ExportFileName(service, kind, time.Now()))
	results := make([]EndpointResult, 0, len(endpoints))
	var failures []error

	for i, ep := range endpoints {
		if ctxErr := ctx.Err(); ctxErr != nil {
			failures = append(failures, ctxErr)
			break
		}

		logger.LogInfo(r.Logger, "Endpoint export started", "resource", kind, "geo", ep.GeoLocation, "adminCenter", ep.AdminCenterURL)
		rows, epErr := r.exportEndpoint(ctx, attrs, path, ep, i == 0, build(ep))
		results = append(results, EndpointResult{Endpoint: ep, Rows: rows, Err: epErr})

		if epErr != nil {
			logger.LogError(r.Logger, "Endpoint export failed", "resource", kind, "geo", ep.GeoLocation, "rows", rows, "error", epErr)
			r.audit(kind, ep.GeoLocation, errorStatus(epErr), rows, path)
			failures = append(failures, fmt.Errorf("endpoint %s (%s): %w", ep.AdminCenterURL, ep.GeoLocation, epErr))
			if r.FailFast {
				break
			}
			continue
		}

		logger.LogInfo(r.Logger, "Endpoint export completed", "resource", kind, "geo", ep.GeoLocation, "rows", rows)
		r.audit(kind, ep.GeoLocation, StatusSuccess, rows, path)
	}

	if len(failures) > 0 {
		return results, errors.Join(failures...)
	}
	logger.LogInfo(r.Logger, "Export completed", "resource", kind, "endpoints", len(results), "output", path)
	return results, nil
}

// exportEndpoint streams one endpoint's records into the shared file: the
// first endpoint creates it, later endpoints append without re-writing the
// header. The sink is closed whether or not the fetch succeeded.
func (r *Runner) exportEndpoint(ctx context.Context, attrs []string, path string, ep Endpoint, first bool, fetch FetchFunc) (int, error) {
	enrich := GeoField(ep)
	header := Header(attrs, enrich)

	var sink *Sink
	var err error
	if first {
		sink, err = Create(path, header)
	} else {
		sink, err = Append(path, header)
	}
	if err != nil {
		return 0, err
	}

	fetchErr := fetch(ctx, func(rec Record) error {
		row, perr := Project(rec, attrs, enrich, r.Strict)
		if perr != nil {
			return perr
		}
		return sink.WriteRow(row)
	})
	rows := sink.Rows()
	if closeErr := sink.Close(); closeErr != nil && fetchErr == nil {
		fetchErr = closeErr
	}
	return rows, fetchErr
}

func (r *Runner) audit(resource, geo, status string, rows int, output string) {
	if r.Audit == nil {
		return
	}
	if !r.auditHeaderDone {
		if err := r.Audit.WriteHeader(AuditColumns); err != nil {
			logger.LogWarn(r.Logger, "Audit log header write failed", "error", err)
		}
		r.auditHeaderDone = true
	}
	if err := r.Audit.WriteRow([]string{resource, geo, status, strconv.Itoa(rows), output}); err != nil {
		logger.LogWarn(r.Logger, "Audit log write failed", "error", err)
	}
}

func errorStatus(err error) string {
	return fmt.Sprintf("%s: %v", StatusError, err)
}
