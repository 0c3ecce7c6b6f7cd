package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Endpoint describes one admin-center entry of a multi-geo tenant.
// PersonalRootSiteURL is only populated for OneDrive tables.
type Endpoint struct {
	AdminCenterURL      string
	GeoLocation         string
	PersonalRootSiteURL string
}

// Admin-center table column names. The table is semicolon-delimited.
const (
	endpointColumnURL          = "AdminCenterUrl"
	endpointColumnGeo          = "MultiGeoLocation"
	endpointColumnPersonalRoot = "PersonalRootSiteURL"
)

// LoadEndpoints reads a semicolon-delimited admin-center table, preserving
// row order. When requirePersonalRoot is set (the OneDrive variant) the
// PersonalRootSiteURL column must be present and populated on every row.
func LoadEndpoints(path string, requirePersonalRoot bool) ([]Endpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open admin-center table %s: %w", ErrConfiguration, path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read admin-center table header %s: %w", ErrConfiguration, path, err)
	}

	urlIdx, geoIdx, rootIdx := -1, -1, -1
	for i, col := range header {
		switch {
		case strings.EqualFold(strings.TrimSpace(col), endpointColumnURL):
			urlIdx = i
		case strings.EqualFold(strings.TrimSpace(col), endpointColumnGeo):
			geoIdx = i
		case strings.EqualFold(strings.TrimSpace(col), endpointColumnPersonalRoot):
			rootIdx = i
		}
	}
	if urlIdx < 0 || geoIdx < 0 {
		return nil, fmt.Errorf("%w: admin-center table %s: header must contain %q and %q columns",
			ErrConfiguration, path, endpointColumnURL, endpointColumnGeo)
	}
	if requirePersonalRoot && rootIdx < 0 {
		return nil, fmt.Errorf("%w: admin-center table %s: header must contain %q column",
			ErrConfiguration, path, endpointColumnPersonalRoot)
	}

	var endpoints []Endpoint
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read admin-center table %s: %w", ErrConfiguration, path, err)
		}
		if urlIdx >= len(row) || geoIdx >= len(row) {
			continue
		}

		ep := Endpoint{
			AdminCenterURL: strings.TrimSpace(row[urlIdx]),
			GeoLocation:    strings.TrimSpace(row[geoIdx]),
		}
		if ep.AdminCenterURL == "" {
			continue
		}
		if rootIdx >= 0 && rootIdx < len(row) {
			ep.PersonalRootSiteURL = strings.TrimSpace(row[rootIdx])
		}
		if requirePersonalRoot && ep.PersonalRootSiteURL == "" {
			return nil, fmt.Errorf("%w: admin-center table %s: endpoint %s has no %s value",
				ErrConfiguration, path, ep.AdminCenterURL, endpointColumnPersonalRoot)
		}
		endpoints = append(endpoints, ep)
	}

	if len(endpoints) == 0 {
		return nil, fmt.Errorf("%w: admin-center table %s contains no endpoints", ErrConfiguration, path)
	}
	return endpoints, nil
}
