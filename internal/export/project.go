package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GeoColumnName is the enrichment column the multi-geo tools append to every
// row, holding the endpoint's region tag.
const GeoColumnName = "Multi Geo Location"

// Field is a constant enrichment column appended after the selected
// attributes, e.g. the source region of a multi-geo endpoint.
type Field struct {
	Name  string
	Value string
}

// GeoField builds the enrichment column for one multi-geo endpoint.
func GeoField(ep Endpoint) []Field {
	return []Field{{Name: GeoColumnName, Value: ep.GeoLocation}}
}

// Header returns the export header: attribute names in table order, followed
// by enrichment column names. The header is fixed for a whole run, so rows
// appended by later endpoints can never drift out of column alignment.
func Header(attrs []string, enrich []Field) []string {
	header := make([]string, 0, len(attrs)+len(enrich))
	header = append(header, attrs...)
	for _, f := range enrich {
		header = append(header, f.Name)
	}
	return header
}

// Project maps a record to one CSV row aligned with Header(attrs, enrich).
// A field absent from the record becomes an empty cell; with strict set, an
// absent field is an error instead. Fields nested inside another object
// cannot be selected by name (flat top-level names only).
func Project(rec Record, attrs []string, enrich []Field, strict bool) ([]string, error) {
	row := make([]string, 0, len(attrs)+len(enrich))
	for _, name := range attrs {
		value, ok := rec[name]
		if !ok {
			if strict {
				return nil, fmt.Errorf("%w: attribute %q not present on record", ErrConfiguration, name)
			}
			row = append(row, "")
			continue
		}
		row = append(row, FormatValue(value))
	}
	for _, f := range enrich {
		row = append(row, f.Value)
	}
	return row, nil
}

// FormatValue renders a record field value as a CSV cell. Flat collections
// are joined with "; "; object values and object collections are encoded as
// compact JSON; nil becomes an empty cell.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339)
	case uuid.UUID:
		return v.String()
	case []string:
		return strings.Join(v, "; ")
	case Record:
		return encodeJSON(v)
	case map[string]any:
		return encodeJSON(v)
	case []any:
		return formatSlice(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatSlice(values []any) string {
	if len(values) == 0 {
		return ""
	}
	// Collections of objects read better as one JSON array than as joined
	// fragments of JSON.
	switch values[0].(type) {
	case Record, map[string]any:
		return encodeJSON(values)
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = FormatValue(v)
	}
	return strings.Join(parts, "; ")
}

func encodeJSON(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}
