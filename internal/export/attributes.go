package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// AttributeSpec is one row of an attribute table: the field name, its
// inferred type (informational, written by attrgen), and whether exports
// include it.
type AttributeSpec struct {
	Name     string
	Type     string
	Required bool
}

// Attribute table column names. Only Attributes and Required are consumed by
// exports; Attribute Type is written by attrgen for the administrator's
// benefit.
const (
	attrColumnName     = "Attributes"
	attrColumnType     = "Attribute Type"
	attrColumnRequired = "Required"
)

// LoadAttributes reads a comma-delimited attribute table and returns the
// names of rows marked Required == YES, in file order. Duplicates are kept
// as-is. The comparison ignores case and surrounding whitespace. Only flat
// top-level field names are supported; dotted or nested selection is not.
func LoadAttributes(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open attribute table %s: %w", ErrConfiguration, path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read attribute table header %s: %w", ErrConfiguration, path, err)
	}

	nameIdx, requiredIdx := -1, -1
	for i, col := range header {
		switch {
		case strings.EqualFold(strings.TrimSpace(col), attrColumnName):
			nameIdx = i
		case strings.EqualFold(strings.TrimSpace(col), attrColumnRequired):
			requiredIdx = i
		}
	}
	if nameIdx < 0 || requiredIdx < 0 {
		return nil, fmt.Errorf("%w: attribute table %s: header must contain %q and %q columns",
			ErrConfiguration, path, attrColumnName, attrColumnRequired)
	}

	var names []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read attribute table %s: %w", ErrConfiguration, path, err)
		}
		if nameIdx >= len(row) || requiredIdx >= len(row) {
			continue
		}
		name := strings.TrimSpace(row[nameIdx])
		if name == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(row[requiredIdx]), "YES") {
			names = append(names, name)
		}
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("%w: attribute table %s: no rows marked Required=YES", ErrConfiguration, path)
	}
	return names, nil
}

// WriteAttributeTable writes a fresh attribute table with the full
// three-column header. An existing file is never overwritten.
func WriteAttributeTable(path string, specs []AttributeSpec) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("%w: create attribute table %s: %w", ErrSinkWrite, path, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{attrColumnName, attrColumnType, attrColumnRequired}); err != nil {
		return fmt.Errorf("%w: write attribute table header: %w", ErrSinkWrite, err)
	}
	for _, spec := range specs {
		required := "NO"
		if spec.Required {
			required = "YES"
		}
		if err := writer.Write([]string{spec.Name, spec.Type, required}); err != nil {
			return fmt.Errorf("%w: write attribute table row %s: %w", ErrSinkWrite, spec.Name, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("%w: flush attribute table %s: %w", ErrSinkWrite, path, err)
	}
	return nil
}
