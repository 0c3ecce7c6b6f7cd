package graph

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/microsoft/kiota-abstractions-go/store"

	"m365exporttool/internal/export"
)

// RecordFromModel flattens a Graph SDK model into an export record by
// enumerating its backing store. Only fields the service actually returned
// are present; nil fields are dropped so projection can treat absence
// uniformly.
func RecordFromModel(model store.BackedModel) export.Record {
	rec := make(export.Record)
	if model == nil {
		return rec
	}
	backing := model.GetBackingStore()
	if backing == nil {
		return rec
	}
	for key, value := range backing.Enumerate() {
		normalized := normalizeValue(value)
		if normalized == nil {
			continue
		}
		rec[key] = normalized
	}
	return rec
}

// normalizeValue reduces the SDK's typed values (pointers, enums, nested
// models, typed slices) to the closed set the CSV formatter understands:
// string, bool, int/int32/int64, float32/float64, time.Time, uuid.UUID,
// []string, []any, and export.Record.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return v
	case bool:
		return v
	case int:
		return v
	case int32:
		return v
	case int64:
		return v
	case float32:
		return v
	case float64:
		return v
	case time.Time:
		return v
	case uuid.UUID:
		return v
	case []string:
		return v
	case []byte:
		return base64.StdEncoding.EncodeToString(v)
	case store.BackedModel:
		return RecordFromModel(v)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return normalizeValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		items := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			if item := normalizeValue(rv.Index(i).Interface()); item != nil {
				items = append(items, item)
			}
		}
		return items
	}

	// Enums and date-only types carry a String method
	if s, ok := value.(fmt.Stringer); ok {
		return s.String()
	}
	return value
}

// FieldTypeName reports the attribute type label for a normalized field
// value, matching the "Attribute Type" column of the attribute tables.
func FieldTypeName(value any) string {
	switch v := value.(type) {
	case string:
		if _, err := uuid.Parse(v); err == nil {
			return "Guid"
		}
		return "String"
	case bool:
		return "Boolean"
	case int, int32:
		return "Int32"
	case int64:
		return "Int64"
	case float32, float64:
		return "Float"
	case time.Time:
		return "DateTime"
	case uuid.UUID:
		return "Guid"
	case []string, []any:
		return "Collection"
	case export.Record:
		return "Object"
	default:
		return "Unknown"
	}
}
