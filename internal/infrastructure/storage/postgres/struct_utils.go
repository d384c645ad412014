package postgres

import (
	"reflect"
	"sync"
)

// ExtractDBColumns lists the "db" tags of T in declaration order, descending
// into embedded structs such as entity.Catalog. Repositories call it once at
// construction.
//
//	cols := ExtractDBColumns[partner.Partner]()
//	// ["id", "deletion_mark", "version", "created_at", "updated_at", "code", "name", ...]
func ExtractDBColumns[T any]() []string {
	var zero T
	meta := columnsOf(reflect.TypeOf(zero))
	cols := make([]string, 0, len(meta))
	for _, c := range meta {
		cols = append(cols, c.name)
	}
	return cols
}

// column maps a db tag to the field index path that reaches it.
type column struct {
	name  string
	index []int
}

var columnCache sync.Map // map[reflect.Type][]column

// columnsOf returns the flattened column list for t, cached per type.
// A field shadowed by an outer one with the same tag is dropped.
func columnsOf(t reflect.Type) []column {
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := columnCache.Load(t); ok {
		return cached.([]column)
	}

	var cols []column
	if t.Kind() == reflect.Struct {
		seen := make(map[string]bool)
		cols = appendColumns(cols, t, nil, seen)
	}
	columnCache.Store(t, cols)
	return cols
}

func appendColumns(cols []column, t reflect.Type, prefix []int, seen map[string]bool) []column {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		path := append(append([]int(nil), prefix...), i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			cols = appendColumns(cols, field.Type, path, seen)
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" || seen[tag] {
			continue
		}
		seen[tag] = true
		cols = append(cols, column{name: tag, index: path})
	}
	return cols
}

// StructToMap converts a struct (or pointer to one) to a column/value map
// for squirrel's SetMap. Fields without a db tag are skipped.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	cols := columnsOf(rv.Type())
	res := make(map[string]any, len(cols))
	for _, c := range cols {
		res[c.name] = rv.FieldByIndex(c.index).Interface()
	}
	return res
}
