package utils

import (
	"fmt"
	"reflect"
)

// ColumnTag names the struct tag the store layer maps to column names.
var ColumnTag = "db"

// StructTagValues lists the column names of input's exported, db-tagged
// fields, in declaration order. Used to build SELECT column lists that stay
// in sync with the entity structs.
func StructTagValues(input any) []string {
	v := structValue(input)
	result := make([]string, 0, v.NumField())

	eachTaggedField(v, func(column string, _ reflect.Value) {
		result = append(result, column)
	})

	return result
}

// StructToMap converts input into a column -> value map for squirrel's
// SetMap. Fields without a db tag (or tagged "-") are skipped.
func StructToMap(input any) map[string]any {
	v := structValue(input)
	result := make(map[string]any, v.NumField())

	eachTaggedField(v, func(column string, field reflect.Value) {
		result[column] = field.Interface()
	})

	return result
}

func structValue(input any) reflect.Value {
	v := reflect.ValueOf(input)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}

	return v
}

func eachTaggedField(v reflect.Value, fn func(column string, field reflect.Value)) {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		if t.Field(i).PkgPath != "" {
			continue
		}

		column := t.Field(i).Tag.Get(ColumnTag)
		if column == "" || column == "-" {
			continue
		}

		fn(column, v.Field(i))
	}
}

func ErrorWrapOrNil(err error, msg string) error {
	if err == nil {
		return nil
	}

	if msg == "" {
		return err
	}

	return fmt.Errorf("%s: %w", msg, err)
}
