package models

import (
	"errors"
	"strings"
)

var ErrIncorrectField = errors.New("field must be name=value")

// Field is a name=value pair typed at the prompt.
type Field struct {
	Name  string
	Value string
}

// FieldsFromArgs parses "name=value" arguments. Values may contain '='
// after the first one; surrounding spaces are kept.
func FieldsFromArgs(args []string) ([]Field, error) {
	data := make([]Field, len(args))
	for n, item := range args {
		name, value, ok := strings.Cut(item, "=")
		if !ok || name == "" {
			return nil, ErrIncorrectField
		}
		data[n] = Field{Name: name, Value: value}
	}
	return data, nil
}

// FieldMap is FieldsFromArgs keyed by name; later duplicates win.
func FieldMap(args []string) (map[string]string, error) {
	fields, err := FieldsFromArgs(args)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f.Name] = f.Value
	}
	return m, nil
}
