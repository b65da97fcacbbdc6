// Package sqlmodel maps structs onto tables with per-query field selection and relations that
// load children for a whole batch of parents at once.
package sqlmodel

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrReadOnly is returned by Insert when the schema has no writable columns.
var ErrReadOnly = errors.New("schema has no writable columns")

// ModelSchema describes how T is read from and written to Table.
type ModelSchema[T any] struct {
	Table     string
	Fields    map[string]FieldType[T]
	Relations map[string]Relation[T]
	// QueryMods apply to every query on the table, including relation lookups.
	QueryMods []QueryMod
}

func New[T any](table string) *ModelSchema[T] {
	return &ModelSchema[T]{
		Table:     table,
		Fields:    map[string]FieldType[T]{},
		Relations: map[string]Relation[T]{},
	}
}

func (schema *ModelSchema[T]) AddField(name string, mod QueryMod, rowScan RowScan[T]) *ModelSchema[T] {
	return schema.AddFieldType(name, Field(mod, rowScan))
}

func (schema *ModelSchema[T]) AddFieldType(name string, field FieldType[T]) *ModelSchema[T] {
	schema.Fields[name] = field

	return schema
}

// AddSimpleField adds a field stored in the column of the same name.
func (schema *ModelSchema[T]) AddSimpleField(name string, ptr func(t *T) any) *ModelSchema[T] {
	return schema.AddColumnField(name, name, ptr)
}

// AddColumnField exposes column under a different field name.
func (schema *ModelSchema[T]) AddColumnField(name, column string, ptr func(t *T) any) *ModelSchema[T] {
	return schema.AddFieldType(name, ColumnField(column, ptr))
}

// AddRelation may be called after queries on the schema have been built; the relation is
// visible to every query collected afterwards.
func (schema *ModelSchema[T]) AddRelation(name string, relation Relation[T]) *ModelSchema[T] {
	schema.Relations[name] = relation

	return schema
}

func (schema *ModelSchema[T]) ModifyQuery(mod QueryMod) *ModelSchema[T] {
	schema.QueryMods = append(schema.QueryMods, mod)

	return schema
}

func (schema *ModelSchema[T]) Query(fields ...string) ModelQuery[T] {
	return newModelQuery(schema, fields...)
}

// Column returns the column behind a writable field.
func (schema *ModelSchema[T]) Column(field string) (string, bool) {
	f, ok := schema.Fields[field]
	if !ok || !f.writable() {
		return "", false
	}
	return f.Column, true
}

// Insert writes every writable field of t as one row.
func (schema *ModelSchema[T]) Insert(ctx context.Context, r Runner, t *T) error {
	names := slices.Sorted(maps.Keys(schema.Fields))
	names = slices.DeleteFunc(names, func(name string) bool { return !schema.Fields[name].writable() })
	if len(names) == 0 {
		return fmt.Errorf("%w: %s", ErrReadOnly, schema.Table)
	}

	columns := make([]string, 0, len(names))
	values := make([]any, 0, len(names))
	for _, name := range names {
		field := schema.Fields[name]
		columns = append(columns, field.Column)
		values = append(values, field.Value(t))
	}

	_, err := r.statements().
		Insert(schema.Table).
		Columns(columns...).
		Values(values...).
		ExecContext(ctx)
	return err
}

// Check reports whether a field path exists, following relations.
func (schema *ModelSchema[T]) Check(path string) error {
	head, rest, nested := strings.Cut(path, ".")
	if head == "" || head == "*" {
		return nil
	}

	if relation, ok := schema.Relations[head]; ok {
		return relation.Check(rest)
	}

	if _, ok := schema.Fields[head]; ok {
		if nested {
			return fmt.Errorf("%w: %s", ErrNoSuchRelation, head)
		}
		return nil
	}

	return fmt.Errorf("%w: %s", ErrNoSuchField, head)
}
