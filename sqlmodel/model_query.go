package sqlmodel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrNoSuchField is returned when there is no field or no relation with that name.
	ErrNoSuchField = errors.New("field does not exist")
	// ErrNoSuchRelation is returned when selecting below something that is not a relation.
	ErrNoSuchRelation = errors.New("relation does not exist")
	// ErrTooManyResults is returned by CollectOne when more than one row matched.
	ErrTooManyResults = errors.New("too many result for CollectOne")
)

// ModelQuery is an immutable selection on a schema; every method returns a changed copy.
type ModelQuery[T any] struct {
	schema *ModelSchema[T]

	fields map[string]FieldType[T]
	// relations maps a selected relation to the field paths selected below it.
	relations map[string][]string
	mods      []QueryMod

	errs []error
}

func newModelQuery[T any](schema *ModelSchema[T], fields ...string) ModelQuery[T] {
	query := ModelQuery[T]{
		schema:    schema,
		fields:    map[string]FieldType[T]{},
		relations: map[string][]string{},
	}

	return query.Select(fields...)
}

func (model ModelQuery[T]) clone() ModelQuery[T] {
	model.fields = maps.Clone(model.fields)
	model.relations = maps.Clone(model.relations)
	model.mods = slices.Clone(model.mods)
	model.errs = slices.Clone(model.errs)
	return model
}

func (model ModelQuery[T]) ModifyQuery(mod QueryMod) ModelQuery[T] {
	model = model.clone()
	model.mods = append(model.mods, mod)

	return model
}

// Where keeps rows whose field equals value. The field must map onto a single column.
func (model ModelQuery[T]) Where(field string, value any) ModelQuery[T] {
	column, ok := model.schema.Column(field)
	if !ok {
		model = model.clone()
		model.errs = append(model.errs, fmt.Errorf("%w: %s", ErrNoSuchField, field))
		return model
	}

	return model.ModifyQuery(WhereEq(column, value))
}

// Select adds fields to the query. A path "rel.field" selects field on relation rel, "*"
// selects every field and no names at all is the same as "*".
func (model ModelQuery[T]) Select(names ...string) ModelQuery[T] {
	model = model.clone()
	if len(names) == 0 {
		names = []string{"*"}
	}

	for _, name := range names {
		if err := model.selectPath(name); err != nil {
			model.errs = append(model.errs, err)
		}
	}

	return model
}

func (model *ModelQuery[T]) selectPath(name string) error {
	head, rest, nested := strings.Cut(name, ".")

	if head == "*" {
		if nested {
			return fmt.Errorf("%w: %s", ErrNoSuchRelation, head)
		}
		maps.Copy(model.fields, model.schema.Fields)
		return nil
	}

	if relation, ok := model.schema.Relations[head]; ok {
		if rest == "" {
			rest = "*"
		} else if rest != "*" {
			if err := relation.Check(rest); err != nil {
				return err
			}
		}
		return model.selectRelation(head, rest, relation)
	}

	if field, ok := model.schema.Fields[head]; ok {
		if nested {
			return fmt.Errorf("%w: %s", ErrNoSuchRelation, head)
		}
		model.fields[head] = field
		return nil
	}

	return fmt.Errorf("%w: %s", ErrNoSuchField, head)
}

// selectRelation pulls in the relation's dependencies the first time it is selected.
func (model *ModelQuery[T]) selectRelation(name, field string, relation Relation[T]) error {
	selected, seen := model.relations[name]
	model.relations[name] = append(slices.Clone(selected), field)
	if seen {
		return nil
	}

	var errs []error
	for _, dep := range relation.Depends {
		if err := model.selectPath(dep); err != nil {
			errs = append(errs, fmt.Errorf("%s depends on %s: %w", name, dep, err))
		}
	}
	return errors.Join(errs...)
}

// =================
// Finishers
// =================

func (model ModelQuery[T]) Err() error {
	return errors.Join(model.errs...)
}

func (model ModelQuery[T]) Collect(ctx context.Context, r Runner) ([]T, error) {
	if err := model.Err(); err != nil {
		return nil, err
	}

	rows, err := Collect(ctx, model.build(r), model.scan())
	if err != nil {
		return nil, err
	}

	if err := model.resolveRelations(ctx, r, rows); err != nil {
		return nil, err
	}

	return rows, nil
}

// CollectOne returns sql.ErrNoRows when nothing matched.
func (model ModelQuery[T]) CollectOne(ctx context.Context, r Runner) (*T, error) {
	if err := model.Err(); err != nil {
		return nil, err
	}

	rows, err := Collect(ctx, model.build(r).Limit(2), model.scan())
	if err != nil {
		return nil, err
	}

	switch len(rows) {
	case 0:
		return nil, sql.ErrNoRows
	case 1:
	default:
		return nil, ErrTooManyResults
	}

	if err := model.resolveRelations(ctx, r, rows); err != nil {
		return nil, err
	}

	return &rows[0], nil
}

// selected returns the selected field names in a stable order.
func (model ModelQuery[T]) selected() []string {
	return slices.Sorted(maps.Keys(model.fields))
}

func (model ModelQuery[T]) build(r Runner) Q {
	table := model.schema.Table
	q := r.statements().Select().From(table)

	q = applyMods(q, table, model.schema.QueryMods)
	q = applyMods(q, table, model.mods)

	for _, name := range model.selected() {
		q = model.fields[name].Mod(q, table)
	}
	return q
}

func (model ModelQuery[T]) scan() RowScan[T] {
	var scans []RowScan[T]
	for _, name := range model.selected() {
		scans = append(scans, model.fields[name].RowScan)
	}
	return flattenRowScan(scans)
}

func (model ModelQuery[T]) resolveRelations(ctx context.Context, r Runner, rows []T) error {
	if len(rows) == 0 {
		return nil
	}

	for _, name := range slices.Sorted(maps.Keys(model.relations)) {
		relation := model.schema.Relations[name]
		if err := relation.Resolve(ctx, r, rows, model.relations[name]); err != nil {
			return fmt.Errorf("resolve %s: %w", name, err)
		}
	}

	return nil
}
