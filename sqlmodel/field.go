package sqlmodel

import "reflect"

type (
	Ptrs             []any
	RowScan[T any]   func(*T) (Ptrs, Action)
	Action           func()
	FieldType[T any] struct {
		Mod     QueryMod
		RowScan RowScan[T]
		// Column and Value are set for fields that map onto one writable column.
		Column string
		Value  func(*T) any
	}
)

func Ptr[T any](ptr func(t *T) any) RowScan[T] {
	return func(t *T) (Ptrs, Action) {
		return Ptrs{ptr(t)}, nil
	}
}

func Field[T any](mod QueryMod, scan RowScan[T]) FieldType[T] {
	return FieldType[T]{Mod: mod, RowScan: scan}
}

// ColumnField is a field read from and written to a single column through ptr.
func ColumnField[T any](column string, ptr func(t *T) any) FieldType[T] {
	return FieldType[T]{
		Mod:     Col(column),
		RowScan: Ptr(ptr),
		Column:  column,
		Value: func(t *T) any {
			return reflect.Indirect(reflect.ValueOf(ptr(t))).Interface()
		},
	}
}

func (field FieldType[T]) writable() bool {
	return field.Column != "" && field.Value != nil
}

func flattenRowScan[T any](rowScans []RowScan[T]) RowScan[T] {
	return func(t *T) (Ptrs, Action) {
		var (
			pointers Ptrs
			actions  []Action
		)
		for _, rowScan := range rowScans {
			ptr, action := rowScan(t)
			pointers = append(pointers, ptr...)
			if action != nil {
				actions = append(actions, action)
			}
		}

		return pointers, flattenActions(actions)
	}
}

func flattenActions(actions []Action) Action {
	return func() {
		for _, action := range actions {
			action()
		}
	}
}
