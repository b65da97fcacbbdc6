package sqlmodel

import (
	"context"

	"github.com/samber/lo"
)

// Relation loads the related rows of a whole batch of parents with one query.
type Relation[M any] struct {
	// Resolve fills the relation on every parent, selecting fields of the related schema.
	Resolve func(ctx context.Context, r Runner, parents []M, fields []string) error
	// Check validates a field path below the relation.
	Check func(field string) error
	// Depends lists the parent fields the relation cannot be resolved without.
	Depends []string
}

// HasMany relates each parent to every child whose column childCol holds the parent's key.
// childKey reads that same value back from a loaded child.
func HasMany[M, N any, K comparable](
	child *ModelSchema[N],
	childCol string,
	parentKey func(M) K,
	childKey func(N) K,
	assign func(*M, []N),
	depends ...string,
) Relation[M] {
	return relate(child, childCol, parentKey, childKey, func(parent *M, children []N) {
		assign(parent, children)
	}, depends)
}

// HasOne relates each parent to the child whose column childCol equals the parent's foreign
// key. Parents whose key matches no child are left untouched.
func HasOne[M, N any, K comparable](
	child *ModelSchema[N],
	childCol string,
	parentKey func(M) K,
	childKey func(N) K,
	assign func(*M, N),
	depends ...string,
) Relation[M] {
	return relate(child, childCol, parentKey, childKey, func(parent *M, children []N) {
		if len(children) > 0 {
			assign(parent, children[0])
		}
	}, depends)
}

func relate[M, N any, K comparable](
	child *ModelSchema[N],
	childCol string,
	parentKey func(M) K,
	childKey func(N) K,
	bind func(*M, []N),
	depends []string,
) Relation[M] {
	return Relation[M]{
		Check: child.Check,
		Resolve: func(ctx context.Context, r Runner, parents []M, fields []string) error {
			keys := lo.Uniq(lo.Map(parents, func(p M, _ int) K { return parentKey(p) }))

			children, err := child.Query(fields...).
				ModifyQuery(WhereEq(childCol, keys)).
				Collect(ctx, r)
			if err != nil {
				return err
			}

			byKey := lo.GroupBy(children, childKey)
			for i := range parents {
				bind(&parents[i], byKey[parentKey(parents[i])])
			}
			return nil
		},
		Depends: depends,
	}
}
