package sqlmodel

import "github.com/Masterminds/squirrel"

type (
	Q        = squirrel.SelectBuilder
	QueryMod func(q Q, table string) Q
)

func Col(names ...string) QueryMod {
	return func(q Q, table string) Q {
		for _, name := range names {
			q = q.Column(TableCol(table, name))
		}
		return q
	}
}

func TableCol(table, name string) string {
	if table == "" {
		return name
	}
	return table + "." + name
}

// WhereEq keeps rows whose column equals value. A slice value becomes an IN clause.
func WhereEq(col string, value any) QueryMod {
	return func(q Q, table string) Q {
		return q.Where(squirrel.Eq{TableCol(table, col): value})
	}
}

func applyMods(q Q, table string, mods []QueryMod) Q {
	for _, mod := range mods {
		q = mod(q, table)
	}

	return q
}

func OrderBy(cols ...string) QueryMod {
	return func(q Q, table string) Q {
		for _, col := range cols {
			q = q.OrderBy(TableCol(table, col))
		}
		return q
	}
}
