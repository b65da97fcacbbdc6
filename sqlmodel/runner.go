package sqlmodel

import "github.com/Masterminds/squirrel"

// Runner executes statements against a database using its dialect's placeholders.
// A nil Placeholder means '?'.
type Runner struct {
	DB          squirrel.BaseRunner
	Placeholder squirrel.PlaceholderFormat
}

func (r Runner) statements() squirrel.StatementBuilderType {
	sb := squirrel.StatementBuilder.RunWith(r.DB)
	if r.Placeholder != nil {
		sb = sb.PlaceholderFormat(r.Placeholder)
	}
	return sb
}
