package pkg

import (
	"regexp"
	"slices"
	"strings"

	"github.com/simp-lee/catalog/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// validFieldName matches only alphanumeric characters and underscores.
var validFieldName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// likeEscaper escapes LIKE wildcards so user input is matched literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns a GORM scope matching term case-insensitively against any of
// columns. An empty term or an empty column list leaves the query untouched.
func Search(term string, columns []string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		term = strings.TrimSpace(term)
		if term == "" {
			return db
		}

		exprs := make([]clause.Expression, 0, len(columns))
		for _, col := range columns {
			if !validFieldName.MatchString(col) {
				continue
			}
			exprs = append(exprs, containsExpr(col, term))
		}
		switch len(exprs) {
		case 0:
			return db
		case 1:
			// A lone OrConditions would be OR-joined to the preceding condition.
			return db.Where(exprs[0])
		default:
			return db.Where(clause.Or(exprs...))
		}
	}
}

// Filter returns a GORM scope applying typed filters. Filters on columns that
// are not in the allowed list, or are not plain identifiers, are silently ignored.
func Filter(filters []domain.Filter, allowed []string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, f := range filters {
			if !validFieldName.MatchString(f.Column) || !isAllowed(f.Column, allowed) {
				continue
			}
			db = applyFilter(db, f)
		}
		return db
	}
}

func applyFilter(db *gorm.DB, f domain.Filter) *gorm.DB {
	col := clause.Column{Name: f.Column}
	v := f.Value

	switch v.Kind {
	case domain.FilterContains:
		s, _ := v.Value.(string)
		if s == "" {
			return db
		}
		return db.Where(containsExpr(f.Column, s))

	case domain.FilterBetween:
		if v.From != nil {
			db = db.Where(clause.Gte{Column: col, Value: v.From})
		}
		if v.To != nil {
			db = db.Where(clause.Lte{Column: col, Value: v.To})
		}
		return db

	case domain.FilterIn:
		if len(v.Values) == 0 {
			return db.Where("1 = 0")
		}
		return db.Where(clause.IN{Column: col, Values: v.Values})

	default:
		// clause.Eq renders IS NULL for a nil value.
		return db.Where(clause.Eq{Column: col, Value: v.Value})
	}
}

// containsExpr matches term anywhere in column, ignoring case. The column is
// cast to text so numeric and date columns can be searched on postgres too.
func containsExpr(column, term string) clause.Expression {
	return clause.Expr{
		SQL:  `LOWER(CAST(? AS TEXT)) LIKE ? ESCAPE '\'`,
		Vars: []any{clause.Column{Name: column}, "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"},
	}
}

// Sort returns a GORM scope ordering by column when it is allowed, falling back
// to primaryKey descending otherwise. The primary key is always appended as a
// tie-breaker so the order is total.
func Sort(column string, dir domain.SortDirection, allowed []string, primaryKey string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if column != "" && validFieldName.MatchString(column) && isAllowed(column, allowed) {
			db = db.Order(clause.OrderByColumn{
				Column: clause.Column{Name: column},
				Desc:   dir == domain.SortDesc,
			})
			if column == primaryKey {
				return db
			}
		}
		return db.Order(clause.OrderByColumn{Column: clause.Column{Name: primaryKey}, Desc: true})
	}
}

// Trashed returns a GORM scope opting soft-deleted rows into the query. It is
// a no-op for models without a soft-delete column.
func Trashed(mode domain.TrashedMode, deletedColumn string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if deletedColumn == "" {
			return db
		}
		switch mode {
		case domain.TrashedWith:
			return db.Unscoped()
		case domain.TrashedOnly:
			return db.Unscoped().Where(clause.Neq{Column: clause.Column{Name: deletedColumn}, Value: nil})
		default:
			return db
		}
	}
}

// isAllowed checks if a field name is in the allowed list.
func isAllowed(field string, allowed []string) bool {
	return slices.Contains(allowed, field)
}
