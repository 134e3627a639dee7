package catalog

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/simp-lee/catalog/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// relation resolves a user supplied relation name ("branches", "Branches").
func (r *Repository[T]) relation(name string) (*schema.Relationship, bool) {
	rel, ok := r.relations[strings.ToLower(strings.TrimSpace(name))]
	return rel, ok
}

func (r *Repository[T]) checkRelations(with, withCount []string) error {
	for _, name := range with {
		if _, ok := r.relation(name); !ok {
			return domain.Invalid("unknown relation %q", name)
		}
	}
	for _, name := range withCount {
		rel, ok := r.relation(name)
		if !ok {
			return domain.Invalid("unknown relation %q", name)
		}
		if rel.Type != schema.HasMany && rel.Type != schema.HasOne {
			return domain.Invalid("relation %q cannot be counted", name)
		}
	}
	return nil
}

func (r *Repository[T]) preload(db *gorm.DB, with []string) *gorm.DB {
	for _, name := range with {
		if rel, ok := r.relation(name); ok {
			db = db.Preload(rel.Name)
		}
	}
	return db
}

type relationCount struct {
	ParentKey int64
	Total     int64
}

// relationCounts counts the live children of every item, one grouped query per
// relation. The result is aligned with items; keys are "<relation>_count".
func (r *Repository[T]) relationCounts(ctx context.Context, items []T, withCount []string) ([]map[string]int64, error) {
	if len(withCount) == 0 || len(items) == 0 {
		return nil, nil
	}

	keys := make([]string, len(items))
	ids := make([]any, len(items))
	for i := range items {
		v, _ := r.schema.PrioritizedPrimaryField.ValueOf(ctx, reflect.ValueOf(&items[i]).Elem())
		keys[i] = fmt.Sprint(v)
		ids[i] = v
	}

	counts := make([]map[string]int64, len(items))
	for i := range counts {
		counts[i] = make(map[string]int64, len(withCount))
	}

	for _, name := range withCount {
		rel, _ := r.relation(name)
		key := r.db.NamingStrategy.ColumnName("", rel.Name) + "_count"

		var foreignKey string
		for _, ref := range rel.References {
			if ref.OwnPrimaryKey && ref.ForeignKey != nil {
				foreignKey = ref.ForeignKey.DBName
			}
		}
		if foreignKey == "" {
			return nil, domain.Invalid("relation %q cannot be counted", name)
		}

		q := r.conn(ctx).
			Table(rel.FieldSchema.Table).
			Select(foreignKey + " AS parent_key, COUNT(*) AS total").
			Where(clause.IN{Column: clause.Column{Name: foreignKey}, Values: ids}).
			Group(foreignKey)
		if deleted := softDeleteColumn(rel.FieldSchema); deleted != "" {
			q = q.Where(clause.Eq{Column: clause.Column{Name: deleted}, Value: nil})
		}

		var rows []relationCount
		if err := q.Scan(&rows).Error; err != nil {
			return nil, mapError(err)
		}

		byParent := make(map[string]int64, len(rows))
		for _, row := range rows {
			byParent[fmt.Sprint(row.ParentKey)] = row.Total
		}
		for i, k := range keys {
			counts[i][key] = byParent[k]
		}
	}
	return counts, nil
}
