package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/whx4/wxc/internal/metaquery"
	"github.com/whx4/wxc/internal/query"
	"github.com/whx4/wxc/internal/taxquery"
)

// Execute runs a compiled descriptor and returns the matching items
// with found/page counts. Implements query.Executor.
//
// All comparison values are parameterized, never interpolated. Every
// query carries a deterministic ORDER BY with an id tiebreaker.
func (s *Store) Execute(ctx context.Context, d query.Descriptor) (query.ExecResult, error) {
	where, params := compileWhere(d)

	countSQL := "SELECT COUNT(*) FROM items" + where
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, params...).Scan(&total); err != nil {
		return query.ExecResult{}, fmt.Errorf("counting items: %w", err)
	}

	selectSQL := "SELECT id, collection, title, slug, status, published_at FROM items" +
		where + orderClause(d) + limitClause(d)

	s.log.Debug("executing descriptor",
		zap.String("collection", d.CollectionType),
		zap.String("sql", selectSQL),
		zap.Int("params", len(params)))

	rows, err := s.db.QueryContext(ctx, selectSQL, params...)
	if err != nil {
		return query.ExecResult{}, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []query.Item
	for rows.Next() {
		var it query.Item
		if err := rows.Scan(&it.ID, &it.CollectionType, &it.Title, &it.Slug, &it.Status, &it.PublishedAt); err != nil {
			return query.ExecResult{}, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return query.ExecResult{}, fmt.Errorf("reading items: %w", err)
	}

	for i := range items {
		if err := s.hydrate(ctx, &items[i]); err != nil {
			return query.ExecResult{}, err
		}
	}

	return query.ExecResult{
		Items:      items,
		TotalFound: total,
		TotalPages: pageCount(total, d.PageSize),
	}, nil
}

func pageCount(total, pageSize int) int {
	if pageSize <= 0 {
		if total > 0 {
			return 1
		}
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// compileWhere builds the WHERE clause: collection and status guards,
// then the field-clause tree as correlated item_meta subqueries, then
// the tag-clause tree over item_terms.
func compileWhere(d query.Descriptor) (string, []any) {
	conds := []string{"collection = ?", "status = ?"}
	params := []any{d.CollectionType, d.Status}

	if frag, p, ok := compileGroup(d.FieldClauses); ok {
		conds = append(conds, frag)
		params = append(params, p...)
	}
	if frag, p, ok := compileTagTree(d.TagClauses); ok {
		conds = append(conds, frag)
		params = append(params, p...)
	}

	return " WHERE " + strings.Join(conds, " AND "), params
}

func compileGroup(g metaquery.Group) (string, []any, bool) {
	if g.Empty() {
		return "", nil, false
	}

	joiner := " AND "
	if g.Relation == metaquery.RelationOr {
		joiner = " OR "
	}

	var frags []string
	var params []any
	for _, node := range g.Nodes {
		switch n := node.(type) {
		case metaquery.Condition:
			frag, p, ok := compileCondition(n)
			if !ok {
				continue
			}
			frags = append(frags, frag)
			params = append(params, p...)
		case metaquery.Group:
			frag, p, ok := compileGroup(n)
			if !ok {
				continue
			}
			frags = append(frags, frag)
			params = append(params, p...)
		}
	}
	if len(frags) == 0 {
		return "", nil, false
	}
	return "(" + strings.Join(frags, joiner) + ")", params, true
}

// compileCondition renders one field comparison as a correlated
// subquery against item_meta.
func compileCondition(c metaquery.Condition) (string, []any, bool) {
	switch c.Compare {
	case metaquery.CompareExists:
		return "EXISTS (SELECT 1 FROM item_meta m WHERE m.item_id = items.id AND m.key = ?)",
			[]any{c.Key}, true
	case metaquery.CompareNotExists:
		return "NOT EXISTS (SELECT 1 FROM item_meta m WHERE m.item_id = items.id AND m.key = ?)",
			[]any{c.Key}, true
	}

	expr := castExpr("m.value", c.Cast)
	params := []any{c.Key}

	var cmp string
	switch c.Compare {
	case metaquery.CompareEquals, metaquery.CompareGte, metaquery.CompareLte:
		cmp = expr + " " + string(c.Compare) + " ?"
		params = append(params, c.Value)
	case metaquery.CompareIn:
		values, ok := c.Value.([]any)
		if !ok || len(values) == 0 {
			return "", nil, false
		}
		cmp = expr + " IN (" + placeholders(len(values)) + ")"
		params = append(params, values...)
	case metaquery.CompareBetween:
		bounds, ok := c.Value.([]any)
		if !ok || len(bounds) != 2 {
			return "", nil, false
		}
		cmp = expr + " BETWEEN ? AND ?"
		params = append(params, bounds[0], bounds[1])
	case metaquery.CompareLike:
		cmp = expr + " LIKE '%' || ? || '%'"
		params = append(params, c.Value)
	case metaquery.CompareRegexp:
		cmp = expr + " REGEXP ?"
		params = append(params, c.Value)
	default:
		return "", nil, false
	}

	return "EXISTS (SELECT 1 FROM item_meta m WHERE m.item_id = items.id AND m.key = ? AND " + cmp + ")",
		params, true
}

// castExpr applies the descriptor cast to a stored text value. DATE,
// DATETIME and CHAR compare fine as text in the formats the compiler
// emits.
func castExpr(column string, cast metaquery.Cast) string {
	switch cast {
	case metaquery.CastNumeric, metaquery.CastSigned, metaquery.CastUnsigned:
		return "CAST(" + column + " AS NUMERIC)"
	case metaquery.CastDecimal:
		return "CAST(" + column + " AS REAL)"
	default:
		return column
	}
}

// compileTagTree renders the tag clauses over item_terms. The reference
// schema stores flat term slugs, so match fields other than slug
// compare against the same column and descendant expansion is the
// host's concern.
func compileTagTree(tree taxquery.Tree) (string, []any, bool) {
	if tree.Empty() {
		return "", nil, false
	}

	joiner := " AND "
	if tree.Relation == taxquery.RelationOr {
		joiner = " OR "
	}

	var frags []string
	var params []any
	for _, c := range tree.Clauses {
		frag, p, ok := compileTagClause(c)
		if !ok {
			continue
		}
		frags = append(frags, frag)
		params = append(params, p...)
	}
	if len(frags) == 0 {
		return "", nil, false
	}
	return "(" + strings.Join(frags, joiner) + ")", params, true
}

func compileTagClause(c taxquery.Clause) (string, []any, bool) {
	termMatch := func() (string, []any) {
		frag := "EXISTS (SELECT 1 FROM item_terms t WHERE t.item_id = items.id AND t.taxonomy = ? AND t.term IN (" +
			placeholders(len(c.Terms)) + "))"
		params := []any{c.Taxonomy}
		for _, term := range c.Terms {
			params = append(params, term)
		}
		return frag, params
	}

	switch c.Operator {
	case taxquery.OpIn:
		frag, params := termMatch()
		return frag, params, true
	case taxquery.OpNotIn:
		frag, params := termMatch()
		return "NOT " + frag, params, true
	case taxquery.OpAnd:
		var frags []string
		var params []any
		for _, term := range c.Terms {
			frags = append(frags,
				"EXISTS (SELECT 1 FROM item_terms t WHERE t.item_id = items.id AND t.taxonomy = ? AND t.term = ?)")
			params = append(params, c.Taxonomy, term)
		}
		return "(" + strings.Join(frags, " AND ") + ")", params, true
	case taxquery.OpExists:
		return "EXISTS (SELECT 1 FROM item_terms t WHERE t.item_id = items.id AND t.taxonomy = ?)",
			[]any{c.Taxonomy}, true
	case taxquery.OpNotExists:
		return "NOT EXISTS (SELECT 1 FROM item_terms t WHERE t.item_id = items.id AND t.taxonomy = ?)",
			[]any{c.Taxonomy}, true
	default:
		return "", nil, false
	}
}

// orderClause maps the descriptor ordering onto columns. Derived field
// ordering sorts on the item's meta value, cast numerically for the
// numeric-aware variant. The id tiebreaker keeps results deterministic.
func orderClause(d query.Descriptor) string {
	dir := "DESC"
	if d.Order == "ASC" {
		dir = "ASC"
	}

	var key string
	switch d.OrderBy {
	case query.OrderByField:
		if d.SortField == "" {
			key = "published_at"
			break
		}
		expr := "(SELECT m.value FROM item_meta m WHERE m.item_id = items.id AND m.key = " +
			quoteLiteral(d.SortField) + " LIMIT 1)"
		if d.SortNumeric {
			expr = "CAST(" + expr + " AS NUMERIC)"
		}
		key = expr
	case "title":
		key = "title"
	case "slug":
		key = "slug"
	case "id":
		key = "id"
	default:
		key = "published_at"
	}

	return " ORDER BY " + key + " " + dir + ", id ASC"
}

// quoteLiteral embeds a sort key in the ORDER BY expression, where
// SQLite does not accept parameters in all positions. Single quotes are
// doubled; the key itself comes from the collection registry, not from
// user input.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func limitClause(d query.Descriptor) string {
	if d.PageSize <= 0 {
		return ""
	}
	page := d.Page
	if page < 1 {
		page = 1
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", d.PageSize, (page-1)*d.PageSize)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// hydrate loads an item's field values and term assignments. Repeated
// meta keys come back as a slice, mirroring the rows storage shape.
func (s *Store) hydrate(ctx context.Context, it *query.Item) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM item_meta WHERE item_id = ? ORDER BY key, value`, it.ID)
	if err != nil {
		return fmt.Errorf("loading meta for %s: %w", it.ID, err)
	}
	defer rows.Close()

	fields := make(map[string]any)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scanning meta for %s: %w", it.ID, err)
		}
		switch existing := fields[key].(type) {
		case nil:
			fields[key] = value
		case []any:
			fields[key] = append(existing, value)
		default:
			fields[key] = []any{existing, value}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading meta for %s: %w", it.ID, err)
	}
	if len(fields) > 0 {
		it.Fields = fields
	}

	termRows, err := s.db.QueryContext(ctx,
		`SELECT taxonomy, term FROM item_terms WHERE item_id = ? ORDER BY taxonomy, term`, it.ID)
	if err != nil {
		return fmt.Errorf("loading terms for %s: %w", it.ID, err)
	}
	defer termRows.Close()

	terms := make(map[string][]string)
	for termRows.Next() {
		var taxonomy, term string
		if err := termRows.Scan(&taxonomy, &term); err != nil {
			return fmt.Errorf("scanning terms for %s: %w", it.ID, err)
		}
		terms[taxonomy] = append(terms[taxonomy], term)
	}
	if err := termRows.Err(); err != nil {
		return fmt.Errorf("reading terms for %s: %w", it.ID, err)
	}
	if len(terms) > 0 {
		it.Terms = terms
	}

	return nil
}
