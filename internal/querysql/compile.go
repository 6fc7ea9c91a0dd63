package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/relsync/internal/queryir"
)

// rootAlias is the alias of the table a Select or Count reads from.
const rootAlias = "t0"

// SQLCompiler compiles QueryIR to parameterized SQL for SQLite.
//
// Values are never interpolated: every literal becomes a ? placeholder and
// is returned in the params slice. Identifiers are double-quoted.
//
// A SQLCompiler is cheap and holds per-compilation state; do not share one
// between goroutines.
type SQLCompiler struct {
	exists int

	// table is the unaliased table of the statement being compiled.
	table string
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a QueryIR query to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if err := queryir.Validate(q); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}
	c.exists = 0

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case queryir.Count:
		return c.compileCount(query)
	case *queryir.Count:
		return c.compileCount(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// CompileStatement converts a QueryIR write to parameterized SQL.
//
// Statements address a single table, so columns are not qualified.
func (c *SQLCompiler) CompileStatement(s queryir.Statement) (string, []any, error) {
	if s == nil {
		return "", nil, fmt.Errorf("cannot compile nil statement")
	}
	if err := queryir.Validate(s); err != nil {
		return "", nil, fmt.Errorf("invalid statement: %w", err)
	}
	c.exists = 0
	c.table = ""

	switch stmt := s.(type) {
	case queryir.Insert:
		return c.compileInsert(stmt)
	case *queryir.Insert:
		return c.compileInsert(*stmt)
	case queryir.Update:
		return c.compileUpdate(stmt)
	case *queryir.Update:
		return c.compileUpdate(*stmt)
	case queryir.Delete:
		return c.compileDelete(stmt)
	case *queryir.Delete:
		return c.compileDelete(*stmt)
	default:
		return "", nil, fmt.Errorf("unsupported statement type: %T", s)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	var b strings.Builder
	var params []any

	cols := make([]string, len(q.Columns))
	for i, col := range q.Columns {
		// Result column names are only stable with an explicit AS.
		cols[i] = field(rootAlias, col.Field) + " AS " + Quote(col.Key())
	}
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(" FROM ")
	b.WriteString(table(q.From, rootAlias))

	for _, j := range q.Joins {
		fmt.Fprintf(&b, " %s JOIN %s ON %s = %s",
			j.Kind, table(j.Table, j.Alias), field(j.Alias, queryir.F(j.Key)), field(rootAlias, j.Parent))
	}

	if q.Filter != nil {
		where, whereParams, err := c.compilePredicate(rootAlias, q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = append(params, whereParams...)
	}

	if len(q.Order) > 0 {
		terms := make([]string, len(q.Order))
		for i, o := range q.Order {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			terms[i] = field(rootAlias, o.Field) + " " + dir
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(terms, ", "))
	}

	switch {
	case q.Limit > 0:
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
		if q.Offset > 0 {
			b.WriteString(" OFFSET ?")
			params = append(params, q.Offset)
		}
	case q.Offset > 0:
		// SQLite only accepts OFFSET after LIMIT; -1 is unbounded.
		b.WriteString(" LIMIT -1 OFFSET ?")
		params = append(params, q.Offset)
	}

	return b.String(), params, nil
}

func (c *SQLCompiler) compileCount(q queryir.Count) (string, []any, error) {
	sql := "SELECT COUNT(*) FROM " + table(q.From, rootAlias)
	if q.Filter == nil {
		return sql, nil, nil
	}
	where, params, err := c.compilePredicate(rootAlias, q.Filter)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return sql + " WHERE " + where, params, nil
}

func (c *SQLCompiler) compileInsert(ins queryir.Insert) (string, []any, error) {
	if len(ins.Columns) == 0 {
		return "INSERT INTO " + Quote(ins.Table) + " DEFAULT VALUES", nil, nil
	}
	cols := make([]string, len(ins.Columns))
	marks := make([]string, len(ins.Columns))
	for i, col := range ins.Columns {
		cols[i] = Quote(col)
		marks[i] = "?"
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		Quote(ins.Table), strings.Join(cols, ", "), strings.Join(marks, ", "))
	return sql, append([]any(nil), ins.Values...), nil
}

func (c *SQLCompiler) compileUpdate(up queryir.Update) (string, []any, error) {
	c.table = up.Table
	sets := make([]string, len(up.Set))
	params := make([]any, 0, len(up.Set))
	for i, a := range up.Set {
		sets[i] = Quote(a.Column) + " = ?"
		params = append(params, a.Value)
	}
	where, whereParams, err := c.compilePredicate("", up.Filter)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s", Quote(up.Table), strings.Join(sets, ", "), where)
	return sql, append(params, whereParams...), nil
}

func (c *SQLCompiler) compileDelete(del queryir.Delete) (string, []any, error) {
	c.table = del.Table
	where, params, err := c.compilePredicate("", del.Filter)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", Quote(del.Table), where), params, nil
}

// compilePredicate compiles a predicate evaluated against the table aliased
// scope. An empty scope leaves columns unqualified.
func (c *SQLCompiler) compilePredicate(scope string, p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil
	}

	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileEquals(scope, pred)
	case *queryir.Equals:
		return c.compileEquals(scope, *pred)
	case queryir.Compare:
		return field(scope, pred.Field) + " " + string(pred.Op) + " ?", []any{pred.Value}, nil
	case *queryir.Compare:
		return c.compilePredicate(scope, *pred)
	case queryir.IsNull:
		return field(scope, pred.Field) + " IS NULL", nil, nil
	case *queryir.IsNull:
		return c.compilePredicate(scope, *pred)
	case queryir.In:
		return c.compileIn(scope, pred)
	case *queryir.In:
		return c.compileIn(scope, *pred)
	case queryir.Like:
		return "LOWER(" + field(scope, pred.Field) + `) LIKE ? ESCAPE '\'`, []any{pred.Pattern}, nil
	case *queryir.Like:
		return c.compilePredicate(scope, *pred)
	case queryir.And:
		return c.compileJunction(scope, pred.Predicates, " AND ", "1 = 1")
	case *queryir.And:
		return c.compileJunction(scope, pred.Predicates, " AND ", "1 = 1")
	case queryir.Or:
		return c.compileJunction(scope, pred.Predicates, " OR ", "1 = 0")
	case *queryir.Or:
		return c.compileJunction(scope, pred.Predicates, " OR ", "1 = 0")
	case queryir.Not:
		inner, params, err := c.compilePredicate(scope, pred.Predicate)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + inner + ")", params, nil
	case *queryir.Not:
		return c.compilePredicate(scope, *pred)
	case queryir.False, *queryir.False:
		return "1 = 0", nil, nil
	case queryir.Exists:
		return c.compileExists(scope, pred)
	case *queryir.Exists:
		return c.compileExists(scope, *pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles "field = ?". A nil value compiles to IS NULL since
// "= NULL" never matches.
func (c *SQLCompiler) compileEquals(scope string, eq queryir.Equals) (string, []any, error) {
	if eq.Value == nil {
		return field(scope, eq.Field) + " IS NULL", nil, nil
	}
	return field(scope, eq.Field) + " = ?", []any{eq.Value}, nil
}

func (c *SQLCompiler) compileIn(scope string, in queryir.In) (string, []any, error) {
	if len(in.Values) == 0 {
		return "1 = 0", nil, nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(in.Values)), ", ")
	return field(scope, in.Field) + " IN (" + marks + ")", append([]any(nil), in.Values...), nil
}

func (c *SQLCompiler) compileJunction(scope string, preds []queryir.Predicate, sep, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, 0, len(preds))
	var params []any
	for _, p := range preds {
		sql, ps, err := c.compilePredicate(scope, p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	if len(parts) == 1 {
		return parts[0], params, nil
	}
	return "(" + strings.Join(parts, sep) + ")", params, nil
}

// compileExists compiles a correlated sub query. Each Exists gets a fresh
// alias so nested sub queries never shadow their parents.
func (c *SQLCompiler) compileExists(scope string, ex queryir.Exists) (string, []any, error) {
	outer := scope
	if outer == "" {
		outer = c.table
	}

	var b strings.Builder
	var link string
	inner := c.nextAlias()
	if ex.Link.Through == "" {
		b.WriteString("EXISTS (SELECT 1 FROM " + table(ex.Table, inner))
		link = field(inner, queryir.F(ex.Link.Key)) + " = " + field(outer, queryir.F(ex.Link.Parent))
	} else {
		through := inner
		inner = c.nextAlias()
		fmt.Fprintf(&b, "EXISTS (SELECT 1 FROM %s JOIN %s ON %s = %s",
			table(ex.Link.Through, through), table(ex.Table, inner),
			field(inner, queryir.F(ex.Link.Key)), field(through, queryir.F(ex.Link.ThroughOther)))
		link = field(through, queryir.F(ex.Link.ThroughKey)) + " = " + field(outer, queryir.F(ex.Link.Parent))
	}

	b.WriteString(" WHERE ")
	b.WriteString(link)

	var params []any
	if ex.Filter != nil {
		where, ps, err := c.compilePredicate(inner, ex.Filter)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" AND ")
		b.WriteString(where)
		params = ps
	}
	b.WriteString(")")
	return b.String(), params, nil
}

func (c *SQLCompiler) nextAlias() string {
	c.exists++
	return "e" + strconv.Itoa(c.exists)
}

// Quote returns name as a double-quoted SQLite identifier.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func table(name, alias string) string {
	return Quote(name) + " AS " + Quote(alias)
}

// field renders f qualified by its own source, or by scope when it has
// none. With neither the column is left unqualified.
func field(scope string, f queryir.Field) string {
	source := f.Source
	if source == "" {
		source = scope
	}
	if source == "" {
		return Quote(f.Name)
	}
	return Quote(source) + "." + Quote(f.Name)
}
