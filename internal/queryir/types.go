package queryir

// Query represents a read in the QueryIR.
//
// This is a sealed interface - only types in this package implement it.
//
// Query types:
//   - Select: rows of one table with optional joins, filter, order, paging
//   - Count: number of rows of one table matching a filter
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Statement represents a write in the QueryIR.
//
// Statement types:
//   - Insert: one row
//   - Update: assignments on rows matching a filter
//   - Delete: rows matching a filter
type Statement interface {
	statementNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition in the QueryIR.
//
// Predicate types:
//   - Equals, Compare: field against a literal
//   - IsNull: field IS NULL
//   - In: field IN (values); an empty list never matches
//   - Like: case-insensitive pattern match
//   - And, Or, Not: logical composition
//   - Exists: correlated sub query over a related table
//   - False: never matches
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Field references a column. Source is a table alias declared by a Join;
// empty means the table the predicate is evaluated against.
type Field struct {
	Source string
	Name   string
}

// F returns a Field on the current table.
func F(name string) Field {
	return Field{Name: name}
}

// On returns a Field on the joined table with the given alias.
func On(source, name string) Field {
	return Field{Source: source, Name: name}
}

// Column is a projected column. As renames it in the result set.
type Column struct {
	Field Field
	As    string
}

// Key returns the result-set name of the column.
func (c Column) Key() string {
	if c.As != "" {
		return c.As
	}
	return c.Field.Name
}

// Columns projects the named fields of the current table.
func Columns(names ...string) []Column {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Field: F(n)}
	}
	return cols
}

// JoinKind selects inner or outer join semantics.
type JoinKind string

const (
	InnerJoin JoinKind = "INNER"
	LeftJoin  JoinKind = "LEFT"
)

// Join attaches Table under Alias, matching Alias.Key against Parent.
//
// Semantics:
//
//	<kind> JOIN <table> AS <alias> ON <alias>.<key> = <parent>
type Join struct {
	Kind   JoinKind
	Table  string
	Alias  string
	Key    string
	Parent Field
}

// OrderTerm sorts by Field.
type OrderTerm struct {
	Field Field
	Desc  bool
}

// Select reads rows from one table.
//
// Semantics:
//
//	SELECT <columns> FROM <from> <joins> WHERE <filter>
//	ORDER BY <order> LIMIT <limit> OFFSET <offset>
//
// Limit <= 0 means no limit.
type Select struct {
	From    string
	Columns []Column
	Joins   []Join
	Filter  Predicate // nil = no filter
	Order   []OrderTerm
	Limit   int
	Offset  int
}

func (Select) queryNode() {}

// Count counts rows of one table matching Filter.
type Count struct {
	From   string
	Filter Predicate
}

func (Count) queryNode() {}

// Insert writes one row. Columns and Values are parallel.
type Insert struct {
	Table   string
	Columns []string
	Values  []any
}

func (Insert) statementNode() {}

// Assignment sets Column to Value.
type Assignment struct {
	Column string
	Value  any
}

// Update assigns Set on every row matching Filter.
// A nil Filter is rejected by the SQL backend.
type Update struct {
	Table  string
	Set    []Assignment
	Filter Predicate
}

func (Update) statementNode() {}

// Delete removes every row matching Filter.
// A nil Filter is rejected by the SQL backend.
type Delete struct {
	Table  string
	Filter Predicate
}

func (Delete) statementNode() {}

// Equals represents a field-equals-literal predicate.
//
//	<field> = <value>
type Equals struct {
	Field Field
	Value any
}

func (Equals) predicateNode() {}

// CompareOp is a comparison operator for Compare.
type CompareOp string

const (
	OpNotEqual     CompareOp = "<>"
	OpLess         CompareOp = "<"
	OpLessEqual    CompareOp = "<="
	OpGreater      CompareOp = ">"
	OpGreaterEqual CompareOp = ">="
)

// Compare represents a field-op-literal predicate.
//
//	<field> <op> <value>
type Compare struct {
	Field Field
	Op    CompareOp
	Value any
}

func (Compare) predicateNode() {}

// IsNull matches rows where the field is NULL.
type IsNull struct {
	Field Field
}

func (IsNull) predicateNode() {}

// In matches rows whose field equals one of Values.
// An empty Values list matches nothing.
type In struct {
	Field  Field
	Values []any
}

func (In) predicateNode() {}

// Like matches rows whose lower-cased field matches Pattern. Pattern is
// expected to be lower-cased already; "\" escapes "%" and "_".
//
//	LOWER(<field>) LIKE <pattern> ESCAPE '\'
type Like struct {
	Field   Field
	Pattern string
}

func (Like) predicateNode() {}

// And represents a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or represents a disjunction. An empty Or is always false.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Not negates a predicate.
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}

// False never matches.
type False struct{}

func (False) predicateNode() {}

// Link correlates the inner table of an Exists with the outer row.
//
// Without a Through table the semantics are:
//
//	<inner>.<Key> = <outer>.<Parent>
//
// With a Through table (many-to-many):
//
//	<through>.<ThroughKey> = <outer>.<Parent> AND <through>.<ThroughOther> = <inner>.<Key>
type Link struct {
	Key          string
	Parent       string
	Through      string
	ThroughKey   string
	ThroughOther string
}

// Exists matches outer rows that have at least one related row in Table
// satisfying Filter. Fields in Filter are scoped to Table.
type Exists struct {
	Table  string
	Link   Link
	Filter Predicate
}

func (Exists) predicateNode() {}

// AndOf combines non-nil predicates. It returns nil for none and the
// predicate itself for one.
func AndOf(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}

// Through describes the join table of a many-to-many Include.
type Through struct {
	Table string

	// ParentKey on the through row matches the parent row's ParentKey.
	ParentKey string

	// ChildKey on the through row matches the child row's ChildKey.
	ChildKey string
}

// Include is one node of the related-row tree of a Plan.
//
// Child rows are those whose ChildKey equals the parent row's ParentKey
// (through the Through table when set) and that satisfy Filter. Many
// attaches a list; otherwise the first match or nil is attached. Hidden
// lists key columns fetched only for linking; they are removed from the
// attached rows.
type Include struct {
	Alias     string
	Table     string
	Columns   []string
	Hidden    []string
	Filter    Predicate
	Required  bool
	Many      bool
	ParentKey string
	ChildKey  string
	Through   *Through
	Order     []OrderTerm
	Includes  []Include
}

// Plan is a complete read: the root Select and its includes.
//
// Hidden lists columns selected only to attach includes; they are removed
// from the returned rows.
type Plan struct {
	Select   Select
	Includes []Include
	Hidden   []string
}
