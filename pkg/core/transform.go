package core

// Expr is a scalar expression used in transform projections, predicates
// and orderings.
type Expr interface {
	exprNode()
}

// Ref references a column of a relation in a transform by alias.
type Ref struct {
	Alias  string
	Column string
}

// EpochMillis converts a millisecond Unix epoch into a timestamp,
// keeping sub-second precision.
type EpochMillis struct {
	Arg Expr
}

// DateField is a calendar field that can be extracted from a timestamp.
type DateField string

// Calendar fields.
const (
	FieldHour    DateField = "HOUR"
	FieldDay     DateField = "DAY"
	FieldWeek    DateField = "WEEK"
	FieldMonth   DateField = "MONTH"
	FieldYear    DateField = "YEAR"
	FieldWeekday DateField = "DOW"
)

// Extract pulls a calendar field out of a timestamp expression.
type Extract struct {
	Field DateField
	Arg   Expr
}

func (Ref) exprNode()         {}
func (EpochMillis) exprNode() {}
func (Extract) exprNode()     {}

// Predicate is a boolean filter condition. Predicates in a list are ANDed.
type Predicate interface {
	predicateNode()
}

// Equals compares an expression with a string literal.
type Equals struct {
	Left  Expr
	Value string
}

// Present requires a column to be non-null, and non-empty for text columns.
type Present struct {
	Arg Ref
}

func (Equals) predicateNode()  {}
func (Present) predicateNode() {}

// Relation is a table bound to an alias.
type Relation struct {
	Table string
	Alias string
}

// JoinKind selects the join type.
type JoinKind string

// Join kinds.
const (
	JoinInner JoinKind = "INNER"
	JoinLeft  JoinKind = "LEFT"
)

// JoinOn is one equality condition of a join. Conditions are ANDed.
type JoinOn struct {
	Left  Ref
	Right Ref
}

// Join attaches another relation to a transform's source.
type Join struct {
	Kind     JoinKind
	Relation Relation
	On       []JoinOn
}

// Projection populates one target column.
type Projection struct {
	Column string
	Expr   Expr
}

// Order is one ordering term.
type Order struct {
	Expr Expr
	Desc bool
}

// Dedupe keeps one row per key. Prefer orders the candidates for a key;
// the first row wins. With no Prefer terms the surviving row is arbitrary.
type Dedupe struct {
	Key    []Expr
	Prefer []Order
}

// Transform describes a set-based INSERT ... SELECT from staging data into
// a dimensional table.
type Transform struct {
	// Name identifies the rule in plans and progress output.
	Name   string
	Target string

	From  Relation
	Joins []Join
	Where []Predicate

	Select []Projection

	// Distinct removes duplicate projected rows.
	Distinct bool

	// Dedupe, when set, keeps a single row per key instead.
	Dedupe *Dedupe
}

// Columns returns the target column names in projection order.
func (t *Transform) Columns() []string {
	cols := make([]string, len(t.Select))
	for i, p := range t.Select {
		cols[i] = p.Column
	}
	return cols
}

// Relations returns the source relations keyed by alias.
func (t *Transform) Relations() map[string]Relation {
	rels := map[string]Relation{t.From.Alias: t.From}
	for _, j := range t.Joins {
		rels[j.Relation.Alias] = j.Relation
	}
	return rels
}
