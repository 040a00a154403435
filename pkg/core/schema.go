package core

// ColumnType is the semantic type of a column, mapped to a concrete
// type name by each dialect.
type ColumnType int

// Semantic column types.
const (
	TypeString ColumnType = iota
	TypeChar
	TypeFloat
	TypeInteger
	TypeBigInt
	TypeTimestamp
)

// String returns the lower-case name of the type.
func (t ColumnType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeChar:
		return "char"
	case TypeFloat:
		return "float"
	case TypeInteger:
		return "integer"
	case TypeBigInt:
		return "bigint"
	case TypeTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// IsText reports whether values of the type are character data.
func (t ColumnType) IsText() bool {
	return t == TypeString || t == TypeChar
}

// IsWhole reports whether values of the type are integers.
func (t ColumnType) IsWhole() bool {
	return t == TypeInteger || t == TypeBigInt
}

// TableKind classifies a table within the warehouse layout.
type TableKind string

// Table kinds.
const (
	KindStaging   TableKind = "staging"
	KindFact      TableKind = "fact"
	KindDimension TableKind = "dimension"
)

// DistStyle is a row distribution hint for distributed warehouses.
// The empty value leaves distribution to the backend default.
type DistStyle string

// Distribution styles.
const (
	DistDefault DistStyle = ""
	DistAuto    DistStyle = "AUTO"
	DistEven    DistStyle = "EVEN"
	DistAll     DistStyle = "ALL"
)

// ColumnDef declares a single column of a table.
type ColumnDef struct {
	Name string
	Type ColumnType

	// Length applies to TypeString and TypeChar; zero means the dialect default.
	Length int

	NotNull    bool
	PrimaryKey bool

	// Identity marks an auto-incrementing surrogate key.
	Identity bool

	// SortKey marks the column rows are physically ordered by.
	SortKey bool
}

// TableDef declares a table: its columns and physical layout hints.
type TableDef struct {
	Name      string
	Kind      TableKind
	Columns   []ColumnDef
	DistStyle DistStyle
}

// Column returns the named column.
func (t *TableDef) Column(name string) (ColumnDef, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// ColumnNames returns the column names in declaration order.
func (t *TableDef) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// PrimaryKey returns the primary key column name, or "" if there is none.
func (t *TableDef) PrimaryKey() string {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c.Name
		}
	}
	return ""
}

// SortKey returns the sort key column name, or "" if there is none.
func (t *TableDef) SortKey() string {
	for _, c := range t.Columns {
		if c.SortKey {
			return c.Name
		}
	}
	return ""
}

// SchemaLookup resolves a table name to its definition.
type SchemaLookup interface {
	Lookup(name string) (*TableDef, bool)
}
