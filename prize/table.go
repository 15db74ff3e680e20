package prize

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// =============================================================================
// TABLE - Uploaded performance data
// =============================================================================

// Row maps column names to raw cell values (string, number or nil).
type Row map[string]any

// Value returns the raw cell for column, or nil if the row lacks it.
func (r Row) Value(column string) any {
	if column == "" || r == nil {
		return nil
	}
	return r[column]
}

// Table is one uploaded sheet. Tables are immutable once stored: the
// upload workflow replaces a table wholesale rather than editing rows, which
// is what lets Find cache its per-column index on the table itself.
type Table struct {
	Name       string
	Columns    []string
	Rows       []Row
	UploadedAt time.Time

	indexes *xsync.Map[string, map[string][]int]
}

// NewTable builds a table. Rows are used as given and must not be modified afterwards.
func NewTable(name string, columns []string, rows []Row) *Table {
	return &Table{
		Name:    name,
		Columns: columns,
		Rows:    rows,
		indexes: xsync.NewMap[string, map[string][]int](),
	}
}

// HasColumn reports whether the table has a column with this exact name.
func (t *Table) HasColumn(name string) bool {
	if t == nil || name == "" {
		return false
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Find returns the rows whose canonical value in column equals the
// canonical code, in table order.
func (t *Table) Find(column string, code any) []Row {
	canonical := Normalize(code)
	if canonical == "" || !t.HasColumn(column) {
		return nil
	}
	positions := t.index(column)[canonical]
	out := make([]Row, len(positions))
	for i, p := range positions {
		out[i] = t.Rows[p]
	}
	return out
}

// First returns the first row Find would return.
func (t *Table) First(column string, code any) (Row, bool) {
	canonical := Normalize(code)
	if canonical == "" || !t.HasColumn(column) {
		return nil, false
	}
	positions := t.index(column)[canonical]
	if len(positions) == 0 {
		return nil, false
	}
	return t.Rows[positions[0]], true
}

// FindManaged returns the rows whose manager cell matches code under mode,
// and how many of them matched only by containment.
func (t *Table) FindManaged(column string, code any, mode MatchMode) (rows []Row, relaxed int) {
	if !t.HasColumn(column) {
		return nil, 0
	}
	if mode == MatchExact {
		return t.Find(column, code), 0
	}
	for _, row := range t.Rows {
		ok, loose := ManagerMatch(mode, row.Value(column), code)
		if !ok {
			continue
		}
		if loose {
			relaxed++
		}
		rows = append(rows, row)
	}
	return rows, relaxed
}

// index maps canonical cell values to row positions, built once per column.
func (t *Table) index(column string) map[string][]int {
	if t.indexes == nil {
		// Tables built as literals (tests) have no cache; index on demand.
		return t.buildIndex(column)
	}
	idx, _ := t.indexes.Compute(column, func(old map[string][]int, loaded bool) (map[string][]int, xsync.ComputeOp) {
		if loaded {
			return old, xsync.UpdateOp
		}
		return t.buildIndex(column), xsync.UpdateOp
	})
	return idx
}

func (t *Table) buildIndex(column string) map[string][]int {
	idx := make(map[string][]int)
	for i, row := range t.Rows {
		key := Normalize(row.Value(column))
		if key == "" {
			continue
		}
		idx[key] = append(idx[key], i)
	}
	return idx
}

// =============================================================================
// TABLE SOURCE - Tabular data store boundary
// =============================================================================

// TableSource yields uploaded tables by name.
// A missing table is (nil, nil); an error means the store itself failed.
type TableSource interface {
	Table(ctx context.Context, name string) (*Table, error)
}

// TableInfo summarizes a stored table for listings.
type TableInfo struct {
	Name       string
	Columns    []string
	Rows       int
	UploadedAt time.Time
}

// TableStore is a TableSource that uploads can be written to.
// DeleteTable returns ErrTableNotFound for unknown names.
type TableStore interface {
	TableSource
	SaveTable(ctx context.Context, t *Table) error
	DeleteTable(ctx context.Context, name string) error
	ListTables(ctx context.Context) ([]TableInfo, error)
}

// Info summarizes t.
func (t *Table) Info() TableInfo {
	return TableInfo{Name: t.Name, Columns: t.Columns, Rows: len(t.Rows), UploadedAt: t.UploadedAt}
}
