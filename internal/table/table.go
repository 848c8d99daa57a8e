// Package table holds tabular data in memory with ordered columns and
// string cells. It is the working representation between CSV input and CSV
// output: column renames, default fills and reordering all happen here,
// while numeric interpretation is left to the callers that need it.
package table

// Table is an ordered set of named columns over string rows. Every row has
// exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New creates an empty table with the given column order.
func New(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	return t.Index(name) >= 0
}

// Get returns the cell at (row, column name). Missing column yields "".
func (t *Table) Get(row int, name string) string {
	i := t.Index(name)
	if i < 0 {
		return ""
	}
	return t.Rows[row][i]
}

// Set writes the cell at (row, column name). Missing columns are ignored.
func (t *Table) Set(row int, name, value string) {
	if i := t.Index(name); i >= 0 {
		t.Rows[row][i] = value
	}
}

// Column returns a copy of the named column's cells, or nil if absent.
func (t *Table) Column(name string) []string {
	i := t.Index(name)
	if i < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// Append adds a row. Short rows are padded with empty cells, long rows
// truncated, so the table stays rectangular.
func (t *Table) Append(row []string) {
	cells := make([]string, len(t.Columns))
	copy(cells, row)
	t.Rows = append(t.Rows, cells)
}

// Rename renames columns according to the src→dst mapping. Sources that do
// not exist are ignored.
func (t *Table) Rename(mapping map[string]string) {
	for i, c := range t.Columns {
		if dst, ok := mapping[c]; ok {
			t.Columns[i] = dst
		}
	}
}

// AddColumn appends a new column filled with the given value. If the column
// already exists only its empty cells are filled.
func (t *Table) AddColumn(name, fill string) {
	if i := t.Index(name); i >= 0 {
		for _, row := range t.Rows {
			if row[i] == "" {
				row[i] = fill
			}
		}
		return
	}
	t.Columns = append(t.Columns, name)
	for r := range t.Rows {
		t.Rows[r] = append(t.Rows[r], fill)
	}
}

// DropColumns removes the named columns if present.
func (t *Table) DropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}

	keep := make([]int, 0, len(t.Columns))
	for i, c := range t.Columns {
		if !drop[c] {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(t.Columns) {
		return
	}

	cols := make([]string, len(keep))
	for j, i := range keep {
		cols[j] = t.Columns[i]
	}
	for r, row := range t.Rows {
		cells := make([]string, len(keep))
		for j, i := range keep {
			cells[j] = row[i]
		}
		t.Rows[r] = cells
	}
	t.Columns = cols
}

// Select returns a new table with exactly the given columns in the given
// order. Columns missing from the source are created empty.
func (t *Table) Select(order []string) *Table {
	idx := make([]int, len(order))
	for j, name := range order {
		idx[j] = t.Index(name)
	}

	out := New(order)
	out.Rows = make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		cells := make([]string, len(order))
		for j, i := range idx {
			if i >= 0 {
				cells[j] = row[i]
			}
		}
		out.Rows[r] = cells
	}
	return out
}
