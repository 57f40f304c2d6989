// Package vgrid renders a grid one window of rows at a time. Clients reveal the
// next window by requesting NextOffset, so only rows scrolled into view are built.
package vgrid

const (
	// DefaultWindow is the number of rows rendered per request.
	DefaultWindow = 12
	// MaxColumns is the widest layout the grid supports.
	MaxColumns = 3
)

// Grid describes the visible slice of a grid with RowCount rows.
type Grid struct {
	RowCount int
	Columns  int
	Offset   int
	Window   int
}

// Window is a rendered slice of rows.
type Window[T any] struct {
	Items      []T
	Columns    int
	Offset     int
	NextOffset int
	HasMore    bool
}

// New clamps the inputs: columns to 1..MaxColumns, offset to 0..rowCount and a
// non-positive window to DefaultWindow.
func New(rowCount, columns, offset, window int) Grid {
	if rowCount < 0 {
		rowCount = 0
	}
	if columns < 1 {
		columns = 1
	} else if columns > MaxColumns {
		columns = MaxColumns
	}
	if offset < 0 {
		offset = 0
	} else if offset > rowCount {
		offset = rowCount
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return Grid{RowCount: rowCount, Columns: columns, Offset: offset, Window: window}
}

// Render calls renderRow for every index of the visible window, in order, and
// stops at the first error.
func Render[T any](g Grid, renderRow func(index, columns int) (T, error)) (Window[T], error) {
	end := g.Offset + g.Window
	if end > g.RowCount {
		end = g.RowCount
	}
	w := Window[T]{
		Items:      make([]T, 0, end-g.Offset),
		Columns:    g.Columns,
		Offset:     g.Offset,
		NextOffset: end,
		HasMore:    end < g.RowCount,
	}
	for i := g.Offset; i < end; i++ {
		item, err := renderRow(i, g.Columns)
		if err != nil {
			return Window[T]{}, err
		}
		w.Items = append(w.Items, item)
	}
	return w, nil
}
