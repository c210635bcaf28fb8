package datastructure

import "fmt"

// Table. dense rows x cols table stored row-major in one slice.
// used for transition probabilities, dp tables of forward-backward/viterbi and training counts.
type Table[T any] struct {
	rows     int
	cols     int
	elements []T
}

func NewTable[T any](rows, cols int, fill T) *Table[T] {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("datastructure: invalid table dimensions %dx%d", rows, cols))
	}
	t := &Table[T]{
		rows:     rows,
		cols:     cols,
		elements: make([]T, rows*cols),
	}
	t.Fill(fill)
	return t
}

func (t *Table[T]) Rows() int {
	return t.rows
}

func (t *Table[T]) Cols() int {
	return t.cols
}

func (t *Table[T]) index(row, col int) int {
	if row < 0 || row >= t.rows || col < 0 || col >= t.cols {
		panic(fmt.Sprintf("datastructure: table index (%d, %d) out of range for %dx%d table", row, col, t.rows, t.cols))
	}
	return row*t.cols + col
}

func (t *Table[T]) At(row, col int) T {
	return t.elements[t.index(row, col)]
}

func (t *Table[T]) Set(row, col int, val T) {
	t.elements[t.index(row, col)] = val
}

// Row. return slice view of one row. writes go to the table.
func (t *Table[T]) Row(row int) []T {
	if row < 0 || row >= t.rows {
		panic(fmt.Sprintf("datastructure: table row %d out of range for %dx%d table", row, t.rows, t.cols))
	}
	return t.elements[row*t.cols : (row+1)*t.cols : (row+1)*t.cols]
}

// Map. replace every element with op(element).
func (t *Table[T]) Map(op func(T) T) {
	for i := range t.elements {
		t.elements[i] = op(t.elements[i])
	}
}

func (t *Table[T]) Fill(val T) {
	for i := range t.elements {
		t.elements[i] = val
	}
}
