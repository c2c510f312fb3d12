package models

// CellKind is the semantic class of a table cell.
type CellKind int

const (
	CellCount CellKind = iota
	CellLabel
)

func (k CellKind) String() string {
	if k == CellLabel {
		return "label"
	}
	return "count"
}

// RawCell is one classified cell, text untouched.
type RawCell struct {
	Kind CellKind
	Text string
}

// RawRow holds the classified cells of one table row in document order.
type RawRow struct {
	Cells []RawCell
}

// RawTable holds one garage's parking table as scraped, before normalization.
// Index is the 1-based position of the table in the document.
type RawTable struct {
	Index int
	Rows  []RawRow
}
