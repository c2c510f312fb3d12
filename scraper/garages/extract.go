package garages

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"

	"garage-scraper/models"
)

// TableSelector matches the per-garage availability tables.
const TableSelector = "table.parking"

const countClass = "rightalign"

var labelClasses = []string{
	"parking_gold",
	"parking_orange",
	"parking_purple",
	"parking_pay_by_space",
}

// Extract parses an HTML document and returns one RawTable per parking table,
// in document order. Structurally odd tables and rows come back empty rather
// than failing; only unreadable input is an error.
func Extract(r io.Reader) ([]models.RawTable, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("extract: parse html: %w", err)
	}
	return ExtractDocument(doc), nil
}

// ExtractDocument is Extract over an already parsed document.
func ExtractDocument(doc *goquery.Document) []models.RawTable {
	tables := make([]models.RawTable, 0)

	doc.Find(TableSelector).Each(func(i int, table *goquery.Selection) {
		raw := models.RawTable{Index: i + 1, Rows: make([]models.RawRow, 0)}

		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			row := models.RawRow{Cells: make([]models.RawCell, 0)}
			tr.Find("td").Each(func(_ int, td *goquery.Selection) {
				kind, ok := classify(td)
				if !ok {
					return
				}
				row.Cells = append(row.Cells, models.RawCell{Kind: kind, Text: td.Text()})
			})
			raw.Rows = append(raw.Rows, row)
		})

		tables = append(tables, raw)
	})

	return tables
}

// classify tags a cell as a permit label or a plain count. A permit class wins
// over rightalign when a cell carries both.
func classify(td *goquery.Selection) (models.CellKind, bool) {
	for _, class := range labelClasses {
		if td.HasClass(class) {
			return models.CellLabel, true
		}
	}
	if td.HasClass(countClass) {
		return models.CellCount, true
	}
	return 0, false
}
