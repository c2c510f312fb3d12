package garages

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"garage-scraper/models"
)

func TestExtractFixture(t *testing.T) {
	f, err := os.Open("testdata/status.html")
	require.NoError(t, err)
	defer f.Close()

	tables, err := Extract(f)
	require.NoError(t, err)
	require.Len(t, tables, 3, "the schedule table is not a parking table")

	for i, table := range tables {
		require.Equal(t, i+1, table.Index)
	}

	// header row has only <th> cells and comes back empty
	require.Len(t, tables[0].Rows, 3)
	require.Empty(t, tables[0].Rows[0].Cells)
	require.Equal(t, []models.RawCell{
		{Kind: models.CellLabel, Text: "Gold Permit"},
		{Kind: models.CellCount, Text: "12"},
	}, tables[0].Rows[1].Cells)

	require.Equal(t, []models.RawCell{
		{Kind: models.CellLabel, Text: "Pay-By-Space"},
		{Kind: models.CellCount, Text: "31"},
		{Kind: models.CellLabel, Text: "Gold Permit"},
		{Kind: models.CellCount, Text: "7"},
	}, tables[2].Rows[0].Cells)
}

func TestExtractPreservesTableCountAndOrder(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 7; i++ {
		b.WriteString(`<table class="parking"><tr><td class="rightalign">`)
		b.WriteString(string(rune('a' + i)))
		b.WriteString("</td></tr></table>")
	}
	b.WriteString("</body></html>")

	tables, err := Extract(strings.NewReader(b.String()))
	require.NoError(t, err)
	require.Len(t, tables, 7)
	for i, table := range tables {
		require.Equal(t, string(rune('a'+i)), table.Rows[0].Cells[0].Text)
	}
}

func TestExtractOddInput(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		tables int
	}{
		{"empty document", "", 0},
		{"no parking tables", "<p>closed for maintenance</p>", 0},
		{"empty parking table", `<table class="parking"></table>`, 1},
		{"unclosed tags", `<table class="parking"><tr><td class="rightalign">3`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables, err := Extract(strings.NewReader(tt.html))
			require.NoError(t, err)
			require.NotNil(t, tables)
			require.Len(t, tables, tt.tables)
			for _, table := range tables {
				require.NotNil(t, table.Rows)
			}
		})
	}
}

func TestClassifyLabelWinsOverCount(t *testing.T) {
	html := `<table class="parking"><tr><td class="rightalign parking_orange">Orange Permit</td><td class="other">x</td></tr></table>`
	tables, err := Extract(strings.NewReader(html))
	require.NoError(t, err)
	require.Equal(t, []models.RawCell{{Kind: models.CellLabel, Text: "Orange Permit"}}, tables[0].Rows[0].Cells)
}

func TestGarageID(t *testing.T) {
	require.Equal(t, 1, GarageID(1))
	require.Equal(t, 3, GarageID(2))
	require.Equal(t, 4, GarageID(3))
	require.Equal(t, 5, GarageID(5))
}
