package services

import (
	"time"

	"garage-scraper/models"
	"garage-scraper/utils"
)

// Normalizer turns classified table rows into Samples.
type Normalizer struct {
	logger        *utils.Logger
	keepUnlabeled bool
}

// NewNormalizer creates a Normalizer. keepUnlabeled decides what happens to a
// count cell that shows up before any permit label in its row: kept with an
// empty permit type, or dropped.
func NewNormalizer(logger *utils.Logger, keepUnlabeled bool) *Normalizer {
	return &Normalizer{logger: logger, keepUnlabeled: keepUnlabeled}
}

// rowAccumulator is the left-to-right scan state for one row.
type rowAccumulator struct {
	label   string
	labeled bool
	samples []models.Sample
}

// NormalizeTable normalizes every row of table. It returns the samples and the
// number of count cells that were dropped.
func (n *Normalizer) NormalizeTable(table models.RawTable, capturedAt time.Time) ([]models.Sample, int) {
	var (
		samples []models.Sample
		dropped int
	)
	for _, row := range table.Rows {
		rowSamples, rowDropped := n.NormalizeRow(row, capturedAt)
		samples = append(samples, rowSamples...)
		dropped += rowDropped
	}

	if dropped > 0 {
		n.logger.Debug("[normalizer] Table %d: dropped %d unlabeled counts", table.Index, dropped)
	}
	return samples, dropped
}

// NormalizeRow emits one Sample per count cell, tagged with the most recent
// label cell to its left. Rows with labels only emit nothing. Cell text is
// stored exactly as extracted; readers trim and fold when they interpret it.
func (n *Normalizer) NormalizeRow(row models.RawRow, capturedAt time.Time) ([]models.Sample, int) {
	acc := rowAccumulator{}
	dropped := 0

	for _, cell := range row.Cells {
		switch cell.Kind {
		case models.CellLabel:
			acc.label = cell.Text
			acc.labeled = true
		case models.CellCount:
			if !acc.labeled && !n.keepUnlabeled {
				dropped++
				continue
			}
			acc.samples = append(acc.samples, models.NewSample(capturedAt, acc.label, cell.Text))
		}
	}

	return acc.samples, dropped
}
