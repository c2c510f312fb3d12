package storage

import "garage-scraper/models"

// SampleAppender is the interface any sample sink must satisfy. Append is the
// only mutation: nothing is ever updated or deleted.
type SampleAppender interface {
	Append(id models.StreamID, samples []models.Sample) error
	Close() error
}
