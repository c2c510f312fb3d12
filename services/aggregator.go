package services

import (
	"gonum.org/v1/gonum/stat"

	"garage-scraper/models"
)

type groupKey struct {
	permit models.PermitType
	hour   int
}

// Aggregate groups the valid samples of one stream by (permit type, hour) and
// averages spaces left in each group. Samples with a non-numeric count or a
// permit label outside the vocabulary are left out entirely. The result
// depends only on the multiset of samples, not their order.
func Aggregate(samples []models.Sample) *models.AggregationResult {
	result := &models.AggregationResult{
		Permits: make(map[models.PermitType]map[int]models.HourlyMean),
	}

	groups := make(map[groupKey][]float64)
	for _, s := range samples {
		permit, ok := models.LookupPermit(s.PermitType)
		if !ok {
			result.Dropped++
			continue
		}
		spaces, ok := s.Spaces()
		if !ok {
			result.Dropped++
			continue
		}

		key := groupKey{permit: permit, hour: s.Hour}
		groups[key] = append(groups[key], float64(spaces))
		result.Used++
	}

	for key, values := range groups {
		hours, ok := result.Permits[key.permit]
		if !ok {
			hours = make(map[int]models.HourlyMean)
			result.Permits[key.permit] = hours
		}
		hours[key.hour] = models.HourlyMean{
			Mean:  stat.Mean(values, nil),
			Count: len(values),
		}
	}

	return result
}
