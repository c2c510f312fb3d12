package models

import "sort"

// HourlyMean is the mean spaces left for one permit type within one hour of day.
type HourlyMean struct {
	Mean  float64
	Count int
}

// AggregationResult maps (permit type, hour) to the mean spaces left over one stream.
// Permit types with no valid samples have no entry.
type AggregationResult struct {
	Permits map[PermitType]map[int]HourlyMean
	Used    int
	Dropped int
}

// Mean returns the hourly mean for p at hour, if any sample fell there.
func (r *AggregationResult) Mean(p PermitType, hour int) (float64, bool) {
	hours, ok := r.Permits[p]
	if !ok {
		return 0, false
	}
	hm, ok := hours[hour]
	return hm.Mean, ok
}

// PermitTypes returns the permit types present, in vocabulary order.
func (r *AggregationResult) PermitTypes() []PermitType {
	var out []PermitType
	for _, p := range PermitTypes {
		if _, ok := r.Permits[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Hours returns the hours that have data for p, ascending.
func (r *AggregationResult) Hours(p PermitType) []int {
	hours := make([]int, 0, len(r.Permits[p]))
	for h := range r.Permits[p] {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours
}
