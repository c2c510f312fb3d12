// Package garages fetches the campus garage status page and pulls the
// per-garage parking tables out of it.
package garages

// garageIDs maps a parking table's 1-based position on the status page to the
// garage number campus transit uses for it. There is no garage 2 on the page.
var garageIDs = map[int]int{
	1: 1,
	2: 3,
	3: 4,
}

// GarageID returns the garage number for the table at index. Positions past
// the lookup table keep their own number.
func GarageID(index int) int {
	if id, ok := garageIDs[index]; ok {
		return id
	}
	return index
}
