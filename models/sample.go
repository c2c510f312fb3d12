package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date used in the Date column of a stream.
const DateLayout = "2006-01-02"

// Sample is one observation of spaces left for one permit type.
// SpacesLeft keeps the page text verbatim; use Spaces to read it as a count.
type Sample struct {
	Date       time.Time
	Hour       int
	Minute     int
	PermitType string
	SpacesLeft string
}

// NewSample stamps date, hour and minute from the capture time.
func NewSample(capturedAt time.Time, permitType, spacesLeft string) Sample {
	y, m, d := capturedAt.Date()
	return Sample{
		Date:       time.Date(y, m, d, 0, 0, 0, 0, capturedAt.Location()),
		Hour:       capturedAt.Hour(),
		Minute:     capturedAt.Minute(),
		PermitType: permitType,
		SpacesLeft: spacesLeft,
	}
}

// Spaces parses SpacesLeft as a non-negative count.
func (s Sample) Spaces() (int, bool) {
	text := strings.ReplaceAll(strings.TrimSpace(s.SpacesLeft), ",", "")
	n, err := strconv.Atoi(text)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// StreamID identifies one append-only stream: a weekday and a garage.
type StreamID struct {
	Weekday string
	Garage  int
}

func (id StreamID) String() string {
	return fmt.Sprintf("%s_Garage_%d", id.Weekday, id.Garage)
}

// FileName is the CSV file backing the stream.
func (id StreamID) FileName() string {
	return id.String() + ".csv"
}

// ChartName is the rendered trend chart for the stream.
func (id StreamID) ChartName() string {
	return id.String() + "_parking_spaces_graph.png"
}

var streamFileRegexp = regexp.MustCompile(`^([A-Za-z]+)_Garage_(\d+)\.csv$`)

// ParseStreamFileName is the inverse of FileName.
func ParseStreamFileName(name string) (StreamID, bool) {
	m := streamFileRegexp.FindStringSubmatch(name)
	if m == nil {
		return StreamID{}, false
	}
	garage, err := strconv.Atoi(m[2])
	if err != nil {
		return StreamID{}, false
	}
	return StreamID{Weekday: m[1], Garage: garage}, true
}
