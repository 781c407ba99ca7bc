package sim

import (
	"fmt"
	"time"
)

// Epoch is the simulation time origin. All simulation timestamps are hours
// since this instant, exchanged as float64 inside the engine and as ISO-8601
// strings at the boundary.
var Epoch = time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)

// ToWallClock converts a simulation timestamp (hours since Epoch) to a
// wall-clock instant.
func ToWallClock(hours float64) time.Time {
	return Epoch.Add(time.Duration(hours * float64(time.Hour)))
}

// FromWallClock converts a wall-clock instant to hours since Epoch.
func FromWallClock(t time.Time) float64 {
	return t.Sub(Epoch).Hours()
}

// ToISO renders a simulation timestamp as an ISO-8601 string, second
// fractions included only when non-zero.
func ToISO(hours float64) string {
	return ToWallClock(hours).Format("2006-01-02T15:04:05.999999999")
}

// isoLayouts lists the accepted boundary timestamp formats. The workflow
// engine sends zone-less ISO-8601; RFC 3339 is accepted for tooling.
var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
}

// FromISO parses an ISO-8601 timestamp into hours since Epoch. A parse
// failure wraps ErrMalformedTimestamp.
func FromISO(s string) (float64, error) {
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return FromWallClock(t), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
}
