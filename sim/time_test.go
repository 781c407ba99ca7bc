package sim

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestToWallClock_Zero_IsEpoch(t *testing.T) {
	// GIVEN the zero simulation timestamp
	// WHEN it is converted to wall-clock time
	got := ToWallClock(0)

	// THEN it is exactly the epoch
	want := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ToWallClock(0) = %v, want %v", got, want)
	}
}

func TestTimeConversion_RoundTrip(t *testing.T) {
	// GIVEN a set of simulation timestamps including fractional hours
	for _, hours := range []float64{0, 1, 1.5, 24, 168.25, 1234.567891} {
		// WHEN converted to ISO text and back
		iso := ToISO(hours)
		got, err := FromISO(iso)

		// THEN the round trip stays within a microsecond-scale tolerance
		if err != nil {
			t.Fatalf("FromISO(%q): %v", iso, err)
		}
		if math.Abs(got-hours) > 1e-6 {
			t.Errorf("round trip of %v via %q: got %v, drift %g", hours, iso, got, got-hours)
		}
	}
}

func TestFromISO_AcceptsZuluSuffix(t *testing.T) {
	// GIVEN an RFC3339 timestamp with explicit UTC marker
	got, err := FromISO("2018-01-02T00:00:00Z")
	if err != nil {
		t.Fatalf("FromISO: %v", err)
	}

	// THEN it parses to 24 hours past the epoch
	if math.Abs(got-24) > 1e-9 {
		t.Errorf("got %v, want 24", got)
	}
}

func TestFromISO_Malformed_ReturnsTypedError(t *testing.T) {
	// GIVEN unparseable timestamp text
	for _, s := range []string{"", "yesterday", "2018-13-40T99:00:00"} {
		// WHEN parsing is attempted
		_, err := FromISO(s)

		// THEN the malformed-timestamp sentinel is returned
		if !errors.Is(err, ErrMalformedTimestamp) {
			t.Errorf("FromISO(%q): got %v, want ErrMalformedTimestamp", s, err)
		}
	}
}
