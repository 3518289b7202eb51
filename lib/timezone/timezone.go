package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
}

// the court portal renders and filters every date in its own local time,
// so all date math has to happen in that zone regardless of where the
// harvester is deployed
func Now() time.Time {
	return time.Now().In(Location)
}

// Midnight truncates t to the start of its day in the court's timezone.
func Midnight(t time.Time) time.Time {
	t = t.In(Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Location)
}
