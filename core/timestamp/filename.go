package timestamp

import (
	"regexp"
	"time"

	"mediatag/model"
)

// filenamePattern matches a 4-digit year 2000-2099 followed by month and
// day, optionally followed by a 6-digit time, with common separators in
// between: IMG_20240101_120000.jpg, 2024-01-01.mp4, VID20240101120000.mov.
var filenamePattern = regexp.MustCompile(`(20\d{2})[-_.]?(\d{2})[-_.]?(\d{2})(?:[-_. T]?(\d{2})(\d{2})(\d{2}))?`)

// fromFilename extracts a naive wall-clock timestamp from a date pattern
// embedded in the filename.
func fromFilename(filename string) (model.TimestampRecord, bool) {
	m := filenamePattern.FindStringSubmatch(filename)
	if m == nil {
		return model.TimestampRecord{}, false
	}

	year := atoi(m[1])
	month := atoi(m[2])
	day := atoi(m[3])
	hour, minute, second := 0, 0, 0
	if m[4] != "" {
		hour = atoi(m[4])
		minute = atoi(m[5])
		second = atoi(m[6])
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return model.TimestampRecord{}, false
	}
	if hour > 23 || minute > 59 || second > 59 {
		return model.TimestampRecord{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	// Reject dates the calendar normalized away, e.g. 20240231.
	if t.Month() != time.Month(month) || t.Day() != day {
		return model.TimestampRecord{}, false
	}

	return model.TimestampRecord{
		UTCEpoch:  float64(t.Unix()),
		WallClock: t.Format(model.WallClockLayout),
		Source:    model.SourceFilenamePattern,
	}, true
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
