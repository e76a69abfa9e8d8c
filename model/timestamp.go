package model

import (
	"fmt"
	"time"
)

// WallClockLayout is the canonical formatting of a device-local calendar
// time, independent of any timezone offset.
const WallClockLayout = "2006/01/02 15:04:05"

// FarFutureEpoch is assigned when no timestamp source resolves, so the item
// sorts to the end of the catalog instead of corrupting the front of a
// legitimate chronological sequence. Midnight 10000-01-01 UTC.
const FarFutureEpoch float64 = 253402300800

// TimestampSource identifies where a resolved capture instant came from.
type TimestampSource string

const (
	SourceDeviceMetadata       TimestampSource = "device_metadata"
	SourceGenericVideoMetadata TimestampSource = "generic_video_metadata"
	SourceFilenamePattern      TimestampSource = "filename_pattern"
	SourceFilesystem           TimestampSource = "filesystem"
	SourceManual               TimestampSource = "manual"
)

// Offset is a signed UTC offset in minutes east of UTC.
type Offset int

// ParseOffset parses "+07:00", "-0430" or "Z" style offset strings.
func ParseOffset(s string) (Offset, error) {
	if s == "Z" || s == "z" {
		return 0, nil
	}
	if len(s) < 3 {
		return 0, fmt.Errorf("offset too short: %q", s)
	}
	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("offset missing sign: %q", s)
	}
	rest := s[1:]
	var hh, mm int
	switch len(rest) {
	case 5: // hh:mm
		if _, err := fmt.Sscanf(rest, "%2d:%2d", &hh, &mm); err != nil {
			return 0, fmt.Errorf("malformed offset %q: %w", s, err)
		}
	case 4: // hhmm
		if _, err := fmt.Sscanf(rest, "%2d%2d", &hh, &mm); err != nil {
			return 0, fmt.Errorf("malformed offset %q: %w", s, err)
		}
	case 2: // hh
		if _, err := fmt.Sscanf(rest, "%2d", &hh); err != nil {
			return 0, fmt.Errorf("malformed offset %q: %w", s, err)
		}
	default:
		return 0, fmt.Errorf("malformed offset %q", s)
	}
	if hh > 14 || mm > 59 {
		return 0, fmt.Errorf("offset out of range: %q", s)
	}
	return Offset(sign * (hh*60 + mm)), nil
}

// String formats the offset as "+07:00".
func (o Offset) String() string {
	mins := int(o)
	sign := "+"
	if mins < 0 {
		sign = "-"
		mins = -mins
	}
	return fmt.Sprintf("%s%02d:%02d", sign, mins/60, mins%60)
}

// Seconds returns the offset in seconds east of UTC.
func (o Offset) Seconds() int {
	return int(o) * 60
}

// TimestampRecord is the resolved capture instant for one logical item.
//
// HasTimezone is true only for an offset read from the item's own metadata.
// An offset propagated from neighboring items sets TZOffset with
// Inferred=true instead, so the two stay distinguishable.
type TimestampRecord struct {
	UTCEpoch    float64
	WallClock   string // device-local calendar time, WallClockLayout
	HasTimezone bool
	TZOffset    *Offset
	Inferred    bool
	Source      TimestampSource
}

// Complete reports whether the record carries either an explicit or an
// inferred timezone. Incomplete records are re-resolved on the next pass.
func (r TimestampRecord) Complete() bool {
	return r.HasTimezone || r.TZOffset != nil
}

// ParseWallClock parses a wall-clock string in the canonical layout,
// interpreted in UTC (the caller applies any offset).
func ParseWallClock(s string) (time.Time, error) {
	return time.ParseInLocation(WallClockLayout, s, time.UTC)
}

// NaiveEpoch returns the epoch of a wall-clock time interpreted as if it
// were UTC. This is the sortable value for records with no known offset.
func NaiveEpoch(wallClock string) (float64, error) {
	t, err := ParseWallClock(wallClock)
	if err != nil {
		return 0, err
	}
	return float64(t.Unix()), nil
}

// EpochWithOffset recomputes the UTC epoch of a wall-clock time captured at
// the given offset east of UTC.
func EpochWithOffset(wallClock string, off Offset) (float64, error) {
	naive, err := NaiveEpoch(wallClock)
	if err != nil {
		return 0, err
	}
	return naive - float64(off.Seconds()), nil
}
