package timestamp

import (
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"mediatag/model"
)

// exifLayout is the EXIF date encoding, e.g. "2024:01:01 12:00:00".
const exifLayout = "2006:01:02 15:04:05"

// fromEXIF reads the original-capture field from an image's embedded
// metadata. Cameras record local time without an offset, so the result is a
// naive wall clock.
func fromEXIF(path string) (model.TimestampRecord, bool) {
	f, err := os.Open(path)
	if err != nil {
		return model.TimestampRecord{}, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return model.TimestampRecord{}, false
	}

	raw, ok := exifDateString(x, exif.DateTimeOriginal)
	if !ok {
		raw, ok = exifDateString(x, exif.DateTime)
	}
	if !ok {
		return model.TimestampRecord{}, false
	}

	return naiveRecord(raw, exifLayout, model.SourceDeviceMetadata)
}

// GPSFromEXIF reads embedded GPS coordinates from an image, for best-effort
// location enrichment. ok is false when the image carries no usable fix.
func GPSFromEXIF(path string) (lat, long float64, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return 0, 0, false
	}

	lat, long, err = x.LatLong()
	if err != nil {
		return 0, 0, false
	}
	return lat, long, true
}

// exifDateString returns the raw string value of a date tag. The raw value
// is kept instead of exif.DateTime() to avoid the library attaching the
// process's local zone to a device wall clock.
func exifDateString(x *exif.Exif, name exif.FieldName) (string, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return "", false
	}
	s, err := tag.StringVal()
	if err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}
