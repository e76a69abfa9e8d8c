package timestamp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediatag/logger"
	"mediatag/model"
)

// quickTimeCreationDate is the vendor tag carrying an explicit UTC offset,
// e.g. "2024-01-01T19:00:00+0700".
const quickTimeCreationDate = "com.apple.quicktime.creationdate"

// genericDateTags is the fixed priority order for generic video date fields.
var genericDateTags = []string{
	"creation_time",
	"date",
	"encoded_date",
	"tagged_date",
	"recorded_date",
	"date_recorded",
}

// offsetLayouts parse date values that carry an explicit offset.
var offsetLayouts = []string{
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05 -07:00",
	"2006-01-02T15:04:05.999999999-07:00",
}

// naiveLayouts parse date values without an offset. A trailing Z is handled
// separately: camera firmware routinely marks a local wall clock as UTC, so
// a bare Z is stripped and the value kept naive.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006:01:02 15:04:05",
	"2006-01-02",
}

// Resolver derives one TimestampRecord per catalog item from ranked,
// partially-trustworthy sources. Resolve never fails: any probe that errors
// or yields an unparseable value simply drops out of consideration.
type Resolver struct {
	prober VideoProber
	cache  map[string]model.TimestampRecord
}

// NewResolver creates a resolver. prober may be nil, in which case video
// metadata probes are skipped and videos fall through to the filename and
// filesystem sources.
func NewResolver(prober VideoProber) *Resolver {
	return &Resolver{
		prober: prober,
		cache:  make(map[string]model.TimestampRecord),
	}
}

// Resolve returns the timestamp record for item, computing and caching it on
// first use. A cached record is only recomputed while it is incomplete,
// i.e. still missing both an explicit and an inferred timezone.
func (r *Resolver) Resolve(ctx context.Context, item model.MediaItem) model.TimestampRecord {
	key := item.Key()
	if cached, ok := r.cache[key]; ok && cached.Complete() {
		return cached
	}

	rec := r.resolve(ctx, item)
	r.cache[key] = rec
	return rec
}

// Store replaces the cached record for key, e.g. after timezone inference
// or when a stored record is loaded from the collection document.
func (r *Resolver) Store(key string, rec model.TimestampRecord) {
	r.cache[key] = rec
}

// Cached returns the cached record for key, if any.
func (r *Resolver) Cached(key string) (model.TimestampRecord, bool) {
	rec, ok := r.cache[key]
	return rec, ok
}

// Invalidate drops the cached record for key, forcing re-resolution.
func (r *Resolver) Invalidate(key string) {
	delete(r.cache, key)
}

// Relocate moves a cached record between keys, used when the duplicate
// resolver forks an item identity.
func (r *Resolver) Relocate(oldKey, newKey string) {
	if rec, ok := r.cache[oldKey]; ok {
		delete(r.cache, oldKey)
		r.cache[newKey] = rec
	}
}

func (r *Resolver) resolve(ctx context.Context, item model.MediaItem) model.TimestampRecord {
	switch item.Type() {
	case model.MediaImage:
		if rec, ok := fromEXIF(item.Path); ok {
			return rec
		}
	case model.MediaVideo:
		if rec, ok := r.fromVideoMetadata(ctx, item.Path); ok {
			return rec
		}
	}

	if rec, ok := fromFilename(filepath.Base(item.Path)); ok {
		return rec
	}
	if rec, ok := fromFilesystem(item.Path); ok {
		return rec
	}

	logger.Debug("no timestamp source resolved, assigning sentinel",
		logger.String("path", item.Path))
	return model.TimestampRecord{
		UTCEpoch:  model.FarFutureEpoch,
		WallClock: "",
		Source:    model.SourceFilesystem,
	}
}

// fromVideoMetadata probes the ranked list of container date tags: first the
// vendor field with an explicit offset, then the generic fields in fixed
// priority order.
func (r *Resolver) fromVideoMetadata(ctx context.Context, path string) (model.TimestampRecord, bool) {
	if r.prober == nil {
		return model.TimestampRecord{}, false
	}

	tags, err := r.prober.ProbeTags(ctx, path)
	if err != nil {
		logger.Debug("video probe failed",
			logger.String("path", path), logger.ErrorField(err))
		return model.TimestampRecord{}, false
	}

	if raw, ok := tags[quickTimeCreationDate]; ok {
		if rec, ok := parseOffsetDate(raw, model.SourceDeviceMetadata); ok {
			return rec, true
		}
	}

	for _, tag := range genericDateTags {
		raw, ok := tags[tag]
		if !ok {
			continue
		}
		if rec, ok := parseVideoDate(raw); ok {
			return rec, true
		}
	}
	return model.TimestampRecord{}, false
}

// parseOffsetDate parses a value that must carry an explicit offset,
// decomposing it into the local wall-clock component for display and the
// exact UTC instant for sorting.
func parseOffsetDate(raw string, source model.TimestampSource) (model.TimestampRecord, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range offsetLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		_, offSecs := t.Zone()
		off := model.Offset(offSecs / 60)
		return model.TimestampRecord{
			UTCEpoch:    float64(t.Unix()),
			WallClock:   t.Format(model.WallClockLayout),
			HasTimezone: true,
			TZOffset:    &off,
			Source:      source,
		}, true
	}
	return model.TimestampRecord{}, false
}

// parseVideoDate parses a generic date field: with an embedded offset when
// one is present, otherwise as a naive wall clock.
func parseVideoDate(raw string) (model.TimestampRecord, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.TimestampRecord{}, false
	}

	if rec, ok := parseOffsetDate(raw, model.SourceGenericVideoMetadata); ok {
		if rec.TZOffset != nil && *rec.TZOffset != 0 {
			return rec, true
		}
		// Zero offset is a bare UTC marker, not evidence of a real zone.
		rec.HasTimezone = false
		rec.TZOffset = nil
		rec.Source = model.SourceGenericVideoMetadata
		return rec, true
	}

	raw = strings.TrimSuffix(raw, "Z")
	for _, layout := range naiveLayouts {
		if rec, ok := naiveRecord(raw, layout, model.SourceGenericVideoMetadata); ok {
			return rec, true
		}
	}
	return model.TimestampRecord{}, false
}

// naiveRecord builds a timezone-less record from a raw date string and its
// layout. The wall clock is interpreted as UTC for the sortable epoch until
// an offset is inferred.
func naiveRecord(raw, layout string, source model.TimestampSource) (model.TimestampRecord, bool) {
	t, err := time.ParseInLocation(layout, raw, time.UTC)
	if err != nil {
		return model.TimestampRecord{}, false
	}
	return model.TimestampRecord{
		UTCEpoch:  float64(t.Unix()),
		WallClock: t.Format(model.WallClockLayout),
		Source:    source,
	}, true
}

// fromFilesystem falls back to the earliest filesystem timestamp.
func fromFilesystem(path string) (model.TimestampRecord, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return model.TimestampRecord{}, false
	}
	t := earliestFileTime(info).UTC()
	return model.TimestampRecord{
		UTCEpoch:  float64(t.Unix()),
		WallClock: t.Format(model.WallClockLayout),
		Source:    model.SourceFilesystem,
	}, true
}
