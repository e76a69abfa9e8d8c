package timestamp

import (
	"sort"

	"mediatag/logger"
	"mediatag/model"
)

// InferOffsets propagates timezone offsets across the full set of records
// using temporal locality: devices usually record a correct local wall clock
// but not every container embeds an offset, and captures close in time are
// very likely from the same session and zone.
//
// Records are scanned in utcEpoch order carrying the last seen offset.
// Explicit offsets update the running value and are never overwritten;
// records lacking one are given the running offset as inferred, and their
// epoch is recomputed from the existing wall clock plus that offset — never
// re-derived from a filesystem time once a device-recorded wall clock
// exists. Previously inferred offsets are freely rewritten whenever the
// running value differs, so the pass is safe to re-run on every load.
func InferOffsets(records map[string]*model.TimestampRecord) {
	keys := make([]string, 0, len(records))
	for key := range records {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := records[keys[i]], records[keys[j]]
		if a.UTCEpoch != b.UTCEpoch {
			return a.UTCEpoch < b.UTCEpoch
		}
		return keys[i] < keys[j]
	})

	var running *model.Offset
	inferred := 0
	for _, key := range keys {
		rec := records[key]
		if rec.HasTimezone && rec.TZOffset != nil {
			running = rec.TZOffset
			continue
		}
		if running == nil {
			continue
		}
		if rec.TZOffset != nil && rec.Inferred && *rec.TZOffset == *running {
			continue
		}
		if rec.WallClock == "" {
			// Sentinel records have no wall clock to anchor an offset to.
			continue
		}
		off := *running
		epoch, err := model.EpochWithOffset(rec.WallClock, off)
		if err != nil {
			logger.Warn("wall clock unparseable during inference",
				logger.String("key", key), logger.String("wallClock", rec.WallClock))
			continue
		}
		rec.TZOffset = &off
		rec.Inferred = true
		rec.UTCEpoch = epoch
		inferred++
	}

	if inferred > 0 {
		logger.Info("timezone inference pass complete",
			logger.Int("records", len(records)), logger.Int("inferred", inferred))
	}
}
