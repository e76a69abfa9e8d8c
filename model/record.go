package model

import (
	"encoding/json"
	"fmt"
)

// Annotation is one stored time-anchored annotation of a video item.
type Annotation struct {
	Time float64 `json:"time"`
	Text string  `json:"text"`
	Skip bool    `json:"skip,omitempty"`
}

// Location holds manual and automated place descriptions for an item.
type Location struct {
	ManualText        string      `json:"manual_text,omitempty"`
	AutomatedText     string      `json:"automated_text,omitempty"`
	LatitudeLongitude *[2]float64 `json:"latitude_longitude,omitempty"`
}

// Crop is a stored crop rectangle. Selection UI is out of scope; the value
// is persisted and served as-is.
type Crop struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ItemRecord is the persisted per-item record of the collection store.
type ItemRecord struct {
	Annotations []Annotation `json:"annotations,omitempty"`
	Text        string       `json:"text,omitempty"`

	CreationTimeUTC       float64 `json:"creation_time_utc"`
	LocalTimeZone         string  `json:"local_time_zone,omitempty"`
	LocalTimeZoneInferred string  `json:"local_time_zone_inferred,omitempty"`
	CreationLocalNaive    string  `json:"creation_local_naive,omitempty"`
	CreationDateTime      string  `json:"creation_date_time"`
	CreationTimeManual    string  `json:"creation_time_manual,omitempty"`
	TimestampSource       string  `json:"timestamp_source,omitempty"`

	Location *Location `json:"location,omitempty"`
	Rotation int       `json:"rotation,omitempty"`
	Volume   *float64  `json:"volume,omitempty"`
	Skip     bool      `json:"skip,omitempty"`
	Crop     *Crop     `json:"crop,omitempty"`
}

// ApplyTimestamp writes a resolved timestamp record into the persisted
// fields. A manual override string, when present, is left untouched and
// keeps winning over the resolved values.
func (r *ItemRecord) ApplyTimestamp(ts TimestampRecord) {
	r.CreationTimeUTC = ts.UTCEpoch
	r.CreationDateTime = ts.WallClock
	r.TimestampSource = string(ts.Source)
	r.LocalTimeZone = ""
	r.LocalTimeZoneInferred = ""
	r.CreationLocalNaive = ""
	switch {
	case ts.HasTimezone && ts.TZOffset != nil:
		r.LocalTimeZone = ts.TZOffset.String()
	case ts.TZOffset != nil:
		r.LocalTimeZoneInferred = ts.TZOffset.String()
	default:
		r.CreationLocalNaive = ts.WallClock
	}
}

// Timestamp reconstructs the resolved timestamp record from the persisted
// fields. ok is false when the record has never been resolved.
func (r *ItemRecord) Timestamp() (TimestampRecord, bool) {
	if r == nil || r.CreationDateTime == "" {
		return TimestampRecord{}, false
	}
	ts := TimestampRecord{
		UTCEpoch:  r.CreationTimeUTC,
		WallClock: r.CreationDateTime,
		Source:    TimestampSource(r.TimestampSource),
	}
	if r.LocalTimeZone != "" {
		if off, err := ParseOffset(r.LocalTimeZone); err == nil {
			ts.HasTimezone = true
			ts.TZOffset = &off
		}
	} else if r.LocalTimeZoneInferred != "" {
		if off, err := ParseOffset(r.LocalTimeZoneInferred); err == nil {
			ts.TZOffset = &off
			ts.Inferred = true
		}
	}
	return ts, true
}

// OrderEpoch is the epoch used for catalog ordering: the manual override
// when present, else the resolved epoch, else the far-future sentinel.
func (r *ItemRecord) OrderEpoch() float64 {
	if r == nil {
		return FarFutureEpoch
	}
	if r.CreationTimeManual != "" {
		if epoch, err := NaiveEpoch(r.CreationTimeManual); err == nil {
			return epoch
		}
	}
	if r.CreationDateTime != "" {
		return r.CreationTimeUTC
	}
	return FarFutureEpoch
}

// Settings holds collection-wide options stored under the reserved
// "_settings" key.
type Settings struct {
	// IncludedFolders maps a folder path relative to the media root to its
	// inclusion flag. Folders not listed are included.
	IncludedFolders map[string]bool `json:"included_folders,omitempty"`
}

// settingsKey is reserved in the collection document and never names an item.
const settingsKey = "_settings"

// Collection is one collection's full store document: item records keyed by
// filename (or filename##suffix) plus collection-wide settings.
type Collection struct {
	Items    map[string]*ItemRecord
	Settings Settings
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{Items: make(map[string]*ItemRecord)}
}

// Record returns the record for key, creating it if absent.
func (c *Collection) Record(key string) *ItemRecord {
	if rec, ok := c.Items[key]; ok {
		return rec
	}
	rec := &ItemRecord{}
	c.Items[key] = rec
	return rec
}

// Relocate moves the record stored under oldKey to newKey. Missing source
// records relocate as empty; an existing record under newKey is replaced.
func (c *Collection) Relocate(oldKey, newKey string) {
	rec, ok := c.Items[oldKey]
	if !ok {
		rec = &ItemRecord{}
	}
	delete(c.Items, oldKey)
	c.Items[newKey] = rec
}

// MarshalJSON renders the collection as a flat document with the reserved
// _settings key alongside the item records.
func (c *Collection) MarshalJSON() ([]byte, error) {
	doc := make(map[string]interface{}, len(c.Items)+1)
	for key, rec := range c.Items {
		doc[key] = rec
	}
	doc[settingsKey] = c.Settings
	return json.Marshal(doc)
}

// UnmarshalJSON parses the flat document form, splitting item records from
// the reserved _settings key.
func (c *Collection) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("collection document: %w", err)
	}
	c.Items = make(map[string]*ItemRecord, len(raw))
	for key, msg := range raw {
		if key == settingsKey {
			if err := json.Unmarshal(msg, &c.Settings); err != nil {
				return fmt.Errorf("collection settings: %w", err)
			}
			continue
		}
		rec := &ItemRecord{}
		if err := json.Unmarshal(msg, rec); err != nil {
			return fmt.Errorf("item record %q: %w", key, err)
		}
		c.Items[key] = rec
	}
	return nil
}
