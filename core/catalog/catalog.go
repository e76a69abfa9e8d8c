package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"mediatag/core/annotate"
	"mediatag/core/playback"
	"mediatag/core/timestamp"
	"mediatag/logger"
	"mediatag/model"
	"mediatag/repository"
)

// ErrUnknownItem reports a key that names no catalog entry.
var ErrUnknownItem = errors.New("unknown item")

// Geocoder resolves coordinates to a human-readable place description.
// Lookups are best-effort: failures and timeouts degrade to no data.
type Geocoder interface {
	Lookup(ctx context.Context, lat, long float64) (string, error)
}

// Catalog owns one collection: the scanned items, their resolved
// timestamps, the per-video timelines and edit sessions, and the persisted
// store. The engine is cooperative; a single mutex serializes access so no
// two algorithms mutate shared state concurrently.
type Catalog struct {
	mu sync.Mutex

	root     string
	repo     repository.CollectionRepository
	resolver *timestamp.Resolver
	renamer  Renamer

	collection *model.Collection
	items      []model.MediaItem

	timelines map[string]*annotate.Timeline
	sessions  map[string]*annotate.EditSession
	engines   map[string]*playback.Engine

	pending []DuplicateGroup
	dirty   bool
}

// Open loads the collection store, scans the media root, resolves and
// infers timestamps, self-heals every stored timeline, orders the catalog
// and queues duplicate-filename groups.
func Open(root string, repo repository.CollectionRepository, resolver *timestamp.Resolver) (*Catalog, error) {
	c := &Catalog{
		root:      root,
		repo:      repo,
		resolver:  resolver,
		renamer:   osRenamer{},
		timelines: make(map[string]*annotate.Timeline),
		sessions:  make(map[string]*annotate.EditSession),
		engines:   make(map[string]*playback.Engine),
	}

	collection, err := repo.Load()
	if err != nil {
		return nil, err
	}
	c.collection = collection

	if err := c.refreshLocked(context.Background()); err != nil {
		return nil, err
	}
	logger.Info("catalog opened",
		logger.String("root", root),
		logger.Int("items", len(c.items)),
		logger.Int("duplicateGroups", len(c.pending)))
	return c, nil
}

// refreshLocked re-runs the load pipeline: scan, seed cached records from
// the store, resolve, infer offsets, write resolved values back, self-heal
// timelines, order, and detect duplicate groups.
func (c *Catalog) refreshLocked(ctx context.Context) error {
	items, err := Scan(c.root, c.collection.Settings.IncludedFolders)
	if err != nil {
		return fmt.Errorf("media scan failed: %w", err)
	}
	c.items = items

	// Stored records seed the resolver cache so a complete record is never
	// re-probed across runs.
	for _, item := range c.items {
		key := item.Key()
		if _, ok := c.resolver.Cached(key); ok {
			continue
		}
		if ts, ok := c.collection.Items[key].Timestamp(); ok {
			c.resolver.Store(key, ts)
		}
	}

	records := make(map[string]*model.TimestampRecord, len(c.items))
	for _, item := range c.items {
		rec := c.resolver.Resolve(ctx, item)
		records[item.Key()] = &rec
	}

	timestamp.InferOffsets(records)

	for _, item := range c.items {
		key := item.Key()
		ts := *records[key]
		c.resolver.Store(key, ts)
		c.collection.Record(key).ApplyTimestamp(ts)
	}

	// Self-healing pass over every stored timeline: baseline insertion and
	// dedup repair whatever an interrupted prior session left behind.
	for _, item := range c.items {
		if item.Type() != model.MediaVideo {
			continue
		}
		key := item.Key()
		if _, ok := c.timelines[key]; ok {
			continue
		}
		t := annotate.NewTimeline(c.collection.Record(key).Annotations)
		c.timelines[key] = t
		c.collection.Record(key).Annotations = t.Annotations()
	}

	c.sortLocked()
	c.pending = FindDuplicateGroups(c.items, c.epochOfLocked)
	c.dirty = false
	return nil
}

// Rescan re-runs the load pipeline, e.g. after the watcher saw the media
// folder change. Cached complete records and open runtime state survive.
func (c *Catalog) Rescan(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx)
}

// MarkDirty flags the catalog for a rescan on the next access.
func (c *Catalog) MarkDirty() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}

// RescanIfDirty re-runs the load pipeline only when the watcher flagged a
// change.
func (c *Catalog) RescanIfDirty(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	return c.refreshLocked(ctx)
}

// epochOfLocked is the ordering epoch for one item: manual override, else
// resolved epoch post-inference, else the far-future sentinel.
func (c *Catalog) epochOfLocked(item model.MediaItem) float64 {
	return c.collection.Record(item.Key()).OrderEpoch()
}

func (c *Catalog) sortLocked() {
	SortItems(c.items, c.epochOfLocked)
}

// Items returns the ordered catalog entries.
func (c *Catalog) Items() []model.MediaItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.MediaItem, len(c.items))
	copy(out, c.items)
	return out
}

// Item returns the catalog entry stored under key.
func (c *Catalog) Item(key string) (model.MediaItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.itemLocked(key)
}

func (c *Catalog) itemLocked(key string) (model.MediaItem, bool) {
	for _, item := range c.items {
		if item.Key() == key {
			return item, true
		}
	}
	return model.MediaItem{}, false
}

// Next returns the entry after key in catalog order, wrapping around.
// Navigation force-flushes any open edit session on the item being left.
func (c *Catalog) Next(key string) (model.MediaItem, bool) {
	return c.step(key, 1)
}

// Prev returns the entry before key in catalog order, wrapping around.
func (c *Catalog) Prev(key string) (model.MediaItem, bool) {
	return c.step(key, -1)
}

func (c *Catalog) step(key string, delta int) (model.MediaItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return model.MediaItem{}, false
	}
	if c.flushSessionLocked(key) {
		// The flush may have committed an annotation; persist it now rather
		// than waiting for an unrelated later save.
		if err := c.saveLocked(); err != nil {
			logger.Warn("store save after session flush failed",
				logger.String("key", key), logger.ErrorField(err))
		}
	}
	for i, item := range c.items {
		if item.Key() == key {
			n := len(c.items)
			return c.items[(i+delta%n+n)%n], true
		}
	}
	return c.items[0], true
}

// Record returns a copy of the stored record for key.
func (c *Catalog) Record(key string) model.ItemRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.collection.Record(key)
}

// timelineLocked returns the annotation timeline for an item, creating a
// baseline-only timeline on first access.
func (c *Catalog) timelineLocked(key string) *annotate.Timeline {
	if t, ok := c.timelines[key]; ok {
		return t
	}
	t := annotate.NewTimeline(c.collection.Record(key).Annotations)
	c.timelines[key] = t
	return t
}

func (c *Catalog) sessionLocked(key string) *annotate.EditSession {
	if s, ok := c.sessions[key]; ok {
		return s
	}
	s := annotate.NewSession(c.timelineLocked(key))
	c.sessions[key] = s
	return s
}

func (c *Catalog) engineLocked(key string) *playback.Engine {
	if e, ok := c.engines[key]; ok {
		return e
	}
	e := playback.NewEngine(c.timelineLocked(key), c.sessionLocked(key), 0)
	c.engines[key] = e
	return e
}

// Annotations returns the current annotation list for key.
func (c *Catalog) Annotations(key string) []model.Annotation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timelineLocked(key).Annotations()
}

// SetText updates an image item's free-text annotation and persists. A key
// naming no catalog entry is rejected rather than creating a stray record.
func (c *Catalog) SetText(key, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.itemLocked(key); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, key)
	}
	c.collection.Record(key).Text = text
	return c.saveLocked()
}

// SetManualTimestamp validates and stores a manual wall-clock override,
// which from then on wins over any resolved record. An invalid value is
// reported and the prior stored value stays unchanged. An empty value
// clears the override. Only the order is recomputed; no other item's
// record is touched.
func (c *Catalog) SetManualTimestamp(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if value != "" {
		if _, err := model.ParseWallClock(value); err != nil {
			return fmt.Errorf("invalid manual timestamp %q (want %s): %w",
				value, model.WallClockLayout, err)
		}
	}
	c.collection.Record(key).CreationTimeManual = value
	c.sortLocked()
	return c.saveLocked()
}

// ItemAttrs is the set of optional per-item playback attributes; nil fields
// stay unchanged.
type ItemAttrs struct {
	Rotation   *int        `json:"rotation,omitempty"`
	Volume     *float64    `json:"volume,omitempty"`
	Skip       *bool       `json:"skip,omitempty"`
	Crop       *model.Crop `json:"crop,omitempty"`
	ManualText *string     `json:"manualText,omitempty"`
	LatLong    *[2]float64 `json:"latitudeLongitude,omitempty"`
}

// SetAttrs updates stored playback attributes and persists. A key naming no
// catalog entry is rejected rather than creating a stray record.
func (c *Catalog) SetAttrs(key string, attrs ItemAttrs) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.itemLocked(key); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, key)
	}
	rec := c.collection.Record(key)
	if attrs.Rotation != nil {
		rec.Rotation = *attrs.Rotation
	}
	if attrs.Volume != nil {
		rec.Volume = attrs.Volume
	}
	if attrs.Skip != nil {
		rec.Skip = *attrs.Skip
	}
	if attrs.Crop != nil {
		rec.Crop = attrs.Crop
	}
	if attrs.ManualText != nil || attrs.LatLong != nil {
		if rec.Location == nil {
			rec.Location = &model.Location{}
		}
		if attrs.ManualText != nil {
			rec.Location.ManualText = *attrs.ManualText
		}
		if attrs.LatLong != nil {
			rec.Location.LatitudeLongitude = attrs.LatLong
			// New coordinates invalidate the automated description.
			rec.Location.AutomatedText = ""
		}
	}
	return c.saveLocked()
}

// EnrichLocations fills automated place descriptions for items that carry
// coordinates but no description yet. Failures leave the record untouched.
// EXIF reads and network lookups run outside the catalog mutex so the
// position stream never queues behind them; results are written back under
// the lock one item at a time, skipping records that changed meanwhile.
func (c *Catalog) EnrichLocations(ctx context.Context, g Geocoder) {
	if g == nil {
		return
	}

	type candidate struct {
		key    string
		path   string
		coords *[2]float64
	}

	c.mu.Lock()
	candidates := make([]candidate, 0, len(c.items))
	for _, item := range c.items {
		rec := c.collection.Record(item.Key())
		loc := rec.Location
		switch {
		case loc != nil && loc.LatitudeLongitude != nil && loc.AutomatedText == "":
			coords := *loc.LatitudeLongitude
			candidates = append(candidates, candidate{key: item.Key(), coords: &coords})
		case item.Type() == model.MediaImage && (loc == nil || loc.LatitudeLongitude == nil):
			candidates = append(candidates, candidate{key: item.Key(), path: item.Path})
		}
	}
	c.mu.Unlock()

	changed := false
	for _, cand := range candidates {
		if ctx.Err() != nil {
			break
		}
		coords := cand.coords
		if coords == nil {
			lat, long, ok := timestamp.GPSFromEXIF(cand.path)
			if !ok {
				continue
			}
			coords = &[2]float64{lat, long}
			if c.storeCoordinates(cand.key, coords) {
				changed = true
			}
		}
		text, err := g.Lookup(ctx, coords[0], coords[1])
		if err != nil {
			logger.Debug("reverse geocode failed",
				logger.String("key", cand.key), logger.ErrorField(err))
			continue
		}
		if c.storeAutomatedText(cand.key, coords, text) {
			changed = true
		}
	}

	if changed {
		if err := c.Save(); err != nil {
			logger.Warn("store save after geocode failed", logger.ErrorField(err))
		}
	}
}

// storeCoordinates writes EXIF coordinates back to a record, unless it
// gained its own coordinates while the file was being read. coords is
// updated to the stored value either way, so the following lookup uses
// whatever the record actually holds.
func (c *Catalog) storeCoordinates(key string, coords *[2]float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.itemLocked(key); !ok {
		return false
	}
	rec := c.collection.Record(key)
	if rec.Location == nil {
		rec.Location = &model.Location{}
	}
	if rec.Location.LatitudeLongitude != nil {
		*coords = *rec.Location.LatitudeLongitude
		return false
	}
	rec.Location.LatitudeLongitude = &[2]float64{coords[0], coords[1]}
	return true
}

// storeAutomatedText writes a looked-up place description back, skipping
// records whose coordinates moved or that were described while the lookup
// was in flight.
func (c *Catalog) storeAutomatedText(key string, coords *[2]float64, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.itemLocked(key); !ok {
		return false
	}
	loc := c.collection.Record(key).Location
	if loc == nil || loc.LatitudeLongitude == nil || *loc.LatitudeLongitude != *coords || loc.AutomatedText != "" {
		return false
	}
	loc.AutomatedText = text
	return true
}

// Save syncs every live timeline back into its record and persists the
// collection document.
func (c *Catalog) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

func (c *Catalog) saveLocked() error {
	for key, t := range c.timelines {
		c.collection.Record(key).Annotations = t.Annotations()
	}
	return c.repo.Save(c.collection)
}

// Settings returns the collection-wide options.
func (c *Catalog) Settings() model.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collection.Settings
}

// SetFolderIncluded records a per-folder inclusion flag and rescans.
func (c *Catalog) SetFolderIncluded(ctx context.Context, folder string, included bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collection.Settings.IncludedFolders == nil {
		c.collection.Settings.IncludedFolders = make(map[string]bool)
	}
	c.collection.Settings.IncludedFolders[folder] = included
	if err := c.refreshLocked(ctx); err != nil {
		return err
	}
	return c.saveLocked()
}
