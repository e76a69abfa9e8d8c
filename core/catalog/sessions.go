package catalog

import (
	"mediatag/core/annotate"
	"mediatag/core/playback"
	"mediatag/model"
)

// Annotation and playback operations. Each takes the key of the item being
// acted on: timelines and sessions are owned per item, and the current item
// is always passed explicitly rather than looked up ambiently.

// StartAnnotation opens a pending-new session at the current playback
// position. Pausing playback is a side effect of the add action. Any prior
// session work on the item is force-flushed first.
func (c *Catalog) StartAnnotation(key string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.engineLocked(key)
	e.Pause()
	s := c.sessionLocked(key)
	s.StartNew(e.Position())
	return e.Position()
}

// SetAnnotationText applies a keystroke update to the open session: buffered
// while the annotation is pending, written through live while editing.
func (c *Catalog) SetAnnotationText(key, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionLocked(key).SetText(text)
}

// CommitAnnotation closes the open session, appending the pending
// annotation when its text is non-empty, and persists.
func (c *Catalog) CommitAnnotation(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionLocked(key).Commit()
	return c.saveLocked()
}

// DiscardAnnotation drops a pending annotation without applying it.
func (c *Catalog) DiscardAnnotation(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionLocked(key).Discard()
}

// StartEditing binds a session to the segment active at the current
// playback position and returns that segment's stored values.
func (c *Catalog) StartEditing(key string) model.Annotation {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.engineLocked(key)
	seg := c.sessionLocked(key).StartEditing(e.Position())
	return model.Annotation{Time: seg.StartTime, Text: seg.Text, Skip: seg.Skip}
}

// SetAnnotationSkip toggles the skip flag on the segment bound for editing.
func (c *Catalog) SetAnnotationSkip(key string, skip bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seg := c.sessionLocked(key).Editing(); seg != nil {
		seg.Skip = skip
	}
}

// FinishEditing ends an open edit explicitly and persists. Losing input
// focus alone never ends a session; this is the only ordinary way out of
// StateEditing.
func (c *Catalog) FinishEditing(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionLocked(key).Commit()
	return c.saveLocked()
}

// FlushSession deterministically resolves any in-progress session work,
// invoked before destructive operations. Idempotent when idle.
func (c *Catalog) FlushSession(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushSessionLocked(key)
	return c.saveLocked()
}

// flushSessionLocked reports whether the session held work that got flushed.
func (c *Catalog) flushSessionLocked(key string) bool {
	if s, ok := c.sessions[key]; ok && s.Active() {
		s.Flush()
		return true
	}
	return false
}

// RemoveActiveAnnotation removes the segment active at the current playback
// position. Removing the baseline degrades to clearing its text. The open
// session, if any, is force-flushed first: removal is destructive.
func (c *Catalog) RemoveActiveAnnotation(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushSessionLocked(key)
	t := c.timelineLocked(key)
	t.Remove(t.ActiveSegment(c.engineLocked(key).Position()))
	return c.saveLocked()
}

// Tick feeds one automatically advancing playback position to the item's
// engine.
func (c *Catalog) Tick(key string, pos float64) playback.Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engineLocked(key).Tick(pos)
}

// Seek feeds one manual position move to the item's engine. While a segment
// is bound for editing this retimes it live.
func (c *Catalog) Seek(key string, pos float64) playback.Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engineLocked(key).Seek(pos)
}

// Play resumes auto-advancing playback for the item.
func (c *Catalog) Play(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engineLocked(key).Play()
}

// Pause stops auto-advancing playback for the item.
func (c *Catalog) Pause(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engineLocked(key).Pause()
}

// SetMediaDuration records the item's media duration once the transport
// learns it, so a trailing skip segment can stop playback at the end.
func (c *Catalog) SetMediaDuration(key string, seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engineLocked(key).SetMediaEnd(seconds)
}

// SessionState reports the item's current edit-session state.
func (c *Catalog) SessionState(key string) annotate.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionLocked(key).State()
}
