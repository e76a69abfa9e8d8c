package annotate

// SessionState names the edit session's current phase.
type SessionState int

const (
	// StateIdle: no annotation is being added or edited.
	StateIdle SessionState = iota
	// StatePendingNew: a new annotation was requested at a captured start
	// time and its text is being entered; nothing is in the timeline yet.
	StatePendingNew
	// StateEditing: the session is bound to an existing segment and writes
	// its text and start time live.
	StateEditing
)

// EditSession is the state machine for adding or editing one annotation
// bound to a moving playback cursor. At most one session exists per video
// item; while bound, the session is the sole writer of its segment.
// Sessions are ephemeral and never persisted.
type EditSession struct {
	timeline *Timeline

	state        SessionState
	pendingStart float64
	pendingText  string
	editing      *Segment
}

// NewSession creates an idle session owned by the given timeline.
func NewSession(timeline *Timeline) *EditSession {
	return &EditSession{timeline: timeline}
}

// State returns the session's current state.
func (s *EditSession) State() SessionState {
	return s.state
}

// Active reports whether the session currently holds pending or bound work.
func (s *EditSession) Active() bool {
	return s.state != StateIdle
}

// Editing returns the bound segment while in StateEditing, else nil.
func (s *EditSession) Editing() *Segment {
	if s.state != StateEditing {
		return nil
	}
	return s.editing
}

// StartNew begins adding an annotation at the current playback position.
// Any prior session work is force-flushed first. The caller is responsible
// for the pause-playback side effect.
func (s *EditSession) StartNew(position float64) {
	s.Flush()
	if position < 0 {
		position = 0
	}
	s.state = StatePendingNew
	s.pendingStart = position
	s.pendingText = ""
}

// StartEditing binds the session to the segment active at the current
// playback position. Any prior session work is force-flushed first.
func (s *EditSession) StartEditing(position float64) *Segment {
	s.Flush()
	s.state = StateEditing
	s.editing = s.timeline.ActiveSegment(position)
	return s.editing
}

// SetText applies a text change live. In StatePendingNew the text is only
// buffered; in StateEditing it is written through to the bound segment
// immediately, followed by the invariant pass.
func (s *EditSession) SetText(text string) {
	switch s.state {
	case StatePendingNew:
		s.pendingText = text
	case StateEditing:
		s.timeline.SetText(s.editing, text)
		s.rebind(s.editing.StartTime)
	}
}

// Retime rewrites the bound segment's start time live as the playback
// cursor moves, re-sorting and deduplicating after each move. Outside
// StateEditing it is a no-op: a plain scrub must not mutate the timeline.
func (s *EditSession) Retime(position float64) {
	if s.state != StateEditing {
		return
	}
	if position < 0 {
		position = 0
	}
	survivor := s.timeline.SetStart(s.editing, position)
	s.editing = survivor
	s.rebind(position)
}

// Commit applies pending work and returns the session to idle. A pending
// new annotation with non-empty text is appended at the captured start
// time; empty text is discarded with no timeline mutation. An open edit
// has already been applied live, so committing only unbinds.
func (s *EditSession) Commit() *Segment {
	var out *Segment
	switch s.state {
	case StatePendingNew:
		if s.pendingText != "" {
			out = s.timeline.Add(s.pendingStart, s.pendingText)
		}
	case StateEditing:
		out = s.editing
	}
	s.reset()
	return out
}

// Flush deterministically resolves any in-progress work before a
// destructive operation: it commits per the rules above, never leaving
// work half-applied. Idempotent when idle.
func (s *EditSession) Flush() {
	s.Commit()
}

// Discard drops pending work without applying it and returns to idle.
// Used when the caller explicitly cancels a new annotation.
func (s *EditSession) Discard() {
	s.reset()
}

// rebind repoints the session at the surviving segment after a dedup pass
// may have replaced the bound one.
func (s *EditSession) rebind(start float64) {
	if s.state != StateEditing {
		return
	}
	if s.editing != nil && s.timeline.Contains(s.editing) {
		return
	}
	s.editing = s.timeline.SegmentAt(start)
	if s.editing == nil {
		// The segment vanished entirely; nothing left to edit.
		s.reset()
	}
}

func (s *EditSession) reset() {
	s.state = StateIdle
	s.pendingStart = 0
	s.pendingText = ""
	s.editing = nil
}
