package playback

import (
	"mediatag/core/annotate"
)

// Update is the engine's answer to one position event: where the cursor
// ends up and what annotation text to display there.
type Update struct {
	Position float64 `json:"position"`
	Text     string  `json:"text"`
	Skip     bool    `json:"skip"`
	Jumped   bool    `json:"jumped,omitempty"`
	Stopped  bool    `json:"stopped,omitempty"`
}

// Engine consumes the high-frequency playback position stream for one video
// item and resolves the active annotation segment, including skip handling.
// It is idempotent under repeated identical positions and never writes
// through an open edit session: the session stays the sole writer of its
// segment, and the engine only asks it to retime on a manual scrub.
type Engine struct {
	timeline *annotate.Timeline
	session  *annotate.EditSession

	position float64
	playing  bool
	mediaEnd float64
}

// NewEngine creates an engine over the item's timeline and edit session.
// mediaEnd is the media duration in seconds; zero when unknown.
func NewEngine(timeline *annotate.Timeline, session *annotate.EditSession, mediaEnd float64) *Engine {
	return &Engine{timeline: timeline, session: session, mediaEnd: mediaEnd}
}

// SetMediaEnd records the media duration once the transport learns it.
func (e *Engine) SetMediaEnd(end float64) {
	if end > 0 {
		e.mediaEnd = end
	}
}

// Position returns the current cursor position.
func (e *Engine) Position() float64 {
	return e.position
}

// Playing reports whether playback is auto-advancing.
func (e *Engine) Playing() bool {
	return e.playing
}

// Play resumes auto-advancing.
func (e *Engine) Play() {
	e.playing = true
}

// Pause stops auto-advancing. Adding an annotation pauses playback as a
// side effect; the caller invokes this before opening the session.
func (e *Engine) Pause() {
	e.playing = false
}

// Tick handles one automatically advancing position event. Entering a skip
// segment immediately moves the position to the start of the next segment,
// or stops at the media's end when the skip segment is the last one.
// While an edit session is open no jump runs: the timeline must hold still
// under the editor.
func (e *Engine) Tick(pos float64) Update {
	e.position = pos
	active := e.timeline.ActiveSegment(pos)

	if e.session != nil && e.session.Active() {
		return Update{Position: pos, Text: e.displayText(active, false), Skip: active.Skip}
	}

	if !e.playing || !active.Skip {
		return Update{Position: pos, Text: e.displayText(active, e.playing), Skip: active.Skip}
	}

	// Chase through consecutive skip segments.
	jumped := false
	for active.Skip {
		next := e.timeline.NextAfter(active.StartTime)
		if next == nil {
			// Skipped content runs to the media's end: stop advancing there.
			e.playing = false
			if e.mediaEnd > e.position {
				e.position = e.mediaEnd
			}
			return Update{
				Position: e.position,
				Text:     e.displayText(active, false),
				Skip:     true,
				Jumped:   jumped,
				Stopped:  true,
			}
		}
		e.position = next.StartTime
		active = next
		jumped = true
	}

	return Update{Position: e.position, Text: e.displayText(active, true), Skip: active.Skip, Jumped: jumped}
}

// Seek handles a manual position move (scrub or pause navigation). No skip
// jump runs; a skip segment displays the fixed sentinel instead of its
// stored text. While a segment is bound for editing, the move retimes it.
func (e *Engine) Seek(pos float64) Update {
	if pos < 0 {
		pos = 0
	}
	e.position = pos

	if e.session != nil && e.session.State() == annotate.StateEditing {
		e.session.Retime(pos)
	}

	active := e.timeline.ActiveSegment(pos)
	return Update{Position: pos, Text: e.displayText(active, false), Skip: active.Skip}
}

// displayText resolves what to show for the active segment. Stored text on
// a skip segment is informational only: it is never shown while playback is
// not auto-advancing.
func (e *Engine) displayText(active *annotate.Segment, autoAdvancing bool) string {
	if active.Skip && !autoAdvancing {
		return annotate.SkippedText
	}
	return active.Text
}
