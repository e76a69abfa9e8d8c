package annotate

import (
	"sort"

	"mediatag/model"
)

// SkippedText is the fixed sentinel displayed for a skip segment while
// playback is not auto-advancing. Stored text on a skip segment is
// informational only and never shown during a manual pause.
const SkippedText = "segment skipped"

// Segment is one time-anchored annotation of a video timeline.
type Segment struct {
	StartTime float64
	Text      string
	Skip      bool
}

// Timeline is a per-video sorted, deduplicated annotation list. Invariants,
// restored after every mutation:
//
//  1. segments sorted ascending by StartTime;
//  2. all StartTime values distinct;
//  3. exactly one baseline segment with StartTime == 0 always exists.
//
// Callers never observe a transiently unsorted or duplicated timeline.
type Timeline struct {
	segments []*Segment
}

// NewTimeline builds a timeline from stored annotations, running the
// self-healing normalization pass (baseline insertion + dedup) immediately,
// as happens on every catalog load.
func NewTimeline(stored []model.Annotation) *Timeline {
	t := &Timeline{}
	for _, a := range stored {
		if a.Time < 0 {
			continue
		}
		t.segments = append(t.segments, &Segment{StartTime: a.Time, Text: a.Text, Skip: a.Skip})
	}
	t.normalize()
	return t
}

// Segments returns the segments in order. The slice is shared; callers
// mutate through the timeline's methods only.
func (t *Timeline) Segments() []*Segment {
	return t.segments
}

// Len returns the number of segments, baseline included.
func (t *Timeline) Len() int {
	return len(t.segments)
}

// Annotations renders the timeline back into its stored form.
func (t *Timeline) Annotations() []model.Annotation {
	out := make([]model.Annotation, 0, len(t.segments))
	for _, s := range t.segments {
		out = append(out, model.Annotation{Time: s.StartTime, Text: s.Text, Skip: s.Skip})
	}
	return out
}

// ActiveSegment returns the segment in effect at playback position pos: the
// last segment with StartTime <= pos. The baseline invariant makes this
// total — there is always an answer. Negative positions resolve to the
// baseline.
func (t *Timeline) ActiveSegment(pos float64) *Segment {
	active := t.segments[0]
	for _, s := range t.segments[1:] {
		if s.StartTime > pos {
			break
		}
		active = s
	}
	return active
}

// NextAfter returns the first segment starting strictly after pos, or nil
// when pos falls within the last segment.
func (t *Timeline) NextAfter(pos float64) *Segment {
	for _, s := range t.segments {
		if s.StartTime > pos {
			return s
		}
	}
	return nil
}

// SegmentAt returns the segment starting exactly at start, if any.
func (t *Timeline) SegmentAt(start float64) *Segment {
	for _, s := range t.segments {
		if s.StartTime == start {
			return s
		}
	}
	return nil
}

// Add inserts a new segment and restores the invariants atomically,
// returning the surviving segment at that start time (which may be a
// pre-existing one the dedup pass preferred).
func (t *Timeline) Add(start float64, text string) *Segment {
	if start < 0 {
		start = 0
	}
	t.segments = append(t.segments, &Segment{StartTime: start, Text: text})
	t.normalize()
	return t.SegmentAt(start)
}

// SetStart moves a segment in time and restores the invariants, returning
// the surviving segment at the new start. This is what lets an open edit
// relocate a segment without delete+recreate.
func (t *Timeline) SetStart(seg *Segment, start float64) *Segment {
	if start < 0 {
		start = 0
	}
	seg.StartTime = start
	t.normalize()
	return t.SegmentAt(start)
}

// SetText updates a segment's text and restores the invariants.
func (t *Timeline) SetText(seg *Segment, text string) {
	seg.Text = text
	t.normalize()
}

// Remove deletes a segment from the sequence. The baseline is never
// deleted: removing it degrades to clearing its text in place.
func (t *Timeline) Remove(seg *Segment) {
	if seg.StartTime == 0 {
		seg.Text = ""
		return
	}
	for i, s := range t.segments {
		if s == seg {
			t.segments = append(t.segments[:i], t.segments[i+1:]...)
			break
		}
	}
	t.normalize()
}

// Contains reports whether seg is still part of the timeline, used by the
// edit session to re-bind after a dedup pass.
func (t *Timeline) Contains(seg *Segment) bool {
	for _, s := range t.segments {
		if s == seg {
			return true
		}
	}
	return false
}

// normalize restores the timeline invariants: sort, dedup, baseline.
// Dedup and baseline insertion are self-healing passes, not errors.
func (t *Timeline) normalize() {
	sort.SliceStable(t.segments, func(i, j int) bool {
		return t.segments[i].StartTime < t.segments[j].StartTime
	})

	// Among segments sharing one start time keep exactly one: prefer
	// non-empty text, then skip=true, then the first encountered.
	deduped := t.segments[:0]
	for _, s := range t.segments {
		if len(deduped) == 0 || deduped[len(deduped)-1].StartTime != s.StartTime {
			deduped = append(deduped, s)
			continue
		}
		kept := deduped[len(deduped)-1]
		if betterDuplicate(s, kept) {
			deduped[len(deduped)-1] = s
		}
	}
	t.segments = deduped

	if len(t.segments) == 0 || t.segments[0].StartTime != 0 {
		t.segments = append([]*Segment{{StartTime: 0}}, t.segments...)
	}
}

// betterDuplicate reports whether candidate should replace kept among
// segments sharing a start time.
func betterDuplicate(candidate, kept *Segment) bool {
	if (candidate.Text != "") != (kept.Text != "") {
		return candidate.Text != ""
	}
	if candidate.Skip != kept.Skip {
		return candidate.Skip
	}
	return false
}
