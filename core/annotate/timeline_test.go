package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediatag/model"
)

func requireInvariants(t *testing.T, tl *Timeline) {
	t.Helper()
	segs := tl.Segments()
	require.NotEmpty(t, segs)
	require.Equal(t, 0.0, segs[0].StartTime, "baseline segment must exist at 0")
	for i := 1; i < len(segs); i++ {
		require.Greater(t, segs[i].StartTime, segs[i-1].StartTime,
			"start times must be strictly increasing")
	}
}

func TestNewTimelineInsertsBaseline(t *testing.T) {
	tl := NewTimeline(nil)
	require.Equal(t, 1, tl.Len())
	requireInvariants(t, tl)
	assert.Equal(t, "", tl.Segments()[0].Text)
}

func TestNewTimelineSelfHeals(t *testing.T) {
	stored := []model.Annotation{
		{Time: 20, Text: "late"},
		{Time: 5, Text: ""},
		{Time: 5, Text: "kept"},
		{Time: 5, Text: "second non-empty"},
		{Time: -3, Text: "negative dropped"},
	}
	tl := NewTimeline(stored)
	requireInvariants(t, tl)

	require.Equal(t, 3, tl.Len())
	seg := tl.SegmentAt(5)
	require.NotNil(t, seg)
	assert.Equal(t, "kept", seg.Text, "dedup keeps the first non-empty text")
}

func TestDedupPrefersSkipAmongEmpty(t *testing.T) {
	tl := NewTimeline([]model.Annotation{
		{Time: 7},
		{Time: 7, Skip: true},
	})
	seg := tl.SegmentAt(7)
	require.NotNil(t, seg)
	assert.True(t, seg.Skip)
}

func TestDedupIdempotent(t *testing.T) {
	stored := []model.Annotation{
		{Time: 0, Text: "intro"},
		{Time: 3, Text: "a"},
		{Time: 3, Text: ""},
		{Time: 9, Skip: true},
	}
	once := NewTimeline(stored)
	twice := NewTimeline(once.Annotations())
	assert.Equal(t, once.Annotations(), twice.Annotations())
}

func TestActiveSegmentLastNotAfter(t *testing.T) {
	tl := NewTimeline([]model.Annotation{
		{Time: 10, Text: "ten"},
		{Time: 20, Text: "twenty"},
	})

	cases := []struct {
		pos  float64
		want float64
	}{
		{0, 0},
		{9.99, 0},
		{10, 10},
		{15, 10},
		{20, 20},
		{1e9, 20},
		{-5, 0},
	}
	for _, tc := range cases {
		active := tl.ActiveSegment(tc.pos)
		assert.Equal(t, tc.want, active.StartTime, "position %v", tc.pos)
		if tc.pos >= 0 {
			assert.LessOrEqual(t, active.StartTime, tc.pos)
		}
	}
}

func TestAddKeepsInvariants(t *testing.T) {
	tl := NewTimeline(nil)
	tl.Add(30, "c")
	tl.Add(10, "a")
	tl.Add(20, "b")
	tl.Add(10, "") // duplicate start, empty text loses
	requireInvariants(t, tl)
	require.Equal(t, 4, tl.Len())
	assert.Equal(t, "a", tl.SegmentAt(10).Text)
}

func TestSetStartRelocatesWithoutRecreate(t *testing.T) {
	tl := NewTimeline([]model.Annotation{{Time: 10, Text: "move me"}, {Time: 20, Text: "fixed"}})
	seg := tl.SegmentAt(10)
	survivor := tl.SetStart(seg, 25)
	requireInvariants(t, tl)
	require.Same(t, seg, survivor)
	assert.Nil(t, tl.SegmentAt(10))
	assert.Equal(t, "move me", tl.SegmentAt(25).Text)
}

func TestRemoveBaselineClearsTextOnly(t *testing.T) {
	tl := NewTimeline([]model.Annotation{{Time: 0, Text: "opening"}, {Time: 10, Text: "ten"}})
	before := tl.Len()
	tl.Remove(tl.ActiveSegment(0))
	assert.Equal(t, before, tl.Len(), "baseline removal must not change length")
	assert.Equal(t, "", tl.Segments()[0].Text)
}

func TestRemoveNonBaseline(t *testing.T) {
	tl := NewTimeline([]model.Annotation{{Time: 10, Text: "ten"}})
	tl.Remove(tl.SegmentAt(10))
	requireInvariants(t, tl)
	assert.Nil(t, tl.SegmentAt(10))
	assert.Equal(t, 1, tl.Len())
}
