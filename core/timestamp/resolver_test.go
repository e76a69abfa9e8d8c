package timestamp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediatag/model"
)

// fakeProber serves canned container tags.
type fakeProber struct {
	tags map[string]string
	err  error
}

func (f *fakeProber) ProbeTags(ctx context.Context, path string) (map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tags, nil
}

func TestFilenamePatternResolvesNaiveWallClock(t *testing.T) {
	r := NewResolver(nil)
	// Nonexistent path: EXIF and filesystem probes fail, the filename wins.
	item := model.MediaItem{Path: filepath.Join(t.TempDir(), "IMG_20240101_120000.jpg")}

	rec := r.Resolve(context.Background(), item)
	assert.Equal(t, "2024/01/01 12:00:00", rec.WallClock)
	assert.False(t, rec.HasTimezone)
	assert.Nil(t, rec.TZOffset)
	assert.Equal(t, model.SourceFilenamePattern, rec.Source)

	want := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, float64(want), rec.UTCEpoch)
}

func TestFilenamePatternDateOnly(t *testing.T) {
	rec, ok := fromFilename("2023-07-15.mp4")
	require.True(t, ok)
	assert.Equal(t, "2023/07/15 00:00:00", rec.WallClock)
}

func TestFilenamePatternRejectsImpossibleDates(t *testing.T) {
	for _, name := range []string{
		"IMG_20241301_120000.jpg", // month 13
		"IMG_20240230_120000.jpg", // Feb 30
		"IMG_19990101_120000.jpg", // year outside 2000-2099
		"holiday.jpg",
	} {
		_, ok := fromFilename(name)
		assert.False(t, ok, name)
	}
}

func TestUnresolvableItemGetsFarFutureSentinel(t *testing.T) {
	r := NewResolver(nil)
	item := model.MediaItem{Path: filepath.Join(t.TempDir(), "mystery.jpg")}

	rec := r.Resolve(context.Background(), item)
	assert.Equal(t, model.FarFutureEpoch, rec.UTCEpoch)
	assert.NotZero(t, rec.UTCEpoch, "sentinel must not be zero")
}

func TestFilesystemFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not a real jpeg"), 0644))

	r := NewResolver(nil)
	rec := r.Resolve(context.Background(), model.MediaItem{Path: path})
	assert.Equal(t, model.SourceFilesystem, rec.Source)
	assert.False(t, rec.HasTimezone)
	assert.Less(t, rec.UTCEpoch, model.FarFutureEpoch)
	assert.NotEmpty(t, rec.WallClock)
}

func TestVendorFieldCarriesExplicitOffset(t *testing.T) {
	r := NewResolver(&fakeProber{tags: map[string]string{
		quickTimeCreationDate: "2024-01-01T19:00:00+0700",
		"creation_time":       "2024-01-01T12:00:00.000000Z",
	}})

	rec := r.Resolve(context.Background(), model.MediaItem{Path: "clip.mp4"})
	require.True(t, rec.HasTimezone)
	require.NotNil(t, rec.TZOffset)
	assert.Equal(t, "+07:00", rec.TZOffset.String())
	assert.Equal(t, model.SourceDeviceMetadata, rec.Source)

	// Wall clock keeps the local component; the epoch is the UTC instant.
	assert.Equal(t, "2024/01/01 19:00:00", rec.WallClock)
	want := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, float64(want), rec.UTCEpoch)
}

func TestGenericCreationTimeIsNaive(t *testing.T) {
	r := NewResolver(&fakeProber{tags: map[string]string{
		"creation_time": "2024-03-05T08:30:00.000000Z",
	}})

	rec := r.Resolve(context.Background(), model.MediaItem{Path: "clip.mp4"})
	assert.False(t, rec.HasTimezone, "a bare UTC marker is not evidence of a real zone")
	assert.Nil(t, rec.TZOffset)
	assert.Equal(t, model.SourceGenericVideoMetadata, rec.Source)
	assert.Equal(t, "2024/03/05 08:30:00", rec.WallClock)
}

func TestGenericFieldPriorityOrder(t *testing.T) {
	r := NewResolver(&fakeProber{tags: map[string]string{
		"encoded_date":  "2022-02-02 02:02:02",
		"creation_time": "2021-01-01 01:01:01",
	}})

	rec := r.Resolve(context.Background(), model.MediaItem{Path: "clip.mp4"})
	assert.Equal(t, "2021/01/01 01:01:01", rec.WallClock, "creation_time outranks encoded_date")
}

func TestProbeFailureFallsThrough(t *testing.T) {
	r := NewResolver(&fakeProber{err: fmt.Errorf("ffprobe exploded")})

	rec := r.Resolve(context.Background(), model.MediaItem{Path: "VID_20230601_090000.mp4"})
	assert.Equal(t, model.SourceFilenamePattern, rec.Source)
	assert.Equal(t, "2023/06/01 09:00:00", rec.WallClock)
}

func TestCompleteRecordIsNotReResolved(t *testing.T) {
	r := NewResolver(nil)
	item := model.MediaItem{Path: "IMG_20240101_120000.jpg"}

	off, err := model.ParseOffset("+02:00")
	require.NoError(t, err)
	complete := model.TimestampRecord{
		UTCEpoch:    1000,
		WallClock:   "2024/01/01 12:00:00",
		HasTimezone: true,
		TZOffset:    &off,
		Source:      model.SourceDeviceMetadata,
	}
	r.Store(item.Key(), complete)

	rec := r.Resolve(context.Background(), item)
	assert.Equal(t, complete, rec, "a complete cached record is returned as-is")
}

func TestIncompleteRecordIsReResolved(t *testing.T) {
	r := NewResolver(nil)
	item := model.MediaItem{Path: "IMG_20240101_120000.jpg"}

	r.Store(item.Key(), model.TimestampRecord{
		UTCEpoch:  42,
		WallClock: "1970/01/01 00:00:42",
		Source:    model.SourceFilesystem,
	})

	rec := r.Resolve(context.Background(), item)
	assert.Equal(t, model.SourceFilenamePattern, rec.Source,
		"an incomplete cached record is recomputed")
}
