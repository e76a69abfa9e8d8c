package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mediatag/model"
)

func TestSortItemsByEpoch(t *testing.T) {
	items := []model.MediaItem{
		{Path: "/m/c.jpg"},
		{Path: "/m/a.jpg"},
		{Path: "/m/b.jpg"},
	}
	epochs := map[string]float64{
		"c.jpg": 300,
		"a.jpg": 100,
		"b.jpg": 200,
	}
	SortItems(items, func(m model.MediaItem) float64 { return epochs[m.Key()] })

	assert.Equal(t, "a.jpg", items[0].Key())
	assert.Equal(t, "b.jpg", items[1].Key())
	assert.Equal(t, "c.jpg", items[2].Key())
}

func TestSentinelSortsToTheEnd(t *testing.T) {
	items := []model.MediaItem{
		{Path: "/m/lost.jpg"},
		{Path: "/m/a.jpg"},
	}
	epochs := map[string]float64{
		"lost.jpg": model.FarFutureEpoch,
		"a.jpg":    100,
	}
	SortItems(items, func(m model.MediaItem) float64 { return epochs[m.Key()] })

	assert.Equal(t, "lost.jpg", items[1].Key())
}

func TestEqualEpochTieBrokenBySuffixUnsuffixedFirst(t *testing.T) {
	items := []model.MediaItem{
		{Path: "/m/beach##10.jpg", VersionSuffix: "10"},
		{Path: "/m/beach##2.jpg", VersionSuffix: "2"},
		{Path: "/m/beach##1.jpg", VersionSuffix: "1"},
		{Path: "/m/beach.jpg"},
	}
	SortItems(items, func(model.MediaItem) float64 { return 500 })

	assert.Equal(t, "", items[0].VersionSuffix)
	assert.Equal(t, "1", items[1].VersionSuffix)
	assert.Equal(t, "2", items[2].VersionSuffix, "suffixes compare numerically")
	assert.Equal(t, "10", items[3].VersionSuffix)
}

func TestEqualEpochTieStable(t *testing.T) {
	items := []model.MediaItem{
		{Path: "/m/one/shot.jpg"},
		{Path: "/m/two/shot.jpg"},
	}
	SortItems(items, func(model.MediaItem) float64 { return 500 })
	first := append([]model.MediaItem(nil), items...)

	SortItems(items, func(model.MediaItem) float64 { return 500 })
	assert.Equal(t, first, items, "residual ties are deterministic across runs")
}
