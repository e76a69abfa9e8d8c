package catalog

import (
	"sort"
	"strconv"

	"mediatag/model"
)

// orderKey is the derived sort key for one catalog entry. It is recomputed
// whenever its inputs change and never cached across mutations.
type orderKey struct {
	epoch    float64
	suffix   string
	filename string
	path     string
}

// less implements the ordering key precedence: epoch (manual override, else
// resolved, else far-future sentinel — encoded in epoch by the caller),
// then version suffix with unsuffixed entries first, then filename and path
// as the deterministic residual tie-break.
func (a orderKey) less(b orderKey) bool {
	if a.epoch != b.epoch {
		return a.epoch < b.epoch
	}
	if a.suffix != b.suffix {
		return suffixLess(a.suffix, b.suffix)
	}
	if a.filename != b.filename {
		return a.filename < b.filename
	}
	return a.path < b.path
}

// suffixLess orders version suffixes: empty first, then numerically when
// both parse, then lexically.
func suffixLess(a, b string) bool {
	if a == "" || b == "" {
		return a == ""
	}
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

// SortItems orders items in place by the catalog order key. epochOf maps an
// item to its ordering epoch (manual override epoch, else resolved utcEpoch
// post-inference, else sentinel); it is consulted once per item, which
// keeps a re-sort after a single manual edit cheap.
func SortItems(items []model.MediaItem, epochOf func(model.MediaItem) float64) {
	keys := make(map[model.MediaItem]orderKey, len(items))
	for _, item := range items {
		keys[item] = orderKey{
			epoch:    epochOf(item),
			suffix:   item.VersionSuffix,
			filename: item.Filename(),
			path:     item.Path,
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return keys[items[i]].less(keys[items[j]])
	})
}
