package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"mediatag/logger"
	"mediatag/model"
)

// DuplicateGroup is a set of logical items whose physical files share one
// filename but live under distinct paths.
type DuplicateGroup struct {
	Name    string            `json:"name"`
	Members []model.MediaItem `json:"members"`
	// SameEpoch distinguishes a likely true duplicate (all members resolved
	// to the same timestamp) from different captures sharing a name. Purely
	// informational for the caller.
	SameEpoch bool `json:"sameEpoch"`
}

// Renamer performs physical renames. Split out so tests, and callers that
// route moves through a different facility, can substitute one.
type Renamer interface {
	Rename(oldPath, newPath string) error
}

type osRenamer struct{}

func (osRenamer) Rename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

// FindDuplicateGroups groups unsuffixed items by filename and returns every
// group with more than one distinct path, members ordered by path.
func FindDuplicateGroups(items []model.MediaItem, epochOf func(model.MediaItem) float64) []DuplicateGroup {
	byName := make(map[string][]model.MediaItem)
	for _, item := range items {
		if item.VersionSuffix != "" {
			continue
		}
		byName[item.Filename()] = append(byName[item.Filename()], item)
	}

	names := make([]string, 0, len(byName))
	for name, members := range byName {
		if len(members) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var groups []DuplicateGroup
	for _, name := range names {
		members := byName[name]
		sort.Slice(members, func(i, j int) bool { return members[i].Path < members[j].Path })

		same := true
		first := epochOf(members[0])
		for _, m := range members[1:] {
			if epochOf(m) != first {
				same = false
				break
			}
		}
		groups = append(groups, DuplicateGroup{Name: name, Members: members, SameEpoch: same})
	}
	return groups
}

// ApplyDuplicateGroup forks every member of the group into a versioned
// identity: each receives the lowest unused suffix for its name, its file
// is renamed to embed the suffix, and the stored record under the
// unsuffixed key is relocated to the first member's new key. The group
// applies atomically: a failed rename rolls back the members already
// renamed, leaving records and files as they were.
func (c *Catalog) ApplyDuplicateGroup(g DuplicateGroup) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyDuplicateGroupLocked(g)
}

func (c *Catalog) applyDuplicateGroupLocked(g DuplicateGroup) error {
	used := c.usedSuffixes(g.Name)

	type rename struct {
		oldPath, newPath string
		oldKey, newKey   string
		suffix           string
	}
	var plan []rename

	next := 1
	for _, member := range g.Members {
		for used[strconv.Itoa(next)] {
			next++
		}
		suffix := strconv.Itoa(next)
		used[suffix] = true

		newName := model.VersionedFilename(g.Name, suffix)
		plan = append(plan, rename{
			oldPath: member.Path,
			newPath: filepath.Join(filepath.Dir(member.Path), newName),
			oldKey:  member.Key(),
			newKey:  g.Name + model.VersionSeparator + suffix,
			suffix:  suffix,
		})
	}

	var done []rename
	for _, r := range plan {
		if err := c.renamer.Rename(r.oldPath, r.newPath); err != nil {
			// Roll the group back: either all members fork or none do.
			for i := len(done) - 1; i >= 0; i-- {
				d := done[i]
				if rbErr := c.renamer.Rename(d.newPath, d.oldPath); rbErr != nil {
					logger.Error("duplicate group rollback failed",
						logger.String("path", d.newPath), logger.ErrorField(rbErr))
				}
			}
			return fmt.Errorf("failed to rename %s: %w", r.oldPath, err)
		}
		done = append(done, r)
	}

	// Files are in place; relocate metadata. The record stored under the
	// unsuffixed key belongs to the first member; later members start fresh.
	for i, r := range plan {
		if i == 0 {
			c.collection.Relocate(r.oldKey, r.newKey)
			c.resolver.Relocate(r.oldKey, r.newKey)
			c.relocateRuntime(r.oldKey, r.newKey)
		} else {
			c.collection.Record(r.newKey)
		}
		c.updateItemIdentity(r.oldPath, r.newPath, r.suffix)
	}

	c.removePending(g.Name)
	c.sortLocked()
	logger.Info("duplicate group resolved",
		logger.String("name", g.Name), logger.Int("members", len(plan)))
	return c.saveLocked()
}

// usedSuffixes collects version suffixes already present for a filename,
// across both scanned items and store keys.
func (c *Catalog) usedSuffixes(name string) map[string]bool {
	used := make(map[string]bool)
	for _, item := range c.items {
		if item.Filename() == name && item.VersionSuffix != "" {
			used[item.VersionSuffix] = true
		}
	}
	prefix := name + model.VersionSeparator
	for key := range c.collection.Items {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			used[key[len(prefix):]] = true
		}
	}
	return used
}

// updateItemIdentity rewrites the scanned item matching oldPath to its
// forked identity.
func (c *Catalog) updateItemIdentity(oldPath, newPath, suffix string) {
	for i, item := range c.items {
		if item.Path == oldPath && item.VersionSuffix == "" {
			c.items[i] = model.MediaItem{Path: newPath, VersionSuffix: suffix}
			return
		}
	}
}

// relocateRuntime moves the per-item runtime state (timeline, session,
// engine) between keys.
func (c *Catalog) relocateRuntime(oldKey, newKey string) {
	if t, ok := c.timelines[oldKey]; ok {
		delete(c.timelines, oldKey)
		c.timelines[newKey] = t
	}
	if s, ok := c.sessions[oldKey]; ok {
		delete(c.sessions, oldKey)
		c.sessions[newKey] = s
	}
	if e, ok := c.engines[oldKey]; ok {
		delete(c.engines, oldKey)
		c.engines[newKey] = e
	}
}

func (c *Catalog) removePending(name string) {
	for i, g := range c.pending {
		if g.Name == name {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

// PendingDuplicates returns the duplicate groups awaiting a decision.
// Declined groups stay queued and reappear on the next run.
func (c *Catalog) PendingDuplicates() []DuplicateGroup {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]DuplicateGroup, len(c.pending))
	copy(out, c.pending)
	return out
}
