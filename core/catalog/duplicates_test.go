package catalog

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediatag/core/timestamp"
	"mediatag/repository"
)

// beachFixture lays out two files named beach.jpg under distinct subfolders,
// with equal modification times, plus a store document holding one record
// under the shared, unsuffixed name.
func beachFixture(t *testing.T) (root, storePath string) {
	t.Helper()
	root = t.TempDir()
	mtime := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, sub := range []string{"trip-a", "trip-b"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, sub), 0755))
		p := filepath.Join(root, sub, "beach.jpg")
		require.NoError(t, os.WriteFile(p, []byte("not a real jpeg"), 0644))
		require.NoError(t, os.Chtimes(p, mtime, mtime))
	}

	storePath = filepath.Join(root, "annotations.json")
	doc := map[string]interface{}{
		"beach.jpg": map[string]interface{}{"text": "shore"},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(storePath, data, 0644))
	return root, storePath
}

func openFixture(t *testing.T, root, storePath string) *Catalog {
	t.Helper()
	repo := repository.NewFileCollectionRepository(storePath, filepath.Join(root, ".backups"))
	cat, err := Open(root, repo, timestamp.NewResolver(nil))
	require.NoError(t, err)
	return cat
}

func TestDuplicateGroupDetected(t *testing.T) {
	root, storePath := beachFixture(t)
	cat := openFixture(t, root, storePath)

	groups := cat.PendingDuplicates()
	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, "beach.jpg", g.Name)
	require.Len(t, g.Members, 2)
	assert.True(t, strings.HasSuffix(g.Members[0].Path, filepath.Join("trip-a", "beach.jpg")))
	assert.True(t, strings.HasSuffix(g.Members[1].Path, filepath.Join("trip-b", "beach.jpg")))
	assert.True(t, g.SameEpoch, "equal file times resolve to one epoch")
}

func TestApplyDuplicateGroupForksEveryMember(t *testing.T) {
	root, storePath := beachFixture(t)
	cat := openFixture(t, root, storePath)

	groups := cat.PendingDuplicates()
	require.Len(t, groups, 1)
	require.NoError(t, cat.ApplyDuplicateGroup(groups[0]))

	// Physical files carry the version marker before the extension.
	assert.FileExists(t, filepath.Join(root, "trip-a", "beach##1.jpg"))
	assert.FileExists(t, filepath.Join(root, "trip-b", "beach##2.jpg"))
	assert.NoFileExists(t, filepath.Join(root, "trip-a", "beach.jpg"))
	assert.NoFileExists(t, filepath.Join(root, "trip-b", "beach.jpg"))

	// The stored record followed the first member; the second starts fresh.
	assert.Equal(t, "shore", cat.Record("beach.jpg##1").Text)
	assert.Empty(t, cat.Record("beach.jpg##2").Text)
	assert.Empty(t, cat.PendingDuplicates())

	// The persisted document no longer carries the unsuffixed key.
	repo := repository.NewFileCollectionRepository(storePath, "")
	stored, err := repo.Load()
	require.NoError(t, err)
	_, unsuffixed := stored.Items["beach.jpg"]
	assert.False(t, unsuffixed)
	require.Contains(t, stored.Items, "beach.jpg##1")
	assert.Equal(t, "shore", stored.Items["beach.jpg##1"].Text)
	assert.Contains(t, stored.Items, "beach.jpg##2")
}

func TestApplyDuplicateGroupSkipsTakenSuffixes(t *testing.T) {
	root, storePath := beachFixture(t)
	taken := filepath.Join(root, "trip-a", "beach##1.jpg")
	require.NoError(t, os.WriteFile(taken, []byte("not a real jpeg"), 0644))
	cat := openFixture(t, root, storePath)

	groups := cat.PendingDuplicates()
	require.Len(t, groups, 1, "suffixed items never join a duplicate group")
	require.NoError(t, cat.ApplyDuplicateGroup(groups[0]))

	assert.FileExists(t, filepath.Join(root, "trip-a", "beach##2.jpg"))
	assert.FileExists(t, filepath.Join(root, "trip-b", "beach##3.jpg"))
	assert.Equal(t, "shore", cat.Record("beach.jpg##2").Text)
}

// failingRenamer fails on the first target matching its trigger, after
// letting earlier renames through.
type failingRenamer struct {
	real    Renamer
	trigger string
}

func (f failingRenamer) Rename(oldPath, newPath string) error {
	if strings.Contains(newPath, f.trigger) {
		return errors.New("disk on fire")
	}
	return f.real.Rename(oldPath, newPath)
}

func TestApplyDuplicateGroupRollsBackOnRenameFailure(t *testing.T) {
	root, storePath := beachFixture(t)
	cat := openFixture(t, root, storePath)
	cat.renamer = failingRenamer{real: osRenamer{}, trigger: "##2"}

	groups := cat.PendingDuplicates()
	require.Len(t, groups, 1)
	err := cat.ApplyDuplicateGroup(groups[0])
	require.Error(t, err)

	// Either all members fork or none do.
	assert.FileExists(t, filepath.Join(root, "trip-a", "beach.jpg"))
	assert.FileExists(t, filepath.Join(root, "trip-b", "beach.jpg"))
	assert.NoFileExists(t, filepath.Join(root, "trip-a", "beach##1.jpg"))

	assert.Equal(t, "shore", cat.Record("beach.jpg").Text)
	assert.Len(t, cat.PendingDuplicates(), 1, "a failed group stays queued")
}

func TestDistinctFilenamesNeverGroup(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.jpg", "b.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0644))
	}
	cat := openFixture(t, root, filepath.Join(root, "annotations.json"))
	assert.Empty(t, cat.PendingDuplicates())
	assert.Len(t, cat.Items(), 2)
}
