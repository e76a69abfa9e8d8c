package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediatag/model"
)

func TestLoadMissingFileYieldsEmptyCollection(t *testing.T) {
	repo := NewFileCollectionRepository(filepath.Join(t.TempDir(), "annotations.json"), "")

	c, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileCollectionRepository(filepath.Join(dir, "annotations.json"), "")

	c := model.NewCollection()
	rec := c.Record("beach.jpg")
	rec.Text = "shore"
	rec.Annotations = []model.Annotation{{Time: 0}, {Time: 12.5, Text: "waves", Skip: true}}
	rec.CreationDateTime = "2024/06/01 12:00:00"
	rec.LocalTimeZone = "+07:00"
	c.Settings.IncludedFolders = map[string]bool{"extra": false}
	require.NoError(t, repo.Save(c))

	loaded, err := repo.Load()
	require.NoError(t, err)
	got := loaded.Items["beach.jpg"]
	require.NotNil(t, got)
	assert.Equal(t, "shore", got.Text)
	assert.Equal(t, rec.Annotations, got.Annotations)
	assert.Equal(t, "+07:00", got.LocalTimeZone)
	assert.Equal(t, map[string]bool{"extra": false}, loaded.Settings.IncludedFolders)
	assert.NotContains(t, loaded.Items, "_settings", "the settings key never names an item")
}

func TestSaveWritesTimestampedBackup(t *testing.T) {
	dir := t.TempDir()
	backups := filepath.Join(dir, "backups")
	repo := NewFileCollectionRepository(filepath.Join(dir, "annotations.json"), backups)

	c := model.NewCollection()
	c.Record("a.jpg").Text = "first"
	require.NoError(t, repo.Save(c))

	entries, err := os.ReadDir(backups)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	name := entries[0].Name()
	assert.True(t, strings.HasPrefix(name, "annotations-"), name)
	assert.True(t, strings.HasSuffix(name, ".json"), name)

	// The backup holds the same document the primary write produced.
	primary, err := os.ReadFile(filepath.Join(dir, "annotations.json"))
	require.NoError(t, err)
	backup, err := os.ReadFile(filepath.Join(backups, name))
	require.NoError(t, err)
	assert.Equal(t, primary, backup)
}

func TestStoredDocumentShapeIsFlat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "annotations.json")
	repo := NewFileCollectionRepository(path, "")

	c := model.NewCollection()
	c.Record("beach.jpg").Annotations = []model.Annotation{{Time: 3, Text: "note"}}
	require.NoError(t, repo.Save(c))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "beach.jpg")
	assert.Contains(t, doc, "_settings", "settings live under the reserved key")
}
