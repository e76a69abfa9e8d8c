package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediatag/logger"
	"mediatag/model"
)

// CollectionRepository persists one collection's store document.
type CollectionRepository interface {
	Load() (*model.Collection, error)
	Save(c *model.Collection) error
}

// fileCollectionRepository keeps the collection as a single JSON document,
// writing a timestamped backup copy alongside the primary file on every
// save.
type fileCollectionRepository struct {
	path      string
	backupDir string
}

// NewFileCollectionRepository creates a repository for the document at
// path. backupDir may be empty, in which case backups land next to the
// primary file.
func NewFileCollectionRepository(path, backupDir string) CollectionRepository {
	if backupDir == "" {
		backupDir = filepath.Dir(path)
	}
	return &fileCollectionRepository{path: path, backupDir: backupDir}
}

// Load reads the store document. A missing file yields an empty collection,
// not an error: a fresh folder has simply never been annotated.
func (r *fileCollectionRepository) Load() (*model.Collection, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewCollection(), nil
		}
		return nil, fmt.Errorf("failed to read store %s: %w", r.path, err)
	}

	c := model.NewCollection()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse store %s: %w", r.path, err)
	}
	return c, nil
}

// Save writes the document atomically (temp file + rename) and drops a
// timestamped backup of the new content alongside.
func (r *fileCollectionRepository) Save(c *model.Collection) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".store-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp store file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace store %s: %w", r.path, err)
	}

	if err := r.writeBackup(data); err != nil {
		// The primary write succeeded; a failed backup is not fatal.
		logger.Warn("store backup failed", logger.ErrorField(err))
	}
	return nil
}

func (r *fileCollectionRepository) writeBackup(data []byte) error {
	if err := os.MkdirAll(r.backupDir, 0755); err != nil {
		return fmt.Errorf("failed to create backup dir %s: %w", r.backupDir, err)
	}
	base := filepath.Base(r.path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	name := fmt.Sprintf("%s-%s%s", stem, time.Now().Format("20060102-150405"), ext)
	backupPath := filepath.Join(r.backupDir, name)
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write backup %s: %w", backupPath, err)
	}
	return nil
}
