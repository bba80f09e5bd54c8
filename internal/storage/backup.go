package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// BackupManager handles writing and loading favorites backup files.
// Each backup is a complete export so any single file can restore the list.
type BackupManager struct {
	dir string
}

// NewBackupManager creates a new backup manager.
// dir: directory to store backup files.
func NewBackupManager(dir string) *BackupManager {
	return &BackupManager{dir: dir}
}

// Save writes a favorites export to disk and returns the file path.
func (bm *BackupManager) Save(export *FavoritesExport) (string, error) {
	if err := os.MkdirAll(bm.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup dir: %w", err)
	}

	filename := fmt.Sprintf("favorites_%d.json", export.ExportTime)
	path := filepath.Join(bm.dir, filename)

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal backup: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	slog.Info("Favorites backup saved",
		slog.Int("count", len(export.Favorites)),
		slog.String("path", path))

	return path, nil
}

// LoadLatest loads the most recent backup from disk.
// Returns nil if no backup exists.
func (bm *BackupManager) LoadLatest() (*FavoritesExport, error) {
	entries, err := os.ReadDir(bm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No backups yet
		}
		return nil, fmt.Errorf("failed to read backup dir: %w", err)
	}

	var latestPath string
	var latestTs int64

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		var ts int64
		_, err := fmt.Sscanf(entry.Name(), "favorites_%d.json", &ts)
		if err != nil {
			continue // Not a backup file
		}

		if ts > latestTs {
			latestTs = ts
			latestPath = filepath.Join(bm.dir, entry.Name())
		}
	}

	if latestPath == "" {
		return nil, nil // No backups found
	}

	data, err := os.ReadFile(latestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}

	var export FavoritesExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to unmarshal backup: %w", err)
	}

	slog.Info("Favorites backup loaded",
		slog.Int("count", len(export.Favorites)),
		slog.String("path", latestPath))

	return &export, nil
}

// Cleanup removes old backups, keeping only the latest N.
func (bm *BackupManager) Cleanup(keepCount int) error {
	entries, err := os.ReadDir(bm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	type backupFile struct {
		path string
		ts   int64
	}
	var files []backupFile

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var ts int64
		if _, err := fmt.Sscanf(entry.Name(), "favorites_%d.json", &ts); err == nil {
			files = append(files, backupFile{
				path: filepath.Join(bm.dir, entry.Name()),
				ts:   ts,
			})
		}
	}

	if len(files) <= keepCount {
		return nil
	}

	// Simple bubble sort (small N)
	for i := 0; i < len(files); i++ {
		for j := i + 1; j < len(files); j++ {
			if files[j].ts > files[i].ts {
				files[i], files[j] = files[j], files[i]
			}
		}
	}

	for i := keepCount; i < len(files); i++ {
		if err := os.Remove(files[i].path); err != nil {
			slog.Warn("Failed to remove old backup", slog.String("path", files[i].path))
		} else {
			slog.Info("Removed old backup", slog.String("path", files[i].path))
		}
	}

	return nil
}
