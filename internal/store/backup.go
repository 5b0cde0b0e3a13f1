package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"castpress/internal/logger"
)

const (
	backupPrefix = "posts-backup-"
	backupSuffix = ".json"
	// backupTimeFormat sorts lexicographically in creation order.
	backupTimeFormat = "2006-01-02T15-04-05.000"
)

// CreateBackup copies the live store file into the backup directory under a
// sortable timestamped name and returns the backup path.
func (s *Store) CreateBackup() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createBackup()
}

func (s *Store) createBackup() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("reading store for backup: %w", err)
	}
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	name := backupPrefix + s.now().Format(backupTimeFormat) + backupSuffix
	path := filepath.Join(s.backupDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing backup %s: %w", path, err)
	}
	logger.Debug("backup created", "path", path)
	return path, nil
}

// CleanOldBackups deletes every backup beyond the configured retention
// count, newest first.
func (s *Store) CleanOldBackups() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanOldBackups()
}

func (s *Store) cleanOldBackups() error {
	names, err := s.listBackups()
	if err != nil {
		return err
	}
	if s.retention <= 0 || len(names) <= s.retention {
		return nil
	}

	for _, name := range names[s.retention:] {
		path := filepath.Join(s.backupDir, name)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing old backup %s: %w", path, err)
		}
		logger.Debug("old backup removed", "path", path)
	}
	return nil
}

// RestoreLatestBackup copies the most recent backup over the live store
// file. It fails with ErrNoBackups when the backup directory is empty.
func (s *Store) RestoreLatestBackup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoreLatestBackup()
}

func (s *Store) restoreLatestBackup() error {
	names, err := s.listBackups()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return ErrNoBackups
	}

	path := filepath.Join(s.backupDir, names[0])
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading backup %s: %w", path, err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("restoring store from %s: %w", path, err)
	}
	logger.Info("store restored from backup", "backup", path)
	return nil
}

// listBackups returns backup file names sorted by embedded timestamp,
// newest first.
func (s *Store) listBackups() ([]string, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing backup directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}
