// Package backup copies the SQLite database into the data directory on a
// schedule and rotates old copies.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jesposito/walkabout/config"
	"github.com/jesposito/walkabout/pkg/logger"
)

const backupPrefix = "walkabout-"

// Service backs up a SQLite database file.
type Service struct {
	dbPath    string
	backupDir string
	maxKeep   int

	now func() time.Time
}

// NewService creates a backup service for the given database file. Postgres
// deployments pass an empty path and get a disabled service.
func NewService(dbPath string, dataDir string, cfg config.BackupConfig) *Service {
	return &Service{
		dbPath:    dbPath,
		backupDir: filepath.Join(dataDir, "backups"),
		maxKeep:   cfg.MaxKeep,
		now:       time.Now,
	}
}

// Enabled reports whether there is a database file to back up.
func (s *Service) Enabled() bool {
	return s.dbPath != "" && s.dbPath != ":memory:"
}

// Run copies the database and rotates old backups.
func (s *Service) Run() (string, error) {
	if !s.Enabled() {
		return "", nil
	}

	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("%s%s.db", backupPrefix, s.now().UTC().Format("20060102-150405"))
	dest := filepath.Join(s.backupDir, name)

	if err := copyFile(s.dbPath, dest); err != nil {
		return "", fmt.Errorf("copy database: %w", err)
	}

	if err := s.rotate(); err != nil {
		logger.Warn("Backup rotation failed", "error", err)
	}

	logger.Info("Database backup written", "path", dest)
	return dest, nil
}

// rotate deletes the oldest backups beyond maxKeep.
func (s *Service) rotate() error {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return err
	}

	var backups []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), backupPrefix) && strings.HasSuffix(entry.Name(), ".db") {
			backups = append(backups, entry.Name())
		}
	}
	if len(backups) <= s.maxKeep {
		return nil
	}

	// Timestamped names sort chronologically.
	sort.Strings(backups)
	for _, name := range backups[:len(backups)-s.maxKeep] {
		if err := os.Remove(filepath.Join(s.backupDir, name)); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
