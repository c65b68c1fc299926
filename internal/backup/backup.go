// Package backup provides periodic snapshots of the SQLite catalog
// database with integrity verification and count-based pruning. The
// catalog is rebuilt by the offline curation pipeline, so snapshots
// mainly protect user collections and persisted tuning.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const snapshotPrefix = "gamescout-snapshot-"

// Config holds snapshot service configuration.
type Config struct {
	// DBPath is the SQLite catalog file to snapshot.
	DBPath string

	// Dir is where snapshots are written.
	Dir string

	// Interval between snapshots (default: 6 hours).
	Interval time.Duration

	// Keep is how many snapshots to retain, newest first (default: 12).
	Keep int

	// Verify runs an integrity check after each snapshot (default when
	// built via NewService: true).
	Verify bool
}

// Snapshot describes one snapshot file on disk.
type Snapshot struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

// Service takes catalog snapshots on a timer.
type Service struct {
	cfg Config

	mu       sync.Mutex
	lastRun  time.Time
	running  bool
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewService validates the config and prepares the snapshot directory.
func NewService(cfg Config) (*Service, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("backup: database path is required")
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("backup: snapshot directory is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 6 * time.Hour
	}
	if cfg.Keep <= 0 {
		cfg.Keep = 12
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create snapshot directory: %w", err)
	}
	return &Service{cfg: cfg, stopCh: make(chan struct{})}, nil
}

// Run snapshots on the configured interval until the context ends or
// Stop is called. Blocking; run it in a goroutine.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("backup: service is already running")
	}
	s.running = true
	s.mu.Unlock()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	log.Printf("backup: snapshot service started interval=%v dir=%s", s.cfg.Interval, s.cfg.Dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			if snap, err := s.SnapshotNow(); err != nil {
				log.Printf("backup: scheduled snapshot failed: %v", err)
			} else {
				log.Printf("backup: snapshot written path=%s size=%d", snap.Path, snap.Size)
			}
		}
	}
}

// Stop ends a running Run loop.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// SnapshotNow writes one snapshot, verifies it when configured, and
// prunes old snapshots past the retention count.
func (s *Service) SnapshotNow() (*Snapshot, error) {
	if _, err := os.Stat(s.cfg.DBPath); err != nil {
		return nil, fmt.Errorf("backup: catalog not found: %w", err)
	}

	// Microsecond timestamp keeps names unique under rapid snapshots.
	name := snapshotPrefix + time.Now().Format("20060102-150405.000000") + ".db"
	path := filepath.Join(s.cfg.Dir, name)

	if err := vacuumInto(s.cfg.DBPath, path); err != nil {
		return nil, err
	}
	if s.cfg.Verify {
		if err := verifySnapshot(path); err != nil {
			_ = os.Remove(path)
			return nil, err
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("backup: stat snapshot: %w", err)
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()

	if err := s.prune(); err != nil {
		log.Printf("backup: prune failed: %v", err)
	}

	return &Snapshot{Path: path, Timestamp: info.ModTime(), Size: info.Size()}, nil
}

// List returns the snapshots on disk, newest first.
func (s *Service) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("backup: read snapshot directory: %w", err)
	}

	var snapshots []Snapshot
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), snapshotPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			Path:      filepath.Join(s.cfg.Dir, entry.Name()),
			Timestamp: info.ModTime(),
			Size:      info.Size(),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if !snapshots[i].Timestamp.Equal(snapshots[j].Timestamp) {
			return snapshots[i].Timestamp.After(snapshots[j].Timestamp)
		}
		// Name embeds a finer-grained timestamp than ModTime resolution.
		return snapshots[i].Path > snapshots[j].Path
	})
	return snapshots, nil
}

// Restore replaces the catalog with a verified snapshot. The server
// must not be running against the catalog during a restore.
func (s *Service) Restore(snapshotPath string) error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if running {
		return fmt.Errorf("backup: cannot restore while the snapshot service is running")
	}

	if err := verifySnapshot(snapshotPath); err != nil {
		return err
	}

	data, err := os.ReadFile(snapshotPath)
	if err != nil {
		return fmt.Errorf("backup: read snapshot: %w", err)
	}
	if err := os.WriteFile(s.cfg.DBPath, data, 0o644); err != nil {
		return fmt.Errorf("backup: write catalog: %w", err)
	}
	return verifySnapshot(s.cfg.DBPath)
}

// prune removes snapshots beyond the retention count, oldest first.
func (s *Service) prune() error {
	snapshots, err := s.List()
	if err != nil {
		return err
	}
	if len(snapshots) <= s.cfg.Keep {
		return nil
	}

	var lastErr error
	for _, snap := range snapshots[s.cfg.Keep:] {
		if err := os.Remove(snap.Path); err != nil {
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("backup: failed to delete some snapshots: %w", lastErr)
	}
	return nil
}

// vacuumInto writes a consistent point-in-time copy of the database.
// VACUUM INTO handles WAL mode correctly.
func vacuumInto(sourcePath, destPath string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", sourcePath))
	if err != nil {
		return fmt.Errorf("backup: open catalog: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("backup: ping catalog: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return fmt.Errorf("backup: vacuum into %s: %w", destPath, err)
	}
	return nil
}

// verifySnapshot runs SQLite's integrity check against a snapshot file.
func verifySnapshot(path string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return fmt.Errorf("backup: open snapshot: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("backup: integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("backup: integrity check failed: %s", result)
	}
	return nil
}
