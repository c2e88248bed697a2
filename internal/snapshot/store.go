package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gauthierbraillon/moltwatch/pkg/atomicfile"
)

// DateLayout is the calendar-day key format used for file names.
const DateLayout = "2006-01-02"

const fileExt = ".json"

// ErrNotFound is returned by Load when no snapshot exists for a date.
var ErrNotFound = errors.New("snapshot not found")

// CorruptSnapshotError reports a snapshot file that exists but cannot be decoded.
type CorruptSnapshotError struct {
	Date string
	Err  error
}

func (e *CorruptSnapshotError) Error() string {
	return fmt.Sprintf("snapshot %s is corrupt: %v", e.Date, e.Err)
}

func (e *CorruptSnapshotError) Unwrap() error { return e.Err }

// ParseDate validates a YYYY-MM-DD key.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate renders t as a date key.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Store persists one JSON document per date in a directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created on first Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory holding the snapshot files.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file that holds the snapshot for date.
func (s *Store) Path(date string) (string, error) {
	if _, err := ParseDate(date); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, date+fileExt), nil
}

// CheckWritable verifies the store directory can receive snapshots.
func (s *Store) CheckWritable() error {
	return atomicfile.CheckWritable(s.dir)
}

// Exists reports whether a snapshot file is present for date.
func (s *Store) Exists(date string) (bool, error) {
	path, err := s.Path(date)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat snapshot: %w", err)
	}
	return true, nil
}

// Load reads the snapshot for date.
func (s *Store) Load(date string) (*DailySnapshot, error) {
	path, err := s.Path(date)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) // #nosec G304 -- date is validated
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap DailySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &CorruptSnapshotError{Date: date, Err: err}
	}

	return &snap, nil
}

// Save replaces the snapshot for date. Readers see either the previous file
// or the new one, never a partial write.
func (s *Store) Save(date string, snap *DailySnapshot) error {
	path, err := s.Path(date)
	if err != nil {
		return err
	}
	if snap == nil {
		return errors.New("cannot save nil snapshot")
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := atomicfile.Write(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", date, err)
	}
	return nil
}

// ListDates returns the dates that have a snapshot file, oldest first.
func (s *Store) ListDates() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	dates := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		date := strings.TrimSuffix(name, fileExt)
		if _, err := ParseDate(date); err != nil {
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}
