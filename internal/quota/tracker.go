package quota

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"daily-bars/internal/domain"
)

const dayFormat = "2006-01-02"

// FileTracker persists quota state as a small JSON file on local disk. A
// crash between a recorded call and the save loses at most that one call.
type FileTracker struct {
	path string
	now  func() time.Time
}

type trackerFile struct {
	Day       string `json:"day"`
	CallsMade int    `json:"calls_made"`
}

func NewFileTracker(path string) *FileTracker {
	return &FileTracker{path: path, now: time.Now}
}

// Load reads the persisted state. When no file exists yet it returns a fresh
// state for the current UTC day with zero calls. A file that exists but
// cannot be parsed is an error: silently resetting would forge quota headroom
// the provider never granted.
func (t *FileTracker) Load() (domain.QuotaState, error) {
	data, err := os.ReadFile(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewQuotaState(t.now()), nil
	}
	if err != nil {
		return domain.QuotaState{}, fmt.Errorf("read quota file: %w", err)
	}

	var f trackerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return domain.QuotaState{}, fmt.Errorf("parse quota file %s: %w", t.path, err)
	}
	day, err := time.ParseInLocation(dayFormat, f.Day, time.UTC)
	if err != nil {
		return domain.QuotaState{}, fmt.Errorf("parse quota day %q: %w", f.Day, err)
	}
	if f.CallsMade < 0 {
		return domain.QuotaState{}, fmt.Errorf("invalid calls_made %d in %s", f.CallsMade, t.path)
	}

	return domain.QuotaState{Day: day, CallsMade: f.CallsMade}, nil
}

// Save durably persists the state. It writes a temp file and renames it over
// the target so a crash mid-write cannot corrupt the tracker.
func (t *FileTracker) Save(state domain.QuotaState) error {
	data, err := json.Marshal(trackerFile{
		Day:       domain.DateOnly(state.Day).Format(dayFormat),
		CallsMade: state.CallsMade,
	})
	if err != nil {
		return fmt.Errorf("encode quota state: %w", err)
	}

	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create quota dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "quota-*.json")
	if err != nil {
		return fmt.Errorf("create quota temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write quota state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close quota temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), t.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace quota file: %w", err)
	}
	return nil
}
