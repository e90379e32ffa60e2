package subs

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/anthropics/codewatch/internal/flock"
)

const (
	// ConfigDirName is the per-repository codewatch directory.
	ConfigDirName = ".codewatch"
	// ConfigFileName is the subscriptions file inside ConfigDirName.
	ConfigFileName = "subscriptions.json"
)

// Store reads and writes the subscriptions file for one repository.
//
// Mutating operations take an exclusive file lock for the whole
// read-modify-write cycle, and every save is atomic
// (write-temp-then-rename).
type Store struct {
	repoRoot   string
	configDir  string
	configPath string
}

// NewStore creates a store rooted at the repository root.
func NewStore(repoRoot string) *Store {
	configDir := filepath.Join(repoRoot, ConfigDirName)
	return &Store{
		repoRoot:   repoRoot,
		configDir:  configDir,
		configPath: filepath.Join(configDir, ConfigFileName),
	}
}

// Path returns the subscriptions file path.
func (s *Store) Path() string {
	return s.configPath
}

// Exists reports whether the subscriptions file exists.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.configPath)
	return err == nil
}

// Init creates a new subscriptions file anchored at baselineRef.
func (s *Store) Init(baselineRef string, force bool) (*File, error) {
	if s.Exists() && !force {
		return nil, &ConfigExistsError{Path: s.configPath}
	}

	file := NewFile(baselineRef)
	if err := s.Save(file); err != nil {
		return nil, err
	}
	return file, nil
}

// Load reads the subscriptions file.
func (s *Store) Load() (*File, error) {
	data, err := os.ReadFile(s.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigNotFoundError{Path: s.configPath}
		}
		return nil, err
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	if file.SchemaVersion != SchemaVersion {
		return nil, &InvalidSchemaVersionError{
			Found:     file.SchemaVersion,
			Supported: SchemaVersion,
		}
	}

	return &file, nil
}

// Save writes the subscriptions file atomically, stamping the repo state's
// updated_at.
func (s *Store) Save(file *File) error {
	if err := os.MkdirAll(s.configDir, 0o755); err != nil {
		return err
	}

	file.Repo.UpdatedAt = UTCNow()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.configDir, ".subscriptions_*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, s.configPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Mutate runs fn under an exclusive lock with the loaded file and saves
// the result when fn succeeds.
func (s *Store) Mutate(fn func(*File) error) error {
	if err := os.MkdirAll(s.configDir, 0o755); err != nil {
		return err
	}

	unlock, err := flock.Lock(filepath.Join(s.configDir, ".subscriptions.lock"))
	if err != nil {
		return err
	}
	defer unlock()

	file, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(file); err != nil {
		return err
	}
	return s.Save(file)
}

// Add appends a subscription.
func (s *Store) Add(sub Subscription) error {
	return s.Mutate(func(file *File) error {
		file.Subscriptions = append(file.Subscriptions, sub)
		return nil
	})
}

// Remove deletes a subscription by id (full id or unique prefix).
func (s *Store) Remove(id string) error {
	return s.Mutate(func(file *File) error {
		idx, err := findSubscription(file.Subscriptions, id)
		if err != nil {
			return err
		}
		file.Subscriptions = append(file.Subscriptions[:idx], file.Subscriptions[idx+1:]...)
		return nil
	})
}

// SetActive pauses or resumes a subscription by id.
func (s *Store) SetActive(id string, active bool) error {
	return s.Mutate(func(file *File) error {
		idx, err := findSubscription(file.Subscriptions, id)
		if err != nil {
			return err
		}
		file.Subscriptions[idx].Active = active
		file.Subscriptions[idx].UpdatedAt = UTCNow()
		return nil
	})
}

// UpdateBaseline advances the stored baseline ref.
func (s *Store) UpdateBaseline(ref string) error {
	return s.Mutate(func(file *File) error {
		file.Repo.BaselineRef = ref
		return nil
	})
}

// Get returns a subscription by id (full id or unique prefix).
func (s *Store) Get(id string) (*Subscription, error) {
	file, err := s.Load()
	if err != nil {
		return nil, err
	}
	idx, err := findSubscription(file.Subscriptions, id)
	if err != nil {
		return nil, err
	}
	sub := file.Subscriptions[idx]
	return &sub, nil
}

// findSubscription locates a subscription by exact id, falling back to a
// unique prefix match.
func findSubscription(subscriptions []Subscription, id string) (int, error) {
	for i := range subscriptions {
		if subscriptions[i].ID == id {
			return i, nil
		}
	}

	match := -1
	for i := range subscriptions {
		if len(id) >= 4 && len(subscriptions[i].ID) >= len(id) && subscriptions[i].ID[:len(id)] == id {
			if match >= 0 {
				return -1, &SubscriptionNotFoundError{ID: id + " (ambiguous prefix)"}
			}
			match = i
		}
	}
	if match < 0 {
		return -1, &SubscriptionNotFoundError{ID: id}
	}
	return match, nil
}
