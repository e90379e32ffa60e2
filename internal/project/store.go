// Package project keeps the user-scope registry of repositories with
// codewatch initialized.
//
// The registry lives in the user config directory and is shared by every
// repository on the machine, so mutations run under an exclusive file lock
// and saves are atomic.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anthropics/codewatch/internal/flock"
	"github.com/anthropics/codewatch/internal/subs"
	"github.com/google/uuid"
)

const (
	// DataDirName is the directory under the user config dir.
	DataDirName = "codewatch"
	// ProjectsFileName is the registry file.
	ProjectsFileName = "projects.json"
)

// Project is a registered repository.
type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"` // display name, defaults to the repo directory name
	Path      string `json:"path"` // absolute path to the repository root
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// registryFile is the persisted document.
type registryFile struct {
	SchemaVersion int       `json:"schema_version"`
	Projects      []Project `json:"projects"`
}

// NotFoundError is returned when a project id or name does not exist.
type NotFoundError struct {
	Ref string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("project not found: %s", e.Ref)
}

// InvalidPathError is returned when a registered path is not a directory.
type InvalidPathError struct {
	Path   string
	Reason string
}

// Error implements the error interface.
func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid project path %s: %s", e.Path, e.Reason)
}

// Store manages the project registry.
type Store struct {
	dataDir string
	path    string
}

// NewStore creates a store in the user config directory. dataDir overrides
// the location, mainly for tests.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		dataDir = filepath.Join(base, DataDirName)
	}
	return &Store{
		dataDir: dataDir,
		path:    filepath.Join(dataDir, ProjectsFileName),
	}, nil
}

// Add registers a repository root under a display name. An empty name
// defaults to the directory name. Re-registering an existing path updates
// its name.
func (s *Store) Add(name, repoRoot string) (*Project, error) {
	abs, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, &InvalidPathError{Path: repoRoot, Reason: err.Error()}
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, &InvalidPathError{Path: abs, Reason: "not a directory"}
	}
	if name == "" {
		name = filepath.Base(abs)
	}

	var added *Project
	err = s.mutate(func(reg *registryFile) error {
		for i := range reg.Projects {
			if reg.Projects[i].Path == abs {
				reg.Projects[i].Name = name
				reg.Projects[i].UpdatedAt = subs.UTCNow()
				p := reg.Projects[i]
				added = &p
				return nil
			}
		}

		now := subs.UTCNow()
		p := Project{
			ID:        uuid.NewString(),
			Name:      name,
			Path:      abs,
			CreatedAt: now,
			UpdatedAt: now,
		}
		reg.Projects = append(reg.Projects, p)
		added = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// List returns all registered projects.
func (s *Store) List() ([]Project, error) {
	reg, err := s.load()
	if err != nil {
		return nil, err
	}
	return reg.Projects, nil
}

// Get finds a project by id (or unique id prefix) or name.
func (s *Store) Get(ref string) (*Project, error) {
	reg, err := s.load()
	if err != nil {
		return nil, err
	}

	for i := range reg.Projects {
		if reg.Projects[i].ID == ref || reg.Projects[i].Name == ref {
			p := reg.Projects[i]
			return &p, nil
		}
	}

	match := -1
	for i := range reg.Projects {
		if len(ref) >= 4 && len(reg.Projects[i].ID) >= len(ref) && reg.Projects[i].ID[:len(ref)] == ref {
			if match >= 0 {
				return nil, &NotFoundError{Ref: ref + " (ambiguous prefix)"}
			}
			match = i
		}
	}
	if match < 0 {
		return nil, &NotFoundError{Ref: ref}
	}
	p := reg.Projects[match]
	return &p, nil
}

// Remove deletes a project by id or name.
func (s *Store) Remove(ref string) error {
	return s.mutate(func(reg *registryFile) error {
		for i := range reg.Projects {
			if reg.Projects[i].ID == ref || reg.Projects[i].Name == ref {
				reg.Projects = append(reg.Projects[:i], reg.Projects[i+1:]...)
				return nil
			}
		}
		return &NotFoundError{Ref: ref}
	})
}

// load reads the registry, returning an empty one when absent.
func (s *Store) load() (*registryFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &registryFile{SchemaVersion: 1}, nil
		}
		return nil, err
	}

	var reg registryFile
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// mutate runs fn under an exclusive lock and saves atomically.
func (s *Store) mutate(fn func(*registryFile) error) error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return err
	}

	unlock, err := flock.Lock(filepath.Join(s.dataDir, ".projects.lock"))
	if err != nil {
		return err
	}
	defer unlock()

	reg, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(reg); err != nil {
		return err
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dataDir, ".projects_*.tmp")
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
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
