package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/synaptica-ai/maternal-risk/pkg/risk"
)

const (
	latestFile   = "latest.json"
	artifactExt  = ".json"
	stagingMark  = ".staging-"
	defaultKeep  = 3
	dirPerm      = 0o755
	artifactPerm = 0o644
)

// pointer is the content of latest.json.
type pointer struct {
	Version   string       `json:"version"`
	Variant   risk.Variant `json:"variant"`
	CreatedAt time.Time    `json:"created_at"`
}

// FileStore keeps each artifact set in its own version directory and points
// at the active one with latest.json:
//
//	<dir>/<version>/scaler.json
//	<dir>/<version>/risk_model.json
//	<dir>/<version>/condition_model.json
//	<dir>/latest.json
type FileStore struct {
	dir  string
	keep int

	mu     sync.RWMutex
	cached *risk.ArtifactSet
}

// NewFileStore keeps the newest keep versions on disk; keep <= 0 uses 3.
func NewFileStore(dir string, keep int) (*FileStore, error) {
	if keep <= 0 {
		keep = defaultKeep
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &FileStore{dir: dir, keep: keep}, nil
}

// LoadArtifacts reads the set latest.json points at. Blobs are cached per
// version; the small pointer file is re-read on every call.
func (f *FileStore) LoadArtifacts(ctx context.Context) (risk.ArtifactSet, error) {
	content, err := os.ReadFile(filepath.Join(f.dir, latestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return risk.ArtifactSet{}, risk.ErrArtifactsNotFound
	}
	if err != nil {
		return risk.ArtifactSet{}, err
	}
	var ptr pointer
	if err := json.Unmarshal(content, &ptr); err != nil {
		return risk.ArtifactSet{}, fmt.Errorf("decode %s: %w", latestFile, err)
	}
	if ptr.Version == "" {
		return risk.ArtifactSet{}, risk.ErrArtifactsNotFound
	}

	f.mu.RLock()
	cached := f.cached
	f.mu.RUnlock()
	if cached != nil && cached.Version == ptr.Version {
		return cloneSet(*cached), nil
	}

	set := risk.ArtifactSet{
		Version:   ptr.Version,
		Variant:   ptr.Variant,
		CreatedAt: ptr.CreatedAt,
		Blobs:     make(map[string][]byte, len(risk.ArtifactNames)),
	}
	for _, name := range risk.ArtifactNames {
		if err := ctx.Err(); err != nil {
			return risk.ArtifactSet{}, err
		}
		blob, err := os.ReadFile(filepath.Join(f.dir, ptr.Version, name+artifactExt))
		if errors.Is(err, fs.ErrNotExist) {
			return risk.ArtifactSet{}, fmt.Errorf("artifact %s of %s: %w", name, ptr.Version, risk.ErrArtifactMismatch)
		}
		if err != nil {
			return risk.ArtifactSet{}, err
		}
		set.Blobs[name] = blob
	}

	f.mu.Lock()
	clone := cloneSet(set)
	f.cached = &clone
	f.mu.Unlock()
	return set, nil
}

// SaveArtifacts stages the blobs in a scratch directory, renames it into
// place and only then swaps latest.json, so readers never see a partial set.
func (f *FileStore) SaveArtifacts(ctx context.Context, set risk.ArtifactSet) error {
	if set.Version == "" || strings.ContainsAny(set.Version, `/\`) || strings.HasPrefix(set.Version, ".") {
		return fmt.Errorf("invalid artifact version %q: %w", set.Version, risk.ErrInvalidInput)
	}

	staging, err := os.MkdirTemp(f.dir, stagingMark)
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	for _, name := range risk.ArtifactNames {
		blob, ok := set.Blobs[name]
		if !ok {
			return fmt.Errorf("artifact %s missing from set %s: %w", name, set.Version, risk.ErrArtifactMismatch)
		}
		if err := writeSynced(filepath.Join(staging, name+artifactExt), blob); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	final := filepath.Join(f.dir, set.Version)
	if err := os.RemoveAll(final); err != nil {
		return err
	}
	if err := os.Rename(staging, final); err != nil {
		return fmt.Errorf("publish version dir: %w", err)
	}

	ptr, err := json.Marshal(pointer{Version: set.Version, Variant: set.Variant, CreatedAt: set.CreatedAt})
	if err != nil {
		return err
	}
	tmp := filepath.Join(f.dir, stagingMark+latestFile)
	if err := writeSynced(tmp, ptr); err != nil {
		return err
	}
	if err := os.Rename(tmp, filepath.Join(f.dir, latestFile)); err != nil {
		return fmt.Errorf("swap %s: %w", latestFile, err)
	}

	f.prune(set.Version)
	return nil
}

type versionDir struct {
	name string
	mod  time.Time
}

// versionDirs lists stored version directories, newest first.
func (f *FileStore) versionDirs() ([]versionDir, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}
	var dirs []versionDir
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, versionDir{name: e.Name(), mod: info.ModTime()})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].mod.After(dirs[j].mod) })
	return dirs, nil
}

// Versions lists stored versions, newest first.
func (f *FileStore) Versions(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	dirs, err := f.versionDirs()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	versions := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if len(versions) == limit {
			break
		}
		versions = append(versions, d.name)
	}
	return versions, nil
}

// prune removes version directories beyond the newest f.keep. Failures only
// leave extra files behind.
func (f *FileStore) prune(active string) {
	dirs, err := f.versionDirs()
	if err != nil {
		return
	}
	kept := 1
	for _, d := range dirs {
		if d.name == active {
			continue
		}
		if kept < f.keep {
			kept++
			continue
		}
		_ = os.RemoveAll(filepath.Join(f.dir, d.name))
	}
}

func writeSynced(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, artifactPerm)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func cloneSet(set risk.ArtifactSet) risk.ArtifactSet {
	out := set
	out.Blobs = make(map[string][]byte, len(set.Blobs))
	for name, blob := range set.Blobs {
		out.Blobs[name] = append([]byte(nil), blob...)
	}
	return out
}
